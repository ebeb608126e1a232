package database

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/safeview/safeviewdb/internal/domain"
)

// SourceRepo persists video sources.
type SourceRepo struct {
	log zerolog.Logger
	db  *DB
}

// NewSourceRepo creates a new source repository
func NewSourceRepo(log zerolog.Logger, db *DB) *SourceRepo {
	return &SourceRepo{
		log: log.With().Str("repo", "sources").Logger(),
		db:  db,
	}
}

// UpsertAll writes all sources in one transaction and returns the number of
// records processed. Existing rows are updated in place so re-runs are
// idempotent and cascades are never triggered.
func (r *SourceRepo) UpsertAll(ctx context.Context, sources []domain.Source) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, s := range sources {
		queryBuilder := r.db.squirrel.
			Insert("sources").
			Columns("id", "kind", "title", "url", "path", "channel_id", "sort_order",
				"position", "thumbnail", "video_count", "max_depth", "created_at", "updated_at").
			Values(s.ID, string(s.Kind), s.Title, s.URL, s.Path, s.ChannelID, s.SortOrder,
				s.Position, s.Thumbnail, s.VideoCount, s.MaxDepth, now, now).
			Suffix(`ON CONFLICT (id) DO UPDATE SET
				kind = excluded.kind,
				title = excluded.title,
				url = excluded.url,
				path = excluded.path,
				channel_id = excluded.channel_id,
				sort_order = excluded.sort_order,
				position = excluded.position,
				thumbnail = excluded.thumbnail,
				video_count = excluded.video_count,
				max_depth = excluded.max_depth,
				updated_at = excluded.updated_at`)

		query, args, err := queryBuilder.ToSql()
		if err != nil {
			return 0, errors.Wrap(err, "error building query")
		}

		r.log.Trace().Str("query", query).Interface("args", args).Msg("UpsertAll")

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, errors.Wrapf(err, "error upserting source %s", s.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "error committing sources")
	}

	return len(sources), nil
}

// Get returns one source by id.
func (r *SourceRepo) Get(ctx context.Context, id string) (*domain.Source, error) {
	queryBuilder := r.db.squirrel.
		Select("id", "kind", "title", "url", "path", "channel_id", "sort_order",
			"position", "thumbnail", "video_count", "max_depth", "created_at", "updated_at").
		From("sources").
		Where(sq.Eq{"id": id})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	s := &domain.Source{}
	var kind string
	err = r.db.handler.QueryRowContext(ctx, query, args...).Scan(
		&s.ID, &kind, &s.Title, &s.URL, &s.Path, &s.ChannelID, &s.SortOrder,
		&s.Position, &s.Thumbnail, &s.VideoCount, &s.MaxDepth, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "error scanning source")
	}
	s.Kind = domain.SourceKind(kind)

	return s, nil
}

// List returns all sources except the seeded placeholder, ordered by
// display position then id.
func (r *SourceRepo) List(ctx context.Context) ([]domain.Source, error) {
	queryBuilder := r.db.squirrel.
		Select("id", "kind", "title", "url", "path", "channel_id", "sort_order",
			"position", "thumbnail", "video_count", "max_depth", "created_at", "updated_at").
		From("sources").
		Where(sq.NotEq{"id": domain.UnknownSourceID}).
		OrderBy("position IS NULL", "position", "id")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var s domain.Source
		var kind string
		if err := rows.Scan(&s.ID, &kind, &s.Title, &s.URL, &s.Path, &s.ChannelID, &s.SortOrder,
			&s.Position, &s.Thumbnail, &s.VideoCount, &s.MaxDepth, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		s.Kind = domain.SourceKind(kind)
		sources = append(sources, s)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}

	return sources, nil
}

// Update applies a typed partial update. Nil fields are left untouched; an
// empty patch is a no-op.
func (r *SourceRepo) Update(ctx context.Context, id string, patch domain.SourcePatch) error {
	values := map[string]interface{}{}
	if patch.Title != nil {
		values["title"] = *patch.Title
	}
	if patch.SortOrder != nil {
		values["sort_order"] = *patch.SortOrder
	}
	if patch.Position != nil {
		values["position"] = *patch.Position
	}
	if patch.Thumbnail != nil {
		values["thumbnail"] = *patch.Thumbnail
	}
	if patch.VideoCount != nil {
		values["video_count"] = *patch.VideoCount
	}
	if patch.MaxDepth != nil {
		values["max_depth"] = *patch.MaxDepth
	}
	if len(values) == 0 {
		return nil
	}
	values["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	queryBuilder := r.db.squirrel.
		Update("sources").
		SetMap(values).
		Where(sq.Eq{"id": id})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Update")

	_, err = r.db.handler.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "error executing query")
}

// Delete removes a source. Videos, view records, favorites, and cached API
// results cascade in the same statement.
func (r *SourceRepo) Delete(ctx context.Context, id string) error {
	queryBuilder := r.db.squirrel.
		Delete("sources").
		Where(sq.Eq{"id": id})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Delete")

	_, err = r.db.handler.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "error executing query")
}

// Count returns the number of sources, excluding the seeded placeholder.
func (r *SourceRepo) Count(ctx context.Context) (int, error) {
	return r.db.countRows(ctx, "sources", sq.NotEq{"id": domain.UnknownSourceID})
}
