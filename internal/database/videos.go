package database

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/safeview/safeviewdb/internal/domain"
)

// VideoRepo persists videos. The videos_search index tracks every write
// through schema triggers, so this repo never touches it directly except to
// query.
type VideoRepo struct {
	log zerolog.Logger
	db  *DB
}

// NewVideoRepo creates a new video repository
func NewVideoRepo(log zerolog.Logger, db *DB) *VideoRepo {
	return &VideoRepo{
		log: log.With().Str("repo", "videos").Logger(),
		db:  db,
	}
}

// UpsertAll writes all videos in one transaction and returns the number of
// records processed. Conflicts update in place; a plain REPLACE would
// delete-and-insert, which cascades into view records.
func (r *VideoRepo) UpsertAll(ctx context.Context, videos []domain.Video) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, v := range videos {
		queryBuilder := r.db.squirrel.
			Insert("videos").
			Columns("id", "source_id", "title", "published_at", "thumbnail",
				"duration", "url", "is_available", "description").
			Values(v.ID, v.SourceID, v.Title, nullIfEmpty(v.PublishedAt), nullIfEmpty(v.Thumbnail),
				v.Duration, v.URL, v.IsAvailable, v.Description).
			Suffix(`ON CONFLICT (id) DO UPDATE SET
				source_id = excluded.source_id,
				title = excluded.title,
				published_at = excluded.published_at,
				thumbnail = excluded.thumbnail,
				duration = excluded.duration,
				url = excluded.url,
				is_available = excluded.is_available,
				description = excluded.description`)

		query, args, err := queryBuilder.ToSql()
		if err != nil {
			return 0, errors.Wrap(err, "error building query")
		}

		r.log.Trace().Str("query", query).Interface("args", args).Msg("UpsertAll")

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, errors.Wrapf(err, "error upserting video %s", v.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "error committing videos")
	}

	return len(videos), nil
}

// Get returns one video by id.
func (r *VideoRepo) Get(ctx context.Context, id string) (*domain.Video, error) {
	queryBuilder := r.db.squirrel.
		Select("id", "source_id", "title", "published_at", "thumbnail",
			"duration", "url", "is_available", "description").
		From("videos").
		Where(sq.Eq{"id": id})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	v := &domain.Video{}
	var publishedAt, thumbnail sql.NullString
	err = r.db.handler.QueryRowContext(ctx, query, args...).Scan(
		&v.ID, &v.SourceID, &v.Title, &publishedAt, &thumbnail,
		&v.Duration, &v.URL, &v.IsAvailable, &v.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "error scanning video")
	}
	v.PublishedAt = publishedAt.String
	v.Thumbnail = thumbnail.String

	return v, nil
}

// Search runs a full-text query over video titles and descriptions via the
// videos_search index.
func (r *VideoRepo) Search(ctx context.Context, match string, limit uint64) ([]domain.Video, error) {
	if limit == 0 {
		limit = 50
	}

	queryBuilder := r.db.squirrel.
		Select("v.id", "v.source_id", "v.title", "v.published_at", "v.thumbnail",
			"v.duration", "v.url", "v.is_available", "v.description").
		From("videos_search").
		Join("videos v ON v.id = videos_search.video_id").
		Where("videos_search MATCH ?", match).
		OrderBy("rank").
		Limit(limit)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Search")

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	var videos []domain.Video
	for rows.Next() {
		var v domain.Video
		var publishedAt, thumbnail sql.NullString
		if err := rows.Scan(&v.ID, &v.SourceID, &v.Title, &publishedAt, &thumbnail,
			&v.Duration, &v.URL, &v.IsAvailable, &v.Description); err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		v.PublishedAt = publishedAt.String
		v.Thumbnail = thumbnail.String
		videos = append(videos, v)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}

	return videos, nil
}

// Count returns the number of video rows.
func (r *VideoRepo) Count(ctx context.Context) (int, error) {
	return r.db.countRows(ctx, "videos", nil)
}

// CountSearchIndex returns the number of rows in the videos_search index.
// The triggers keep it equal to Count.
func (r *VideoRepo) CountSearchIndex(ctx context.Context) (int, error) {
	return r.db.countRows(ctx, "videos_search", nil)
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
