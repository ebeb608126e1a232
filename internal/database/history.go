package database

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/safeview/safeviewdb/internal/domain"
)

// HistoryRepo persists view records and favorites.
type HistoryRepo struct {
	log zerolog.Logger
	db  *DB
}

// NewHistoryRepo creates a new history repository
func NewHistoryRepo(log zerolog.Logger, db *DB) *HistoryRepo {
	return &HistoryRepo{
		log: log.With().Str("repo", "history").Logger(),
		db:  db,
	}
}

// viewRecordConflict keeps first_watched out of the update set: it is
// written once at insert and never overwritten by later upserts.
const viewRecordConflict = `ON CONFLICT (video_id) DO UPDATE SET
	source_id = excluded.source_id,
	position = excluded.position,
	time_watched = excluded.time_watched,
	duration = excluded.duration,
	watched = excluded.watched,
	last_watched = excluded.last_watched`

// UpsertViewRecords writes all records in one transaction and returns the
// number of records processed. Duplicate video ids collapse onto one row in
// input order.
func (r *HistoryRepo) UpsertViewRecords(ctx context.Context, records []domain.ViewRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, rec := range records {
		query, args, err := r.viewRecordUpsert(rec).ToSql()
		if err != nil {
			return 0, errors.Wrap(err, "error building query")
		}

		r.log.Trace().Str("query", query).Interface("args", args).Msg("UpsertViewRecords")

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, errors.Wrapf(err, "error upserting view record %s", rec.VideoID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "error committing view records")
	}

	return len(records), nil
}

// UpsertViewRecord writes one record, preserving first_watched on conflict.
func (r *HistoryRepo) UpsertViewRecord(ctx context.Context, rec domain.ViewRecord) error {
	query, args, err := r.viewRecordUpsert(rec).ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("UpsertViewRecord")

	_, err = r.db.handler.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "error executing query")
}

func (r *HistoryRepo) viewRecordUpsert(rec domain.ViewRecord) sq.InsertBuilder {
	return r.db.squirrel.
		Insert("view_records").
		Columns("video_id", "source_id", "position", "time_watched",
			"duration", "watched", "first_watched", "last_watched").
		Values(rec.VideoID, rec.SourceID, rec.Position, rec.TimeWatched,
			rec.Duration, rec.Watched, rec.FirstWatched, rec.LastWatched).
		Suffix(viewRecordConflict)
}

// GetViewRecord returns the view record for one video, or nil.
func (r *HistoryRepo) GetViewRecord(ctx context.Context, videoID string) (*domain.ViewRecord, error) {
	queryBuilder := r.db.squirrel.
		Select("video_id", "source_id", "position", "time_watched",
			"duration", "watched", "first_watched", "last_watched").
		From("view_records").
		Where(sq.Eq{"video_id": videoID})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	rec := &domain.ViewRecord{}
	err = r.db.handler.QueryRowContext(ctx, query, args...).Scan(
		&rec.VideoID, &rec.SourceID, &rec.Position, &rec.TimeWatched,
		&rec.Duration, &rec.Watched, &rec.FirstWatched, &rec.LastWatched)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "error scanning view record")
	}

	return rec, nil
}

// UpsertFavorites writes all favorites in one transaction and returns the
// number of records processed. A favorite that already exists keeps its
// original date_added.
func (r *HistoryRepo) UpsertFavorites(ctx context.Context, favorites []domain.Favorite) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, f := range favorites {
		queryBuilder := r.db.squirrel.
			Insert("favorites").
			Columns("video_id", "source_id", "date_added").
			Values(f.VideoID, f.SourceID, f.DateAdded).
			Suffix("ON CONFLICT (video_id) DO UPDATE SET source_id = excluded.source_id")

		query, args, err := queryBuilder.ToSql()
		if err != nil {
			return 0, errors.Wrap(err, "error building query")
		}

		r.log.Trace().Str("query", query).Interface("args", args).Msg("UpsertFavorites")

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, errors.Wrapf(err, "error upserting favorite %s", f.VideoID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "error committing favorites")
	}

	return len(favorites), nil
}

// IsFavorite reports whether a favorite row exists for the video.
func (r *HistoryRepo) IsFavorite(ctx context.Context, videoID string) (bool, error) {
	n, err := r.db.countRows(ctx, "favorites", sq.Eq{"video_id": videoID})
	return n > 0, err
}

// DeleteFavorite removes the favorite flag for one video.
func (r *HistoryRepo) DeleteFavorite(ctx context.Context, videoID string) error {
	queryBuilder := r.db.squirrel.
		Delete("favorites").
		Where(sq.Eq{"video_id": videoID})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	_, err = r.db.handler.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "error executing query")
}

// CountViewRecords returns the number of view record rows.
func (r *HistoryRepo) CountViewRecords(ctx context.Context) (int, error) {
	return r.db.countRows(ctx, "view_records", nil)
}

// CountFavorites returns the number of favorite rows.
func (r *HistoryRepo) CountFavorites(ctx context.Context) (int, error) {
	return r.db.countRows(ctx, "favorites", nil)
}
