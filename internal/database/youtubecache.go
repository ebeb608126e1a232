package database

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/safeview/safeviewdb/internal/domain"
)

// YouTubeCacheRepo persists cached pages of paginated API results so a page
// can be reconstructed deterministically without re-fetching.
type YouTubeCacheRepo struct {
	log zerolog.Logger
	db  *DB
}

// NewYouTubeCacheRepo creates a new YouTube result cache repository
func NewYouTubeCacheRepo(log zerolog.Logger, db *DB) *YouTubeCacheRepo {
	return &YouTubeCacheRepo{
		log: log.With().Str("repo", "youtube_cache").Logger(),
		db:  db,
	}
}

// UpsertPage writes one page of results in a single transaction. Rows are
// unique on (source, video, page_range).
func (r *YouTubeCacheRepo) UpsertPage(ctx context.Context, results []domain.YouTubeAPIResult) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, res := range results {
		queryBuilder := r.db.squirrel.
			Replace("youtube_api_results").
			Columns("source_id", "video_id", "position", "page_range", "fetched_at").
			Values(res.SourceID, res.VideoID, res.Position, res.PageRange, res.FetchedAt)

		query, args, err := queryBuilder.ToSql()
		if err != nil {
			return 0, errors.Wrap(err, "error building query")
		}

		r.log.Trace().Str("query", query).Interface("args", args).Msg("UpsertPage")

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, errors.Wrapf(err, "error caching result %s/%s", res.SourceID, res.VideoID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "error committing cached results")
	}

	return len(results), nil
}

// GetPage returns one cached page ordered by rank within the source.
func (r *YouTubeCacheRepo) GetPage(ctx context.Context, sourceID, pageRange string) ([]domain.YouTubeAPIResult, error) {
	queryBuilder := r.db.squirrel.
		Select("source_id", "video_id", "position", "page_range", "fetched_at").
		From("youtube_api_results").
		Where(sq.Eq{"source_id": sourceID, "page_range": pageRange}).
		OrderBy("position")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	var results []domain.YouTubeAPIResult
	for rows.Next() {
		var res domain.YouTubeAPIResult
		if err := rows.Scan(&res.SourceID, &res.VideoID, &res.Position, &res.PageRange, &res.FetchedAt); err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}

	return results, nil
}

// Count returns the number of cached result rows.
func (r *YouTubeCacheRepo) Count(ctx context.Context) (int, error) {
	return r.db.countRows(ctx, "youtube_api_results", nil)
}
