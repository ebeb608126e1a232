package database

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeview/safeviewdb/internal/domain"
)

func seedVideo(t *testing.T, db *DB, id string) {
	t.Helper()
	repo := NewVideoRepo(zerolog.Nop(), db)
	_, err := repo.UpsertAll(context.Background(), []domain.Video{
		{ID: id, SourceID: domain.UnknownSourceID, Title: id, IsAvailable: true},
	})
	require.NoError(t, err)
}

func TestViewRecordFirstWatchedIsImmutable(t *testing.T) {
	db := newInitializedDB(t, domain.Phase1)
	repo := NewHistoryRepo(zerolog.Nop(), db)
	ctx := context.Background()
	seedVideo(t, db, "v1")

	require.NoError(t, repo.UpsertViewRecord(ctx, domain.ViewRecord{
		VideoID:      "v1",
		SourceID:     domain.UnknownSourceID,
		Position:     10,
		FirstWatched: "2024-01-01T00:00:00Z",
		LastWatched:  "2024-01-01T00:00:00Z",
	}))

	// A later watch advances everything except first_watched.
	require.NoError(t, repo.UpsertViewRecord(ctx, domain.ViewRecord{
		VideoID:      "v1",
		SourceID:     domain.UnknownSourceID,
		Position:     250,
		TimeWatched:  240,
		Watched:      true,
		FirstWatched: "2024-03-15T00:00:00Z",
		LastWatched:  "2024-03-15T00:00:00Z",
	}))

	got, err := repo.GetViewRecord(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2024-01-01T00:00:00Z", got.FirstWatched)
	assert.Equal(t, "2024-03-15T00:00:00Z", got.LastWatched)
	assert.Equal(t, float64(250), got.Position)
	assert.True(t, got.Watched)

	n, err := repo.CountViewRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "one row per video, upserted on every watch")
}

func TestUpsertViewRecordsCollapsesDuplicates(t *testing.T) {
	db := newInitializedDB(t, domain.Phase1)
	repo := NewHistoryRepo(zerolog.Nop(), db)
	ctx := context.Background()
	seedVideo(t, db, "v1")
	seedVideo(t, db, "v2")

	n, err := repo.UpsertViewRecords(ctx, []domain.ViewRecord{
		{VideoID: "v1", SourceID: domain.UnknownSourceID, FirstWatched: "2024-01-01T00:00:00Z", LastWatched: "2024-01-01T00:00:00Z"},
		{VideoID: "v2", SourceID: domain.UnknownSourceID, FirstWatched: "2024-01-02T00:00:00Z", LastWatched: "2024-01-02T00:00:00Z"},
		{VideoID: "v1", SourceID: domain.UnknownSourceID, Position: 99, FirstWatched: "2024-01-03T00:00:00Z", LastWatched: "2024-01-03T00:00:00Z"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n, "processed count reflects input records, not rows")

	count, err := repo.CountViewRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := repo.GetViewRecord(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00Z", got.FirstWatched)
	assert.Equal(t, float64(99), got.Position)
}

func TestGetViewRecordMissing(t *testing.T) {
	db := newInitializedDB(t, domain.Phase1)
	repo := NewHistoryRepo(zerolog.Nop(), db)

	got, err := repo.GetViewRecord(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFavorites(t *testing.T) {
	db := newInitializedDB(t, domain.Phase1)
	repo := NewHistoryRepo(zerolog.Nop(), db)
	ctx := context.Background()
	seedVideo(t, db, "v1")

	n, err := repo.UpsertFavorites(ctx, []domain.Favorite{
		{VideoID: "v1", SourceID: domain.UnknownSourceID, DateAdded: "2024-01-01T00:00:00Z"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fav, err := repo.IsFavorite(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, fav)

	// Re-favoriting keeps the original date_added.
	_, err = repo.UpsertFavorites(ctx, []domain.Favorite{
		{VideoID: "v1", SourceID: domain.UnknownSourceID, DateAdded: "2025-06-01T00:00:00Z"},
	})
	require.NoError(t, err)

	var dateAdded string
	err = db.handler.QueryRowContext(ctx, "SELECT date_added FROM favorites WHERE video_id = 'v1'").Scan(&dateAdded)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00Z", dateAdded)

	require.NoError(t, repo.DeleteFavorite(ctx, "v1"))
	fav, err = repo.IsFavorite(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, fav)
}
