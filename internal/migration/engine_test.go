package migration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeview/safeviewdb/internal/database"
	"github.com/safeview/safeviewdb/internal/domain"
	"github.com/safeview/safeviewdb/internal/repository"
)

// fakeNotifier records notification calls instead of hitting a webhook.
type fakeNotifier struct {
	summaries []*domain.PhaseSummary
	errors    []error
}

func (f *fakeNotifier) SendSummary(ctx context.Context, summary *domain.PhaseSummary) error {
	f.summaries = append(f.summaries, summary)
	return nil
}

func (f *fakeNotifier) SendError(ctx context.Context, phase domain.Phase, err error) error {
	f.errors = append(f.errors, err)
	return nil
}

func newTestEngine(t *testing.T, dir string, notifier domain.NotificationService) *Engine {
	t.Helper()

	log := zerolog.Nop()
	db, err := database.NewDB(dir, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	paths := domain.NewPaths(dir)
	return NewEngine(log, db, repository.NewLegacyStore(log, paths), paths, notifier)
}

func writeDoc(t *testing.T, dir string, file domain.LegacyFile, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, string(file)), []byte(body), 0644))
}

func TestRunPhase1EndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, domain.SourcesFile, `[
		{"id": "src1", "type": "youtube_channel", "title": "Science", "url": "https://youtube.com/@science"},
		{"id": "src2", "type": "local", "title": "Family", "path": "/media/family"}
	]`)
	// v1 appears twice: an earlier and a later watch of the same video.
	writeDoc(t, dir, domain.WatchedVideosFile, `[
		{"videoId": "v1", "source": "src1", "title": "Volcanoes", "position": 10,
		 "firstWatched": "2024-01-01T00:00:00Z", "lastWatched": "2024-01-01T00:00:00Z"},
		{"videoId": "v1", "source": "src1", "title": "Volcanoes", "position": 250, "watched": true,
		 "firstWatched": "2024-03-15T00:00:00Z", "lastWatched": "2024-03-15T00:00:00Z"},
		{"videoId": "local_clip.mp4", "title": "Birthday"}
	]`)
	writeDoc(t, dir, domain.FavoritesFile, `[{"videoId": "v1", "sourceId": "src1", "dateAdded": "2024-02-01T00:00:00Z"}]`)

	notifier := &fakeNotifier{}
	engine := newTestEngine(t, dir, notifier)
	ctx := context.Background()

	summary, err := engine.RunPhase1(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, summary.Status)
	assert.Zero(t, summary.TotalErrors)
	assert.Empty(t, summary.FailedUnits())
	require.Len(t, summary.UnitStatuses, 5)

	// Every legacy document was snapshotted before any write.
	require.NotEmpty(t, summary.BackupPath)
	_, statErr := os.Stat(filepath.Join(summary.BackupPath, string(domain.WatchedVideosFile)))
	assert.NoError(t, statErr)

	sourceCount, err := engine.sources.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sourceCount)

	// Duplicate watch entries collapse onto one video row.
	videoCount, err := engine.videos.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, videoCount)

	// First occurrence wins for video metadata; local ids carry their id as
	// URL.
	local, err := engine.videos.Get(ctx, "local_clip.mp4")
	require.NoError(t, err)
	require.NotNil(t, local)
	require.NotNil(t, local.URL)
	assert.Equal(t, "local_clip.mp4", *local.URL)
	assert.Equal(t, domain.UnknownSourceID, local.SourceID)

	// The view record keeps the earliest first_watched and the latest
	// everything else.
	record, err := engine.history.GetViewRecord(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "2024-01-01T00:00:00Z", record.FirstWatched)
	assert.Equal(t, "2024-03-15T00:00:00Z", record.LastWatched)
	assert.Equal(t, float64(250), record.Position)
	assert.True(t, record.Watched)

	fav, err := engine.history.IsFavorite(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, fav)

	// Verification surfaces the duplicate collapse instead of hiding it:
	// three raw watch entries became two rows.
	result := engine.VerifyIntegrity(ctx)
	assert.False(t, result.IsValid)
	assert.Equal(t, domain.IntegrityCount{Expected: 3, Actual: 2}, result.Counts["view_records"])
	assert.Equal(t, domain.IntegrityCount{Expected: 2, Actual: 2}, result.Counts["sources"])
	assert.Equal(t, domain.IntegrityCount{Expected: 1, Actual: 1}, result.Counts["favorites"])
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "view_records: expected 3 records, found 2")

	require.Len(t, notifier.summaries, 1)
	assert.Empty(t, notifier.errors)
}

func TestRunPhase1WithNoLegacyDocuments(t *testing.T) {
	engine := newTestEngine(t, t.TempDir(), nil)

	summary, err := engine.RunPhase1(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, summary.Status)
	assert.Zero(t, summary.TotalRecordsProcessed)

	// An absent document is an empty migration, not a failed one.
	for _, u := range summary.UnitStatuses {
		assert.Equal(t, domain.StatusCompleted, u.Status, "unit %s", u.Name)
		assert.Zero(t, u.RecordsProcessed, "unit %s", u.Name)
	}

	result := engine.VerifyIntegrity(context.Background())
	assert.True(t, result.IsValid)
}

func TestRunPhase1IsRepeatable(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, domain.SourcesFile, `[{"id": "src1", "type": "local", "title": "Family", "path": "/media"}]`)
	writeDoc(t, dir, domain.WatchedVideosFile, `[
		{"videoId": "v1", "source": "src1", "firstWatched": "2024-01-01T00:00:00Z", "lastWatched": "2024-01-01T00:00:00Z"}
	]`)

	engine := newTestEngine(t, dir, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		summary, err := engine.RunPhase1(ctx)
		require.NoError(t, err)
		require.Equal(t, domain.StatusCompleted, summary.Status)
	}

	videoCount, err := engine.videos.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, videoCount)

	record, err := engine.history.GetViewRecord(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00Z", record.FirstWatched)
}

func TestRunPhase1BackupFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	// A file standing where the backup root should be blocks the snapshot.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backup"), []byte("in the way"), 0644))

	notifier := &fakeNotifier{}
	engine := newTestEngine(t, dir, notifier)

	summary, err := engine.RunPhase1(context.Background())
	require.Error(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, domain.StatusFailed, summary.Status)
	assert.Empty(t, summary.UnitStatuses, "no unit may run without a backup")
	assert.Len(t, notifier.errors, 1)
}

func TestRunUnitsIsolatesFailures(t *testing.T) {
	engine := newTestEngine(t, t.TempDir(), nil)
	require.NoError(t, engine.db.EnsureInitialized(context.Background(), domain.Phase1))

	summary := newSummary(domain.Phase1)
	ran := []string{}
	engine.runUnits(context.Background(), summary, []unit{
		{name: "first", run: func(ctx context.Context) (int, error) {
			ran = append(ran, "first")
			return 3, nil
		}},
		{name: "broken", run: func(ctx context.Context) (int, error) {
			ran = append(ran, "broken")
			return 0, errors.New("UNIQUE constraint failed: sources.id")
		}},
		{name: "panicky", run: func(ctx context.Context) (int, error) {
			ran = append(ran, "panicky")
			panic("nil map write")
		}},
		{name: "last", run: func(ctx context.Context) (int, error) {
			ran = append(ran, "last")
			return 2, nil
		}},
	})

	assert.Equal(t, []string{"first", "broken", "panicky", "last"}, ran)
	assert.Equal(t, 5, summary.TotalRecordsProcessed)
	assert.Equal(t, 2, summary.TotalErrors)
	assert.Equal(t, []string{"broken", "panicky"}, summary.FailedUnits())

	statuses := summary.UnitStatuses
	require.Len(t, statuses, 4)
	assert.Equal(t, domain.StatusCompleted, statuses[0].Status)
	assert.Equal(t, domain.StatusFailed, statuses[1].Status)
	assert.Contains(t, statuses[1].Error, "unique_violation")
	assert.Equal(t, domain.StatusFailed, statuses[2].Status)
	assert.Contains(t, statuses[2].Error, "unit panic")
	assert.Equal(t, domain.StatusCompleted, statuses[3].Status)
}

func TestRunPhase1ReportsPartialFailure(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, domain.SourcesFile, `[{"id": "src1", "type": "local", "title": "Family", "path": "/media"}]`)
	writeDoc(t, dir, domain.WatchedVideosFile, `[
		{"videoId": "v1", "source": "src1", "firstWatched": "2024-01-01T00:00:00Z", "lastWatched": "2024-01-01T00:00:00Z"}
	]`)

	// A favorite pointing at a source that never existed trips the foreign
	// key in exactly one unit.
	writeDoc(t, dir, domain.FavoritesFile, `[{"videoId": "v1", "sourceId": "ghost", "dateAdded": "2024-02-01T00:00:00Z"}]`)

	engine := newTestEngine(t, dir, nil)
	ctx := context.Background()

	summary, err := engine.RunPhase1(ctx)
	require.NoError(t, err, "unit failures are reported in the summary, not returned")
	assert.Equal(t, domain.StatusFailed, summary.Status)
	assert.Equal(t, 1, summary.TotalErrors)
	require.Len(t, summary.UnitStatuses, 5)
	assert.Equal(t, []string{"migrate-favorites"}, summary.FailedUnits())
	for _, u := range summary.UnitStatuses {
		if u.Name == "migrate-favorites" {
			assert.Contains(t, u.Error, "foreign_key_violation")
		}
	}

	// The units around the failure still landed their data.
	videoCount, err := engine.videos.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, videoCount)
}

func TestRunPhase2EndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, domain.UsageLogFile, `{"2024-01-02": 3600, "2024-01-01": 1800.5}`)
	writeDoc(t, dir, domain.TimeLimitsFile, `{"Monday": 30, "Saturday": 120}`)
	writeDoc(t, dir, domain.TimeExtraFile, `{"2024-01-01": 15}`)
	writeDoc(t, dir, domain.MainSettingsFile, `{"darkMode": true, "language": "en"}`)
	writeDoc(t, dir, domain.PaginationFile, `{"pageSize": 50}`)
	writeDoc(t, dir, domain.PlayerSettingsFile, `{"subtitles": {"enabled": false}}`)

	engine := newTestEngine(t, dir, nil)
	ctx := context.Background()

	summary, err := engine.RunPhase2(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, summary.Status)
	require.Len(t, summary.UnitStatuses, 4)
	assert.Empty(t, summary.BackupPath, "phase 2 relies on the phase 1 snapshot")

	seconds, err := engine.usage.GetUsageLog(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1800.5, seconds)

	// Partial legacy policies get defaults for what they never set.
	limits, err := engine.usage.GetTimeLimits(ctx)
	require.NoError(t, err)
	require.NotNil(t, limits)
	assert.Equal(t, 30, limits.Monday)
	assert.Equal(t, 120, limits.Saturday)
	assert.Zero(t, limits.Sunday)
	assert.Equal(t, 3, limits.WarningThreshold)
	assert.Equal(t, 60, limits.CountdownThreshold)
	assert.Equal(t, 10, limits.AudioThreshold)
	assert.Equal(t, "Time's up for today", limits.TimeUpMessage)

	extras, err := engine.usage.ListUsageExtras(ctx, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, extras, 1)
	assert.Equal(t, 15, extras[0].MinutesAdded)

	// Settings fan out into namespaced, JSON-encoded, typed rows.
	for key, want := range map[string]struct {
		value string
		kind  domain.SettingType
	}{
		"main.darkMode":       {"true", domain.SettingTypeBoolean},
		"main.language":       {`"en"`, domain.SettingTypeString},
		"pagination.pageSize": {"50", domain.SettingTypeNumber},
		"player.subtitles":    {`{"enabled":false}`, domain.SettingTypeObject},
	} {
		setting, err := engine.settings.Get(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, setting, "setting %s", key)
		assert.Equal(t, want.value, setting.Value, "setting %s", key)
		assert.Equal(t, want.kind, setting.Type, "setting %s", key)
	}
}

func TestRunPhase2IsRepeatable(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, domain.TimeExtraFile, `[
		{"date": "2024-01-01", "minutes": 15},
		{"date": "2024-01-01", "minutes": 10}
	]`)

	engine := newTestEngine(t, dir, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		summary, err := engine.RunPhase2(ctx)
		require.NoError(t, err)
		require.Equal(t, domain.StatusCompleted, summary.Status)
	}

	// The audit trail is rewritten per run, never appended twice.
	extras, err := engine.usage.ListUsageExtras(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Len(t, extras, 2)
}

func TestRunPhase2AfterPhase1(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, domain.WatchedVideosFile, `[
		{"videoId": "v1", "firstWatched": "2024-01-01T00:00:00Z", "lastWatched": "2024-01-01T00:00:00Z"}
	]`)
	writeDoc(t, dir, domain.UsageLogFile, `{"2024-01-01": 600}`)

	engine := newTestEngine(t, dir, nil)
	ctx := context.Background()

	_, err := engine.RunPhase1(ctx)
	require.NoError(t, err)
	_, err = engine.RunPhase2(ctx)
	require.NoError(t, err)

	// Phase 1 data survives the phase 2 schema upgrade.
	record, err := engine.history.GetViewRecord(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, record)

	result := engine.db.Validate(ctx, domain.Phase2)
	assert.True(t, result.IsValid(), "phase2 install must validate: %+v", result)
}
