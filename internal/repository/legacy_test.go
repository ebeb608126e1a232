package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeview/safeviewdb/internal/domain"
)

func newTestStore(t *testing.T) (*LegacyStore, string) {
	t.Helper()
	dir := t.TempDir()
	return NewLegacyStore(zerolog.Nop(), domain.NewPaths(dir)), dir
}

func writeDoc(t *testing.T, dir string, file domain.LegacyFile, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, string(file)), []byte(body), 0644))
}

func TestMissingDocumentsReadAsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	assert.Empty(t, store.Sources())
	assert.Empty(t, store.WatchedVideos())
	assert.Empty(t, store.Favorites())
	assert.Empty(t, store.UsageLog())
	assert.Nil(t, store.TimeLimits())
	assert.Empty(t, store.TimeExtras())
	assert.Empty(t, store.MainSettings())
	assert.Empty(t, store.PaginationSettings())
	assert.Empty(t, store.PlayerSettings())
}

func TestMalformedDocumentsReadAsEmpty(t *testing.T) {
	store, dir := newTestStore(t)

	writeDoc(t, dir, domain.SourcesFile, "{not json")
	writeDoc(t, dir, domain.WatchedVideosFile, `{"unexpected":"object"}`)
	writeDoc(t, dir, domain.FavoritesFile, "[1, 2, 3")
	writeDoc(t, dir, domain.UsageLogFile, `["not","a","map"]`)
	writeDoc(t, dir, domain.TimeLimitsFile, "null garbage")
	writeDoc(t, dir, domain.TimeExtraFile, `"just a string"`)

	assert.Empty(t, store.Sources())
	assert.Empty(t, store.WatchedVideos())
	assert.Empty(t, store.Favorites())
	assert.Empty(t, store.UsageLog())
	assert.Nil(t, store.TimeLimits())
	assert.Empty(t, store.TimeExtras())
}

func TestSources(t *testing.T) {
	store, dir := newTestStore(t)
	writeDoc(t, dir, domain.SourcesFile, `[
		{"id": "src1", "type": "youtube_channel", "title": "Science", "url": "https://youtube.com/@science", "position": 1},
		{"id": "src2", "type": "local", "title": "Family", "path": "/media/family"}
	]`)

	sources := store.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, "src1", sources[0].ID)
	assert.Equal(t, "youtube_channel", sources[0].Type)
	require.NotNil(t, sources[0].Position)
	assert.Equal(t, 1, *sources[0].Position)
	assert.Nil(t, sources[1].Position)
	assert.Equal(t, "/media/family", sources[1].Path)
}

func TestWatchedVideos(t *testing.T) {
	store, dir := newTestStore(t)
	writeDoc(t, dir, domain.WatchedVideosFile, `[
		{"videoId": "v1", "source": "src1", "title": "Volcanoes", "position": 120.5, "watched": true,
		 "firstWatched": "2024-01-01T00:00:00Z", "lastWatched": "2024-01-02T00:00:00Z"}
	]`)

	watched := store.WatchedVideos()
	require.Len(t, watched, 1)
	assert.Equal(t, "v1", watched[0].VideoID)
	assert.Equal(t, 120.5, watched[0].Position)
	assert.True(t, watched[0].Watched)
}

func TestFavoritesListForm(t *testing.T) {
	store, dir := newTestStore(t)
	writeDoc(t, dir, domain.FavoritesFile, `[{"videoId": "v1", "sourceId": "src1", "dateAdded": "2024-01-01T00:00:00Z"}]`)

	favorites := store.Favorites()
	require.Len(t, favorites, 1)
	assert.Equal(t, "v1", favorites[0].VideoID)
}

func TestFavoritesWrappedForm(t *testing.T) {
	store, dir := newTestStore(t)
	writeDoc(t, dir, domain.FavoritesFile, `{"videos": [{"videoId": "v1"}, {"videoId": "v2"}]}`)

	favorites := store.Favorites()
	require.Len(t, favorites, 2)
	assert.Equal(t, "v2", favorites[1].VideoID)
}

func TestUsageLog(t *testing.T) {
	store, dir := newTestStore(t)
	writeDoc(t, dir, domain.UsageLogFile, `{"2024-01-01": 1800.5, "2024-01-02": 3600}`)

	usage := store.UsageLog()
	require.Len(t, usage, 2)
	assert.Equal(t, 1800.5, usage["2024-01-01"])
}

func TestTimeLimitsDistinguishesAbsentFromZero(t *testing.T) {
	store, dir := newTestStore(t)
	writeDoc(t, dir, domain.TimeLimitsFile, `{"Monday": 0, "Saturday": 120, "timeUpMessage": "Done!"}`)

	limits := store.TimeLimits()
	require.NotNil(t, limits)
	require.NotNil(t, limits.Monday)
	assert.Equal(t, 0, *limits.Monday)
	require.NotNil(t, limits.Saturday)
	assert.Equal(t, 120, *limits.Saturday)
	assert.Nil(t, limits.Sunday)
	assert.Equal(t, "Done!", limits.TimeUpMessage)
	assert.Nil(t, limits.WarningThreshold)
}

func TestTimeExtrasListForm(t *testing.T) {
	store, dir := newTestStore(t)
	writeDoc(t, dir, domain.TimeExtraFile, `[
		{"date": "2024-01-01", "minutes": 15, "reason": "homework", "addedBy": "mom"},
		{"date": "2024-01-01", "minutes": -5}
	]`)

	extras := store.TimeExtras()
	require.Len(t, extras, 2)
	assert.Equal(t, 15, extras[0].Minutes)
	assert.Equal(t, "homework", extras[0].Reason)
	assert.Equal(t, -5, extras[1].Minutes)
}

func TestTimeExtrasMapFormIsNormalized(t *testing.T) {
	store, dir := newTestStore(t)
	writeDoc(t, dir, domain.TimeExtraFile, `{"2024-02-01": 10, "2024-01-01": 15}`)

	extras := store.TimeExtras()
	require.Len(t, extras, 2)
	// Map form comes back ordered by date.
	assert.Equal(t, domain.LegacyUsageExtra{Date: "2024-01-01", Minutes: 15}, extras[0])
	assert.Equal(t, domain.LegacyUsageExtra{Date: "2024-02-01", Minutes: 10}, extras[1])
}

func TestSettingsDocuments(t *testing.T) {
	store, dir := newTestStore(t)
	writeDoc(t, dir, domain.MainSettingsFile, `{"darkMode": true, "language": "en"}`)
	writeDoc(t, dir, domain.PaginationFile, `{"pageSize": 50}`)
	writeDoc(t, dir, domain.PlayerSettingsFile, `{"quality": "720p", "subtitles": {"enabled": false}}`)

	main := store.MainSettings()
	assert.Equal(t, true, main["darkMode"])
	assert.Equal(t, "en", main["language"])

	pagination := store.PaginationSettings()
	assert.Equal(t, float64(50), pagination["pageSize"])

	player := store.PlayerSettings()
	assert.Contains(t, player, "subtitles")
}
