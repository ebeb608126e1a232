package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/safeview/safeviewdb/internal/domain"
)

func TestCreateSnapshotsExistingDocuments(t *testing.T) {
	dir := t.TempDir()
	paths := domain.NewPaths(dir)

	sourcesBody := `[{"id": "src1", "type": "local", "title": "Family", "path": "/media"}]`
	watchedBody := `[{"videoId": "v1"}]`
	require.NoError(t, os.WriteFile(paths.Sources, []byte(sourcesBody), 0644))
	require.NoError(t, os.WriteFile(paths.WatchedVideos, []byte(watchedBody), 0644))

	backupDir, err := Create(zerolog.Nop(), paths)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(backupDir, paths.BackupRoot), "backup lives under the backup root")
	assert.Contains(t, filepath.Base(backupDir), "migration-")

	// Copies are byte-identical.
	copied, err := os.ReadFile(filepath.Join(backupDir, string(domain.SourcesFile)))
	require.NoError(t, err)
	assert.Equal(t, sourcesBody, string(copied))

	copied, err = os.ReadFile(filepath.Join(backupDir, string(domain.WatchedVideosFile)))
	require.NoError(t, err)
	assert.Equal(t, watchedBody, string(copied))

	// Documents that never existed are not invented.
	_, err = os.Stat(filepath.Join(backupDir, string(domain.FavoritesFile)))
	assert.True(t, os.IsNotExist(err))

	body, err := os.ReadFile(filepath.Join(backupDir, manifestName))
	require.NoError(t, err)

	var manifest Manifest
	require.NoError(t, yaml.Unmarshal(body, &manifest))
	assert.Equal(t, dir, manifest.DataDir)
	assert.NotEmpty(t, manifest.CreatedAt)
	require.Len(t, manifest.Files, 2)
	assert.Equal(t, string(domain.SourcesFile), manifest.Files[0].Name)
	assert.Equal(t, int64(len(sourcesBody)), manifest.Files[0].Size)
}

func TestCreateWithNoDocuments(t *testing.T) {
	paths := domain.NewPaths(t.TempDir())

	backupDir, err := Create(zerolog.Nop(), paths)
	require.NoError(t, err)

	var manifest Manifest
	body, err := os.ReadFile(filepath.Join(backupDir, manifestName))
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(body, &manifest))
	assert.Empty(t, manifest.Files)
}

func TestCreateProducesDistinctDirectories(t *testing.T) {
	paths := domain.NewPaths(t.TempDir())

	first, err := Create(zerolog.Nop(), paths)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := Create(zerolog.Nop(), paths)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "each run gets its own timestamped directory")
}

func TestCreateFailsWhenBackupRootIsNotWritable(t *testing.T) {
	dir := t.TempDir()
	paths := domain.NewPaths(dir)

	// A file standing where the backup root should be makes MkdirAll fail.
	require.NoError(t, os.WriteFile(paths.BackupRoot, []byte("in the way"), 0644))

	_, err := Create(zerolog.Nop(), paths)
	require.Error(t, err)
}
