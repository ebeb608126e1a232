package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/safeview/safeviewdb/internal/domain"
)

// manifestName is written alongside the copied documents so an operator can
// tell what a backup directory contains.
const manifestName = "manifest.yaml"

// Manifest describes one backup directory.
type Manifest struct {
	CreatedAt string         `yaml:"created_at"`
	DataDir   string         `yaml:"data_dir"`
	Files     []ManifestFile `yaml:"files"`
}

// ManifestFile is one copied legacy document.
type ManifestFile struct {
	Name string `yaml:"name"`
	Size int64  `yaml:"size"`
}

// Create snapshots every legacy document that exists into a fresh
// timestamped directory under the backup root and returns its path. Copies
// are byte-identical. Any failure is returned to the caller; migrating
// un-backed-up data is never acceptable.
func Create(log zerolog.Logger, paths *domain.Paths) (string, error) {
	timestamp := strings.NewReplacer(":", "-", ".", "-").
		Replace(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	dir := filepath.Join(paths.BackupRoot, "migration-"+timestamp)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory %s: %w", dir, err)
	}

	manifest := Manifest{
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		DataDir:   paths.DataDir,
	}

	for _, src := range paths.LegacyDocuments() {
		body, err := os.ReadFile(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("failed to read %s: %w", src, err)
		}

		name := filepath.Base(src)
		dst := filepath.Join(dir, name)
		if err := os.WriteFile(dst, body, 0644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", dst, err)
		}

		manifest.Files = append(manifest.Files, ManifestFile{Name: name, Size: int64(len(body))})
		log.Debug().Str("file", name).Int("bytes", len(body)).Msg("backed up legacy document")
	}

	body, err := yaml.Marshal(&manifest)
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestName), body, 0644); err != nil {
		return "", fmt.Errorf("failed to write backup manifest: %w", err)
	}

	log.Info().Str("path", dir).Int("files", len(manifest.Files)).Msg("legacy documents backed up")
	return dir, nil
}
