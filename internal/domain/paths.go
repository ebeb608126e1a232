package domain

import "path/filepath"

// LegacyFile names one of the flat JSON documents the legacy application
// kept in its data directory.
type LegacyFile string

const (
	SourcesFile        LegacyFile = "videoSources.json"
	WatchedVideosFile  LegacyFile = "watchedVideos.json"
	FavoritesFile      LegacyFile = "favorites.json"
	UsageLogFile       LegacyFile = "usageLogs.json"
	TimeLimitsFile     LegacyFile = "timeLimits.json"
	TimeExtraFile      LegacyFile = "timeExtra.json"
	MainSettingsFile   LegacyFile = "settings.json"
	PaginationFile     LegacyFile = "pagination.json"
	PlayerSettingsFile LegacyFile = "videoPlayer.json"
)

// Paths holds every file path the migration reads or writes inside the
// application data directory.
type Paths struct {
	DataDir        string
	BackupRoot     string
	Sources        string
	WatchedVideos  string
	Favorites      string
	UsageLog       string
	TimeLimits     string
	TimeExtra      string
	MainSettings   string
	Pagination     string
	PlayerSettings string
}

// NewPaths creates a Paths instance rooted at dataDir.
func NewPaths(dataDir string) *Paths {
	return &Paths{
		DataDir:        dataDir,
		BackupRoot:     filepath.Join(dataDir, "backup"),
		Sources:        makeLegacyPath(dataDir, SourcesFile),
		WatchedVideos:  makeLegacyPath(dataDir, WatchedVideosFile),
		Favorites:      makeLegacyPath(dataDir, FavoritesFile),
		UsageLog:       makeLegacyPath(dataDir, UsageLogFile),
		TimeLimits:     makeLegacyPath(dataDir, TimeLimitsFile),
		TimeExtra:      makeLegacyPath(dataDir, TimeExtraFile),
		MainSettings:   makeLegacyPath(dataDir, MainSettingsFile),
		Pagination:     makeLegacyPath(dataDir, PaginationFile),
		PlayerSettings: makeLegacyPath(dataDir, PlayerSettingsFile),
	}
}

// LegacyDocuments returns the paths of all legacy documents in a stable
// order, whether or not the files exist.
func (p *Paths) LegacyDocuments() []string {
	return []string{
		p.Sources,
		p.WatchedVideos,
		p.Favorites,
		p.UsageLog,
		p.TimeLimits,
		p.TimeExtra,
		p.MainSettings,
		p.Pagination,
		p.PlayerSettings,
	}
}

func makeLegacyPath(dataDir string, f LegacyFile) string {
	return filepath.Join(dataDir, string(f))
}
