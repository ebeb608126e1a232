package repository

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"github.com/safeview/safeviewdb/internal/domain"
)

// LegacyStore reads the flat JSON documents of the legacy application. A
// missing file yields the type-appropriate empty value and a malformed file
// is logged and treated the same way; nothing propagates to the caller.
// Validation and defaulting of individual fields happen in the migration
// engine, not here.
type LegacyStore struct {
	log   zerolog.Logger
	paths *domain.Paths
}

// NewLegacyStore creates a loader over the legacy documents in paths.
func NewLegacyStore(log zerolog.Logger, paths *domain.Paths) *LegacyStore {
	return &LegacyStore{
		log:   log.With().Str("module", "legacy").Logger(),
		paths: paths,
	}
}

// Sources reads the video-sources document.
func (s *LegacyStore) Sources() []domain.LegacySource {
	sources := []domain.LegacySource{}
	s.readJSON(s.paths.Sources, &sources)
	return sources
}

// WatchedVideos reads the watched-videos document.
func (s *LegacyStore) WatchedVideos() []domain.LegacyWatchedVideo {
	watched := []domain.LegacyWatchedVideo{}
	s.readJSON(s.paths.WatchedVideos, &watched)
	return watched
}

// Favorites reads the favorites document. Both formats the legacy app ever
// wrote are accepted: a plain list, or an object wrapping the list under
// "videos".
func (s *LegacyStore) Favorites() []domain.LegacyFavorite {
	body, ok := s.readRaw(s.paths.Favorites)
	if !ok {
		return []domain.LegacyFavorite{}
	}

	favorites := []domain.LegacyFavorite{}
	if err := json.Unmarshal(body, &favorites); err == nil {
		return favorites
	}

	wrapped := struct {
		Videos []domain.LegacyFavorite `json:"videos"`
	}{}
	if err := json.Unmarshal(body, &wrapped); err != nil || wrapped.Videos == nil {
		s.log.Warn().Str("path", s.paths.Favorites).Msg("failed to parse legacy favorites document")
		return []domain.LegacyFavorite{}
	}
	return wrapped.Videos
}

// UsageLog reads the usage-log document, a date -> seconds map.
func (s *LegacyStore) UsageLog() map[string]float64 {
	usage := map[string]float64{}
	s.readJSON(s.paths.UsageLog, &usage)
	return usage
}

// TimeLimits reads the time-limits document. Nil means absent or unusable.
func (s *LegacyStore) TimeLimits() *domain.LegacyTimeLimits {
	limits := &domain.LegacyTimeLimits{}
	if !s.readJSON(s.paths.TimeLimits, limits) {
		return nil
	}
	return limits
}

// TimeExtras reads the time-extras document. The newer list form is tried
// first; the older date -> minutes map is normalized into the same shape,
// ordered by date.
func (s *LegacyStore) TimeExtras() []domain.LegacyUsageExtra {
	body, ok := s.readRaw(s.paths.TimeExtra)
	if !ok {
		return []domain.LegacyUsageExtra{}
	}

	extras := []domain.LegacyUsageExtra{}
	if err := json.Unmarshal(body, &extras); err == nil {
		return extras
	}

	byDate := map[string]int{}
	if err := json.Unmarshal(body, &byDate); err != nil {
		s.log.Warn().Str("path", s.paths.TimeExtra).Msg("failed to parse legacy time-extras document")
		return []domain.LegacyUsageExtra{}
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		extras = append(extras, domain.LegacyUsageExtra{Date: date, Minutes: byDate[date]})
	}
	return extras
}

// MainSettings reads the main-settings document.
func (s *LegacyStore) MainSettings() map[string]any {
	return s.readObject(s.paths.MainSettings)
}

// PaginationSettings reads the pagination-settings document.
func (s *LegacyStore) PaginationSettings() map[string]any {
	return s.readObject(s.paths.Pagination)
}

// PlayerSettings reads the player-settings document.
func (s *LegacyStore) PlayerSettings() map[string]any {
	return s.readObject(s.paths.PlayerSettings)
}

func (s *LegacyStore) readObject(path string) map[string]any {
	object := map[string]any{}
	s.readJSON(path, &object)
	return object
}

// readJSON reads path into v. Returns false when the file is absent or does
// not parse into v; the caller's zero value stands in either case.
func (s *LegacyStore) readJSON(path string, v any) bool {
	body, ok := s.readRaw(path)
	if !ok {
		return false
	}

	if err := json.Unmarshal(body, v); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("failed to parse legacy document")
		return false
	}

	return true
}

func (s *LegacyStore) readRaw(path string) ([]byte, bool) {
	body, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", path).Msg("failed to read legacy document")
		}
		return nil, false
	}
	return body, true
}
