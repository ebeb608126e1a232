package migration

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/safeview/safeviewdb/internal/domain"
)

// migrateSources maps each legacy source entry onto one row. Unknown or
// absent optional fields become NULL.
func (e *Engine) migrateSources(ctx context.Context) (int, error) {
	legacy := e.legacy.Sources()

	sources := make([]domain.Source, 0, len(legacy))
	for _, l := range legacy {
		sources = append(sources, domain.Source{
			ID:         l.ID,
			Kind:       sourceKindFromLegacy(l),
			Title:      l.Title,
			URL:        optional(l.URL),
			Path:       optional(l.Path),
			ChannelID:  optional(l.ChannelID),
			SortOrder:  optional(l.SortOrder),
			Position:   l.Position,
			Thumbnail:  optional(l.Thumbnail),
			VideoCount: l.VideoCount,
			MaxDepth:   l.MaxDepth,
		})
	}

	return e.sources.UpsertAll(ctx, sources)
}

// migrateVideos derives video rows from the watched-videos document; the
// legacy app recorded video metadata only at watch time. Duplicate ids are
// collapsed, first occurrence wins. Ids carrying the local prefix get their
// id as URL; everything else stays NULL until catalog sync fills it in.
func (e *Engine) migrateVideos(ctx context.Context) (int, error) {
	watched := e.legacy.WatchedVideos()

	seen := map[string]bool{}
	videos := make([]domain.Video, 0, len(watched))
	for _, w := range watched {
		if w.VideoID == "" || seen[w.VideoID] {
			continue
		}
		seen[w.VideoID] = true

		var url *string
		if strings.HasPrefix(w.VideoID, domain.LocalVideoPrefix) {
			url = optional(w.VideoID)
		}

		videos = append(videos, domain.Video{
			ID:          w.VideoID,
			SourceID:    sourceOrUnknown(w.Source),
			Title:       w.Title,
			Thumbnail:   w.Thumbnail,
			Duration:    w.Duration,
			URL:         url,
			IsAvailable: true,
		})
	}

	return e.videos.UpsertAll(ctx, videos)
}

// migrateViewRecords writes one row per watched-video entry keyed by video
// id. Missing timestamps default to now, missing numerics stay 0.
func (e *Engine) migrateViewRecords(ctx context.Context) (int, error) {
	watched := e.legacy.WatchedVideos()
	now := time.Now().UTC().Format(time.RFC3339)

	records := make([]domain.ViewRecord, 0, len(watched))
	for _, w := range watched {
		if w.VideoID == "" {
			continue
		}
		records = append(records, domain.ViewRecord{
			VideoID:      w.VideoID,
			SourceID:     sourceOrUnknown(w.Source),
			Position:     w.Position,
			TimeWatched:  w.TimeWatched,
			Duration:     w.Duration,
			Watched:      w.Watched,
			FirstWatched: defaultString(w.FirstWatched, now),
			LastWatched:  defaultString(w.LastWatched, now),
		})
	}

	return e.history.UpsertViewRecords(ctx, records)
}

// migrateFavorites writes one row per legacy favorite entry.
func (e *Engine) migrateFavorites(ctx context.Context) (int, error) {
	legacy := e.legacy.Favorites()
	now := time.Now().UTC().Format(time.RFC3339)

	favorites := make([]domain.Favorite, 0, len(legacy))
	for _, l := range legacy {
		if l.VideoID == "" {
			continue
		}
		favorites = append(favorites, domain.Favorite{
			VideoID:   l.VideoID,
			SourceID:  sourceOrUnknown(l.SourceID),
			DateAdded: defaultString(l.DateAdded, now),
		})
	}

	return e.history.UpsertFavorites(ctx, favorites)
}

// migrateYouTubeCache is a deliberate no-op. The legacy app never persisted
// API result pages, so there is nothing to carry over; the unit is reserved
// for a future cache-migration capability and always reports zero records.
func (e *Engine) migrateYouTubeCache(ctx context.Context) (int, error) {
	return 0, nil
}

// migrateUsageLogs maps the date -> seconds usage document onto rows, one
// per calendar date, in date order.
func (e *Engine) migrateUsageLogs(ctx context.Context) (int, error) {
	usage := e.legacy.UsageLog()

	dates := make([]string, 0, len(usage))
	for date := range usage {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	logs := make([]domain.UsageLog, 0, len(dates))
	for _, date := range dates {
		logs = append(logs, domain.UsageLog{Date: date, SecondsUsed: usage[date]})
	}

	return e.usage.UpsertUsageLogs(ctx, logs)
}

// migrateTimeLimits upserts the singleton policy row. An absent document
// contributes zero records without error.
func (e *Engine) migrateTimeLimits(ctx context.Context) (int, error) {
	legacy := e.legacy.TimeLimits()
	if legacy == nil {
		return 0, nil
	}

	limits := domain.TimeLimits{
		Monday:             intOr(legacy.Monday, 0),
		Tuesday:            intOr(legacy.Tuesday, 0),
		Wednesday:          intOr(legacy.Wednesday, 0),
		Thursday:           intOr(legacy.Thursday, 0),
		Friday:             intOr(legacy.Friday, 0),
		Saturday:           intOr(legacy.Saturday, 0),
		Sunday:             intOr(legacy.Sunday, 0),
		WarningThreshold:   intOr(legacy.WarningThreshold, 3),
		CountdownThreshold: intOr(legacy.CountdownThreshold, 60),
		AudioThreshold:     intOr(legacy.AudioThreshold, 10),
		TimeUpMessage:      defaultString(legacy.TimeUpMessage, "Time's up for today"),
		UseCustomBeeps:     boolOr(legacy.UseCustomBeeps, false),
		CustomBeepSound:    legacy.CustomBeepSound,
	}

	if err := e.usage.UpsertTimeLimits(ctx, limits); err != nil {
		return 0, err
	}
	return 1, nil
}

// migrateUsageExtras rewrites the full time-grant audit trail. Every legacy
// entry stays its own row; the trail is history, not a running total.
func (e *Engine) migrateUsageExtras(ctx context.Context) (int, error) {
	legacy := e.legacy.TimeExtras()

	extras := make([]domain.UsageExtra, 0, len(legacy))
	for _, l := range legacy {
		if l.Date == "" {
			continue
		}
		extras = append(extras, domain.UsageExtra{
			Date:         l.Date,
			MinutesAdded: l.Minutes,
			Reason:       l.Reason,
			AddedBy:      l.AddedBy,
		})
	}

	return e.usage.ReplaceUsageExtras(ctx, extras)
}

// migrateSettings fans out across the three legacy settings documents,
// flattening each key into a namespaced row with an inferred type tag and a
// JSON-encoded value. Absent documents contribute zero rows.
func (e *Engine) migrateSettings(ctx context.Context) (int, error) {
	var settings []domain.Setting

	for _, doc := range []struct {
		namespace string
		values    map[string]any
	}{
		{"main", e.legacy.MainSettings()},
		{"pagination", e.legacy.PaginationSettings()},
		{"player", e.legacy.PlayerSettings()},
	} {
		flattened, err := flattenSettings(doc.namespace, doc.values)
		if err != nil {
			return 0, err
		}
		settings = append(settings, flattened...)
	}

	return e.settings.ReplaceAll(ctx, settings)
}

func flattenSettings(namespace string, values map[string]any) ([]domain.Setting, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	settings := make([]domain.Setting, 0, len(keys))
	for _, key := range keys {
		value := values[key]
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode setting %s.%s", namespace, key)
		}
		settings = append(settings, domain.Setting{
			Key:   namespace + "." + key,
			Value: string(encoded),
			Type:  settingTypeOf(value),
		})
	}

	return settings, nil
}

// settingTypeOf infers the type tag from the decoded JSON value.
func settingTypeOf(value any) domain.SettingType {
	switch value.(type) {
	case bool:
		return domain.SettingTypeBoolean
	case float64, json.Number:
		return domain.SettingTypeNumber
	case string:
		return domain.SettingTypeString
	default:
		return domain.SettingTypeObject
	}
}

func sourceKindFromLegacy(l domain.LegacySource) domain.SourceKind {
	switch l.Type {
	case "local", "local_folder":
		return domain.SourceKindLocal
	case "youtube_channel", "channel":
		return domain.SourceKindYouTubeChannel
	case "youtube_playlist", "playlist":
		return domain.SourceKindYouTubePlaylist
	case "dlna":
		return domain.SourceKindDLNA
	case "favorites":
		return domain.SourceKindFavorites
	}

	// Legacy entries with no usable type are classified by which locator
	// they carry.
	if l.Path != "" {
		return domain.SourceKindLocal
	}
	if strings.Contains(l.URL, "playlist") {
		return domain.SourceKindYouTubePlaylist
	}
	return domain.SourceKindYouTubeChannel
}

func sourceOrUnknown(sourceID string) string {
	if sourceID == "" {
		return domain.UnknownSourceID
	}
	return sourceID
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
