package domain

// SourceKind identifies where a source's videos come from.
type SourceKind string

const (
	SourceKindLocal           SourceKind = "local"
	SourceKindYouTubeChannel  SourceKind = "youtube_channel"
	SourceKindYouTubePlaylist SourceKind = "youtube_playlist"
	SourceKindDLNA            SourceKind = "dlna"
	SourceKindFavorites       SourceKind = "favorites"
)

// UnknownSourceID is the placeholder source assigned to legacy records that
// carry no source reference. The row itself is seeded at schema
// initialization so foreign keys hold.
const UnknownSourceID = "unknown"

// LocalVideoPrefix marks video ids that refer to files on disk. Such videos
// use their id as URL.
const LocalVideoPrefix = "local_"

// Source is a video origin: a local folder, a YouTube channel or playlist,
// a DLNA server, or the virtual favorites source. A local source has a path
// and no URL; a remote source has a URL and no path.
type Source struct {
	ID         string
	Kind       SourceKind
	Title      string
	URL        *string
	Path       *string
	ChannelID  *string
	SortOrder  *string
	Position   *int
	Thumbnail  *string
	VideoCount int
	MaxDepth   *int
	CreatedAt  string
	UpdatedAt  string
}

// SourcePatch is a typed partial update for a source. Only non-nil fields
// are written.
type SourcePatch struct {
	Title      *string
	SortOrder  *string
	Position   *int
	Thumbnail  *string
	VideoCount *int
	MaxDepth   *int
}

// Video is a piece of content belonging to exactly one source.
type Video struct {
	ID          string
	SourceID    string
	Title       string
	PublishedAt string
	Thumbnail   string
	Duration    float64
	URL         *string
	IsAvailable bool
	Description string
}

// ViewRecord is the point-in-time watch state of one video. One row per
// video ever watched, upserted on every watch. FirstWatched is set once and
// never overwritten.
type ViewRecord struct {
	VideoID      string
	SourceID     string
	Position     float64
	TimeWatched  float64
	Duration     float64
	Watched      bool
	FirstWatched string
	LastWatched  string
}

// Favorite marks a video as favorited. Existence of the row is the flag.
type Favorite struct {
	VideoID   string
	SourceID  string
	DateAdded string
}

// YouTubeAPIResult caches one entry of a paginated API result page so the
// page can be reconstructed without re-fetching.
type YouTubeAPIResult struct {
	SourceID  string
	VideoID   string
	Position  int
	PageRange string
	FetchedAt string
}

// UsageLog records seconds of watch time for one calendar date. Legacy data
// carries sub-second precision, hence the float.
type UsageLog struct {
	Date        string
	SecondsUsed float64
}

// TimeLimits is the singleton time-limit policy: per-weekday minute
// allowances plus warning thresholds and beep preferences.
type TimeLimits struct {
	Monday             int
	Tuesday            int
	Wednesday          int
	Thursday           int
	Friday             int
	Saturday           int
	Sunday             int
	WarningThreshold   int
	CountdownThreshold int
	AudioThreshold     int
	TimeUpMessage      string
	UseCustomBeeps     bool
	CustomBeepSound    string
}

// UsageExtra is one entry in the append-only audit trail of ad-hoc time
// grants. MinutesAdded may be negative for revocations.
type UsageExtra struct {
	Date         string
	MinutesAdded int
	Reason       string
	AddedBy      string
}

// SettingType drives deserialization of a setting value.
type SettingType string

const (
	SettingTypeString  SettingType = "string"
	SettingTypeNumber  SettingType = "number"
	SettingTypeBoolean SettingType = "boolean"
	SettingTypeObject  SettingType = "object"
)

// Setting is one namespaced key/value pair. Key is "<namespace>.<name>",
// Value is JSON-encoded so it round-trips losslessly.
type Setting struct {
	Key         string
	Value       string
	Type        SettingType
	Description *string
}
