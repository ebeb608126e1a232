package domain

// Legacy JSON document shapes. Key names are owned by the legacy
// application and mapped here verbatim; anything optional may be absent.

// LegacySource is one entry of the video-sources document.
type LegacySource struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	URL        string `json:"url,omitempty"`
	Path       string `json:"path,omitempty"`
	ChannelID  string `json:"channelId,omitempty"`
	SortOrder  string `json:"sortOrder,omitempty"`
	Position   *int   `json:"position,omitempty"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	VideoCount int    `json:"videoCount,omitempty"`
	MaxDepth   *int   `json:"maxDepth,omitempty"`
}

// LegacyWatchedVideo is one entry of the watched-videos document. The
// legacy app recorded video metadata only at watch time, so this document
// doubles as the only source of video rows.
type LegacyWatchedVideo struct {
	VideoID      string  `json:"videoId"`
	Source       string  `json:"source,omitempty"`
	Title        string  `json:"title,omitempty"`
	Thumbnail    string  `json:"thumbnail,omitempty"`
	Position     float64 `json:"position,omitempty"`
	TimeWatched  float64 `json:"timeWatched,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	Watched      bool    `json:"watched,omitempty"`
	FirstWatched string  `json:"firstWatched,omitempty"`
	LastWatched  string  `json:"lastWatched,omitempty"`
}

// LegacyFavorite is one entry of the favorites document.
type LegacyFavorite struct {
	VideoID   string `json:"videoId"`
	SourceID  string `json:"sourceId,omitempty"`
	DateAdded string `json:"dateAdded,omitempty"`
	Title     string `json:"title,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// LegacyTimeLimits is the time-limits document. Day keys are capitalized in
// the legacy format. Pointers distinguish absent fields from zero values.
type LegacyTimeLimits struct {
	Monday             *int   `json:"Monday,omitempty"`
	Tuesday            *int   `json:"Tuesday,omitempty"`
	Wednesday          *int   `json:"Wednesday,omitempty"`
	Thursday           *int   `json:"Thursday,omitempty"`
	Friday             *int   `json:"Friday,omitempty"`
	Saturday           *int   `json:"Saturday,omitempty"`
	Sunday             *int   `json:"Sunday,omitempty"`
	WarningThreshold   *int   `json:"warningThreshold,omitempty"`
	CountdownThreshold *int   `json:"countdownThreshold,omitempty"`
	AudioThreshold     *int   `json:"audioThreshold,omitempty"`
	TimeUpMessage      string `json:"timeUpMessage,omitempty"`
	UseCustomBeeps     *bool  `json:"useCustomBeeps,omitempty"`
	CustomBeepSound    string `json:"customBeepSound,omitempty"`
}

// LegacyUsageExtra is one entry of the time-extras document in its list
// form. The older map form (date -> minutes) is normalized to this shape by
// the loader.
type LegacyUsageExtra struct {
	Date    string `json:"date"`
	Minutes int    `json:"minutes"`
	Reason  string `json:"reason,omitempty"`
	AddedBy string `json:"addedBy,omitempty"`
}
