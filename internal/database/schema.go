package database

// Schema DDL. Every statement is individually idempotent (IF NOT EXISTS)
// so initialization stays safe even when the schema_version check is
// bypassed. Phases are cumulative: phase2 runs the phase1 DDL first.

const phase1Schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL,
	phase TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sources (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL CHECK (kind IN ('local','youtube_channel','youtube_playlist','dlna','favorites')),
	title TEXT NOT NULL DEFAULT '',
	url TEXT,
	path TEXT,
	channel_id TEXT,
	sort_order TEXT,
	position INTEGER,
	thumbnail TEXT,
	video_count INTEGER NOT NULL DEFAULT 0,
	max_depth INTEGER,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	CHECK (
		(kind = 'local' AND path IS NOT NULL AND url IS NULL)
		OR (kind IN ('youtube_channel','youtube_playlist') AND url IS NOT NULL AND path IS NULL)
		OR kind IN ('dlna','favorites')
	)
);

CREATE TABLE IF NOT EXISTS videos (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL DEFAULT 'unknown' REFERENCES sources(id) ON DELETE CASCADE,
	title TEXT NOT NULL DEFAULT '',
	published_at TEXT,
	thumbnail TEXT,
	duration REAL NOT NULL DEFAULT 0,
	url TEXT,
	is_available INTEGER NOT NULL DEFAULT 1,
	description TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_videos_source ON videos(source_id);

CREATE VIRTUAL TABLE IF NOT EXISTS videos_search USING fts5(
	video_id UNINDEXED,
	title,
	description
);

CREATE TRIGGER IF NOT EXISTS videos_search_insert AFTER INSERT ON videos BEGIN
	INSERT INTO videos_search(video_id, title, description) VALUES (new.id, new.title, new.description);
END;

CREATE TRIGGER IF NOT EXISTS videos_search_update AFTER UPDATE ON videos BEGIN
	DELETE FROM videos_search WHERE video_id = old.id;
	INSERT INTO videos_search(video_id, title, description) VALUES (new.id, new.title, new.description);
END;

CREATE TRIGGER IF NOT EXISTS videos_search_delete AFTER DELETE ON videos BEGIN
	DELETE FROM videos_search WHERE video_id = old.id;
END;

CREATE TABLE IF NOT EXISTS view_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	video_id TEXT NOT NULL UNIQUE REFERENCES videos(id) ON DELETE CASCADE,
	source_id TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	position REAL NOT NULL DEFAULT 0,
	time_watched REAL NOT NULL DEFAULT 0,
	duration REAL NOT NULL DEFAULT 0,
	watched INTEGER NOT NULL DEFAULT 0,
	first_watched TEXT NOT NULL,
	last_watched TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_view_records_source ON view_records(source_id);
CREATE INDEX IF NOT EXISTS idx_view_records_last_watched ON view_records(last_watched);

CREATE TABLE IF NOT EXISTS favorites (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	video_id TEXT NOT NULL UNIQUE REFERENCES videos(id) ON DELETE CASCADE,
	source_id TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	date_added TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_favorites_source ON favorites(source_id);

CREATE TABLE IF NOT EXISTS youtube_api_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	video_id TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	page_range TEXT NOT NULL,
	fetched_at TEXT NOT NULL,
	UNIQUE (source_id, video_id, page_range)
);

CREATE INDEX IF NOT EXISTS idx_youtube_results_source ON youtube_api_results(source_id);

CREATE TABLE IF NOT EXISTS downloads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	video_id TEXT NOT NULL UNIQUE,
	source_id TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	progress REAL NOT NULL DEFAULT 0,
	file_path TEXT,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE TABLE IF NOT EXISTS downloaded_videos (
	video_id TEXT PRIMARY KEY,
	source_id TEXT,
	title TEXT NOT NULL DEFAULT '',
	file_path TEXT NOT NULL,
	duration REAL NOT NULL DEFAULT 0,
	downloaded_at TEXT NOT NULL
);
`

const phase2Schema = `
CREATE TABLE IF NOT EXISTS usage_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL UNIQUE,
	seconds_used REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS time_limits (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	monday INTEGER NOT NULL DEFAULT 0,
	tuesday INTEGER NOT NULL DEFAULT 0,
	wednesday INTEGER NOT NULL DEFAULT 0,
	thursday INTEGER NOT NULL DEFAULT 0,
	friday INTEGER NOT NULL DEFAULT 0,
	saturday INTEGER NOT NULL DEFAULT 0,
	sunday INTEGER NOT NULL DEFAULT 0,
	warning_threshold INTEGER NOT NULL DEFAULT 3,
	countdown_threshold INTEGER NOT NULL DEFAULT 60,
	audio_threshold INTEGER NOT NULL DEFAULT 10,
	time_up_message TEXT NOT NULL DEFAULT 'Time''s up for today',
	use_custom_beeps INTEGER NOT NULL DEFAULT 0,
	custom_beep_sound TEXT,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE TABLE IF NOT EXISTS usage_extras (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	minutes_added INTEGER NOT NULL,
	reason TEXT,
	added_by TEXT,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_usage_extras_date ON usage_extras(date);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('string','number','boolean','object')),
	description TEXT,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
`

// seedSources inserts the placeholder source that legacy records without a
// source reference point at. Seeded by schema initialization, never by the
// migration engine; counts exclude it.
const seedSources = `
INSERT INTO sources (id, kind, title)
VALUES ('unknown', 'favorites', 'Unknown source')
ON CONFLICT (id) DO NOTHING;
`

// phase1Tables / phase2Tables enumerate the tables Validate expects per
// phase. videos_search shadow tables are engine-internal and not listed.
var phase1Tables = []string{
	"schema_version",
	"sources",
	"videos",
	"videos_search",
	"view_records",
	"favorites",
	"youtube_api_results",
	"downloads",
	"downloaded_videos",
}

var phase2Tables = []string{
	"usage_logs",
	"time_limits",
	"usage_extras",
	"settings",
}

var phase1Indexes = []string{
	"idx_videos_source",
	"idx_view_records_source",
	"idx_view_records_last_watched",
	"idx_favorites_source",
	"idx_youtube_results_source",
}

var phase2Indexes = []string{
	"idx_usage_extras_date",
}
