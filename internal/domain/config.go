package domain

// Config holds application configuration.
type Config struct {
	// DataDir is where the legacy JSON documents live and where the
	// database and backups are created.
	DataDir string

	// LogLevel is a zerolog level name (trace, debug, info, warn, error).
	LogLevel string

	// DiscordWebhookURL, when set, receives migration reports.
	DiscordWebhookURL string
}
