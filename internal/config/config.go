package config

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/safeview/safeviewdb/internal/domain"
)

// Load loads configuration from multiple sources:
// 1. Config file (config.yaml, optional)
// 2. Environment variables (SAFEVIEWDB_*)
// 3. Command-line flags bound to viper by the cmd layer
func Load() (*domain.Config, error) {
	cfg := &domain.Config{
		DataDir:           viper.GetString("data_dir"),
		LogLevel:          viper.GetString("log_level"),
		DiscordWebhookURL: viper.GetString("discord_webhook_url"),
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid log_level: %s", cfg.LogLevel)
	}

	return cfg, nil
}
