package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/safeview/safeviewdb/internal/domain"
)

// DiscordService implements domain.NotificationService for Discord webhooks
type DiscordService struct {
	log        zerolog.Logger
	webhookURL string
	httpClient *http.Client
}

// NewDiscordService creates a new Discord notification service
func NewDiscordService(log zerolog.Logger, webhookURL string) *DiscordService {
	return &DiscordService{
		log:        log.With().Str("module", "notification").Str("type", "discord").Logger(),
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendSummary sends a per-unit migration report for a finished phase
func (s *DiscordService) SendSummary(ctx context.Context, summary *domain.PhaseSummary) error {
	if s.webhookURL == "" {
		return nil // No webhook configured, skip silently
	}

	color := 0x00ff00 // Green
	title := fmt.Sprintf("SafeView migration %s completed", summary.Phase)
	if summary.Status == domain.StatusFailed {
		color = 0xff0000 // Red
		title = fmt.Sprintf("SafeView migration %s finished with errors", summary.Phase)
	}

	fields := []discordField{
		{
			Name:   "Records migrated",
			Value:  fmt.Sprintf("%d", summary.TotalRecordsProcessed),
			Inline: true,
		},
		{
			Name:   "Failed units",
			Value:  fmt.Sprintf("%d", summary.TotalErrors),
			Inline: true,
		},
	}
	for _, u := range summary.UnitStatuses {
		value := fmt.Sprintf("%s, %d records", u.Status, u.RecordsProcessed)
		if u.Error != "" {
			value = fmt.Sprintf("%s: %s", u.Status, u.Error)
		}
		fields = append(fields, discordField{Name: u.Name, Value: value, Inline: false})
	}

	embed := discordEmbed{
		Title:     title,
		Color:     color,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields:    fields,
	}

	payload := discordWebhook{
		Embeds: []discordEmbed{embed},
	}

	return s.sendWebhook(ctx, payload)
}

// SendError sends a notification for a phase that could not run
func (s *DiscordService) SendError(ctx context.Context, phase domain.Phase, err error) error {
	if s.webhookURL == "" {
		return nil // No webhook configured, skip silently
	}

	embed := discordEmbed{
		Title:       fmt.Sprintf("SafeView migration %s failed", phase),
		Description: fmt.Sprintf("Migration could not run:\n```%s```", err.Error()),
		Color:       0xff0000, // Red
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	payload := discordWebhook{
		Embeds: []discordEmbed{embed},
	}

	return s.sendWebhook(ctx, payload)
}

// sendWebhook sends a webhook payload to Discord
func (s *DiscordService) sendWebhook(ctx context.Context, payload discordWebhook) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return errors.Wrap(err, "failed to create webhook request")
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send webhook request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	s.log.Debug().Msg("Discord notification sent successfully")
	return nil
}

// discordWebhook represents a Discord webhook payload
type discordWebhook struct {
	Embeds []discordEmbed `json:"embeds"`
}

// discordEmbed represents a Discord embed
type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
}

// discordField represents a Discord embed field
type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}
