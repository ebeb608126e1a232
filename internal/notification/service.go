package notification

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/safeview/safeviewdb/internal/domain"
)

// Service is a composite notification service that can send migration
// reports through multiple channels
type Service struct {
	discord *DiscordService
}

// NewService creates a new notification service
func NewService(log zerolog.Logger, webhookURL string) domain.NotificationService {
	var discord *DiscordService
	if webhookURL != "" {
		discord = NewDiscordService(log, webhookURL)
	}

	return &Service{
		discord: discord,
	}
}

// SendSummary sends a phase summary through all configured channels
func (s *Service) SendSummary(ctx context.Context, summary *domain.PhaseSummary) error {
	if s.discord != nil {
		if err := s.discord.SendSummary(ctx, summary); err != nil {
			return err
		}
	}
	return nil
}

// SendError sends an error notification through all configured channels
func (s *Service) SendError(ctx context.Context, phase domain.Phase, err error) error {
	if s.discord != nil {
		if err := s.discord.SendError(ctx, phase, err); err != nil {
			return err
		}
	}
	return nil
}
