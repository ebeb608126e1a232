package domain

import "context"

// NotificationService delivers migration outcomes to an external channel.
type NotificationService interface {
	// SendSummary reports a finished phase, successful or not.
	SendSummary(ctx context.Context, summary *PhaseSummary) error

	// SendError reports a phase that could not run at all.
	SendError(ctx context.Context, phase Phase, err error) error
}
