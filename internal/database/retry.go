package database

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxAttempts   int           // Maximum number of attempts, including the first
	BaseDelay     time.Duration // Delay before the first retry
	MaxDelay      time.Duration // Cap on the backoff delay
	BackoffFactor float64       // Multiplier applied per attempt
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2,
	}
}

// RetryResult is the outcome of ExecuteWithRetry. Callers inspect Success
// instead of handling a returned error.
type RetryResult[T any] struct {
	Success   bool
	Result    T
	Err       error
	Attempts  int
	TotalTime time.Duration
}

// ExecuteWithRetry runs op, classifying failures and retrying the transient
// subset with bounded exponential backoff plus up to 10% jitter. It never
// returns an error; the result record carries the final classified failure.
func ExecuteWithRetry[T any](ctx context.Context, log zerolog.Logger, cfg RetryConfig, label string, op func(context.Context) (T, error)) RetryResult[T] {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2
	}

	start := time.Now()
	result := RetryResult[T]{}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result.Attempts = attempt

		value, err := op(ctx)
		if err == nil {
			result.Success = true
			result.Result = value
			result.TotalTime = time.Since(start)
			if attempt > 1 {
				log.Debug().Str("operation", label).Int("attempt", attempt).Msg("operation succeeded after retry")
			}
			return result
		}

		classified := Classify(err)
		result.Err = classified

		if !classified.Retryable() || attempt == cfg.MaxAttempts {
			log.Debug().
				Str("operation", label).
				Str("kind", string(classified.Kind)).
				Int("attempts", attempt).
				Msg("operation failed")
			break
		}

		delay := backoffDelay(cfg, attempt)
		log.Debug().
			Str("operation", label).
			Str("kind", string(classified.Kind)).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("transient error, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			result.Err = Classify(ctx.Err())
			result.TotalTime = time.Since(start)
			return result
		}
	}

	result.TotalTime = time.Since(start)
	return result
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(cfg.BackoffFactor, float64(attempt-1)))
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	// Up to 10% jitter so competing writers do not wake in lockstep.
	jitter := time.Duration(rand.Float64() * 0.1 * float64(delay))
	return delay + jitter
}
