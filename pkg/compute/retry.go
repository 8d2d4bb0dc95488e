package compute

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/plantpulse/plantpulse/pkg/oee"
)

// RetryConfig configures the optional retry-with-backoff transport
// helper. Only network-class failures are retried; API errors surface
// immediately.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration

	// JitterFraction randomizes each delay by ±fraction.
	JitterFraction float64
}

// DefaultRetryConfig returns a conservative retry policy.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		JitterFraction: 0.2,
	}
}

func withRetry(ctx context.Context, cfg *RetryConfig, logger zerolog.Logger, endpoint string, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	backoff := cfg.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !oee.IsRetryable(lastErr) || attempt == attempts {
			return lastErr
		}

		delay := jitter(backoff, cfg.JitterFraction)
		logger.Debug().
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(lastErr).
			Msg("Retrying compute request")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return lastErr
		}

		backoff *= 2
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
	return lastErr
}

func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	delta := float64(d) * fraction
	return time.Duration(float64(d) - delta + rand.Float64()*2*delta)
}
