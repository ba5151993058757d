// Package retry retries operations with exponential backoff. It is used to
// wait for backing services that start after the process.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/packing-audit/internal/logging"
)

// Config configures retry behavior
type Config struct {
	MaxAttempts  int           // Maximum number of attempts, including the first
	InitialDelay time.Duration // Delay before the second attempt
	MaxDelay     time.Duration // Upper bound of any delay
	Multiplier   float64       // Growth factor between delays
}

// DefaultConfig returns the backoff used when connecting to dependencies.
// Pattern: 1s, 2s, 4s, 8s, max 15s
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  6,
		InitialDelay: time.Second,
		MaxDelay:     15 * time.Second,
		Multiplier:   2.0,
	}
}

// Result describes a finished retry run
type Result struct {
	Attempts      int
	TotalDuration time.Duration
	LastError     error
}

// Func is an operation that can be retried
type Func func(ctx context.Context, attempt int) error

// Do runs fn until it succeeds, attempts run out or ctx is done. The
// returned error wraps the last failure.
func Do(ctx context.Context, config *Config, operation string, fn Func) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	logger := logging.FromContext(ctx).WithField("operation", operation)
	start := time.Now()
	result := &Result{}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		err := fn(ctx, attempt)
		if err == nil {
			result.TotalDuration = time.Since(start)
			if attempt > 1 {
				logger.WithFields(map[string]interface{}{
					"attempts": attempt,
					"duration": result.TotalDuration.String(),
				}).Info("Operation succeeded after retry")
			}
			return result, nil
		}
		result.LastError = err

		if attempt == maxAttempts {
			break
		}

		delay := backoff(config, attempt)
		logger.WithError(err).WithFields(map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": maxAttempts,
			"delay":        delay.String(),
		}).Warn("Operation failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			result.TotalDuration = time.Since(start)
			return result, fmt.Errorf("%s cancelled after %d attempts: %w", operation, attempt, ctx.Err())
		}
	}

	result.TotalDuration = time.Since(start)
	return result, fmt.Errorf("%s failed after %d attempts: %w", operation, result.Attempts, result.LastError)
}

// backoff is InitialDelay * Multiplier^(attempt-1), capped at MaxDelay
func backoff(config *Config, attempt int) time.Duration {
	multiplier := config.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(config.InitialDelay) * math.Pow(multiplier, float64(attempt-1))
	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
