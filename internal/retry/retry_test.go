package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) *Config {
	return &Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastConfig(5), "connect", func(_ context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, result.Attempts)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	cause := errors.New("connection refused")
	result, err := Do(context.Background(), fastConfig(3), "connect", func(context.Context, int) error {
		return cause
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connect failed after 3 attempts")
	assert.Equal(t, 3, result.Attempts)
}

func TestDo_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := &Config{MaxAttempts: 10, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}

	calls := 0
	_, err := Do(ctx, config, "connect", func(context.Context, int) error {
		calls++
		cancel()
		return errors.New("down")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoff(t *testing.T) {
	config := &Config{InitialDelay: time.Second, MaxDelay: 15 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Second, backoff(config, 1))
	assert.Equal(t, 2*time.Second, backoff(config, 2))
	assert.Equal(t, 8*time.Second, backoff(config, 4))
	assert.Equal(t, 15*time.Second, backoff(config, 6))
}
