package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastConfig(attempts int) Config {
	return Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, Multiplier: 2}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	calls := 0
	res := Do(context.Background(), fastConfig(5), func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("timeout")
		}
		return nil
	})

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, calls)
	assert.NoError(t, res.Err())
}

func TestDoGivesUp(t *testing.T) {
	boom := errors.New("boom")
	res := Do(context.Background(), fastConfig(3), func(ctx context.Context, attempt int) error {
		return boom
	})

	assert.False(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.ErrorIs(t, res.Err(), boom)
	assert.Contains(t, res.Err().Error(), "3 attempts")
}

func TestDoStopsOnPermanent(t *testing.T) {
	invalid := errors.New("invalid address")
	res := Do(context.Background(), fastConfig(5), func(ctx context.Context, attempt int) error {
		return Permanent(invalid)
	})

	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, invalid, res.LastError)
	assert.Nil(t, Permanent(nil))
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	res := Do(ctx, cfg, func(ctx context.Context, attempt int) error {
		return errors.New("unreachable")
	})

	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Attempts)
	assert.ErrorIs(t, res.LastError, context.Canceled)
}

func TestBackoffCapped(t *testing.T) {
	cfg := Config{MaxAttempts: 10, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, Backoff(cfg, 1))
	assert.Equal(t, 200*time.Millisecond, Backoff(cfg, 2))
	assert.Equal(t, 800*time.Millisecond, Backoff(cfg, 4))
	assert.Equal(t, time.Second, Backoff(cfg, 5))
	assert.Equal(t, time.Second, Backoff(cfg, 9))
}
