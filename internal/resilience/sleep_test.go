package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerSleeper_Elapses(t *testing.T) {
	start := time.Now()
	err := TimerSleeper{}.Sleep(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestTimerSleeper_ZeroDuration(t *testing.T) {
	assert.NoError(t, TimerSleeper{}.Sleep(context.Background(), 0))
}

func TestTimerSleeper_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := TimerSleeper{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestTimerSleeper_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, TimerSleeper{}.Sleep(ctx, 0), context.Canceled)
}

func TestSleeperFunc(t *testing.T) {
	var got time.Duration
	s := SleeperFunc(func(_ context.Context, d time.Duration) error {
		got = d
		return nil
	})

	require.NoError(t, s.Sleep(context.Background(), 30*time.Minute))
	assert.Equal(t, 30*time.Minute, got)
}
