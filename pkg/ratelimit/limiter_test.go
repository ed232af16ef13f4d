package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_BurstEqualsRate(t *testing.T) {
	l := New("test", 3)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(), "request %d within burst should be allowed", i+1)
	}
	assert.False(t, l.Allow(), "request beyond burst should be refused")
	assert.Equal(t, "test", l.Name())
}

func TestNew_NonPositiveRateDisablesLimiting(t *testing.T) {
	l := New("unlimited", 0)

	for i := 0; i < 1000; i++ {
		require.True(t, l.Allow())
	}
	require.NoError(t, l.Wait(context.Background()))
}

func TestWait_BlocksUntilTokenAvailable(t *testing.T) {
	l := NewWithBurst("slow", 20, 1)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestWait_ContextCancelled(t *testing.T) {
	l := NewWithBurst("blocked", 1, 1)
	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait for blocked")
}

func TestNilLimiter(t *testing.T) {
	var l *Limiter

	assert.True(t, l.Allow())
	assert.NoError(t, l.Wait(context.Background()))
	assert.Empty(t, l.Name())
}

func TestWait_WrapsContextError(t *testing.T) {
	l := NewWithBurst("wrapped", 1, 1)
	l.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
