package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(3, 200*time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "token %d should be available", i+1)
	}
	assert.False(t, tb.Allow())

	time.Sleep(250 * time.Millisecond)
	assert.True(t, tb.Allow())

	tb.tokens = 0
	tb.Reset()
	assert.Equal(t, tb.capacity, tb.tokens)
}

func TestTokenBucketWaitPaces(t *testing.T) {
	tb := NewTokenBucket(1, 50*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, tb.Wait(ctx))
	}

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}
	assert.True(t, l.Allow())
	assert.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Wait(ctx))
}
