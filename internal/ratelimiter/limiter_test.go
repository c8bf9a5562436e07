package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgespace/notify/internal/ratelimiter"
)

func TestLimiter_BurstThenBlocks(t *testing.T) {
	l := ratelimiter.New(2)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))

	// The bucket is empty; a short deadline must expire before a token arrives.
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(short))
}

func TestLimiter_CancelledContext(t *testing.T) {
	l := ratelimiter.New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Wait(ctx))
}

func TestLimiter_ClampsRate(t *testing.T) {
	l := ratelimiter.New(0)
	require.NoError(t, l.Wait(context.Background()))
}
