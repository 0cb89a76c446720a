package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterDisabledAlwaysAllows(t *testing.T) {
	rl := NewRateLimiter(false, 1)
	defer rl.Close()

	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow("1.2.3.4"))
	}
}

func TestRateLimiterEnforcesLimitPerIP(t *testing.T) {
	rl := NewRateLimiter(true, 3)
	defer rl.Close()

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiterTracksIPsIndependently(t *testing.T) {
	rl := NewRateLimiter(true, 1)
	defer rl.Close()

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.2"))
}

func TestPruneBeforeDropsOnlyOlderEntries(t *testing.T) {
	rl := NewRateLimiter(true, 100)
	defer rl.Close()

	b := rl.bucketFor("10.0.0.1")
	now := b.lastTouched
	b.timestamps.PushBack(now.Add(-2 * slidingWindow))
	b.timestamps.PushBack(now)

	pruneBefore(b.timestamps, now.Add(-slidingWindow))
	assert.Equal(t, 1, b.timestamps.Len())
}
