package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaLimiter_LimitAndReset(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	rl := NewQuotaLimiter(map[string]int{"gemini": 2})
	rl.now = func() time.Time { return now }
	rl.resetTime = now.Add(24 * time.Hour)

	require.NoError(t, rl.Use("gemini"))
	require.NoError(t, rl.Use("gemini"))
	assert.False(t, rl.Allow("gemini"))
	assert.ErrorIs(t, rl.Use("gemini"), ErrQuotaExceeded)

	now = now.Add(25 * time.Hour)
	assert.True(t, rl.Allow("gemini"))
	assert.NoError(t, rl.Use("gemini"))
}

func TestQuotaLimiter_UnlimitedProviders(t *testing.T) {
	rl := NewQuotaLimiter(map[string]int{"google": 0})
	for i := 0; i < 100; i++ {
		require.NoError(t, rl.Use("google"))
		require.NoError(t, rl.Use("unknown"))
	}
	assert.True(t, rl.Allow("google"))

	stats := rl.GetStats()
	assert.Equal(t, 100, stats["google_used"])
	assert.Equal(t, 0, stats["google_limit"])
}
