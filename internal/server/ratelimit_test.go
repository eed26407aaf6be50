package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterMinuteLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 3})

	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Check("client-a", 0))
	}

	err := rl.Check("client-a", 0)
	require.Error(t, err)
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "minute", rle.Type)
	assert.Equal(t, 3, rle.Limit)

	// Independent counter per client
	require.NoError(t, rl.Check("client-b", 0))
}

func TestRateLimiterDailyRequestQuota(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxRequestsPerDay: 2})

	require.NoError(t, rl.Check("c", 0))
	require.NoError(t, rl.Check("c", 0))

	err := rl.Check("c", 0)
	var qee *QuotaExceededError
	require.ErrorAs(t, err, &qee)
	assert.Equal(t, "requests", qee.Type)
	assert.EqualValues(t, 2, qee.Used)
}

func TestRateLimiterDataQuota(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxDataPerDay: 1000})

	require.NoError(t, rl.Check("c", 600))

	err := rl.Check("c", 600)
	var qee *QuotaExceededError
	require.ErrorAs(t, err, &qee)
	assert.Equal(t, "data", qee.Type)
	assert.EqualValues(t, 600, qee.Used)

	// Under the remaining budget still passes
	require.NoError(t, rl.Check("c", 300))
}

func TestRateLimiterUnlimited(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{})
	for i := 0; i < 100; i++ {
		require.NoError(t, rl.Check("c", 1<<20))
	}
}

func TestRateLimitErrorMessages(t *testing.T) {
	var err error = &RateLimitError{Type: "minute", Limit: 5}
	assert.Contains(t, err.Error(), "minute")

	err = &QuotaExceededError{Type: "data", Limit: 10, Used: 11}
	assert.Contains(t, err.Error(), "data")
}
