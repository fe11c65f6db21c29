package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, 30)

	mock.ExpectIncr("ratelimit:ext1").SetVal(1)
	mock.ExpectExpire("ratelimit:ext1", time.Minute).SetVal(true)

	assert.True(t, limiter.Allow(context.Background(), "ext1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, 30)

	mock.ExpectIncr("ratelimit:ext1").SetVal(31)

	assert.False(t, limiter.Allow(context.Background(), "ext1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiterFailsOpen(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, 30)

	mock.ExpectIncr("ratelimit:ext1").SetErr(errors.New("connection refused"))

	assert.True(t, limiter.Allow(context.Background(), "ext1"))
}

func TestTokenGuard(t *testing.T) {
	hash, err := HashToken("secret-token")
	require.NoError(t, err)

	guard := NewTokenGuard(hash)
	assert.True(t, guard.Verify("secret-token"))
	assert.False(t, guard.Verify("wrong-token"))
	assert.False(t, guard.Verify(""))

	// No configured hash means admin access is disabled.
	disabled := NewTokenGuard("")
	assert.False(t, disabled.Verify("secret-token"))
}
