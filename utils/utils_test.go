package utils

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(6)
	require.NoError(t, err)
	assert.Len(t, code, 12)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]+$`), code)

	other, err := GenerateCode(6)
	require.NoError(t, err)
	assert.NotEqual(t, code, other)
}

func TestSessionLockerAcquire(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewSessionLocker(db, 10*time.Second)

	mock.Regexp().ExpectSetNX("lock:lunch_session:S1", `[0-9A-F]{32}`, 10*time.Second).SetVal(true)

	release, err := locker.Acquire(context.Background(), "S1")
	require.NoError(t, err)
	require.NotNil(t, release)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionLockerAcquireRetries(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewSessionLocker(db, 10*time.Second)

	// First attempt loses the race, second wins.
	mock.Regexp().ExpectSetNX("lock:lunch_session:S1", `[0-9A-F]{32}`, 10*time.Second).SetVal(false)
	mock.Regexp().ExpectSetNX("lock:lunch_session:S1", `[0-9A-F]{32}`, 10*time.Second).SetVal(true)

	release, err := locker.Acquire(context.Background(), "S1")
	require.NoError(t, err)
	require.NotNil(t, release)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionLockerAcquireGivesUpOnContext(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewSessionLocker(db, 10*time.Second)

	mock.Regexp().ExpectSetNX("lock:lunch_session:S1", `[0-9A-F]{32}`, 10*time.Second).SetVal(false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := locker.Acquire(ctx, "S1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSessionLockerAcquireRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewSessionLocker(db, 10*time.Second)

	mock.Regexp().ExpectSetNX("lock:lunch_session:S1", `[0-9A-F]{32}`, 10*time.Second).
		SetErr(errors.New("connection refused"))

	_, err := locker.Acquire(context.Background(), "S1")
	assert.ErrorContains(t, err, "acquire session lock")
}

func TestCircuitBreakerTripsAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.maxRequests = 5
	cb.failureRatio = 0.6
	cb.timeout = 50 * time.Millisecond

	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 5; i++ {
		err := cb.Execute(ctx, func() error { return boom })
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, BreakerOpen, cb.State())

	// Open breaker rejects without calling the function.
	err := cb.Execute(ctx, func() error {
		t.Fatal("must not be called while open")
		return nil
	})
	assert.ErrorIs(t, err, ErrBreakerOpen)

	// After the cool-down a successful probe closes it again.
	time.Sleep(80 * time.Millisecond)
	err = cb.Execute(ctx, func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreakerStaysClosedUnderLowFailureRate(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.maxRequests = 10
	cb.failureRatio = 0.6

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		cb.Execute(ctx, func() error {
			if i%5 == 0 {
				return errors.New("occasional failure")
			}
			return nil
		})
	}
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestRedisHealthCheck(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, RedisHealthCheck(db))
	assert.NoError(t, mock.ExpectationsWereMet())

	db, mock = redismock.NewClientMock()
	mock.ExpectPing().SetErr(errors.New("connection failed"))
	err := RedisHealthCheck(db)
	assert.ErrorContains(t, err, "redis health check failed")
}
