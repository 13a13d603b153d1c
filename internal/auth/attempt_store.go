package auth

import (
	"context"
	"strconv"
	"time"

	"gatepass/internal/cache"
)

const failedLoginKeyPrefix = "login:failed:"

// Failed login defaults.
const (
	DefaultMaxFailedLogins = 5
	DefaultLockoutWindow   = 15 * time.Minute
)

// AttemptStoreInterface tracks failed logins per identifier.
type AttemptStoreInterface interface {
	RecordFailure(ctx context.Context, identifier string) (failures int64)
	Locked(ctx context.Context, identifier string) bool
	Reset(ctx context.Context, identifier string)
}

// AttemptStore keeps failed login counters in Redis. When Redis is down every
// identifier is treated as unlocked.
type AttemptStore struct {
	cache  *cache.Client
	max    int64
	window time.Duration
}

// Ensure AttemptStore implements AttemptStoreInterface
var _ AttemptStoreInterface = (*AttemptStore)(nil)

// NewAttemptStore creates an attempt store locking an identifier after limit failures within window.
func NewAttemptStore(cache *cache.Client, limit int, window time.Duration) *AttemptStore {
	if limit <= 0 {
		limit = DefaultMaxFailedLogins
	}
	if window <= 0 {
		window = DefaultLockoutWindow
	}
	return &AttemptStore{cache: cache, max: int64(limit), window: window}
}

// RecordFailure counts a failed login and returns the failures in the current window.
func (s *AttemptStore) RecordFailure(ctx context.Context, identifier string) int64 {
	return s.cache.Incr(ctx, failedLoginKeyPrefix+identifier, s.window)
}

// Locked reports whether identifier reached the failure limit.
func (s *AttemptStore) Locked(ctx context.Context, identifier string) bool {
	data, _ := s.cache.Get(ctx, failedLoginKeyPrefix+identifier)
	if data == nil {
		return false
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	return err == nil && n >= s.max
}

// Reset clears the counter after a successful login.
func (s *AttemptStore) Reset(ctx context.Context, identifier string) {
	_ = s.cache.Delete(ctx, failedLoginKeyPrefix+identifier)
}
