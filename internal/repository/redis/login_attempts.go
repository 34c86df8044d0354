package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "login_attempts:"

// incrWithTTL bumps the counter and, on the first failure, opens the
// window atomically.
var incrWithTTL = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// LoginAttemptStore implements repository.LoginAttemptStore using Redis.
type LoginAttemptStore struct {
	client redis.UniversalClient
}

// NewLoginAttemptStore creates a new Redis-backed login attempt store.
func NewLoginAttemptStore(client redis.UniversalClient) *LoginAttemptStore {
	return &LoginAttemptStore{client: client}
}

func attemptKey(key string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(key))
}

// Failures returns the failure count for key, or 0 when no window is open.
func (s *LoginAttemptStore) Failures(ctx context.Context, key string) (int, error) {
	n, err := s.client.Get(ctx, attemptKey(key)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get login attempts: %w", err)
	}
	return n, nil
}

// RecordFailure increments the failure count and returns it.
func (s *LoginAttemptStore) RecordFailure(ctx context.Context, key string, window time.Duration) (int, error) {
	n, err := incrWithTTL.Run(ctx, s.client, []string{attemptKey(key)}, window.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("redis record login failure: %w", err)
	}
	return n, nil
}

// Reset clears the failure count for key.
func (s *LoginAttemptStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, attemptKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del login attempts: %w", err)
	}
	return nil
}
