//go:build integration

package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docvault/internal/identity"
	"docvault/pkg/testutil/containers"
)

type RedisAttemptsSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *identity.RedisAttempts
}

func TestRedisAttemptsSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisAttemptsSuite))
}

func (s *RedisAttemptsSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = identity.NewRedisAttempts(s.redis.Client)
}

func (s *RedisAttemptsSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisAttemptsSuite) TestIncrementAndCount() {
	ctx := context.Background()
	key := "login_attempts:asha@example.com:10.0.0.9"

	count, err := s.store.Count(ctx, key)
	s.Require().NoError(err)
	s.Zero(count, "missing key counts as zero")

	for want := int64(1); want <= 3; want++ {
		got, err := s.store.Increment(ctx, key, time.Minute)
		s.Require().NoError(err)
		s.Equal(want, got)
	}

	count, err = s.store.Count(ctx, key)
	s.Require().NoError(err)
	s.Equal(int64(3), count)
}

func (s *RedisAttemptsSuite) TestWindowExpiry() {
	ctx := context.Background()
	key := "login_attempts:asha@example.com:10.0.0.9"

	_, err := s.store.Increment(ctx, key, time.Second)
	s.Require().NoError(err)

	ttl, err := s.redis.Client.TTL(ctx, key).Result()
	s.Require().NoError(err)
	s.Positive(ttl, "first failure arms the expiry")

	time.Sleep(1100 * time.Millisecond)

	count, err := s.store.Count(ctx, key)
	s.Require().NoError(err)
	s.Zero(count, "counter resets once the window elapses")
}

func (s *RedisAttemptsSuite) TestExpiryNotExtendedByLaterFailures() {
	ctx := context.Background()
	key := "login_attempts:asha@example.com:10.0.0.9"

	_, err := s.store.Increment(ctx, key, 2*time.Second)
	s.Require().NoError(err)
	first, err := s.redis.Client.TTL(ctx, key).Result()
	s.Require().NoError(err)

	time.Sleep(200 * time.Millisecond)
	_, err = s.store.Increment(ctx, key, 2*time.Second)
	s.Require().NoError(err)
	second, err := s.redis.Client.TTL(ctx, key).Result()
	s.Require().NoError(err)

	s.LessOrEqual(second, first, "only the first failure in a window arms the expiry")
}

func (s *RedisAttemptsSuite) TestReset() {
	ctx := context.Background()
	key := "login_attempts:asha@example.com:10.0.0.9"

	_, err := s.store.Increment(ctx, key, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(ctx, key))

	count, err := s.store.Count(ctx, key)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *RedisAttemptsSuite) TestLockoutOverRedis() {
	ctx := context.Background()
	lockout := identity.NewLockout(s.store, 3, time.Minute)

	s.False(lockout.Locked(ctx, "asha@example.com", "10.0.0.9"))
	for range 3 {
		lockout.RecordFailure(ctx, "asha@example.com", "10.0.0.9")
	}
	s.True(lockout.Locked(ctx, "asha@example.com", "10.0.0.9"))
	s.False(lockout.Locked(ctx, "asha@example.com", "198.51.100.4"),
		"lockouts are per email and IP pair")

	lockout.Clear(ctx, "asha@example.com", "10.0.0.9")
	s.False(lockout.Locked(ctx, "asha@example.com", "10.0.0.9"))
}
