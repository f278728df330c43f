//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pymegate/internal/ratelimit"
	"pymegate/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *ratelimit.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = ratelimit.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestIncrCountsWithinWindow() {
	ctx := context.Background()

	count, _, err := s.store.Incr(ctx, "a@b.cl|1.2.3.4", time.Minute)
	s.Require().NoError(err)
	s.Equal(1, count)

	count, resetAt, err := s.store.Incr(ctx, "a@b.cl|1.2.3.4", time.Minute)
	s.Require().NoError(err)
	s.Equal(2, count)
	s.WithinDuration(time.Now().Add(time.Minute), resetAt, 5*time.Second)
}

func (s *RedisStoreSuite) TestGetMissingKeyIsZero() {
	count, _, err := s.store.Get(context.Background(), "nadie@b.cl|1.2.3.4")
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *RedisStoreSuite) TestClear() {
	ctx := context.Background()
	_, _, err := s.store.Incr(ctx, "a@b.cl|1.2.3.4", time.Minute)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Clear(ctx, "a@b.cl|1.2.3.4"))

	count, _, err := s.store.Get(ctx, "a@b.cl|1.2.3.4")
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *RedisStoreSuite) TestWindowExpires() {
	ctx := context.Background()
	_, _, err := s.store.Incr(ctx, "a@b.cl|1.2.3.4", time.Second)
	s.Require().NoError(err)

	time.Sleep(1100 * time.Millisecond)

	count, _, err := s.store.Get(ctx, "a@b.cl|1.2.3.4")
	s.Require().NoError(err)
	s.Zero(count)
}
