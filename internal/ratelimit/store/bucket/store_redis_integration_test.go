//go:build integration

package bucket_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"creditrisk/internal/ratelimit/store/bucket"
	"creditrisk/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisBucketStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = bucket.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestAllowUpToLimit() {
	ctx := context.Background()
	for i := range 5 {
		result, err := s.store.Allow(ctx, "rl:key:limit", 5, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(5-i-1, result.Remaining)
	}

	result, err := s.store.Allow(ctx, "rl:key:limit", 5, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(0, result.Remaining)
	s.Positive(result.RetryAfter)
	s.LessOrEqual(result.RetryAfter, 60)

	count, err := s.store.GetCurrentCount(ctx, "rl:key:limit")
	s.Require().NoError(err)
	s.Equal(5, count)
}

func (s *RedisStoreSuite) TestAllowNCost() {
	ctx := context.Background()
	result, err := s.store.AllowN(ctx, "rl:key:cost", 7, 10, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(3, result.Remaining)

	result, err = s.store.AllowN(ctx, "rl:key:cost", 4, 10, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(0, result.Remaining)
}

func (s *RedisStoreSuite) TestWindowExpires() {
	ctx := context.Background()
	_, err := s.store.Allow(ctx, "rl:key:expire", 1, 200*time.Millisecond)
	s.Require().NoError(err)

	s.Eventually(func() bool {
		result, err := s.store.Allow(ctx, "rl:key:expire", 1, 200*time.Millisecond)
		return err == nil && result.Allowed
	}, 2*time.Second, 50*time.Millisecond)
}

func (s *RedisStoreSuite) TestReset() {
	ctx := context.Background()
	_, err := s.store.AllowN(ctx, "rl:key:reset", 3, 3, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(ctx, "rl:key:reset"))

	result, err := s.store.Allow(ctx, "rl:key:reset", 3, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

// TestConcurrentAllow verifies the script keeps the count exact under
// concurrent callers.
func (s *RedisStoreSuite) TestConcurrentAllow() {
	ctx := context.Background()
	const limit, callers = 10, 50

	var wg sync.WaitGroup
	var allowed atomic.Int32
	for range callers {
		wg.Go(func() {
			result, err := s.store.Allow(ctx, "rl:key:concurrent", limit, time.Minute)
			if err == nil && result.Allowed {
				allowed.Add(1)
			}
		})
	}
	wg.Wait()
	s.EqualValues(limit, allowed.Load())
}
