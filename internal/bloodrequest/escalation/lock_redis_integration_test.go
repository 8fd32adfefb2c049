//go:build integration

package escalation_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bloodlink/internal/bloodrequest/escalation"
	"bloodlink/internal/bloodrequest/service"
	"bloodlink/pkg/testutil/containers"
)

type RedisLockSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisLockSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockSuite))
}

func (s *RedisLockSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisLockSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLockSuite) TestExclusiveUntilReleased() {
	ctx := context.Background()
	a := escalation.NewRedisLock(s.redis.Client, "bloodlink:escalation", time.Minute)
	b := escalation.NewRedisLock(s.redis.Client, "bloodlink:escalation", time.Minute)

	release, ok, err := a.Acquire(ctx)
	s.Require().NoError(err)
	s.Require().True(ok)

	_, ok, err = b.Acquire(ctx)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(release(ctx))
	releaseB, ok, err := b.Acquire(ctx)
	s.Require().NoError(err)
	s.True(ok)
	s.Require().NoError(releaseB(ctx))
}

// A holder whose TTL lapsed must not delete the lock a newer holder took.
func (s *RedisLockSuite) TestStaleReleaseKeepsNewHolder() {
	ctx := context.Background()
	a := escalation.NewRedisLock(s.redis.Client, "bloodlink:escalation", 50*time.Millisecond)
	b := escalation.NewRedisLock(s.redis.Client, "bloodlink:escalation", time.Minute)

	staleRelease, ok, err := a.Acquire(ctx)
	s.Require().NoError(err)
	s.Require().True(ok)

	s.Eventually(func() bool {
		_, ok, err := b.Acquire(ctx)
		return err == nil && ok
	}, 2*time.Second, 20*time.Millisecond)

	s.Require().NoError(staleRelease(ctx))
	_, ok, err = a.Acquire(ctx)
	s.Require().NoError(err)
	s.False(ok)
}

type countingEscalator struct{ calls atomic.Int32 }

func (c *countingEscalator) EscalateStale(context.Context, time.Time) (service.EscalationReport, error) {
	c.calls.Add(1)
	time.Sleep(200 * time.Millisecond)
	return service.EscalationReport{}, nil
}

func (s *RedisLockSuite) TestOneReplicaRunsEachTick() {
	ctx := context.Background()
	esc := &countingEscalator{}
	now := time.Now()

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock := escalation.NewRedisLock(s.redis.Client, "bloodlink:escalation", time.Minute)
			_, err := escalation.New(esc, escalation.WithLock(lock)).RunOnce(ctx, now)
			s.NoError(err)
		}()
	}
	wg.Wait()

	s.Equal(int32(1), esc.calls.Load())
}
