package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreboard/metrics"
)

func failing(err error) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error { return err }
}

func TestBreakerHook_NormalOperation(t *testing.T) {
	hook := NewBreakerHook()
	assert.Equal(t, gobreaker.StateClosed, hook.State())

	ctx := context.Background()
	process := hook.ProcessHook(failing(nil))
	for i := 0; i < 10; i++ {
		assert.NoError(t, process(ctx, goredis.NewStringCmd(ctx, "get", "key")))
	}

	assert.Equal(t, gobreaker.StateClosed, hook.State())
	counts := hook.Counts()
	assert.Equal(t, uint32(10), counts.Requests)
	assert.Equal(t, uint32(10), counts.TotalSuccesses)
	assert.Equal(t, uint32(0), counts.TotalFailures)
}

func TestBreakerHook_MissesAreNotFailures(t *testing.T) {
	hook := NewBreakerHook()
	ctx := context.Background()
	process := hook.ProcessHook(failing(goredis.Nil))
	for i := 0; i < 10; i++ {
		err := process(ctx, goredis.NewStringCmd(ctx, "get", "key"))
		assert.True(t, errors.Is(err, goredis.Nil))
	}
	assert.Equal(t, gobreaker.StateClosed, hook.State())
	assert.Equal(t, uint32(0), hook.Counts().TotalFailures)
}

func TestBreakerHook_OpensAfterSustainedFailures(t *testing.T) {
	hook := NewBreakerHook()
	ctx := context.Background()
	process := hook.ProcessHook(failing(errors.New("connection timeout")))
	for i := 0; i < 5; i++ {
		assert.Error(t, process(ctx, goredis.NewStringCmd(ctx, "get", "key")))
	}
	assert.Equal(t, gobreaker.StateOpen, hook.State())
}

func TestBreakerHook_FailsFastWhenOpen(t *testing.T) {
	hook := NewBreakerHook()
	ctx := context.Background()
	trip := hook.ProcessHook(failing(errors.New("redis down")))
	for i := 0; i < 5; i++ {
		_ = trip(ctx, goredis.NewStringCmd(ctx, "get", "key"))
	}
	require.Equal(t, gobreaker.StateOpen, hook.State())

	called := false
	process := hook.ProcessHook(func(ctx context.Context, cmd goredis.Cmder) error {
		called = true
		return nil
	})
	err := process(ctx, goredis.NewStatusCmd(ctx, "set", "key", "value"))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.False(t, called, "Redis should not be called when circuit is open")
}

func TestBreakerHook_RecoversThroughHalfOpen(t *testing.T) {
	hook := newBreakerHook(gobreaker.Settings{
		Name:        "redis-test",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     50 * time.Millisecond,
		ReadyToTrip: func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 2 },
	})
	ctx := context.Background()
	trip := hook.ProcessHook(failing(errors.New("redis down")))
	_ = trip(ctx, goredis.NewStringCmd(ctx, "get", "key"))
	_ = trip(ctx, goredis.NewStringCmd(ctx, "get", "key"))
	require.Equal(t, gobreaker.StateOpen, hook.State())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, hook.State())

	ok := hook.ProcessHook(failing(nil))
	assert.NoError(t, ok(ctx, goredis.NewStringCmd(ctx, "get", "key")))
	assert.Equal(t, gobreaker.StateClosed, hook.State())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("redis-test")))
}

func TestMetricsHook_CountsOperations(t *testing.T) {
	_, client := newTestClient(t)
	client.AddHook(&MetricsHook{})
	ctx := context.Background()

	success := metrics.RedisOpsTotal.WithLabelValues("get", "success")
	before := testutil.ToFloat64(success)
	_, err := client.Get(ctx, "missing").Result()
	assert.ErrorIs(t, err, goredis.Nil)
	assert.Equal(t, before+1, testutil.ToFloat64(success))
}
