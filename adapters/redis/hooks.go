package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"scoreboard/metrics"
)

// MetricsHook implements redis.Hook to collect metrics on all Redis operations
type MetricsHook struct{}

var _ redis.Hook = (*MetricsHook)(nil)

func (h *MetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			metrics.RedisConnectionErrors.Inc()
		}
		return conn, err
	}
}

func (h *MetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		duration := time.Since(start).Seconds()

		operation := cmd.Name()
		status := "success"
		if err != nil && !errors.Is(err, redis.Nil) {
			status = "error"
		}

		metrics.RedisOpsTotal.WithLabelValues(operation, status).Inc()
		metrics.RedisOpDuration.WithLabelValues(operation).Observe(duration)

		return err
	}
}

// ProcessPipelineHook tracks a pipeline as a single operation
func (h *MetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		duration := time.Since(start).Seconds()

		status := "success"
		if err != nil {
			status = "error"
		}

		metrics.RedisOpsTotal.WithLabelValues("pipeline", status).Inc()
		metrics.RedisOpDuration.WithLabelValues("pipeline").Observe(duration)

		return err
	}
}

// BreakerHook fails Redis commands fast while the server keeps failing.
// Misses and server replies (redis.Nil, WRONGTYPE) count as successes.
type BreakerHook struct {
	cb *gobreaker.CircuitBreaker
}

var _ redis.Hook = (*BreakerHook)(nil)

// NewBreakerHook trips after at least 5 requests with a 60% failure rate in a
// 10s window and probes again after 30s.
func NewBreakerHook() *BreakerHook {
	return newBreakerHook(gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
	})
}

func newBreakerHook(st gobreaker.Settings) *BreakerHook {
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		slog.Warn("circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
		metrics.CircuitBreakerStateChanges.WithLabelValues(name, to.String()).Inc()
		metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
	}
	return &BreakerHook{cb: gobreaker.NewCircuitBreaker(st)}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (h *BreakerHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *BreakerHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		return h.run(func() error { return next(ctx, cmd) })
	}
}

func (h *BreakerHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		return h.run(func() error { return next(ctx, cmds) })
	}
}

func (h *BreakerHook) run(fn func() error) error {
	var cmdErr error
	_, err := h.cb.Execute(func() (interface{}, error) {
		cmdErr = fn()
		if isFailure(cmdErr) {
			return nil, cmdErr
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("redis circuit breaker open: %w", err)
	}
	return cmdErr
}

func (h *BreakerHook) State() gobreaker.State { return h.cb.State() }

func (h *BreakerHook) Counts() gobreaker.Counts { return h.cb.Counts() }

func isFailure(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) {
		return false
	}
	var reply redis.Error
	return !errors.As(err, &reply)
}
