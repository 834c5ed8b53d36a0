package scoreboard

import (
	"context"
	"log/slog"

	mem "scoreboard/adapters/memory"
	"scoreboard/core"
	"scoreboard/engine"
	"scoreboard/realtime"
)

// Option configures the scoreboard service builder.
type Option func(*config)

// EventSink receives every realtime event published by the service.
type EventSink interface {
	OnEvent(ctx context.Context, e core.Event)
}

type config struct {
	cache  engine.ScoreCache
	mode   engine.DispatchMode
	pool   *realtime.Pool
	sinks  []EventSink
	logger *slog.Logger
}

// WithCache sets the score cache adapter.
func WithCache(c engine.ScoreCache) Option { return func(cfg *config) { cfg.cache = c } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(cfg *config) { cfg.mode = m } }

// WithRealtime announces created boards to every session registered in pool.
func WithRealtime(p *realtime.Pool) Option { return func(cfg *config) { cfg.pool = p } }

// WithEventSink forwards every event to s, e.g. a webhook sink.
func WithEventSink(s EventSink) Option {
	return func(cfg *config) {
		if s != nil {
			cfg.sinks = append(cfg.sinks, s)
		}
	}
}

func WithLogger(l *slog.Logger) Option { return func(cfg *config) { cfg.logger = l } }

// New builds a configured Service. If not provided, defaults are used:
//   - cache: in-memory
//   - dispatch: sync
func New(opts ...Option) *engine.Service {
	cfg := &config{mode: engine.DispatchSync, logger: slog.Default()}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.cache == nil {
		cfg.cache = mem.New()
	}
	bus := engine.NewEventBus(cfg.mode)
	svc := engine.NewService(cfg.cache, bus, cfg.logger)
	if cfg.pool != nil {
		bus.Subscribe(core.EventBoardCreated, cfg.pool.OnEvent)
	}
	for _, s := range cfg.sinks {
		bus.Subscribe(core.EventBoardCreated, s.OnEvent)
		bus.Subscribe(core.EventRoomJoined, s.OnEvent)
	}
	return svc
}
