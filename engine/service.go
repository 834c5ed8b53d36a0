package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"scoreboard/core"
	"scoreboard/metrics"
)

// Service wires the score cache and the event bus into a single entry point used
// by every transport. Handle dispatches exactly once per message.
type Service struct {
	cache  ScoreCache
	bus    *EventBus
	logger *slog.Logger
}

func NewService(cache ScoreCache, bus *EventBus, logger *slog.Logger) *Service {
	if cache == nil || bus == nil {
		panic("NewService requires non-nil cache and bus")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cache: cache, bus: bus, logger: logger}
}

// Subscribe registers handler on the service event bus.
func (s *Service) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *Service) Cache() ScoreCache { return s.cache }

// Close waits for queued events to be delivered. Events published afterwards are dropped.
func (s *Service) Close() { s.bus.Close() }

// Handle dispatches msg and publishes the matching event on success.
// origin is the pool registration of the sending session, or zero.
func (s *Service) Handle(ctx context.Context, origin uint64, msg core.ClientMessage) (core.ClientResponse, error) {
	start := time.Now()
	resp, err := Dispatch(ctx, msg, s.cache)
	method := string(msg.Method())
	metrics.DispatchDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	metrics.DispatchTotal.WithLabelValues(method, dispatchResult(err)).Inc()
	if err != nil {
		if _, ok := core.AsClientError(err); !ok {
			s.logger.Error("dispatch failed", "method", method, "origin", origin, "error", err)
		}
		return nil, err
	}

	switch r := resp.(type) {
	case core.BoardCreated:
		s.bus.Publish(ctx, core.NewBoardCreated(origin, r.ID))
	case core.RoomJoined:
		s.bus.Publish(ctx, core.NewRoomJoined(origin, r.ID))
	}
	return resp, nil
}

// CreateBoard and GetBoard are typed shortcuts for the HTTP API.
func (s *Service) CreateBoard(ctx context.Context) (core.BoardCreated, error) {
	resp, err := s.Handle(ctx, 0, core.CreateScoreBoard{})
	if err != nil {
		return core.BoardCreated{}, err
	}
	return resp.(core.BoardCreated), nil
}

func (s *Service) GetBoard(ctx context.Context, id uuid.UUID) (core.ScoreBoard, error) {
	resp, err := s.Handle(ctx, 0, core.GetScoreBoard{ID: id})
	if err != nil {
		return core.ScoreBoard{}, err
	}
	return resp.(core.BoardFetched).ScoreBoard, nil
}

func dispatchResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrUnsupportedMethod):
		return "unsupported"
	default:
		return "error"
	}
}
