package websocket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"scoreboard/core"
	"scoreboard/metrics"
	"scoreboard/realtime"
)

// State is the lifecycle phase of a session.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is the part of *gorillaws.Conn a session needs.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

var _ Conn = (*gorillaws.Conn)(nil)

// Dispatcher resolves one message on behalf of the session registered as origin.
// *engine.Service implements it.
type Dispatcher interface {
	Handle(ctx context.Context, origin uint64, msg core.ClientMessage) (core.ClientResponse, error)
}

// Options tunes sessions. Zero fields fall back to DefaultOptions, except
// PingInterval and MaxMessageSize where zero disables the feature.
type Options struct {
	QueueSize      int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	// Clock drives the ping ticker and every connection deadline, so it must
	// share the connection's time base.
	Clock  clockwork.Clock
	Logger *slog.Logger
	// BaseContext, when set, ends every session once it is done.
	BaseContext context.Context
}

func DefaultOptions() Options {
	return Options{
		QueueSize:      realtime.DefaultQueueSize,
		WriteTimeout:   5 * time.Second,
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		MaxMessageSize: 64 * 1024,
		Clock:          clockwork.NewRealClock(),
		Logger:         slog.Default(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.QueueSize <= 0 {
		o.QueueSize = d.QueueSize
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.Clock == nil {
		o.Clock = d.Clock
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	return o
}

// Session owns one upgraded connection: an inbound loop feeding the session's
// pool producer and an outbound loop that dispatches and writes.
type Session struct {
	id     uuid.UUID
	conn   Conn
	svc    Dispatcher
	pool   *realtime.Pool
	opts   Options
	logger *slog.Logger

	state atomic.Int32
	prod  *realtime.Producer

	readErr  error // inbound loop only
	dead     bool  // outbound loop only
	writeErr error // outbound loop only
}

func NewSession(conn Conn, svc Dispatcher, pool *realtime.Pool, opts Options) *Session {
	opts = opts.withDefaults()
	id := uuid.New()
	return &Session{
		id:     id,
		conn:   conn,
		svc:    svc,
		pool:   pool,
		opts:   opts,
		logger: opts.Logger.With("session_id", id.String()),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	s.logger.Debug("session state changed", "state", st.String())
}

// Serve runs the session until the peer goes away and every queued item was
// handled. It returns only after both loops finished. The error is the transport
// failure that ended the session; a normal close or a shutdown returns nil.
func (s *Session) Serve(ctx context.Context) error {
	if s.opts.BaseContext != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(s.opts.BaseContext, cancel)
		defer stop()
	}

	s.prod = s.pool.Register(s.opts.QueueSize)
	s.setState(StateOpen)
	metrics.WebSocketConnectionsCurrent.Inc()
	started := time.Now()

	if s.opts.MaxMessageSize > 0 {
		s.conn.SetReadLimit(s.opts.MaxMessageSize)
	}
	if s.opts.PingInterval > 0 {
		_ = s.conn.SetReadDeadline(s.opts.Clock.Now().Add(s.opts.PongWait))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(s.opts.Clock.Now().Add(s.opts.PongWait))
		})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.outbound(ctx)
	}()
	go func() {
		defer wg.Done()
		readDone := make(chan struct{})
		go s.watchShutdown(ctx, readDone)
		s.inbound(ctx)
		close(readDone)
		s.setState(StateClosing)
		s.prod.Close()
	}()
	wg.Wait()

	// The close frame goes out only after the drain so queued replies still reach the peer.
	if ctx.Err() != nil && !s.dead {
		msg := gorillaws.FormatCloseMessage(gorillaws.CloseGoingAway, "server shutting down")
		_ = s.conn.WriteControl(gorillaws.CloseMessage, msg, s.opts.Clock.Now().Add(s.opts.WriteTimeout))
	}

	s.pool.Unregister(s.prod)
	_ = s.conn.Close()
	s.setState(StateClosed)
	metrics.WebSocketConnectionsCurrent.Dec()
	metrics.WebSocketConnectionDuration.Observe(time.Since(started).Seconds())
	return errors.Join(s.readErr, s.writeErr)
}

// watchShutdown unblocks the reader when ctx ends so the session can drain.
func (s *Session) watchShutdown(ctx context.Context, readDone <-chan struct{}) {
	select {
	case <-ctx.Done():
		_ = s.conn.SetReadDeadline(s.opts.Clock.Now())
	case <-readDone:
	}
}

func (s *Session) inbound(ctx context.Context) {
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			s.readErr = terminalReadError(ctx, err)
			if s.readErr != nil {
				s.logger.Debug("read failed", "error", err)
			}
			return
		}
		if mt != gorillaws.TextMessage {
			continue
		}
		msg, err := core.DecodeMessage(data)
		if err != nil {
			metrics.WebSocketDecodeErrors.Inc()
			s.logger.Warn("dropping undecodable frame", "error", err)
			continue
		}
		if err := s.prod.Send(ctx, realtime.Envelope{Message: msg, Origin: s.prod.ID()}); err != nil {
			s.logger.Debug("enqueue failed", "method", string(msg.Method()), "error", err)
			return
		}
	}
}

// terminalReadError filters out the ways a session ends normally: a clean close
// frame, EOF, or the read deadline set on shutdown.
func terminalReadError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	var ce *gorillaws.CloseError
	if errors.As(err, &ce) {
		if gorillaws.IsUnexpectedCloseError(err, gorillaws.CloseNormalClosure, gorillaws.CloseGoingAway, gorillaws.CloseNoStatusReceived) {
			return err
		}
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Session) outbound(ctx context.Context) {
	var tick <-chan time.Time
	if s.opts.PingInterval > 0 {
		ticker := s.opts.Clock.NewTicker(s.opts.PingInterval)
		defer ticker.Stop()
		tick = ticker.Chan()
	}
	for {
		select {
		case env, ok := <-s.prod.C():
			if !ok {
				return
			}
			s.deliver(ctx, env)
		case <-tick:
			if s.dead || s.State() != StateOpen {
				continue
			}
			if err := s.conn.WriteControl(gorillaws.PingMessage, nil, s.opts.Clock.Now().Add(s.opts.WriteTimeout)); err != nil {
				metrics.WebSocketPingFailures.Inc()
				s.logger.Debug("ping failed", "error", err)
			}
		}
	}
}

// deliver dispatches own messages, then writes the response. Broadcast envelopes
// already carry their response.
func (s *Session) deliver(ctx context.Context, env realtime.Envelope) {
	resp := env.Response
	if env.Message != nil {
		// Work accepted before shutdown is still served, each item bounded by WriteTimeout.
		if ctx.Err() != nil {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), s.opts.WriteTimeout)
			defer cancel()
		}
		r, err := s.svc.Handle(ctx, env.Origin, env.Message)
		if err != nil {
			r = core.FailureFrom(err)
		}
		if joined, ok := r.(core.RoomJoined); ok {
			s.prod.Join(joined.ID)
		}
		resp = r
	}
	if resp == nil {
		return
	}
	data, err := core.EncodeResponse(resp)
	if err != nil {
		s.logger.Error("encode response failed", "method", string(resp.Method()), "error", err)
		return
	}
	if s.dead {
		return
	}
	start := time.Now()
	_ = s.conn.SetWriteDeadline(s.opts.Clock.Now().Add(s.opts.WriteTimeout))
	if err := s.conn.WriteMessage(gorillaws.TextMessage, data); err != nil {
		s.dead = true
		s.writeErr = err
		s.logger.Debug("write failed, discarding remaining output", "error", err)
		return
	}
	metrics.WebSocketMessageSendDuration.Observe(time.Since(start).Seconds())
}
