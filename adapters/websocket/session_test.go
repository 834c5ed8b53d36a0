package websocket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "scoreboard/adapters/memory"
	"scoreboard/core"
	"scoreboard/engine"
	"scoreboard/realtime"
)

type wsFrame struct {
	mt   int
	data []byte
}

type fakeConn struct {
	in chan wsFrame

	unblock     chan struct{}
	unblockOnce sync.Once
	closed      chan struct{}
	closeOnce   sync.Once

	now func() time.Time

	mu           sync.Mutex
	written      [][]byte
	controls     []int
	closeAt      int // len(written) when the close frame went out, -1 before
	writeErr     error
	readDeadline time.Time
	pong         func(string) error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:      make(chan wsFrame, 64),
		unblock: make(chan struct{}),
		closed:  make(chan struct{}),
		now:     time.Now,
		closeAt: -1,
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f, ok := <-c.in:
		if !ok {
			return 0, nil, io.EOF
		}
		return f.mt, f.data, nil
	case <-c.unblock:
		return 0, nil, errors.New("i/o timeout")
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) WriteControl(mt int, _ []byte, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = append(c.controls, mt)
	if mt == gorillaws.CloseMessage {
		c.closeAt = len(c.written)
	}
	return nil
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.readDeadline = t
	c.mu.Unlock()
	if !t.After(c.now()) {
		c.unblockOnce.Do(func() { close(c.unblock) })
	}
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (c *fakeConn) SetReadLimit(int64)               {}

func (c *fakeConn) SetPongHandler(h func(appData string) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pong = h
}

func (c *fakeConn) deadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readDeadline
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) text(s string) { c.in <- wsFrame{mt: gorillaws.TextMessage, data: []byte(s)} }

func (c *fakeConn) responses(t *testing.T) []core.ClientResponse {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.ClientResponse, 0, len(c.written))
	for _, raw := range c.written {
		r, err := core.DecodeResponse(raw)
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func (c *fakeConn) count(mt int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.controls {
		if m == mt {
			n++
		}
	}
	return n
}

func quietOptions() Options {
	return Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func newTestService() *engine.Service {
	return engine.NewService(mem.New(), engine.NewEventBus(engine.DispatchSync), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serveAsync(ctx context.Context, s *Session) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		_ = s.Serve(ctx)
		close(done)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
}

func TestSessionRepliesInReceiptOrder(t *testing.T) {
	conn := newFakeConn()
	pool := realtime.NewPool()
	sess := NewSession(conn, newTestService(), pool, quietOptions())
	assert.Equal(t, StateConnecting, sess.State())

	conn.text(`{"method":"createScoreBoard"}`)
	conn.text(`{"method":"getScoreBoard","body":{"id":"` + uuid.NewString() + `"}}`)
	conn.text(`{"method":"addMember","body":{"name":"alice"}}`)
	close(conn.in)

	require.NoError(t, sess.Serve(context.Background()))

	got := conn.responses(t)
	require.Len(t, got, 3)
	assert.IsType(t, core.BoardCreated{}, got[0])
	assert.Equal(t, core.Failure{Kind: core.KindNotFound, Message: "Scoreboard not found"}, got[1])
	assert.Equal(t, core.KindUnsupportedMethod, got[2].(core.Failure).Kind)

	assert.Equal(t, StateClosed, sess.State())
	assert.Equal(t, 0, pool.Len())
}

func TestSessionDropsUndecodableFrames(t *testing.T) {
	conn := newFakeConn()
	sess := NewSession(conn, newTestService(), realtime.NewPool(), quietOptions())

	room := uuid.New()
	conn.text(`not json`)
	conn.text(`{"method":"launchRocket","body":{}}`)
	conn.text(`{"method":"getScoreBoard"}`)
	conn.in <- wsFrame{mt: gorillaws.BinaryMessage, data: []byte{1, 2, 3}}
	conn.text(`{"method":"joinRoom","body":{"id":"` + room.String() + `"}}`)
	close(conn.in)

	require.NoError(t, sess.Serve(context.Background()))
	assert.Equal(t, []core.ClientResponse{core.RoomJoined{ID: room}}, conn.responses(t))
}

func TestSessionRecordsJoinedRoom(t *testing.T) {
	conn := newFakeConn()
	pool := realtime.NewPool()
	sess := NewSession(conn, newTestService(), pool, quietOptions())
	done := serveAsync(context.Background(), sess)

	room := uuid.New()
	conn.text(`{"method":"joinRoom","body":{"id":"` + room.String() + `"}}`)
	assert.Eventually(t, func() bool { return pool.Rooms()[room] == 1 }, time.Second, 5*time.Millisecond)

	close(conn.in)
	waitDone(t, done)
	assert.Empty(t, pool.Rooms())
}

type countingDispatcher struct{ n atomic.Int32 }

func (d *countingDispatcher) Handle(context.Context, uint64, core.ClientMessage) (core.ClientResponse, error) {
	d.n.Add(1)
	return core.BoardCreated{ID: uuid.New()}, nil
}

func TestSessionDrainsWhenPeerIsGone(t *testing.T) {
	conn := newFakeConn()
	conn.writeErr = errors.New("broken pipe")
	disp := &countingDispatcher{}
	sess := NewSession(conn, disp, realtime.NewPool(), quietOptions())

	for i := 0; i < 3; i++ {
		conn.text(`{"method":"createScoreBoard"}`)
	}
	close(conn.in)

	err := sess.Serve(context.Background())
	require.ErrorContains(t, err, "broken pipe")
	assert.Equal(t, int32(3), disp.n.Load())
	assert.Empty(t, conn.responses(t))
	assert.Equal(t, StateClosed, sess.State())
}

func TestSessionWritesBroadcastsAsIs(t *testing.T) {
	conn := newFakeConn()
	pool := realtime.NewPool()
	disp := &countingDispatcher{}
	sess := NewSession(conn, disp, pool, quietOptions())
	done := serveAsync(context.Background(), sess)

	require.Eventually(t, func() bool { return pool.Len() == 1 }, time.Second, 5*time.Millisecond)
	id := uuid.New()
	assert.Equal(t, 1, pool.Broadcast(realtime.Envelope{Response: core.BoardCreated{ID: id}}))
	assert.Eventually(t, func() bool { return len(conn.responses(t)) == 1 }, time.Second, 5*time.Millisecond)

	close(conn.in)
	waitDone(t, done)
	assert.Equal(t, []core.ClientResponse{core.BoardCreated{ID: id}}, conn.responses(t))
	assert.Zero(t, disp.n.Load())
}

func TestSessionPingsOnInterval(t *testing.T) {
	conn := newFakeConn()
	clock := clockwork.NewFakeClock()
	conn.now = clock.Now
	opts := quietOptions()
	opts.Clock = clock
	opts.PingInterval = 10 * time.Second
	opts.PongWait = 25 * time.Second
	sess := NewSession(conn, newTestService(), realtime.NewPool(), opts)
	done := serveAsync(context.Background(), sess)

	clock.BlockUntil(1)
	assert.Equal(t, clock.Now().Add(25*time.Second), conn.deadline())

	clock.Advance(10 * time.Second)
	assert.Eventually(t, func() bool { return conn.count(gorillaws.PingMessage) >= 1 }, time.Second, 5*time.Millisecond)

	conn.mu.Lock()
	pong := conn.pong
	conn.mu.Unlock()
	require.NotNil(t, pong)
	require.NoError(t, pong(""))
	assert.Equal(t, clock.Now().Add(25*time.Second), conn.deadline())
	assert.Equal(t, StateOpen, sess.State())

	close(conn.in)
	waitDone(t, done)
}

func TestSessionEndsOnContextCancel(t *testing.T) {
	conn := newFakeConn()
	pool := realtime.NewPool()
	sess := NewSession(conn, newTestService(), pool, quietOptions())
	ctx, cancel := context.WithCancel(context.Background())
	done := serveAsync(ctx, sess)

	require.Eventually(t, func() bool { return sess.State() == StateOpen }, time.Second, 5*time.Millisecond)
	cancel()
	waitDone(t, done)

	assert.Equal(t, 1, conn.count(gorillaws.CloseMessage))
	assert.Equal(t, StateClosed, sess.State())
	assert.Equal(t, 0, pool.Len())
}

// gatedDispatcher holds the first message of one method until release is closed.
// Like a store behind a network call, it refuses work on a cancelled context.
type gatedDispatcher struct {
	next    Dispatcher
	method  core.Method
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedDispatcher(next Dispatcher, method core.Method) *gatedDispatcher {
	return &gatedDispatcher{next: next, method: method, entered: make(chan struct{}), release: make(chan struct{})}
}

func (d *gatedDispatcher) Handle(ctx context.Context, origin uint64, msg core.ClientMessage) (core.ClientResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.Method() == d.method {
		d.once.Do(func() {
			close(d.entered)
			<-d.release
		})
	}
	return d.next.Handle(ctx, origin, msg)
}

func waitEntered(t *testing.T, d *gatedDispatcher) {
	t.Helper()
	select {
	case <-d.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher was never reached")
	}
}

func TestSessionJoinsRoomWhileInboundIsBlocked(t *testing.T) {
	conn := newFakeConn()
	pool := realtime.NewPool()
	disp := newGatedDispatcher(newTestService(), core.MethodJoinRoom)
	opts := quietOptions()
	opts.QueueSize = 4
	sess := NewSession(conn, disp, pool, opts)

	room := uuid.New()
	conn.text(`{"method":"joinRoom","body":{"id":"` + room.String() + `"}}`)
	const creates = 20
	for i := 0; i < creates; i++ {
		conn.text(`{"method":"createScoreBoard"}`)
	}
	close(conn.in)

	errCh := make(chan error, 1)
	go func() { errCh <- sess.Serve(context.Background()) }()

	waitEntered(t, disp)
	// Queue full and the reader parked on the next frame.
	require.Eventually(t, func() bool {
		return len(sess.prod.C()) == opts.QueueSize && len(conn.in) == creates-opts.QueueSize-1
	}, time.Second, 5*time.Millisecond)

	other := pool.Register(1)
	assert.Equal(t, 1, pool.Broadcast(realtime.Envelope{Response: core.BoardCreated{ID: uuid.New()}}))

	close(disp.release)

	rooms := make(chan map[uuid.UUID]int, 1)
	go func() { rooms <- pool.Rooms() }()
	select {
	case <-rooms:
	case <-time.After(time.Second):
		t.Fatal("pool locked up behind a blocked send")
	}

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}

	got := conn.responses(t)
	require.Len(t, got, creates+1)
	assert.Equal(t, core.RoomJoined{ID: room}, got[0])
	for _, r := range got[1:] {
		assert.IsType(t, core.BoardCreated{}, r)
	}
	pool.Unregister(other)
	assert.Equal(t, 0, pool.Len())
}

func TestSessionDrainsQueueOnShutdown(t *testing.T) {
	conn := newFakeConn()
	pool := realtime.NewPool()
	disp := newGatedDispatcher(newTestService(), core.MethodCreateScoreBoard)
	base, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts := quietOptions()
	opts.BaseContext = base
	sess := NewSession(conn, disp, pool, opts)
	done := serveAsync(context.Background(), sess)

	for i := 0; i < 3; i++ {
		conn.text(`{"method":"createScoreBoard"}`)
	}
	waitEntered(t, disp)
	require.Eventually(t, func() bool { return len(sess.prod.C()) == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return sess.State() == StateClosing }, time.Second, 5*time.Millisecond)
	close(disp.release)
	waitDone(t, done)

	got := conn.responses(t)
	require.Len(t, got, 3)
	for _, r := range got {
		assert.IsType(t, core.BoardCreated{}, r)
	}
	conn.mu.Lock()
	closeAt := conn.closeAt
	conn.mu.Unlock()
	assert.Equal(t, 3, closeAt)
	assert.Equal(t, 1, conn.count(gorillaws.CloseMessage))
	assert.Equal(t, StateClosed, sess.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "closed", StateClosed.String())
}
