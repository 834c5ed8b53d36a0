package websocket

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"

	"scoreboard/metrics"
	"scoreboard/realtime"
)

// Handler returns an http.Handler that upgrades to WebSocket and serves one session per connection.
func Handler(svc Dispatcher, pool *realtime.Pool, opts Options) http.Handler {
	opts = opts.withDefaults()
	upgrader := gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			metrics.WebSocketConnectionsTotal.WithLabelValues("error").Inc()
			opts.Logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		metrics.WebSocketConnectionsTotal.WithLabelValues("success").Inc()
		sess := NewSession(conn, svc, pool, opts)
		opts.Logger.Debug("websocket session opened", "session_id", sess.ID().String(), "remote", r.RemoteAddr)
		if err := sess.Serve(r.Context()); err != nil {
			opts.Logger.Debug("websocket session ended with error", "session_id", sess.ID().String(), "error", err)
			return
		}
		opts.Logger.Debug("websocket session closed", "session_id", sess.ID().String())
	})
}
