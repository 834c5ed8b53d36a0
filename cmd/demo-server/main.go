package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mem "scoreboard/adapters/memory"
	wsadapter "scoreboard/adapters/websocket"
	"scoreboard/api/httpapi"
	"scoreboard/engine"
	"scoreboard/realtime"
	"scoreboard/scoreboard"
)

func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := realtime.NewPool()
	svc := scoreboard.New(
		scoreboard.WithCache(mem.New()),
		scoreboard.WithRealtime(pool),
		scoreboard.WithDispatchMode(engine.DispatchAsync),
		scoreboard.WithLogger(logger),
	)
	defer svc.Close()

	accounts := mem.NewAccounts()
	ws := wsadapter.DefaultOptions()
	ws.Logger = logger
	ws.BaseContext = ctx

	srv := &http.Server{
		Addr: "[::1]:5000",
		Handler: httpapi.NewMux(svc, pool, httpapi.Options{
			PathPrefix:      "/api/v1",
			AllowCORSOrigin: "*",
			MetricsPath:     "/metrics",
			Users:           accounts,
			Leaderboards:    accounts,
			WebSocket:       ws,
			Logger:          logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting demo server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}
