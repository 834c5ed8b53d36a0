package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := BuildApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := app.Config

	slog.Info("starting scoreboard server",
		"environment", cfg.Environment,
		"profile", cfg.Profile,
		"address", cfg.Server.Address,
		"cache_adapter", cfg.Cache.Adapter)

	srv := app.Server
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		slog.Error("failed to start server", "error", err)
		cleanup()
		os.Exit(1)
	case <-ctx.Done():
	}

	slog.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout, "connections", app.Pool.Len())

	// Shutdown does not track hijacked websocket connections; they drain via ctx
	// and leave the pool, which must empty before cleanup closes the stores.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during server shutdown", "error", err)
	}
	if err := app.Pool.Wait(shutdownCtx); err != nil {
		slog.Error("websocket sessions did not drain", "remaining", app.Pool.Len(), "error", err)
	}

	slog.Info("server stopped")
}
