package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"docanalyzer/internal/bootstrap"
	"docanalyzer/internal/shared/config"
	"docanalyzer/internal/shared/server"
	"docanalyzer/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	if err := telemetry.Init(cfg.Env, cfg.LogLevel); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer telemetry.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	addr := server.Addr(cfg.Port)
	srv := &http.Server{Addr: addr, Handler: app.Router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		telemetry.Info("api.started", map[string]any{"addr": addr, "queue_backend": cfg.QueueBackend})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	telemetry.Info("api.shutdown", map[string]any{"timeout": cfg.ShutdownTimeout.String()})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Error("api.shutdown_failed", map[string]any{"error": err.Error()})
	}
	if err := app.Shutdown(shutdownCtx); err != nil {
		telemetry.Error("api.shutdown_failed", map[string]any{"error": err.Error()})
	}
}
