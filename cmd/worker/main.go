package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"smartcampus/internal/app"
	"smartcampus/internal/config"
	"smartcampus/internal/logger"
	"smartcampus/internal/worker"
)

// Worker consumes recognition jobs from redis or NATS, decides attendance
// and relays marks to the API's live feed.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.QueueBackend == app.QueueMemory {
		log.Fatal("worker needs QUEUE_BACKEND=redis or nats; the in-memory queue runs inside the api")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	// Check face service health on startup
	if err := a.Face.Health(ctx); err != nil {
		log.Warn("face service not available, jobs will be retried", zap.Error(err))
	} else {
		log.Info("face service connected")
	}

	var notify worker.Notifier
	if relay := a.Relay(); relay != nil {
		notify = relay
	}
	if err := a.Processor(notify).Run(ctx, a.Queue, cfg.Workers); err != nil {
		log.Error("worker failed", zap.Error(err))
		return
	}
}
