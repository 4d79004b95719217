package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smartcampus/internal/app"
	"smartcampus/internal/config"
	"smartcampus/internal/handler"
	"smartcampus/internal/httpmiddleware"
	"smartcampus/internal/livefeed"
	"smartcampus/internal/logger"
)

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

	for _, w := range cfg.Warnings {
		log.Warn("config value ignored", zap.String("detail", w))
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	hub := livefeed.NewHub(cfg.CORSOrigins, log.Named("livefeed"))
	go hub.Run(ctx)

	// Jobs run in this process with the in-memory queue; otherwise a worker
	// process handles them and relays marks back through redis.
	if relay := a.Relay(); relay != nil {
		go func() {
			if err := relay.Forward(ctx, hub); err != nil {
				log.Error("live relay stopped", zap.Error(err))
			}
		}()
	} else {
		go func() {
			if err := a.Processor(hub).Run(ctx, a.Queue, cfg.Workers); err != nil {
				log.Error("in-process worker stopped", zap.Error(err))
			}
		}()
	}

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitPerMin > 0 {
		if cfg.RateLimitBackend == "redis" {
			limiter = httpmiddleware.NewRedisLimiter(a.Redis.Client, cfg.RateLimitPerMin)
		} else {
			limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
		}
	}

	deps := handler.Deps{
		Config:     cfg,
		Log:        log.Named("http"),
		Auth:       a.Auth,
		Attendance: a.Attendance,
		Tickets:    a.Tickets,
		Portal:     a.Portal,
		Decider:    a.Decider,
		Recognizer: a.Face,
		Camera:     a.Camera(),
		Enroller:   a.Face,
		Queue:      a.Queue,
		Hub:        hub,
		Limiter:    limiter,
		Checks:     a.Checks(),
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler.New(deps).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.CaptureTimeout + 15*time.Second, // capture holds the request open
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.String("queue", cfg.QueueBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", zap.Error(err))
	}
	log.Info("server exited")
	return nil
}
