// Package app wires the configured database, caches, queue and domain
// services shared by the api, worker and campusctl binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"smartcampus/internal/attendance"
	"smartcampus/internal/auth"
	"smartcampus/internal/blob"
	"smartcampus/internal/config"
	"smartcampus/internal/faceclient"
	"smartcampus/internal/handler"
	"smartcampus/internal/livefeed"
	"smartcampus/internal/logger"
	"smartcampus/internal/portal"
	"smartcampus/internal/queue"
	"smartcampus/internal/recognition"
	"smartcampus/internal/store"
	"smartcampus/internal/tickets"
	"smartcampus/internal/worker"
)

const (
	QueueMemory = "memory"
	QueueRedis  = "redis"
	QueueNATS   = "nats"
)

// App holds the opened resources. Redis is nil when nothing needs it.
type App struct {
	Config config.App
	Log    *zap.Logger

	DB    *store.DB
	Redis *store.Redis
	Queue queue.Queue
	nats  *queue.NATSQueue

	Attendance *attendance.Service
	Auth       *auth.Service
	Tickets    *tickets.Service
	Portal     *portal.Service
	Decider    *recognition.Decider
	Face       *faceclient.Client
}

// Open connects to everything cfg names and migrates the schema when
// AutoMigrate is set. The caller must Close the result.
func Open(ctx context.Context, cfg config.App, log *zap.Logger) (*App, error) {
	log = logger.OrNop(log)
	db, err := store.NewDB(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log, DB: db}

	if cfg.AutoMigrate {
		applied, err := db.Migrate(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if len(applied) > 0 {
			log.Info("migrations applied", zap.Strings("versions", applied))
		}
	}

	if cfg.QueueBackend != QueueMemory || cfg.RateLimitBackend == "redis" {
		a.Redis = store.NewRedis(cfg.RedisAddr)
	}

	attRepo := attendance.NewRepository(db.Client)
	loc := cfg.Location()
	a.Attendance = attendance.NewService(attRepo, loc)
	a.Auth = auth.NewService(auth.NewRepository(db.Client), auth.NewHasher(), attRepo, auth.TokenConfig{
		Issuer:     cfg.JWTIssuer,
		SigningKey: cfg.JWTSigningKey,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}, log.Named("auth"))
	a.Tickets = tickets.NewService(tickets.NewRepository(db.Client), log.Named("tickets"))
	a.Decider = recognition.NewDecider(attRepo, attRepo,
		recognition.WithThreshold(cfg.RecognitionThreshold),
		recognition.WithLocation(loc),
		recognition.WithLogger(log.Named("recognition")),
	)
	a.Face = faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)

	storage, err := blob.FromConfig(ctx, cfg, log.Named("blob"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}
	a.Portal = portal.NewService(portal.NewRepository(db.Client), storage, loc, log.Named("portal"))

	if err := a.openQueue(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) openQueue(ctx context.Context) error {
	switch a.Config.QueueBackend {
	case QueueRedis:
		a.Queue = queue.NewRedisQueue(a.Redis.Client, "")
	case QueueNATS:
		q, err := queue.NewNATSQueue(a.Config.NATSURL, "", a.Log.Named("queue"))
		if err != nil {
			return err
		}
		if err := q.EnsureStream(ctx); err != nil {
			q.Close()
			return fmt.Errorf("nats stream: %w", err)
		}
		a.nats, a.Queue = q, q
	default:
		a.Queue = queue.NewInMemory(64)
	}
	return nil
}

// Camera returns the snapshot camera, or nil when none is configured.
func (a *App) Camera() recognition.FrameSource {
	if a.Config.CameraSnapshotURL == "" {
		return nil
	}
	return faceclient.NewCamera(a.Config.CameraSnapshotURL)
}

// Relay returns the Redis live feed relay when recognition jobs run in a
// separate worker process, and nil otherwise.
func (a *App) Relay() *livefeed.RedisRelay {
	if a.Config.QueueBackend == QueueMemory || a.Redis == nil {
		return nil
	}
	return livefeed.NewRedisRelay(a.Redis.Client, "", a.Log.Named("relay"))
}

// Processor builds the recognition job processor. notify may be nil.
func (a *App) Processor(notify worker.Notifier) *worker.Processor {
	return worker.NewProcessor(a.Decider, a.Face, a.Attendance.Repo(), notify, a.Log.Named("worker"))
}

// Checks are the readiness checks for every remote dependency in use.
func (a *App) Checks() []handler.Check {
	checks := []handler.Check{
		{Name: "db", Fn: func(ctx context.Context) error {
			if !a.DB.Healthy(ctx) {
				return errors.New("database unreachable")
			}
			return nil
		}},
		{Name: "face", Fn: a.Face.Health},
	}
	if a.Redis != nil {
		checks = append(checks, handler.Check{Name: "redis", Fn: func(ctx context.Context) error {
			if !a.Redis.Healthy(ctx) {
				return errors.New("redis unreachable")
			}
			return nil
		}})
	}
	if a.nats != nil {
		checks = append(checks, handler.Check{Name: "nats", Fn: func(context.Context) error { return a.nats.Ping() }})
	}
	return checks
}

// Close releases every opened resource.
func (a *App) Close() {
	if a.nats != nil {
		a.nats.Close()
	}
	if err := a.Redis.Close(); err != nil {
		a.Log.Warn("close redis", zap.Error(err))
	}
	if err := a.DB.Close(); err != nil {
		a.Log.Warn("close database", zap.Error(err))
	}
}
