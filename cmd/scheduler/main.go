// Package main is the entrypoint for the CounselDesk scheduling service.
//
// The service runs four long-lived loops: the polling worker pool that
// claims and executes due hearing triggers, the lifecycle consumer that
// receives hearing create/update/delete events from the practice-management
// core over Redis, the retention task that prunes finished jobs and archives
// old notifications, and the operational HTTP listener serving liveness and
// readiness probes.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"counseldesk/internal/config"
	"counseldesk/internal/db"
	"counseldesk/internal/hearings"
	"counseldesk/internal/notify"
	"counseldesk/internal/ops"
	"counseldesk/internal/scheduling"
	"counseldesk/internal/types"
)

func main() {
	if err := run(); err != nil {
		slog.Error("scheduler exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	})).With("service", cfg.Service, "env", cfg.Environment)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("scheduler starting")

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	jobRepo := db.NewJobRepository(pool)
	notificationRepo := db.NewNotificationRepository(pool)
	hearingRepo := db.NewHearingRepository(pool)
	directoryRepo := db.NewDirectoryRepository(pool)

	redisOpts, err := redis.ParseURL(cfg.Push.RedisURL.Unmask())
	if err != nil {
		return err
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	publisher := notify.NewRedisPublisherWithClient(redisClient, cfg.Push.ChannelPrefix, logger)

	dispatcher := notify.NewDispatcher(publisher, notificationRepo, logger)
	resolver := scheduling.NewRecipientResolver(directoryRepo, logger)

	orchestrator := hearings.NewOrchestrator(jobRepo, hearingRepo, directoryRepo, resolver, dispatcher, logger)
	consumer := hearings.NewLifecycleConsumer(redisClient, cfg.Push.EventsChannel, orchestrator, logger)

	handlers := scheduling.NewHandlerSet(hearingRepo, directoryRepo, resolver, dispatcher, logger)
	workerPool := scheduling.NewPool(scheduling.PoolConfig{
		Store:        jobRepo,
		Handlers:     handlers.Handlers(),
		PollInterval: cfg.Scheduler.PollInterval,
		Concurrency:  cfg.Scheduler.Concurrency,
		LeaseTTL:     cfg.Scheduler.LeaseTTL,
		WorkerID:     cfg.Scheduler.WorkerID,
		Logger:       logger,
	})

	retention := scheduling.NewRetention(&retentionStore{
		jobs:          jobRepo,
		notifications: notificationRepo,
	}, cfg.Retention, logger)

	opsServer := ops.NewServer([]ops.HealthProbe{
		ops.ProbeFunc{ProbeName: "database", Fn: pool.Ping},
		ops.ProbeFunc{ProbeName: "redis", Fn: publisher.Ping},
	}, logger)

	httpServer := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Server.OpsPort),
		Handler:           opsServer.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return workerPool.Run(gctx)
	})

	g.Go(func() error {
		return retention.Run(gctx)
	})

	g.Go(func() error {
		return consumer.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("ops listener starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("scheduler stopped")
	return nil
}

// retentionStore bridges the job and notification repositories into the
// single store surface the retention task consumes.
type retentionStore struct {
	jobs          *db.JobRepository
	notifications *db.NotificationRepository
}

func (s *retentionStore) PurgeDoneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.jobs.PurgeDoneBefore(ctx, cutoff)
}

func (s *retentionStore) ListReadBefore(ctx context.Context, cutoff time.Time, limit int) ([]*types.Notification, error) {
	return s.notifications.ListReadBefore(ctx, cutoff, limit)
}

func (s *retentionStore) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	return s.notifications.DeleteByIDs(ctx, ids)
}

// logLevel maps the configured level string onto slog levels, defaulting to
// info on anything unrecognized.
func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
