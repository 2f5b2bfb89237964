package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/sealcard-backend/internal/analytics/router"
	"github.com/angelmondragon/sealcard-backend/internal/analytics/worker"
	"github.com/angelmondragon/sealcard-backend/internal/analytics/writer"
	"github.com/angelmondragon/sealcard-backend/pkg/bigquery"
	"github.com/angelmondragon/sealcard-backend/pkg/config"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
	"github.com/angelmondragon/sealcard-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/sealcard-backend/pkg/pubsub"
	"github.com/angelmondragon/sealcard-backend/pkg/redis"
)

const serviceKind = "analytics-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "analytics worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "analytics worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.ModeSubscriber, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing bigquery client", err)
		}
	}()

	manager, err := idempotency.NewGuard(redisClient, worker.ConsumerName, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return err
	}

	analyticsWriter, err := writer.New(bqClient, writer.Config{SealEventsTable: cfg.BigQuery.SealEventsTable})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := analyticsWriter.Flush(flushCtx); err != nil {
			logg.Error(flushCtx, "failed to flush buffered seal events", err)
		}
	}()

	routingHandler, err := router.NewRouter(analyticsWriter, logg, nil)
	if err != nil {
		return err
	}

	service, err := worker.NewService(pubsubClient.AnalyticsSubscription(), routingHandler, manager, logg)
	if err != nil {
		return err
	}

	logg.Info(logg.WithField(ctx, "subscription", cfg.PubSub.AnalyticsSubscription), "starting analytics worker")
	return service.Run(ctx)
}
