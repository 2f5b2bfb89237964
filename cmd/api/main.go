package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/sealcard-backend/api/routes"
	"github.com/angelmondragon/sealcard-backend/internal/auth"
	"github.com/angelmondragon/sealcard-backend/internal/drafts"
	"github.com/angelmondragon/sealcard-backend/internal/ledgers"
	"github.com/angelmondragon/sealcard-backend/internal/programs"
	"github.com/angelmondragon/sealcard-backend/internal/users"
	"github.com/angelmondragon/sealcard-backend/pkg/auth/session"
	"github.com/angelmondragon/sealcard-backend/pkg/config"
	"github.com/angelmondragon/sealcard-backend/pkg/db"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
	"github.com/angelmondragon/sealcard-backend/pkg/metrics"
	"github.com/angelmondragon/sealcard-backend/pkg/migrate"
	"github.com/angelmondragon/sealcard-backend/pkg/outbox"
	"github.com/angelmondragon/sealcard-backend/pkg/qrcode"
	"github.com/angelmondragon/sealcard-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		UserRepo:       userRepo,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(ctx, "failed to create register service", err)
		os.Exit(1)
	}

	qrClient, err := qrcode.NewClient(cfg.QRCode, qrcode.WithVerify(cfg.QRCode.Verify))
	if err != nil {
		logg.Error(ctx, "failed to create qr code client", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	programRepo := programs.NewRepository(dbClient.DB())

	programService, err := programs.NewService(programs.ServiceParams{
		Repository:   programRepo,
		Tx:           dbClient,
		Outbox:       outboxService,
		QR:           qrClient,
		Logger:       logg,
		CodeAttempts: cfg.Ledger.CodeAttempts,
	})
	if err != nil {
		logg.Error(ctx, "failed to create program service", err)
		os.Exit(1)
	}

	ledgerService, err := ledgers.NewService(ledgers.ServiceParams{
		Repository: ledgers.NewRepository(dbClient.DB()),
		Programs:   programRepo,
		Customers:  userRepo,
		Tx:         dbClient,
		Outbox:     outboxService,
		QR:         qrClient,
		Metrics:    ledgerMetrics,
		Logger:     logg,
		Config:     cfg.Ledger,
	})
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}

	draftStore, err := drafts.NewRedisStore(redisClient, cfg.Drafts.TTL)
	if err != nil {
		logg.Error(ctx, "failed to create draft store", err)
		os.Exit(1)
	}
	draftService, err := drafts.NewService(draftStore, programService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create draft service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Sessions: sessionManager,
			Auth:     authService,
			Register: registerService,
			Programs: programService,
			Ledgers:  ledgerService,
			Drafts:   draftService,
			Metrics:  registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}
}
