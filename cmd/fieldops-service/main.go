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

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"fieldops-service/internal/auth"
	"fieldops-service/internal/client"
	"fieldops-service/internal/config"
	"fieldops-service/internal/db"
	"fieldops-service/internal/gamification"
	httphandler "fieldops-service/internal/http"
	"fieldops-service/internal/http/middleware"
	"fieldops-service/internal/logger"
	"fieldops-service/internal/observability"
	"fieldops-service/internal/realtime"
	"fieldops-service/internal/repository"
	"fieldops-service/internal/service"
	"fieldops-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, cfg.Environment, appLogger)
	if err != nil {
		appLogger.Warn().Err(err).Msg("tracing disabled")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to load timezone")
	}

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb = goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			appLogger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect redis")
		}
		defer rdb.Close()
	}

	origins := realtime.NewOriginPolicy(cfg.HTTP.AllowedOrigins)
	hub := realtime.NewHub(appLogger, realtime.WithOriginPolicy(origins))
	var bus realtime.Bus
	if rdb != nil {
		bus = realtime.NewRedisBus(rdb, cfg.Redis.Channel, appLogger)
	}
	publisher := realtime.NewPublisher(hub, bus, appLogger)
	if err := publisher.Start(ctx); err != nil {
		appLogger.Fatal().Err(err).Msg("failed to start realtime forwarder")
	}

	catalog, err := gamification.DefaultCatalog()
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to load achievement catalog")
	}
	var progressStore gamification.Store
	switch cfg.Gamification.Store {
	case "redis":
		progressStore = gamification.NewRedisStore(rdb)
	default:
		progressStore = gamification.NewGormStore(repository.NewTechnicianProgressRepository(database))
	}
	ledger := gamification.NewLedger(progressStore, catalog, loc, appLogger)

	var push service.PushSink
	if cfg.Push.AMQPURL != "" {
		pushPublisher := client.NewPushPublisher(cfg.Push.AMQPURL, cfg.Push.Queue, appLogger)
		defer pushPublisher.Close()
		push = pushPublisher
	}

	var signer service.URLSigner
	if cfg.Storage.Bucket != "" {
		gcs, err := storage.NewGCSSigner(ctx, cfg.Storage, appLogger)
		if err != nil {
			appLogger.Fatal().Err(err).Msg("failed to init object storage")
		}
		defer gcs.Close()
		signer = gcs
	} else {
		appLogger.Warn().Msg("GCS_BUCKET not set; uploads disabled")
	}

	jobRepo := repository.NewJobRepository(database)
	updateRepo := repository.NewJobUpdateRepository(database)

	notificationService := service.NewNotificationService(repository.NewNotificationRepository(database), publisher, push, appLogger)
	jobService := service.NewJobService(jobRepo, updateRepo, ledger, notificationService, publisher, appLogger)
	photoService := service.NewPhotoApprovalService(repository.NewPhotoApprovalRepository(database), updateRepo, jobRepo, notificationService, publisher, appLogger)
	clockService := service.NewClockService(repository.NewClockEntryRepository(database), ledger, notificationService, publisher, loc, appLogger)
	uploadService := service.NewUploadService(signer, jobRepo)
	progressService := service.NewProgressService(ledger)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(
		jobService,
		photoService,
		clockService,
		notificationService,
		uploadService,
		progressService,
		hub,
		appLogger,
	)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, origins, cfg.Environment, cfg.Tracing.ServiceName, appLogger)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info().Str("addr", addr).Msg("starting fieldops service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		appLogger.Info().Msg("shutting down fieldops service")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return shutdownTracing(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error().Err(err).Msg("fieldops service stopped with error")
		os.Exit(1)
	}
}
