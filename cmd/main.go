package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/framous/server/internal/app/registry"
	"github.com/framous/server/internal/app/rendezvous"
	"github.com/framous/server/internal/app/server"
	"github.com/framous/server/internal/app/worker"
	"github.com/framous/server/internal/config"
	"github.com/framous/server/internal/core/services"
	"github.com/framous/server/internal/platform/logger"
	"github.com/framous/server/internal/platform/telemetry"
	"github.com/framous/server/internal/plugins/postgres"
	redisPlugin "github.com/framous/server/internal/plugins/redis"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN)
		return
	}
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	log.Info("redis connected")

	// Adapters
	frameRepo := postgres.NewFrameRepo(pdb)
	clientRepo := postgres.NewClientRepo(pdb)
	jobRepo := postgres.NewNamingJobRepo(pdb)
	eventRepo := postgres.NewNamingEventRepo(pdb)
	presStore := redisPlugin.NewRedisPresenceStore(rdb, cfg.Pairing.PresenceTTL)
	eventQueue := redisPlugin.NewRedisEventQueue(rdb)

	// Core services
	hub := registry.NewRegistry()
	broadcaster := rendezvous.NewBroadcaster(hub)
	txManager := postgres.NewTxManager(pdb)
	jobSvc := services.NewJobService(log, jobRepo)
	eventSvc := services.NewEventService(log, eventQueue, eventRepo, txManager, cfg.Worker.EventStream)
	pairingSvc := services.NewPairingService(
		log,
		frameRepo,
		clientRepo,
		jobSvc,
		eventSvc,
		hub,
		broadcaster,
		presStore,
		txManager,
		cfg.Pairing.HeartbeatInterval,
		cfg.Pairing.PresenceTTL,
	)

	// Journal worker
	wrkr := worker.NewJournalWorker(log, eventQueue, eventSvc, cfg.Worker.EventStream, cfg.Worker.EventGroup)
	if err := wrkr.Run(ctx); err != nil {
		log.Error("journal worker failed to start", "err", err)
		return
	}

	// Server
	srv := server.NewServer(log, cfg.Service.Name, cfg.Service.Addr, pairingSvc, frameRepo, presStore, eventSvc, hub)
	if err := srv.Start(); err != nil {
		log.Error("server stopped", "err", err)
	}
}
