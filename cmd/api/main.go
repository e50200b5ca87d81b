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

	"booking-pricing/internal/client"
	"booking-pricing/internal/config"
	"booking-pricing/internal/lock"
	"booking-pricing/internal/logger"
	"booking-pricing/internal/metrics"
	"booking-pricing/internal/pricing"
	"booking-pricing/internal/queue"
	"booking-pricing/internal/repository"
	"booking-pricing/internal/server"
	"booking-pricing/internal/service"
	"booking-pricing/internal/worker"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	log.Info().Str("environment", cfg.Environment.Name).Msg("starting booking pricing service")

	db, err := client.InitDBClient(cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("init database")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var locker lock.Locker = lock.NewLocalLocker()
	if rdb := client.NewRedisClient(cfg.Redis, log); rdb != nil {
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, "lock:")
	}

	publisher := queue.NewNoopPublisher()
	if cfg.RabbitMQ.Enabled {
		publisher = queue.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.SnapshotQueue)
	}

	bookingRepo := repository.NewBookingRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	logRepo := repository.NewBookingLogRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	processedRepo := repository.NewProcessedMessageRepository(db)

	calculator := pricing.NewCalculator()
	snapshotService := service.NewSnapshotService(
		db,
		bookingRepo,
		snapshotRepo,
		auditRepo,
		logRepo,
		sequenceRepo,
		calculator,
		locker,
		publisher,
		m,
		log,
		cfg.Snapshot,
	)
	pricingService := service.NewPricingService(bookingRepo, calculator)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	consumerDone := make(chan struct{})
	if cfg.RabbitMQ.Enabled {
		consumer := worker.NewRepriceConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.RepriceQueue, snapshotService, processedRepo, m, log)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("reprice consumer stopped")
			}
		}()
	} else {
		close(consumerDone)
	}

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	srv := server.NewServer(snapshotService, pricingService, reg, cfg.Auth.JWTSecret)

	log.Info().Str("addr", serverAddr).Msg("starting HTTP server")
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	<-consumerDone
}
