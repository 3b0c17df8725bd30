package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/agilpa/solicitation-api/internal/config"
	"github.com/agilpa/solicitation-api/internal/email"
	"github.com/agilpa/solicitation-api/internal/repository"
	"github.com/agilpa/solicitation-api/internal/repository/postgres"
	notificationService "github.com/agilpa/solicitation-api/internal/service/notification"
	"github.com/agilpa/solicitation-api/pkg/logger"
	"github.com/agilpa/solicitation-api/pkg/messaging/redis"
	"github.com/agilpa/solicitation-api/pkg/metrics"
	"github.com/agilpa/solicitation-api/pkg/worker"
)

// workerEnv holds deployment-level overrides that vary per replica and
// are handed down by the orchestrator rather than the config file.
type workerEnv struct {
	HealthAddr string `envconfig:"HEALTH_ADDR" default:":8081"`
}

// Standalone outbox worker. Runs the same dispatch pipeline the API
// embeds, for deployments that separate serving from event draining.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var env workerEnv
	if err := envconfig.Process("worker", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to read environment")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("solicitation_api", "worker")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger, appMetrics)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	base := postgres.NewBaseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(base)
	notificationRepo := postgres.NewNotificationRepository(base)
	teamRepo := postgres.NewTeamRepository(base)

	emailSvc := email.NewService(cfg.Email)
	dispatcher := notificationService.NewService(
		notificationRepo, teamRepo, broker, emailSvc, appLogger)

	processor := worker.NewOutboxProcessor(outboxRepo, dispatcher, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, appLogger, appMetrics)

	setupHealthCheck(env.HealthAddr, appLogger)
	go pruneProcessed(outboxRepo, cfg.Outbox.RetentionDays, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.Info("shutting down...")
		cancel()
	}()

	processor.Start(ctx)
}

func setupHealthCheck(addr string, logger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error(err, "health check server failed")
			os.Exit(1)
		}
	}()
}

// pruneProcessed trims processed outbox rows past the retention window
// once a day.
func pruneProcessed(repo repository.OutboxRepository, retentionDays int, logger *logger.Logger) {
	if retentionDays <= 0 {
		return
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		deleted, err := repo.DeleteProcessedBefore(context.Background(), cutoff)
		if err != nil {
			logger.Error(err, "failed to prune outbox")
			continue
		}
		if deleted > 0 {
			logger.Info("pruned processed outbox events", "deleted", deleted)
		}
	}
}
