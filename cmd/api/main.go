package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agilpa/solicitation-api/internal/config"
	"github.com/agilpa/solicitation-api/internal/email"
	"github.com/agilpa/solicitation-api/internal/handler"
	notificationHandler "github.com/agilpa/solicitation-api/internal/handler/notification"
	queueHandler "github.com/agilpa/solicitation-api/internal/handler/queue"
	solicitationHandler "github.com/agilpa/solicitation-api/internal/handler/solicitation"
	"github.com/agilpa/solicitation-api/internal/middleware"
	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/internal/repository/postgres"
	"github.com/agilpa/solicitation-api/internal/router"
	notificationService "github.com/agilpa/solicitation-api/internal/service/notification"
	queueService "github.com/agilpa/solicitation-api/internal/service/queue"
	"github.com/agilpa/solicitation-api/internal/service/watermark"
	"github.com/agilpa/solicitation-api/internal/service/workflow"
	"github.com/agilpa/solicitation-api/pkg/auth"
	"github.com/agilpa/solicitation-api/pkg/kvstore"
	"github.com/agilpa/solicitation-api/pkg/logger"
	"github.com/agilpa/solicitation-api/pkg/messaging/redis"
	"github.com/agilpa/solicitation-api/pkg/metrics"
	"github.com/agilpa/solicitation-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("solicitation_api", "api")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	solicitationRepo := postgres.NewSolicitationRepository(base)
	taskRepo := postgres.NewSigningTaskRepository(base)
	historyRepo := postgres.NewHistoryRepository(base)
	notificationRepo := postgres.NewNotificationRepository(base)
	teamRepo := postgres.NewTeamRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger, appMetrics)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	var store kvstore.Store = kvstore.NewMemoryStore()
	if cfg.Watermark.Path != "" {
		store = kvstore.NewFileStore(cfg.Watermark.Path)
	}

	workflowSvc := workflow.NewService(
		solicitationRepo, taskRepo, historyRepo, outboxRepo, &base, appLogger, appMetrics)
	queueSvc := queueService.NewService(solicitationRepo, queueService.Config{
		PollInterval:     cfg.Queue.PollInterval,
		CacheTTL:         cfg.Queue.CacheTTL,
		DefaultThreshold: cfg.Queue.DefaultUrgentThreshold,
		Thresholds:       departmentThresholds(cfg.Queue.UrgentThresholds),
	}, appLogger, appMetrics)
	watermarkTracker := watermark.NewTracker(store)
	emailSvc := email.NewService(cfg.Email)
	notificationSvc := notificationService.NewService(
		notificationRepo, teamRepo, broker, emailSvc, appLogger)

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, notificationSvc, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, appLogger, appMetrics)
	go outboxProcessor.Start(context.Background())

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	h := handler.NewHandler(db)
	solicitationH := solicitationHandler.NewHandler(workflowSvc, authMiddleware)
	queueH := queueHandler.NewHandler(queueSvc, watermarkTracker)
	notificationH := notificationHandler.NewHandler(notificationSvc)

	r := router.NewRouter(authMiddleware, solicitationH, queueH, notificationH, h, router.Config{
		RateLimit:     100,
		RateBurst:     200,
		MetricsPrefix: "solicitation_api",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

func departmentThresholds(raw map[string]time.Duration) map[model.Department]time.Duration {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[model.Department]time.Duration, len(raw))
	for dept, d := range raw {
		out[model.Department(dept)] = d
	}
	return out
}
