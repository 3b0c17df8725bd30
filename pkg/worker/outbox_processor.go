package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/internal/repository"
	"github.com/agilpa/solicitation-api/pkg/logger"
	"github.com/agilpa/solicitation-api/pkg/metrics"
)

// Dispatcher consumes decoded workflow events; in practice the
// notification service.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *model.WorkflowEvent) error
}

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// OutboxProcessor drains pending workflow events and hands them to the
// dispatcher. Failures never reach the actor who caused the event; they
// are retried here with bounded attempts and then parked as FAILED.
type OutboxProcessor struct {
	repo       repository.OutboxRepository
	dispatcher Dispatcher
	config     OutboxProcessorConfig
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	dispatcher Dispatcher,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &OutboxProcessor{
		repo:       repo,
		dispatcher: dispatcher,
		config:     config,
		logger:     logger,
		metrics:    metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processEvents(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

func (p *OutboxProcessor) processEvents(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	fetchStart := time.Now()
	events, err := p.repo.GetPendingEventsWithLock(ctx, p.config.BatchSize)
	p.metrics.DatabaseLatency.WithLabelValues("get_pending_events").Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "error").Inc()
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "success").Inc()

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
			continue
		}
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	var workflowEvent model.WorkflowEvent
	if err := json.Unmarshal(event.Payload, &workflowEvent); err != nil {
		// Malformed payloads will never succeed; park them.
		errStr := err.Error()
		if updateErr := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &errStr, nil); updateErr != nil {
			p.logger.Error(updateErr, "Failed to update event status")
		}
		p.metrics.OutboxEventsFailed.Inc()
		return fmt.Errorf("failed to decode event payload: %w", err)
	}

	err := retry(p.config.RetryAttempts, p.config.RetryDelay, func() error {
		return p.dispatcher.Dispatch(ctx, &workflowEvent)
	})

	if err != nil {
		p.metrics.OutboxEventsFailed.Inc()
		errStr := err.Error()
		if event.RetryCount+1 >= p.config.RetryAttempts {
			if updateErr := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &errStr, nil); updateErr != nil {
				p.logger.Error(updateErr, "Failed to update event status")
			}
			return err
		}
		retryAt := time.Now().Add(p.config.RetryDelay * time.Duration(event.RetryCount+1))
		if updateErr := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusPending, &errStr, &retryAt); updateErr != nil {
			p.logger.Error(updateErr, "Failed to update event status")
		}
		return err
	}

	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil, nil); err != nil {
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
		return err
	}

	return nil
}

// Helper retry function
func retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
