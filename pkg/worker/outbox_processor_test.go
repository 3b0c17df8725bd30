package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/pkg/logger"
	"github.com/agilpa/solicitation-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("worker_test", "")

type fakeOutboxRepo struct {
	mu      sync.Mutex
	events  map[uuid.UUID]*model.OutboxEvent
	pending []uuid.UUID
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{events: make(map[uuid.UUID]*model.OutboxEvent)}
}

func (f *fakeOutboxRepo) add(payload []byte) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.events[id] = &model.OutboxEvent{
		ID:        id,
		EventType: string(model.EventTransitioned),
		Payload:   payload,
		Status:    model.OutboxStatusPending,
		CreatedAt: time.Now(),
	}
	f.pending = append(f.pending, id)
	return id
}

func (f *fakeOutboxRepo) status(id uuid.UUID) model.OutboxStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[id].Status
}

func (f *fakeOutboxRepo) Create(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	f.add(event.Payload)
	return nil
}

func (f *fakeOutboxRepo) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.OutboxEvent
	for _, id := range f.pending {
		e := f.events[id]
		if e.Status != model.OutboxStatusPending {
			continue
		}
		copied := *e
		out = append(out, &copied)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeOutboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.events[id]
	e.Status = status
	e.ErrorMessage = errorMessage
	e.RetryAt = retryAt
	if status == model.OutboxStatusPending {
		e.RetryCount++
	}
	return nil
}

func (f *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	received []*model.WorkflowEvent
	failures int
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, event *model.WorkflowEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("dispatch failed")
	}
	f.received = append(f.received, event)
	return nil
}

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}
}

func eventPayload(t *testing.T) []byte {
	t.Helper()
	payload, err := json.Marshal(&model.WorkflowEvent{
		Kind:           model.EventTransitioned,
		SolicitationID: uuid.New(),
		ProcessNumber:  "TJPA-SF-2026/0001",
		RequesterID:    uuid.New(),
		FromStatus:     model.StatusWaitingManager,
		ToStatus:       model.StatusWaitingSosfuAnalysis,
		OccurredAt:     time.Now(),
	})
	require.NoError(t, err)
	return payload
}

func TestProcessEventsMarksProcessed(t *testing.T) {
	repo := newFakeOutboxRepo()
	dispatcher := &fakeDispatcher{}
	p := NewOutboxProcessor(repo, dispatcher, testConfig(), logger.NewLogger(nil), testMetrics)

	id := repo.add(eventPayload(t))
	require.NoError(t, p.processEvents(context.Background()))

	assert.Equal(t, model.OutboxStatusProcessed, repo.status(id))
	require.Len(t, dispatcher.received, 1)
	assert.Equal(t, "TJPA-SF-2026/0001", dispatcher.received[0].ProcessNumber)

	// Each pass times the batch fetch.
	assert.GreaterOrEqual(t, testutil.CollectAndCount(testMetrics.DatabaseLatency), 1)
}

func TestProcessEventsRetriesTransientFailure(t *testing.T) {
	repo := newFakeOutboxRepo()
	// Two failures, then success: within the retry budget of one pass.
	dispatcher := &fakeDispatcher{failures: 2}
	p := NewOutboxProcessor(repo, dispatcher, testConfig(), logger.NewLogger(nil), testMetrics)

	id := repo.add(eventPayload(t))
	require.NoError(t, p.processEvents(context.Background()))

	assert.Equal(t, model.OutboxStatusProcessed, repo.status(id))
	require.Len(t, dispatcher.received, 1)
}

func TestProcessEventsParksExhaustedEvent(t *testing.T) {
	repo := newFakeOutboxRepo()
	dispatcher := &fakeDispatcher{failures: 100}
	cfg := testConfig()
	p := NewOutboxProcessor(repo, dispatcher, cfg, logger.NewLogger(nil), testMetrics)

	id := repo.add(eventPayload(t))

	// First pass leaves it pending for a later poll; after enough
	// passes the retry budget runs out and the event parks as FAILED.
	require.NoError(t, p.processEvents(context.Background()))
	assert.Equal(t, model.OutboxStatusPending, repo.status(id))

	for i := 0; i < cfg.RetryAttempts; i++ {
		require.NoError(t, p.processEvents(context.Background()))
	}
	assert.Equal(t, model.OutboxStatusFailed, repo.status(id))
	assert.Empty(t, dispatcher.received)
}

func TestProcessEventsParksMalformedPayload(t *testing.T) {
	repo := newFakeOutboxRepo()
	dispatcher := &fakeDispatcher{}
	p := NewOutboxProcessor(repo, dispatcher, testConfig(), logger.NewLogger(nil), testMetrics)

	id := repo.add([]byte("{not json"))
	require.NoError(t, p.processEvents(context.Background()))

	assert.Equal(t, model.OutboxStatusFailed, repo.status(id))
	assert.Empty(t, dispatcher.received)
}

func TestProcessEventsOneBadEventDoesNotBlockOthers(t *testing.T) {
	repo := newFakeOutboxRepo()
	dispatcher := &fakeDispatcher{}
	p := NewOutboxProcessor(repo, dispatcher, testConfig(), logger.NewLogger(nil), testMetrics)

	bad := repo.add([]byte("{not json"))
	good := repo.add(eventPayload(t))
	require.NoError(t, p.processEvents(context.Background()))

	assert.Equal(t, model.OutboxStatusFailed, repo.status(bad))
	assert.Equal(t, model.OutboxStatusProcessed, repo.status(good))
	require.Len(t, dispatcher.received, 1)
}

func TestConfigValidation(t *testing.T) {
	assert.Panics(t, func() {
		NewOutboxProcessor(newFakeOutboxRepo(), &fakeDispatcher{}, OutboxProcessorConfig{}, logger.NewLogger(nil), testMetrics)
	})
}
