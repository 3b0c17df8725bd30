package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agilpa/solicitation-api/internal/model"
	apperrors "github.com/agilpa/solicitation-api/pkg/errors"
	"github.com/agilpa/solicitation-api/pkg/logger"
	"github.com/agilpa/solicitation-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("queue_test", "")

type fakeRepo struct {
	mu      sync.Mutex
	items   []*model.Solicitation
	queries int
	err     error
}

func (f *fakeRepo) Query(ctx context.Context, filters *model.SolicitationFilters) ([]*model.Solicitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	var out []*model.Solicitation
	for _, item := range f.items {
		for _, st := range filters.Statuses {
			if item.Status == st {
				out = append(out, item)
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) Create(ctx context.Context, s *model.Solicitation) error { return nil }
func (f *fakeRepo) Get(ctx context.Context, id uuid.UUID) (*model.Solicitation, error) {
	return nil, apperrors.NotFound("solicitation", nil)
}
func (f *fakeRepo) NextProcessSeq(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeRepo) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, update *model.StatusUpdate, expectedVersion int64) error {
	return nil
}

func pendingItem(status model.SolicitationStatus, age time.Duration, now time.Time) *model.Solicitation {
	return &model.Solicitation{
		ID:        uuid.New(),
		Status:    status,
		CreatedAt: now.Add(-age),
	}
}

func newTestService(repo *fakeRepo, cfg Config) (*Service, time.Time) {
	svc := NewService(repo, cfg, logger.NewLogger(nil), testMetrics)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, now
}

func TestPendingForCountsUrgent(t *testing.T) {
	cfg := Config{
		CacheTTL:         time.Millisecond,
		DefaultThreshold: 48 * time.Hour,
	}
	repo := &fakeRepo{}
	svc, now := newTestService(repo, cfg)

	// Five pending for SOSFU, one past the 48h threshold.
	repo.items = []*model.Solicitation{
		pendingItem(model.StatusWaitingSosfuAnalysis, time.Hour, now),
		pendingItem(model.StatusWaitingSosfuAnalysis, 12*time.Hour, now),
		pendingItem(model.StatusWaitingSosfuExecution, 24*time.Hour, now),
		pendingItem(model.StatusWaitingSosfuPayment, 47*time.Hour, now),
		pendingItem(model.StatusWaitingSosfuAnalysis, 49*time.Hour, now),
		// Another department's item never shows up here.
		pendingItem(model.StatusWaitingSodpaAnalysis, 80*time.Hour, now),
	}

	snapshot, err := svc.PendingFor(context.Background(), model.DepartmentSOSFU)
	require.NoError(t, err)
	assert.Equal(t, 5, snapshot.Count)
	assert.Equal(t, 1, snapshot.UrgentCount)
	assert.Equal(t, model.DepartmentSOSFU, snapshot.Department)

	urgent, err := svc.UrgentCount(context.Background(), model.DepartmentSOSFU)
	require.NoError(t, err)
	assert.Equal(t, 1, urgent)
}

func TestPendingForExactThresholdIsNotUrgent(t *testing.T) {
	cfg := Config{
		CacheTTL:         time.Millisecond,
		DefaultThreshold: 48 * time.Hour,
	}
	repo := &fakeRepo{}
	svc, now := newTestService(repo, cfg)

	// Exactly at the threshold: urgency requires strictly older.
	repo.items = []*model.Solicitation{
		pendingItem(model.StatusWaitingSosfuAnalysis, 48*time.Hour, now),
	}

	snapshot, err := svc.PendingFor(context.Background(), model.DepartmentSOSFU)
	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.UrgentCount)
}

func TestPerDepartmentThreshold(t *testing.T) {
	cfg := Config{
		CacheTTL:         time.Millisecond,
		DefaultThreshold: 48 * time.Hour,
		Thresholds: map[model.Department]time.Duration{
			model.DepartmentSEFIN: 24 * time.Hour,
		},
	}
	repo := &fakeRepo{}
	svc, now := newTestService(repo, cfg)

	repo.items = []*model.Solicitation{
		pendingItem(model.StatusWaitingSefinSignature, 30*time.Hour, now),
	}

	// 30h is urgent for SEFIN's 24h threshold, not for the 48h default.
	snapshot, err := svc.PendingFor(context.Background(), model.DepartmentSEFIN)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.UrgentCount)

	assert.Equal(t, 24*time.Hour, svc.Threshold(model.DepartmentSEFIN))
	assert.Equal(t, 48*time.Hour, svc.Threshold(model.DepartmentSOSFU))
}

func TestPendingForCaches(t *testing.T) {
	cfg := Config{
		CacheTTL:         time.Minute,
		DefaultThreshold: 48 * time.Hour,
	}
	repo := &fakeRepo{}
	svc, _ := newTestService(repo, cfg)

	_, err := svc.PendingFor(context.Background(), model.DepartmentSOSFU)
	require.NoError(t, err)
	_, err = svc.PendingFor(context.Background(), model.DepartmentSOSFU)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.queries)

	// A different department misses the cache.
	_, err = svc.PendingFor(context.Background(), model.DepartmentSODPA)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.queries)
}

func TestPendingForUnknownDepartment(t *testing.T) {
	svc, _ := newTestService(&fakeRepo{}, Config{})

	_, err := svc.PendingFor(context.Background(), model.Department("BOGUS"))
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestPendingForStoreErrorIsTransient(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection refused")}
	svc, _ := newTestService(repo, Config{CacheTTL: time.Millisecond})

	_, err := svc.PendingFor(context.Background(), model.DepartmentSOSFU)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrTransientStore))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.Retryable())
}

func TestWatchDeliversAndStops(t *testing.T) {
	cfg := Config{
		PollInterval:     10 * time.Millisecond,
		CacheTTL:         time.Millisecond,
		DefaultThreshold: 48 * time.Hour,
	}
	repo := &fakeRepo{}
	svc, now := newTestService(repo, cfg)
	repo.items = []*model.Solicitation{
		pendingItem(model.StatusWaitingSosfuAnalysis, time.Hour, now),
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := svc.Watch(ctx, model.DepartmentSOSFU)
	require.NoError(t, err)

	select {
	case snapshot := <-ch:
		assert.Equal(t, 1, snapshot.Count)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	cancel()
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestWatchSurvivesFailedRefresh(t *testing.T) {
	cfg := Config{
		PollInterval:     5 * time.Millisecond,
		CacheTTL:         time.Millisecond,
		DefaultThreshold: 48 * time.Hour,
	}
	repo := &fakeRepo{err: errors.New("down")}
	svc, _ := newTestService(repo, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := svc.Watch(ctx, model.DepartmentSOSFU)
	require.NoError(t, err)

	// Store comes back; the loop recovers without the channel closing.
	time.Sleep(20 * time.Millisecond)
	repo.mu.Lock()
	repo.err = nil
	repo.mu.Unlock()

	select {
	case snapshot, open := <-ch:
		require.True(t, open, "channel closed on transient failure")
		assert.Equal(t, 0, snapshot.Count)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after store recovery")
	}
}

func TestOwnedStatusesDefaults(t *testing.T) {
	svc, _ := newTestService(&fakeRepo{}, Config{})

	owned := svc.OwnedStatuses(model.DepartmentSOSFU)
	assert.ElementsMatch(t, []model.SolicitationStatus{
		model.StatusWaitingSosfuAnalysis,
		model.StatusWaitingSosfuExecution,
		model.StatusWaitingSosfuPayment,
	}, owned)

	// Every owned status maps back to its owner.
	for _, dept := range model.Departments {
		for _, st := range svc.OwnedStatuses(dept) {
			owner, ok := model.OwnerOf(st)
			require.True(t, ok)
			assert.Equal(t, dept, owner)
		}
	}
}
