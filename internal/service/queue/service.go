package queue

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/internal/repository"
	apperrors "github.com/agilpa/solicitation-api/pkg/errors"
	"github.com/agilpa/solicitation-api/pkg/logger"
	"github.com/agilpa/solicitation-api/pkg/metrics"
)

// defaultOwnership inverts model.StatusOwnership into the per-queue
// view the aggregator filters by.
func defaultOwnership() map[model.Department][]model.SolicitationStatus {
	out := make(map[model.Department][]model.SolicitationStatus)
	for status, dept := range model.StatusOwnership {
		out[dept] = append(out[dept], status)
	}
	return out
}

// Default urgency thresholds per department. SEFIN and SODPA work on a
// 24h clock; legal review and reimbursement get 48h.
var defaultThresholds = map[model.Department]time.Duration{
	model.DepartmentSEFIN:         24 * time.Hour,
	model.DepartmentSODPA:         24 * time.Hour,
	model.DepartmentAJSEFIN:       48 * time.Hour,
	model.DepartmentRessarcimento: 48 * time.Hour,
}

const defaultThreshold = 48 * time.Hour

type Config struct {
	PollInterval     time.Duration
	CacheTTL         time.Duration
	DefaultThreshold time.Duration
	Thresholds       map[model.Department]time.Duration
	Ownership        map[model.Department][]model.SolicitationStatus
}

// Snapshot is one refresh of a department queue.
type Snapshot struct {
	Department  model.Department      `json:"department"`
	Items       []*model.Solicitation `json:"items"`
	Count       int                   `json:"count"`
	UrgentCount int                   `json:"urgent_count"`
	FetchedAt   time.Time             `json:"fetched_at"`
}

// Service answers "what is pending for this department and how much of
// it is urgent". Safe for concurrent callers; a short-TTL cache keeps
// many dashboards polling on the same interval from stampeding the
// store.
type Service struct {
	repo    repository.SolicitationRepository
	cfg     Config
	cache   *gocache.Cache
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo repository.SolicitationRepository, cfg Config, log *logger.Logger, m *metrics.Metrics) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Second
	}
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = defaultThreshold
	}
	if cfg.Thresholds == nil {
		cfg.Thresholds = defaultThresholds
	}
	if cfg.Ownership == nil {
		cfg.Ownership = defaultOwnership()
	}
	return &Service{
		repo:    repo,
		cfg:     cfg,
		cache:   gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger:  log,
		metrics: m,
		now:     time.Now,
	}
}

// OwnedStatuses returns the statuses a department's queue covers.
func (s *Service) OwnedStatuses(dept model.Department) []model.SolicitationStatus {
	return s.cfg.Ownership[dept]
}

// Threshold returns the urgency age threshold for a department.
func (s *Service) Threshold(dept model.Department) time.Duration {
	if t, ok := s.cfg.Thresholds[dept]; ok {
		return t
	}
	return s.cfg.DefaultThreshold
}

// PendingFor returns the department's current queue with urgent counts.
// Reads are eventually consistent; staleness up to the cache TTL is
// expected.
func (s *Service) PendingFor(ctx context.Context, dept model.Department) (*Snapshot, error) {
	if !dept.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown department %s", dept), nil)
	}

	if cached, ok := s.cache.Get(string(dept)); ok {
		return cached.(*Snapshot), nil
	}

	statuses := s.cfg.Ownership[dept]
	items, err := s.repo.Query(ctx, &model.SolicitationFilters{Statuses: statuses})
	if err != nil {
		return nil, apperrors.TransientStore(err)
	}

	now := s.now()
	threshold := s.Threshold(dept)
	urgent := 0
	for _, item := range items {
		if now.Sub(item.CreatedAt) > threshold {
			urgent++
		}
	}

	snapshot := &Snapshot{
		Department:  dept,
		Items:       items,
		Count:       len(items),
		UrgentCount: urgent,
		FetchedAt:   now,
	}
	s.cache.SetDefault(string(dept), snapshot)

	s.metrics.QueuePendingItems.WithLabelValues(string(dept)).Set(float64(snapshot.Count))
	s.metrics.QueueUrgentItems.WithLabelValues(string(dept)).Set(float64(urgent))

	return snapshot, nil
}

// UrgentCount counts pending items older than the department threshold.
func (s *Service) UrgentCount(ctx context.Context, dept model.Department) (int, error) {
	snapshot, err := s.PendingFor(ctx, dept)
	if err != nil {
		return 0, err
	}
	return snapshot.UrgentCount, nil
}

// Watch polls the department queue on the configured interval and sends
// each snapshot on the returned channel. The loop stops and the channel
// closes when ctx is canceled; a failed refresh is logged and skipped,
// never fatal.
func (s *Service) Watch(ctx context.Context, dept model.Department) (<-chan *Snapshot, error) {
	if !dept.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown department %s", dept), nil)
	}

	out := make(chan *Snapshot, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()

		for {
			snapshot, err := s.PendingFor(ctx, dept)
			if err != nil {
				s.logger.Warn("queue refresh failed",
					"department", string(dept),
					"error", err.Error())
			} else {
				select {
				case out <- snapshot:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
