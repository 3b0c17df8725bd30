package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/agilpa/solicitation-api/internal/model"
)

// All repository interfaces in one file
type (
	// SolicitationRepository is the durable record of each request. The
	// workflow service is the only writer of status and terminal fields;
	// every status write is guarded by the expected version.
	SolicitationRepository interface {
		Create(ctx context.Context, s *model.Solicitation) error
		Get(ctx context.Context, id uuid.UUID) (*model.Solicitation, error)
		Query(ctx context.Context, filters *model.SolicitationFilters) ([]*model.Solicitation, error)
		NextProcessSeq(ctx context.Context) (int64, error)

		// UpdateStatus applies the status change only when the stored
		// version still matches expectedVersion; a mismatch returns
		// apperrors.StaleState.
		UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, update *model.StatusUpdate, expectedVersion int64) error
	}

	SigningTaskRepository interface {
		CreateBatch(ctx context.Context, tx *sqlx.Tx, tasks []*model.SigningTask) error
		Get(ctx context.Context, id uuid.UUID) (*model.SigningTask, error)
		QueryBySolicitation(ctx context.Context, solicitationID uuid.UUID) ([]*model.SigningTask, error)
		CountByStatus(ctx context.Context, status model.SigningTaskStatus) (int, error)

		// Resolve flips a PENDING task to SIGNED or REJECTED; a task
		// already resolved returns apperrors.AlreadyResolved.
		Resolve(ctx context.Context, id uuid.UUID, status model.SigningTaskStatus, actor uuid.UUID, reason *string) error

		// SupersedeRejected retires REJECTED tasks for the given document
		// types once replacement tasks are opened.
		SupersedeRejected(ctx context.Context, tx *sqlx.Tx, solicitationID uuid.UUID, docs []model.DocumentType) error
	}

	NotificationRepository interface {
		CreateBatch(ctx context.Context, notifications []*model.Notification) error
		List(ctx context.Context, userID uuid.UUID, filters *model.NotificationFilters) ([]*model.Notification, error)
		MarkRead(ctx context.Context, id uuid.UUID) error
		MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
		CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	}

	TeamRepository interface {
		ListByDepartment(ctx context.Context, department model.Department) ([]*model.TeamMember, error)
	}

	HistoryRepository interface {
		Create(ctx context.Context, tx *sqlx.Tx, record *model.TramitationRecord) error
		ListBySolicitation(ctx context.Context, solicitationID uuid.UUID) ([]*model.TramitationRecord, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
