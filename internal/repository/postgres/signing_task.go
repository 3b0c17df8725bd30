package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/internal/repository"
	apperrors "github.com/agilpa/solicitation-api/pkg/errors"
)

type signingTaskRepository struct {
	BaseRepository
}

func NewSigningTaskRepository(base BaseRepository) repository.SigningTaskRepository {
	return &signingTaskRepository{base}
}

func (r *signingTaskRepository) CreateBatch(ctx context.Context, tx *sqlx.Tx, tasks []*model.SigningTask) error {
	if len(tasks) == 0 {
		return nil
	}

	query := `
		INSERT INTO signing_tasks (
			id, solicitation_id, document_type, title, status, value,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	exec := r.db.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}

	now := time.Now()
	for _, task := range tasks {
		task.ID = uuid.New()
		task.Status = model.SigningTaskPending
		task.CreatedAt = now
		task.UpdatedAt = now

		if _, err := exec(ctx, query,
			task.ID,
			task.SolicitationID,
			task.DocumentType,
			task.Title,
			task.Status,
			task.Value,
			task.CreatedAt,
			task.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create signing task: %w", err)
		}
	}
	return nil
}

func (r *signingTaskRepository) Get(ctx context.Context, id uuid.UUID) (*model.SigningTask, error) {
	query := `
		SELECT id, solicitation_id, document_type, title, status, value,
			   signed_by, signed_at, reject_reason, created_at, updated_at
		FROM signing_tasks
		WHERE id = $1
	`
	var task model.SigningTask
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("signing task", err)
		}
		return nil, fmt.Errorf("failed to get signing task: %w", err)
	}
	return &task, nil
}

func (r *signingTaskRepository) QueryBySolicitation(ctx context.Context, solicitationID uuid.UUID) ([]*model.SigningTask, error) {
	query := `
		SELECT id, solicitation_id, document_type, title, status, value,
			   signed_by, signed_at, reject_reason, created_at, updated_at
		FROM signing_tasks
		WHERE solicitation_id = $1
		ORDER BY created_at ASC
	`
	var tasks []*model.SigningTask
	if err := r.db.SelectContext(ctx, &tasks, query, solicitationID); err != nil {
		return nil, fmt.Errorf("failed to query signing tasks: %w", err)
	}
	return tasks, nil
}

func (r *signingTaskRepository) CountByStatus(ctx context.Context, status model.SigningTaskStatus) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM signing_tasks WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("failed to count signing tasks: %w", err)
	}
	return count, nil
}

// Resolve flips exactly one PENDING task; the status guard makes two
// concurrent signers race to a single winner. signed_by and signed_at
// are written only on the SIGNED path.
func (r *signingTaskRepository) Resolve(ctx context.Context, id uuid.UUID, status model.SigningTaskStatus, actor uuid.UUID, reason *string) error {
	now := time.Now()

	var result sql.Result
	var err error
	if status == model.SigningTaskSigned {
		query := `
			UPDATE signing_tasks
			SET status = $1, signed_by = $2, signed_at = $3, updated_at = $3
			WHERE id = $4 AND status = $5
		`
		result, err = r.db.ExecContext(ctx, query, status, actor, now, id, model.SigningTaskPending)
	} else {
		query := `
			UPDATE signing_tasks
			SET status = $1, reject_reason = $2, updated_at = $3
			WHERE id = $4 AND status = $5
		`
		result, err = r.db.ExecContext(ctx, query, status, reason, now, id, model.SigningTaskPending)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve signing task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return apperrors.AlreadyResolved("signing task")
	}
	return nil
}

func (r *signingTaskRepository) SupersedeRejected(ctx context.Context, tx *sqlx.Tx, solicitationID uuid.UUID, docs []model.DocumentType) error {
	if len(docs) == 0 {
		return nil
	}
	types := make([]string, len(docs))
	for i, doc := range docs {
		types[i] = string(doc)
	}

	query := `
		UPDATE signing_tasks
		SET status = $1, updated_at = $2
		WHERE solicitation_id = $3 AND status = $4 AND document_type = ANY($5)
	`
	exec := r.db.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	if _, err := exec(ctx, query,
		model.SigningTaskSuperseded,
		time.Now(),
		solicitationID,
		model.SigningTaskRejected,
		pq.Array(types),
	); err != nil {
		return fmt.Errorf("failed to supersede signing tasks: %w", err)
	}
	return nil
}
