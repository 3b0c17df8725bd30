package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/internal/repository"
)

type historyRepository struct {
	BaseRepository
}

func NewHistoryRepository(base BaseRepository) repository.HistoryRepository {
	return &historyRepository{base}
}

func (r *historyRepository) Create(ctx context.Context, tx *sqlx.Tx, record *model.TramitationRecord) error {
	query := `
		INSERT INTO historico_tramitacao (
			id, solicitation_id, status_from, status_to, actor_name,
			description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	record.ID = uuid.New()
	record.CreatedAt = time.Now()

	exec := r.db.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}

	if _, err := exec(ctx, query,
		record.ID,
		record.SolicitationID,
		record.StatusFrom,
		record.StatusTo,
		record.ActorName,
		record.Description,
		record.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create tramitation record: %w", err)
	}
	return nil
}

func (r *historyRepository) ListBySolicitation(ctx context.Context, solicitationID uuid.UUID) ([]*model.TramitationRecord, error) {
	query := `
		SELECT id, solicitation_id, status_from, status_to, actor_name,
			   description, created_at
		FROM historico_tramitacao
		WHERE solicitation_id = $1
		ORDER BY created_at ASC
	`
	var records []*model.TramitationRecord
	if err := r.db.SelectContext(ctx, &records, query, solicitationID); err != nil {
		return nil, fmt.Errorf("failed to list tramitation records: %w", err)
	}
	return records, nil
}
