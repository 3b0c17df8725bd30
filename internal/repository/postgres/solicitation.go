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

type solicitationRepository struct {
	BaseRepository
}

func NewSolicitationRepository(base BaseRepository) repository.SolicitationRepository {
	return &solicitationRepository{base}
}

func (r *solicitationRepository) Create(ctx context.Context, s *model.Solicitation) error {
	query := `
		INSERT INTO solicitations (
			id, process_number, request_type, origin_unit, beneficiary,
			requester_id, value, status, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	s.ID = uuid.New()
	s.Version = 1
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.ProcessNumber,
		s.RequestType,
		s.OriginUnit,
		s.Beneficiary,
		s.RequesterID,
		s.Value,
		s.Status,
		s.Version,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create solicitation: %w", err)
	}
	return nil
}

func (r *solicitationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Solicitation, error) {
	query := `
		SELECT id, process_number, request_type, origin_unit, beneficiary,
			   requester_id, value, status, return_status, reject_reason,
			   nl_siafe, data_baixa, version, created_at, updated_at
		FROM solicitations
		WHERE id = $1
	`
	var s model.Solicitation
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("solicitation", err)
		}
		return nil, fmt.Errorf("failed to get solicitation: %w", err)
	}
	return &s, nil
}

func (r *solicitationRepository) Query(ctx context.Context, filters *model.SolicitationFilters) ([]*model.Solicitation, error) {
	query := `
		SELECT id, process_number, request_type, origin_unit, beneficiary,
			   requester_id, value, status, return_status, reject_reason,
			   nl_siafe, data_baixa, version, created_at, updated_at
		FROM solicitations
		WHERE 1=1
	`
	args := []interface{}{}
	argN := 1

	if len(filters.Statuses) > 0 {
		statuses := make([]string, len(filters.Statuses))
		for i, st := range filters.Statuses {
			statuses[i] = string(st)
		}
		query += fmt.Sprintf(" AND status = ANY($%d)", argN)
		args = append(args, pq.Array(statuses))
		argN++
	}
	if filters.RequestType != "" {
		query += fmt.Sprintf(" AND request_type = $%d", argN)
		args = append(args, filters.RequestType)
		argN++
	}
	if filters.RequesterID != uuid.Nil {
		query += fmt.Sprintf(" AND requester_id = $%d", argN)
		args = append(args, filters.RequesterID)
		argN++
	}
	if filters.Search != "" {
		query += fmt.Sprintf(" AND (process_number ILIKE $%d OR beneficiary ILIKE $%d OR origin_unit ILIKE $%d)", argN, argN, argN)
		args = append(args, "%"+filters.Search+"%")
		argN++
	}

	query += " ORDER BY created_at DESC"
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argN, argN+1)
		args = append(args, filters.Limit, filters.Offset)
	}

	var items []*model.Solicitation
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query solicitations: %w", err)
	}
	return items, nil
}

func (r *solicitationRepository) NextProcessSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.db.GetContext(ctx, &seq, `SELECT nextval('process_number_seq')`); err != nil {
		return 0, fmt.Errorf("failed to get next process sequence: %w", err)
	}
	return seq, nil
}

func (r *solicitationRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, update *model.StatusUpdate, expectedVersion int64) error {
	query := `
		UPDATE solicitations
		SET status = $1,
			return_status = $2,
			reject_reason = $3,
			nl_siafe = COALESCE($4, nl_siafe),
			data_baixa = COALESCE($5, data_baixa),
			version = version + 1,
			updated_at = $6
		WHERE id = $7 AND version = $8
	`
	exec := r.db.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}

	result, err := exec(ctx, query,
		update.Status,
		update.ReturnStatus,
		update.RejectReason,
		update.NLSiafe,
		update.DataBaixa,
		time.Now(),
		id,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update solicitation status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return apperrors.StaleState("solicitation")
	}
	return nil
}
