package postgres

import (
	"context"
	"fmt"

	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/internal/repository"
)

type teamRepository struct {
	BaseRepository
}

func NewTeamRepository(base BaseRepository) repository.TeamRepository {
	return &teamRepository{base}
}

func (r *teamRepository) ListByDepartment(ctx context.Context, department model.Department) ([]*model.TeamMember, error) {
	query := `
		SELECT id, user_id, department, role, email, created_at
		FROM team_members
		WHERE department = $1
	`
	var members []*model.TeamMember
	if err := r.db.SelectContext(ctx, &members, query, department); err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return members, nil
}
