package model

import (
	"time"

	"github.com/google/uuid"
)

// TeamMember assigns a user to a department queue. Notification fan-out
// for a queue resolves its recipients through this table.
type TeamMember struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	Department Department `db:"department" json:"department"`
	Role       string     `db:"role" json:"role"`
	Email      string     `db:"email" json:"email"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
