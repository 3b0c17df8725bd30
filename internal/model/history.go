package model

import (
	"time"

	"github.com/google/uuid"
)

// TramitationRecord is one row of the append-only movement history kept
// for every solicitation.
type TramitationRecord struct {
	ID             uuid.UUID          `db:"id" json:"id"`
	SolicitationID uuid.UUID          `db:"solicitation_id" json:"solicitation_id"`
	StatusFrom     SolicitationStatus `db:"status_from" json:"status_from"`
	StatusTo       SolicitationStatus `db:"status_to" json:"status_to"`
	ActorName      string             `db:"actor_name" json:"actor_name"`
	Description    string             `db:"description" json:"description"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
}
