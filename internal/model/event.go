package model

import (
	"time"

	"github.com/google/uuid"
)

type WorkflowEventKind string

const (
	EventTransitioned WorkflowEventKind = "solicitation.transitioned"
	EventRejected     WorkflowEventKind = "solicitation.rejected"
	EventArchived     WorkflowEventKind = "solicitation.archived"
	EventTaskSigned   WorkflowEventKind = "signing_task.signed"
	EventTaskRejected WorkflowEventKind = "signing_task.rejected"
)

// WorkflowEvent is the payload recorded in the outbox for every tracked
// state change. The dispatcher turns it into per-user notifications.
type WorkflowEvent struct {
	Kind           WorkflowEventKind  `json:"kind"`
	SolicitationID uuid.UUID          `json:"solicitation_id"`
	ProcessNumber  string             `json:"process_number"`
	RequesterID    uuid.UUID          `json:"requester_id"`
	FromStatus     SolicitationStatus `json:"from_status"`
	ToStatus       SolicitationStatus `json:"to_status"`
	TaskID         *uuid.UUID         `json:"task_id,omitempty"`
	DocumentType   DocumentType       `json:"document_type,omitempty"`
	Actor          string             `json:"actor"`
	Reason         string             `json:"reason,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}
