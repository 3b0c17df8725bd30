package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationInfo           NotificationType = "INFO"
	NotificationSuccess        NotificationType = "SUCCESS"
	NotificationWarning        NotificationType = "WARNING"
	NotificationError          NotificationType = "ERROR"
	NotificationActionRequired NotificationType = "ACTION_REQUIRED"
)

// Notification is a durable per-user message created when a tracked
// workflow event affects that user. Seq breaks created_at ties so
// concurrent inserts keep a stable listing order.
type Notification struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	Seq           int64            `db:"seq" json:"-"`
	UserID        uuid.UUID        `db:"user_id" json:"user_id"`
	Title         string           `db:"title" json:"title"`
	Message       string           `db:"message" json:"message"`
	Type          NotificationType `db:"type" json:"type"`
	IsRead        bool             `db:"is_read" json:"is_read"`
	Link          *string          `db:"link" json:"link,omitempty"`
	ProcessNumber string           `db:"process_number" json:"process_number"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

type NotificationFilters struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}
