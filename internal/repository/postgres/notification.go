package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/internal/repository"
)

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(base BaseRepository) repository.NotificationRepository {
	return &notificationRepository{base}
}

func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	// seq is a bigserial; it breaks created_at ties for a stable order
	// under concurrent inserts.
	query := `
		INSERT INTO notifications (
			id, user_id, title, message, type, is_read, link,
			process_number, created_at
		) VALUES ($1, $2, $3, $4, $5, false, $6, $7, $8)
		RETURNING seq
	`
	now := time.Now()
	for _, n := range notifications {
		n.ID = uuid.New()
		n.CreatedAt = now
		if err := r.db.GetContext(ctx, &n.Seq, query,
			n.ID,
			n.UserID,
			n.Title,
			n.Message,
			n.Type,
			n.Link,
			n.ProcessNumber,
			n.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
	}
	return nil
}

func (r *notificationRepository) List(ctx context.Context, userID uuid.UUID, filters *model.NotificationFilters) ([]*model.Notification, error) {
	query := `
		SELECT id, seq, user_id, title, message, type, is_read, link,
			   process_number, created_at
		FROM notifications
		WHERE user_id = $1
	`
	args := []interface{}{userID}
	if filters != nil && filters.UnreadOnly {
		query += " AND is_read = false"
	}
	query += " ORDER BY created_at DESC, seq DESC"
	if filters != nil && filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filters.Limit, filters.Offset)
	}

	var items []*model.Notification
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = true WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead only touches rows unread at statement time; rows created
// after the call keep their unread state.
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
