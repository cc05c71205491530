package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type pgNotificationRepository struct {
	db sqlx.ExtContext
}

func NewNotificationRepository(db sqlx.ExtContext) NotificationRepository {
	return &pgNotificationRepository{db: db}
}

func (r *pgNotificationRepository) Create(ctx context.Context, notification *Notification) error {
	if len(notification.Payload) == 0 {
		notification.Payload = []byte("{}")
	}
	query := `
		INSERT INTO notifications (user_id, organization_id, type, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, read, created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		notification.UserID, notification.OrganizationID, notification.Type, notification.Payload,
	).Scan(&notification.ID, &notification.Read, &notification.CreatedAt)
}

func (r *pgNotificationRepository) FindByUserID(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, organization_id, type, payload, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	var notifications []*Notification
	if err := sqlx.SelectContext(ctx, r.db, &notifications, query, userID, limit); err != nil {
		return nil, err
	}
	return notifications, nil
}
