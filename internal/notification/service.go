package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/repository"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/service"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/types"
)

// Pusher delivers real-time events. *socket.Broadcaster implements it.
type Pusher interface {
	SendNotification(userID string, notification map[string]interface{})
	BroadcastMemberAdded(orgID string, member map[string]interface{}, excludeUserID string)
	BroadcastMemberRoleUpdated(orgID, userID, newRole, excludeUserID string)
}

// Service stores notifications and pushes them over WebSocket.
type Service struct {
	notificationRepo repository.NotificationRepository
	pusher           Pusher
	logger           logrus.FieldLogger
}

// NewService creates a new notification service. pusher may be nil.
func NewService(notificationRepo repository.NotificationRepository, pusher Pusher, logger logrus.FieldLogger) *Service {
	return &Service{
		notificationRepo: notificationRepo,
		pusher:           pusher,
		logger:           logger,
	}
}

// Create implements service.NotificationSink.
func (s *Service) Create(ctx context.Context, userID, orgID, notificationType string, payload map[string]interface{}) error {
	if userID == "" {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}

	n := &repository.Notification{
		UserID:  userID,
		Type:    notificationType,
		Payload: data,
	}
	if orgID != "" {
		n.OrganizationID = &orgID
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"user_id":         userID,
		"type":            notificationType,
	}).Debug("notification stored")

	s.push(n, orgID, payload)
	return nil
}

func (s *Service) push(n *repository.Notification, orgID string, payload map[string]interface{}) {
	if s.pusher == nil {
		return
	}

	s.pusher.SendNotification(n.UserID, map[string]interface{}{
		"id":        n.ID,
		"type":      n.Type,
		"data":      payload,
		"read":      n.Read,
		"createdAt": n.CreatedAt,
	})

	switch n.Type {
	case service.NotificationInvitationAccepted:
		s.pusher.BroadcastMemberAdded(orgID, map[string]interface{}{
			"userId": payload["user_id"],
			"email":  payload["email"],
			"role":   payload["role"],
		}, "")
	case service.NotificationRoleChanged:
		s.pusher.BroadcastMemberRoleUpdated(orgID, n.UserID, roleString(payload["role"]), fmt.Sprint(payload["changed_by"]))
	}
}

func roleString(v interface{}) string {
	switch r := v.(type) {
	case types.Role:
		return string(r)
	case string:
		return r
	default:
		return fmt.Sprint(v)
	}
}

// List returns the most recent notifications for a user.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*repository.Notification, error) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 100:
		limit = 100
	}
	notifications, err := s.notificationRepo.FindByUserID(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}
