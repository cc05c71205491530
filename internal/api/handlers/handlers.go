package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/logging"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/models"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/repository"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/service"
)

// NotificationLister is satisfied by *notification.Service.
type NotificationLister interface {
	List(ctx context.Context, userID string, limit int) ([]*repository.Notification, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	Auth         *AuthHandler
	Invitation   *InvitationHandler
	Organization *OrganizationHandler
	Member       *MemberHandler
	Project      *ProjectHandler
	Notification *NotificationHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services, notifications NotificationLister, logger logrus.FieldLogger) *Handlers {
	logger = logging.Component(logger, "http")
	return &Handlers{
		Auth:         &AuthHandler{authService: services.Auth, logger: logger},
		Invitation:   NewInvitationHandler(services.Invitation, logger),
		Organization: &OrganizationHandler{contextService: services.Context, permissionService: services.Permission, logger: logger},
		Member:       NewMemberHandler(services.Member, logger),
		Project:      &ProjectHandler{gate: services.Gate, logger: logger},
		Notification: &NotificationHandler{notifications: notifications, logger: logger},
	}
}

// ============================================
// Response Mappers
// ============================================

func toUserResponse(u *repository.User) models.UserResponse {
	return models.UserResponse{
		ID:                    u.ID,
		Email:                 u.Email,
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		Name:                  u.FullName(),
		PasswordResetRequired: u.PasswordResetRequired,
		CreatedAt:             u.CreatedAt,
	}
}

func toSessionResponse(s *service.Session) models.SessionResponse {
	if s == nil {
		return models.SessionResponse{}
	}
	return models.SessionResponse{
		SessionID:    s.SessionID,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
	}
}

func toInvitationResponse(inv *repository.InvitationToken) models.InvitationResponse {
	return models.InvitationResponse{
		ID:             inv.ID,
		Email:          inv.Email,
		OrganizationID: inv.OrganizationID,
		ProjectID:      inv.ProjectID,
		BoardID:        inv.BoardID,
		Role:           inv.InvitedRole.String(),
		InvitedBy:      inv.InvitedBy,
		Message:        inv.Message,
		ExpiresAt:      inv.ExpiresAt,
		IsUsed:         inv.IsUsed,
		CreatedAt:      inv.CreatedAt,
	}
}

func toMemberResponse(m *repository.OrganizationMember) models.MemberResponse {
	return models.MemberResponse{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		UserID:         m.UserID,
		Email:          m.Email,
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		Role:           m.Role.String(),
		InvitedBy:      m.InvitedBy,
		JoinedAt:       m.JoinedAt,
	}
}

func toNotificationResponse(n *repository.Notification) models.NotificationResponse {
	resp := models.NotificationResponse{
		ID:             n.ID,
		UserID:         n.UserID,
		OrganizationID: n.OrganizationID,
		Type:           n.Type,
		Read:           n.Read,
		CreatedAt:      n.CreatedAt,
	}
	if len(n.Payload) > 0 {
		resp.Data = []byte(n.Payload)
	}
	return resp
}

// Helper to ensure nil slices become empty slices
func safeStringSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
