package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/repository"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/types"
)

type MemberService interface {
	UpdateMemberRole(ctx context.Context, managerID, targetID, orgID, newRole string) error
	ListMembers(ctx context.Context, orgID string) ([]*repository.OrganizationMember, error)
}

type memberService struct {
	memberRepo    repository.MemberRepository
	permissions   PermissionService
	notifications NotificationSink
	effects       *Dispatcher
	logger        logrus.FieldLogger
}

func NewMemberService(
	memberRepo repository.MemberRepository,
	permissions PermissionService,
	notifications NotificationSink,
	effects *Dispatcher,
	logger logrus.FieldLogger,
) MemberService {
	return &memberService{
		memberRepo:    memberRepo,
		permissions:   permissions,
		notifications: notifications,
		effects:       effects,
		logger:        logger,
	}
}

func (s *memberService) UpdateMemberRole(ctx context.Context, managerID, targetID, orgID, newRole string) error {
	role, ok := types.ParseRole(newRole)
	if !ok {
		return newError(ErrValidation, "invalid role %q", newRole)
	}

	allowed, err := s.permissions.CanManageUserRole(ctx, managerID, targetID, orgID, role)
	if err != nil {
		return err
	}
	if !allowed {
		return newError(ErrInsufficientPermissions, "cannot assign role %s to this member", role)
	}

	if err := s.memberRepo.UpdateRole(ctx, orgID, targetID, role); err != nil {
		return fmt.Errorf("update member role: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"organization_id": orgID,
		"user_id":         targetID,
		"role":            role,
		"changed_by":      managerID,
	}).Info("member role updated")

	if targetID != managerID {
		s.effects.Go("role_changed_notification", func(ctx context.Context) error {
			return s.notifications.Create(ctx, targetID, orgID, NotificationRoleChanged, map[string]interface{}{
				"role":       role,
				"changed_by": managerID,
			})
		})
	}
	return nil
}

func (s *memberService) ListMembers(ctx context.Context, orgID string) ([]*repository.OrganizationMember, error) {
	members, err := s.memberRepo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}
