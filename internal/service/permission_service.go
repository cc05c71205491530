package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/metrics"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/repository"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/types"
)

// PermissionService evaluates role, organization settings and resource
// ownership on every call. It holds no per-request state.
type PermissionService interface {
	// CheckPermission reports whether userID may exercise perm in orgID.
	// resourceID is optional; pass "" when the check is not about a
	// specific card or board.
	CheckPermission(ctx context.Context, userID, orgID string, perm types.Permission, resourceID string) (bool, error)
	// RequirePermission is CheckPermission that fails with
	// ErrInsufficientPermissions instead of returning false.
	RequirePermission(ctx context.Context, userID, orgID string, perm types.Permission, resourceID string) error
	CanManageUserRole(ctx context.Context, managerID, targetID, orgID string, newRole types.Role) (bool, error)
	// GetAccessibleProjects fails closed for non-members.
	GetAccessibleProjects(ctx context.Context, userID, orgID string) ([]string, error)
	// GetRole returns "" when the user is not a member.
	GetRole(ctx context.Context, userID, orgID string) (types.Role, error)
}

type permissionService struct {
	memberRepo   repository.MemberRepository
	settingsRepo repository.SettingsRepository
	projectRepo  repository.ProjectRepository
	metrics      *metrics.Metrics
	logger       logrus.FieldLogger
}

// NewPermissionService creates a new permission service
func NewPermissionService(
	memberRepo repository.MemberRepository,
	settingsRepo repository.SettingsRepository,
	projectRepo repository.ProjectRepository,
	m *metrics.Metrics,
	logger logrus.FieldLogger,
) PermissionService {
	return &permissionService{
		memberRepo:   memberRepo,
		settingsRepo: settingsRepo,
		projectRepo:  projectRepo,
		metrics:      m,
		logger:       logger,
	}
}

func (s *permissionService) GetRole(ctx context.Context, userID, orgID string) (types.Role, error) {
	member, err := s.memberRepo.FindMember(ctx, orgID, userID)
	if err != nil {
		return "", fmt.Errorf("find membership: %w", err)
	}
	if member == nil {
		return "", nil
	}
	return member.Role, nil
}

func (s *permissionService) CheckPermission(ctx context.Context, userID, orgID string, perm types.Permission, resourceID string) (bool, error) {
	allowed, err := s.evaluate(ctx, userID, orgID, perm, resourceID)
	if err != nil {
		return false, err
	}
	s.metrics.PermissionDecision(string(perm), allowed)
	return allowed, nil
}

func (s *permissionService) evaluate(ctx context.Context, userID, orgID string, perm types.Permission, resourceID string) (bool, error) {
	role, err := s.GetRole(ctx, userID, orgID)
	if err != nil {
		return false, err
	}
	if role == "" {
		return false, nil
	}

	if !RoleHasPermission(role, perm) {
		return false, nil
	}

	if IsConditionalPermission(perm) {
		settings, err := s.settingsRepo.FindByOrganization(ctx, orgID)
		if err != nil {
			return false, fmt.Errorf("find organization settings: %w", err)
		}
		if !conditionalAllowed(role, perm, settings) {
			return false, nil
		}
	}

	if kind, ok := ResourceKindFor(perm); ok && resourceID != "" {
		return s.ownsOrManages(ctx, userID, orgID, role, kind, resourceID)
	}

	return true, nil
}

// conditionalAllowed applies organization settings. Absent settings leave
// the permission to owners and admins.
func conditionalAllowed(role types.Role, perm types.Permission, settings *repository.OrganizationSettings) bool {
	if role == types.RoleOwner {
		return true
	}
	if settings == nil {
		return role == types.RoleAdmin
	}

	switch perm {
	case types.PermCreateProject:
		switch role {
		case types.RoleAdmin:
			return settings.AllowAdminCreateProjects
		case types.RoleMember:
			return settings.AllowMemberCreateProjects
		}
	case types.PermScheduleMeeting, types.PermScheduleTeamMeeting:
		switch role {
		case types.RoleAdmin:
			return settings.AllowAdminScheduleMeetings
		case types.RoleMember:
			return settings.AllowMemberScheduleMeetings
		}
	}
	return false
}

// ownsOrManages denies resources that do not exist or live in another
// organization, whatever the role.
func (s *permissionService) ownsOrManages(ctx context.Context, userID, orgID string, role types.Role, kind types.ResourceKind, resourceID string) (bool, error) {
	owner, err := s.projectRepo.FindResourceOwner(ctx, kind, resourceID)
	if err != nil {
		return false, fmt.Errorf("find %s owner: %w", kind, err)
	}
	if owner == nil || owner.OrganizationID != orgID {
		return false, nil
	}

	switch role {
	case types.RoleOwner, types.RoleAdmin:
		return true, nil
	case types.RoleMember:
		return owner.CreatedBy != nil && *owner.CreatedBy == userID, nil
	default:
		return false, nil
	}
}

func (s *permissionService) RequirePermission(ctx context.Context, userID, orgID string, perm types.Permission, resourceID string) error {
	allowed, err := s.CheckPermission(ctx, userID, orgID, perm, resourceID)
	if err != nil {
		return err
	}
	if !allowed {
		s.logger.WithFields(logrus.Fields{
			"user_id":         userID,
			"organization_id": orgID,
			"permission":      perm,
		}).Debug("permission denied")
		return newError(ErrInsufficientPermissions, "missing permission %s", perm)
	}
	return nil
}

func (s *permissionService) CanManageUserRole(ctx context.Context, managerID, targetID, orgID string, newRole types.Role) (bool, error) {
	manager, err := s.memberRepo.FindMember(ctx, orgID, managerID)
	if err != nil {
		return false, fmt.Errorf("find manager membership: %w", err)
	}
	target, err := s.memberRepo.FindMember(ctx, orgID, targetID)
	if err != nil {
		return false, fmt.Errorf("find target membership: %w", err)
	}
	if manager == nil || target == nil || !newRole.Valid() {
		return false, nil
	}

	switch manager.Role {
	case types.RoleOwner:
		// no path grants ownership
		return target.Role != types.RoleOwner && newRole != types.RoleOwner, nil
	case types.RoleAdmin:
		return target.Role == types.RoleMember && newRole == types.RoleMember, nil
	default:
		return false, nil
	}
}

func (s *permissionService) GetAccessibleProjects(ctx context.Context, userID, orgID string) ([]string, error) {
	role, err := s.GetRole(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}

	var ids []string
	switch role {
	case types.RoleOwner, types.RoleAdmin, types.RoleMember:
		ids, err = s.projectRepo.ListIDsByOrganization(ctx, orgID)
	case types.RoleViewer:
		ids, err = s.projectRepo.ListIDsAssignedToUser(ctx, orgID, userID)
	default:
		return nil, newError(ErrInsufficientPermissions, "not a member of this organization")
	}
	if err != nil {
		return nil, fmt.Errorf("list accessible projects: %w", err)
	}
	return dedupe(ids), nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
