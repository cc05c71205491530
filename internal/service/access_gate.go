package service

import (
	"context"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/types"
)

// AccessRequest names who wants to do what. OrganizationID and ResourceID
// are optional; a missing organization is resolved from the user's context.
type AccessRequest struct {
	UserID         string
	OrganizationID string
	Permission     types.Permission
	ResourceID     string
}

// AccessGate is the per-request guard used by endpoints. It fails closed:
// no organization context or no membership is a denial.
type AccessGate interface {
	Authorize(ctx context.Context, req AccessRequest) (string, error)
	RequireRole(ctx context.Context, userID, orgID string, roles ...types.Role) (string, types.Role, error)
	AccessibleProjects(ctx context.Context, userID, orgID string) (string, []string, error)
}

type accessGate struct {
	permissions PermissionService
	contexts    OrganizationContextService
}

func NewAccessGate(permissions PermissionService, contexts OrganizationContextService) AccessGate {
	return &accessGate{permissions: permissions, contexts: contexts}
}

func (g *accessGate) resolveOrganization(ctx context.Context, userID, orgID string) (string, error) {
	if orgID != "" {
		return orgID, nil
	}
	current, err := g.contexts.GetCurrentOrganization(ctx, userID)
	if err != nil {
		return "", err
	}
	if current == "" {
		return "", ErrNoOrganizationContext
	}
	return current, nil
}

func (g *accessGate) Authorize(ctx context.Context, req AccessRequest) (string, error) {
	orgID, err := g.resolveOrganization(ctx, req.UserID, req.OrganizationID)
	if err != nil {
		return "", err
	}
	if err := g.permissions.RequirePermission(ctx, req.UserID, orgID, req.Permission, req.ResourceID); err != nil {
		return "", err
	}
	return orgID, nil
}

func (g *accessGate) RequireRole(ctx context.Context, userID, orgID string, roles ...types.Role) (string, types.Role, error) {
	orgID, err := g.resolveOrganization(ctx, userID, orgID)
	if err != nil {
		return "", "", err
	}
	role, err := g.permissions.GetRole(ctx, userID, orgID)
	if err != nil {
		return "", "", err
	}
	if role == "" {
		return "", "", newError(ErrInsufficientPermissions, "not a member of this organization")
	}
	for _, r := range roles {
		if role == r {
			return orgID, role, nil
		}
	}
	return "", "", newError(ErrInsufficientPermissions, "role %s is not allowed", role)
}

func (g *accessGate) AccessibleProjects(ctx context.Context, userID, orgID string) (string, []string, error) {
	orgID, err := g.resolveOrganization(ctx, userID, orgID)
	if err != nil {
		return "", nil, err
	}
	ids, err := g.permissions.GetAccessibleProjects(ctx, userID, orgID)
	if err != nil {
		return "", nil, err
	}
	return orgID, ids, nil
}
