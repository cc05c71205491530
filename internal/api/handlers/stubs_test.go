package handlers

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/repository"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/service"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/types"
)

// stubAuth accepts "tok-<user>" bearer tokens.
type stubAuth struct {
	loginErr  error
	refreshed *service.Session
	loggedOut []string
}

func (a *stubAuth) CreateSession(context.Context, service.SessionRequest) (*service.Session, error) {
	return nil, nil
}

func (a *stubAuth) RevokeSession(context.Context, string) error { return nil }

func (a *stubAuth) Login(_ context.Context, email, _, _, _ string) (*repository.User, *service.Session, error) {
	if a.loginErr != nil {
		return nil, nil, a.loginErr
	}
	return &repository.User{ID: "u1", Email: email, FirstName: "Ada", LastName: "Lovelace"},
		&service.Session{SessionID: "session-1", AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (a *stubAuth) Refresh(_ context.Context, token string) (*service.Session, error) {
	if a.refreshed == nil || token != "refresh" {
		return nil, service.ErrInvalidToken
	}
	return a.refreshed, nil
}

func (a *stubAuth) Logout(_ context.Context, sessionID string) error {
	a.loggedOut = append(a.loggedOut, sessionID)
	return nil
}

func (a *stubAuth) ValidateToken(_ context.Context, token string) (*service.Claims, error) {
	if len(token) < 5 || token[:4] != "tok-" {
		return nil, service.ErrInvalidToken
	}
	user := token[4:]
	return &service.Claims{SessionID: "session-" + user, RegisteredClaims: jwt.RegisteredClaims{Subject: user}}, nil
}

type stubInvitations struct {
	generated *service.GenerateInvitationInput
	accepted  *service.AcceptInvitationInput
	acceptErr error
	cancelled bool
	pending   []*repository.InvitationToken
}

func (s *stubInvitations) GenerateInvitation(_ context.Context, in service.GenerateInvitationInput) (*service.IssuedInvitation, error) {
	s.generated = &in
	role, ok := types.ParseRole(in.Role)
	if !ok {
		return nil, &service.Error{Kind: service.ErrValidation, Message: "invalid role"}
	}
	return &service.IssuedInvitation{
		Invitation: &repository.InvitationToken{
			ID:             "inv-1",
			Token:          "secret-token-value",
			Email:          in.Email,
			OrganizationID: in.OrganizationID,
			InvitedRole:    role,
			InvitedBy:      in.InviterID,
			ExpiresAt:      time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC),
		},
		TemporaryPassword: "temp-password-value",
	}, nil
}

func (s *stubInvitations) AcceptInvitation(_ context.Context, in service.AcceptInvitationInput) (*service.AcceptanceResult, error) {
	s.accepted = &in
	if s.acceptErr != nil {
		return nil, s.acceptErr
	}
	return &service.AcceptanceResult{
		UserID:         "u9",
		OrganizationID: "acme",
		Role:           types.RoleMember,
		Session:        &service.Session{SessionID: "session-9", AccessToken: "access-9", RefreshToken: "refresh-9"},
		RedirectURL:    service.RedirectForRole(types.RoleMember),
		UserCreated:    true,
	}, nil
}

func (s *stubInvitations) CancelInvitation(_ context.Context, invitationID, requesterID string) (bool, error) {
	if invitationID == "missing" {
		return false, &service.Error{Kind: service.ErrNotFound, Message: "invitation not found"}
	}
	return s.cancelled, nil
}

func (s *stubInvitations) GetPendingInvitations(context.Context, string) ([]*repository.InvitationToken, error) {
	return s.pending, nil
}

func (s *stubInvitations) PurgeExpired(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

// stubDirectory holds memberships in a single organization, "acme".
type stubDirectory struct {
	roles    map[string]types.Role
	current  map[string]string
	switched []string
}

func (d *stubDirectory) role(userID, orgID string) types.Role {
	if orgID != "acme" {
		return ""
	}
	return d.roles[userID]
}

func (d *stubDirectory) SwitchOrganization(_ context.Context, userID, orgID string) error {
	if d.role(userID, orgID) == "" {
		return &service.Error{Kind: service.ErrInsufficientPermissions, Message: "not a member of this organization"}
	}
	d.switched = append(d.switched, userID+"->"+orgID)
	return nil
}

func (d *stubDirectory) GetCurrentOrganization(_ context.Context, userID string) (string, error) {
	return d.current[userID], nil
}

func (d *stubDirectory) CheckPermission(_ context.Context, userID, orgID string, perm types.Permission, _ string) (bool, error) {
	return service.RoleHasPermission(d.role(userID, orgID), perm), nil
}

func (d *stubDirectory) RequirePermission(ctx context.Context, userID, orgID string, perm types.Permission, resourceID string) error {
	ok, _ := d.CheckPermission(ctx, userID, orgID, perm, resourceID)
	if !ok {
		return service.ErrInsufficientPermissions
	}
	return nil
}

func (d *stubDirectory) CanManageUserRole(_ context.Context, managerID, _, orgID string, newRole types.Role) (bool, error) {
	return d.role(managerID, orgID) == types.RoleOwner && newRole != types.RoleOwner, nil
}

func (d *stubDirectory) GetAccessibleProjects(_ context.Context, userID, orgID string) ([]string, error) {
	if d.role(userID, orgID) == "" {
		return nil, nil
	}
	return []string{"proj-1"}, nil
}

func (d *stubDirectory) GetRole(_ context.Context, userID, orgID string) (types.Role, error) {
	return d.role(userID, orgID), nil
}

type stubMembers struct {
	dir     *stubDirectory
	updated []string
}

func (m *stubMembers) UpdateMemberRole(ctx context.Context, managerID, targetID, orgID, newRole string) error {
	role, ok := types.ParseRole(newRole)
	if !ok {
		return &service.Error{Kind: service.ErrValidation, Message: "invalid role"}
	}
	allowed, _ := m.dir.CanManageUserRole(ctx, managerID, targetID, orgID, role)
	if !allowed {
		return &service.Error{Kind: service.ErrInsufficientPermissions, Message: "cannot assign role"}
	}
	m.updated = append(m.updated, targetID+"="+newRole)
	return nil
}

func (m *stubMembers) ListMembers(context.Context, string) ([]*repository.OrganizationMember, error) {
	return []*repository.OrganizationMember{
		{ID: "m-1", OrganizationID: "acme", UserID: "owner", Role: types.RoleOwner, Email: "owner@acme.test"},
		{ID: "m-2", OrganizationID: "acme", UserID: "viewer", Role: types.RoleViewer},
	}, nil
}

type stubNotifications struct {
	limit int
}

func (n *stubNotifications) List(_ context.Context, userID string, limit int) ([]*repository.Notification, error) {
	n.limit = limit
	org := "acme"
	return []*repository.Notification{
		{ID: "n-1", UserID: userID, OrganizationID: &org, Type: service.NotificationMemberWelcome, Payload: []byte(`{"role":"member"}`)},
	}, nil
}
