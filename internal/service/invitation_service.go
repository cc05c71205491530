package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/config"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/email"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/metrics"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/repository"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/types"
)

const (
	// InvitationTTL is fixed; callers cannot choose another window.
	InvitationTTL = 48 * time.Hour

	MinPasswordLength = 8
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72

	tokenBytes        = 32
	tempPasswordBytes = 12
)

var dashboardPaths = map[types.Role]string{
	types.RoleOwner:  "/dashboard/owner",
	types.RoleAdmin:  "/dashboard/admin",
	types.RoleMember: "/dashboard/member",
	types.RoleViewer: "/dashboard/viewer",
}

// RedirectForRole falls back to the member dashboard for unknown roles.
func RedirectForRole(role types.Role) string {
	if path, ok := dashboardPaths[role]; ok {
		return path
	}
	return dashboardPaths[types.RoleMember]
}

type GenerateInvitationInput struct {
	Email          string
	OrganizationID string
	Role           string
	InviterID      string
	ProjectID      string
	BoardID        string
	Message        string
}

// IssuedInvitation is returned once. TemporaryPassword is never stored.
type IssuedInvitation struct {
	Invitation        *repository.InvitationToken
	TemporaryPassword string
}

type AcceptInvitationInput struct {
	Token             string
	Email             string
	TemporaryPassword string
	NewPassword       string
	FirstName         string
	LastName          string
	IPAddress         string
	UserAgent         string
}

type AcceptanceResult struct {
	UserID         string
	OrganizationID string
	Role           types.Role
	Session        *Session
	RedirectURL    string
	UserCreated    bool
}

type InvitationService interface {
	GenerateInvitation(ctx context.Context, in GenerateInvitationInput) (*IssuedInvitation, error)
	AcceptInvitation(ctx context.Context, in AcceptInvitationInput) (*AcceptanceResult, error)
	// CancelInvitation deletes an unused invitation on behalf of its inviter.
	CancelInvitation(ctx context.Context, invitationID, requesterID string) (bool, error)
	GetPendingInvitations(ctx context.Context, orgID string) ([]*repository.InvitationToken, error)
	// PurgeExpired removes unused invitations that expired more than olderThan ago.
	PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type invitationService struct {
	cfg           *config.Config
	repos         *repository.Repositories
	permissions   PermissionService
	sessions      SessionIssuer
	emailSender   EmailSender
	notifications NotificationSink
	effects       *Dispatcher
	metrics       *metrics.Metrics
	logger        logrus.FieldLogger
	now           func() time.Time
}

func NewInvitationService(
	cfg *config.Config,
	repos *repository.Repositories,
	permissions PermissionService,
	sessions SessionIssuer,
	emailSender EmailSender,
	notifications NotificationSink,
	effects *Dispatcher,
	m *metrics.Metrics,
	logger logrus.FieldLogger,
	now func() time.Time,
) InvitationService {
	return &invitationService{
		cfg:           cfg,
		repos:         repos,
		permissions:   permissions,
		sessions:      sessions,
		emailSender:   emailSender,
		notifications: notifications,
		effects:       effects,
		metrics:       m,
		logger:        logger,
		now:           now,
	}
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func emailDomain(e string) string {
	at := strings.LastIndex(e, "@")
	if at < 0 {
		return ""
	}
	return e[at+1:]
}

func validEmail(e string) bool {
	at := strings.LastIndex(e, "@")
	return at > 0 && at < len(e)-1 && !strings.ContainsAny(e, " \t\r\n")
}

func normalizeDomain(d string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "@")
}

// randomString returns n bytes from crypto/rand, URL-safe encoded.
func randomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ============================================
// Generate
// ============================================

func (s *invitationService) GenerateInvitation(ctx context.Context, in GenerateInvitationInput) (*IssuedInvitation, error) {
	addr := normalizeEmail(in.Email)
	if !validEmail(addr) {
		return nil, newError(ErrValidation, "invalid email address")
	}
	role, ok := types.ParseRole(in.Role)
	if !ok {
		return nil, newError(ErrValidation, "invalid role %q", in.Role)
	}
	if role == types.RoleOwner {
		return nil, newError(ErrValidation, "invitations cannot grant the owner role")
	}

	org, err := s.repos.Organizations.FindByID(ctx, in.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("find organization: %w", err)
	}
	if org == nil {
		return nil, newError(ErrNotFound, "organization not found")
	}

	if err := s.permissions.RequirePermission(ctx, in.InviterID, org.ID, types.PermInviteMember, ""); err != nil {
		return nil, err
	}
	inviterRole, err := s.permissions.GetRole(ctx, in.InviterID, org.ID)
	if err != nil {
		return nil, err
	}
	if inviterRole == types.RoleAdmin && role.AtLeast(types.RoleAdmin) {
		return nil, newError(ErrValidation, "admins may only invite members or viewers")
	}

	var project *repository.Project
	if in.ProjectID != "" {
		project, err = s.repos.Projects.FindByID(ctx, in.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("find project: %w", err)
		}
		if project == nil || project.OrganizationID != org.ID {
			return nil, newError(ErrNotFound, "project not found")
		}
	}
	if in.BoardID != "" {
		board, err := s.repos.Projects.FindResourceOwner(ctx, types.ResourceBoard, in.BoardID)
		if err != nil {
			return nil, fmt.Errorf("find board: %w", err)
		}
		if board == nil || board.OrganizationID != org.ID {
			return nil, newError(ErrNotFound, "board not found")
		}
	}

	settings, err := s.repos.Settings.FindByOrganization(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("find organization settings: %w", err)
	}
	if !domainAllowed(org, settings, addr) {
		return nil, ErrDomainNotAllowed
	}

	existing, err := s.repos.Users.FindByEmail(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		member, err := s.repos.Members.FindMember(ctx, org.ID, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("find membership: %w", err)
		}
		if member != nil {
			return nil, ErrAlreadyMember
		}
	}

	token, err := randomString(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	tempPassword, err := randomString(tempPasswordBytes)
	if err != nil {
		return nil, fmt.Errorf("generate temporary password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash temporary password: %w", err)
	}

	inv := &repository.InvitationToken{
		Token:                 token,
		Email:                 addr,
		OrganizationID:        org.ID,
		ProjectID:             strPtr(in.ProjectID),
		BoardID:               strPtr(in.BoardID),
		InvitedRole:           role,
		TemporaryPasswordHash: string(hash),
		InvitedBy:             in.InviterID,
		Message:               strPtr(strings.TrimSpace(in.Message)),
		ExpiresAt:             s.now().Add(InvitationTTL),
	}
	if err := s.repos.Invitations.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	s.metrics.InvitationIssued(string(role))
	s.logger.WithFields(logrus.Fields{
		"invitation_id":   inv.ID,
		"organization_id": org.ID,
		"role":            role,
		"invited_by":      in.InviterID,
	}).Info("invitation issued")

	s.dispatchInvitationEffects(inv, org, project, existing, tempPassword)

	return &IssuedInvitation{Invitation: inv, TemporaryPassword: tempPassword}, nil
}

// domainAllowed reports whether addr may be invited. The allow-list is the
// union of the organization domain, its allowed domains and the invitation
// domains from settings; an empty list allows everything.
func domainAllowed(org *repository.Organization, settings *repository.OrganizationSettings, addr string) bool {
	if settings == nil || !settings.RequireDomainMatch {
		return true
	}

	allowed := make(map[string]struct{})
	add := func(d string) {
		if d = normalizeDomain(d); d != "" {
			allowed[d] = struct{}{}
		}
	}
	if org.Domain != nil {
		add(*org.Domain)
	}
	for _, d := range org.AllowedDomains {
		add(d)
	}
	for _, d := range settings.AllowedInvitationDomains {
		add(d)
	}
	if len(allowed) == 0 {
		return true
	}

	_, ok := allowed[emailDomain(addr)]
	return ok
}

func (s *invitationService) dispatchInvitationEffects(inv *repository.InvitationToken, org *repository.Organization, project *repository.Project, existing *repository.User, tempPassword string) {
	kind := email.KindOrganizationInvite
	switch {
	case inv.BoardID != nil:
		kind = email.KindBoardInvite
	case inv.ProjectID != nil:
		kind = email.KindProjectInvite
	}

	vars := map[string]string{
		"OrganizationName":  org.Name,
		"Role":              string(inv.InvitedRole),
		"AcceptURL":         fmt.Sprintf("%s/accept-invitation?token=%s", s.cfg.FrontendURL, url.QueryEscape(inv.Token)),
		"TemporaryPassword": tempPassword,
		"ExpiresAt":         inv.ExpiresAt.UTC().Format("Jan 2, 2006 15:04 MST"),
	}
	if inv.Message != nil {
		vars["Message"] = *inv.Message
	}
	if project != nil {
		vars["ProjectName"] = project.Name
	}

	recipient := inv.Email
	inviterID := inv.InvitedBy

	s.effects.Go("invitation_email", func(ctx context.Context) error {
		vars["InviterName"] = "A teammate"
		if inviter, err := s.repos.Users.FindByID(ctx, inviterID); err == nil && inviter != nil {
			vars["InviterName"] = inviter.FullName()
		}
		return s.emailSender.Send(ctx, kind, recipient, vars)
	})

	if existing != nil {
		userID := existing.ID
		payload := map[string]interface{}{
			"invitation_id":     inv.ID,
			"organization_id":   org.ID,
			"organization_name": org.Name,
			"role":              inv.InvitedRole,
			"invited_by":        inviterID,
		}
		s.effects.Go("invitation_notification", func(ctx context.Context) error {
			return s.notifications.Create(ctx, userID, org.ID, NotificationInvitationReceived, payload)
		})
	}
}

// ============================================
// Accept
// ============================================

func (s *invitationService) AcceptInvitation(ctx context.Context, in AcceptInvitationInput) (*AcceptanceResult, error) {
	result, err := s.accept(ctx, in)
	s.metrics.InvitationAccepted(acceptanceOutcome(err))
	return result, err
}

func acceptanceOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvitationUsed):
		return "used"
	case errors.Is(err, ErrInvitationExpired):
		return "expired"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuthentication):
		return "bad_password"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrRetryable):
		return "retryable"
	default:
		return "error"
	}
}

func (s *invitationService) accept(ctx context.Context, in AcceptInvitationInput) (*AcceptanceResult, error) {
	if in.Token == "" {
		return nil, newError(ErrNotFound, "invitation not found")
	}
	inv, err := s.repos.Invitations.FindByToken(ctx, in.Token)
	if err != nil {
		return nil, fmt.Errorf("find invitation: %w", err)
	}
	if inv == nil {
		return nil, newError(ErrNotFound, "invitation not found")
	}

	now := s.now()
	if inv.IsUsed {
		return nil, ErrInvitationUsed
	}
	if inv.Expired(now) {
		return nil, ErrInvitationExpired
	}
	if normalizeEmail(in.Email) != normalizeEmail(inv.Email) {
		return nil, ErrEmailMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(inv.TemporaryPasswordHash), []byte(in.TemporaryPassword)); err != nil {
		return nil, ErrInvalidTemporaryPassword
	}
	if utf8.RuneCountInString(in.NewPassword) < MinPasswordLength {
		return nil, newError(ErrValidation, "new password must be at least %d characters", MinPasswordLength)
	}
	if len(in.NewPassword) > MaxPasswordBytes {
		return nil, newError(ErrValidation, "new password must be at most %d bytes", MaxPasswordBytes)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var (
		user        *repository.User
		userCreated bool
		session     *Session
	)

	err = s.repos.Tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		won, err := tx.Invitations.MarkUsed(ctx, inv.ID, now)
		if err != nil {
			return fmt.Errorf("mark invitation used: %w", err)
		}
		if !won {
			return ErrInvitationUsed
		}

		user, err = tx.Users.FindByEmail(ctx, inv.Email)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if user != nil {
			if err := tx.Users.UpdatePassword(ctx, user.ID, string(passwordHash)); err != nil {
				return fmt.Errorf("update password: %w", err)
			}
		} else {
			user = &repository.User{
				Email:        normalizeEmail(inv.Email),
				FirstName:    strings.TrimSpace(in.FirstName),
				LastName:     strings.TrimSpace(in.LastName),
				PasswordHash: string(passwordHash),
			}
			if err := tx.Users.Create(ctx, user); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return newError(ErrRetryable, "account is being created concurrently, please retry")
				}
				return fmt.Errorf("create user: %w", err)
			}
			userCreated = true
		}

		if _, err := tx.Members.AddMember(ctx, &repository.OrganizationMember{
			OrganizationID: inv.OrganizationID,
			UserID:         user.ID,
			Role:           inv.InvitedRole,
			InvitedBy:      &inv.InvitedBy,
		}); err != nil {
			return fmt.Errorf("add member: %w", err)
		}

		if err := switchOrganization(ctx, tx.Members, tx.Contexts, user.ID, inv.OrganizationID, now); err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("could not set organization context on acceptance")
			return newError(ErrRetryable, "could not set organization context, please retry")
		}

		sctx, cancel := context.WithTimeout(ctx, s.cfg.CollaboratorTimeout)
		defer cancel()
		session, err = s.sessions.CreateSession(sctx, SessionRequest{
			UserID:         user.ID,
			OrganizationID: inv.OrganizationID,
			IPAddress:      in.IPAddress,
			UserAgent:      in.UserAgent,
			Duration:       s.cfg.SessionDuration,
		})
		if err != nil {
			session = nil
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("session creation failed on acceptance")
			return newError(ErrRetryable, "could not create session, please retry")
		}
		return nil
	})
	if err != nil {
		if session != nil {
			s.revokeSession(session.SessionID)
		}
		if errors.Is(err, repository.ErrTxCommit) {
			return nil, newError(ErrRetryable, "could not complete acceptance, please retry")
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"invitation_id":   inv.ID,
		"organization_id": inv.OrganizationID,
		"user_id":         user.ID,
		"role":            inv.InvitedRole,
		"user_created":    userCreated,
	}).Info("invitation accepted")

	s.dispatchAcceptanceEffects(inv, user)

	return &AcceptanceResult{
		UserID:         user.ID,
		OrganizationID: inv.OrganizationID,
		Role:           inv.InvitedRole,
		Session:        session,
		RedirectURL:    RedirectForRole(inv.InvitedRole),
		UserCreated:    userCreated,
	}, nil
}

func (s *invitationService) revokeSession(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CollaboratorTimeout)
	defer cancel()
	if err := s.sessions.RevokeSession(ctx, sessionID); err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Error("failed to revoke session after rolled back acceptance")
	}
}

func (s *invitationService) dispatchAcceptanceEffects(inv *repository.InvitationToken, user *repository.User) {
	orgID := inv.OrganizationID
	role := inv.InvitedRole
	inviterID := inv.InvitedBy
	userID := user.ID
	recipient := user.Email
	name := user.FullName()
	if name == "" {
		name = recipient
	}

	s.effects.Go("welcome_notification", func(ctx context.Context) error {
		return s.notifications.Create(ctx, userID, orgID, NotificationMemberWelcome, map[string]interface{}{
			"organization_id": orgID,
			"role":            role,
		})
	})

	s.effects.Go("accepted_notification", func(ctx context.Context) error {
		return s.notifications.Create(ctx, inviterID, orgID, NotificationInvitationAccepted, map[string]interface{}{
			"invitation_id": inv.ID,
			"user_id":       userID,
			"email":         recipient,
			"role":          role,
		})
	})

	s.effects.Go("welcome_email", func(ctx context.Context) error {
		orgName := "your organization"
		if org, err := s.repos.Organizations.FindByID(ctx, orgID); err == nil && org != nil {
			orgName = org.Name
		}
		return s.emailSender.Send(ctx, email.KindWelcome, recipient, map[string]string{
			"OrganizationName": orgName,
			"Name":             name,
			"Role":             string(role),
			"DashboardURL":     s.cfg.FrontendURL + RedirectForRole(role),
		})
	})
}

// ============================================
// Cancel / list / purge
// ============================================

func (s *invitationService) CancelInvitation(ctx context.Context, invitationID, requesterID string) (bool, error) {
	inv, err := s.repos.Invitations.FindByID(ctx, invitationID)
	if err != nil {
		return false, fmt.Errorf("find invitation: %w", err)
	}
	if inv == nil {
		return false, newError(ErrNotFound, "invitation not found")
	}
	if inv.InvitedBy != requesterID || inv.IsUsed {
		return false, nil
	}

	deleted, err := s.repos.Invitations.DeleteUnused(ctx, inv.ID)
	if err != nil {
		return false, fmt.Errorf("delete invitation: %w", err)
	}
	if deleted {
		s.logger.WithFields(logrus.Fields{
			"invitation_id":   inv.ID,
			"organization_id": inv.OrganizationID,
		}).Info("invitation cancelled")
	}
	return deleted, nil
}

func (s *invitationService) GetPendingInvitations(ctx context.Context, orgID string) ([]*repository.InvitationToken, error) {
	invitations, err := s.repos.Invitations.FindPending(ctx, orgID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list pending invitations: %w", err)
	}
	return invitations, nil
}

func (s *invitationService) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.repos.Invitations.DeleteExpiredBefore(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("purge expired invitations: %w", err)
	}
	s.metrics.InvitationsPurged(int(n))
	return n, nil
}
