package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/config"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/email"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/logging"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/metrics"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/repository"
)

// ============================================
// Collaborators
// ============================================

type SessionRequest struct {
	UserID         string
	OrganizationID string
	IPAddress      string
	UserAgent      string
	Duration       time.Duration
}

type Session struct {
	SessionID    string    `json:"session_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SessionIssuer creates the authenticated session handed back on
// invitation acceptance.
type SessionIssuer interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	RevokeSession(ctx context.Context, sessionID string) error
}

type EmailSender interface {
	Send(ctx context.Context, kind email.TemplateKind, to string, vars map[string]string) error
}

type NotificationSink interface {
	Create(ctx context.Context, userID, orgID, notificationType string, payload map[string]interface{}) error
}

// Notification types
const (
	NotificationInvitationReceived = "invitation_received"
	NotificationInvitationAccepted = "invitation_accepted"
	NotificationMemberWelcome      = "member_welcome"
	NotificationRoleChanged        = "role_changed"
)

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth       AuthService
	Permission PermissionService
	Context    OrganizationContextService
	Invitation InvitationService
	Gate       AccessGate
	Member     MemberService

	effects *Dispatcher
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Config        *config.Config
	Repos         *repository.Repositories
	Sessions      SessionStore
	Email         EmailSender
	Notifications NotificationSink
	Metrics       *metrics.Metrics
	Logger        logrus.FieldLogger
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewServices(deps *ServiceDeps) *Services {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	effects := NewDispatcher(deps.Config.CollaboratorTimeout, deps.Metrics, logging.Component(logger, "effects"))

	permissionService := NewPermissionService(
		deps.Repos.Members,
		deps.Repos.Settings,
		deps.Repos.Projects,
		deps.Metrics,
		logging.Component(logger, "permission"),
	)
	contextService := NewOrganizationContextService(
		deps.Repos.Members,
		deps.Repos.Contexts,
		now,
		logging.Component(logger, "context"),
	)
	authService := NewAuthService(deps.Config, deps.Repos.Users, deps.Sessions, logging.Component(logger, "auth"), now)

	return &Services{
		Auth:       authService,
		Permission: permissionService,
		Context:    contextService,
		Invitation: NewInvitationService(
			deps.Config,
			deps.Repos,
			permissionService,
			authService,
			deps.Email,
			deps.Notifications,
			effects,
			deps.Metrics,
			logging.Component(logger, "invitation"),
			now,
		),
		Gate: NewAccessGate(permissionService, contextService),
		Member: NewMemberService(
			deps.Repos.Members,
			permissionService,
			deps.Notifications,
			effects,
			logging.Component(logger, "member"),
		),
		effects: effects,
	}
}

// Drain waits for background side effects to finish.
func (s *Services) Drain() {
	s.effects.Wait()
}
