// internal/repository/repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	sqlxtypes "github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/types"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("repository: duplicate key")

// ============================================
// Models / Entities
// ============================================

type User struct {
	ID                    string    `db:"id"`
	Email                 string    `db:"email"`
	FirstName             string    `db:"first_name"`
	LastName              string    `db:"last_name"`
	PasswordHash          string    `db:"password_hash"`
	PasswordResetRequired bool      `db:"password_reset_required"`
	EmailVerified         bool      `db:"email_verified"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type Organization struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	Domain         *string        `db:"domain"`
	AllowedDomains pq.StringArray `db:"allowed_domains"`
	OwnerID        string         `db:"owner_id"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type OrganizationMember struct {
	ID             string     `db:"id"`
	OrganizationID string     `db:"organization_id"`
	UserID         string     `db:"user_id"`
	Role           types.Role `db:"role"`
	InvitedBy      *string    `db:"invited_by"`
	JoinedAt       time.Time  `db:"joined_at"`

	// Populated by ListByOrganization only.
	Email     string `db:"email"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
}

// OrganizationSettings holds the per-organization toggles that condition
// CREATE_PROJECT and the meeting permissions.
type OrganizationSettings struct {
	OrganizationID              string         `db:"organization_id"`
	AllowAdminCreateProjects    bool           `db:"allow_admin_create_projects"`
	AllowMemberCreateProjects   bool           `db:"allow_member_create_projects"`
	AllowAdminScheduleMeetings  bool           `db:"allow_admin_schedule_meetings"`
	AllowMemberScheduleMeetings bool           `db:"allow_member_schedule_meetings"`
	RequireDomainMatch          bool           `db:"require_domain_match"`
	AllowedInvitationDomains    pq.StringArray `db:"allowed_invitation_domains"`
	UpdatedAt                   time.Time      `db:"updated_at"`
}

type UserOrganizationContext struct {
	UserID                string    `db:"user_id"`
	CurrentOrganizationID string    `db:"current_organization_id"`
	LastSwitchedAt        time.Time `db:"last_switched_at"`
}

type Project struct {
	ID             string    `db:"id"`
	OrganizationID string    `db:"organization_id"`
	Name           string    `db:"name"`
	CreatedBy      *string   `db:"created_by"`
	CreatedAt      time.Time `db:"created_at"`
}

// ResourceOwner is the organization and author of a board or card.
type ResourceOwner struct {
	OrganizationID string  `db:"organization_id"`
	CreatedBy      *string `db:"created_by"`
}

type Notification struct {
	ID             string             `db:"id"`
	UserID         string             `db:"user_id"`
	OrganizationID *string            `db:"organization_id"`
	Type           string             `db:"type"`
	Payload        sqlxtypes.JSONText `db:"payload"`
	Read           bool               `db:"read"`
	CreatedAt      time.Time          `db:"created_at"`
}

// ============================================
// Repository Interfaces
// ============================================

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// UpdatePassword sets a new hash and clears password_reset_required.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type OrganizationRepository interface {
	FindByID(ctx context.Context, id string) (*Organization, error)
}

type MemberRepository interface {
	FindMember(ctx context.Context, orgID, userID string) (*OrganizationMember, error)
	// AddMember inserts the membership unless one already exists and
	// reports whether a row was created.
	AddMember(ctx context.Context, member *OrganizationMember) (bool, error)
	ListByOrganization(ctx context.Context, orgID string) ([]*OrganizationMember, error)
	// ListByUser is ordered by (joined_at, organization_id).
	ListByUser(ctx context.Context, userID string) ([]*OrganizationMember, error)
	UpdateRole(ctx context.Context, orgID, userID string, role types.Role) error
}

type SettingsRepository interface {
	FindByOrganization(ctx context.Context, orgID string) (*OrganizationSettings, error)
}

type ContextRepository interface {
	Find(ctx context.Context, userID string) (*UserOrganizationContext, error)
	Upsert(ctx context.Context, userID, orgID string, switchedAt time.Time) error
}

type InvitationRepository interface {
	Create(ctx context.Context, invitation *InvitationToken) error
	FindByID(ctx context.Context, id string) (*InvitationToken, error)
	FindByToken(ctx context.Context, token string) (*InvitationToken, error)
	// FindPending returns unused tokens with expires_at >= now, newest first.
	FindPending(ctx context.Context, orgID string, now time.Time) ([]*InvitationToken, error)
	// MarkUsed flips is_used only if it is still false and the token has
	// not expired at usedAt, and reports whether this call won.
	MarkUsed(ctx context.Context, id string, usedAt time.Time) (bool, error)
	// DeleteUnused removes the row only if it has not been used.
	DeleteUnused(ctx context.Context, id string) (bool, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ProjectRepository interface {
	FindByID(ctx context.Context, id string) (*Project, error)
	ListIDsByOrganization(ctx context.Context, orgID string) ([]string, error)
	// ListIDsAssignedToUser joins project -> board -> column -> card ->
	// assignment and returns distinct project ids.
	ListIDsAssignedToUser(ctx context.Context, orgID, userID string) ([]string, error)
	FindResourceOwner(ctx context.Context, kind types.ResourceKind, id string) (*ResourceOwner, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
	FindByUserID(ctx context.Context, userID string, limit int) ([]*Notification, error)
}

// ============================================
// Helpers
// ============================================

// getOne runs a single-row query. A missing row is (false, nil), and so
// is a lookup by an id that is not a valid UUID.
func getOne(ctx context.Context, q sqlx.QueryerContext, dest interface{}, query string, args ...interface{}) (bool, error) {
	err := sqlx.GetContext(ctx, q, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) || isInvalidTextRepresentation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isInvalidTextRepresentation matches 22P02, raised when a malformed id is
// compared against a UUID column.
func isInvalidTextRepresentation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
