package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/types"
)

// InvitationToken is a single-use, time-boxed credential. Expiry is derived
// from ExpiresAt and never stored as a flag.
type InvitationToken struct {
	ID                    string     `db:"id"`
	Token                 string     `db:"token"`
	Email                 string     `db:"email"`
	OrganizationID        string     `db:"organization_id"`
	ProjectID             *string    `db:"project_id"`
	BoardID               *string    `db:"board_id"`
	InvitedRole           types.Role `db:"invited_role"`
	TemporaryPasswordHash string     `db:"temporary_password_hash"`
	InvitedBy             string     `db:"invited_by"`
	Message               *string    `db:"message"`
	ExpiresAt             time.Time  `db:"expires_at"`
	IsUsed                bool       `db:"is_used"`
	UsedAt                *time.Time `db:"used_at"`
	CreatedAt             time.Time  `db:"created_at"`
}

// Expired reports whether now is strictly past the expiry.
func (t *InvitationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

const invitationColumns = `id, token, email, organization_id, project_id, board_id, invited_role,
	temporary_password_hash, invited_by, message, expires_at, is_used, used_at, created_at`

type pgInvitationRepository struct {
	db sqlx.ExtContext
}

func NewInvitationRepository(db sqlx.ExtContext) InvitationRepository {
	return &pgInvitationRepository{db: db}
}

func (r *pgInvitationRepository) Create(ctx context.Context, invitation *InvitationToken) error {
	query := `
		INSERT INTO invitation_tokens (token, email, organization_id, project_id, board_id, invited_role,
			temporary_password_hash, invited_by, message, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		invitation.Token, invitation.Email, invitation.OrganizationID, invitation.ProjectID,
		invitation.BoardID, invitation.InvitedRole, invitation.TemporaryPasswordHash,
		invitation.InvitedBy, invitation.Message, invitation.ExpiresAt,
	).Scan(&invitation.ID, &invitation.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("invitation token: %w", ErrDuplicate)
	}
	return err
}

func (r *pgInvitationRepository) FindByID(ctx context.Context, id string) (*InvitationToken, error) {
	invitation := &InvitationToken{}
	found, err := getOne(ctx, r.db, invitation, `SELECT `+invitationColumns+` FROM invitation_tokens WHERE id = $1`, id)
	if err != nil || !found {
		return nil, err
	}
	return invitation, nil
}

func (r *pgInvitationRepository) FindByToken(ctx context.Context, token string) (*InvitationToken, error) {
	invitation := &InvitationToken{}
	found, err := getOne(ctx, r.db, invitation, `SELECT `+invitationColumns+` FROM invitation_tokens WHERE token = $1`, token)
	if err != nil || !found {
		return nil, err
	}
	return invitation, nil
}

func (r *pgInvitationRepository) FindPending(ctx context.Context, orgID string, now time.Time) ([]*InvitationToken, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitation_tokens
		WHERE organization_id = $1 AND is_used = FALSE AND expires_at >= $2
		ORDER BY created_at DESC
	`
	var invitations []*InvitationToken
	if err := sqlx.SelectContext(ctx, r.db, &invitations, query, orgID, now); err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *pgInvitationRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) (bool, error) {
	query := `UPDATE invitation_tokens SET is_used = TRUE, used_at = $2 WHERE id = $1 AND is_used = FALSE AND expires_at >= $2`
	result, err := r.db.ExecContext(ctx, query, id, usedAt)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *pgInvitationRepository) DeleteUnused(ctx context.Context, id string) (bool, error) {
	query := `DELETE FROM invitation_tokens WHERE id = $1 AND is_used = FALSE`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *pgInvitationRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM invitation_tokens WHERE is_used = FALSE AND expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
