package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/types"
)

type pgOrganizationRepository struct {
	db sqlx.ExtContext
}

func NewOrganizationRepository(db sqlx.ExtContext) OrganizationRepository {
	return &pgOrganizationRepository{db: db}
}

func (r *pgOrganizationRepository) FindByID(ctx context.Context, id string) (*Organization, error) {
	query := `
		SELECT id, name, domain, allowed_domains, owner_id, created_at, updated_at
		FROM organizations WHERE id = $1
	`
	org := &Organization{}
	found, err := getOne(ctx, r.db, org, query, id)
	if err != nil || !found {
		return nil, err
	}
	return org, nil
}

// ============================================
// Members
// ============================================

type pgMemberRepository struct {
	db sqlx.ExtContext
}

func NewMemberRepository(db sqlx.ExtContext) MemberRepository {
	return &pgMemberRepository{db: db}
}

func (r *pgMemberRepository) FindMember(ctx context.Context, orgID, userID string) (*OrganizationMember, error) {
	query := `
		SELECT id, organization_id, user_id, role, invited_by, joined_at
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2
	`
	member := &OrganizationMember{}
	found, err := getOne(ctx, r.db, member, query, orgID, userID)
	if err != nil || !found {
		return nil, err
	}
	return member, nil
}

func (r *pgMemberRepository) AddMember(ctx context.Context, member *OrganizationMember) (bool, error) {
	query := `
		INSERT INTO organization_members (organization_id, user_id, role, invited_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (organization_id, user_id) DO NOTHING
		RETURNING id, joined_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		member.OrganizationID, member.UserID, member.Role, member.InvitedBy,
	).Scan(&member.ID, &member.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *pgMemberRepository) ListByOrganization(ctx context.Context, orgID string) ([]*OrganizationMember, error) {
	query := `
		SELECT m.id, m.organization_id, m.user_id, m.role, m.invited_by, m.joined_at,
		       u.email, u.first_name, u.last_name
		FROM organization_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1
		ORDER BY m.joined_at, m.user_id
	`
	var members []*OrganizationMember
	if err := sqlx.SelectContext(ctx, r.db, &members, query, orgID); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *pgMemberRepository) ListByUser(ctx context.Context, userID string) ([]*OrganizationMember, error) {
	query := `
		SELECT id, organization_id, user_id, role, invited_by, joined_at
		FROM organization_members
		WHERE user_id = $1
		ORDER BY joined_at, organization_id
	`
	var members []*OrganizationMember
	if err := sqlx.SelectContext(ctx, r.db, &members, query, userID); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *pgMemberRepository) UpdateRole(ctx context.Context, orgID, userID string, role types.Role) error {
	query := `UPDATE organization_members SET role = $3 WHERE organization_id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, orgID, userID, role)
	return err
}

// ============================================
// Settings
// ============================================

type pgSettingsRepository struct {
	db sqlx.ExtContext
}

func NewSettingsRepository(db sqlx.ExtContext) SettingsRepository {
	return &pgSettingsRepository{db: db}
}

func (r *pgSettingsRepository) FindByOrganization(ctx context.Context, orgID string) (*OrganizationSettings, error) {
	query := `
		SELECT organization_id, allow_admin_create_projects, allow_member_create_projects,
		       allow_admin_schedule_meetings, allow_member_schedule_meetings,
		       require_domain_match, allowed_invitation_domains, updated_at
		FROM organization_settings WHERE organization_id = $1
	`
	settings := &OrganizationSettings{}
	found, err := getOne(ctx, r.db, settings, query, orgID)
	if err != nil || !found {
		return nil, err
	}
	return settings, nil
}

// ============================================
// Organization context
// ============================================

type pgContextRepository struct {
	db sqlx.ExtContext
}

func NewContextRepository(db sqlx.ExtContext) ContextRepository {
	return &pgContextRepository{db: db}
}

func (r *pgContextRepository) Find(ctx context.Context, userID string) (*UserOrganizationContext, error) {
	query := `
		SELECT user_id, current_organization_id, last_switched_at
		FROM user_organization_contexts WHERE user_id = $1
	`
	uoc := &UserOrganizationContext{}
	found, err := getOne(ctx, r.db, uoc, query, userID)
	if err != nil || !found {
		return nil, err
	}
	return uoc, nil
}

func (r *pgContextRepository) Upsert(ctx context.Context, userID, orgID string, switchedAt time.Time) error {
	query := `
		INSERT INTO user_organization_contexts (user_id, current_organization_id, last_switched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET current_organization_id = EXCLUDED.current_organization_id,
		    last_switched_at = EXCLUDED.last_switched_at
	`
	_, err := r.db.ExecContext(ctx, query, userID, orgID, switchedAt)
	return err
}
