package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/types"
)

type pgProjectRepository struct {
	db sqlx.ExtContext
}

func NewProjectRepository(db sqlx.ExtContext) ProjectRepository {
	return &pgProjectRepository{db: db}
}

func (r *pgProjectRepository) FindByID(ctx context.Context, id string) (*Project, error) {
	query := `SELECT id, organization_id, name, created_by, created_at FROM projects WHERE id = $1`
	project := &Project{}
	found, err := getOne(ctx, r.db, project, query, id)
	if err != nil || !found {
		return nil, err
	}
	return project, nil
}

func (r *pgProjectRepository) ListIDsByOrganization(ctx context.Context, orgID string) ([]string, error) {
	query := `SELECT id FROM projects WHERE organization_id = $1 ORDER BY created_at, id`
	ids := []string{}
	if err := sqlx.SelectContext(ctx, r.db, &ids, query, orgID); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *pgProjectRepository) ListIDsAssignedToUser(ctx context.Context, orgID, userID string) ([]string, error) {
	query := `
		SELECT DISTINCT p.id
		FROM projects p
		JOIN boards b ON b.project_id = p.id
		JOIN board_columns bc ON bc.board_id = b.id
		JOIN cards c ON c.column_id = bc.id
		JOIN card_assignments ca ON ca.card_id = c.id
		WHERE p.organization_id = $1 AND ca.user_id = $2
		ORDER BY p.id
	`
	ids := []string{}
	if err := sqlx.SelectContext(ctx, r.db, &ids, query, orgID, userID); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *pgProjectRepository) FindResourceOwner(ctx context.Context, kind types.ResourceKind, id string) (*ResourceOwner, error) {
	var query string
	switch kind {
	case types.ResourceBoard:
		query = `
			SELECT p.organization_id, b.created_by
			FROM boards b
			JOIN projects p ON p.id = b.project_id
			WHERE b.id = $1
		`
	case types.ResourceCard:
		query = `
			SELECT p.organization_id, c.created_by
			FROM cards c
			JOIN board_columns bc ON bc.id = c.column_id
			JOIN boards b ON b.id = bc.board_id
			JOIN projects p ON p.id = b.project_id
			WHERE c.id = $1
		`
	default:
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}

	owner := &ResourceOwner{}
	found, err := getOne(ctx, r.db, owner, query, id)
	if err != nil || !found {
		return nil, err
	}
	return owner, nil
}
