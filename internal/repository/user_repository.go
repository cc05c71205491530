package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, first_name, last_name, password_hash, password_reset_required, email_verified, created_at, updated_at`

type pgUserRepository struct {
	db sqlx.ExtContext
}

func NewUserRepository(db sqlx.ExtContext) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (email, first_name, last_name, password_hash, password_reset_required, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		user.Email, user.FirstName, user.LastName, user.PasswordHash,
		user.PasswordResetRequired, user.EmailVerified,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %q: %w", user.Email, ErrDuplicate)
	}
	return err
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	user := &User{}
	found, err := getOne(ctx, r.db, user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil || !found {
		return nil, err
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	found, err := getOne(ctx, r.db, user, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil || !found {
		return nil, err
	}
	return user, nil
}

func (r *pgUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, password_reset_required = FALSE, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, userID, passwordHash)
	return err
}
