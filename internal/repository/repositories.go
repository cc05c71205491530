package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrTxCommit wraps a failed commit. None of the transaction's writes are visible.
var ErrTxCommit = errors.New("commit transaction")

// Transactor runs fn against repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos *Repositories) error) error
}

type Repositories struct {
	Users         UserRepository
	Organizations OrganizationRepository
	Members       MemberRepository
	Settings      SettingsRepository
	Contexts      ContextRepository
	Invitations   InvitationRepository
	Projects      ProjectRepository
	Notifications NotificationRepository

	Tx Transactor
}

func NewRepositories(db *sqlx.DB) *Repositories {
	repos := bind(db)
	repos.Tx = &sqlTransactor{db: db}
	return repos
}

func bind(q sqlx.ExtContext) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(q),
		Organizations: NewOrganizationRepository(q),
		Members:       NewMemberRepository(q),
		Settings:      NewSettingsRepository(q),
		Contexts:      NewContextRepository(q),
		Invitations:   NewInvitationRepository(q),
		Projects:      NewProjectRepository(q),
		Notifications: NewNotificationRepository(q),
	}
}

type sqlTransactor struct {
	db *sqlx.DB
}

func (t *sqlTransactor) WithinTx(ctx context.Context, fn func(repos *Repositories) error) (err error) {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	repos := bind(tx)
	repos.Tx = nestedTransactor{repos: repos}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(repos); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrTxCommit, err)
	}
	return nil
}

// nestedTransactor joins the enclosing transaction.
type nestedTransactor struct {
	repos *Repositories
}

func (n nestedTransactor) WithinTx(_ context.Context, fn func(repos *Repositories) error) error {
	return fn(n.repos)
}
