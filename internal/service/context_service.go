package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/repository"
)

// OrganizationContextService tracks the organization a user is acting in.
// The context is advisory; every authorization check re-reads membership.
type OrganizationContextService interface {
	SwitchOrganization(ctx context.Context, userID, orgID string) error
	// GetCurrentOrganization returns "" when the user has no memberships.
	GetCurrentOrganization(ctx context.Context, userID string) (string, error)
}

type contextService struct {
	memberRepo  repository.MemberRepository
	contextRepo repository.ContextRepository
	now         func() time.Time
	logger      logrus.FieldLogger
}

func NewOrganizationContextService(
	memberRepo repository.MemberRepository,
	contextRepo repository.ContextRepository,
	now func() time.Time,
	logger logrus.FieldLogger,
) OrganizationContextService {
	return &contextService{
		memberRepo:  memberRepo,
		contextRepo: contextRepo,
		now:         now,
		logger:      logger,
	}
}

func (s *contextService) SwitchOrganization(ctx context.Context, userID, orgID string) error {
	return switchOrganization(ctx, s.memberRepo, s.contextRepo, userID, orgID, s.now())
}

// switchOrganization is shared with invitation acceptance, which passes
// transaction-bound repositories.
func switchOrganization(ctx context.Context, members repository.MemberRepository, contexts repository.ContextRepository, userID, orgID string, now time.Time) error {
	member, err := members.FindMember(ctx, orgID, userID)
	if err != nil {
		return fmt.Errorf("find membership: %w", err)
	}
	if member == nil {
		return newError(ErrInsufficientPermissions, "not a member of this organization")
	}
	if err := contexts.Upsert(ctx, userID, orgID, now); err != nil {
		return fmt.Errorf("save organization context: %w", err)
	}
	return nil
}

func (s *contextService) GetCurrentOrganization(ctx context.Context, userID string) (string, error) {
	current, err := s.contextRepo.Find(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("find organization context: %w", err)
	}

	if current != nil {
		member, err := s.memberRepo.FindMember(ctx, current.CurrentOrganizationID, userID)
		if err != nil {
			return "", fmt.Errorf("find membership: %w", err)
		}
		if member != nil {
			return current.CurrentOrganizationID, nil
		}
		s.logger.WithFields(logrus.Fields{
			"user_id":         userID,
			"organization_id": current.CurrentOrganizationID,
		}).Info("stale organization context, falling back to first membership")
	}

	memberships, err := s.memberRepo.ListByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list memberships: %w", err)
	}
	if len(memberships) == 0 {
		return "", nil
	}

	orgID := memberships[0].OrganizationID
	if err := s.SwitchOrganization(ctx, userID, orgID); err != nil {
		return "", err
	}
	return orgID, nil
}
