package service

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/config"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/logging"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/metrics"
)

var testEpoch = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:           "test-secret",
		JWTExpiry:           1,
		BcryptCost:          bcrypt.MinCost,
		SessionDuration:     24 * time.Hour,
		CollaboratorTimeout: 2 * time.Second,
		FrontendURL:         "https://app.example.test",
	}
}

type harness struct {
	store    *memStore
	sessions *fakeSessions
	mail     *fakeMailer
	notes    *fakeNotifier
	clock    *fakeClock
	metrics  *metrics.Metrics
	effects  *Dispatcher
	cfg      *config.Config

	permissions PermissionService
	contexts    OrganizationContextService
	invitations InvitationService
	gate        AccessGate
	members     MemberService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:    newMemStore(),
		sessions: &fakeSessions{},
		mail:     &fakeMailer{},
		notes:    &fakeNotifier{},
		clock:    newFakeClock(testEpoch),
		metrics:  metrics.NewMetrics(prometheus.NewRegistry()),
		cfg:      testConfig(),
	}
	logger := logging.Discard()
	repos := h.store.repositories()

	h.effects = NewDispatcher(h.cfg.CollaboratorTimeout, h.metrics, logger)
	h.permissions = NewPermissionService(repos.Members, repos.Settings, repos.Projects, h.metrics, logger)
	h.contexts = NewOrganizationContextService(repos.Members, repos.Contexts, h.clock.Now, logger)
	h.invitations = NewInvitationService(h.cfg, repos, h.permissions, h.sessions, h.mail, h.notes, h.effects, h.metrics, logger, h.clock.Now)
	h.gate = NewAccessGate(h.permissions, h.contexts)
	h.members = NewMemberService(repos.Members, h.permissions, h.notes, h.effects, logger)

	t.Cleanup(h.effects.Wait)
	return h
}

// seedOrg creates an organization with an owner and returns (orgID, ownerID).
func (h *harness) seedOrg(name, domain string, allowed ...string) (string, string) {
	ownerID := h.store.addUser(strings.ToLower(name) + "-owner@" + fallbackDomain(domain))
	orgID := h.store.addOrg(name, domain, ownerID, allowed...)
	return orgID, ownerID
}

func fallbackDomain(d string) string {
	if d == "" {
		return "example.test"
	}
	return d
}
