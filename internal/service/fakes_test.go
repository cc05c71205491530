package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/email"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/repository"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/types"
)

// ============================================
// In-memory store
// ============================================

type board struct {
	ProjectID string
	CreatedBy string
}

type card struct {
	BoardID   string
	CreatedBy string
}

type memData struct {
	users         map[string]*repository.User
	orgs          map[string]*repository.Organization
	members       map[string]*repository.OrganizationMember
	settings      map[string]*repository.OrganizationSettings
	contexts      map[string]*repository.UserOrganizationContext
	invitations   map[string]*repository.InvitationToken
	projects      map[string]*repository.Project
	boards        map[string]*board
	cards         map[string]*card
	assignments   map[string][]string // card id -> user ids
	notifications []*repository.Notification
}

func cloneMap[V any](m map[string]*V) map[string]*V {
	out := make(map[string]*V, len(m))
	for k, v := range m {
		c := *v
		out[k] = &c
	}
	return out
}

func (d *memData) clone() *memData {
	assignments := make(map[string][]string, len(d.assignments))
	for k, v := range d.assignments {
		assignments[k] = append([]string(nil), v...)
	}
	return &memData{
		users:         cloneMap(d.users),
		orgs:          cloneMap(d.orgs),
		members:       cloneMap(d.members),
		settings:      cloneMap(d.settings),
		contexts:      cloneMap(d.contexts),
		invitations:   cloneMap(d.invitations),
		projects:      cloneMap(d.projects),
		boards:        cloneMap(d.boards),
		cards:         cloneMap(d.cards),
		assignments:   assignments,
		notifications: append([]*repository.Notification(nil), d.notifications...),
	}
}

type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data *memData
	seq  int
	base time.Time

	// failures injected by tests
	memberErr  error
	commitErr  error
	contextErr error

	// staleInvitationReads makes FindByToken report every token unused.
	staleInvitationReads bool
}

func newMemStore() *memStore {
	return &memStore{
		base: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		data: &memData{
			users:       map[string]*repository.User{},
			orgs:        map[string]*repository.Organization{},
			members:     map[string]*repository.OrganizationMember{},
			settings:    map[string]*repository.OrganizationSettings{},
			contexts:    map[string]*repository.UserOrganizationContext{},
			invitations: map[string]*repository.InvitationToken{},
			projects:    map[string]*repository.Project{},
			boards:      map[string]*board{},
			cards:       map[string]*card{},
			assignments: map[string][]string{},
		},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// tick returns strictly increasing timestamps for created_at / joined_at.
func (s *memStore) tick() time.Time {
	s.seq++
	return s.base.Add(time.Duration(s.seq) * time.Second)
}

func memberKey(orgID, userID string) string {
	return orgID + "|" + userID
}

func (s *memStore) repositories() *repository.Repositories {
	return &repository.Repositories{
		Users:         &memUsers{s},
		Organizations: &memOrgs{s},
		Members:       &memMembers{s},
		Settings:      &memSettings{s},
		Contexts:      &memContexts{s},
		Invitations:   &memInvitations{s},
		Projects:      &memProjects{s},
		Notifications: &memNotifications{s},
		Tx:            &memTransactor{s},
	}
}

type memTransactor struct{ s *memStore }

func (t *memTransactor) WithinTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	t.s.mu.Lock()
	snapshot := t.s.data.clone()
	t.s.mu.Unlock()

	repos := t.s.repositories()
	repos.Tx = nestedMemTx{repos}

	err := fn(repos)
	if err == nil && t.s.commitErr != nil {
		err = fmt.Errorf("%w: %v", repository.ErrTxCommit, t.s.commitErr)
	}
	if err != nil {
		t.s.mu.Lock()
		t.s.data = snapshot
		t.s.mu.Unlock()
		return err
	}
	return nil
}

type nestedMemTx struct{ repos *repository.Repositories }

func (n nestedMemTx) WithinTx(_ context.Context, fn func(repos *repository.Repositories) error) error {
	return fn(n.repos)
}

// ---- seed helpers ----

func (s *memStore) addUser(addr string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("user")
	now := s.tick()
	s.data.users[id] = &repository.User{ID: id, Email: addr, FirstName: strings.Split(addr, "@")[0], PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	return id
}

func (s *memStore) addOrg(name, domain, ownerID string, allowed ...string) string {
	s.mu.Lock()
	id := s.nextID("org")
	var d *string
	if domain != "" {
		d = &domain
	}
	s.data.orgs[id] = &repository.Organization{ID: id, Name: name, Domain: d, AllowedDomains: allowed, OwnerID: ownerID, CreatedAt: s.tick()}
	s.mu.Unlock()
	s.addMember(id, ownerID, types.RoleOwner)
	return id
}

func (s *memStore) addMember(orgID, userID string, role types.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.members[memberKey(orgID, userID)] = &repository.OrganizationMember{
		ID: s.nextID("member"), OrganizationID: orgID, UserID: userID, Role: role, JoinedAt: s.tick(),
	}
}

func (s *memStore) setSettings(orgID string, fn func(*repository.OrganizationSettings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings := &repository.OrganizationSettings{
		OrganizationID:             orgID,
		AllowAdminCreateProjects:   true,
		AllowAdminScheduleMeetings: true,
	}
	fn(settings)
	s.data.settings[orgID] = settings
}

func (s *memStore) addProject(orgID, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("project")
	s.data.projects[id] = &repository.Project{ID: id, OrganizationID: orgID, Name: name, CreatedAt: s.tick()}
	return id
}

func (s *memStore) addBoard(projectID, createdBy string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("board")
	s.data.boards[id] = &board{ProjectID: projectID, CreatedBy: createdBy}
	return id
}

func (s *memStore) addCard(boardID, createdBy string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("card")
	s.data.cards[id] = &card{BoardID: boardID, CreatedBy: createdBy}
	return id
}

func (s *memStore) assign(cardID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.assignments[cardID] = append(s.data.assignments[cardID], userID)
}

// ---- inspection helpers ----

func (s *memStore) invitationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.invitations)
}

func (s *memStore) invitation(id string) *repository.InvitationToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := s.data.invitations[id]
	if inv == nil {
		return nil
	}
	c := *inv
	return &c
}

func (s *memStore) userByEmail(addr string) *repository.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data.users {
		if strings.EqualFold(u.Email, addr) {
			c := *u
			return &c
		}
	}
	return nil
}

func (s *memStore) member(orgID, userID string) *repository.OrganizationMember {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.data.members[memberKey(orgID, userID)]
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

func (s *memStore) currentContext(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.data.contexts[userID]; c != nil {
		return c.CurrentOrganizationID
	}
	return ""
}

// ---- repositories ----

type memUsers struct{ s *memStore }

func (r *memUsers) Create(_ context.Context, user *repository.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	user.ID = r.s.nextID("user")
	user.CreatedAt = r.s.tick()
	user.UpdatedAt = user.CreatedAt
	c := *user
	r.s.data.users[user.ID] = &c
	return nil
}

func (r *memUsers) FindByID(_ context.Context, id string) (*repository.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u := r.s.data.users[id]; u != nil {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (r *memUsers) FindByEmail(_ context.Context, addr string) (*repository.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Email, addr) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memUsers) UpdatePassword(_ context.Context, userID, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := r.s.data.users[userID]
	if u == nil {
		return errors.New("no such user")
	}
	u.PasswordHash = hash
	u.PasswordResetRequired = false
	return nil
}

type memOrgs struct{ s *memStore }

func (r *memOrgs) FindByID(_ context.Context, id string) (*repository.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o := r.s.data.orgs[id]; o != nil {
		c := *o
		return &c, nil
	}
	return nil, nil
}

type memMembers struct{ s *memStore }

func (r *memMembers) FindMember(_ context.Context, orgID, userID string) (*repository.OrganizationMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.memberErr != nil {
		return nil, r.s.memberErr
	}
	if m := r.s.data.members[memberKey(orgID, userID)]; m != nil {
		c := *m
		return &c, nil
	}
	return nil, nil
}

func (r *memMembers) AddMember(_ context.Context, member *repository.OrganizationMember) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := memberKey(member.OrganizationID, member.UserID)
	if _, ok := r.s.data.members[key]; ok {
		return false, nil
	}
	member.ID = r.s.nextID("member")
	member.JoinedAt = r.s.tick()
	c := *member
	r.s.data.members[key] = &c
	return true, nil
}

func (r *memMembers) ListByOrganization(_ context.Context, orgID string) ([]*repository.OrganizationMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*repository.OrganizationMember
	for _, m := range r.s.data.members {
		if m.OrganizationID == orgID {
			c := *m
			if u := r.s.data.users[m.UserID]; u != nil {
				c.Email = u.Email
			}
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (r *memMembers) ListByUser(_ context.Context, userID string) ([]*repository.OrganizationMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*repository.OrganizationMember
	for _, m := range r.s.data.members {
		if m.UserID == userID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].OrganizationID < out[j].OrganizationID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (r *memMembers) UpdateRole(_ context.Context, orgID, userID string, role types.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := r.s.data.members[memberKey(orgID, userID)]
	if m == nil {
		return errors.New("no such member")
	}
	m.Role = role
	return nil
}

type memSettings struct{ s *memStore }

func (r *memSettings) FindByOrganization(_ context.Context, orgID string) (*repository.OrganizationSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if st := r.s.data.settings[orgID]; st != nil {
		c := *st
		return &c, nil
	}
	return nil, nil
}

type memContexts struct{ s *memStore }

func (r *memContexts) Find(_ context.Context, userID string) (*repository.UserOrganizationContext, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c := r.s.data.contexts[userID]; c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *memContexts) Upsert(_ context.Context, userID, orgID string, switchedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.contextErr != nil {
		return r.s.contextErr
	}
	r.s.data.contexts[userID] = &repository.UserOrganizationContext{
		UserID: userID, CurrentOrganizationID: orgID, LastSwitchedAt: switchedAt,
	}
	return nil
}

type memInvitations struct{ s *memStore }

func (r *memInvitations) Create(_ context.Context, inv *repository.InvitationToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.invitations {
		if existing.Token == inv.Token {
			return repository.ErrDuplicate
		}
	}
	inv.ID = r.s.nextID("inv")
	inv.CreatedAt = r.s.tick()
	c := *inv
	r.s.data.invitations[inv.ID] = &c
	return nil
}

func (r *memInvitations) FindByID(_ context.Context, id string) (*repository.InvitationToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if inv := r.s.data.invitations[id]; inv != nil {
		c := *inv
		return &c, nil
	}
	return nil, nil
}

func (r *memInvitations) FindByToken(_ context.Context, token string) (*repository.InvitationToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.data.invitations {
		if inv.Token == token {
			c := *inv
			if r.s.staleInvitationReads {
				c.IsUsed, c.UsedAt = false, nil
			}
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memInvitations) FindPending(_ context.Context, orgID string, now time.Time) ([]*repository.InvitationToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*repository.InvitationToken
	for _, inv := range r.s.data.invitations {
		if inv.OrganizationID == orgID && !inv.IsUsed && !now.After(inv.ExpiresAt) {
			c := *inv
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memInvitations) MarkUsed(_ context.Context, id string, usedAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv := r.s.data.invitations[id]
	if inv == nil || inv.IsUsed || usedAt.After(inv.ExpiresAt) {
		return false, nil
	}
	inv.IsUsed = true
	inv.UsedAt = &usedAt
	return true, nil
}

func (r *memInvitations) DeleteUnused(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv := r.s.data.invitations[id]
	if inv == nil || inv.IsUsed {
		return false, nil
	}
	delete(r.s.data.invitations, id)
	return true, nil
}

func (r *memInvitations) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, inv := range r.s.data.invitations {
		if !inv.IsUsed && inv.ExpiresAt.Before(cutoff) {
			delete(r.s.data.invitations, id)
			n++
		}
	}
	return n, nil
}

type memProjects struct{ s *memStore }

func (r *memProjects) FindByID(_ context.Context, id string) (*repository.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p := r.s.data.projects[id]; p != nil {
		c := *p
		return &c, nil
	}
	return nil, nil
}

func (r *memProjects) ListIDsByOrganization(_ context.Context, orgID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := []string{}
	for id, p := range r.s.data.projects {
		if p.OrganizationID == orgID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memProjects) ListIDsAssignedToUser(_ context.Context, orgID, userID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := []string{}
	for cardID, users := range r.s.data.assignments {
		for _, u := range users {
			if u != userID {
				continue
			}
			c := r.s.data.cards[cardID]
			b := r.s.data.boards[c.BoardID]
			if p := r.s.data.projects[b.ProjectID]; p != nil && p.OrganizationID == orgID {
				ids = append(ids, p.ID)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memProjects) FindResourceOwner(_ context.Context, kind types.ResourceKind, id string) (*repository.ResourceOwner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var boardID, createdBy string
	switch kind {
	case types.ResourceCard:
		c := r.s.data.cards[id]
		if c == nil {
			return nil, nil
		}
		boardID, createdBy = c.BoardID, c.CreatedBy
	case types.ResourceBoard:
		b := r.s.data.boards[id]
		if b == nil {
			return nil, nil
		}
		boardID, createdBy = id, b.CreatedBy
	default:
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}

	b := r.s.data.boards[boardID]
	p := r.s.data.projects[b.ProjectID]
	return &repository.ResourceOwner{OrganizationID: p.OrganizationID, CreatedBy: &createdBy}, nil
}

type memNotifications struct{ s *memStore }

func (r *memNotifications) Create(_ context.Context, n *repository.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n.ID = r.s.nextID("notification")
	r.s.data.notifications = append(r.s.data.notifications, n)
	return nil
}

func (r *memNotifications) FindByUserID(_ context.Context, userID string, _ int) ([]*repository.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*repository.Notification
	for _, n := range r.s.data.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

// ============================================
// Collaborator fakes
// ============================================

type fakeSessions struct {
	mu      sync.Mutex
	err     error
	delay   time.Duration
	created []SessionRequest
	revoked []string
}

func (f *fakeSessions) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, req)
	id := fmt.Sprintf("session-%d", len(f.created))
	return &Session{SessionID: id, AccessToken: "access-" + id, RefreshToken: "refresh-" + id, ExpiresAt: time.Now().Add(req.Duration)}, nil
}

func (f *fakeSessions) RevokeSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, sessionID)
	return nil
}

func (f *fakeSessions) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type sentEmail struct {
	Kind email.TemplateKind
	To   string
	Vars map[string]string
}

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []sentEmail
}

func (f *fakeMailer) Send(_ context.Context, kind email.TemplateKind, to string, vars map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{Kind: kind, To: to, Vars: vars})
	return nil
}

func (f *fakeMailer) messages() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail(nil), f.sent...)
}

type sentNotification struct {
	UserID  string
	OrgID   string
	Type    string
	Payload map[string]interface{}
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []sentNotification
}

func (f *fakeNotifier) Create(_ context.Context, userID, orgID, notificationType string, payload map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentNotification{UserID: userID, OrgID: orgID, Type: notificationType, Payload: payload})
	return nil
}

func (f *fakeNotifier) byType(t string) []sentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentNotification
	for _, n := range f.sent {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
