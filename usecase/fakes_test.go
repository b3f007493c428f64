package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"urbansetu/config"
	"urbansetu/model"
	"urbansetu/services"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]*model.User)}
	for _, u := range users {
		f.users[u.UserID] = u
	}
	return f
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.ActiveSessions = append([]model.ActiveSession(nil), u.ActiveSessions...)
	for i := range c.ActiveSessions {
		c.ActiveSessions[i].IsActive = true
	}
	c.RecoveryCodes = append([]string(nil), u.RecoveryCodes...)
	return &c
}

func (f *fakeUsers) get(id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email || u.Username == user.Username {
			return model.ErrDuplicate
		}
	}
	f.users[user.UserID] = cloneUser(user)
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, userID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(userID)
	if err != nil {
		return nil, err
	}
	return cloneUser(u), nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *fakeUsers) FindBySession(_ context.Context, sessionID string) (*model.User, *model.ActiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		for _, s := range u.ActiveSessions {
			if s.SessionID == sessionID {
				c := cloneUser(u)
				s.IsActive = true
				return c, &s, nil
			}
		}
	}
	return nil, nil, model.ErrNotFound
}

func (f *fakeUsers) AddSession(_ context.Context, userID string, s *model.ActiveSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(userID)
	if err != nil {
		return err
	}
	u.ActiveSessions = append(u.ActiveSessions, *s)
	return nil
}

func (f *fakeUsers) RemoveSession(_ context.Context, userID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(userID)
	if err != nil {
		return err
	}
	kept := u.ActiveSessions[:0]
	for _, s := range u.ActiveSessions {
		if s.SessionID != sessionID {
			kept = append(kept, s)
		}
	}
	u.ActiveSessions = kept
	return nil
}

func (f *fakeUsers) TouchSession(_ context.Context, userID, sessionID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(userID)
	if err != nil {
		return err
	}
	for i := range u.ActiveSessions {
		if u.ActiveSessions[i].SessionID == sessionID {
			u.ActiveSessions[i].LastActive = at
			return nil
		}
	}
	return model.ErrNotFound
}

func (f *fakeUsers) SetLastKnown(_ context.Context, userID, ip, device string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(userID)
	if err != nil {
		return err
	}
	u.LastKnownIP, u.LastKnownDevice = ip, device
	return nil
}

func (f *fakeUsers) ListLiveSessions(_ context.Context, now time.Time, idle time.Duration, page, limit int) ([]model.SessionOwner, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SessionOwner
	for _, u := range f.users {
		for _, s := range u.ActiveSessions {
			s.IsActive = true
			if services.Stale(&s, now, idle) {
				continue
			}
			out = append(out, model.SessionOwner{UserID: u.UserID, Username: u.Username, Email: u.Email, Role: u.Role, Session: s})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Session.LastActive.Equal(out[j].Session.LastActive) {
			return out[i].Session.LastActive.After(out[j].Session.LastActive)
		}
		return out[i].Session.SessionID < out[j].Session.SessionID
	})
	total := int64(len(out))
	start := (page - 1) * limit
	if start >= len(out) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (f *fakeUsers) PruneStaleSessions(_ context.Context, now time.Time, idle time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.users {
		kept := u.ActiveSessions[:0]
		for _, s := range u.ActiveSessions {
			s.IsActive = true
			if !services.Stale(&s, now, idle) {
				kept = append(kept, s)
			}
		}
		if len(kept) != len(u.ActiveSessions) {
			n++
		}
		u.ActiveSessions = kept
	}
	return n, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, userID, hashed string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(userID)
	if err != nil {
		return err
	}
	u.Password = hashed
	return nil
}

func (f *fakeUsers) UpdateTwoFactor(_ context.Context, userID string, enabled bool, secret string, codes []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(userID)
	if err != nil {
		return err
	}
	u.TwoFactorEnabled, u.TwoFactorSecret, u.RecoveryCodes = enabled, secret, codes
	return nil
}

func (f *fakeUsers) UpdateRecoveryCodes(_ context.Context, userID string, codes []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(userID)
	if err != nil {
		return err
	}
	u.RecoveryCodes = codes
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.get(userID); err != nil {
		return err
	}
	delete(f.users, userID)
	return nil
}

func (f *fakeUsers) UpdateRole(_ context.Context, userID string, role model.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.get(userID)
	if err != nil {
		return err
	}
	u.Role = role
	return nil
}

func (f *fakeUsers) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

func (f *fakeUsers) sessionIDs(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(u.ActiveSessions))
	for _, s := range u.ActiveSessions {
		ids = append(ids, s.SessionID)
	}
	return ids
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []model.SessionAuditLog
}

func (f *fakeAudit) Insert(_ context.Context, e *model.SessionAuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeAudit) List(_ context.Context, flt model.AuditFilter) ([]model.SessionAuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SessionAuditLog
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if flt.UserID != "" && e.UserID != flt.UserID {
			continue
		}
		if flt.Action != "" && e.Action != flt.Action {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAudit) actions() []model.SessionAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.SessionAction, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type emitted struct {
	Target string
	Event  string
	Data   interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recordingNotifier) add(target, event string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{Target: target, Event: event, Data: data})
}

func (r *recordingNotifier) EmitToRoom(room, event string, data interface{}) {
	r.add("room:"+room, event, data)
}
func (r *recordingNotifier) EmitToUser(userID, event string, data interface{}) {
	r.add("user:"+userID, event, data)
}
func (r *recordingNotifier) EmitToSession(sessionID, event string, data interface{}) {
	r.add("session:"+sessionID, event, data)
}
func (r *recordingNotifier) EmitToAdmins(event string, data interface{}) {
	r.add("admins", event, data)
}
func (r *recordingNotifier) Broadcast(event string, data interface{}) {
	r.add("all", event, data)
}

func (r *recordingNotifier) count(target, event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Target == target && e.Event == event {
			n++
		}
	}
	return n
}

type staticGeo string

func (g staticGeo) Lookup(context.Context, string) string { return string(g) }

type nopMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *nopMailer) Send(_ context.Context, to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to+"|"+subject)
	return nil
}

// clock is a settable time source for use cases that take a now func.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testTokens() *services.TokenService {
	return services.NewTokenService("test-secret", "urbansetu-test", 15*time.Minute, 7*24*time.Hour)
}

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		TTL:           7 * 24 * time.Hour,
		IdleTimeout:   48 * time.Hour,
		SweepInterval: time.Minute,
		TouchInterval: time.Minute,
		Limits: map[model.Role]int{
			model.RoleUser:      2,
			model.RoleAdmin:     3,
			model.RoleRootAdmin: 0,
		},
	}
}

type sessionFixture struct {
	mgr      *SessionManager
	users    *fakeUsers
	audit    *fakeAudit
	notify   *recordingNotifier
	registry *services.MemorySessionRegistry
	clock    *clock
	mailer   *nopMailer
}

func newSessionFixture(users ...*model.User) *sessionFixture {
	f := &sessionFixture{
		users:    newFakeUsers(users...),
		audit:    &fakeAudit{},
		notify:   &recordingNotifier{},
		registry: services.NewMemorySessionRegistry(),
		clock:    newClock(),
		mailer:   &nopMailer{},
	}
	f.mgr = NewSessionManager(SessionManagerDeps{
		Users:    f.users,
		Audit:    f.audit,
		Registry: f.registry,
		Tokens:   testTokens(),
		Geo:      staticGeo("Pune, India"),
		Mailer:   f.mailer,
		Notifier: f.notify,
		Config:   testSessionConfig(),
	})
	f.mgr.now = f.clock.Now
	return f
}
