package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"urbansetu/model"
	"urbansetu/services"
)

const (
	chromeUA  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
)

func testUser(id string, role model.Role) *model.User {
	return &model.User{
		UserID:   id,
		Username: id,
		Email:    id + "@example.com",
		Password: "hash",
		Role:     role,
		IsActive: true,
	}
}

func TestCreateEnhancedSessionEvictsOldest(t *testing.T) {
	f := newSessionFixture(testUser("u1", model.RoleUser))
	ctx := context.Background()

	var created []string
	for i := 0; i < 3; i++ {
		user, _ := f.users.FindByID(ctx, "u1")
		res, err := f.mgr.CreateEnhancedSession(ctx, user, LoginMeta{IP: "10.0.0.1", UserAgent: chromeUA})
		if err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
		if res.Token == "" {
			t.Fatalf("login %d: empty token", i)
		}
		created = append(created, res.Session.SessionID)
		f.clock.Advance(time.Minute)
	}

	ids := f.users.sessionIDs("u1")
	if len(ids) != 2 {
		t.Fatalf("expected 2 sessions after cap, got %d", len(ids))
	}
	for _, id := range ids {
		if id == created[0] {
			t.Errorf("oldest session %s should have been evicted", id)
		}
	}

	if _, err := f.mgr.ValidateSession(ctx, created[0]); !errors.Is(err, model.ErrSessionInvalid) {
		t.Errorf("evicted session should be invalid, got %v", err)
	}
	if _, err := f.mgr.ValidateSession(ctx, created[2]); err != nil {
		t.Errorf("newest session should be valid: %v", err)
	}
	if n := f.notify.count("session:"+created[0], EventForceLogout); n != 1 {
		t.Errorf("expected 1 forceLogout to evicted session, got %d", n)
	}

	var evictions int
	for _, a := range f.audit.actions() {
		if a == model.ActionLimitEviction {
			evictions++
		}
	}
	if evictions != 1 {
		t.Errorf("expected 1 eviction audit entry, got %d", evictions)
	}
}

func TestEnforceSessionLimitsUnlimitedRole(t *testing.T) {
	f := newSessionFixture(testUser("root", model.RoleRootAdmin))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		user, _ := f.users.FindByID(ctx, "root")
		if _, err := f.mgr.CreateEnhancedSession(ctx, user, LoginMeta{IP: "10.0.0.1", UserAgent: chromeUA}); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(f.users.sessionIDs("root")); n != 5 {
		t.Errorf("rootadmin should keep all sessions, got %d", n)
	}
}

func TestCheckSuspiciousLogin(t *testing.T) {
	f := newSessionFixture()

	tests := []struct {
		name    string
		user    model.User
		ip      string
		device  string
		want    bool
		reasons int
	}{
		{"first login", model.User{}, "1.1.1.1", "Chrome", false, 0},
		{"same ip and device", model.User{LastKnownIP: "1.1.1.1", LastKnownDevice: "Chrome"}, "1.1.1.1", "Chrome", false, 0},
		{"new ip", model.User{LastKnownIP: "1.1.1.1", LastKnownDevice: "Chrome"}, "2.2.2.2", "Chrome", true, 1},
		{"new ip and device", model.User{LastKnownIP: "1.1.1.1", LastKnownDevice: "Chrome"}, "2.2.2.2", "Firefox", true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reasons := f.mgr.CheckSuspiciousLogin(&tt.user, tt.ip, tt.device)
			if got != tt.want || len(reasons) != tt.reasons {
				t.Errorf("got (%v, %v), want (%v, %d reasons)", got, reasons, tt.want, tt.reasons)
			}
		})
	}
}

func TestSuspiciousLoginIsAudited(t *testing.T) {
	u := testUser("u1", model.RoleUser)
	u.LastKnownIP = "10.0.0.1"
	f := newSessionFixture(u)
	ctx := context.Background()

	res, err := f.mgr.CreateEnhancedSession(ctx, u, LoginMeta{IP: "203.0.113.9", UserAgent: firefoxUA})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Suspicious {
		t.Fatal("expected login to be flagged")
	}

	found := false
	for _, a := range f.audit.actions() {
		if a == model.ActionSuspiciousLogin {
			found = true
		}
	}
	if !found {
		t.Error("expected suspicious_login audit entry")
	}

	stored, _ := f.users.FindByID(ctx, "u1")
	if stored.LastKnownIP != "203.0.113.9" {
		t.Errorf("last known ip not updated: %q", stored.LastKnownIP)
	}
}

func TestValidateSessionFallsBackToDatabase(t *testing.T) {
	f := newSessionFixture(testUser("u1", model.RoleUser))
	ctx := context.Background()

	user, _ := f.users.FindByID(ctx, "u1")
	s, _, err := f.mgr.CreateSession(ctx, user, LoginMeta{IP: "10.0.0.1", UserAgent: chromeUA})
	if err != nil {
		t.Fatal(err)
	}

	// simulate a process restart with an empty registry
	fresh := services.NewMemorySessionRegistry()
	f.mgr.registry = fresh

	got, err := f.mgr.ValidateSession(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("expected fallback to succeed: %v", err)
	}
	if got.UserID != "u1" {
		t.Errorf("got user %q", got.UserID)
	}
	if _, ok, _ := fresh.Get(ctx, s.SessionID); !ok {
		t.Error("session should be re-registered after fallback")
	}
}

func TestValidateSessionIdleExpiry(t *testing.T) {
	f := newSessionFixture(testUser("u1", model.RoleUser))
	ctx := context.Background()

	user, _ := f.users.FindByID(ctx, "u1")
	s, _, err := f.mgr.CreateSession(ctx, user, LoginMeta{IP: "10.0.0.1", UserAgent: chromeUA})
	if err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(49 * time.Hour)
	if _, err := f.mgr.ValidateSession(ctx, s.SessionID); !errors.Is(err, model.ErrSessionInvalid) {
		t.Fatalf("expected idle session to be invalid, got %v", err)
	}
	if ids := f.users.sessionIDs("u1"); len(ids) != 0 {
		t.Errorf("expired session should be removed from user, got %v", ids)
	}
}

func TestTouchSessionThrottlesPersistence(t *testing.T) {
	f := newSessionFixture(testUser("u1", model.RoleUser))
	ctx := context.Background()

	user, _ := f.users.FindByID(ctx, "u1")
	s, _, err := f.mgr.CreateSession(ctx, user, LoginMeta{IP: "10.0.0.1", UserAgent: chromeUA})
	if err != nil {
		t.Fatal(err)
	}
	loginAt := f.clock.Now()

	f.clock.Advance(10 * time.Second)
	if err := f.mgr.TouchSession(ctx, s.SessionID); err != nil {
		t.Fatal(err)
	}
	stored, _ := f.users.FindByID(ctx, "u1")
	if !stored.ActiveSessions[0].LastActive.Equal(loginAt) {
		t.Error("touch within interval should not persist")
	}
	live, _, _ := f.registry.Get(ctx, s.SessionID)
	if !live.LastActive.Equal(f.clock.Now()) {
		t.Error("registry should always be touched")
	}

	f.clock.Advance(time.Minute)
	if err := f.mgr.TouchSession(ctx, s.SessionID); err != nil {
		t.Fatal(err)
	}
	stored, _ = f.users.FindByID(ctx, "u1")
	if !stored.ActiveSessions[0].LastActive.Equal(f.clock.Now()) {
		t.Error("touch after interval should persist")
	}
}

func TestRevokeSession(t *testing.T) {
	f := newSessionFixture(testUser("u1", model.RoleUser), testUser("u2", model.RoleUser))
	ctx := context.Background()

	user, _ := f.users.FindByID(ctx, "u1")
	s, _, _ := f.mgr.CreateSession(ctx, user, LoginMeta{IP: "10.0.0.1", UserAgent: chromeUA})

	actor := Actor{UserID: "u2", Role: model.RoleUser}
	if err := f.mgr.RevokeSession(ctx, actor, "u2", s.SessionID, model.ActionLogout); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("revoking someone else's session should be not found, got %v", err)
	}

	actor = Actor{UserID: "u1", Role: model.RoleUser, SessionID: s.SessionID}
	if err := f.mgr.RevokeSession(ctx, actor, "u1", s.SessionID, model.ActionLogout); err != nil {
		t.Fatal(err)
	}
	if _, err := f.mgr.ValidateSession(ctx, s.SessionID); !errors.Is(err, model.ErrSessionInvalid) {
		t.Errorf("revoked session should be invalid, got %v", err)
	}
	if f.notify.count("user:u1", EventSessionsUpdated) != 1 {
		t.Error("expected sessionsUpdated to owner")
	}
}

func TestRevokeOtherSessions(t *testing.T) {
	f := newSessionFixture(testUser("u1", model.RoleAdmin))
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		user, _ := f.users.FindByID(ctx, "u1")
		s, _, _ := f.mgr.CreateSession(ctx, user, LoginMeta{IP: "10.0.0.1", UserAgent: chromeUA})
		ids = append(ids, s.SessionID)
	}

	n, err := f.mgr.RevokeSessions(ctx, Actor{UserID: "u1", Role: model.RoleAdmin}, "u1", ids[1], model.ActionRevokeOthers)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 revoked, got %d", n)
	}
	if got := f.users.sessionIDs("u1"); len(got) != 1 || got[0] != ids[1] {
		t.Errorf("expected only %s left, got %v", ids[1], got)
	}
}

func TestForceLogoutRespectsRank(t *testing.T) {
	f := newSessionFixture(
		testUser("root", model.RoleRootAdmin),
		testUser("admin", model.RoleAdmin),
		testUser("admin2", model.RoleAdmin),
		testUser("user", model.RoleUser),
	)
	ctx := context.Background()
	for _, id := range []string{"admin2", "user", "root"} {
		u, _ := f.users.FindByID(ctx, id)
		if _, _, err := f.mgr.CreateSession(ctx, u, LoginMeta{IP: "10.0.0.1", UserAgent: chromeUA}); err != nil {
			t.Fatal(err)
		}
	}

	admin := Actor{UserID: "admin", Role: model.RoleAdmin}
	root := Actor{UserID: "root", Role: model.RoleRootAdmin}

	tests := []struct {
		name    string
		actor   Actor
		target  string
		wantErr error
	}{
		{"user cannot", Actor{UserID: "user", Role: model.RoleUser}, "admin2", model.ErrForbidden},
		{"admin cannot hit peer", admin, "admin2", model.ErrForbidden},
		{"admin cannot hit root", admin, "root", model.ErrForbidden},
		{"admin can hit user", admin, "user", nil},
		{"root can hit admin", root, "admin2", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := f.mgr.ForceLogout(ctx, tt.actor, tt.target, "")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if n != 1 {
				t.Errorf("expected 1 session ended, got %d", n)
			}
		})
	}
}

func TestListAllSessionsMasksForAdmins(t *testing.T) {
	f := newSessionFixture(testUser("u1", model.RoleUser))
	ctx := context.Background()
	u, _ := f.users.FindByID(ctx, "u1")
	if _, _, err := f.mgr.CreateSession(ctx, u, LoginMeta{IP: "198.51.100.23", UserAgent: chromeUA}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.mgr.ListAllSessions(ctx, Actor{UserID: "u1", Role: model.RoleUser}, 1, 10); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("users must not list all sessions, got %v", err)
	}

	page, err := f.mgr.ListAllSessions(ctx, Actor{UserID: "a", Role: model.RoleAdmin}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Items[0].IP != "198.51.100.0/24" {
		t.Errorf("admin view should mask ip, got %+v", page.Items)
	}

	page, _ = f.mgr.ListAllSessions(ctx, Actor{UserID: "r", Role: model.RoleRootAdmin}, 1, 10)
	if page.Items[0].IP != "198.51.100.23" {
		t.Errorf("rootadmin view should not mask ip, got %s", page.Items[0].IP)
	}
}

func TestListAllSessionsPagesOverSessions(t *testing.T) {
	f := newSessionFixture(testUser("u1", model.RoleAdmin), testUser("u2", model.RoleUser))
	ctx := context.Background()
	root := Actor{UserID: "r", Role: model.RoleRootAdmin}

	idleUser, _ := f.users.FindByID(ctx, "u2")
	if _, _, err := f.mgr.CreateSession(ctx, idleUser, LoginMeta{IP: "10.0.0.2", UserAgent: chromeUA}); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(49 * time.Hour)

	var newest string
	for i := 0; i < 3; i++ {
		u, _ := f.users.FindByID(ctx, "u1")
		s, _, err := f.mgr.CreateSession(ctx, u, LoginMeta{IP: "10.0.0.1", UserAgent: chromeUA})
		if err != nil {
			t.Fatal(err)
		}
		newest = s.SessionID
		f.clock.Advance(time.Minute)
	}

	first, err := f.mgr.ListAllSessions(ctx, root, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if first.Total != 3 {
		t.Errorf("total = %d, want 3 live sessions (idle one excluded)", first.Total)
	}
	if len(first.Items) != 2 || first.Items[0].SessionID != newest {
		t.Errorf("first page = %+v, want 2 rows starting with %s", first.Items, newest)
	}
	second, _ := f.mgr.ListAllSessions(ctx, root, 2, 2)
	if len(second.Items) != 1 {
		t.Errorf("second page has %d rows, want 1", len(second.Items))
	}
	for _, row := range append(first.Items, second.Items...) {
		if row.UserID == "u2" {
			t.Errorf("idle session %s listed", row.SessionID)
		}
	}
}

func TestListUserSessionsMarksCurrent(t *testing.T) {
	f := newSessionFixture(testUser("u1", model.RoleAdmin))
	ctx := context.Background()

	var last string
	for i := 0; i < 2; i++ {
		u, _ := f.users.FindByID(ctx, "u1")
		s, _, _ := f.mgr.CreateSession(ctx, u, LoginMeta{IP: "10.0.0.1", UserAgent: chromeUA})
		last = s.SessionID
		f.clock.Advance(time.Minute)
	}

	views, err := f.mgr.ListUserSessions(ctx, "u1", last)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(views))
	}
	if !views[0].Current || views[0].SessionID != last {
		t.Errorf("most recent session should be first and current: %+v", views[0])
	}
	if views[1].Current {
		t.Error("only one session can be current")
	}
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	f := newSessionFixture(testUser("u1", model.RoleAdmin))
	ctx := context.Background()

	u, _ := f.users.FindByID(ctx, "u1")
	if _, _, err := f.mgr.CreateSession(ctx, u, LoginMeta{IP: "10.0.0.1", UserAgent: chromeUA}); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(72 * time.Hour)
	f.mgr.Sweep(ctx)

	if n, _ := f.registry.Count(ctx); n != 0 {
		t.Errorf("registry should be empty after sweep, has %d", n)
	}
	if ids := f.users.sessionIDs("u1"); len(ids) != 0 {
		t.Errorf("user sessions should be pruned, got %v", ids)
	}
}

func TestListAuditLogsMasksIP(t *testing.T) {
	f := newSessionFixture(testUser("u1", model.RoleUser))
	ctx := context.Background()
	u, _ := f.users.FindByID(ctx, "u1")
	if _, _, err := f.mgr.CreateSession(ctx, u, LoginMeta{IP: "198.51.100.23", UserAgent: chromeUA}); err != nil {
		t.Fatal(err)
	}

	page, err := f.mgr.ListAuditLogs(ctx, Actor{UserID: "a", Role: model.RoleAdmin}, model.AuditFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Items[0].IP != "198.51.100.0/24" {
		t.Errorf("unexpected audit page %+v", page)
	}
	if _, err := f.mgr.ListAuditLogs(ctx, Actor{UserID: "u1", Role: model.RoleUser}, model.AuditFilter{}); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("users cannot read audit logs, got %v", err)
	}
}
