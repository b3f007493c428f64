package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"urbansetu/model"

	"github.com/pquerna/otp/totp"
)

type memBlacklist struct{ tokens map[string]bool }

func (b *memBlacklist) Blacklist(_ context.Context, tokens ...string) error {
	for _, t := range tokens {
		if t != "" {
			b.tokens[t] = true
		}
	}
	return nil
}

func (b *memBlacklist) IsBlacklisted(_ context.Context, token string) bool { return b.tokens[token] }

type memAttempts struct{ counts map[string]int }

func (a *memAttempts) Fail(_ context.Context, key string) (int, error) {
	a.counts[key]++
	return a.counts[key], nil
}

func (a *memAttempts) Reset(_ context.Context, key string) error {
	delete(a.counts, key)
	return nil
}

type authFixture struct {
	*sessionFixture
	auth      *AuthService
	blacklist *memBlacklist
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	sf := newSessionFixture()
	bl := &memBlacklist{tokens: map[string]bool{}}
	f := &authFixture{
		sessionFixture: sf,
		blacklist:      bl,
		auth:           NewAuthService(sf.users, sf.mgr, testTokens(), bl, &memAttempts{counts: map[string]int{}}),
	}
	if _, err := f.auth.Register(context.Background(), RegisterInput{
		Username: "asha",
		Email:    "Asha@Example.com",
		Password: "secret1!",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	return f
}

func (f *authFixture) login(t *testing.T) *LoginResult {
	t.Helper()
	res, err := f.auth.Login(context.Background(), LoginInput{
		Email:    "asha@example.com",
		Password: "secret1!",
		Meta:     LoginMeta{IP: "10.0.0.1", UserAgent: chromeUA},
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return res
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      RegisterInput
		wantErr error
	}{
		{"weak password", RegisterInput{Username: "b", Email: "b@example.com", Password: "abcdef"}, model.ErrInvalidInput},
		{"missing email", RegisterInput{Username: "b", Password: "secret1!"}, model.ErrInvalidInput},
		{"duplicate email", RegisterInput{Username: "other", Email: "asha@example.com", Password: "secret1!"}, model.ErrDuplicate},
		{"ok", RegisterInput{Username: "ravi", Email: "ravi@example.com", Password: "secret1!"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Register(ctx, tt.in)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoginIssuesTokens(t *testing.T) {
	f := newAuthFixture(t)
	res := f.login(t)

	if res.AccessToken == "" || res.RefreshToken == "" || res.SessionToken == "" {
		t.Fatal("expected all tokens to be issued")
	}
	if res.User.Email != "asha@example.com" {
		t.Errorf("email should be normalized, got %q", res.User.Email)
	}

	if _, err := f.auth.Login(context.Background(), LoginInput{Email: "asha@example.com", Password: "wrong1!"}); !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("wrong password should be unauthorized, got %v", err)
	}
	if _, err := f.auth.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "secret1!"}); !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("unknown email should be unauthorized, got %v", err)
	}
}

func TestLoginNoticeOnEviction(t *testing.T) {
	f := newAuthFixture(t)
	f.login(t)
	f.clock.Advance(time.Second)
	f.login(t)
	f.clock.Advance(time.Second)
	res := f.login(t)
	if res.Notice == "" {
		t.Error("expected a notice when the session cap evicts an older session")
	}
}

func TestRefreshAndLogout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	res := f.login(t)

	access, _, err := f.auth.Refresh(ctx, res.RefreshToken)
	if err != nil || access == "" {
		t.Fatalf("refresh failed: %v", err)
	}
	if _, _, err := f.auth.Refresh(ctx, res.AccessToken); !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("access token must not refresh, got %v", err)
	}

	actor := Actor{UserID: res.User.UserID, Role: res.User.Role, SessionID: res.Session.SessionID}
	if err := f.auth.Logout(ctx, actor, res.AccessToken, res.RefreshToken); err != nil {
		t.Fatal(err)
	}
	if !f.blacklist.IsBlacklisted(ctx, res.RefreshToken) {
		t.Error("refresh token should be blacklisted")
	}
	if _, _, err := f.auth.Refresh(ctx, res.RefreshToken); !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("blacklisted refresh should fail, got %v", err)
	}
}

func TestChangePasswordRevokesOthers(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	first := f.login(t)
	f.clock.Advance(time.Second)
	second := f.login(t)

	actor := Actor{UserID: second.User.UserID, Role: second.User.Role, SessionID: second.Session.SessionID}
	n, err := f.auth.ChangePassword(ctx, actor, "secret1!", "newpass2@")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 other session revoked, got %d", n)
	}
	if _, err := f.mgr.ValidateSession(ctx, first.Session.SessionID); !errors.Is(err, model.ErrSessionInvalid) {
		t.Error("other session should be gone")
	}
	if _, err := f.mgr.ValidateSession(ctx, second.Session.SessionID); err != nil {
		t.Errorf("current session should survive: %v", err)
	}
}

func TestDeleteAccountLockoutOnThirdFailure(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	res := f.login(t)
	actor := Actor{UserID: res.User.UserID, Role: res.User.Role, SessionID: res.Session.SessionID}

	for i := 1; i < MaxConfirmAttempts; i++ {
		if err := f.auth.DeleteAccount(ctx, actor, "bad"); !errors.Is(err, model.ErrUnauthorized) {
			t.Fatalf("attempt %d: expected unauthorized, got %v", i, err)
		}
	}
	if err := f.auth.DeleteAccount(ctx, actor, "bad"); !errors.Is(err, model.ErrTooManyAttempts) {
		t.Fatalf("expected lockout, got %v", err)
	}
	if ids := f.users.sessionIDs(res.User.UserID); len(ids) != 0 {
		t.Errorf("all sessions should be revoked, got %v", ids)
	}
	if _, err := f.users.FindByID(ctx, res.User.UserID); err != nil {
		t.Error("account must not be deleted on lockout")
	}
}

func TestDeleteAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	res := f.login(t)
	actor := Actor{UserID: res.User.UserID, Role: res.User.Role, SessionID: res.Session.SessionID}

	if err := f.auth.DeleteAccount(ctx, actor, "secret1!"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.users.FindByID(ctx, res.User.UserID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("user should be deleted, got %v", err)
	}
}

func TestSetRole(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	res := f.login(t)
	target := res.User.UserID
	root := Actor{UserID: "root-1", Role: model.RoleRootAdmin}

	tests := []struct {
		name  string
		actor Actor
		user  string
		role  model.Role
		want  error
	}{
		{"admin lacks permission", Actor{UserID: "adm-1", Role: model.RoleAdmin}, target, model.RoleAdmin, model.ErrForbidden},
		{"unknown role", root, target, model.Role("owner"), model.ErrInvalidInput},
		{"own role", root, "root-1", model.RoleAdmin, model.ErrForbidden},
		{"missing user", root, "ghost", model.RoleAdmin, model.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.auth.SetRole(ctx, tt.actor, tt.user, tt.role); !errors.Is(err, tt.want) {
				t.Errorf("SetRole() error = %v, want %v", err, tt.want)
			}
		})
	}

	user, err := f.auth.SetRole(ctx, root, target, model.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if user.Role != model.RoleAdmin {
		t.Errorf("role = %s, want admin", user.Role)
	}
	if ids := f.users.sessionIDs(target); len(ids) != 0 {
		t.Errorf("sessions should be signed out after a role change, got %v", ids)
	}
	stored, _ := f.users.FindByID(ctx, target)
	if stored.Role != model.RoleAdmin {
		t.Errorf("stored role = %s", stored.Role)
	}
}

func TestTwoFactorFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user, _ := f.users.FindByEmail(ctx, "asha@example.com")

	setup, err := f.auth.Setup2FA(ctx, user.UserID)
	if err != nil {
		t.Fatal(err)
	}
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	recovery, err := f.auth.Enable2FA(ctx, user.UserID, setup.Secret, code)
	if err != nil {
		t.Fatal(err)
	}
	if len(recovery) == 0 {
		t.Fatal("expected recovery codes")
	}

	res, err := f.auth.Login(ctx, LoginInput{Email: "asha@example.com", Password: "secret1!"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Requires2FA || res.AccessToken != "" {
		t.Fatal("login without a code should ask for 2FA")
	}

	res, err = f.auth.Login(ctx, LoginInput{Email: "asha@example.com", Password: "secret1!", RecoveryCode: recovery[0]})
	if err != nil || res.AccessToken == "" {
		t.Fatalf("recovery code login failed: %v", err)
	}
	if _, err := f.auth.Login(ctx, LoginInput{Email: "asha@example.com", Password: "secret1!", RecoveryCode: recovery[0]}); !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("recovery codes are single use, got %v", err)
	}

	code, _ = totp.GenerateCode(setup.Secret, time.Now())
	if err := f.auth.Disable2FA(ctx, user.UserID, code); err != nil {
		t.Fatal(err)
	}
}
