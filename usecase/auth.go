package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"urbansetu/model"
	"urbansetu/services"
	"urbansetu/utils"

	"github.com/pquerna/otp/totp"
)

// MaxConfirmAttempts is how many wrong passwords a destructive confirmation
// tolerates before every session is signed out.
const MaxConfirmAttempts = 3

const totpIssuer = "UrbanSetu"

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email        string
	Password     string
	TOTPCode     string
	RecoveryCode string
	Meta         LoginMeta
}

type LoginResult struct {
	Requires2FA  bool
	User         *model.User
	AccessToken  string
	RefreshToken string
	SessionToken string
	Session      *model.ActiveSession
	Suspicious   bool
	Notice       string
}

type TwoFactorSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
	QRCode string `json:"qr_code"`
}

type AuthService struct {
	users     UserStore
	sessions  *SessionManager
	tokens    *services.TokenService
	blacklist TokenBlacklist
	attempts  AttemptLimiter
	now       func() time.Time
}

func NewAuthService(users UserStore, sessions *SessionManager, tokens *services.TokenService, blacklist TokenBlacklist, attempts AttemptLimiter) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		blacklist: blacklist,
		attempts:  attempts,
		now:       time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" {
		return nil, fmt.Errorf("username and email required: %w", model.ErrInvalidInput)
	}
	if !utils.ValidatePassword(in.Password) {
		return nil, fmt.Errorf("password too weak: %w", model.ErrInvalidInput)
	}

	hashed, err := services.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user := &model.User{
		UserID:         utils.NewID(),
		Username:       in.Username,
		Email:          in.Email,
		Password:       hashed,
		Role:           model.RoleUser,
		CreatedAt:      now,
		UpdatedAt:      now,
		IsActive:       true,
		ActiveSessions: []model.ActiveSession{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrDuplicate) {
			return nil, fmt.Errorf("username or email already registered: %w", model.ErrDuplicate)
		}
		return nil, err
	}
	utils.TrackAuthAttempt("success", "register")
	return user, nil
}

var errBadCredentials = fmt.Errorf("invalid email or password: %w", model.ErrUnauthorized)

// Login checks credentials and the second factor, then opens a session.
// When 2FA is on and no code is given, only Requires2FA is set.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if errors.Is(err, model.ErrNotFound) {
		utils.TrackAuthAttempt("failure", "user_not_found")
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		utils.TrackAuthAttempt("failure", "inactive")
		return nil, fmt.Errorf("account disabled: %w", model.ErrForbidden)
	}
	if !services.ComparePasswords(user.Password, in.Password) {
		utils.TrackAuthAttempt("failure", "invalid_password")
		return nil, errBadCredentials
	}

	if user.TwoFactorEnabled {
		switch {
		case in.TOTPCode != "":
			if !totp.Validate(in.TOTPCode, user.TwoFactorSecret) {
				utils.TrackAuthAttempt("failure", "invalid_2fa")
				return nil, fmt.Errorf("invalid 2FA code: %w", model.ErrUnauthorized)
			}
		case in.RecoveryCode != "":
			remaining, ok := utils.ConsumeRecoveryCode(user.RecoveryCodes, in.RecoveryCode)
			if !ok {
				utils.TrackAuthAttempt("failure", "invalid_recovery_code")
				return nil, fmt.Errorf("invalid recovery code: %w", model.ErrUnauthorized)
			}
			if err := s.users.UpdateRecoveryCodes(ctx, user.UserID, remaining); err != nil {
				return nil, err
			}
		default:
			utils.TrackAuthAttempt("pending", "2fa_required")
			return &LoginResult{Requires2FA: true, User: user}, nil
		}
		utils.TrackAuthAttempt("success", "2fa")
	}

	res, err := s.sessions.CreateEnhancedSession(ctx, user, in.Meta)
	if err != nil {
		return nil, err
	}
	access, refresh, err := s.tokens.IssuePair(user.UserID, user.Role, res.Session.SessionID)
	if err != nil {
		return nil, err
	}
	utils.TokenUsage.WithLabelValues("access", "generated").Inc()
	utils.TokenUsage.WithLabelValues("refresh", "generated").Inc()
	utils.TrackAuthAttempt("success", "login")

	out := &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		SessionToken: res.Token,
		Session:      res.Session,
		Suspicious:   res.Suspicious,
	}
	if n := len(res.Evicted); n > 0 {
		out.Notice = fmt.Sprintf("Signed out of %d older session(s) due to the session limit", n)
	}
	return out, nil
}

// Refresh trades a refresh token for a new access token while its session
// is still valid.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	if refreshToken == "" {
		return "", time.Time{}, fmt.Errorf("missing refresh token: %w", model.ErrUnauthorized)
	}
	if s.blacklist != nil && s.blacklist.IsBlacklisted(ctx, refreshToken) {
		utils.TokenUsage.WithLabelValues("refresh", "blacklisted").Inc()
		return "", time.Time{}, fmt.Errorf("refresh token revoked: %w", model.ErrUnauthorized)
	}
	claims, err := s.tokens.Parse(refreshToken, services.RefreshToken)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%v: %w", err, model.ErrUnauthorized)
	}
	session, err := s.sessions.ValidateSession(ctx, claims.SessionID)
	if err != nil {
		return "", time.Time{}, err
	}

	role := claims.Role
	if user, err := s.users.FindByID(ctx, claims.UserID); err == nil {
		role = user.Role
	}
	access, exp, err := s.tokens.Issue(services.AccessToken, claims.UserID, role, session.SessionID, 0)
	if err != nil {
		return "", time.Time{}, err
	}
	utils.TokenUsage.WithLabelValues("access", "refreshed").Inc()
	return access, exp, nil
}

// Logout ends the actor's current session and blacklists its tokens.
func (s *AuthService) Logout(ctx context.Context, actor Actor, tokens ...string) error {
	if actor.SessionID != "" {
		err := s.sessions.RevokeSession(ctx, actor, actor.UserID, actor.SessionID, model.ActionLogout)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return err
		}
	}
	if s.blacklist != nil {
		if err := s.blacklist.Blacklist(ctx, tokens...); err != nil {
			utils.Warn().Err(err).Str("user_id", actor.UserID).Msg("failed to blacklist tokens on logout")
		}
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	return s.users.FindByID(ctx, userID)
}

// ChangePassword verifies the current password, stores the new hash and
// signs out every other session. It returns how many were signed out.
func (s *AuthService) ChangePassword(ctx context.Context, actor Actor, current, next string) (int, error) {
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return 0, err
	}
	if !services.ComparePasswords(user.Password, current) {
		return 0, fmt.Errorf("current password is incorrect: %w", model.ErrUnauthorized)
	}
	if !utils.ValidatePassword(next) {
		return 0, fmt.Errorf("password too weak: %w", model.ErrInvalidInput)
	}
	if current == next {
		return 0, fmt.Errorf("new password must differ: %w", model.ErrInvalidInput)
	}

	hashed, err := services.HashPassword(next)
	if err != nil {
		return 0, err
	}
	if err := s.users.UpdatePassword(ctx, user.UserID, hashed); err != nil {
		return 0, err
	}
	return s.sessions.RevokeSessions(ctx, actor, user.UserID, actor.SessionID, model.ActionPasswordChange)
}

// ConfirmPassword guards destructive actions. Every wrong password is
// counted; the MaxConfirmAttempts-th failure signs out every session and
// returns ErrTooManyAttempts.
func (s *AuthService) ConfirmPassword(ctx context.Context, actor Actor, password string) error {
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if services.ComparePasswords(user.Password, password) {
		if s.attempts != nil {
			_ = s.attempts.Reset(ctx, user.UserID)
		}
		return nil
	}

	if s.attempts == nil {
		return fmt.Errorf("incorrect password: %w", model.ErrUnauthorized)
	}
	n, err := s.attempts.Fail(ctx, user.UserID)
	if err != nil {
		utils.Warn().Err(err).Str("user_id", user.UserID).Msg("failed to count confirmation attempt")
		return fmt.Errorf("incorrect password: %w", model.ErrUnauthorized)
	}
	if n < MaxConfirmAttempts {
		return fmt.Errorf("incorrect password, %d attempt(s) left: %w", MaxConfirmAttempts-n, model.ErrUnauthorized)
	}

	_ = s.attempts.Reset(ctx, user.UserID)
	if _, err := s.sessions.RevokeSessions(ctx, actor, user.UserID, "", model.ActionConfirmLockout); err != nil {
		utils.Error().Err(err).Str("user_id", user.UserID).Msg("failed to sign out after confirmation lockout")
	}
	return model.ErrTooManyAttempts
}

// SetRole changes another user's role. Every session of the target is
// signed out so the new role and its session cap apply on next login.
func (s *AuthService) SetRole(ctx context.Context, actor Actor, userID string, role model.Role) (*model.User, error) {
	if !actor.Can(model.PermManageAdmins) {
		return nil, model.ErrForbidden
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q: %w", role, model.ErrInvalidInput)
	}
	if userID == actor.UserID {
		return nil, fmt.Errorf("cannot change own role: %w", model.ErrForbidden)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}
	if _, err := s.sessions.RevokeSessions(ctx, actor, userID, "", model.ActionForcedLogout); err != nil {
		utils.Error().Err(err).Str("user_id", userID).Msg("failed to sign out after role change")
	}
	utils.Info().Str("user_id", userID).Str("from", string(user.Role)).Str("to", string(role)).
		Str("by", actor.UserID).Msg("user role changed")
	user.Role = role
	user.ActiveSessions = nil
	return user, nil
}

// DeleteAccount removes the user after password confirmation.
func (s *AuthService) DeleteAccount(ctx context.Context, actor Actor, password string) error {
	if err := s.ConfirmPassword(ctx, actor, password); err != nil {
		return err
	}
	if _, err := s.sessions.RevokeSessions(ctx, actor, actor.UserID, "", model.ActionLogout); err != nil {
		return err
	}
	return s.users.Delete(ctx, actor.UserID)
}

func (s *AuthService) Setup2FA(ctx context.Context, userID string) (*TwoFactorSetup, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, fmt.Errorf("2FA is already enabled: %w", model.ErrConflict)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate 2FA secret: %w", err)
	}

	var buf bytes.Buffer
	img, err := key.Image(200, 200)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	return &TwoFactorSetup{
		Secret: key.Secret(),
		URL:    key.URL(),
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Enable2FA turns on TOTP once the user proves the secret works. The plain
// recovery codes are returned once; only their hashes are stored.
func (s *AuthService) Enable2FA(ctx context.Context, userID, secret, code string) ([]string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, fmt.Errorf("2FA is already enabled: %w", model.ErrConflict)
	}
	if !totp.Validate(code, secret) {
		return nil, fmt.Errorf("invalid 2FA code: %w", model.ErrInvalidInput)
	}

	codes, err := utils.GenerateRecoveryCodes()
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateTwoFactor(ctx, userID, true, secret, utils.HashRecoveryCodes(codes)); err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *AuthService) Disable2FA(ctx context.Context, userID, code string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return fmt.Errorf("2FA is not enabled: %w", model.ErrConflict)
	}
	if !totp.Validate(code, user.TwoFactorSecret) {
		return fmt.Errorf("invalid 2FA code: %w", model.ErrUnauthorized)
	}
	return s.users.UpdateTwoFactor(ctx, userID, false, "", nil)
}
