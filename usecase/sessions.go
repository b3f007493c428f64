package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"urbansetu/config"
	"urbansetu/model"
	"urbansetu/services"
	"urbansetu/utils"
)

// LoginMeta describes the client a session is created for.
type LoginMeta struct {
	IP        string
	UserAgent string
}

// SessionResult is returned by CreateEnhancedSession.
type SessionResult struct {
	Session    *model.ActiveSession
	Token      string
	Suspicious bool
	Reasons    []string
	Evicted    []string
}

// SessionView is one row of a user's own session list.
type SessionView struct {
	model.ActiveSession
	Current bool `json:"current"`
}

// AdminSessionView is one row of the cross-user session list.
type AdminSessionView struct {
	SessionID  string     `json:"session_id"`
	UserID     string     `json:"user_id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Role       model.Role `json:"role"`
	IP         string     `json:"ip"`
	Device     string     `json:"device"`
	Name       string     `json:"name"`
	Location   string     `json:"location"`
	LoginTime  time.Time  `json:"login_time"`
	LastActive time.Time  `json:"last_active"`
}

const (
	reasonNewIP     = "new_ip"
	reasonNewDevice = "new_device"
)

type SessionManager struct {
	users    SessionUserStore
	audit    AuditStore
	registry services.SessionRegistry
	tokens   *services.TokenService
	geo      Geolocator
	mailer   services.Mailer
	notify   Notifier
	cfg      config.SessionConfig
	now      func() time.Time

	// last time each session's lastActive was written to the user document
	persisted sync.Map
}

type SessionManagerDeps struct {
	Users    SessionUserStore
	Audit    AuditStore
	Registry services.SessionRegistry
	Tokens   *services.TokenService
	Geo      Geolocator
	Mailer   services.Mailer
	Notifier Notifier
	Config   config.SessionConfig
}

func NewSessionManager(d SessionManagerDeps) *SessionManager {
	if d.Registry == nil {
		d.Registry = services.NewMemorySessionRegistry()
	}
	if d.Notifier == nil {
		d.Notifier = NopNotifier
	}
	return &SessionManager{
		users:    d.Users,
		audit:    d.Audit,
		registry: d.Registry,
		tokens:   d.Tokens,
		geo:      d.Geo,
		mailer:   d.Mailer,
		notify:   d.Notifier,
		cfg:      d.Config,
		now:      time.Now,
	}
}

func (m *SessionManager) limitFor(role model.Role) int {
	return m.cfg.Limits[role]
}

func (m *SessionManager) lookupLocation(ctx context.Context, ip string) string {
	if m.geo == nil {
		if services.IsLocalIP(ip) {
			return services.LocalNetwork
		}
		return services.UnknownLocation
	}
	return m.geo.Lookup(ctx, ip)
}

// CreateSession registers a new session for user and persists it on the
// user document. The returned token wraps the session id.
func (m *SessionManager) CreateSession(ctx context.Context, user *model.User, meta LoginMeta) (*model.ActiveSession, string, error) {
	now := m.now()
	location := m.lookupLocation(ctx, meta.IP)

	s := &model.ActiveSession{
		SessionID:  utils.NewID(),
		UserID:     user.UserID,
		Role:       user.Role,
		IP:         meta.IP,
		Device:     utils.DeviceLabel(meta.UserAgent),
		Name:       utils.GenerateSessionName(meta.UserAgent, location),
		Location:   location,
		LoginTime:  now,
		LastActive: now,
		ExpiresAt:  now.Add(m.cfg.TTL),
		IsActive:   true,
	}

	token, _, err := m.tokens.Issue(services.SessionToken, user.UserID, user.Role, s.SessionID, m.cfg.TTL)
	if err != nil {
		return nil, "", err
	}

	if err := m.users.AddSession(ctx, user.UserID, s); err != nil {
		return nil, "", fmt.Errorf("failed to persist session: %w", err)
	}
	if err := m.registry.Put(ctx, s); err != nil {
		utils.Warn().Err(err).Str("session_id", s.SessionID).Msg("failed to register session")
	}
	m.persisted.Store(s.SessionID, now)

	m.LogSessionAction(ctx, &model.SessionAuditLog{
		Action:    model.ActionLogin,
		ActorID:   user.UserID,
		ActorRole: user.Role,
		UserID:    user.UserID,
		Role:      user.Role,
		SessionID: s.SessionID,
		IP:        s.IP,
		Device:    s.Device,
		Location:  s.Location,
	})
	utils.TrackSessionEvent(string(model.ActionLogin))

	return s, token, nil
}

// CreateEnhancedSession is the login path: suspicious-login check, session
// creation, role cap enforcement that keeps the new session, notifications.
func (m *SessionManager) CreateEnhancedSession(ctx context.Context, user *model.User, meta LoginMeta) (*SessionResult, error) {
	device := utils.DeviceLabel(meta.UserAgent)
	suspicious, reasons := m.CheckSuspiciousLogin(user, meta.IP, device)

	s, token, err := m.CreateSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	evicted, err := m.EnforceSessionLimits(ctx, user, s.SessionID)
	if err != nil {
		utils.Error().Err(err).Str("user_id", user.UserID).Msg("failed to enforce session limits")
	}

	if err := m.users.SetLastKnown(ctx, user.UserID, meta.IP, device); err != nil {
		utils.Warn().Err(err).Str("user_id", user.UserID).Msg("failed to update last known device")
	}

	if suspicious {
		m.LogSessionAction(ctx, &model.SessionAuditLog{
			Action:    model.ActionSuspiciousLogin,
			ActorID:   user.UserID,
			ActorRole: user.Role,
			UserID:    user.UserID,
			Role:      user.Role,
			SessionID: s.SessionID,
			IP:        s.IP,
			Device:    s.Device,
			Location:  s.Location,
			Details:   map[string]any{"reasons": reasons},
		})
		utils.TrackSessionEvent(string(model.ActionSuspiciousLogin))
		services.SendAsync(m.mailer, user.Email, "New sign-in to your UrbanSetu account",
			suspiciousLoginBody(user.Username, s, reasons))
	}

	m.notify.EmitToUser(user.UserID, EventSessionsUpdated, map[string]any{"user_id": user.UserID})
	m.notify.EmitToAdmins(EventAdminSessionsUpdated, map[string]any{"user_id": user.UserID})

	return &SessionResult{
		Session:    s,
		Token:      token,
		Suspicious: suspicious,
		Reasons:    reasons,
		Evicted:    evicted,
	}, nil
}

func suspiciousLoginBody(username string, s *model.ActiveSession, reasons []string) string {
	return fmt.Sprintf(
		"Hi %s,\n\nWe noticed a sign-in to your account from a new %s.\n\nDevice: %s\nLocation: %s\nTime: %s\n\nIf this wasn't you, change your password and sign out of other sessions.",
		username,
		strings.ReplaceAll(strings.Join(reasons, " and "), "new_", ""),
		s.Device,
		s.Location,
		s.LoginTime.UTC().Format(time.RFC1123),
	)
}

// CheckSuspiciousLogin flags a login whose ip or device differs from the
// last known one. A user with no history is never flagged.
func (m *SessionManager) CheckSuspiciousLogin(user *model.User, ip, device string) (bool, []string) {
	var reasons []string
	if user.LastKnownIP != "" && user.LastKnownIP != ip {
		reasons = append(reasons, reasonNewIP)
	}
	if user.LastKnownDevice != "" && user.LastKnownDevice != device {
		reasons = append(reasons, reasonNewDevice)
	}
	return len(reasons) > 0, reasons
}

// EnforceSessionLimits evicts the oldest sessions (by login time, then last
// activity) until the user is within the role cap. keepSessionID is never
// evicted.
func (m *SessionManager) EnforceSessionLimits(ctx context.Context, user *model.User, keepSessionID string) ([]string, error) {
	limit := m.limitFor(user.Role)
	if limit <= 0 {
		return nil, nil
	}

	fresh, err := m.users.FindByID(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	var live []model.ActiveSession
	for _, s := range fresh.ActiveSessions {
		if !services.Stale(&s, now, m.cfg.IdleTimeout) {
			live = append(live, s)
		}
	}
	if len(live) <= limit {
		return nil, nil
	}

	candidates := make([]model.ActiveSession, 0, len(live))
	for _, s := range live {
		if s.SessionID != keepSessionID {
			candidates = append(candidates, s)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.LoginTime.Equal(b.LoginTime) {
			return a.LoginTime.Before(b.LoginTime)
		}
		return a.LastActive.Before(b.LastActive)
	})

	excess := len(live) - limit
	if excess > len(candidates) {
		excess = len(candidates)
	}

	evicted := make([]string, 0, excess)
	for _, s := range candidates[:excess] {
		details := map[string]any{"limit": limit, "kept_session_id": keepSessionID}
		if err := m.revoke(ctx, Actor{}, fresh, &s, model.ActionLimitEviction, details); err != nil {
			return evicted, err
		}
		evicted = append(evicted, s.SessionID)
	}
	return evicted, nil
}

// ValidateSession returns the live session or ErrSessionInvalid. A registry
// miss falls back to the user document and re-registers the session.
func (m *SessionManager) ValidateSession(ctx context.Context, sessionID string) (*model.ActiveSession, error) {
	if sessionID == "" {
		return nil, model.ErrSessionInvalid
	}
	now := m.now()

	s, ok, err := m.registry.Get(ctx, sessionID)
	if err != nil {
		utils.Warn().Err(err).Msg("session registry lookup failed, falling back to database")
		ok = false
	}
	if ok {
		if !s.IsActive {
			return nil, model.ErrSessionInvalid
		}
		if services.Stale(s, now, m.cfg.IdleTimeout) {
			m.expire(ctx, s)
			return nil, model.ErrSessionInvalid
		}
		return s, nil
	}

	_, stored, err := m.users.FindBySession(ctx, sessionID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrSessionInvalid
	}
	if err != nil {
		return nil, err
	}
	if services.Stale(stored, now, m.cfg.IdleTimeout) {
		m.expire(ctx, stored)
		return nil, model.ErrSessionInvalid
	}

	if err := m.registry.Put(ctx, stored); err != nil {
		utils.Warn().Err(err).Str("session_id", sessionID).Msg("failed to re-register session")
	}
	return stored, nil
}

func (m *SessionManager) expire(ctx context.Context, s *model.ActiveSession) {
	_ = m.registry.Deactivate(ctx, s.SessionID)
	m.persisted.Delete(s.SessionID)
	if err := m.users.RemoveSession(ctx, s.UserID, s.SessionID); err != nil && !errors.Is(err, model.ErrNotFound) {
		utils.Warn().Err(err).Str("session_id", s.SessionID).Msg("failed to remove expired session")
	}
	m.LogSessionAction(ctx, &model.SessionAuditLog{
		Action:    model.ActionExpired,
		UserID:    s.UserID,
		Role:      s.Role,
		SessionID: s.SessionID,
		IP:        s.IP,
		Device:    s.Device,
	})
	utils.TrackSessionEvent(string(model.ActionExpired))
}

// TouchSession refreshes lastActive in the registry on every call and on the
// user document at most once per touch interval.
func (m *SessionManager) TouchSession(ctx context.Context, sessionID string) error {
	now := m.now()
	s, ok, err := m.registry.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok || !s.IsActive {
		return model.ErrSessionInvalid
	}
	if err := m.registry.Touch(ctx, sessionID, now); err != nil {
		return err
	}

	if last, ok := m.persisted.Load(sessionID); ok && now.Sub(last.(time.Time)) < m.cfg.TouchInterval {
		return nil
	}
	m.persisted.Store(sessionID, now)
	if err := m.users.TouchSession(ctx, s.UserID, sessionID, now); err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}
	return nil
}

// RevokeSession ends one session of userID.
func (m *SessionManager) RevokeSession(ctx context.Context, actor Actor, userID, sessionID string, action model.SessionAction) error {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	var target *model.ActiveSession
	for i := range user.ActiveSessions {
		if user.ActiveSessions[i].SessionID == sessionID {
			target = &user.ActiveSessions[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("session: %w", model.ErrNotFound)
	}
	if err := m.revoke(ctx, actor, user, target, action, nil); err != nil {
		return err
	}
	m.notifySessionsChanged(userID)
	return nil
}

// RevokeSessions ends every session of userID except exceptSessionID and
// returns how many were ended.
func (m *SessionManager) RevokeSessions(ctx context.Context, actor Actor, userID, exceptSessionID string, action model.SessionAction) (int, error) {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	targets := make([]model.ActiveSession, 0, len(user.ActiveSessions))
	for _, s := range user.ActiveSessions {
		if s.SessionID != exceptSessionID {
			targets = append(targets, s)
		}
	}

	n := 0
	for i := range targets {
		if err := m.revoke(ctx, actor, user, &targets[i], action, nil); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		m.notifySessionsChanged(userID)
	}
	return n, nil
}

func (m *SessionManager) revoke(ctx context.Context, actor Actor, user *model.User, s *model.ActiveSession, action model.SessionAction, details map[string]any) error {
	if err := m.users.RemoveSession(ctx, user.UserID, s.SessionID); err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	if err := m.registry.Deactivate(ctx, s.SessionID); err != nil {
		utils.Warn().Err(err).Str("session_id", s.SessionID).Msg("failed to deactivate session in registry")
	}
	m.persisted.Delete(s.SessionID)

	m.LogSessionAction(ctx, &model.SessionAuditLog{
		Action:    action,
		ActorID:   actor.UserID,
		ActorRole: actor.Role,
		UserID:    user.UserID,
		Role:      user.Role,
		SessionID: s.SessionID,
		IP:        s.IP,
		Device:    s.Device,
		Location:  s.Location,
		Details:   details,
	})
	utils.TrackSessionEvent(string(action))

	m.notify.EmitToSession(s.SessionID, EventForceLogout, map[string]any{
		"session_id": s.SessionID,
		"reason":     action,
	})
	return nil
}

func (m *SessionManager) notifySessionsChanged(userID string) {
	m.notify.EmitToUser(userID, EventSessionsUpdated, map[string]any{"user_id": userID})
	m.notify.EmitToAdmins(EventAdminSessionsUpdated, map[string]any{"user_id": userID})
}

// ListUserSessions returns the user's live sessions, most recently active
// first, flagging currentSessionID.
func (m *SessionManager) ListUserSessions(ctx context.Context, userID, currentSessionID string) ([]SessionView, error) {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := m.now()

	views := make([]SessionView, 0, len(user.ActiveSessions))
	for _, s := range user.ActiveSessions {
		if live, ok, _ := m.registry.Get(ctx, s.SessionID); ok && live.LastActive.After(s.LastActive) {
			s.LastActive = live.LastActive
		}
		if services.Stale(&s, now, m.cfg.IdleTimeout) {
			continue
		}
		views = append(views, SessionView{ActiveSession: s, Current: s.SessionID == currentSessionID})
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].LastActive.After(views[j].LastActive)
	})
	return views, nil
}

// ListAllSessions is the staff view of live sessions across users, most
// recently active first. Contact details and IPs are masked unless the viewer
// is rootadmin.
func (m *SessionManager) ListAllSessions(ctx context.Context, viewer Actor, page, limit int) (model.Page[AdminSessionView], error) {
	if !viewer.Can(model.PermViewSessions) {
		return model.Page[AdminSessionView]{}, model.ErrForbidden
	}
	page, limit = model.NormalizePage(page, limit)

	owners, total, err := m.users.ListLiveSessions(ctx, m.now(), m.cfg.IdleTimeout, page, limit)
	if err != nil {
		return model.Page[AdminSessionView]{}, err
	}

	unmasked := viewer.Role == model.RoleRootAdmin
	rows := make([]AdminSessionView, 0, len(owners))
	for _, o := range owners {
		s := o.Session
		row := AdminSessionView{
			SessionID:  s.SessionID,
			UserID:     o.UserID,
			Username:   o.Username,
			Email:      o.Email,
			Role:       o.Role,
			IP:         s.IP,
			Device:     s.Device,
			Name:       s.Name,
			Location:   s.Location,
			LoginTime:  s.LoginTime,
			LastActive: s.LastActive,
		}
		if !unmasked {
			row.IP = utils.MaskIP(s.IP)
			row.Email = utils.MaskEmail(o.Email)
		}
		rows = append(rows, row)
	}
	return model.NewPage(rows, total, page, limit), nil
}

// ForceLogout lets staff end another user's session, or every session when
// sessionID is empty. The actor must outrank the target.
func (m *SessionManager) ForceLogout(ctx context.Context, actor Actor, targetUserID, sessionID string) (int, error) {
	if !actor.Can(model.PermForceLogout) {
		return 0, model.ErrForbidden
	}
	if targetUserID == actor.UserID {
		return 0, fmt.Errorf("cannot force logout yourself: %w", model.ErrForbidden)
	}
	target, err := m.users.FindByID(ctx, targetUserID)
	if err != nil {
		return 0, err
	}
	if !actor.Role.Outranks(target.Role) {
		return 0, fmt.Errorf("insufficient rank: %w", model.ErrForbidden)
	}

	if sessionID != "" {
		if err := m.RevokeSession(ctx, actor, targetUserID, sessionID, model.ActionForcedLogout); err != nil {
			return 0, err
		}
		return 1, nil
	}
	return m.RevokeSessions(ctx, actor, targetUserID, "", model.ActionForcedLogout)
}

// LogSessionAction appends an audit entry. Failures are logged only.
func (m *SessionManager) LogSessionAction(ctx context.Context, entry *model.SessionAuditLog) {
	if m.audit == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = utils.NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = m.now()
	}
	if err := m.audit.Insert(ctx, entry); err != nil {
		utils.Error().Err(err).Str("action", string(entry.Action)).Msg("failed to write session audit log")
	}
}

// ListAuditLogs pages the audit trail, newest first.
func (m *SessionManager) ListAuditLogs(ctx context.Context, viewer Actor, f model.AuditFilter) (model.Page[model.SessionAuditLog], error) {
	if !viewer.Can(model.PermViewAudit) {
		return model.Page[model.SessionAuditLog]{}, model.ErrForbidden
	}
	f.Page, f.Limit = model.NormalizePage(f.Page, f.Limit)
	logs, total, err := m.audit.List(ctx, f)
	if err != nil {
		return model.Page[model.SessionAuditLog]{}, err
	}
	if viewer.Role != model.RoleRootAdmin {
		for i := range logs {
			logs[i].IP = utils.MaskIP(logs[i].IP)
		}
	}
	return model.NewPage(logs, total, f.Page, f.Limit), nil
}

// Sweep drops stale sessions from the registry and the user documents.
func (m *SessionManager) Sweep(ctx context.Context) {
	now := m.now()
	removed, err := m.registry.Sweep(ctx, now, m.cfg.IdleTimeout)
	if err != nil {
		utils.Error().Err(err).Msg("session registry sweep failed")
	}
	pruned, err := m.users.PruneStaleSessions(ctx, now, m.cfg.IdleTimeout)
	if err != nil {
		utils.Error().Err(err).Msg("failed to prune stale sessions")
	}
	m.persisted.Range(func(key, value any) bool {
		if now.Sub(value.(time.Time)) > m.cfg.IdleTimeout {
			m.persisted.Delete(key)
		}
		return true
	})
	if removed > 0 || pruned > 0 {
		utils.Info().Int("registry_removed", removed).Int64("users_pruned", pruned).Msg("session sweep complete")
	}
}

// StartCleanupTask sweeps on every tick until ctx is done.
func (m *SessionManager) StartCleanupTask(ctx context.Context) {
	interval := m.cfg.SweepInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep(ctx)
			}
		}
	}()
}
