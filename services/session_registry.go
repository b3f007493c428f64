package services

import (
	"context"
	"sync"
	"time"

	"urbansetu/model"
	"urbansetu/utils"
)

// SessionRegistry is the fast lookup for live sessions. The user document
// stays the durable copy.
type SessionRegistry interface {
	Put(ctx context.Context, s *model.ActiveSession) error
	Get(ctx context.Context, sessionID string) (*model.ActiveSession, bool, error)
	Deactivate(ctx context.Context, sessionID string) error
	Touch(ctx context.Context, sessionID string, at time.Time) error
	ListByUser(ctx context.Context, userID string) ([]*model.ActiveSession, error)
	Sweep(ctx context.Context, now time.Time, idle time.Duration) (int, error)
	Count(ctx context.Context) (int, error)
}

// Stale reports whether a registry entry should be dropped.
func Stale(s *model.ActiveSession, now time.Time, idle time.Duration) bool {
	if !s.IsActive || s.Expired(now) {
		return true
	}
	return idle > 0 && now.Sub(s.LastActive) > idle
}

type MemorySessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*model.ActiveSession
}

func NewMemorySessionRegistry() *MemorySessionRegistry {
	return &MemorySessionRegistry{sessions: make(map[string]*model.ActiveSession)}
}

func (r *MemorySessionRegistry) Put(_ context.Context, s *model.ActiveSession) error {
	cp := *s
	r.mu.Lock()
	r.sessions[s.SessionID] = &cp
	n := len(r.sessions)
	r.mu.Unlock()
	utils.ActiveSessions.Set(float64(n))
	return nil
}

// Get returns a copy so callers never race with Touch.
func (r *MemorySessionRegistry) Get(_ context.Context, sessionID string) (*model.ActiveSession, bool, error) {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	var cp model.ActiveSession
	if ok {
		cp = *s
	}
	r.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return &cp, true, nil
}

func (r *MemorySessionRegistry) Deactivate(_ context.Context, sessionID string) error {
	r.mu.Lock()
	if s, ok := r.sessions[sessionID]; ok {
		s.IsActive = false
	}
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRegistry) Touch(_ context.Context, sessionID string, at time.Time) error {
	r.mu.Lock()
	if s, ok := r.sessions[sessionID]; ok && s.IsActive {
		s.LastActive = at
	}
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRegistry) ListByUser(_ context.Context, userID string) ([]*model.ActiveSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.ActiveSession
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemorySessionRegistry) Sweep(_ context.Context, now time.Time, idle time.Duration) (int, error) {
	r.mu.Lock()
	removed := 0
	for id, s := range r.sessions {
		if Stale(s, now, idle) {
			delete(r.sessions, id)
			removed++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()
	utils.ActiveSessions.Set(float64(n))
	return removed, nil
}

func (r *MemorySessionRegistry) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions), nil
}
