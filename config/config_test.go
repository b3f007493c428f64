package config

import (
	"net/http"
	"testing"
	"time"

	"urbansetu/model"
)

func TestLoadSessionConfigDefaults(t *testing.T) {
	cfg := LoadSessionConfig()

	if cfg.IdleTimeout != 48*time.Hour {
		t.Errorf("idle timeout = %v, want 48h", cfg.IdleTimeout)
	}
	if cfg.TouchInterval != time.Minute {
		t.Errorf("touch interval = %v, want 1m", cfg.TouchInterval)
	}
	want := map[model.Role]int{model.RoleUser: 5, model.RoleAdmin: 2, model.RoleRootAdmin: 1}
	for role, n := range want {
		if cfg.Limits[role] != n {
			t.Errorf("limit[%s] = %d, want %d", role, cfg.Limits[role], n)
		}
	}
}

func TestLoadSessionConfigOverrides(t *testing.T) {
	t.Setenv("SESSION_LIMIT_ADMIN", "4")
	t.Setenv("SESSION_IDLE_TIMEOUT", "3600")
	t.Setenv("SESSION_REGISTRY", "redis")

	cfg := LoadSessionConfig()
	if cfg.Limits[model.RoleAdmin] != 4 {
		t.Errorf("admin limit = %d, want 4", cfg.Limits[model.RoleAdmin])
	}
	if cfg.IdleTimeout != time.Hour {
		t.Errorf("idle timeout = %v, want 1h", cfg.IdleTimeout)
	}
	if cfg.Registry != "redis" {
		t.Errorf("registry = %q, want redis", cfg.Registry)
	}
}

func TestCookieSameSite(t *testing.T) {
	tests := []struct {
		env  string
		want http.SameSite
	}{
		{"production", http.SameSiteNoneMode},
		{"development", http.SameSiteLaxMode},
		{"", http.SameSiteLaxMode},
	}
	for _, tt := range tests {
		s := ServerConfig{Env: tt.env}
		if got := s.CookieSameSite(); got != tt.want {
			t.Errorf("env %q: got %v, want %v", tt.env, got, tt.want)
		}
	}
}
