package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"urbansetu/model"
	"urbansetu/usecase"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON body %q: %v", w.Body.String(), err)
	}
	return env
}

// asUser stands in for AuthMiddleware.
func asUser(userID string, role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
			c.Set("role", role)
			c.Set("session_id", "sess-"+userID)
		}
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("listing: %w", model.ErrNotFound), http.StatusNotFound},
		{"unauthorized", model.ErrUnauthorized, http.StatusUnauthorized},
		{"session invalid", model.ErrSessionInvalid, http.StatusUnauthorized},
		{"forbidden", model.ErrForbidden, http.StatusForbidden},
		{"locked post", model.ErrLocked, http.StatusForbidden},
		{"invalid input", fmt.Errorf("name required: %w", model.ErrInvalidInput), http.StatusBadRequest},
		{"insufficient coins", model.ErrInsufficientCoins, http.StatusBadRequest},
		{"duplicate", model.ErrDuplicate, http.StatusConflict},
		{"rent locked", model.ErrRentLocked, http.StatusConflict},
		{"already reported", model.ErrAlreadyReported, http.StatusConflict},
		{"version conflict", model.ErrVersionConflict, http.StatusConflict},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			respondError(c, tt.err)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}

	t.Run("internal errors are not leaked", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		respondError(c, errors.New("mongo: dial tcp 10.0.0.5:27017"))
		if strings.Contains(w.Body.String(), "10.0.0.5") {
			t.Errorf("body leaks internal error: %s", w.Body.String())
		}
	})

	t.Run("too many attempts forces signout", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodDelete, "/", nil)
		respondError(c, model.ErrTooManyAttempts)
		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
		if env := decode(t, w); env.Error != ForceSignout {
			t.Errorf("error = %q, want %q", env.Error, ForceSignout)
		}
	})
}

func TestCookieConfig(t *testing.T) {
	cc := CookieConfig{
		Secure:     true,
		SameSite:   http.SameSiteNoneMode,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		SessionTTL: 7 * 24 * time.Hour,
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	cc.setAuth(c, "acc", "ref", "sid")

	cookies := w.Result().Cookies()
	if len(cookies) != 3 {
		t.Fatalf("got %d cookies, want 3", len(cookies))
	}
	byName := map[string]*http.Cookie{}
	for _, ck := range cookies {
		byName[ck.Name] = ck
		if !ck.HttpOnly || !ck.Secure {
			t.Errorf("cookie %s: httpOnly=%v secure=%v", ck.Name, ck.HttpOnly, ck.Secure)
		}
		if ck.SameSite != http.SameSiteNoneMode {
			t.Errorf("cookie %s: sameSite=%v", ck.Name, ck.SameSite)
		}
	}
	if got := byName["access_token"]; got == nil || got.Value != "acc" || got.MaxAge != 900 {
		t.Errorf("access cookie = %+v", got)
	}
	if got := byName["refresh_token"]; got == nil || got.MaxAge != int((7 * 24 * time.Hour).Seconds()) {
		t.Errorf("refresh cookie = %+v", got)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	cc.clearAuth(c)
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge >= 0 || ck.Value != "" {
			t.Errorf("cookie %s not cleared: %+v", ck.Name, ck)
		}
	}
}

type fakeVisitorStore struct {
	mu      sync.Mutex
	rows    map[string]*model.VisitorLog
	repeats int
}

func (f *fakeVisitorStore) Insert(_ context.Context, v *model.VisitorLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := v.Fingerprint + v.VisitDate.Format(time.DateOnly)
	if _, ok := f.rows[key]; ok {
		return model.ErrDuplicate
	}
	f.rows[key] = v
	return nil
}

func (f *fakeVisitorStore) RecordRepeat(_ context.Context, fp string, day time.Time, _ *model.PageView, _ model.ConsentUpdate, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[fp+day.Format(time.DateOnly)]
	if !ok {
		return model.ErrNotFound
	}
	row.VisitCount++
	f.repeats++
	return nil
}

func (f *fakeVisitorStore) Stats(_ context.Context, _ time.Time) (*model.VisitorStats, error) {
	return &model.VisitorStats{TotalUnique: int64(len(f.rows))}, nil
}

func TestVisitorHandler(t *testing.T) {
	store := &fakeVisitorStore{rows: map[string]*model.VisitorLog{}}
	h := NewVisitorHandler(usecase.NewVisitorService(store))

	r := gin.New()
	r.POST("/track", h.Track)
	r.GET("/stats/user", asUser("u1", model.RoleUser), h.Stats)
	r.GET("/stats/admin", asUser("a1", model.RoleAdmin), h.Stats)

	w := doJSON(r, http.MethodPost, "/track", map[string]interface{}{"path": "/", "consent": map[string]bool{"analytics": false}})
	if w.Code != http.StatusOK {
		t.Fatalf("declined consent: status %d", w.Code)
	}
	var res usecase.TrackResult
	_ = json.Unmarshal(decode(t, w).Data, &res)
	if res.Tracked || len(store.rows) != 0 {
		t.Fatalf("declined consent was stored: %+v", res)
	}

	body := map[string]interface{}{"path": "/listings", "source": "google", "consent": map[string]bool{"analytics": true}}
	for i, wantRepeat := range []bool{false, true} {
		w = doJSON(r, http.MethodPost, "/track", body)
		if w.Code != http.StatusOK {
			t.Fatalf("track %d: status %d", i, w.Code)
		}
		res = usecase.TrackResult{}
		_ = json.Unmarshal(decode(t, w).Data, &res)
		if !res.Tracked || res.Repeat != wantRepeat {
			t.Errorf("track %d: %+v, want repeat=%v", i, res, wantRepeat)
		}
	}
	if len(store.rows) != 1 || store.repeats != 1 {
		t.Errorf("rows=%d repeats=%d, want 1/1", len(store.rows), store.repeats)
	}

	if w := doJSON(r, http.MethodGet, "/stats/user", nil); w.Code != http.StatusForbidden {
		t.Errorf("user stats: status %d, want 403", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/stats/admin?days=7", nil); w.Code != http.StatusOK {
		t.Errorf("admin stats: status %d, want 200", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/stats/admin?days=week", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad days: status %d, want 400", w.Code)
	}
}

type fakeRouteStore struct {
	mu     sync.Mutex
	routes map[string]model.Route
}

func (f *fakeRouteStore) Create(_ context.Context, rt *model.Route) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[rt.ID] = *rt
	return nil
}

func (f *fakeRouteStore) FindOwned(_ context.Context, id, userID string) (*model.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.routes[id]
	if !ok || rt.UserID != userID {
		return nil, model.ErrNotFound
	}
	return &rt, nil
}

func (f *fakeRouteStore) Replace(_ context.Context, rt *model.Route) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[rt.ID] = *rt
	return nil
}

func (f *fakeRouteStore) Delete(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rt, ok := f.routes[id]; !ok || rt.UserID != userID {
		return model.ErrNotFound
	}
	delete(f.routes, id)
	return nil
}

func (f *fakeRouteStore) ListByUser(_ context.Context, userID string) ([]model.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Route{}
	for _, rt := range f.routes {
		if rt.UserID == userID {
			out = append(out, rt)
		}
	}
	return out, nil
}

func TestRouteHandlers(t *testing.T) {
	h := NewContentHandler(ContentServices{
		Routes: usecase.NewRouteService(&fakeRouteStore{routes: map[string]model.Route{}}),
	})

	r := gin.New()
	alice := r.Group("/alice", asUser("alice", model.RoleUser))
	alice.POST("/routes", h.CreateRoute)
	alice.GET("/routes", h.ListRoutes)
	alice.GET("/routes/:id", h.GetRoute)
	bob := r.Group("/bob", asUser("bob", model.RoleUser))
	bob.GET("/routes/:id", h.GetRoute)
	bob.DELETE("/routes/:id", h.DeleteRoute)

	w := doJSON(r, http.MethodPost, "/alice/routes", map[string]interface{}{
		"name":        "Office commute",
		"origin":      map[string]float64{"lat": 19.076, "lng": 72.8777},
		"destination": map[string]float64{"lat": 19.1136, "lng": 72.8697},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", w.Code, w.Body.String())
	}
	var rt model.Route
	if err := json.Unmarshal(decode(t, w).Data, &rt); err != nil {
		t.Fatal(err)
	}
	if rt.Mode != model.ModeDriving || rt.UserID != "alice" {
		t.Errorf("route = %+v", rt)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"owner reads", http.MethodGet, "/alice/routes/" + rt.ID, nil, http.StatusOK},
		{"other user cannot read", http.MethodGet, "/bob/routes/" + rt.ID, nil, http.StatusNotFound},
		{"other user cannot delete", http.MethodDelete, "/bob/routes/" + rt.ID, nil, http.StatusNotFound},
		{"unknown mode", http.MethodPost, "/alice/routes", map[string]interface{}{
			"name":        "x",
			"mode":        "teleport",
			"origin":      map[string]float64{"lat": 1, "lng": 1},
			"destination": map[string]float64{"lat": 2, "lng": 2},
		}, http.StatusBadRequest},
		{"latitude out of range", http.MethodPost, "/alice/routes", map[string]interface{}{
			"name":        "x",
			"origin":      map[string]float64{"lat": 91, "lng": 1},
			"destination": map[string]float64{"lat": 2, "lng": 2},
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doJSON(r, tt.method, tt.path, tt.body); w.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
		})
	}

	w = doJSON(r, http.MethodGet, "/alice/routes", nil)
	var list struct {
		Routes []model.Route `json:"routes"`
	}
	_ = json.Unmarshal(decode(t, w).Data, &list)
	if len(list.Routes) != 1 {
		t.Errorf("alice has %d routes, want 1", len(list.Routes))
	}
}

func TestSystemHandler(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name   string
		checks map[string]PingFunc
		status int
	}{
		{"all up", map[string]PingFunc{"mongo": up, "redis": up}, http.StatusOK},
		{"redis down", map[string]PingFunc{"mongo": up, "redis": down}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler(tt.checks, func() int { return 3 })
			r := gin.New()
			r.GET("/health", h.Liveness)
			if w := doJSON(r, http.MethodGet, "/health", nil); w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestTokenFromQuery(t *testing.T) {
	r := gin.New()
	r.GET("/ws", TokenFromQuery(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetHeader("Authorization"))
	})

	w := doJSON(r, http.MethodGet, "/ws?token=abc", nil)
	if got := w.Body.String(); got != "Bearer abc" {
		t.Errorf("Authorization = %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/ws?token=abc", nil)
	req.Header.Set("Authorization", "Bearer header")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Body.String(); got != "Bearer header" {
		t.Errorf("header token was overridden: %q", got)
	}
}
