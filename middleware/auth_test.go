package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"urbansetu/model"
	"urbansetu/services"

	"github.com/gin-gonic/gin"
)

type stubSessions struct {
	live    map[string]string // session id -> user id
	touched []string
}

func (s *stubSessions) ValidateSession(_ context.Context, sid string) (*model.ActiveSession, error) {
	uid, ok := s.live[sid]
	if !ok {
		return nil, model.ErrSessionInvalid
	}
	return &model.ActiveSession{SessionID: sid, UserID: uid, IsActive: true}, nil
}

func (s *stubSessions) TouchSession(_ context.Context, sid string) error {
	s.touched = append(s.touched, sid)
	return nil
}

type stubBlacklist map[string]bool

func (b stubBlacklist) IsBlacklisted(_ context.Context, token string) bool { return b[token] }

func testTokenService() *services.TokenService {
	return services.NewTokenService("test_secret_key", "urbansetu", 15*time.Minute, 7*24*time.Hour)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := testTokenService()
	sessions := &stubSessions{live: map[string]string{"sid-1": "user-1", "sid-2": "user-2"}}
	blacklist := stubBlacklist{}

	issue := func(typ services.TokenType, uid, sid string) string {
		tok, _, err := tokens.Issue(typ, uid, model.RoleUser, sid, 0)
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}
	revoked := issue(services.AccessToken, "user-1", "sid-1")
	blacklist[revoked] = true

	tests := []struct {
		name           string
		setup          func(*http.Request)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "Valid Bearer Token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+issue(services.AccessToken, "user-1", "sid-1"))
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Valid Cookie Token",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: AccessCookie, Value: issue(services.AccessToken, "user-1", "sid-1")})
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "No Token",
			setup:          func(*http.Request) {},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Missing or invalid token",
		},
		{
			name: "Invalid Token Format",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer invalid-token")
			},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid token",
		},
		{
			name: "Refresh Token Rejected",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+issue(services.RefreshToken, "user-1", "sid-1"))
			},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid token",
		},
		{
			name: "Blacklisted Token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+revoked)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Token has been invalidated",
		},
		{
			name: "Revoked Session",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+issue(services.AccessToken, "user-1", "sid-gone"))
			},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Session expired or signed out",
		},
		{
			name: "Session Of Another User",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+issue(services.AccessToken, "user-1", "sid-2"))
			},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Session expired or signed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(AuthMiddleware(tokens, blacklist, sessions))
			router.GET("/test", func(c *gin.Context) {
				actor := ActorFrom(c)
				if actor.UserID != "user-1" || actor.SessionID != "sid-1" || actor.Role != model.RoleUser {
					t.Errorf("unexpected actor %+v", actor)
				}
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			tt.setup(req)
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedError == "" {
				return
			}
			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("Failed to parse response: %v", err)
			}
			if response["error"] != tt.expectedError {
				t.Errorf("Expected %q error, got %v", tt.expectedError, response["error"])
			}
		})
	}

	if len(sessions.touched) != 2 {
		t.Errorf("expected the two valid requests to touch their session, got %d", len(sessions.touched))
	}
}

func TestRequirePermission(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		role   model.Role
		userID string
		want   int
	}{
		{"", "", http.StatusUnauthorized},
		{model.RoleUser, "u", http.StatusForbidden},
		{model.RoleAdmin, "a", http.StatusOK},
		{model.RoleRootAdmin, "r", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			router := gin.New()
			router.Use(func(c *gin.Context) {
				if tt.userID != "" {
					c.Set(ctxUserID, tt.userID)
					c.Set(ctxRole, tt.role)
				}
			})
			router.GET("/admin", RequirePermission(model.PermViewSessions), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
			if w.Code != tt.want {
				t.Errorf("got %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(2, time.Minute)

	router := gin.New()
	router.Use(rl.Middleware())
	router.POST("/track", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/track", nil)
		req.RemoteAddr = "198.51.100.4:1234"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected status sequence %v", codes)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/track", nil)
	req.RemoteAddr = "198.51.100.5:1234"
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("other clients have their own bucket, got %d", w.Code)
	}

	rl.cleanup(time.Now().Add(2 * limiterIdleTTL))
	if len(rl.limiters) != 0 {
		t.Errorf("idle buckets should be dropped, got %d", len(rl.limiters))
	}
}

func TestRateLimiterStartCleanupReturns(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	returned := make(chan struct{})
	go func() {
		rl.StartCleanup(ctx, 10*time.Minute)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("StartCleanup blocked the caller")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestTracingMiddleware(), EnhancedRecoveryMiddleware())
	router.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if w.Header().Get(headerRequestID) == "" {
		t.Error("request id header should be set")
	}
}

func TestRequestSizeLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestSizeLimiter(8))
	router.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	req.ContentLength = 64
	router.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}
