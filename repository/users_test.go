package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"urbansetu/model"
	"urbansetu/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// newTestDB connects to MONGO_TEST_URI or skips the test.
func newTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	client, err := utils.ConnectMongo(context.Background(), utils.MongoOptions{URI: uri, MaxPoolSize: 5})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	db := client.Database("urbansetu_test_" + uuid.New().String()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	if err := SetupIndexes(context.Background(), db); err != nil {
		t.Fatalf("indexes: %v", err)
	}
	return db
}

func TestUserRepoSessions(t *testing.T) {
	db := newTestDB(t)
	repo := GetUserRepo(db)
	ctx := context.Background()

	user := &model.User{
		UserID:    uuid.New().String(),
		Username:  "testUser",
		Email:     "testemail@email.com",
		Password:  "salt$hash",
		Role:      model.RoleUser,
		CreatedAt: time.Now(),
		IsActive:  true,
	}

	t.Run("CreateUser", func(t *testing.T) {
		if err := repo.Create(ctx, user); err != nil {
			t.Fatal("add user failed!", err)
		}
		dup := *user
		dup.UserID = uuid.New().String()
		if err := repo.Create(ctx, &dup); !errors.Is(err, model.ErrDuplicate) {
			t.Fatalf("duplicate email: got %v", err)
		}
	})

	now := time.Now().UTC().Truncate(time.Millisecond)
	sess := &model.ActiveSession{
		SessionID:  uuid.New().String(),
		UserID:     user.UserID,
		Role:       model.RoleUser,
		IP:         "10.0.0.1",
		Device:     "Chrome on Windows (Desktop)",
		LoginTime:  now,
		LastActive: now,
		ExpiresAt:  now.Add(time.Hour),
	}

	t.Run("AddAndFindSession", func(t *testing.T) {
		if err := repo.AddSession(ctx, user.UserID, sess); err != nil {
			t.Fatal(err)
		}
		owner, found, err := repo.FindBySession(ctx, sess.SessionID)
		if err != nil {
			t.Fatal(err)
		}
		if owner.UserID != user.UserID || !found.IsActive {
			t.Errorf("unexpected owner %s / active %v", owner.UserID, found.IsActive)
		}
	})

	t.Run("TouchSession", func(t *testing.T) {
		later := now.Add(5 * time.Minute)
		if err := repo.TouchSession(ctx, user.UserID, sess.SessionID, later); err != nil {
			t.Fatal(err)
		}
		_, found, _ := repo.FindBySession(ctx, sess.SessionID)
		if !found.LastActive.Equal(later) {
			t.Errorf("last active = %v, want %v", found.LastActive, later)
		}
	})

	t.Run("RemoveSession", func(t *testing.T) {
		if err := repo.RemoveSession(ctx, user.UserID, sess.SessionID); err != nil {
			t.Fatal(err)
		}
		if _, _, err := repo.FindBySession(ctx, sess.SessionID); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected not found after pull, got %v", err)
		}
	})
}

func TestStaleSessionFilter(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		idle      time.Duration
		wantIdle  bool
		threshold time.Time
	}{
		{"idle check disabled", 0, false, time.Time{}},
		{"negative idle disabled", -time.Hour, false, time.Time{}},
		{"idle timeout", 48 * time.Hour, true, now.Add(-48 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := staleSessionFilter(now, tt.idle)
			or, hasOr := f["$or"].(bson.A)
			if hasOr != tt.wantIdle {
				t.Fatalf("filter = %v, idle clause present = %v, want %v", f, hasOr, tt.wantIdle)
			}
			if !tt.wantIdle {
				if got := f["expires_at"].(bson.M)["$lt"]; got != now {
					t.Errorf("expires_at bound = %v, want %v", got, now)
				}
				return
			}
			if len(or) != 2 {
				t.Fatalf("$or has %d clauses, want 2", len(or))
			}
			idle := or[1].(bson.M)["last_active"].(bson.M)["$lt"]
			if idle != tt.threshold {
				t.Errorf("last_active bound = %v, want %v", idle, tt.threshold)
			}
		})
	}
}

func TestLiveSessionsPipeline(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		idle     time.Duration
		wantIdle bool
	}{
		{"expiry only", 0, false},
		{"expiry and idle", 48 * time.Hour, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := liveSessionsPipeline(now, tt.idle, 3, 20)
			stages := make(map[string]interface{}, len(p))
			var order []string
			for _, stage := range p {
				order = append(order, stage[0].Key)
				stages[stage[0].Key] = stage[0].Value
			}
			if order[2] != "$unwind" || order[3] != "$match" {
				t.Fatalf("stages = %v, want $unwind before the live $match", order)
			}
			live := p[3][0].Value.(bson.M)
			if _, ok := live["active_sessions.last_active"]; ok != tt.wantIdle {
				t.Errorf("idle bound present = %v, want %v", ok, tt.wantIdle)
			}
			items := stages["$facet"].(bson.M)["items"].(bson.A)
			if skip := items[0].(bson.M)["$skip"]; skip != int64(40) {
				t.Errorf("$skip = %v, want 40", skip)
			}
		})
	}
}
