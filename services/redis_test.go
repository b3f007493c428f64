package services

import (
	"context"
	"os"
	"testing"
	"time"

	"urbansetu/model"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to REDIS_TEST_URL (default localhost, DB 1) and
// flushes it. Tests are skipped when no server is reachable.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		url = "redis://localhost:6379/1"
	}
	client, err := NewRedisClient(url)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("Failed to flush test Redis DB: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisBlacklist(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	tokens := NewTokenService("test_secret", "urbansetu", time.Minute, time.Hour)
	blacklist := NewTokenBlacklist(client, tokens)

	access, refresh, err := tokens.IssuePair("u1", model.RoleUser, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if blacklist.IsBlacklisted(ctx, access) {
		t.Fatal("fresh token reported as blacklisted")
	}
	if err := blacklist.Blacklist(ctx, access, refresh, ""); err != nil {
		t.Fatalf("Blacklist: %v", err)
	}
	for name, tok := range map[string]string{"access": access, "refresh": refresh} {
		if !blacklist.IsBlacklisted(ctx, tok) {
			t.Errorf("%s token not blacklisted", name)
		}
	}

	ttl, err := client.TTL(ctx, blacklistKey(access)).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("access blacklist TTL = %v, %v; want within the token lifetime", ttl, err)
	}
}

func TestAttemptCounter(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	counter := NewAttemptCounter(client, "confirm_attempts", time.Minute)

	for want := 1; want <= 3; want++ {
		n, err := counter.Fail(ctx, "u1")
		if err != nil || n != want {
			t.Fatalf("Fail #%d = %d, %v", want, n, err)
		}
	}
	if n, _ := counter.Fail(ctx, "u2"); n != 1 {
		t.Errorf("counters are not per key: u2 = %d", n)
	}
	if err := counter.Reset(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := counter.Fail(ctx, "u1"); n != 1 {
		t.Errorf("after reset = %d, want 1", n)
	}
}

func TestRedisSessionRegistry(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	r := NewRedisSessionRegistry(client)
	now := time.Now()

	for _, s := range []*model.ActiveSession{newSession("a", "u1", now), newSession("b", "u1", now), newSession("c", "u2", now)} {
		if err := r.Put(ctx, s); err != nil {
			t.Fatalf("Put(%s): %v", s.SessionID, err)
		}
	}

	got, ok, err := r.Get(ctx, "a")
	if err != nil || !ok || got.UserID != "u1" {
		t.Fatalf("Get(a) = %+v, %v, %v", got, ok, err)
	}
	if _, ok, _ := r.Get(ctx, "missing"); ok {
		t.Error("Get(missing) reported a hit")
	}

	list, err := r.ListByUser(ctx, "u1")
	if err != nil || len(list) != 2 {
		t.Fatalf("ListByUser(u1) = %d sessions, %v", len(list), err)
	}

	if err := r.Deactivate(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	list, _ = r.ListByUser(ctx, "u1")
	if len(list) != 1 || list[0].SessionID != "b" {
		t.Errorf("after deactivate = %+v", list)
	}

	later := now.Add(time.Minute)
	if err := r.Touch(ctx, "b", later); err != nil {
		t.Fatal(err)
	}
	got, _, _ = r.Get(ctx, "b")
	if !got.LastActive.Equal(later) {
		t.Errorf("LastActive = %v, want %v", got.LastActive, later)
	}

	if err := r.Put(ctx, newSession("old", "u3", now.Add(-8*24*time.Hour))); err == nil {
		t.Error("Put accepted an already expired session")
	}
}
