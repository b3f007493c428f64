package services

import (
	"context"
	"fmt"
	"time"

	"urbansetu/model"
	"urbansetu/utils"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RedisSessionRegistry shares live sessions between API processes.
// Keys: session:<id> holds the JSON session, user_sessions:<uid> the id set.
type RedisSessionRegistry struct {
	client *redis.Client
}

func NewRedisSessionRegistry(client *redis.Client) *RedisSessionRegistry {
	return &RedisSessionRegistry{client: client}
}

func sessionKey(id string) string      { return "session:" + id }
func userSessionsKey(id string) string { return "user_sessions:" + id }

func (rc *RedisSessionRegistry) Put(ctx context.Context, s *model.ActiveSession) error {
	if s == nil {
		return fmt.Errorf("cannot cache nil session")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %v", err)
	}

	ttl := time.Until(s.ExpiresAt)
	if s.ExpiresAt.IsZero() {
		ttl = 0
	} else if ttl <= 0 {
		return fmt.Errorf("session has already expired")
	}

	pipe := rc.client.TxPipeline()
	pipe.Set(ctx, sessionKey(s.SessionID), data, ttl)
	pipe.SAdd(ctx, userSessionsKey(s.UserID), s.SessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache session: %v", err)
	}
	return nil
}

func (rc *RedisSessionRegistry) Get(ctx context.Context, sessionID string) (*model.ActiveSession, bool, error) {
	data, err := rc.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		utils.TrackCacheOperation("session", false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get session from cache: %v", err)
	}
	utils.TrackCacheOperation("session", true)

	var s model.ActiveSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal session: %v", err)
	}
	return &s, true, nil
}

// update rewrites a cached session keeping its TTL.
func (rc *RedisSessionRegistry) update(ctx context.Context, sessionID string, fn func(*model.ActiveSession)) error {
	s, ok, err := rc.Get(ctx, sessionID)
	if err != nil || !ok {
		return err
	}
	fn(s)
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %v", err)
	}
	return rc.client.SetArgs(ctx, sessionKey(sessionID), data, redis.SetArgs{KeepTTL: true}).Err()
}

func (rc *RedisSessionRegistry) Deactivate(ctx context.Context, sessionID string) error {
	return rc.update(ctx, sessionID, func(s *model.ActiveSession) { s.IsActive = false })
}

func (rc *RedisSessionRegistry) Touch(ctx context.Context, sessionID string, at time.Time) error {
	return rc.update(ctx, sessionID, func(s *model.ActiveSession) {
		if s.IsActive {
			s.LastActive = at
		}
	})
}

func (rc *RedisSessionRegistry) ListByUser(ctx context.Context, userID string) ([]*model.ActiveSession, error) {
	ids, err := rc.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list user sessions: %v", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	vals, err := rc.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load user sessions: %v", err)
	}

	var out []*model.ActiveSession
	var gone []interface{}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			gone = append(gone, ids[i])
			continue
		}
		var s model.ActiveSession
		if err := json.Unmarshal([]byte(raw), &s); err != nil || !s.IsActive {
			continue
		}
		out = append(out, &s)
	}
	if len(gone) > 0 {
		rc.client.SRem(ctx, userSessionsKey(userID), gone...)
	}
	return out, nil
}

// Sweep scans session:* and drops stale entries.
func (rc *RedisSessionRegistry) Sweep(ctx context.Context, now time.Time, idle time.Duration) (int, error) {
	var cursor uint64
	removed := 0
	for {
		keys, next, err := rc.client.Scan(ctx, cursor, "session:*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to scan keys: %v", err)
		}

		for _, key := range keys {
			data, err := rc.client.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}
			var s model.ActiveSession
			if err := json.Unmarshal(data, &s); err != nil {
				continue
			}
			if Stale(&s, now, idle) {
				pipe := rc.client.TxPipeline()
				pipe.Del(ctx, key)
				pipe.SRem(ctx, userSessionsKey(s.UserID), s.SessionID)
				if _, err := pipe.Exec(ctx); err == nil {
					removed++
				}
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	if n, err := rc.Count(ctx); err == nil {
		utils.ActiveSessions.Set(float64(n))
	}
	return removed, nil
}

func (rc *RedisSessionRegistry) Count(ctx context.Context) (int, error) {
	var cursor uint64
	n := 0
	for {
		keys, next, err := rc.client.Scan(ctx, cursor, "session:*", 500).Result()
		if err != nil {
			return n, err
		}
		n += len(keys)
		cursor = next
		if cursor == 0 {
			return n, nil
		}
	}
}
