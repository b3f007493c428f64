package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"urbansetu/model"
	"urbansetu/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const usersCollection = "users"

type UserRepo struct {
	MongoCollection *mongo.Collection
}

func GetUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{MongoCollection: db.Collection(usersCollection)}
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	timer := utils.TrackDBOperation("insert", usersCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if user.Username == "" || user.Password == "" {
		utils.TrackError("database", "invalid_user_data")
		return fmt.Errorf("username and password required: %w", model.ErrInvalidInput)
	}
	if user.ActiveSessions == nil {
		user.ActiveSessions = []model.ActiveSession{}
	}

	_, err := r.MongoCollection.InsertOne(ctx, user)
	return translate(err, usersCollection, "insert")
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	timer := utils.TrackDBOperation("find", usersCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var user model.User
	if err := r.MongoCollection.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translate(err, usersCollection, "find")
	}
	markActive(user.ActiveSessions)
	return &user, nil
}

func (r *UserRepo) FindByID(ctx context.Context, userID string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": userID})
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

// FindBySession returns the owner of a persisted session and the session itself.
func (r *UserRepo) FindBySession(ctx context.Context, sessionID string) (*model.User, *model.ActiveSession, error) {
	user, err := r.findOne(ctx, bson.M{"active_sessions.session_id": sessionID})
	if err != nil {
		return nil, nil, err
	}
	for i := range user.ActiveSessions {
		if user.ActiveSessions[i].SessionID == sessionID {
			return user, &user.ActiveSessions[i], nil
		}
	}
	return nil, nil, model.ErrNotFound
}

func (r *UserRepo) update(ctx context.Context, op string, filter, update bson.M) error {
	timer := utils.TrackDBOperation(op, usersCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate(err, usersCollection, op)
	}
	if result.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID, hashedPassword string) error {
	if hashedPassword == "" {
		utils.TrackError("database", "invalid_password_hash")
		return fmt.Errorf("password hashing error")
	}
	now := time.Now()
	return r.update(ctx, "update", bson.M{"_id": userID}, bson.M{
		"$set": bson.M{
			"password":             hashedPassword,
			"last_password_change": now,
			"updated_at":           now,
		},
	})
}

func (r *UserRepo) UpdateTwoFactor(ctx context.Context, userID string, enabled bool, secret string, recoveryCodes []string) error {
	return r.update(ctx, "update", bson.M{"_id": userID}, bson.M{
		"$set": bson.M{
			"two_factor_enabled": enabled,
			"two_factor_secret":  secret,
			"recovery_codes":     recoveryCodes,
			"updated_at":         time.Now(),
		},
	})
}

func (r *UserRepo) UpdateRecoveryCodes(ctx context.Context, userID string, codes []string) error {
	return r.update(ctx, "update", bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"recovery_codes": codes},
	})
}

func (r *UserRepo) UpdateRole(ctx context.Context, userID string, role model.Role) error {
	return r.update(ctx, "update", bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"role": role, "updated_at": time.Now()},
	})
}

func (r *UserRepo) Delete(ctx context.Context, userID string) error {
	timer := utils.TrackDBOperation("delete", usersCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return translate(err, usersCollection, "delete")
	}
	if result.DeletedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	n, err := r.MongoCollection.CountDocuments(ctx, bson.M{})
	return n, translate(err, usersCollection, "count")
}

// Session array operations.

func (r *UserRepo) AddSession(ctx context.Context, userID string, s *model.ActiveSession) error {
	return r.update(ctx, "push_session", bson.M{"_id": userID}, bson.M{
		"$push": bson.M{"active_sessions": s},
	})
}

func (r *UserRepo) RemoveSession(ctx context.Context, userID, sessionID string) error {
	return r.update(ctx, "pull_session", bson.M{"_id": userID}, bson.M{
		"$pull": bson.M{"active_sessions": bson.M{"session_id": sessionID}},
	})
}

func (r *UserRepo) TouchSession(ctx context.Context, userID, sessionID string, at time.Time) error {
	return r.update(ctx, "touch_session",
		bson.M{"_id": userID, "active_sessions.session_id": sessionID},
		bson.M{"$set": bson.M{"active_sessions.$.last_active": at}},
	)
}

func (r *UserRepo) SetLastKnown(ctx context.Context, userID, ip, device string) error {
	return r.update(ctx, "update", bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"last_known_ip": ip, "last_known_device": device},
	})
}

// liveSessionsPipeline unwinds active_sessions into one row per session,
// drops sessions staleSessionFilter would prune, and pages the rows.
func liveSessionsPipeline(now time.Time, idle time.Duration, page, limit int) mongo.Pipeline {
	live := bson.M{"active_sessions.expires_at": bson.M{"$gte": now}}
	if idle > 0 {
		live["active_sessions.last_active"] = bson.M{"$gte": now.Add(-idle)}
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"active_sessions.0": bson.M{"$exists": true}}}},
		{{Key: "$project", Value: bson.M{"username": 1, "email": 1, "role": 1, "active_sessions": 1}}},
		{{Key: "$unwind", Value: "$active_sessions"}},
		{{Key: "$match", Value: live}},
		{{Key: "$sort", Value: bson.D{
			{Key: "active_sessions.last_active", Value: -1},
			{Key: "active_sessions.session_id", Value: 1},
		}}},
		{{Key: "$facet", Value: bson.M{
			"items": bson.A{
				bson.M{"$skip": int64((page - 1) * limit)},
				bson.M{"$limit": int64(limit)},
			},
			"total": bson.A{bson.M{"$count": "count"}},
		}}},
	}
}

// ListLiveSessions pages through every live session across users, most
// recently active first. Total counts sessions, not users.
func (r *UserRepo) ListLiveSessions(ctx context.Context, now time.Time, idle time.Duration, page, limit int) ([]model.SessionOwner, int64, error) {
	timer := utils.TrackDBOperation("aggregate", usersCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	page, limit = model.NormalizePage(page, limit)
	cursor, err := r.MongoCollection.Aggregate(ctx, liveSessionsPipeline(now, idle, page, limit))
	if err != nil {
		return nil, 0, translate(err, usersCollection, "aggregate")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Items []model.SessionOwner `bson:"items"`
		Total []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, 0, translate(err, usersCollection, "aggregate")
	}
	if len(rows) == 0 {
		return nil, 0, nil
	}
	var total int64
	if len(rows[0].Total) > 0 {
		total = rows[0].Total[0].Count
	}
	items := rows[0].Items
	for i := range items {
		items[i].Session.IsActive = true
	}
	return items, total, nil
}

// staleSessionFilter matches expired sessions and, when idle > 0, sessions
// idle longer than idle.
func staleSessionFilter(now time.Time, idle time.Duration) bson.M {
	expired := bson.M{"expires_at": bson.M{"$lt": now}}
	if idle <= 0 {
		return expired
	}
	return bson.M{"$or": bson.A{
		expired,
		bson.M{"last_active": bson.M{"$lt": now.Add(-idle)}},
	}}
}

// PruneStaleSessions removes persisted sessions past expiry or idle too long.
func (r *UserRepo) PruneStaleSessions(ctx context.Context, now time.Time, idle time.Duration) (int64, error) {
	timer := utils.TrackDBOperation("prune_sessions", usersCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	stale := staleSessionFilter(now, idle)
	result, err := r.MongoCollection.UpdateMany(ctx,
		bson.M{"active_sessions": bson.M{"$elemMatch": stale}},
		bson.M{"$pull": bson.M{"active_sessions": stale}},
	)
	if err != nil {
		return 0, translate(err, usersCollection, "prune_sessions")
	}
	return result.ModifiedCount, nil
}

// Persisted sessions are active by definition; revoked ones are pulled.
func markActive(sessions []model.ActiveSession) {
	for i := range sessions {
		sessions[i].IsActive = true
	}
}
