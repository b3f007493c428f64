package repository

import (
	"context"
	"time"

	"urbansetu/model"
	"urbansetu/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const subscriptionsCollection = "subscriptions"

type SubscriptionRepo struct {
	MongoCollection *mongo.Collection
}

func GetSubscriptionRepo(db *mongo.Database) *SubscriptionRepo {
	return &SubscriptionRepo{MongoCollection: db.Collection(subscriptionsCollection)}
}

// Subscribe upserts on (email, topic); created is false when the row existed.
func (r *SubscriptionRepo) Subscribe(ctx context.Context, s *model.Subscription) (bool, error) {
	timer := utils.TrackDBOperation("upsert", subscriptionsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.UpdateOne(ctx,
		bson.M{"email": s.Email, "topic": s.Topic},
		bson.M{
			"$set":   bson.M{"active": true},
			"$unset": bson.M{"unsubscribed_at": ""},
			"$setOnInsert": bson.M{
				"_id":        s.ID,
				"user_id":    s.UserID,
				"created_at": s.CreatedAt,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, translate(err, subscriptionsCollection, "upsert")
	}
	return result.UpsertedCount > 0, nil
}

func (r *SubscriptionRepo) Unsubscribe(ctx context.Context, email, topic string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.UpdateOne(ctx,
		bson.M{"email": email, "topic": topic},
		bson.M{"$set": bson.M{"active": false, "unsubscribed_at": time.Now()}},
	)
	if err != nil {
		return translate(err, subscriptionsCollection, "update")
	}
	if result.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepo) List(ctx context.Context, topic string, activeOnly bool, page, limit int) ([]model.Subscription, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if topic != "" {
		filter["topic"] = topic
	}
	if activeOnly {
		filter["active"] = true
	}
	total, err := r.MongoCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, subscriptionsCollection, "count")
	}
	opts, _, _ := pageOptions(page, limit)
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	out, err := findAll[model.Subscription](ctx, r.MongoCollection, filter, opts)
	if err != nil {
		return nil, 0, translate(err, subscriptionsCollection, "find")
	}
	return out, total, nil
}
