package repository

import (
	"context"

	"urbansetu/model"
	"urbansetu/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const updatesCollection = "platform_updates"

type UpdateRepo struct {
	MongoCollection *mongo.Collection
}

func GetUpdateRepo(db *mongo.Database) *UpdateRepo {
	return &UpdateRepo{MongoCollection: db.Collection(updatesCollection)}
}

func (r *UpdateRepo) Create(ctx context.Context, u *model.PlatformUpdate) error {
	timer := utils.TrackDBOperation("insert", updatesCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.MongoCollection.InsertOne(ctx, u)
	return translate(err, updatesCollection, "insert")
}

func (r *UpdateRepo) FindByID(ctx context.Context, id string) (*model.PlatformUpdate, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var u model.PlatformUpdate
	if err := r.MongoCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, translate(err, updatesCollection, "find")
	}
	return &u, nil
}

func (r *UpdateRepo) Replace(ctx context.Context, u *model.PlatformUpdate) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return translate(err, updatesCollection, "replace")
	}
	if result.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *UpdateRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, updatesCollection, "delete")
	}
	if result.DeletedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *UpdateRepo) List(ctx context.Context, publishedOnly bool, page, limit int) ([]model.PlatformUpdate, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	sortKey := "created_at"
	if publishedOnly {
		filter["published"] = true
		sortKey = "published_at"
	}
	total, err := r.MongoCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, updatesCollection, "count")
	}
	opts, _, _ := pageOptions(page, limit)
	opts.SetSort(bson.D{{Key: sortKey, Value: -1}})
	out, err := findAll[model.PlatformUpdate](ctx, r.MongoCollection, filter, opts)
	if err != nil {
		return nil, 0, translate(err, updatesCollection, "find")
	}
	return out, total, nil
}
