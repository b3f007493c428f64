package repository

import (
	"context"
	"math"
	"time"

	"urbansetu/model"
	"urbansetu/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const reviewsCollection = "reviews"

type ReviewRepo struct {
	MongoCollection *mongo.Collection
}

func GetReviewRepo(db *mongo.Database) *ReviewRepo {
	return &ReviewRepo{MongoCollection: db.Collection(reviewsCollection)}
}

func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	timer := utils.TrackDBOperation("insert", reviewsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.MongoCollection.InsertOne(ctx, rv)
	return translate(err, reviewsCollection, "insert")
}

func (r *ReviewRepo) FindByID(ctx context.Context, id string) (*model.Review, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var rv model.Review
	if err := r.MongoCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&rv); err != nil {
		return nil, translate(err, reviewsCollection, "find")
	}
	return &rv, nil
}

func (r *ReviewRepo) List(ctx context.Context, target model.ReviewTarget, targetID string, status model.ReviewStatus, page, limit int) ([]model.Review, int64, error) {
	timer := utils.TrackDBOperation("find", reviewsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if target != "" {
		filter["target_type"] = target
	}
	if targetID != "" {
		filter["target_id"] = targetID
	}
	if status != "" {
		filter["status"] = status
	}
	total, err := r.MongoCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, reviewsCollection, "count")
	}
	opts, _, _ := pageOptions(page, limit)
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	out, err := findAll[model.Review](ctx, r.MongoCollection, filter, opts)
	if err != nil {
		return nil, 0, translate(err, reviewsCollection, "find")
	}
	return out, total, nil
}

func (r *ReviewRepo) SetStatus(ctx context.Context, id string, status model.ReviewStatus, note string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status, "mod_note": note, "updated_at": time.Now()},
	})
	if err != nil {
		return translate(err, reviewsCollection, "update")
	}
	if result.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *ReviewRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, reviewsCollection, "delete")
	}
	if result.DeletedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Summary averages the approved ratings of one target.
func (r *ReviewRepo) Summary(ctx context.Context, target model.ReviewTarget, targetID string) (model.RatingSummary, error) {
	timer := utils.TrackDBOperation("aggregate", reviewsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"target_type": target,
			"target_id":   targetID,
			"status":      model.ReviewApproved,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"average": bson.M{"$avg": "$rating"},
			"count":   bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.MongoCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return model.RatingSummary{}, translate(err, reviewsCollection, "aggregate")
	}
	defer cursor.Close(ctx)

	var rows []model.RatingSummary
	if err := cursor.All(ctx, &rows); err != nil {
		return model.RatingSummary{}, translate(err, reviewsCollection, "aggregate")
	}
	if len(rows) == 0 {
		return model.RatingSummary{}, nil
	}
	s := rows[0]
	s.Average = math.Round(s.Average*10) / 10
	return s, nil
}
