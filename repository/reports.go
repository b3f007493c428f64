package repository

import (
	"context"
	"time"

	"urbansetu/model"
	"urbansetu/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const reportsCollection = "report_messages"

type ReportRepo struct {
	MongoCollection *mongo.Collection
}

func GetReportRepo(db *mongo.Database) *ReportRepo {
	return &ReportRepo{MongoCollection: db.Collection(reportsCollection)}
}

func (r *ReportRepo) Create(ctx context.Context, rep *model.ReportMessage) error {
	timer := utils.TrackDBOperation("insert", reportsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.MongoCollection.InsertOne(ctx, rep)
	return translate(err, reportsCollection, "insert")
}

func (r *ReportRepo) List(ctx context.Context, status model.ReportStatus, page, limit int) ([]model.ReportMessage, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	total, err := r.MongoCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, reportsCollection, "count")
	}
	opts, _, _ := pageOptions(page, limit)
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	out, err := findAll[model.ReportMessage](ctx, r.MongoCollection, filter, opts)
	if err != nil {
		return nil, 0, translate(err, reportsCollection, "find")
	}
	return out, total, nil
}

// Close resolves or dismisses an open report.
func (r *ReportRepo) Close(ctx context.Context, id string, status model.ReportStatus, by, notes string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.UpdateOne(ctx,
		bson.M{"_id": id, "status": model.ReportOpen},
		bson.M{"$set": bson.M{
			"status":      status,
			"resolved_by": by,
			"notes":       notes,
			"updated_at":  time.Now(),
		}},
	)
	if err != nil {
		return translate(err, reportsCollection, "update")
	}
	if result.MatchedCount == 0 {
		n, err := r.MongoCollection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return translate(err, reportsCollection, "count")
		}
		if n == 0 {
			return model.ErrNotFound
		}
		return model.ErrConflict
	}
	return nil
}
