package repository

import (
	"context"

	"urbansetu/model"
	"urbansetu/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const auditCollection = "session_audit_logs"

type AuditRepo struct {
	MongoCollection *mongo.Collection
}

func GetAuditRepo(db *mongo.Database) *AuditRepo {
	return &AuditRepo{MongoCollection: db.Collection(auditCollection)}
}

func (r *AuditRepo) Insert(ctx context.Context, entry *model.SessionAuditLog) error {
	timer := utils.TrackDBOperation("insert", auditCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.MongoCollection.InsertOne(ctx, entry)
	return translate(err, auditCollection, "insert")
}

// List returns newest first.
func (r *AuditRepo) List(ctx context.Context, f model.AuditFilter) ([]model.SessionAuditLog, int64, error) {
	timer := utils.TrackDBOperation("find", auditCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.Action != "" {
		filter["action"] = f.Action
	}

	total, err := r.MongoCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, auditCollection, "count")
	}

	opts, _, _ := pageOptions(f.Page, f.Limit)
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})

	logs, err := findAll[model.SessionAuditLog](ctx, r.MongoCollection, filter, opts)
	if err != nil {
		return nil, 0, translate(err, auditCollection, "find")
	}
	return logs, total, nil
}
