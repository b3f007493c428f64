package repository

import (
	"context"
	"time"

	"urbansetu/model"
	"urbansetu/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const agentsCollection = "agents"

type AgentRepo struct {
	MongoCollection *mongo.Collection
}

func GetAgentRepo(db *mongo.Database) *AgentRepo {
	return &AgentRepo{MongoCollection: db.Collection(agentsCollection)}
}

// Create relies on the unique user_id index for one application per user.
func (r *AgentRepo) Create(ctx context.Context, a *model.Agent) error {
	timer := utils.TrackDBOperation("insert", agentsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.MongoCollection.InsertOne(ctx, a)
	return translate(err, agentsCollection, "insert")
}

func (r *AgentRepo) FindByID(ctx context.Context, id string) (*model.Agent, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var a model.Agent
	if err := r.MongoCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, translate(err, agentsCollection, "find")
	}
	return &a, nil
}

func (r *AgentRepo) FindByUser(ctx context.Context, userID string) (*model.Agent, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var a model.Agent
	if err := r.MongoCollection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&a); err != nil {
		return nil, translate(err, agentsCollection, "find")
	}
	return &a, nil
}

func (r *AgentRepo) List(ctx context.Context, status model.AgentStatus, city string, page, limit int) ([]model.Agent, int64, error) {
	timer := utils.TrackDBOperation("find", agentsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	if city != "" {
		filter["city"] = bson.M{"$regex": containsPattern(city)}
	}
	total, err := r.MongoCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, agentsCollection, "count")
	}
	opts, _, _ := pageOptions(page, limit)
	opts.SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "created_at", Value: -1}})
	out, err := findAll[model.Agent](ctx, r.MongoCollection, filter, opts)
	if err != nil {
		return nil, 0, translate(err, agentsCollection, "find")
	}
	return out, total, nil
}

// SetStatus only acts on pending applications.
func (r *AgentRepo) SetStatus(ctx context.Context, id string, status model.AgentStatus, reason, by string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.UpdateOne(ctx,
		bson.M{"_id": id, "status": model.AgentPending},
		bson.M{"$set": bson.M{
			"status":           status,
			"rejection_reason": reason,
			"reviewed_by":      by,
			"updated_at":       time.Now(),
		}},
	)
	if err != nil {
		return translate(err, agentsCollection, "update")
	}
	if result.MatchedCount == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return model.ErrConflict
	}
	return nil
}

func (r *AgentRepo) SetRating(ctx context.Context, id string, s model.RatingSummary) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.MongoCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"rating": s.Average, "review_count": s.Count},
	})
	return translate(err, agentsCollection, "update")
}
