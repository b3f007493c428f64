package repository

import (
	"context"

	"urbansetu/model"
	"urbansetu/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const routesCollection = "routes"

type RouteRepo struct {
	MongoCollection *mongo.Collection
}

func GetRouteRepo(db *mongo.Database) *RouteRepo {
	return &RouteRepo{MongoCollection: db.Collection(routesCollection)}
}

func (r *RouteRepo) Create(ctx context.Context, rt *model.Route) error {
	timer := utils.TrackDBOperation("insert", routesCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.MongoCollection.InsertOne(ctx, rt)
	return translate(err, routesCollection, "insert")
}

// FindOwned scopes the lookup to the owner so other users see ErrNotFound.
func (r *RouteRepo) FindOwned(ctx context.Context, id, userID string) (*model.Route, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var rt model.Route
	if err := r.MongoCollection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&rt); err != nil {
		return nil, translate(err, routesCollection, "find")
	}
	return &rt, nil
}

func (r *RouteRepo) Replace(ctx context.Context, rt *model.Route) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.ReplaceOne(ctx, bson.M{"_id": rt.ID, "user_id": rt.UserID}, rt)
	if err != nil {
		return translate(err, routesCollection, "replace")
	}
	if result.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *RouteRepo) Delete(ctx context.Context, id, userID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return translate(err, routesCollection, "delete")
	}
	if result.DeletedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *RouteRepo) ListByUser(ctx context.Context, userID string) ([]model.Route, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	out, err := findAll[model.Route](ctx, r.MongoCollection, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}).SetLimit(200))
	return out, translate(err, routesCollection, "find")
}
