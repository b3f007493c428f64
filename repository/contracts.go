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

const contractsCollection = "rental_contracts"

type ContractRepo struct {
	MongoCollection *mongo.Collection
}

func GetContractRepo(db *mongo.Database) *ContractRepo {
	return &ContractRepo{MongoCollection: db.Collection(contractsCollection)}
}

func (r *ContractRepo) Create(ctx context.Context, c *model.RentalContract) error {
	timer := utils.TrackDBOperation("insert", contractsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.MongoCollection.InsertOne(ctx, c)
	return translate(err, contractsCollection, "insert")
}

func (r *ContractRepo) FindByID(ctx context.Context, id string) (*model.RentalContract, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var c model.RentalContract
	if err := r.MongoCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err, contractsCollection, "find")
	}
	return &c, nil
}

// Transition moves a contract from one status to another. It fails with
// ErrConflict when the stored status is no longer `from`.
func (r *ContractRepo) Transition(ctx context.Context, id string, from, to model.ContractStatus, by string) error {
	timer := utils.TrackDBOperation("update", contractsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{"status": to, "updated_at": time.Now()}
	if to == model.ContractTerminated {
		set["terminated_by"] = by
	}
	result, err := r.MongoCollection.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return translate(err, contractsCollection, "update")
	}
	if result.MatchedCount == 0 {
		return model.ErrConflict
	}
	return nil
}

func (r *ContractRepo) HasPending(ctx context.Context, listingID, tenantID string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	n, err := r.MongoCollection.CountDocuments(ctx, bson.M{
		"listing_id": listingID,
		"tenant_id":  tenantID,
		"status":     model.ContractPending,
	})
	return n > 0, translate(err, contractsCollection, "count")
}

// ListByUser returns contracts where the user is tenant or landlord.
func (r *ContractRepo) ListByUser(ctx context.Context, userID string, status model.ContractStatus) ([]model.RentalContract, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{"$or": bson.A{
		bson.M{"tenant_id": userID},
		bson.M{"landlord_id": userID},
	}}
	if status != "" {
		filter["status"] = status
	}
	out, err := findAll[model.RentalContract](ctx, r.MongoCollection, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	return out, translate(err, contractsCollection, "find")
}

func (r *ContractRepo) ListEndedActive(ctx context.Context, now time.Time) ([]model.RentalContract, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	out, err := findAll[model.RentalContract](ctx, r.MongoCollection, bson.M{
		"status":   model.ContractActive,
		"end_date": bson.M{"$lt": now},
	})
	return out, translate(err, contractsCollection, "find")
}
