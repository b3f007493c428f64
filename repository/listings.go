package repository

import (
	"context"
	"regexp"
	"time"

	"urbansetu/model"
	"urbansetu/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const listingsCollection = "listings"

type ListingRepo struct {
	MongoCollection *mongo.Collection
}

func GetListingRepo(db *mongo.Database) *ListingRepo {
	return &ListingRepo{MongoCollection: db.Collection(listingsCollection)}
}

func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	timer := utils.TrackDBOperation("insert", listingsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.MongoCollection.InsertOne(ctx, l)
	return translate(err, listingsCollection, "insert")
}

func (r *ListingRepo) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	timer := utils.TrackDBOperation("find", listingsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var l model.Listing
	if err := r.MongoCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		return nil, translate(err, listingsCollection, "find")
	}
	return &l, nil
}

// Update replaces the document unless it is rent-locked.
func (r *ListingRepo) Update(ctx context.Context, l *model.Listing) error {
	timer := utils.TrackDBOperation("update", listingsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.ReplaceOne(ctx, bson.M{"_id": l.ID, "rent_locked": bson.M{"$ne": true}}, l)
	if err != nil {
		return translate(err, listingsCollection, "update")
	}
	if result.MatchedCount == 0 {
		return r.lockedOrMissing(ctx, l.ID)
	}
	return nil
}

func (r *ListingRepo) Delete(ctx context.Context, id string) error {
	timer := utils.TrackDBOperation("delete", listingsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.DeleteOne(ctx, bson.M{"_id": id, "rent_locked": bson.M{"$ne": true}})
	if err != nil {
		return translate(err, listingsCollection, "delete")
	}
	if result.DeletedCount == 0 {
		return r.lockedOrMissing(ctx, id)
	}
	return nil
}

func (r *ListingRepo) lockedOrMissing(ctx context.Context, id string) error {
	n, err := r.MongoCollection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, listingsCollection, "count")
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return model.ErrRentLocked
}

// SetRentLock flips the lock; locking only succeeds on an unlocked listing.
func (r *ListingRepo) SetRentLock(ctx context.Context, id string, locked bool, contractID string) error {
	timer := utils.TrackDBOperation("update", listingsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": id}
	activeContract := ""
	if locked {
		filter["rent_locked"] = bson.M{"$ne": true}
		activeContract = contractID
	} else {
		filter["active_contract_id"] = contractID
	}
	result, err := r.MongoCollection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"rent_locked":        locked,
		"active_contract_id": activeContract,
		"updated_at":         time.Now(),
	}})
	if err != nil {
		return translate(err, listingsCollection, "update")
	}
	if result.MatchedCount == 0 {
		if locked {
			return r.lockedOrMissing(ctx, id)
		}
		return model.ErrNotFound
	}
	return nil
}

func (r *ListingRepo) PushImages(ctx context.Context, id string, urls []string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"image_urls": bson.M{"$each": urls}},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return translate(err, listingsCollection, "update")
	}
	if result.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *ListingRepo) SetRating(ctx context.Context, id string, s model.RatingSummary) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.MongoCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"average_rating": s.Average, "review_count": s.Count},
	})
	return translate(err, listingsCollection, "update")
}

func (r *ListingRepo) Search(ctx context.Context, f model.ListingFilter) ([]model.Listing, int64, error) {
	timer := utils.TrackDBOperation("search", listingsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := listingFilter(f)

	total, err := r.MongoCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, listingsCollection, "count")
	}

	sortField := "created_at"
	switch f.SortBy {
	case "regular_price", "esg_score", "average_rating":
		sortField = f.SortBy
	}
	order := -1
	if f.SortOrder == "asc" {
		order = 1
	}

	opts, _, _ := pageOptions(f.Page, f.Limit)
	opts.SetSort(bson.D{{Key: sortField, Value: order}, {Key: "_id", Value: 1}})

	listings, err := findAll[model.Listing](ctx, r.MongoCollection, filter, opts)
	if err != nil {
		return nil, 0, translate(err, listingsCollection, "find")
	}
	return listings, total, nil
}

func listingFilter(f model.ListingFilter) bson.M {
	filter := bson.M{}
	if f.Search != "" {
		p := containsPattern(f.Search)
		filter["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": p}},
			bson.M{"description": bson.M{"$regex": p}},
			bson.M{"address": bson.M{"$regex": p}},
		}
	}
	if f.City != "" {
		filter["city"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.City) + "$", "$options": "i"}
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.OwnerID != "" {
		filter["owner_id"] = f.OwnerID
	}
	price := bson.M{}
	if f.MinPrice > 0 {
		price["$gte"] = f.MinPrice
	}
	if f.MaxPrice > 0 {
		price["$lte"] = f.MaxPrice
	}
	if len(price) > 0 {
		filter["regular_price"] = price
	}
	if f.Bedrooms > 0 {
		filter["bedrooms"] = bson.M{"$gte": f.Bedrooms}
	}
	if f.Furnished != nil {
		filter["furnished"] = *f.Furnished
	}
	if f.Parking != nil {
		filter["parking"] = *f.Parking
	}
	if f.Offer != nil {
		filter["offer"] = *f.Offer
	}
	return filter
}
