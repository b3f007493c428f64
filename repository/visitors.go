package repository

import (
	"context"
	"time"

	"urbansetu/model"
	"urbansetu/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const visitorsCollection = "visitor_logs"

type VisitorRepo struct {
	MongoCollection *mongo.Collection
}

func GetVisitorRepo(db *mongo.Database) *VisitorRepo {
	return &VisitorRepo{MongoCollection: db.Collection(visitorsCollection)}
}

// Insert returns ErrDuplicate when the fingerprint already has a row for the day.
func (r *VisitorRepo) Insert(ctx context.Context, v *model.VisitorLog) error {
	timer := utils.TrackDBOperation("insert", visitorsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.MongoCollection.InsertOne(ctx, v)
	return translate(err, visitorsCollection, "insert")
}

// consentSet writes only the consent flags the visitor sent.
func consentSet(u model.ConsentUpdate) bson.M {
	set := bson.M{}
	if u.Analytics != nil {
		set["consent.analytics"] = *u.Analytics
	}
	if u.Marketing != nil {
		set["consent.marketing"] = *u.Marketing
	}
	if u.Functional != nil {
		set["consent.functional"] = *u.Functional
	}
	return set
}

// RecordRepeat folds a repeat visit into the existing daily row.
func (r *VisitorRepo) RecordRepeat(ctx context.Context, fingerprint string, day time.Time, view *model.PageView, consent model.ConsentUpdate, at time.Time) error {
	timer := utils.TrackDBOperation("update", visitorsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := consentSet(consent)
	set["last_seen"] = at
	update := bson.M{
		"$inc": bson.M{"visit_count": 1},
		"$set": set,
	}
	if view != nil {
		update["$push"] = bson.M{"page_views": bson.M{"$each": bson.A{view}, "$slice": -200}}
	}

	result, err := r.MongoCollection.UpdateOne(ctx, bson.M{"fingerprint": fingerprint, "visit_date": day}, update)
	if err != nil {
		return translate(err, visitorsCollection, "update")
	}
	if result.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Stats aggregates unique visitors since the given day in a single $facet.
func (r *VisitorRepo) Stats(ctx context.Context, since time.Time) (*model.VisitorStats, error) {
	timer := utils.TrackDBOperation("aggregate", visitorsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	bucket := func(field string) bson.A {
		return bson.A{
			bson.M{"$group": bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}},
			bson.M{"$sort": bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}},
			bson.M{"$limit": 20},
		}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"visit_date": bson.M{"$gte": since}}}},
		{{Key: "$facet", Value: bson.M{
			"daily": bson.A{
				bson.M{"$group": bson.M{
					"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$visit_date"}},
					"count": bson.M{"$sum": 1},
				}},
				bson.M{"$sort": bson.M{"_id": 1}},
			},
			"unique": bson.A{
				bson.M{"$group": bson.M{"_id": "$fingerprint"}},
				bson.M{"$count": "count"},
			},
			"devices":  bucket("device"),
			"browsers": bucket("browser"),
			"sources":  bucket("source"),
		}}},
	}

	cursor, err := r.MongoCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate(err, visitorsCollection, "aggregate")
	}
	defer cursor.Close(ctx)

	type uniqueCount struct {
		Count int64 `bson:"count"`
	}
	var rows []struct {
		Daily    []model.DailyCount  `bson:"daily"`
		Unique   []uniqueCount       `bson:"unique"`
		Devices  []model.BucketCount `bson:"devices"`
		Browsers []model.BucketCount `bson:"browsers"`
		Sources  []model.BucketCount `bson:"sources"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, translate(err, visitorsCollection, "aggregate")
	}

	stats := &model.VisitorStats{}
	if len(rows) == 0 {
		return stats, nil
	}
	row := rows[0]
	stats.Daily = row.Daily
	stats.Devices = row.Devices
	stats.Browsers = row.Browsers
	stats.Sources = row.Sources
	if len(row.Unique) > 0 {
		stats.TotalUnique = row.Unique[0].Count
	}
	return stats, nil
}
