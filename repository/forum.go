package repository

import (
	"context"

	"urbansetu/model"
	"urbansetu/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const forumCollection = "forum_posts"

type ForumRepo struct {
	MongoCollection *mongo.Collection
}

func GetForumRepo(db *mongo.Database) *ForumRepo {
	return &ForumRepo{MongoCollection: db.Collection(forumCollection)}
}

func (r *ForumRepo) Create(ctx context.Context, p *model.ForumPost) error {
	timer := utils.TrackDBOperation("insert", forumCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.MongoCollection.InsertOne(ctx, p)
	return translate(err, forumCollection, "insert")
}

func (r *ForumRepo) FindByID(ctx context.Context, id string) (*model.ForumPost, error) {
	timer := utils.TrackDBOperation("find", forumCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var p model.ForumPost
	if err := r.MongoCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err, forumCollection, "find")
	}
	return &p, nil
}

// Save replaces the post if its stored version still equals p.Version and
// bumps the version on success.
func (r *ForumRepo) Save(ctx context.Context, p *model.ForumPost) error {
	timer := utils.TrackDBOperation("replace", forumCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	expected := p.Version
	p.Version++
	result, err := r.MongoCollection.ReplaceOne(ctx, bson.M{"_id": p.ID, "version": expected}, p)
	if err != nil {
		p.Version = expected
		return translate(err, forumCollection, "replace")
	}
	if result.MatchedCount == 0 {
		p.Version = expected
		return model.ErrVersionConflict
	}
	return nil
}

func (r *ForumRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.MongoCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, forumCollection, "delete")
	}
	if result.DeletedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

// IncrementViews does not touch version so readers never conflict with writers.
func (r *ForumRepo) IncrementViews(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.MongoCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	return translate(err, forumCollection, "update")
}

func (r *ForumRepo) List(ctx context.Context, f model.ForumFilter) ([]model.ForumPost, int64, error) {
	timer := utils.TrackDBOperation("find", forumCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Search != "" {
		p := containsPattern(f.Search)
		filter["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": p}},
			bson.M{"content": bson.M{"$regex": p}},
			bson.M{"tags": bson.M{"$regex": p}},
		}
	}

	total, err := r.MongoCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, forumCollection, "count")
	}

	if f.Sort == "popular" {
		posts, err := r.listPopular(ctx, filter, f)
		return posts, total, err
	}

	sort := bson.D{{Key: "is_pinned", Value: -1}}
	if f.Sort == "views" {
		sort = append(sort, bson.E{Key: "views", Value: -1})
	}
	sort = append(sort, bson.E{Key: "created_at", Value: -1})

	opts, _, _ := pageOptions(f.Page, f.Limit)
	opts.SetSort(sort).SetProjection(bson.M{"comments.replies": 0})

	posts, err := findAll[model.ForumPost](ctx, r.MongoCollection, filter, opts)
	if err != nil {
		return nil, 0, translate(err, forumCollection, "find")
	}
	return posts, total, nil
}

// listPopular sorts by like count, which needs a computed field.
func (r *ForumRepo) listPopular(ctx context.Context, filter bson.M, f model.ForumFilter) ([]model.ForumPost, error) {
	page, limit := model.NormalizePage(f.Page, f.Limit)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$addFields", Value: bson.M{"like_count": bson.M{"$size": bson.M{"$ifNull": bson.A{"$likes", bson.A{}}}}}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "is_pinned", Value: -1},
			{Key: "like_count", Value: -1},
			{Key: "created_at", Value: -1},
		}}},
		{{Key: "$skip", Value: int64((page - 1) * limit)}},
		{{Key: "$limit", Value: int64(limit)}},
		{{Key: "$project", Value: bson.M{"like_count": 0, "comments.replies": 0}}},
	}
	cursor, err := r.MongoCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate(err, forumCollection, "aggregate")
	}
	defer cursor.Close(ctx)

	var posts []model.ForumPost
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, translate(err, forumCollection, "aggregate")
	}
	return posts, nil
}

// ListReported returns posts with a report anywhere in the thread.
func (r *ForumRepo) ListReported(ctx context.Context, page, limit int) ([]model.ForumPost, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{"$or": bson.A{
		bson.M{"reports.0": bson.M{"$exists": true}},
		bson.M{"comments.reports.0": bson.M{"$exists": true}},
		bson.M{"comments.replies.reports.0": bson.M{"$exists": true}},
	}}
	total, err := r.MongoCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, forumCollection, "count")
	}
	opts, _, _ := pageOptions(page, limit)
	opts.SetSort(bson.D{{Key: "updated_at", Value: -1}})
	posts, err := findAll[model.ForumPost](ctx, r.MongoCollection, filter, opts)
	if err != nil {
		return nil, 0, translate(err, forumCollection, "find")
	}
	return posts, total, nil
}
