package repository

import (
	"context"
	"time"

	"urbansetu/model"
	"urbansetu/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	helpCollection      = "help_articles"
	helpViewsCollection = "help_article_views"
)

type HelpRepo struct {
	Articles *mongo.Collection
	Views    *mongo.Collection
}

func GetHelpRepo(db *mongo.Database) *HelpRepo {
	return &HelpRepo{
		Articles: db.Collection(helpCollection),
		Views:    db.Collection(helpViewsCollection),
	}
}

func (r *HelpRepo) Create(ctx context.Context, a *model.HelpArticle) error {
	timer := utils.TrackDBOperation("insert", helpCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.Articles.InsertOne(ctx, a)
	return translate(err, helpCollection, "insert")
}

func (r *HelpRepo) findOne(ctx context.Context, filter bson.M) (*model.HelpArticle, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var a model.HelpArticle
	if err := r.Articles.FindOne(ctx, filter).Decode(&a); err != nil {
		return nil, translate(err, helpCollection, "find")
	}
	return &a, nil
}

func (r *HelpRepo) FindByID(ctx context.Context, id string) (*model.HelpArticle, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *HelpRepo) FindBySlug(ctx context.Context, slug string) (*model.HelpArticle, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *HelpRepo) Update(ctx context.Context, a *model.HelpArticle) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.Articles.UpdateOne(ctx, bson.M{"_id": a.ID}, bson.M{"$set": bson.M{
		"slug":       a.Slug,
		"title":      a.Title,
		"content":    a.Content,
		"category":   a.Category,
		"tags":       a.Tags,
		"published":  a.Published,
		"updated_at": a.UpdatedAt,
	}})
	if err != nil {
		return translate(err, helpCollection, "update")
	}
	if result.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *HelpRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.Articles.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, helpCollection, "delete")
	}
	if result.DeletedCount == 0 {
		return model.ErrNotFound
	}
	_, _ = r.Views.DeleteMany(ctx, bson.M{"article_id": id})
	return nil
}

func (r *HelpRepo) List(ctx context.Context, f model.HelpFilter) ([]model.HelpArticle, int64, error) {
	timer := utils.TrackDBOperation("find", helpCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if !f.IncludeDrafts {
		filter["published"] = true
	}
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

	total, err := r.Articles.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, helpCollection, "count")
	}
	opts, _, _ := pageOptions(f.Page, f.Limit)
	opts.SetSort(bson.D{{Key: "views", Value: -1}, {Key: "created_at", Value: -1}})
	out, err := findAll[model.HelpArticle](ctx, r.Articles, filter, opts)
	if err != nil {
		return nil, 0, translate(err, helpCollection, "find")
	}
	return out, total, nil
}

// InsertView returns ErrDuplicate when the viewer already saw the article that day.
func (r *HelpRepo) InsertView(ctx context.Context, v *model.HelpArticleView) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.Views.InsertOne(ctx, v)
	return translate(err, helpViewsCollection, "insert")
}

func (r *HelpRepo) IncrementViews(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.Articles.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	return translate(err, helpCollection, "update")
}

func (r *HelpRepo) AddFeedback(ctx context.Context, id string, helpful bool) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	field := "helpful_no"
	if helpful {
		field = "helpful_yes"
	}
	result, err := r.Articles.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{field: 1},
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return translate(err, helpCollection, "update")
	}
	if result.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}
