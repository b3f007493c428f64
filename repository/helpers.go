package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"urbansetu/model"
	"urbansetu/utils"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const opTimeout = 10 * time.Second

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

// translate maps driver errors onto the shared sentinels.
func translate(err error, collection, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return model.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		utils.TrackError("database", collection+"_duplicate")
		return fmt.Errorf("%s: %w", collection, model.ErrDuplicate)
	default:
		utils.TrackError("database", collection+"_"+op+"_failed")
		return fmt.Errorf("failed to %s %s: %w", op, collection, err)
	}
}

// pageOptions returns find options for a normalized page.
func pageOptions(page, limit int) (*options.FindOptions, int, int) {
	page, limit = model.NormalizePage(page, limit)
	return options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)), page, limit
}

// containsPattern is a case-insensitive literal match for $regex filters.
func containsPattern(s string) string {
	return "(?i)" + regexp.QuoteMeta(s)
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
