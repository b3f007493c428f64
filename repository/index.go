package repository

import (
	"context"
	"fmt"
	"time"

	"urbansetu/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collectionIndexes lists every index the API depends on. The unique ones
// back duplicate-key handling in the stores.
func collectionIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		usersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("unique_email").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetName("unique_username").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "active_sessions.session_id", Value: 1}},
				Options: options.Index().SetName("active_session_id"),
			},
		},
		auditCollection: {
			{
				Keys: bson.D{
					{Key: "user_id", Value: 1},
					{Key: "created_at", Value: -1},
				},
				Options: options.Index().SetName("user_audit_date"),
			},
			{
				Keys:    bson.D{{Key: "action", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("action_date"),
			},
		},
		visitorsCollection: {
			{
				Keys: bson.D{
					{Key: "fingerprint", Value: 1},
					{Key: "visit_date", Value: 1},
				},
				Options: options.Index().SetName("unique_fingerprint_day").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "visit_date", Value: -1}},
				Options: options.Index().SetName("visit_date"),
			},
		},
		helpCollection: {
			{
				Keys:    bson.D{{Key: "slug", Value: 1}},
				Options: options.Index().SetName("unique_slug").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "category", Value: 1}, {Key: "published", Value: 1}},
				Options: options.Index().SetName("category_published"),
			},
		},
		helpViewsCollection: {
			{
				Keys: bson.D{
					{Key: "article_id", Value: 1},
					{Key: "viewer", Value: 1},
					{Key: "view_date", Value: 1},
				},
				Options: options.Index().SetName("unique_article_viewer_day").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "created_at", Value: 1}},
				Options: options.Index().SetName("view_ttl").SetExpireAfterSeconds(int32((90 * 24 * time.Hour).Seconds())),
			},
		},
		listingsCollection: {
			{
				Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("owner_listings_date"),
			},
			{
				Keys: bson.D{
					{Key: "city", Value: 1},
					{Key: "type", Value: 1},
					{Key: "regular_price", Value: 1},
				},
				Options: options.Index().SetName("city_type_price"),
			},
			{
				Keys:    bson.D{{Key: "esg_score", Value: -1}},
				Options: options.Index().SetName("esg_score"),
			},
		},
		contractsCollection: {
			{
				Keys:    bson.D{{Key: "listing_id", Value: 1}, {Key: "status", Value: 1}},
				Options: options.Index().SetName("listing_status"),
			},
			{
				Keys:    bson.D{{Key: "tenant_id", Value: 1}},
				Options: options.Index().SetName("tenant"),
			},
			{
				Keys:    bson.D{{Key: "landlord_id", Value: 1}},
				Options: options.Index().SetName("landlord"),
			},
		},
		coinTransactionsCollection: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("user_tx_date"),
			},
		},
		agentsCollection: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetName("unique_agent_user").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "rating", Value: -1}},
				Options: options.Index().SetName("status_rating"),
			},
		},
		reviewsCollection: {
			{
				Keys: bson.D{
					{Key: "user_id", Value: 1},
					{Key: "target_type", Value: 1},
					{Key: "target_id", Value: 1},
				},
				Options: options.Index().SetName("unique_user_target").SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "target_type", Value: 1},
					{Key: "target_id", Value: 1},
					{Key: "status", Value: 1},
				},
				Options: options.Index().SetName("target_status"),
			},
		},
		forumCollection: {
			{
				Keys: bson.D{
					{Key: "is_pinned", Value: -1},
					{Key: "created_at", Value: -1},
				},
				Options: options.Index().SetName("pinned_date"),
			},
			{
				Keys:    bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("category_date"),
			},
		},
		reportsCollection: {
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("status_date"),
			},
		},
		subscriptionsCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}, {Key: "topic", Value: 1}},
				Options: options.Index().SetName("unique_email_topic").SetUnique(true),
			},
		},
		updatesCollection: {
			{
				Keys:    bson.D{{Key: "published", Value: 1}, {Key: "published_at", Value: -1}},
				Options: options.Index().SetName("published_date"),
			},
		},
		routesCollection: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}},
				Options: options.Index().SetName("user_routes_date"),
			},
		},
	}
}

func SetupIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for name, models := range collectionIndexes() {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}

	utils.Info().Msg("Successfully created all indexes")
	return nil
}
