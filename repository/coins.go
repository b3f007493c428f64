package repository

import (
	"context"
	"errors"
	"time"

	"urbansetu/model"
	"urbansetu/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	coinAccountsCollection     = "coin_accounts"
	coinTransactionsCollection = "coin_transactions"
)

type CoinRepo struct {
	Accounts     *mongo.Collection
	Transactions *mongo.Collection
}

func GetCoinRepo(db *mongo.Database) *CoinRepo {
	return &CoinRepo{
		Accounts:     db.Collection(coinAccountsCollection),
		Transactions: db.Collection(coinTransactionsCollection),
	}
}

func (r *CoinRepo) Credit(ctx context.Context, userID string, amount int64) (int64, error) {
	timer := utils.TrackDBOperation("credit", coinAccountsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var acc model.CoinAccount
	err := r.Accounts.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$inc": bson.M{"balance": amount, "earned": amount},
			"$set": bson.M{"updated_at": time.Now()},
		},
		opts,
	).Decode(&acc)
	if err != nil {
		return 0, translate(err, coinAccountsCollection, "credit")
	}
	return acc.Balance, nil
}

// Debit only matches when the balance covers the amount, so concurrent
// debits can never drive it negative.
func (r *CoinRepo) Debit(ctx context.Context, userID string, amount int64) (int64, error) {
	timer := utils.TrackDBOperation("debit", coinAccountsCollection)
	defer timer.ObserveDuration()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var acc model.CoinAccount
	err := r.Accounts.FindOneAndUpdate(ctx,
		bson.M{"_id": userID, "balance": bson.M{"$gte": amount}},
		bson.M{
			"$inc": bson.M{"balance": -amount, "spent": amount},
			"$set": bson.M{"updated_at": time.Now()},
		},
		opts,
	).Decode(&acc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, model.ErrInsufficientCoins
	}
	if err != nil {
		return 0, translate(err, coinAccountsCollection, "debit")
	}
	return acc.Balance, nil
}

func (r *CoinRepo) Account(ctx context.Context, userID string) (*model.CoinAccount, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var acc model.CoinAccount
	err := r.Accounts.FindOne(ctx, bson.M{"_id": userID}).Decode(&acc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &model.CoinAccount{UserID: userID}, nil
	}
	if err != nil {
		return nil, translate(err, coinAccountsCollection, "find")
	}
	return &acc, nil
}

func (r *CoinRepo) AddTransaction(ctx context.Context, tx *model.CoinTransaction) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.Transactions.InsertOne(ctx, tx)
	return translate(err, coinTransactionsCollection, "insert")
}

func (r *CoinRepo) History(ctx context.Context, userID string, page, limit int) ([]model.CoinTransaction, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{"user_id": userID}
	total, err := r.Transactions.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, coinTransactionsCollection, "count")
	}
	opts, _, _ := pageOptions(page, limit)
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	out, err := findAll[model.CoinTransaction](ctx, r.Transactions, filter, opts)
	if err != nil {
		return nil, 0, translate(err, coinTransactionsCollection, "find")
	}
	return out, total, nil
}
