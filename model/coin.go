package model

import "time"

type CoinTxType string

const (
	CoinCredit CoinTxType = "credit"
	CoinDebit  CoinTxType = "debit"
)

type CoinAccount struct {
	UserID    string    `bson:"_id" json:"user_id"`
	Balance   int64     `bson:"balance" json:"balance"`
	Earned    int64     `bson:"earned" json:"earned"`
	Spent     int64     `bson:"spent" json:"spent"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

type CoinTransaction struct {
	ID        string     `bson:"_id" json:"id"`
	UserID    string     `bson:"user_id" json:"user_id"`
	Amount    int64      `bson:"amount" json:"amount"`
	Type      CoinTxType `bson:"type" json:"type"`
	Reason    string     `bson:"reason" json:"reason"`
	Ref       string     `bson:"ref,omitempty" json:"ref,omitempty"`
	Balance   int64      `bson:"balance_after" json:"balance_after"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
}
