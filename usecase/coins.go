package usecase

import (
	"context"
	"fmt"
	"time"

	"urbansetu/model"
	"urbansetu/utils"
)

type CoinStore interface {
	Credit(ctx context.Context, userID string, amount int64) (int64, error)
	Debit(ctx context.Context, userID string, amount int64) (int64, error)
	Account(ctx context.Context, userID string) (*model.CoinAccount, error)
	AddTransaction(ctx context.Context, tx *model.CoinTransaction) error
	History(ctx context.Context, userID string, page, limit int) ([]model.CoinTransaction, int64, error)
}

// Reward amounts.
const (
	RewardRentContract int64 = 100
	RewardReview       int64 = 10
)

type CoinService struct {
	coins  CoinStore
	notify Notifier
	now    func() time.Time
}

func NewCoinService(coins CoinStore, notify Notifier) *CoinService {
	if notify == nil {
		notify = NopNotifier
	}
	return &CoinService{coins: coins, notify: notify, now: time.Now}
}

func (s *CoinService) record(ctx context.Context, userID string, amount int64, typ model.CoinTxType, reason, ref string, balance int64) *model.CoinTransaction {
	tx := &model.CoinTransaction{
		ID:        utils.NewID(),
		UserID:    userID,
		Amount:    amount,
		Type:      typ,
		Reason:    reason,
		Ref:       ref,
		Balance:   balance,
		CreatedAt: s.now(),
	}
	// The balance is already moved; a lost ledger row is logged, not undone.
	if err := s.coins.AddTransaction(ctx, tx); err != nil {
		utils.Error().Err(err).Str("user_id", userID).Int64("amount", amount).Msg("failed to record coin transaction")
	}
	s.notify.EmitToUser(userID, EventCoinsUpdated, map[string]any{"balance": balance, "transaction": tx})
	return tx
}

func (s *CoinService) Credit(ctx context.Context, userID string, amount int64, reason, ref string) (*model.CoinTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", model.ErrInvalidInput)
	}
	balance, err := s.coins.Credit(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	return s.record(ctx, userID, amount, model.CoinCredit, reason, ref, balance), nil
}

// Debit fails with ErrInsufficientCoins rather than going negative.
func (s *CoinService) Debit(ctx context.Context, userID string, amount int64, reason, ref string) (*model.CoinTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", model.ErrInvalidInput)
	}
	balance, err := s.coins.Debit(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	return s.record(ctx, userID, amount, model.CoinDebit, reason, ref, balance), nil
}

func (s *CoinService) Balance(ctx context.Context, userID string) (*model.CoinAccount, error) {
	return s.coins.Account(ctx, userID)
}

func (s *CoinService) History(ctx context.Context, userID string, page, limit int) (model.Page[model.CoinTransaction], error) {
	page, limit = model.NormalizePage(page, limit)
	txs, total, err := s.coins.History(ctx, userID, page, limit)
	if err != nil {
		return model.Page[model.CoinTransaction]{}, err
	}
	return model.NewPage(txs, total, page, limit), nil
}
