package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"urbansetu/model"
	"urbansetu/utils"
)

type ContractStore interface {
	Create(ctx context.Context, c *model.RentalContract) error
	FindByID(ctx context.Context, id string) (*model.RentalContract, error)
	Transition(ctx context.Context, id string, from, to model.ContractStatus, by string) error
	HasPending(ctx context.Context, listingID, tenantID string) (bool, error)
	ListByUser(ctx context.Context, userID string, status model.ContractStatus) ([]model.RentalContract, error)
	ListEndedActive(ctx context.Context, now time.Time) ([]model.RentalContract, error)
}

type ContractInput struct {
	ListingID string
	StartDate time.Time
	EndDate   time.Time
	Deposit   float64
	Notes     string
}

// default deposit, in months of rent
const depositMonths = 2

type ContractService struct {
	contracts ContractStore
	listings  ListingStore
	coins     *CoinService
	notify    Notifier
	now       func() time.Time
}

func NewContractService(contracts ContractStore, listings ListingStore, coins *CoinService, notify Notifier) *ContractService {
	if notify == nil {
		notify = NopNotifier
	}
	return &ContractService{contracts: contracts, listings: listings, coins: coins, notify: notify, now: time.Now}
}

func (s *ContractService) emit(c *model.RentalContract) {
	s.notify.EmitToUser(c.TenantID, EventContractUpdated, c)
	s.notify.EmitToUser(c.LandlordID, EventContractUpdated, c)
}

// Request opens a pending contract from the actor (tenant) on a rent listing.
func (s *ContractService) Request(ctx context.Context, actor Actor, in ContractInput) (*model.RentalContract, error) {
	if in.EndDate.IsZero() || !in.EndDate.After(in.StartDate) {
		return nil, fmt.Errorf("end date must be after start date: %w", model.ErrInvalidInput)
	}
	listing, err := s.listings.FindByID(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}
	switch {
	case listing.Type != model.ListingRent:
		return nil, fmt.Errorf("listing is not for rent: %w", model.ErrInvalidInput)
	case listing.RentLocked:
		return nil, model.ErrRentLocked
	case listing.OwnerID == actor.UserID:
		return nil, fmt.Errorf("cannot rent your own listing: %w", model.ErrForbidden)
	}
	pending, err := s.contracts.HasPending(ctx, listing.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, fmt.Errorf("a request for this listing is already pending: %w", model.ErrConflict)
	}

	rent := listing.EffectivePrice()
	deposit := in.Deposit
	if deposit <= 0 {
		deposit = rent * depositMonths
	}
	now := s.now()
	c := &model.RentalContract{
		ID:          utils.NewID(),
		ListingID:   listing.ID,
		TenantID:    actor.UserID,
		LandlordID:  listing.OwnerID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		MonthlyRent: rent,
		Deposit:     deposit,
		Status:      model.ContractPending,
		Notes:       in.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.contracts.Create(ctx, c); err != nil {
		return nil, err
	}
	s.emit(c)
	return c, nil
}

func (s *ContractService) Get(ctx context.Context, actor Actor, id string) (*model.RentalContract, error) {
	c, err := s.contracts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsParty(actor.UserID) && !actor.Role.IsStaff() {
		return nil, model.ErrForbidden
	}
	return c, nil
}

func (s *ContractService) List(ctx context.Context, actor Actor, status model.ContractStatus) ([]model.RentalContract, error) {
	return s.contracts.ListByUser(ctx, actor.UserID, status)
}

// Accept activates a pending contract and rent-locks the listing. The
// tenant earns RewardRentContract coins.
func (s *ContractService) Accept(ctx context.Context, actor Actor, id string) (*model.RentalContract, error) {
	c, err := s.contracts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.LandlordID != actor.UserID {
		return nil, model.ErrForbidden
	}
	if c.Status != model.ContractPending {
		return nil, fmt.Errorf("contract is %s: %w", c.Status, model.ErrConflict)
	}

	if err := s.listings.SetRentLock(ctx, c.ListingID, true, c.ID); err != nil {
		return nil, err
	}
	if err := s.contracts.Transition(ctx, c.ID, model.ContractPending, model.ContractActive, actor.UserID); err != nil {
		if uerr := s.listings.SetRentLock(ctx, c.ListingID, false, c.ID); uerr != nil {
			utils.Error().Err(uerr).Str("listing_id", c.ListingID).Msg("failed to release rent lock after failed accept")
		}
		return nil, err
	}
	c.Status = model.ContractActive
	c.UpdatedAt = s.now()

	if s.coins != nil {
		if _, err := s.coins.Credit(ctx, c.TenantID, RewardRentContract, "rent_contract", c.ID); err != nil {
			utils.Warn().Err(err).Str("contract_id", c.ID).Msg("failed to credit rent reward")
		}
	}
	s.emit(c)
	return c, nil
}

func (s *ContractService) Reject(ctx context.Context, actor Actor, id string) (*model.RentalContract, error) {
	c, err := s.contracts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.LandlordID != actor.UserID {
		return nil, model.ErrForbidden
	}
	if err := s.contracts.Transition(ctx, c.ID, model.ContractPending, model.ContractRejected, actor.UserID); err != nil {
		return nil, err
	}
	c.Status = model.ContractRejected
	s.emit(c)
	return c, nil
}

// Terminate ends an active contract early and releases the rent lock.
func (s *ContractService) Terminate(ctx context.Context, actor Actor, id string) (*model.RentalContract, error) {
	c, err := s.contracts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsParty(actor.UserID) {
		return nil, model.ErrForbidden
	}
	if err := s.contracts.Transition(ctx, c.ID, model.ContractActive, model.ContractTerminated, actor.UserID); err != nil {
		return nil, err
	}
	if err := s.listings.SetRentLock(ctx, c.ListingID, false, c.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	c.Status = model.ContractTerminated
	c.TerminatedBy = actor.UserID
	s.emit(c)
	return c, nil
}

// CompleteEnded closes active contracts whose end date has passed.
func (s *ContractService) CompleteEnded(ctx context.Context) (int, error) {
	ended, err := s.contracts.ListEndedActive(ctx, s.now())
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range ended {
		c := &ended[i]
		if err := s.contracts.Transition(ctx, c.ID, model.ContractActive, model.ContractCompleted, ""); err != nil {
			if !errors.Is(err, model.ErrConflict) {
				utils.Error().Err(err).Str("contract_id", c.ID).Msg("failed to complete contract")
			}
			continue
		}
		if err := s.listings.SetRentLock(ctx, c.ListingID, false, c.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
			utils.Error().Err(err).Str("listing_id", c.ListingID).Msg("failed to release rent lock")
		}
		c.Status = model.ContractCompleted
		s.emit(c)
		n++
	}
	return n, nil
}

// StartCompletionTask runs CompleteEnded every interval until ctx is done.
func (s *ContractService) StartCompletionTask(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := s.CompleteEnded(ctx); err != nil {
					utils.Error().Err(err).Msg("contract completion run failed")
				} else if n > 0 {
					utils.Info().Int("completed", n).Msg("completed ended contracts")
				}
			}
		}
	}()
}
