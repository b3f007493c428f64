package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"urbansetu/model"
	"urbansetu/utils"
)

type ReviewStore interface {
	Create(ctx context.Context, rv *model.Review) error
	FindByID(ctx context.Context, id string) (*model.Review, error)
	List(ctx context.Context, target model.ReviewTarget, targetID string, status model.ReviewStatus, page, limit int) ([]model.Review, int64, error)
	SetStatus(ctx context.Context, id string, status model.ReviewStatus, note string) error
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context, target model.ReviewTarget, targetID string) (model.RatingSummary, error)
}

// RatingTarget is anything that stores a denormalized rating summary.
type RatingTarget interface {
	SetRating(ctx context.Context, id string, s model.RatingSummary) error
}

type ReviewInput struct {
	TargetType model.ReviewTarget
	TargetID   string
	Rating     int
	Comment    string
}

type ReviewService struct {
	reviews  ReviewStore
	agents   AgentStore
	listings ListingStore
	users    UserLookup
	coins    *CoinService
	now      func() time.Time
}

func NewReviewService(reviews ReviewStore, agents AgentStore, listings ListingStore, users UserLookup, coins *CoinService) *ReviewService {
	return &ReviewService{reviews: reviews, agents: agents, listings: listings, users: users, coins: coins, now: time.Now}
}

func (s *ReviewService) target(t model.ReviewTarget) (RatingTarget, error) {
	switch t {
	case model.ReviewAgent:
		return s.agents, nil
	case model.ReviewListing:
		return s.listings, nil
	}
	return nil, fmt.Errorf("unknown review target %q: %w", t, model.ErrInvalidInput)
}

// checkTarget rejects reviews of missing targets and of the reviewer's own
// listing or agent profile.
func (s *ReviewService) checkTarget(ctx context.Context, actor Actor, t model.ReviewTarget, id string) error {
	switch t {
	case model.ReviewAgent:
		a, err := s.agents.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if a.Status != model.AgentApproved {
			return model.ErrNotFound
		}
		if a.UserID == actor.UserID {
			return fmt.Errorf("cannot review yourself: %w", model.ErrForbidden)
		}
	case model.ReviewListing:
		l, err := s.listings.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if l.OwnerID == actor.UserID {
			return fmt.Errorf("cannot review your own listing: %w", model.ErrForbidden)
		}
	default:
		return fmt.Errorf("unknown review target %q: %w", t, model.ErrInvalidInput)
	}
	return nil
}

// Create stores a pending review. A user reviews a target once.
func (s *ReviewService) Create(ctx context.Context, actor Actor, in ReviewInput) (*model.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5: %w", model.ErrInvalidInput)
	}
	if err := s.checkTarget(ctx, actor, in.TargetType, in.TargetID); err != nil {
		return nil, err
	}

	username := ""
	if s.users != nil {
		if u, err := s.users.FindByID(ctx, actor.UserID); err == nil {
			username = u.Username
		}
	}
	now := s.now()
	rv := &model.Review{
		ID:         utils.NewID(),
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		UserID:     actor.UserID,
		Username:   username,
		Rating:     in.Rating,
		Comment:    strings.TrimSpace(in.Comment),
		Status:     model.ReviewPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

// List returns approved reviews for a target.
func (s *ReviewService) List(ctx context.Context, t model.ReviewTarget, targetID string, page, limit int) (model.Page[model.Review], error) {
	page, limit = model.NormalizePage(page, limit)
	items, total, err := s.reviews.List(ctx, t, targetID, model.ReviewApproved, page, limit)
	if err != nil {
		return model.Page[model.Review]{}, err
	}
	return model.NewPage(items, total, page, limit), nil
}

func (s *ReviewService) ListByStatus(ctx context.Context, actor Actor, status model.ReviewStatus, page, limit int) (model.Page[model.Review], error) {
	if !actor.Can(model.PermModerateReviews) {
		return model.Page[model.Review]{}, model.ErrForbidden
	}
	page, limit = model.NormalizePage(page, limit)
	items, total, err := s.reviews.List(ctx, "", "", status, page, limit)
	if err != nil {
		return model.Page[model.Review]{}, err
	}
	return model.NewPage(items, total, page, limit), nil
}

func (s *ReviewService) Approve(ctx context.Context, actor Actor, id, note string) (*model.Review, error) {
	return s.moderate(ctx, actor, id, model.ReviewApproved, note)
}

func (s *ReviewService) Reject(ctx context.Context, actor Actor, id, note string) (*model.Review, error) {
	return s.moderate(ctx, actor, id, model.ReviewRejected, note)
}

func (s *ReviewService) moderate(ctx context.Context, actor Actor, id string, status model.ReviewStatus, note string) (*model.Review, error) {
	if !actor.Can(model.PermModerateReviews) {
		return nil, model.ErrForbidden
	}
	rv, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rv.Status == status {
		return rv, nil
	}
	wasApproved := rv.Status == model.ReviewApproved

	if err := s.reviews.SetStatus(ctx, id, status, note); err != nil {
		return nil, err
	}
	rv.Status = status
	rv.ModNote = note
	rv.UpdatedAt = s.now()

	if status == model.ReviewApproved || wasApproved {
		if err := s.refreshRating(ctx, rv.TargetType, rv.TargetID); err != nil {
			return nil, err
		}
	}
	if status == model.ReviewApproved && s.coins != nil {
		if _, err := s.coins.Credit(ctx, rv.UserID, RewardReview, "review_approved", rv.ID); err != nil {
			utils.Warn().Err(err).Str("review_id", rv.ID).Msg("failed to credit review reward")
		}
	}
	return rv, nil
}

// Delete lets the author or a moderator remove a review.
func (s *ReviewService) Delete(ctx context.Context, actor Actor, id string) error {
	rv, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if rv.UserID != actor.UserID && !actor.Can(model.PermModerateReviews) {
		return model.ErrForbidden
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		return err
	}
	if rv.Status == model.ReviewApproved {
		return s.refreshRating(ctx, rv.TargetType, rv.TargetID)
	}
	return nil
}

// refreshRating recomputes the approved-review summary of a target and
// writes it back onto the agent or listing.
func (s *ReviewService) refreshRating(ctx context.Context, t model.ReviewTarget, targetID string) error {
	sink, err := s.target(t)
	if err != nil {
		return err
	}
	summary, err := s.reviews.Summary(ctx, t, targetID)
	if err != nil {
		return err
	}
	return sink.SetRating(ctx, targetID, summary)
}
