package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"urbansetu/model"
	"urbansetu/services"
	"urbansetu/utils"
)

const (
	MaxListingImages = 6
	MaxImageBytes    = 5 << 20
)

type ListingStore interface {
	Create(ctx context.Context, l *model.Listing) error
	FindByID(ctx context.Context, id string) (*model.Listing, error)
	Update(ctx context.Context, l *model.Listing) error
	Delete(ctx context.Context, id string) error
	SetRentLock(ctx context.Context, id string, locked bool, contractID string) error
	PushImages(ctx context.Context, id string, urls []string) error
	SetRating(ctx context.Context, id string, s model.RatingSummary) error
	Search(ctx context.Context, f model.ListingFilter) ([]model.Listing, int64, error)
}

type ListingInput struct {
	Name          string
	Description   string
	Address       string
	City          string
	State         string
	Type          model.ListingType
	RegularPrice  float64
	DiscountPrice float64
	Offer         bool
	Bedrooms      int
	Bathrooms     int
	Parking       bool
	Furnished     bool
	ImageURLs     []string
	ESG           *model.ESGDetails
}

type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type ListingService struct {
	listings ListingStore
	objects  services.ObjectStore
	now      func() time.Time
}

func NewListingService(listings ListingStore, objects services.ObjectStore) *ListingService {
	return &ListingService{listings: listings, objects: objects, now: time.Now}
}

func validateListing(in ListingInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("name required: %w", model.ErrInvalidInput)
	case in.Type != model.ListingRent && in.Type != model.ListingSale:
		return fmt.Errorf("type must be rent or sale: %w", model.ErrInvalidInput)
	case in.RegularPrice <= 0:
		return fmt.Errorf("regular price must be positive: %w", model.ErrInvalidInput)
	case in.Offer && (in.DiscountPrice <= 0 || in.DiscountPrice >= in.RegularPrice):
		return fmt.Errorf("discount price must be below regular price: %w", model.ErrInvalidInput)
	case in.Bedrooms < 0 || in.Bathrooms < 0:
		return fmt.Errorf("room counts cannot be negative: %w", model.ErrInvalidInput)
	case len(in.ImageURLs) > MaxListingImages:
		return fmt.Errorf("at most %d images: %w", MaxListingImages, model.ErrInvalidInput)
	}
	return nil
}

func applyListing(l *model.Listing, in ListingInput) {
	l.Name = strings.TrimSpace(in.Name)
	l.Description = in.Description
	l.Address = in.Address
	l.City = strings.TrimSpace(in.City)
	l.State = strings.TrimSpace(in.State)
	l.Type = in.Type
	l.RegularPrice = in.RegularPrice
	l.DiscountPrice = in.DiscountPrice
	l.Offer = in.Offer
	l.Bedrooms = in.Bedrooms
	l.Bathrooms = in.Bathrooms
	l.Parking = in.Parking
	l.Furnished = in.Furnished
	if in.ImageURLs != nil {
		l.ImageURLs = in.ImageURLs
	}
	l.ESG = in.ESG
	l.ESGScore = ScoreESG(in.ESG).Composite
}

func (s *ListingService) Create(ctx context.Context, actor Actor, in ListingInput) (*model.Listing, error) {
	if err := validateListing(in); err != nil {
		return nil, err
	}
	now := s.now()
	l := &model.Listing{
		ID:        utils.NewID(),
		OwnerID:   actor.UserID,
		ImageURLs: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyListing(l, in)
	if err := s.listings.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *ListingService) Get(ctx context.Context, id string) (*model.Listing, error) {
	return s.listings.FindByID(ctx, id)
}

// owned loads a listing the actor may change.
func (s *ListingService) owned(ctx context.Context, actor Actor, id string) (*model.Listing, error) {
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != actor.UserID && !actor.Can(model.PermManageListings) {
		return nil, model.ErrForbidden
	}
	return l, nil
}

func (s *ListingService) Update(ctx context.Context, actor Actor, id string, in ListingInput) (*model.Listing, error) {
	if err := validateListing(in); err != nil {
		return nil, err
	}
	l, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if l.RentLocked {
		return nil, model.ErrRentLocked
	}
	applyListing(l, in)
	l.UpdatedAt = s.now()
	if err := s.listings.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *ListingService) Delete(ctx context.Context, actor Actor, id string) error {
	l, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if l.RentLocked {
		return model.ErrRentLocked
	}
	if err := s.listings.Delete(ctx, id); err != nil {
		return err
	}
	if s.objects != nil {
		for _, u := range l.ImageURLs {
			if err := s.objects.Delete(ctx, u); err != nil {
				utils.Debug().Err(err).Str("url", u).Msg("listing image not removed from storage")
			}
		}
	}
	return nil
}

func (s *ListingService) Search(ctx context.Context, f model.ListingFilter) (model.Page[model.Listing], error) {
	f.Page, f.Limit = model.NormalizePage(f.Page, f.Limit)
	items, total, err := s.listings.Search(ctx, f)
	if err != nil {
		return model.Page[model.Listing]{}, err
	}
	return model.NewPage(items, total, f.Page, f.Limit), nil
}

// ESG returns the pillar breakdown for a stored listing.
func (s *ListingService) ESG(ctx context.Context, id string) (ESGBreakdown, error) {
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return ESGBreakdown{}, err
	}
	return ScoreESG(l.ESG), nil
}

// UploadImages stores the files and appends their URLs. The whole batch is
// rejected when any file is not an image or the listing would exceed
// MaxListingImages.
func (s *ListingService) UploadImages(ctx context.Context, actor Actor, id string, files []ImageUpload) ([]string, error) {
	if s.objects == nil {
		return nil, fmt.Errorf("image storage is not configured: %w", model.ErrConflict)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files: %w", model.ErrInvalidInput)
	}
	l, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if len(l.ImageURLs)+len(files) > MaxListingImages {
		return nil, fmt.Errorf("a listing holds at most %d images: %w", MaxListingImages, model.ErrInvalidInput)
	}
	for _, f := range files {
		if !strings.HasPrefix(f.ContentType, "image/") {
			return nil, fmt.Errorf("%s is not an image: %w", f.Filename, model.ErrInvalidInput)
		}
		if f.Size > MaxImageBytes {
			return nil, fmt.Errorf("%s exceeds %d bytes: %w", f.Filename, MaxImageBytes, model.ErrInvalidInput)
		}
	}

	urls := make([]string, 0, len(files))
	for _, f := range files {
		u, err := s.objects.Upload(ctx, "listings/"+id, f.Filename, f.ContentType, f.Body)
		if err != nil {
			utils.TrackError("storage", "upload")
			return nil, err
		}
		urls = append(urls, u)
	}
	if err := s.listings.PushImages(ctx, id, urls); err != nil {
		return nil, err
	}
	return urls, nil
}
