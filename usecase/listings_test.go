package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"urbansetu/model"
)

type fakeListings struct {
	mu       sync.Mutex
	listings map[string]*model.Listing
}

func newFakeListings() *fakeListings {
	return &fakeListings{listings: make(map[string]*model.Listing)}
}

func (f *fakeListings) Create(_ context.Context, l *model.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *l
	f.listings[l.ID] = &cp
	return nil
}

func (f *fakeListings) FindByID(_ context.Context, id string) (*model.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *l
	cp.ImageURLs = append([]string(nil), l.ImageURLs...)
	return &cp, nil
}

func (f *fakeListings) Update(_ context.Context, l *model.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.listings[l.ID]
	if !ok {
		return model.ErrNotFound
	}
	if stored.RentLocked {
		return model.ErrRentLocked
	}
	cp := *l
	f.listings[l.ID] = &cp
	return nil
}

func (f *fakeListings) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.listings[id]
	if !ok {
		return model.ErrNotFound
	}
	if stored.RentLocked {
		return model.ErrRentLocked
	}
	delete(f.listings, id)
	return nil
}

func (f *fakeListings) SetRentLock(_ context.Context, id string, locked bool, contractID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return model.ErrNotFound
	}
	if locked {
		if l.RentLocked {
			return model.ErrRentLocked
		}
		l.RentLocked, l.ActiveContractID = true, contractID
		return nil
	}
	if l.ActiveContractID != contractID {
		return model.ErrNotFound
	}
	l.RentLocked, l.ActiveContractID = false, ""
	return nil
}

func (f *fakeListings) PushImages(_ context.Context, id string, urls []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return model.ErrNotFound
	}
	l.ImageURLs = append(l.ImageURLs, urls...)
	return nil
}

func (f *fakeListings) SetRating(_ context.Context, id string, s model.RatingSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return model.ErrNotFound
	}
	l.AverageRating, l.ReviewCount = s.Average, s.Count
	return nil
}

func (f *fakeListings) Search(_ context.Context, flt model.ListingFilter) ([]model.Listing, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Listing
	for _, l := range f.listings {
		if flt.City != "" && !strings.EqualFold(l.City, flt.City) {
			continue
		}
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

type fakeObjects struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
}

func (f *fakeObjects) Upload(_ context.Context, prefix, filename, _ string, body io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	u := fmt.Sprintf("https://cdn.example.com/%s/%d-%s", prefix, len(f.uploaded), filename)
	f.uploaded = append(f.uploaded, u)
	return u, nil
}

func (f *fakeObjects) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

func rentInput() ListingInput {
	return ListingInput{
		Name:         "2BHK near Baner",
		City:         "Pune",
		Type:         model.ListingRent,
		RegularPrice: 25000,
		Bedrooms:     2,
		Bathrooms:    2,
	}
}

func TestScoreESG(t *testing.T) {
	full := &model.ESGDetails{
		Environmental: model.ESGEnvironmental{
			EnergyRating: "A", SolarPanels: true, RainwaterHarvesting: true,
			WasteManagement: true, GreenCertified: true, GreenSpacePercent: 100,
		},
		Social: model.ESGSocial{
			Accessibility: true, CommunityAmenities: 8, SafetyFeatures: 5, PublicTransportKm: 0.3,
		},
		Governance: model.ESGGovernance{
			LegalCompliance: true, ClearTitle: true, RegisteredBuilder: true, Transparency: 5,
		},
	}
	partial := &model.ESGDetails{
		Environmental: model.ESGEnvironmental{EnergyRating: "C", SolarPanels: true, GreenSpacePercent: 20},
		Social:        model.ESGSocial{CommunityAmenities: 2, PublicTransportKm: 1.5},
		Governance:    model.ESGGovernance{ClearTitle: true, Transparency: 3},
	}

	tests := []struct {
		name string
		in   *model.ESGDetails
		want ESGBreakdown
	}{
		{"nil", nil, ESGBreakdown{}},
		{"full marks", full, ESGBreakdown{Environmental: 100, Social: 100, Governance: 100, Composite: 100}},
		// E = 20+15+3 = 38, S = 10+15 = 25, G = 25+18 = 43
		{"partial", partial, ESGBreakdown{Environmental: 38, Social: 25, Governance: 43, Composite: 35.6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreESG(tt.in); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestListingCreateComputesScore(t *testing.T) {
	svc := NewListingService(newFakeListings(), nil)
	in := rentInput()
	in.ESG = &model.ESGDetails{Governance: model.ESGGovernance{LegalCompliance: true}}

	l, err := svc.Create(context.Background(), alice, in)
	if err != nil {
		t.Fatal(err)
	}
	if l.ESGScore != 7.5 {
		t.Errorf("expected composite 7.5, got %v", l.ESGScore)
	}
	if l.OwnerID != "alice" {
		t.Errorf("owner not set: %q", l.OwnerID)
	}
}

func TestListingValidation(t *testing.T) {
	svc := NewListingService(newFakeListings(), nil)
	ctx := context.Background()

	bad := []func(*ListingInput){
		func(in *ListingInput) { in.Name = " " },
		func(in *ListingInput) { in.Type = "lease" },
		func(in *ListingInput) { in.RegularPrice = 0 },
		func(in *ListingInput) { in.Offer = true; in.DiscountPrice = 30000 },
		func(in *ListingInput) { in.ImageURLs = make([]string, 7) },
	}
	for i, mutate := range bad {
		in := rentInput()
		mutate(&in)
		if _, err := svc.Create(ctx, alice, in); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestRentLockedListingIsImmutable(t *testing.T) {
	store := newFakeListings()
	svc := NewListingService(store, nil)
	ctx := context.Background()

	l, _ := svc.Create(ctx, alice, rentInput())
	if err := store.SetRentLock(ctx, l.ID, true, "contract-1"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Update(ctx, alice, l.ID, rentInput()); !errors.Is(err, model.ErrRentLocked) {
		t.Errorf("update: expected rent locked, got %v", err)
	}
	if err := svc.Delete(ctx, alice, l.ID); !errors.Is(err, model.ErrRentLocked) {
		t.Errorf("delete: expected rent locked, got %v", err)
	}
	if err := svc.Delete(ctx, mod, l.ID); !errors.Is(err, model.ErrRentLocked) {
		t.Errorf("admins cannot bypass the lock, got %v", err)
	}
}

func TestListingOwnership(t *testing.T) {
	svc := NewListingService(newFakeListings(), nil)
	ctx := context.Background()
	l, _ := svc.Create(ctx, alice, rentInput())

	if _, err := svc.Update(ctx, bob, l.ID, rentInput()); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	in := rentInput()
	in.Name = "Renamed by admin"
	if _, err := svc.Update(ctx, mod, l.ID, in); err != nil {
		t.Errorf("admin update failed: %v", err)
	}
}

func TestUploadImages(t *testing.T) {
	objects := &fakeObjects{}
	svc := NewListingService(newFakeListings(), objects)
	ctx := context.Background()
	l, _ := svc.Create(ctx, alice, rentInput())

	img := func(name, ct string) ImageUpload {
		return ImageUpload{Filename: name, ContentType: ct, Size: 3, Body: strings.NewReader("img")}
	}

	if _, err := svc.UploadImages(ctx, alice, l.ID, []ImageUpload{img("a.pdf", "application/pdf")}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("non-image should be rejected, got %v", err)
	}

	batch := make([]ImageUpload, 0, 4)
	for i := 0; i < 4; i++ {
		batch = append(batch, img(fmt.Sprintf("%d.jpg", i), "image/jpeg"))
	}
	urls, err := svc.UploadImages(ctx, alice, l.ID, batch)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 4 {
		t.Fatalf("expected 4 urls, got %d", len(urls))
	}

	more := []ImageUpload{img("x.png", "image/png"), img("y.png", "image/png"), img("z.png", "image/png")}
	if _, err := svc.UploadImages(ctx, alice, l.ID, more); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("exceeding %d images should fail, got %v", MaxListingImages, err)
	}

	got, _ := svc.Get(ctx, l.ID)
	if len(got.ImageURLs) != 4 {
		t.Errorf("expected 4 stored images, got %d", len(got.ImageURLs))
	}

	if err := svc.Delete(ctx, alice, l.ID); err != nil {
		t.Fatal(err)
	}
	if len(objects.deleted) != 4 {
		t.Errorf("expected stored images to be removed, got %d", len(objects.deleted))
	}
}
