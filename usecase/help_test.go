package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"urbansetu/model"
)

type fakeHelp struct {
	mu       sync.Mutex
	articles map[string]*model.HelpArticle
	views    map[string]bool
}

func newFakeHelp() *fakeHelp {
	return &fakeHelp{articles: make(map[string]*model.HelpArticle), views: make(map[string]bool)}
}

func (f *fakeHelp) Create(_ context.Context, a *model.HelpArticle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.articles {
		if existing.Slug == a.Slug {
			return model.ErrDuplicate
		}
	}
	cp := *a
	f.articles[a.ID] = &cp
	return nil
}

func (f *fakeHelp) FindByID(_ context.Context, id string) (*model.HelpArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.articles[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeHelp) FindBySlug(_ context.Context, slug string) (*model.HelpArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.articles {
		if a.Slug == slug {
			cp := *a
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *fakeHelp) Update(_ context.Context, a *model.HelpArticle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.articles[a.ID]; !ok {
		return model.ErrNotFound
	}
	cp := *a
	f.articles[a.ID] = &cp
	return nil
}

func (f *fakeHelp) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.articles[id]; !ok {
		return model.ErrNotFound
	}
	delete(f.articles, id)
	return nil
}

func (f *fakeHelp) List(_ context.Context, flt model.HelpFilter) ([]model.HelpArticle, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.HelpArticle
	for _, a := range f.articles {
		if !a.Published && !flt.IncludeDrafts {
			continue
		}
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

func (f *fakeHelp) InsertView(_ context.Context, v *model.HelpArticleView) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := v.ArticleID + "|" + v.Viewer + "|" + v.ViewDate.Format(time.DateOnly)
	if f.views[k] {
		return model.ErrDuplicate
	}
	f.views[k] = true
	return nil
}

func (f *fakeHelp) IncrementViews(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.articles[id]; ok {
		a.Views++
	}
	return nil
}

func (f *fakeHelp) AddFeedback(_ context.Context, id string, helpful bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.articles[id]
	if !ok {
		return model.ErrNotFound
	}
	if helpful {
		a.HelpfulYes++
	} else {
		a.HelpfulNo++
	}
	return nil
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"How to list a property?": "how-to-list-a-property",
		"  ESG -- Scores  ":        "esg-scores",
		"!!!": "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHelpArticleLifecycle(t *testing.T) {
	svc := NewHelpService(newFakeHelp())
	ctx := context.Background()

	in := HelpInput{Title: "Resetting your password", Content: "Open settings.", Published: false}
	if _, err := svc.Create(ctx, alice, in); !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("users cannot author articles, got %v", err)
	}
	a, err := svc.Create(ctx, mod, in)
	if err != nil {
		t.Fatal(err)
	}
	if a.Slug != "resetting-your-password" || a.Category != "general" {
		t.Errorf("unexpected article %+v", a)
	}
	if _, err := svc.Create(ctx, mod, in); !errors.Is(err, model.ErrDuplicate) {
		t.Errorf("slug collision should be a duplicate, got %v", err)
	}

	if _, err := svc.GetBySlug(ctx, Actor{}, a.Slug); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("drafts are hidden from the public, got %v", err)
	}
	page, _ := svc.List(ctx, Actor{}, model.HelpFilter{IncludeDrafts: true})
	if page.Total != 0 {
		t.Errorf("anonymous listing must not include drafts, got %d", page.Total)
	}

	in.Published = true
	if _, err := svc.Update(ctx, mod, a.ID, in); err != nil {
		t.Fatal(err)
	}
	got, err := svc.GetBySlug(ctx, Actor{}, a.Slug)
	if err != nil || !got.Published {
		t.Fatalf("published article should be visible: %v", err)
	}

	if err := svc.Feedback(ctx, a.ID, true); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, mod, a.ID); err != nil {
		t.Fatal(err)
	}
}

func TestRecordViewOncePerViewerPerDay(t *testing.T) {
	store := newFakeHelp()
	svc := NewHelpService(store)
	clk := newClock()
	svc.now = clk.Now
	ctx := context.Background()

	a, _ := svc.Create(ctx, mod, HelpInput{Title: "Rent lock", Content: "Explained.", Published: true})

	steps := []struct {
		viewer  string
		advance time.Duration
		counted bool
	}{
		{"alice", 0, true},
		{"alice", time.Hour, false},
		{"fp-123", 0, true},
		{"alice", 24 * time.Hour, true},
	}
	for i, st := range steps {
		clk.Advance(st.advance)
		counted, err := svc.RecordView(ctx, a.ID, st.viewer)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if counted != st.counted {
			t.Errorf("step %d: counted = %v, want %v", i, counted, st.counted)
		}
	}
	got, _ := store.FindByID(ctx, a.ID)
	if got.Views != 3 {
		t.Errorf("expected 3 views, got %d", got.Views)
	}
	if _, err := svc.RecordView(ctx, a.ID, ""); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("empty viewer should be invalid, got %v", err)
	}
}
