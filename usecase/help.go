package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"urbansetu/model"
	"urbansetu/utils"
)

type HelpStore interface {
	Create(ctx context.Context, a *model.HelpArticle) error
	FindByID(ctx context.Context, id string) (*model.HelpArticle, error)
	FindBySlug(ctx context.Context, slug string) (*model.HelpArticle, error)
	Update(ctx context.Context, a *model.HelpArticle) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f model.HelpFilter) ([]model.HelpArticle, int64, error)
	InsertView(ctx context.Context, v *model.HelpArticleView) error
	IncrementViews(ctx context.Context, id string) error
	AddFeedback(ctx context.Context, id string, helpful bool) error
}

type HelpInput struct {
	Slug      string
	Title     string
	Content   string
	Category  string
	Tags      []string
	Published bool
}

type HelpService struct {
	articles HelpStore
	now      func() time.Time
}

func NewHelpService(articles HelpStore) *HelpService {
	return &HelpService{articles: articles, now: time.Now}
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	return strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func (in HelpInput) validate() error {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return fmt.Errorf("title and content required: %w", model.ErrInvalidInput)
	}
	return nil
}

func (in HelpInput) apply(a *model.HelpArticle) {
	a.Title = strings.TrimSpace(in.Title)
	a.Content = in.Content
	a.Category = strings.ToLower(strings.TrimSpace(in.Category))
	if a.Category == "" {
		a.Category = "general"
	}
	a.Tags = cleanTags(in.Tags)
	a.Published = in.Published
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(in.Title)
	}
	a.Slug = slug
}

func (s *HelpService) Create(ctx context.Context, actor Actor, in HelpInput) (*model.HelpArticle, error) {
	if !actor.Can(model.PermManageHelp) {
		return nil, model.ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	a := &model.HelpArticle{
		ID:        utils.NewID(),
		AuthorID:  actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(a)
	if a.Slug == "" {
		return nil, fmt.Errorf("slug required: %w", model.ErrInvalidInput)
	}
	if err := s.articles.Create(ctx, a); err != nil {
		if errors.Is(err, model.ErrDuplicate) {
			return nil, fmt.Errorf("slug %q already in use: %w", a.Slug, model.ErrDuplicate)
		}
		return nil, err
	}
	return a, nil
}

func (s *HelpService) Update(ctx context.Context, actor Actor, id string, in HelpInput) (*model.HelpArticle, error) {
	if !actor.Can(model.PermManageHelp) {
		return nil, model.ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	a, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(a)
	if a.Slug == "" {
		return nil, fmt.Errorf("slug required: %w", model.ErrInvalidInput)
	}
	a.UpdatedAt = s.now()
	if err := s.articles.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *HelpService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.Can(model.PermManageHelp) {
		return model.ErrForbidden
	}
	return s.articles.Delete(ctx, id)
}

// List returns published articles. Staff may include drafts.
func (s *HelpService) List(ctx context.Context, viewer Actor, f model.HelpFilter) (model.Page[model.HelpArticle], error) {
	if !viewer.Can(model.PermManageHelp) {
		f.IncludeDrafts = false
	}
	f.Page, f.Limit = model.NormalizePage(f.Page, f.Limit)
	items, total, err := s.articles.List(ctx, f)
	if err != nil {
		return model.Page[model.HelpArticle]{}, err
	}
	return model.NewPage(items, total, f.Page, f.Limit), nil
}

// GetBySlug hides drafts from everyone but staff.
func (s *HelpService) GetBySlug(ctx context.Context, viewer Actor, slug string) (*model.HelpArticle, error) {
	a, err := s.articles.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !a.Published && !viewer.Can(model.PermManageHelp) {
		return nil, model.ErrNotFound
	}
	return a, nil
}

// RecordView counts a view at most once per viewer per UTC day. It reports
// whether the view was counted.
func (s *HelpService) RecordView(ctx context.Context, articleID, viewer string) (bool, error) {
	if viewer == "" {
		return false, fmt.Errorf("viewer required: %w", model.ErrInvalidInput)
	}
	now := s.now()
	err := s.articles.InsertView(ctx, &model.HelpArticleView{
		ID:        utils.NewID(),
		ArticleID: articleID,
		Viewer:    viewer,
		ViewDate:  utils.DayStart(now),
		CreatedAt: now,
	})
	if errors.Is(err, model.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.articles.IncrementViews(ctx, articleID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *HelpService) Feedback(ctx context.Context, id string, helpful bool) error {
	return s.articles.AddFeedback(ctx, id, helpful)
}
