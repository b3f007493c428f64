package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"urbansetu/model"
	"urbansetu/utils"
)

type UpdateStore interface {
	Create(ctx context.Context, u *model.PlatformUpdate) error
	FindByID(ctx context.Context, id string) (*model.PlatformUpdate, error)
	Replace(ctx context.Context, u *model.PlatformUpdate) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, publishedOnly bool, page, limit int) ([]model.PlatformUpdate, int64, error)
}

type UpdateInput struct {
	Title     string
	Body      string
	Category  string
	Version   string
	Published bool
}

type UpdateService struct {
	updates UpdateStore
	notify  Notifier
	now     func() time.Time
}

func NewUpdateService(updates UpdateStore, notify Notifier) *UpdateService {
	if notify == nil {
		notify = NopNotifier
	}
	return &UpdateService{updates: updates, notify: notify, now: time.Now}
}

func (in UpdateInput) validate() error {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Body) == "" {
		return fmt.Errorf("title and body required: %w", model.ErrInvalidInput)
	}
	return nil
}

// apply copies input onto u and stamps PublishedAt on the first publish.
// It reports whether this call published the update.
func (s *UpdateService) apply(u *model.PlatformUpdate, in UpdateInput) bool {
	u.Title = strings.TrimSpace(in.Title)
	u.Body = in.Body
	u.Category = strings.ToLower(strings.TrimSpace(in.Category))
	if u.Category == "" {
		u.Category = "announcement"
	}
	u.Version = strings.TrimSpace(in.Version)

	published := in.Published && !u.Published
	u.Published = in.Published
	if published {
		at := s.now()
		u.PublishedAt = &at
	}
	if !u.Published {
		u.PublishedAt = nil
	}
	return published
}

func (s *UpdateService) broadcast(u *model.PlatformUpdate) {
	s.notify.Broadcast(EventPlatformUpdate, map[string]any{
		"id":       u.ID,
		"title":    u.Title,
		"category": u.Category,
		"version":  u.Version,
	})
}

func (s *UpdateService) Create(ctx context.Context, actor Actor, in UpdateInput) (*model.PlatformUpdate, error) {
	if !actor.Can(model.PermPublishUpdates) {
		return nil, model.ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	u := &model.PlatformUpdate{ID: utils.NewID(), AuthorID: actor.UserID, CreatedAt: now, UpdatedAt: now}
	published := s.apply(u, in)
	if err := s.updates.Create(ctx, u); err != nil {
		return nil, err
	}
	if published {
		s.broadcast(u)
	}
	return u, nil
}

func (s *UpdateService) Update(ctx context.Context, actor Actor, id string, in UpdateInput) (*model.PlatformUpdate, error) {
	if !actor.Can(model.PermPublishUpdates) {
		return nil, model.ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	u, err := s.updates.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	published := s.apply(u, in)
	u.UpdatedAt = s.now()
	if err := s.updates.Replace(ctx, u); err != nil {
		return nil, err
	}
	if published {
		s.broadcast(u)
	}
	return u, nil
}

func (s *UpdateService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.Can(model.PermPublishUpdates) {
		return model.ErrForbidden
	}
	return s.updates.Delete(ctx, id)
}

// List shows drafts to publishers only.
func (s *UpdateService) List(ctx context.Context, viewer Actor, includeDrafts bool, page, limit int) (model.Page[model.PlatformUpdate], error) {
	publishedOnly := !(includeDrafts && viewer.Can(model.PermPublishUpdates))
	page, limit = model.NormalizePage(page, limit)
	items, total, err := s.updates.List(ctx, publishedOnly, page, limit)
	if err != nil {
		return model.Page[model.PlatformUpdate]{}, err
	}
	return model.NewPage(items, total, page, limit), nil
}
