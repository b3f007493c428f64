package usecase

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"urbansetu/model"
	"urbansetu/services"
	"urbansetu/utils"
)

const DefaultTopic = "newsletter"

type SubscriptionStore interface {
	Subscribe(ctx context.Context, s *model.Subscription) (bool, error)
	Unsubscribe(ctx context.Context, email, topic string) error
	List(ctx context.Context, topic string, activeOnly bool, page, limit int) ([]model.Subscription, int64, error)
}

type SubscriptionService struct {
	subs   SubscriptionStore
	mailer services.Mailer
	now    func() time.Time
}

func NewSubscriptionService(subs SubscriptionStore, mailer services.Mailer) *SubscriptionService {
	return &SubscriptionService{subs: subs, mailer: mailer, now: time.Now}
}

func normalizeSubscription(email, topic string) (string, string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", "", fmt.Errorf("invalid email: %w", model.ErrInvalidInput)
	}
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		topic = DefaultTopic
	}
	return strings.ToLower(addr.Address), topic, nil
}

// Subscribe is idempotent on (email, topic). Re-subscribing reactivates a
// previous subscription. Only new subscriptions get a welcome email.
func (s *SubscriptionService) Subscribe(ctx context.Context, actor Actor, email, topic string) (bool, error) {
	email, topic, err := normalizeSubscription(email, topic)
	if err != nil {
		return false, err
	}
	created, err := s.subs.Subscribe(ctx, &model.Subscription{
		ID:        utils.NewID(),
		Email:     email,
		Topic:     topic,
		UserID:    actor.UserID,
		Active:    true,
		CreatedAt: s.now(),
	})
	if err != nil {
		return false, err
	}
	if created {
		services.SendAsync(s.mailer, email, "You're subscribed to UrbanSetu "+topic,
			"Thanks for subscribing. You can unsubscribe at any time from your account settings.")
	}
	return created, nil
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, email, topic string) error {
	email, topic, err := normalizeSubscription(email, topic)
	if err != nil {
		return err
	}
	return s.subs.Unsubscribe(ctx, email, topic)
}

func (s *SubscriptionService) List(ctx context.Context, actor Actor, topic string, activeOnly bool, page, limit int) (model.Page[model.Subscription], error) {
	if !actor.Can(model.PermPublishUpdates) {
		return model.Page[model.Subscription]{}, model.ErrForbidden
	}
	page, limit = model.NormalizePage(page, limit)
	items, total, err := s.subs.List(ctx, strings.ToLower(strings.TrimSpace(topic)), activeOnly, page, limit)
	if err != nil {
		return model.Page[model.Subscription]{}, err
	}
	if actor.Role != model.RoleRootAdmin {
		for i := range items {
			items[i].Email = utils.MaskEmail(items[i].Email)
		}
	}
	return model.NewPage(items, total, page, limit), nil
}
