package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"urbansetu/model"
	"urbansetu/services"
	"urbansetu/utils"
)

type AgentStore interface {
	Create(ctx context.Context, a *model.Agent) error
	FindByID(ctx context.Context, id string) (*model.Agent, error)
	FindByUser(ctx context.Context, userID string) (*model.Agent, error)
	List(ctx context.Context, status model.AgentStatus, city string, page, limit int) ([]model.Agent, int64, error)
	SetStatus(ctx context.Context, id string, status model.AgentStatus, reason, by string) error
	SetRating(ctx context.Context, id string, s model.RatingSummary) error
}

type AgentInput struct {
	Name            string
	Agency          string
	City            string
	ExperienceYears int
	Phone           string
	Email           string
	About           string
	Photo           string
}

type AgentService struct {
	agents AgentStore
	mailer services.Mailer
	notify Notifier
	now    func() time.Time
}

func NewAgentService(agents AgentStore, mailer services.Mailer, notify Notifier) *AgentService {
	if notify == nil {
		notify = NopNotifier
	}
	return &AgentService{agents: agents, mailer: mailer, notify: notify, now: time.Now}
}

// masked hides contact details on public listings.
func masked(a model.Agent) model.Agent {
	a.Phone = utils.MaskPhone(a.Phone)
	a.Email = utils.MaskEmail(a.Email)
	return a
}

// Apply submits the actor's agent application. One per user.
func (s *AgentService) Apply(ctx context.Context, actor Actor, in AgentInput) (*model.Agent, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.City) == "" || strings.TrimSpace(in.Phone) == "" {
		return nil, fmt.Errorf("name, city and phone required: %w", model.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, fmt.Errorf("invalid email: %w", model.ErrInvalidInput)
	}
	if in.ExperienceYears < 0 {
		return nil, fmt.Errorf("experience cannot be negative: %w", model.ErrInvalidInput)
	}

	existing, err := s.agents.FindByUser(ctx, actor.UserID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("agent application already submitted: %w", model.ErrDuplicate)
	}

	now := s.now()
	a := &model.Agent{
		ID:              utils.NewID(),
		UserID:          actor.UserID,
		Name:            strings.TrimSpace(in.Name),
		Agency:          strings.TrimSpace(in.Agency),
		City:            strings.TrimSpace(in.City),
		ExperienceYears: in.ExperienceYears,
		Phone:           strings.TrimSpace(in.Phone),
		Email:           strings.ToLower(strings.TrimSpace(in.Email)),
		About:           in.About,
		Photo:           in.Photo,
		Status:          model.AgentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.agents.Create(ctx, a); err != nil {
		return nil, err
	}
	s.notify.EmitToAdmins(EventAgentStatus, map[string]any{"agent_id": a.ID, "status": a.Status})
	return a, nil
}

// Mine returns the actor's own application, unmasked.
func (s *AgentService) Mine(ctx context.Context, actor Actor) (*model.Agent, error) {
	return s.agents.FindByUser(ctx, actor.UserID)
}

// Get returns an approved agent with masked contact details. Staff see
// every agent unmasked.
func (s *AgentService) Get(ctx context.Context, viewer Actor, id string) (*model.Agent, error) {
	a, err := s.agents.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer.Can(model.PermManageAgents) {
		return a, nil
	}
	if a.Status != model.AgentApproved {
		return nil, model.ErrNotFound
	}
	m := masked(*a)
	return &m, nil
}

func (s *AgentService) ListPublic(ctx context.Context, city string, page, limit int) (model.Page[model.Agent], error) {
	page, limit = model.NormalizePage(page, limit)
	agents, total, err := s.agents.List(ctx, model.AgentApproved, city, page, limit)
	if err != nil {
		return model.Page[model.Agent]{}, err
	}
	for i := range agents {
		agents[i] = masked(agents[i])
	}
	return model.NewPage(agents, total, page, limit), nil
}

func (s *AgentService) ListByStatus(ctx context.Context, actor Actor, status model.AgentStatus, page, limit int) (model.Page[model.Agent], error) {
	if !actor.Can(model.PermManageAgents) {
		return model.Page[model.Agent]{}, model.ErrForbidden
	}
	page, limit = model.NormalizePage(page, limit)
	agents, total, err := s.agents.List(ctx, status, "", page, limit)
	if err != nil {
		return model.Page[model.Agent]{}, err
	}
	return model.NewPage(agents, total, page, limit), nil
}

func (s *AgentService) Approve(ctx context.Context, actor Actor, id string) (*model.Agent, error) {
	return s.decide(ctx, actor, id, model.AgentApproved, "")
}

func (s *AgentService) Reject(ctx context.Context, actor Actor, id, reason string) (*model.Agent, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("rejection reason required: %w", model.ErrInvalidInput)
	}
	return s.decide(ctx, actor, id, model.AgentRejected, reason)
}

func (s *AgentService) decide(ctx context.Context, actor Actor, id string, status model.AgentStatus, reason string) (*model.Agent, error) {
	if !actor.Can(model.PermManageAgents) {
		return nil, model.ErrForbidden
	}
	if err := s.agents.SetStatus(ctx, id, status, reason, actor.UserID); err != nil {
		return nil, err
	}
	a, err := s.agents.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	subject := "Your UrbanSetu agent application was approved"
	body := fmt.Sprintf("Hi %s,\n\nYour agent profile is now live on UrbanSetu.", a.Name)
	if status == model.AgentRejected {
		subject = "Your UrbanSetu agent application"
		body = fmt.Sprintf("Hi %s,\n\nWe could not approve your agent application.\n\nReason: %s", a.Name, reason)
	}
	services.SendAsync(s.mailer, a.Email, subject, body)
	s.notify.EmitToUser(a.UserID, EventAgentStatus, map[string]any{"agent_id": a.ID, "status": a.Status})
	return a, nil
}
