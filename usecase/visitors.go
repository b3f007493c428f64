package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"urbansetu/model"
	"urbansetu/utils"
)

const (
	DefaultStatsDays = 30
	MaxStatsDays     = 365
)

type VisitorStore interface {
	Insert(ctx context.Context, v *model.VisitorLog) error
	RecordRepeat(ctx context.Context, fingerprint string, day time.Time, view *model.PageView, consent model.ConsentUpdate, at time.Time) error
	Stats(ctx context.Context, since time.Time) (*model.VisitorStats, error)
}

type TrackInput struct {
	IP        string
	UserAgent string
	Source    string
	Referrer  string
	Path      string
	UserID    string
	Consent   model.ConsentUpdate
}

// TrackResult reports whether the visit was stored and as what.
type TrackResult struct {
	Fingerprint string `json:"fingerprint,omitempty"`
	Tracked     bool   `json:"tracked"`
	Repeat      bool   `json:"repeat"`
}

type VisitorService struct {
	visitors VisitorStore
	now      func() time.Time
}

func NewVisitorService(visitors VisitorStore) *VisitorService {
	return &VisitorService{visitors: visitors, now: time.Now}
}

// Track stores at most one row per fingerprint per UTC day. Visitors who
// declined analytics consent and bots are not stored. A repeat visit merges
// the consent flags it carries into the stored ones.
func (s *VisitorService) Track(ctx context.Context, in TrackInput) (TrackResult, error) {
	if !in.Consent.AllowsAnalytics() {
		utils.VisitorsTracked.WithLabelValues("skipped").Inc()
		return TrackResult{}, nil
	}
	info := utils.ParseClientInfo(in.UserAgent)
	if info.Bot {
		utils.VisitorsTracked.WithLabelValues("skipped").Inc()
		return TrackResult{}, nil
	}

	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = "direct"
	}
	now := s.now().UTC()
	day := utils.DayStart(now)
	fp := utils.Fingerprint(in.IP, in.UserAgent, source)

	var view *model.PageView
	views := []model.PageView{}
	if in.Path != "" {
		view = &model.PageView{Path: in.Path, At: now}
		views = append(views, *view)
	}

	v := &model.VisitorLog{
		ID:          utils.NewID(),
		Fingerprint: fp,
		VisitDate:   day,
		IP:          utils.MaskIP(in.IP),
		Device:      info.Device,
		Browser:     info.Browser,
		OS:          info.OS,
		Source:      source,
		Referrer:    in.Referrer,
		UserID:      in.UserID,
		PageViews:   views,
		VisitCount:  1,
		Consent:     in.Consent.Apply(model.Consent{}),
		FirstSeen:   now,
		LastSeen:    now,
	}

	err := s.visitors.Insert(ctx, v)
	switch {
	case err == nil:
		utils.VisitorsTracked.WithLabelValues("new").Inc()
		return TrackResult{Fingerprint: fp, Tracked: true}, nil
	case errors.Is(err, model.ErrDuplicate):
		if err := s.visitors.RecordRepeat(ctx, fp, day, view, in.Consent, now); err != nil {
			return TrackResult{}, err
		}
		utils.VisitorsTracked.WithLabelValues("repeat").Inc()
		return TrackResult{Fingerprint: fp, Tracked: true, Repeat: true}, nil
	default:
		utils.TrackError("database", "visitor_insert")
		return TrackResult{}, err
	}
}

// Stats aggregates the last days of traffic, today included.
func (s *VisitorService) Stats(ctx context.Context, actor Actor, days int) (*model.VisitorStats, error) {
	if !actor.Can(model.PermViewAnalytics) {
		return nil, model.ErrForbidden
	}
	if days <= 0 {
		days = DefaultStatsDays
	}
	if days > MaxStatsDays {
		days = MaxStatsDays
	}
	since := utils.DayStart(s.now()).AddDate(0, 0, -(days - 1))
	stats, err := s.visitors.Stats(ctx, since)
	if err != nil {
		return nil, err
	}
	stats.Days = days
	return stats, nil
}
