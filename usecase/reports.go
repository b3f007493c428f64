package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"urbansetu/model"
	"urbansetu/utils"
)

type ReportStore interface {
	Create(ctx context.Context, rep *model.ReportMessage) error
	List(ctx context.Context, status model.ReportStatus, page, limit int) ([]model.ReportMessage, int64, error)
	Close(ctx context.Context, id string, status model.ReportStatus, by, notes string) error
}

type ReportInput struct {
	TargetType  model.ReportTarget
	TargetID    string
	Reason      string
	Description string
}

type ReportService struct {
	reports ReportStore
	notify  Notifier
	now     func() time.Time
}

func NewReportService(reports ReportStore, notify Notifier) *ReportService {
	if notify == nil {
		notify = NopNotifier
	}
	return &ReportService{reports: reports, notify: notify, now: time.Now}
}

func validReportTarget(t model.ReportTarget) bool {
	switch t {
	case model.ReportTargetMessage, model.ReportTargetListing, model.ReportTargetUser, model.ReportTargetReview:
		return true
	}
	return false
}

func (s *ReportService) Submit(ctx context.Context, actor Actor, in ReportInput) (*model.ReportMessage, error) {
	if !validReportTarget(in.TargetType) {
		return nil, fmt.Errorf("unknown report target %q: %w", in.TargetType, model.ErrInvalidInput)
	}
	if strings.TrimSpace(in.TargetID) == "" || strings.TrimSpace(in.Reason) == "" {
		return nil, fmt.Errorf("target and reason required: %w", model.ErrInvalidInput)
	}
	if in.TargetType == model.ReportTargetUser && in.TargetID == actor.UserID {
		return nil, fmt.Errorf("cannot report yourself: %w", model.ErrInvalidInput)
	}

	now := s.now()
	rep := &model.ReportMessage{
		ID:          utils.NewID(),
		ReporterID:  actor.UserID,
		TargetType:  in.TargetType,
		TargetID:    in.TargetID,
		Reason:      strings.TrimSpace(in.Reason),
		Description: strings.TrimSpace(in.Description),
		Status:      model.ReportOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		return nil, err
	}
	s.notify.EmitToAdmins(EventReportSubmitted, map[string]any{
		"report_id":   rep.ID,
		"target_type": rep.TargetType,
		"target_id":   rep.TargetID,
	})
	return rep, nil
}

func (s *ReportService) List(ctx context.Context, actor Actor, status model.ReportStatus, page, limit int) (model.Page[model.ReportMessage], error) {
	if !actor.Can(model.PermManageReports) {
		return model.Page[model.ReportMessage]{}, model.ErrForbidden
	}
	page, limit = model.NormalizePage(page, limit)
	items, total, err := s.reports.List(ctx, status, page, limit)
	if err != nil {
		return model.Page[model.ReportMessage]{}, err
	}
	return model.NewPage(items, total, page, limit), nil
}

// Close moves an open report to resolved or dismissed.
func (s *ReportService) Close(ctx context.Context, actor Actor, id string, status model.ReportStatus, notes string) error {
	if !actor.Can(model.PermManageReports) {
		return model.ErrForbidden
	}
	if status != model.ReportResolved && status != model.ReportDismissed {
		return fmt.Errorf("status must be resolved or dismissed: %w", model.ErrInvalidInput)
	}
	return s.reports.Close(ctx, id, status, actor.UserID, strings.TrimSpace(notes))
}
