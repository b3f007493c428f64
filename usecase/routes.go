package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"urbansetu/model"
	"urbansetu/utils"
)

const MaxWaypoints = 10

type RouteStore interface {
	Create(ctx context.Context, rt *model.Route) error
	FindOwned(ctx context.Context, id, userID string) (*model.Route, error)
	Replace(ctx context.Context, rt *model.Route) error
	Delete(ctx context.Context, id, userID string) error
	ListByUser(ctx context.Context, userID string) ([]model.Route, error)
}

type RouteInput struct {
	Name        string
	ListingID   string
	Origin      model.GeoPoint
	Destination model.GeoPoint
	Waypoints   []model.GeoPoint
	Mode        model.TravelMode
}

type RouteService struct {
	routes RouteStore
	now    func() time.Time
}

func NewRouteService(routes RouteStore) *RouteService {
	return &RouteService{routes: routes, now: time.Now}
}

func validPoint(p model.GeoPoint) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (in *RouteInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("route name required: %w", model.ErrInvalidInput)
	}
	switch in.Mode {
	case "":
		in.Mode = model.ModeDriving
	case model.ModeDriving, model.ModeWalking, model.ModeCycling, model.ModeTransit:
	default:
		return fmt.Errorf("unknown travel mode %q: %w", in.Mode, model.ErrInvalidInput)
	}
	if len(in.Waypoints) > MaxWaypoints {
		return fmt.Errorf("at most %d waypoints: %w", MaxWaypoints, model.ErrInvalidInput)
	}
	if !validPoint(in.Origin) || !validPoint(in.Destination) {
		return fmt.Errorf("coordinates out of range: %w", model.ErrInvalidInput)
	}
	for _, w := range in.Waypoints {
		if !validPoint(w) {
			return fmt.Errorf("waypoint out of range: %w", model.ErrInvalidInput)
		}
	}
	if in.Waypoints == nil {
		in.Waypoints = []model.GeoPoint{}
	}
	return nil
}

func (s *RouteService) Create(ctx context.Context, actor Actor, in RouteInput) (*model.Route, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	now := s.now()
	rt := &model.Route{
		ID:          utils.NewID(),
		UserID:      actor.UserID,
		Name:        in.Name,
		ListingID:   in.ListingID,
		Origin:      in.Origin,
		Destination: in.Destination,
		Waypoints:   in.Waypoints,
		Mode:        in.Mode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.routes.Create(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *RouteService) Get(ctx context.Context, actor Actor, id string) (*model.Route, error) {
	return s.routes.FindOwned(ctx, id, actor.UserID)
}

func (s *RouteService) List(ctx context.Context, actor Actor) ([]model.Route, error) {
	return s.routes.ListByUser(ctx, actor.UserID)
}

func (s *RouteService) Update(ctx context.Context, actor Actor, id string, in RouteInput) (*model.Route, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	rt, err := s.routes.FindOwned(ctx, id, actor.UserID)
	if err != nil {
		return nil, err
	}
	rt.Name = in.Name
	rt.ListingID = in.ListingID
	rt.Origin = in.Origin
	rt.Destination = in.Destination
	rt.Waypoints = in.Waypoints
	rt.Mode = in.Mode
	rt.UpdatedAt = s.now()
	if err := s.routes.Replace(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *RouteService) Delete(ctx context.Context, actor Actor, id string) error {
	return s.routes.Delete(ctx, id, actor.UserID)
}
