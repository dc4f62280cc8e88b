package admin

import (
	"context"
	"time"

	"workpulse/internal/domain/auth"
	"workpulse/internal/platform/metrics"
)

type Service struct {
	Store    StoreAPI
	Metrics  *metrics.Collector
	Location *time.Location
	Now      func() time.Time
}

func NewService(store StoreAPI, collector *metrics.Collector, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{Store: store, Metrics: collector, Location: loc, Now: time.Now}
}

func (s *Service) ListUsers(ctx context.Context, filter UserFilter, limit, offset int) ([]User, int, error) {
	return s.Store.ListUsers(ctx, filter, limit, offset)
}

func (s *Service) Activate(ctx context.Context, id string) (User, error) {
	return s.Store.SetActive(ctx, id, true)
}

// Deactivate blocks sign-in and revokes the user's sessions.
func (s *Service) Deactivate(ctx context.Context, actor auth.UserContext, id string) (User, error) {
	if actor.UserID == id {
		return User{}, ErrSelfDeactivate
	}
	return s.Store.SetActive(ctx, id, false)
}

func (s *Service) ChangeRole(ctx context.Context, actor auth.UserContext, id, role string) (User, error) {
	if !auth.ValidRole(role) {
		return User{}, ErrInvalidRole
	}
	if actor.UserID == id {
		return User{}, ErrOwnRole
	}
	return s.Store.SetRole(ctx, id, role)
}

func (s *Service) Stats(ctx context.Context) (SystemStats, error) {
	now := s.Now()
	local := now.In(s.Location)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	stats, err := s.Store.Stats(ctx, today)
	if err != nil {
		return SystemStats{}, err
	}
	stats.GeneratedAt = now.UTC()
	return stats, nil
}

func (s *Service) MetricsSnapshot() metrics.Snapshot {
	if s.Metrics == nil {
		return metrics.New().Snapshot()
	}
	return s.Metrics.Snapshot()
}
