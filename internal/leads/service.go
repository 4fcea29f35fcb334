package leads

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service owns the lead status lifecycle.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// WithClock overrides the time source; tests use a fixed clock.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) Repo() Repository { return s.repo }

// Create validates and stores a new lead, defaulting status to new and priority to 3.
func (s *Service) Create(ctx context.Context, tenantID string, l Lead) (Lead, error) {
	if tenantID == "" {
		return Lead{}, fmt.Errorf("%w: tenant_id required", ErrInvalidArgument)
	}
	l.PhoneNumber = strings.TrimSpace(l.PhoneNumber)
	if l.Status == "" {
		l.Status = StatusNew
	}
	if !l.Status.Valid() {
		return Lead{}, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, l.Status)
	}
	if l.Priority == 0 {
		l.Priority = DefaultPriority
	}
	if l.Priority < MinPriority || l.Priority > MaxPriority {
		return Lead{}, fmt.Errorf("%w: priority must be %d..%d", ErrInvalidArgument, MinPriority, MaxPriority)
	}
	if l.Status == StatusDoNotCall {
		l.DoNotCall = true
	}

	now := s.clock().UTC()
	l.ID = uuid.NewString()
	l.TenantID = tenantID
	l.CreatedAt = now
	l.UpdatedAt = now
	if err := s.repo.Create(ctx, l); err != nil {
		return Lead{}, err
	}
	return l, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (Lead, error) {
	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID string, f Filter) ([]Lead, error) {
	return s.repo.List(ctx, tenantID, f)
}

// SetStatus moves a lead to status. Setting do_not_call also raises the flag.
func (s *Service) SetStatus(ctx context.Context, tenantID, id string, status Status) (Lead, error) {
	if !status.Valid() {
		return Lead{}, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, status)
	}
	return s.mutate(ctx, tenantID, id, func(l *Lead, _ time.Time) {
		l.Status = status
		if status == StatusDoNotCall {
			l.DoNotCall = true
		}
	})
}

// MarkContacted sets status and last_contacted_at together.
func (s *Service) MarkContacted(ctx context.Context, tenantID, id string, status Status, at time.Time) (Lead, error) {
	if !status.Valid() {
		return Lead{}, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, status)
	}
	at = at.UTC()
	return s.mutate(ctx, tenantID, id, func(l *Lead, _ time.Time) {
		l.Status = status
		l.LastContactedAt = &at
	})
}

// RecordContact stamps last_contacted_at and promotes new leads to contacted.
// Leads further along keep their status.
func (s *Service) RecordContact(ctx context.Context, tenantID, id string, at time.Time) (Lead, error) {
	at = at.UTC()
	return s.mutate(ctx, tenantID, id, func(l *Lead, _ time.Time) {
		l.LastContactedAt = &at
		if l.Status == StatusNew {
			l.Status = StatusContacted
		}
	})
}

func (s *Service) SetNextCallback(ctx context.Context, tenantID, id string, at time.Time) (Lead, error) {
	at = at.UTC()
	return s.mutate(ctx, tenantID, id, func(l *Lead, _ time.Time) {
		l.NextCallbackAt = &at
	})
}

// MarkDoNotCall permanently removes the lead from dialing.
func (s *Service) MarkDoNotCall(ctx context.Context, tenantID, id string) (Lead, error) {
	return s.mutate(ctx, tenantID, id, func(l *Lead, _ time.Time) {
		l.DoNotCall = true
		l.Status = StatusDoNotCall
		l.NextCallbackAt = nil
	})
}

func (s *Service) mutate(ctx context.Context, tenantID, id string, fn func(l *Lead, now time.Time)) (Lead, error) {
	l, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return Lead{}, err
	}
	now := s.clock().UTC()
	fn(&l, now)
	l.UpdatedAt = now
	if err := s.repo.Update(ctx, l); err != nil {
		return Lead{}, err
	}
	return l, nil
}
