package calls

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service records call lifecycle changes.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) Repo() Repository { return s.repo }

// Open creates a log entry in initiated status, stamping ids and timestamps.
func (s *Service) Open(ctx context.Context, c LogEntry) (LogEntry, error) {
	now := s.clock().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusInitiated
	}
	if c.Direction == "" {
		c.Direction = DirectionOutbound
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.repo.Create(ctx, c); err != nil {
		return LogEntry{}, err
	}
	return c, nil
}

// Advance moves c to status if the lifecycle allows it, stamping started/ended times.
// It reports whether anything changed; fields on c set by the caller are saved either way.
func (s *Service) Advance(ctx context.Context, c LogEntry, to Status, at time.Time) (LogEntry, bool, error) {
	at = at.UTC()
	moved := CanAdvance(c.Status, to)
	if moved {
		c.Status = to
		if to == StatusInProgress && c.StartedAt == nil {
			c.StartedAt = &at
		}
		if !to.Open() && c.EndedAt == nil {
			c.EndedAt = &at
		}
	}
	c.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return LogEntry{}, false, err
	}
	return c, moved, nil
}

// CloseStuck forces calls left open longer than after to no_answer.
func (s *Service) CloseStuck(ctx context.Context, tenantID string, after time.Duration) (int, error) {
	now := s.clock().UTC()
	return s.repo.CloseStuck(ctx, tenantID, now.Add(-after), now)
}

func (s *Service) List(ctx context.Context, tenantID string, r Range) ([]LogEntry, error) {
	return s.repo.List(ctx, tenantID, r)
}
