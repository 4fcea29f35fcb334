package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service applies the entry state machine on top of a Repository.
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

// Request describes one (campaign, lead) pair to enqueue.
type Request struct {
	CampaignID  string
	LeadID      string
	PhoneNumber string
	Priority    int
	MaxAttempts int
}

// Enqueue builds pending entries scheduled at now and inserts those without a live slot.
func (s *Service) Enqueue(ctx context.Context, tenantID string, reqs []Request) (int, error) {
	if len(reqs) == 0 {
		return 0, nil
	}
	now := s.clock().UTC()
	entries := make([]Entry, 0, len(reqs))
	for _, r := range reqs {
		entries = append(entries, Entry{
			ID:          uuid.NewString(),
			TenantID:    tenantID,
			CampaignID:  r.CampaignID,
			LeadID:      r.LeadID,
			PhoneNumber: r.PhoneNumber,
			Status:      StatusPending,
			MaxAttempts: r.MaxAttempts,
			Priority:    r.Priority,
			ScheduledAt: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return s.repo.EnqueueIfAbsent(ctx, entries)
}

// LiveKeys returns the (campaign, lead) keys that currently hold a live entry.
func (s *Service) LiveKeys(ctx context.Context, tenantID string) (map[string]struct{}, error) {
	live, err := s.repo.ListLive(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(live))
	for _, e := range live {
		out[Key(e.CampaignID, e.LeadID)] = struct{}{}
	}
	return out, nil
}

func (s *Service) Pending(ctx context.Context, tenantID string, campaignIDs []string, limit int) ([]Entry, error) {
	return s.repo.ListPending(ctx, tenantID, campaignIDs, limit)
}

// Move transitions an entry after checking the state machine.
func (s *Service) Move(ctx context.Context, tenantID, id string, from, to Status, lastErr string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return s.repo.Transition(ctx, tenantID, id, from, to, lastErr, s.clock().UTC())
}

// AttemptCounts reports how many dispatch tries each (campaign, lead) has used.
func (s *Service) AttemptCounts(ctx context.Context, tenantID string, campaignIDs []string) (map[string]int, error) {
	return s.repo.AttemptCounts(ctx, tenantID, campaignIDs)
}

func (s *Service) Stats(ctx context.Context, tenantID string) (Stats, error) {
	return s.repo.Stats(ctx, tenantID)
}
