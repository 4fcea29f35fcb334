package followups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dialer-platform/pkg/logger"

	"github.com/google/uuid"
)

// Performer carries out the side effect of a due follow-up.
type Performer interface {
	Perform(ctx context.Context, f FollowUp) error
}

// PerformerFunc adapts a function to Performer.
type PerformerFunc func(ctx context.Context, f FollowUp) error

func (fn PerformerFunc) Perform(ctx context.Context, f FollowUp) error { return fn(ctx, f) }

// Scheduler is a thin durable work queue of time-delayed lead actions.
// Retries beyond what the scheduling rule encoded are not attempted.
type Scheduler struct {
	repo      Repository
	performer Performer
	clock     func() time.Time
	dueLimit  int
}

func NewScheduler(repo Repository, performer Performer) *Scheduler {
	return &Scheduler{repo: repo, performer: performer, clock: time.Now, dueLimit: 100}
}

func (s *Scheduler) WithClock(clock func() time.Time) *Scheduler {
	s.clock = clock
	return s
}

// WithPerformer swaps the side-effect collaborator.
func (s *Scheduler) WithPerformer(p Performer) *Scheduler {
	s.performer = p
	return s
}

// Plan describes a follow-up to schedule.
type Plan struct {
	LeadID      string     `json:"lead_id"`
	CampaignID  string     `json:"campaign_id,omitempty"`
	ActionType  ActionType `json:"action_type"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	SequenceID  string     `json:"sequence_id,omitempty"`
	StepOrder   int        `json:"step_order,omitempty"`
	StepAction  string     `json:"step_action,omitempty"`
}

// Schedule persists a pending follow-up. It has no other side effects.
func (s *Scheduler) Schedule(ctx context.Context, tenantID string, in Plan) (FollowUp, error) {
	if tenantID == "" || in.LeadID == "" {
		return FollowUp{}, fmt.Errorf("%w: tenant_id and lead_id required", ErrInvalidArgument)
	}
	if !in.ActionType.Valid() {
		return FollowUp{}, fmt.Errorf("%w: unknown action_type %q", ErrInvalidArgument, in.ActionType)
	}
	if in.ScheduledAt.IsZero() {
		return FollowUp{}, fmt.Errorf("%w: scheduled_at required", ErrInvalidArgument)
	}
	now := s.clock().UTC()
	f := FollowUp{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		LeadID:      in.LeadID,
		CampaignID:  in.CampaignID,
		ActionType:  in.ActionType,
		SequenceID:  in.SequenceID,
		StepOrder:   in.StepOrder,
		StepAction:  in.StepAction,
		ScheduledAt: in.ScheduledAt.UTC(),
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return FollowUp{}, err
	}
	return f, nil
}

// DueNow returns pending follow-ups whose time has come, oldest first.
func (s *Scheduler) DueNow(ctx context.Context, tenantID string) ([]FollowUp, error) {
	return s.repo.Due(ctx, tenantID, s.clock().UTC(), s.dueLimit)
}

// Execute performs a pending follow-up and marks it completed, or failed with
// the performer's error. The performer's error is recorded, not returned.
func (s *Scheduler) Execute(ctx context.Context, tenantID, id string) (FollowUp, error) {
	f, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return FollowUp{}, err
	}
	if f.Status != StatusPending {
		return f, ErrNotPending
	}

	status, lastErr := StatusCompleted, ""
	if s.performer != nil {
		if perr := s.performer.Perform(ctx, f); perr != nil {
			status, lastErr = StatusFailed, perr.Error()
			logger.ForTenant(ctx, tenantID).Warn("follow-up failed", "follow_up_id", f.ID, "lead_id", f.LeadID, "err", perr)
		}
	}
	if err := s.repo.Finish(ctx, tenantID, id, status, lastErr, s.clock().UTC()); err != nil {
		return FollowUp{}, err
	}
	return s.repo.Get(ctx, tenantID, id)
}

// Cancel stops a pending follow-up from running.
func (s *Scheduler) Cancel(ctx context.Context, tenantID, id string) (FollowUp, error) {
	if err := s.repo.Finish(ctx, tenantID, id, StatusCancelled, "", s.clock().UTC()); err != nil {
		return FollowUp{}, err
	}
	return s.repo.Get(ctx, tenantID, id)
}

func (s *Scheduler) CancelPendingForLead(ctx context.Context, tenantID, leadID string) (int, error) {
	return s.repo.CancelPendingForLead(ctx, tenantID, leadID, s.clock().UTC())
}

func (s *Scheduler) ListForLead(ctx context.Context, tenantID, leadID string) ([]FollowUp, error) {
	return s.repo.ListForLead(ctx, tenantID, leadID)
}

// RunResult summarises one RunDue pass.
type RunResult struct {
	Due       int `json:"due"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// RunDue executes every due follow-up. A row taken by another executor is skipped.
func (s *Scheduler) RunDue(ctx context.Context, tenantID string) (RunResult, error) {
	due, err := s.DueNow(ctx, tenantID)
	if err != nil {
		return RunResult{}, err
	}
	res := RunResult{Due: len(due)}
	for _, f := range due {
		done, err := s.Execute(ctx, tenantID, f.ID)
		switch {
		case errors.Is(err, ErrNotPending):
			res.Skipped++
		case err != nil:
			res.Failed++
			logger.ForTenant(ctx, tenantID).Warn("follow-up execute failed", "follow_up_id", f.ID, "err", err)
		case done.Status == StatusCompleted:
			res.Completed++
		default:
			res.Failed++
		}
	}
	return res, nil
}
