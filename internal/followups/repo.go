package followups

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("followups: not found")
	ErrInvalidArgument = errors.New("followups: invalid argument")
	// ErrNotPending means the follow-up already left pending.
	ErrNotPending = errors.New("followups: follow-up is not pending")
)

// Repository is the persistence contract for scheduled follow-ups.
type Repository interface {
	Create(ctx context.Context, f FollowUp) error
	Get(ctx context.Context, tenantID, id string) (FollowUp, error)
	// Due returns pending rows with scheduled_at <= now ordered by scheduled_at asc.
	Due(ctx context.Context, tenantID string, now time.Time, limit int) ([]FollowUp, error)
	// Finish moves a pending row to status. It returns ErrNotPending if the row already left pending.
	Finish(ctx context.Context, tenantID, id string, status Status, lastErr string, at time.Time) error
	// CancelPendingForLead cancels every pending row of a lead and returns how many changed.
	CancelPendingForLead(ctx context.Context, tenantID, leadID string, at time.Time) (int, error)
	ListForLead(ctx context.Context, tenantID, leadID string) ([]FollowUp, error)
}
