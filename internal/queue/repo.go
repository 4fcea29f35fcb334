package queue

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("queue: entry not found")
	ErrInvalidTransition = errors.New("queue: invalid status transition")
	// ErrStaleTransition means the entry was no longer in the expected status.
	ErrStaleTransition = errors.New("queue: entry status changed concurrently")
)

// Repository is the persistence contract for the dialing queue.
type Repository interface {
	// EnqueueIfAbsent inserts entries whose (campaign, lead) has no live entry.
	// It returns the number actually inserted; skipped duplicates are not errors.
	EnqueueIfAbsent(ctx context.Context, entries []Entry) (int, error)
	ListLive(ctx context.Context, tenantID string) ([]Entry, error)
	// ListPending returns pending entries of the given campaigns ordered by
	// priority desc, scheduled_at asc, capped at limit.
	ListPending(ctx context.Context, tenantID string, campaignIDs []string, limit int) ([]Entry, error)
	// Transition moves id from -> to only if it is still in from.
	// Moving into completed or failed increments attempts.
	Transition(ctx context.Context, tenantID, id string, from, to Status, lastErr string, at time.Time) error
	Stats(ctx context.Context, tenantID string) (Stats, error)
	// AttemptCounts sums attempts per Key over every entry of the given campaigns.
	// Pairs that were never tried are absent.
	AttemptCounts(ctx context.Context, tenantID string, campaignIDs []string) (map[string]int, error)
}
