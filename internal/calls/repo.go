package calls

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("calls: not found")

// Repository is the persistence contract for call logs.
type Repository interface {
	Create(ctx context.Context, c LogEntry) error
	Get(ctx context.Context, tenantID, id string) (LogEntry, error)
	// FindByVendorCallID looks a call up across tenants; webhooks use it to find the owner.
	FindByVendorCallID(ctx context.Context, vendorCallID string) (LogEntry, error)
	Update(ctx context.Context, c LogEntry) error
	// CloseStuck forces open calls created before olderThan to no_answer with ended_at = now.
	CloseStuck(ctx context.Context, tenantID string, olderThan, now time.Time) (int, error)
	List(ctx context.Context, tenantID string, r Range) ([]LogEntry, error)
}
