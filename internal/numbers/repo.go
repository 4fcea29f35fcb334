package numbers

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("numbers: not found")
	ErrInvalidArgument = errors.New("numbers: invalid argument")
	ErrConflict        = errors.New("numbers: number already exists")
)

// Repository is the persistence contract for the phone number pool.
type Repository interface {
	Create(ctx context.Context, n PhoneNumber) error
	Get(ctx context.Context, tenantID, id string) (PhoneNumber, error)
	List(ctx context.Context, tenantID string) ([]PhoneNumber, error)
	// ListEligible returns active numbers whose quarantine is null or lapsed at now.
	ListEligible(ctx context.Context, tenantID string, now time.Time) ([]PhoneNumber, error)
	// RecordUse increments daily_calls and sets last_used_at in one row update.
	RecordUse(ctx context.Context, tenantID, id string, at time.Time) error
	Update(ctx context.Context, n PhoneNumber) error
	// RestoreExpired reactivates quarantined numbers whose quarantine lapsed by now.
	RestoreExpired(ctx context.Context, tenantID string, now time.Time) (int, error)
	// FindByNumber looks a number up across tenants; webhooks use it to find the owner.
	FindByNumber(ctx context.Context, number string) (PhoneNumber, error)
}
