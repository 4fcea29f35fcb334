package leads

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("leads: not found")
	ErrInvalidArgument = errors.New("leads: invalid argument")
)

// Repository is the persistence contract for leads. Every call is tenant-scoped.
type Repository interface {
	Create(ctx context.Context, l Lead) error
	Get(ctx context.Context, tenantID, id string) (Lead, error)
	// GetMany returns the leads found among ids, keyed by id. Missing ids are absent.
	GetMany(ctx context.Context, tenantID string, ids []string) (map[string]Lead, error)
	List(ctx context.Context, tenantID string, f Filter) ([]Lead, error)
	Update(ctx context.Context, l Lead) error
	// FindByPhone returns the tenant's most recently updated lead with phone.
	FindByPhone(ctx context.Context, tenantID, phone string) (Lead, error)
}
