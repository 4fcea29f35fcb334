package numbers

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu      sync.Mutex
	numbers map[string]PhoneNumber
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{numbers: map[string]PhoneNumber{}} }

func (r *MemoryRepo) Create(ctx context.Context, n PhoneNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.numbers {
		if cur.Number == n.Number {
			return ErrConflict
		}
	}
	r.numbers[n.ID] = n
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, tenantID, id string) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.numbers[id]
	if !ok || n.TenantID != tenantID {
		return PhoneNumber{}, ErrNotFound
	}
	return n, nil
}

func (r *MemoryRepo) List(ctx context.Context, tenantID string) ([]PhoneNumber, error) {
	return r.filter(tenantID, func(PhoneNumber) bool { return true }), nil
}

func (r *MemoryRepo) ListEligible(ctx context.Context, tenantID string, now time.Time) ([]PhoneNumber, error) {
	return r.filter(tenantID, func(n PhoneNumber) bool { return n.Eligible(now) }), nil
}

func (r *MemoryRepo) filter(tenantID string, keep func(PhoneNumber) bool) []PhoneNumber {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PhoneNumber
	for _, n := range r.numbers {
		if n.TenantID == tenantID && keep(n) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *MemoryRepo) RecordUse(ctx context.Context, tenantID, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.numbers[id]
	if !ok || n.TenantID != tenantID {
		return ErrNotFound
	}
	n.DailyCalls++
	n.LastUsedAt = &at
	n.UpdatedAt = at
	r.numbers[id] = n
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, n PhoneNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.numbers[n.ID]
	if !ok || cur.TenantID != n.TenantID {
		return ErrNotFound
	}
	r.numbers[n.ID] = n
	return nil
}

func (r *MemoryRepo) RestoreExpired(ctx context.Context, tenantID string, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	restored := 0
	for id, n := range r.numbers {
		if n.TenantID != tenantID || n.Status != StatusQuarantined {
			continue
		}
		if n.QuarantineUntil == nil || n.QuarantineUntil.After(now) {
			continue
		}
		n.Status = StatusActive
		n.QuarantineUntil = nil
		n.UpdatedAt = now
		r.numbers[id] = n
		restored++
	}
	return restored, nil
}

func (r *MemoryRepo) FindByNumber(ctx context.Context, number string) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.numbers {
		if n.Number == number {
			return n, nil
		}
	}
	return PhoneNumber{}, ErrNotFound
}
