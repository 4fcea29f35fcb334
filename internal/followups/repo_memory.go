package followups

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu   sync.Mutex
	rows []FollowUp
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Create(ctx context.Context, f FollowUp) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, f)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, tenantID, id string) (FollowUp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.rows {
		if f.ID == id && f.TenantID == tenantID {
			return f, nil
		}
	}
	return FollowUp{}, ErrNotFound
}

func (r *MemoryRepo) Due(ctx context.Context, tenantID string, now time.Time, limit int) ([]FollowUp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []FollowUp
	for _, f := range r.rows {
		if f.TenantID == tenantID && f.Status == StatusPending && !f.ScheduledAt.After(now) {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Finish(ctx context.Context, tenantID, id string, status Status, lastErr string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, f := range r.rows {
		if f.ID != id || f.TenantID != tenantID {
			continue
		}
		if f.Status != StatusPending {
			return ErrNotPending
		}
		f.Status = status
		f.LastError = lastErr
		f.UpdatedAt = at
		if status == StatusCompleted {
			done := at
			f.CompletedAt = &done
		}
		r.rows[i] = f
		return nil
	}
	return ErrNotFound
}

func (r *MemoryRepo) CancelPendingForLead(ctx context.Context, tenantID, leadID string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i, f := range r.rows {
		if f.TenantID == tenantID && f.LeadID == leadID && f.Status == StatusPending {
			f.Status = StatusCancelled
			f.UpdatedAt = at
			r.rows[i] = f
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) ListForLead(ctx context.Context, tenantID, leadID string) ([]FollowUp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []FollowUp
	for _, f := range r.rows {
		if f.TenantID == tenantID && f.LeadID == leadID {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

// All returns a copy of every stored row.
func (r *MemoryRepo) All() []FollowUp {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FollowUp, len(r.rows))
	copy(out, r.rows)
	return out
}
