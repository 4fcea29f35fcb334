package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu    sync.Mutex
	calls map[string]LogEntry
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{calls: map[string]LogEntry{}} }

func (r *MemoryRepo) Create(ctx context.Context, c LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[c.ID] = c
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, tenantID, id string) (LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok || c.TenantID != tenantID {
		return LogEntry{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) FindByVendorCallID(ctx context.Context, vendorCallID string) (LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if vendorCallID == "" {
		return LogEntry{}, ErrNotFound
	}
	for _, c := range r.calls {
		if c.VendorCallID == vendorCallID {
			return c, nil
		}
	}
	return LogEntry{}, ErrNotFound
}

func (r *MemoryRepo) Update(ctx context.Context, c LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.calls[c.ID]
	if !ok || cur.TenantID != c.TenantID {
		return ErrNotFound
	}
	r.calls[c.ID] = c
	return nil
}

func (r *MemoryRepo) CloseStuck(ctx context.Context, tenantID string, olderThan, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, c := range r.calls {
		if c.TenantID != tenantID || !c.Status.Open() || !c.CreatedAt.Before(olderThan) {
			continue
		}
		ended := now
		c.Status = StatusNoAnswer
		c.EndedAt = &ended
		c.UpdatedAt = now
		r.calls[id] = c
		n++
	}
	return n, nil
}

func (r *MemoryRepo) List(ctx context.Context, tenantID string, rg Range) ([]LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []LogEntry
	for _, c := range r.calls {
		if c.TenantID != tenantID || !rg.Contains(c.CreatedAt) {
			continue
		}
		if rg.CampaignID != "" && c.CampaignID != rg.CampaignID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// All returns every stored call ordered by creation time.
func (r *MemoryRepo) All() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogEntry, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
