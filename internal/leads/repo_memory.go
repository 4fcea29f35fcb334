package leads

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu    sync.Mutex
	leads map[string]Lead
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{leads: map[string]Lead{}} }

func (r *MemoryRepo) Create(ctx context.Context, l Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[l.ID] = l
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, tenantID, id string) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok || l.TenantID != tenantID {
		return Lead{}, ErrNotFound
	}
	return l, nil
}

func (r *MemoryRepo) GetMany(ctx context.Context, tenantID string, ids []string) (map[string]Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Lead, len(ids))
	for _, id := range ids {
		if l, ok := r.leads[id]; ok && l.TenantID == tenantID {
			out[id] = l
		}
	}
	return out, nil
}

func (r *MemoryRepo) List(ctx context.Context, tenantID string, f Filter) ([]Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Lead
	for _, l := range r.leads {
		if l.TenantID != tenantID {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.CampaignID != "" && l.CampaignID != f.CampaignID {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, l Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.leads[l.ID]
	if !ok || cur.TenantID != l.TenantID {
		return ErrNotFound
	}
	r.leads[l.ID] = l
	return nil
}

func (r *MemoryRepo) FindByPhone(ctx context.Context, tenantID, phone string) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		best  Lead
		found bool
	)
	for _, l := range r.leads {
		if l.TenantID != tenantID || l.PhoneNumber != phone {
			continue
		}
		if !found || l.UpdatedAt.After(best.UpdatedAt) {
			best, found = l, true
		}
	}
	if !found {
		return Lead{}, ErrNotFound
	}
	return best, nil
}
