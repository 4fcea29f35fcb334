package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository useful for tests.
// It enforces the live-slot uniqueness the Postgres partial index provides.
type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) EnqueueIfAbsent(ctx context.Context, entries []Entry) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	live := map[string]struct{}{}
	for _, e := range r.entries {
		if e.Status.Live() {
			live[e.TenantID+"|"+Key(e.CampaignID, e.LeadID)] = struct{}{}
		}
	}
	n := 0
	for _, e := range entries {
		k := e.TenantID + "|" + Key(e.CampaignID, e.LeadID)
		if _, ok := live[k]; ok {
			continue
		}
		live[k] = struct{}{}
		r.entries = append(r.entries, e)
		n++
	}
	return n, nil
}

func (r *MemoryRepo) ListLive(ctx context.Context, tenantID string) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.Status.Live() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListPending(ctx context.Context, tenantID string, campaignIDs []string, limit int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]struct{}, len(campaignIDs))
	for _, id := range campaignIDs {
		want[id] = struct{}{}
	}
	var out []Entry
	for _, e := range r.entries {
		if e.TenantID != tenantID || e.Status != StatusPending {
			continue
		}
		if _, ok := want[e.CampaignID]; !ok {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Transition(ctx context.Context, tenantID, id string, from, to Status, lastErr string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.ID != id || e.TenantID != tenantID {
			continue
		}
		if e.Status != from {
			return fmt.Errorf("%w: %s is %s, expected %s", ErrStaleTransition, id, e.Status, from)
		}
		e.Status = to
		e.LastError = lastErr
		e.UpdatedAt = at
		if countsAttempt(to) {
			e.Attempts++
		}
		r.entries[i] = e
		return nil
	}
	return ErrNotFound
}

func (r *MemoryRepo) Stats(ctx context.Context, tenantID string) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s Stats
	for _, e := range r.entries {
		if e.TenantID == tenantID {
			s.add(e.Status, 1)
		}
	}
	return s, nil
}

func (r *MemoryRepo) AttemptCounts(ctx context.Context, tenantID string, campaignIDs []string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]struct{}, len(campaignIDs))
	for _, id := range campaignIDs {
		want[id] = struct{}{}
	}
	out := map[string]int{}
	for _, e := range r.entries {
		if e.TenantID != tenantID || e.Attempts == 0 {
			continue
		}
		if _, ok := want[e.CampaignID]; ok {
			out[Key(e.CampaignID, e.LeadID)] += e.Attempts
		}
	}
	return out, nil
}

// Entries returns a copy of every stored entry.
func (r *MemoryRepo) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
