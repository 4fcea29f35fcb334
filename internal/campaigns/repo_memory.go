package campaigns

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu         sync.Mutex
	campaigns  map[string]Campaign
	members    []CampaignLead
	workflows  map[string]Workflow
	progress   []WorkflowProgress
	failCreate map[string]error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		campaigns:  map[string]Campaign{},
		workflows:  map[string]Workflow{},
		failCreate: map[string]error{},
	}
}

// FailProgressFor makes CreateProgress return err for leadID.
func (r *MemoryRepo) FailProgressFor(leadID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failCreate[leadID] = err
}

func (r *MemoryRepo) CreateCampaign(ctx context.Context, c Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaigns[c.ID] = c
	return nil
}

func (r *MemoryRepo) GetCampaign(ctx context.Context, tenantID, id string) (Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || c.TenantID != tenantID {
		return Campaign{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) ListCampaigns(ctx context.Context, tenantID string) ([]Campaign, error) {
	return r.list(tenantID, ""), nil
}

func (r *MemoryRepo) ListActive(ctx context.Context, tenantID string) ([]Campaign, error) {
	return r.list(tenantID, StatusActive), nil
}

func (r *MemoryRepo) list(tenantID string, status Status) []Campaign {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Campaign
	for _, c := range r.campaigns {
		if c.TenantID != tenantID || (status != "" && c.Status != status) {
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
	return out
}

func (r *MemoryRepo) UpdateCampaign(ctx context.Context, c Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.campaigns[c.ID]
	if !ok || cur.TenantID != c.TenantID {
		return ErrNotFound
	}
	r.campaigns[c.ID] = c
	return nil
}

func (r *MemoryRepo) AddLeads(ctx context.Context, tenantID, campaignID string, leadIDs []string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := map[string]struct{}{}
	for _, m := range r.members {
		if m.TenantID == tenantID && m.CampaignID == campaignID {
			existing[m.LeadID] = struct{}{}
		}
	}
	n := 0
	for _, id := range leadIDs {
		if _, ok := existing[id]; ok {
			continue
		}
		existing[id] = struct{}{}
		r.members = append(r.members, CampaignLead{TenantID: tenantID, CampaignID: campaignID, LeadID: id, AddedAt: at})
		n++
	}
	return n, nil
}

func (r *MemoryRepo) ListCampaignLeads(ctx context.Context, tenantID string, campaignIDs []string) ([]CampaignLead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]struct{}, len(campaignIDs))
	for _, id := range campaignIDs {
		want[id] = struct{}{}
	}
	var out []CampaignLead
	for _, m := range r.members {
		if m.TenantID != tenantID {
			continue
		}
		if _, ok := want[m.CampaignID]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MemoryRepo) CreateWorkflow(ctx context.Context, w Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[w.ID] = w
	return nil
}

func (r *MemoryRepo) GetWorkflow(ctx context.Context, tenantID, id string) (Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[id]
	if !ok || w.TenantID != tenantID {
		return Workflow{}, ErrNotFound
	}
	return w, nil
}

func (r *MemoryRepo) CreateProgress(ctx context.Context, p WorkflowProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failCreate[p.LeadID]; err != nil {
		return err
	}
	r.progress = append(r.progress, p)
	return nil
}

func (r *MemoryRepo) ListLiveProgress(ctx context.Context, tenantID string) ([]WorkflowProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []WorkflowProgress
	for _, p := range r.progress {
		if p.TenantID == tenantID && p.Status.Live() {
			out = append(out, p)
		}
	}
	return out, nil
}

// Progress returns a copy of every stored progress row.
func (r *MemoryRepo) Progress() []WorkflowProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]WorkflowProgress, len(r.progress))
	copy(out, r.progress)
	return out
}
