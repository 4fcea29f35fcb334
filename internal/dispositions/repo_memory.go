package dispositions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory Repository useful for tests.
type MemoryRepo struct {
	mu        sync.Mutex
	rules     map[string]Rule // tenant|name
	sequences map[string]Sequence
	stages    map[string]Stage        // tenant|name
	positions map[string]LeadPosition // tenant|lead
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		rules:     map[string]Rule{},
		sequences: map[string]Sequence{},
		stages:    map[string]Stage{},
		positions: map[string]LeadPosition{},
	}
}

func key(tenantID, s string) string { return tenantID + "|" + s }

func (r *MemoryRepo) CreateRule(ctx context.Context, rule Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(rule.TenantID, rule.Name)
	if _, ok := r.rules[k]; ok {
		return ErrConflict
	}
	r.rules[k] = rule
	return nil
}

func (r *MemoryRepo) GetRuleByName(ctx context.Context, tenantID, name string) (Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[key(tenantID, name)]
	if !ok {
		return Rule{}, ErrRuleNotFound
	}
	return rule, nil
}

func (r *MemoryRepo) ListRules(ctx context.Context, tenantID string) ([]Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Rule
	for _, rule := range r.rules {
		if rule.TenantID == tenantID {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) CreateSequence(ctx context.Context, s Sequence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.sequences {
		if cur.TenantID == s.TenantID && cur.Name == s.Name {
			return ErrConflict
		}
	}
	r.sequences[s.ID] = s
	return nil
}

func (r *MemoryRepo) GetSequence(ctx context.Context, tenantID, id string) (Sequence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sequences[id]
	if !ok || s.TenantID != tenantID {
		return Sequence{}, ErrSequenceNotFound
	}
	return s, nil
}

func (r *MemoryRepo) FindSequenceByName(ctx context.Context, tenantID, name string) (Sequence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sequences {
		if s.TenantID == tenantID && s.Name == name {
			return s, nil
		}
	}
	return Sequence{}, ErrSequenceNotFound
}

func (r *MemoryRepo) FindOrCreateStage(ctx context.Context, tenantID, name string, at time.Time) (Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(tenantID, name)
	if s, ok := r.stages[k]; ok {
		return s, nil
	}
	pos := 0
	for _, s := range r.stages {
		if s.TenantID == tenantID && s.Position > pos {
			pos = s.Position
		}
	}
	s := Stage{ID: uuid.NewString(), TenantID: tenantID, Name: name, Position: pos + 1, CreatedAt: at}
	r.stages[k] = s
	return s, nil
}

func (r *MemoryRepo) UpsertLeadPosition(ctx context.Context, p LeadPosition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions[key(p.TenantID, p.LeadID)] = p
	return nil
}

func (r *MemoryRepo) GetLeadPosition(ctx context.Context, tenantID, leadID string) (LeadPosition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.positions[key(tenantID, leadID)]
	if !ok {
		return LeadPosition{}, ErrNotFound
	}
	return p, nil
}

// Positions returns every stored lead position.
func (r *MemoryRepo) Positions() []LeadPosition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LeadPosition, 0, len(r.positions))
	for _, p := range r.positions {
		out = append(out, p)
	}
	return out
}
