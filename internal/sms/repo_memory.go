package sms

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository useful for tests.
type MemoryRepo struct {
	mu       sync.Mutex
	messages map[string]Message
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{messages: map[string]Message{}} }

func (r *MemoryRepo) Create(ctx context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[m.ID] = m
	return nil
}

func (r *MemoryRepo) FindByVendorID(ctx context.Context, tenantID, vendorMessageID string) (Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.TenantID == tenantID && vendorMessageID != "" && m.VendorMessageID == vendorMessageID {
			return m, nil
		}
	}
	return Message{}, ErrNotFound
}

func (r *MemoryRepo) Update(ctx context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.messages[m.ID]
	if !ok || cur.TenantID != m.TenantID {
		return ErrNotFound
	}
	r.messages[m.ID] = m
	return nil
}

func (r *MemoryRepo) ListForLead(ctx context.Context, tenantID, leadID string) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.messages {
		if m.TenantID == tenantID && m.LeadID == leadID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Messages returns a copy of every stored message.
func (r *MemoryRepo) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, 0, len(r.messages))
	for _, m := range r.messages {
		out = append(out, m)
	}
	return out
}
