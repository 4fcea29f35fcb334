package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

var fixedNow = time.Unix(1700000000, 0).UTC()

func newTestService() (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	return NewService(repo).WithClock(func() time.Time { return fixedNow }), repo
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]Status{
		{StatusPending, StatusCalling},
		{StatusPending, StatusFailed},
		{StatusCalling, StatusCompleted},
		{StatusCalling, StatusFailed},
	}
	for _, p := range allowed {
		if !CanTransition(p[0], p[1]) {
			t.Fatalf("expected %s -> %s allowed", p[0], p[1])
		}
	}
	denied := [][2]Status{
		{StatusPending, StatusCompleted},
		{StatusCompleted, StatusPending},
		{StatusFailed, StatusCalling},
		{StatusCalling, StatusPending},
	}
	for _, p := range denied {
		if CanTransition(p[0], p[1]) {
			t.Fatalf("expected %s -> %s denied", p[0], p[1])
		}
	}
}

func TestEnqueue_OneLiveEntryPerPair(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	n, err := svc.Enqueue(ctx, "t1", []Request{
		{CampaignID: "c1", LeadID: "l1"},
		{CampaignID: "c1", LeadID: "l1"},
		{CampaignID: "c2", LeadID: "l1"},
	})
	if err != nil || n != 2 {
		t.Fatalf("expected 2 inserted, got %d (%v)", n, err)
	}
	n, _ = svc.Enqueue(ctx, "t1", []Request{{CampaignID: "c1", LeadID: "l1"}})
	if n != 0 {
		t.Fatalf("expected duplicate to be skipped, got %d", n)
	}

	// Once the live entry finishes, the pair may be queued again.
	first := repo.Entries()[0]
	if err := svc.Move(ctx, "t1", first.ID, StatusPending, StatusFailed, "no agent"); err != nil {
		t.Fatalf("move: %v", err)
	}
	n, _ = svc.Enqueue(ctx, "t1", []Request{{CampaignID: "c1", LeadID: "l1"}})
	if n != 1 {
		t.Fatalf("expected requeue after terminal status, got %d", n)
	}
}

func TestPending_OrderedByPriorityThenFIFO(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	_, _ = repo.EnqueueIfAbsent(ctx, []Entry{
		{ID: "low", TenantID: "t1", CampaignID: "c1", LeadID: "a", Status: StatusPending, Priority: 1, ScheduledAt: fixedNow},
		{ID: "high-late", TenantID: "t1", CampaignID: "c1", LeadID: "b", Status: StatusPending, Priority: 5, ScheduledAt: fixedNow.Add(time.Minute)},
		{ID: "high-early", TenantID: "t1", CampaignID: "c1", LeadID: "c", Status: StatusPending, Priority: 5, ScheduledAt: fixedNow},
		{ID: "other-campaign", TenantID: "t1", CampaignID: "c9", LeadID: "d", Status: StatusPending, Priority: 5, ScheduledAt: fixedNow},
	})

	got, err := repo.ListPending(ctx, "t1", []string{"c1"}, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "high-early" || got[1].ID != "high-late" {
		t.Fatalf("unexpected order %+v", got)
	}
}

func TestMove_CountsAttemptsAndRejectsStale(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	_, _ = svc.Enqueue(ctx, "t1", []Request{{CampaignID: "c1", LeadID: "l1"}})
	id := repo.Entries()[0].ID

	if err := svc.Move(ctx, "t1", id, StatusPending, StatusCompleted, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := svc.Move(ctx, "t1", id, StatusPending, StatusCalling, ""); err != nil {
		t.Fatalf("pending -> calling: %v", err)
	}
	if err := svc.Move(ctx, "t1", id, StatusPending, StatusCalling, ""); !errors.Is(err, ErrStaleTransition) {
		t.Fatalf("expected ErrStaleTransition, got %v", err)
	}
	if err := svc.Move(ctx, "t1", id, StatusCalling, StatusCompleted, ""); err != nil {
		t.Fatalf("calling -> completed: %v", err)
	}
	e := repo.Entries()[0]
	if e.Attempts != 1 || e.Status != StatusCompleted {
		t.Fatalf("unexpected entry %+v", e)
	}

	stats, _ := svc.Stats(ctx, "t1")
	if stats.Completed != 1 || stats.Pending != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestAttemptCounts_SumsAcrossEntries(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := svc.Enqueue(ctx, "t1", []Request{{CampaignID: "c1", LeadID: "l1"}}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		entries := repo.Entries()
		id := entries[len(entries)-1].ID
		if err := svc.Move(ctx, "t1", id, StatusPending, StatusFailed, "no answer"); err != nil {
			t.Fatalf("fail: %v", err)
		}
	}
	_, _ = svc.Enqueue(ctx, "t1", []Request{{CampaignID: "c1", LeadID: "l2"}, {CampaignID: "c2", LeadID: "l1"}})

	counts, err := svc.AttemptCounts(ctx, "t1", []string{"c1"})
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if len(counts) != 1 || counts[Key("c1", "l1")] != 2 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}
