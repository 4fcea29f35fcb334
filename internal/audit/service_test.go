package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"dialer-platform/internal/auth"
)

type failingRepo struct{}

func (failingRepo) Append(ctx context.Context, e Event) error { return errors.New("db down") }

func TestService_AppendRequiresTenantAndType(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.Append(context.Background(), Event{Type: EventTypeNumberQuarantined}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if err := svc.Append(context.Background(), Event{TenantID: "t"}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestService_FillsActorFromContext(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	svc := NewService(repo).WithClock(func() time.Time { return now })

	ctx := auth.WithIdentity(context.Background(), "u-1", "t-1", "manager")
	svc.Record(ctx, Event{TenantID: "t-1", Type: EventTypeDispositionApplied, LeadID: "l-1", Metadata: Metadata(map[string]string{"disposition": "Interested"})})

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	if evs[0].ActorUserID != "u-1" || evs[0].ActorRole != "manager" {
		t.Fatalf("expected actor from context, got %+v", evs[0])
	}
	if !evs[0].CreatedAt.Equal(now) || evs[0].ID == "" {
		t.Fatalf("expected id and timestamp filled, got %+v", evs[0])
	}
	if evs[0].Metadata != `{"disposition":"Interested"}` {
		t.Fatalf("unexpected metadata %q", evs[0].Metadata)
	}
}

func TestService_RecordSwallowsFailures(t *testing.T) {
	NewService(failingRepo{}).Record(context.Background(), Event{TenantID: "t", Type: EventTypeStuckCallsCleaned})
	var nilSvc *Service
	nilSvc.Record(context.Background(), Event{TenantID: "t", Type: EventTypeStuckCallsCleaned})
}

func TestMemoryRepo_AppendOnlyAndTenantScoped(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	if err := repo.Append(ctx, Event{ID: "e1", TenantID: "t1", Type: EventTypeLeadOptedOut}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(ctx, Event{ID: "e1", TenantID: "t1", Type: EventTypeLeadOptedOut}); err == nil {
		t.Fatalf("expected duplicate id to be refused")
	}
	_ = repo.Append(ctx, Event{ID: "e2", TenantID: "t2", Type: EventTypeNumberReleased})
	if got := repo.ForTenant("t1"); len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("unexpected tenant events %+v", got)
	}
	if len(repo.Events()) != 2 {
		t.Fatalf("expected 2 events overall")
	}
}
