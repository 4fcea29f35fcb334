package campaigns

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"
)

var fixedNow = time.Unix(1700000000, 0).UTC()

func newTestService() *Service {
	return NewService(NewMemoryRepo()).WithClock(func() time.Time { return fixedNow })
}

func TestCreate_Defaults(t *testing.T) {
	svc := newTestService()
	c, err := svc.Create(context.Background(), "t1", Campaign{Name: "Spring"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Status != StatusDraft || c.CallsPerMinute != DefaultCallsPerMinute || c.MaxAttempts != DefaultMaxAttempts {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestCreate_UnknownWorkflow(t *testing.T) {
	svc := newTestService()
	_, err := svc.Create(context.Background(), "t1", Campaign{Name: "x", WorkflowID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetStatus_Transitions(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	c, _ := svc.Create(ctx, "t1", Campaign{Name: "x"})

	if _, err := svc.SetStatus(ctx, "t1", c.ID, StatusPaused); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("draft -> paused should be rejected, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, "t1", c.ID, StatusActive); err != nil {
		t.Fatalf("activate: %v", err)
	}
	active, _ := svc.Repo().ListActive(ctx, "t1")
	if len(active) != 1 {
		t.Fatalf("expected one active campaign, got %d", len(active))
	}
	if _, err := svc.SetStatus(ctx, "t1", c.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.SetStatus(ctx, "t1", c.ID, StatusActive); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completed is terminal, got %v", err)
	}
}

func TestAddLeads_IgnoresExistingMembers(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	c, _ := svc.Create(ctx, "t1", Campaign{Name: "x"})

	n, err := svc.AddLeads(ctx, "t1", c.ID, []string{"l1", "l2"})
	if err != nil || n != 2 {
		t.Fatalf("expected 2 inserted, got %d (%v)", n, err)
	}
	n, _ = svc.AddLeads(ctx, "t1", c.ID, []string{"l2", "l3"})
	if n != 1 {
		t.Fatalf("expected 1 inserted, got %d", n)
	}
	members, _ := svc.Members(ctx, "t1", c.ID)
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(members))
	}
}

func TestWorkflow_FirstStepOnly(t *testing.T) {
	callFirst := Workflow{Steps: []Step{
		{Order: 2, Type: StepSMS},
		{Order: 1, Type: StepCall},
		{Order: 3, Type: StepSMS},
	}}
	if callFirst.StartsWithSMS() {
		t.Fatalf("workflow whose first step is a call must be call-first")
	}
	smsFirst := Workflow{Steps: []Step{{Order: 1, Type: StepSMS}, {Order: 2, Type: StepCall}}}
	if !smsFirst.StartsWithSMS() {
		t.Fatalf("expected sms-first")
	}
	if (Workflow{}).StartsWithSMS() {
		t.Fatalf("empty workflow is not sms-first")
	}
}

func TestCreateWorkflow_SortsSteps(t *testing.T) {
	svc := newTestService()
	w, err := svc.CreateWorkflow(context.Background(), "t1", Workflow{Name: "w", Steps: []Step{
		{Order: 2, Type: StepCall},
		{Order: 1, Type: StepSMS},
	}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if w.Steps[0].Type != StepSMS {
		t.Fatalf("expected steps sorted by order, got %+v", w.Steps)
	}
}

func TestCallingHours(t *testing.T) {
	// 1700000000 is 22:13 UTC.
	if !(CallingHours{}).Contains(fixedNow) {
		t.Fatalf("empty window means always open")
	}
	if (CallingHours{StartHour: 9, EndHour: 17}).Contains(fixedNow) {
		t.Fatalf("22:13 is outside 9-17")
	}
	if !(CallingHours{StartHour: 20, EndHour: 2}).Contains(fixedNow) {
		t.Fatalf("22:13 is inside the wrapped 20-2 window")
	}
	// 22:13 UTC is 07:13 in Tokyo.
	if (CallingHours{StartHour: 9, EndHour: 17, Timezone: "Asia/Tokyo"}).Contains(fixedNow) {
		t.Fatalf("07:13 Tokyo is outside 9-17")
	}
	if !(CallingHours{StartHour: 6, EndHour: 9, Timezone: "Asia/Tokyo"}).Contains(fixedNow) {
		t.Fatalf("07:13 Tokyo is inside 6-9")
	}
}
