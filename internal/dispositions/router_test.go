package dispositions

import (
	"context"
	"errors"
	"testing"
	"time"

	"dialer-platform/internal/audit"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/events"
	"dialer-platform/internal/followups"
	"dialer-platform/internal/leads"
)

var fixedNow = time.Unix(1700000000, 0).UTC()

func clock() time.Time { return fixedNow }

type fixture struct {
	router    *Router
	repo      *MemoryRepo
	leads     *leads.MemoryRepo
	calls     *calls.MemoryRepo
	followUps *followups.MemoryRepo
	audit     *audit.MemoryRepo
	events    *events.MemoryPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		repo:      NewMemoryRepo(),
		leads:     leads.NewMemoryRepo(),
		calls:     calls.NewMemoryRepo(),
		followUps: followups.NewMemoryRepo(),
		audit:     audit.NewMemoryRepo(),
		events:    events.NewMemoryPublisher(),
	}
	f.router = NewRouter(Deps{
		Repo:      f.repo,
		Leads:     leads.NewService(f.leads).WithClock(clock),
		Calls:     f.calls,
		FollowUps: followups.NewScheduler(f.followUps, nil).WithClock(clock),
		Audit:     audit.NewService(f.audit).WithClock(clock),
		Publisher: f.events,
		Topic:     "dispositions",
	}).WithClock(clock)

	ctx := context.Background()
	if _, err := f.router.SeedDefaults(ctx, "t1"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.leads.Create(ctx, leads.Lead{ID: "l1", TenantID: "t1", PhoneNumber: "+15551234567", Status: leads.StatusNew, CampaignID: "c1"}); err != nil {
		t.Fatalf("lead: %v", err)
	}
	return f
}

func TestSeedDefaults_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rules, _ := f.router.ListRules(ctx, "t1")
	if len(rules) != 12 {
		t.Fatalf("expected 12 seeded rules, got %d", len(rules))
	}
	res, err := f.router.SeedDefaults(ctx, "t1")
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if res.Rules != 0 || res.Sequences != 0 {
		t.Fatalf("expected nothing inserted on reseed, got %+v", res)
	}
	other, err := f.router.SeedDefaults(ctx, "t2")
	if err != nil || other.Rules != 12 || other.Sequences != 1 {
		t.Fatalf("expected a fresh tenant to get the full catalog, got %+v (%v)", other, err)
	}
}

func TestApply_UnknownDisposition(t *testing.T) {
	f := newFixture(t)
	_, err := f.router.Apply(context.Background(), "t1", Input{Disposition: "Maybe Later", LeadID: "l1"})
	if !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("expected ErrRuleNotFound, got %v", err)
	}
	l, _ := f.leads.Get(context.Background(), "t1", "l1")
	if l.Status != leads.StatusNew {
		t.Fatalf("lead must be untouched, got %s", l.Status)
	}
}

func TestApply_NotInterested(t *testing.T) {
	f := newFixture(t)
	out, err := f.router.Apply(context.Background(), "t1", Input{Disposition: "Not Interested", LeadID: "l1"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	l, _ := f.leads.Get(context.Background(), "t1", "l1")
	if l.Status != leads.StatusLost || out.LeadStatus != leads.StatusLost {
		t.Fatalf("expected lost, got %s", l.Status)
	}
	if l.LastContactedAt == nil || !l.LastContactedAt.Equal(fixedNow) {
		t.Fatalf("expected last_contacted_at stamped")
	}
	if n := len(f.followUps.All()); n != 0 {
		t.Fatalf("expected zero follow-ups, got %d", n)
	}
}

func TestApply_HotLeadSchedulesSequence(t *testing.T) {
	f := newFixture(t)
	out, err := f.router.Apply(context.Background(), "t1", Input{Disposition: "Hot Lead", LeadID: "l1"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	rows := f.followUps.All()
	if len(rows) != 2 || len(out.FollowUps) != 2 {
		t.Fatalf("expected 2 follow-ups, got %d", len(rows))
	}
	if !rows[0].ScheduledAt.Before(rows[1].ScheduledAt) {
		t.Fatalf("expected strictly increasing scheduled_at: %v, %v", rows[0].ScheduledAt, rows[1].ScheduledAt)
	}
	for _, r := range rows {
		if r.ActionType != followups.ActionSequenceStep || r.CampaignID != "c1" {
			t.Fatalf("unexpected follow-up %+v", r)
		}
	}
	if out.LeadStatus != leads.StatusQualified || out.PipelineStage != "Hot Leads" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

// flakyFollowUps fails every Create after the first ok calls.
type flakyFollowUps struct {
	*followups.MemoryRepo
	ok int
}

func (r *flakyFollowUps) Create(ctx context.Context, f followups.FollowUp) error {
	if r.ok == 0 {
		return errors.New("insert failed")
	}
	r.ok--
	return r.MemoryRepo.Create(ctx, f)
}

func TestApply_SequenceFailureCancelsScheduledSteps(t *testing.T) {
	f := newFixture(t)
	store := &flakyFollowUps{MemoryRepo: f.followUps, ok: 1}
	f.router.followUps = followups.NewScheduler(store, nil).WithClock(clock)

	if _, err := f.router.Apply(context.Background(), "t1", Input{Disposition: "Hot Lead", LeadID: "l1"}); err == nil {
		t.Fatal("expected the second step to fail apply")
	}
	rows := f.followUps.All()
	if len(rows) != 1 || rows[0].Status != followups.StatusCancelled {
		t.Fatalf("expected the first step cancelled, got %+v", rows)
	}

	store.ok = 2
	out, err := f.router.Apply(context.Background(), "t1", Input{Disposition: "Hot Lead", LeadID: "l1"})
	if err != nil || len(out.FollowUps) != 2 {
		t.Fatalf("retry: %+v %v", out, err)
	}
	pending := 0
	for _, r := range f.followUps.All() {
		if r.Status == followups.StatusPending {
			pending++
		}
	}
	if pending != 2 {
		t.Fatalf("expected exactly the retried sequence pending, got %d", pending)
	}
}

func TestApply_CallbackSetsNextCallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.calls.Create(ctx, calls.LogEntry{ID: "call1", TenantID: "t1", CampaignID: "c9", LeadID: "l1", Status: calls.StatusCompleted})

	out, err := f.router.Apply(ctx, "t1", Input{Disposition: "Callback Requested", LeadID: "l1", CallID: "call1", Notes: "call after lunch"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := fixedNow.Add(60 * time.Minute)
	l, _ := f.leads.Get(ctx, "t1", "l1")
	if l.NextCallbackAt == nil || !l.NextCallbackAt.Equal(want) {
		t.Fatalf("expected next_callback_at %v, got %v", want, l.NextCallbackAt)
	}
	if len(out.FollowUps) != 1 || !out.FollowUps[0].ScheduledAt.Equal(want) || out.FollowUps[0].CampaignID != "c9" {
		t.Fatalf("unexpected follow-ups %+v", out.FollowUps)
	}
	c, _ := f.calls.Get(ctx, "t1", "call1")
	if c.Outcome != "Callback Requested" || c.Notes != "call after lunch" {
		t.Fatalf("call log not updated: %+v", c)
	}
	if l.Status != leads.StatusContacted {
		t.Fatalf("neutral disposition should mark contacted, got %s", l.Status)
	}
}

func TestApply_TwiceKeepsOnePosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := f.router.Apply(ctx, "t1", Input{Disposition: "Interested", LeadID: "l1"}); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}
	if n := len(f.repo.Positions()); n != 1 {
		t.Fatalf("expected one position row, got %d", n)
	}

	if _, err := f.router.Apply(ctx, "t1", Input{Disposition: "Qualified", LeadID: "l1"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	pos := f.repo.Positions()
	stage, _ := f.repo.FindOrCreateStage(ctx, "t1", "Qualified", fixedNow)
	if len(pos) != 1 || pos[0].StageID != stage.ID {
		t.Fatalf("expected lead moved to Qualified, got %+v", pos)
	}
}

func TestApply_DoNotCallCancelsFollowUps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.router.Apply(ctx, "t1", Input{Disposition: "Hot Lead", LeadID: "l1"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	out, err := f.router.Apply(ctx, "t1", Input{Disposition: "Do Not Call", LeadID: "l1"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	l, _ := f.leads.Get(ctx, "t1", "l1")
	if !l.DoNotCall || l.Status != leads.StatusDoNotCall || !out.DoNotCall {
		t.Fatalf("expected do-not-call lead, got %+v", l)
	}
	for _, r := range f.followUps.All() {
		if r.Status != followups.StatusCancelled {
			t.Fatalf("expected all follow-ups cancelled, got %+v", r)
		}
	}
}

func TestApply_RecordsAuditAndEvent(t *testing.T) {
	f := newFixture(t)
	if _, err := f.router.Apply(context.Background(), "t1", Input{Disposition: "Interested", LeadID: "l1"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	evs := f.audit.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeDispositionApplied || evs[0].LeadID != "l1" {
		t.Fatalf("unexpected audit %+v", evs)
	}
	pub := f.events.Events()
	if len(pub) != 1 || pub[0].Topic != "dispositions" {
		t.Fatalf("unexpected events %+v", pub)
	}
	if p := pub[0].Payload.(events.DispositionApplied); p.FollowUpsCreated != 1 || p.LeadStatus != "qualified" {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestApply_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.events.FailWith(errors.New("broker down"))
	if _, err := f.router.Apply(context.Background(), "t1", Input{Disposition: "Busy", LeadID: "l1"}); err != nil {
		t.Fatalf("publish failure must not fail apply: %v", err)
	}
}

func TestSequenceExpand_Cumulative(t *testing.T) {
	s := Sequence{Steps: []SequenceStep{
		{Order: 3, DelayMinutes: 30},
		{Order: 1, DelayMinutes: 10},
		{Order: 2, DelayMinutes: 20},
	}}
	got := s.Expand(fixedNow)
	want := []time.Duration{10 * time.Minute, 30 * time.Minute, 60 * time.Minute}
	if len(got) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(got))
	}
	for i, w := range want {
		if !got[i].At.Equal(fixedNow.Add(w)) || got[i].Order != i+1 {
			t.Fatalf("step %d: want now+%s, got %v (order %d)", i, w, got[i].At.Sub(fixedNow), got[i].Order)
		}
	}
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"disposition":"Hot Lead","lead_id":"l1"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a, ok := req.(ApplyRequest); !ok || a.Disposition != "Hot Lead" {
		t.Fatalf("expected apply request, got %#v", req)
	}
	req, err = ParseRequest([]byte(`{"action":"seed_defaults"}`))
	if _, ok := req.(SeedDefaultsRequest); err != nil || !ok {
		t.Fatalf("expected seed request, got %#v (%v)", req, err)
	}
	if _, err := ParseRequest([]byte(`{"action":"nope"}`)); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}
