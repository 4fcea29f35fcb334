package webhooks

import (
	"context"
	"testing"
	"time"

	"dialer-platform/internal/audit"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/dispositions"
	"dialer-platform/internal/events"
	"dialer-platform/internal/followups"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/numbers"
	"dialer-platform/internal/sms"
	"dialer-platform/internal/telephony"
)

var fixedNow = time.Unix(1700000000, 0).UTC()

func clock() time.Time { return fixedNow }

type fixture struct {
	ingest    *Ingest
	calls     *calls.Service
	callRepo  *calls.MemoryRepo
	leads     *leads.MemoryRepo
	sms       *sms.MemoryRepo
	followUps *followups.MemoryRepo
	audit     *audit.MemoryRepo
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{
		callRepo:  calls.NewMemoryRepo(),
		leads:     leads.NewMemoryRepo(),
		sms:       sms.NewMemoryRepo(),
		followUps: followups.NewMemoryRepo(),
		audit:     audit.NewMemoryRepo(),
	}
	f.calls = calls.NewService(f.callRepo).WithClock(clock)
	numberRepo := numbers.NewMemoryRepo()
	leadSvc := leads.NewService(f.leads).WithClock(clock)
	scheduler := followups.NewScheduler(f.followUps, nil).WithClock(clock)
	auditSvc := audit.NewService(f.audit).WithClock(clock)
	router := dispositions.NewRouter(dispositions.Deps{
		Repo:      dispositions.NewMemoryRepo(),
		Leads:     leadSvc,
		Calls:     f.callRepo,
		FollowUps: scheduler,
		Audit:     auditSvc,
		Publisher: events.NewMemoryPublisher(),
		Topic:     "dispositions",
	}).WithClock(clock)
	if _, err := router.SeedDefaults(ctx, "t1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f.ingest = NewIngest(Deps{
		Calls:        f.calls,
		Leads:        leadSvc,
		SMS:          f.sms,
		Numbers:      numberRepo,
		FollowUps:    scheduler,
		Dispositions: router,
		Audit:        auditSvc,
	}).WithClock(clock)

	if err := numberRepo.Create(ctx, numbers.PhoneNumber{ID: "n1", TenantID: "t1", Number: "+15550000001", Status: numbers.StatusActive}); err != nil {
		t.Fatalf("number: %v", err)
	}
	if err := f.leads.Create(ctx, leads.Lead{ID: "l1", TenantID: "t1", PhoneNumber: "+15551234567", Status: leads.StatusNew, CampaignID: "c1", Priority: 3}); err != nil {
		t.Fatalf("lead: %v", err)
	}
	return f
}

func (f fixture) openCall(t *testing.T, vendorCallID string) calls.LogEntry {
	t.Helper()
	c, err := f.calls.Open(context.Background(), calls.LogEntry{
		TenantID:     "t1",
		Vendor:       VendorRetell,
		VendorCallID: vendorCallID,
		CampaignID:   "c1",
		LeadID:       "l1",
		From:         "+15550000001",
		To:           "+15551234567",
	})
	if err != nil {
		t.Fatalf("open call: %v", err)
	}
	return c
}

func retellEvent(event, callID string) telephony.RetellEvent {
	var ev telephony.RetellEvent
	ev.Event = event
	ev.Call.CallID = callID
	return ev
}

func TestRetell_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.openCall(t, "rc1")

	if ack, err := f.ingest.Retell(ctx, retellEvent(telephony.RetellCallStarted, "rc1")); err != nil || ack.Status != string(calls.StatusInProgress) {
		t.Fatalf("started: %+v %v", ack, err)
	}

	ended := retellEvent(telephony.RetellCallEnded, "rc1")
	ended.Call.DisconnectionReason = "user_hangup"
	ended.Call.DurationMs = 42000
	ended.Call.Transcript = "Agent: hi"
	if ack, err := f.ingest.Retell(ctx, ended); err != nil || ack.Status != string(calls.StatusCompleted) {
		t.Fatalf("ended: %+v %v", ack, err)
	}
	got, _ := f.callRepo.Get(ctx, "t1", c.ID)
	if got.DurationSeconds != 42 || got.Transcript != "Agent: hi" || got.EndedAt == nil {
		t.Fatalf("unexpected call after end: %+v", got)
	}
	l, _ := f.leads.Get(ctx, "t1", "l1")
	if l.LastContactedAt == nil {
		t.Fatalf("expected lead contact to be recorded")
	}

	analyzed := retellEvent(telephony.RetellCallAnalyzed, "rc1")
	analyzed.Call.Analysis = &telephony.RetellAnalysis{
		CallSummary:        "not a fit",
		CustomAnalysisData: map[string]any{"disposition": "Not Interested"},
	}
	if _, err := f.ingest.Retell(ctx, analyzed); err != nil {
		t.Fatalf("analyzed: %v", err)
	}
	got, _ = f.callRepo.Get(ctx, "t1", c.ID)
	if got.Summary != "not a fit" || got.Outcome != "Not Interested" || got.Status != calls.StatusCompleted {
		t.Fatalf("unexpected call after analysis: %+v", got)
	}
	l, _ = f.leads.Get(ctx, "t1", "l1")
	if l.Status != leads.StatusLost {
		t.Fatalf("expected lead lost, got %s", l.Status)
	}
}

func TestRetell_LateStartDoesNotReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.openCall(t, "rc2")

	ended := retellEvent(telephony.RetellCallEnded, "rc2")
	ended.Call.DisconnectionReason = "dial_busy"
	if _, err := f.ingest.Retell(ctx, ended); err != nil {
		t.Fatalf("ended: %v", err)
	}
	ack, err := f.ingest.Retell(ctx, retellEvent(telephony.RetellCallStarted, "rc2"))
	if err != nil {
		t.Fatalf("started: %v", err)
	}
	if ack.Status != string(calls.StatusBusy) || ack.Reason == "" {
		t.Fatalf("expected busy to stick, got %+v", ack)
	}
	got, _ := f.callRepo.Get(ctx, "t1", c.ID)
	if got.Status != calls.StatusBusy {
		t.Fatalf("expected busy, got %s", got.Status)
	}
}

func TestRetell_UnregisteredDispositionIsAcknowledged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.openCall(t, "rc3")

	ev := retellEvent(telephony.RetellCallAnalyzed, "rc3")
	ev.Call.Analysis = &telephony.RetellAnalysis{CustomAnalysisData: map[string]any{"disposition": "Maybe Later"}}
	ack, err := f.ingest.Retell(ctx, ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ack.Handled || ack.Reason != "unregistered disposition" {
		t.Fatalf("unexpected ack %+v", ack)
	}
	l, _ := f.leads.Get(ctx, "t1", "l1")
	if l.Status != leads.StatusNew {
		t.Fatalf("lead must be untouched, got %s", l.Status)
	}
}

func TestRetell_UnknownCallAndNumberIgnored(t *testing.T) {
	f := newFixture(t)
	ev := retellEvent(telephony.RetellCallStarted, "nope")
	ev.Call.ToNumber = "+15559999999"
	ack, err := f.ingest.Retell(context.Background(), ev)
	if err != nil || ack.Handled {
		t.Fatalf("expected ignored ack, got %+v %v", ack, err)
	}
	if len(f.callRepo.All()) != 0 {
		t.Fatalf("no call log should be created")
	}
}

func TestRetell_InboundCallOpensLog(t *testing.T) {
	f := newFixture(t)
	ev := retellEvent(telephony.RetellCallStarted, "in1")
	ev.Call.Direction = "inbound"
	ev.Call.FromNumber = "+15551234567"
	ev.Call.ToNumber = "+15550000001"
	ack, err := f.ingest.Retell(context.Background(), ev)
	if err != nil || !ack.Handled {
		t.Fatalf("unexpected %+v %v", ack, err)
	}
	all := f.callRepo.All()
	if len(all) != 1 {
		t.Fatalf("expected one call log, got %d", len(all))
	}
	if all[0].TenantID != "t1" || all[0].LeadID != "l1" || all[0].Direction != calls.DirectionInbound || all[0].Status != calls.StatusInProgress {
		t.Fatalf("unexpected inbound log %+v", all[0])
	}
}

func TestTelnyx_HangupCause(t *testing.T) {
	c := calls.LogEntry{Status: calls.StatusRinging}
	if got := telnyxHangupStatus(c, "USER_BUSY"); got != calls.StatusBusy {
		t.Fatalf("expected busy, got %s", got)
	}
	if got := telnyxHangupStatus(c, "normal_clearing"); got != calls.StatusNoAnswer {
		t.Fatalf("unanswered normal clearing should be no_answer, got %s", got)
	}
	c.Status = calls.StatusInProgress
	if got := telnyxHangupStatus(c, "normal_clearing"); got != calls.StatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
}

func TestTelnyx_MessageDelivered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.sms.Create(ctx, sms.Message{ID: "m1", TenantID: "t1", Vendor: VendorTelnyx, VendorMessageID: "tx-1", Direction: sms.DirectionOutbound, From: "+15550000001", To: "+15551234567", Status: sms.StatusSent}); err != nil {
		t.Fatalf("seed sms: %v", err)
	}
	ev, err := telephony.ParseTelnyxEvent([]byte(`{"data":{"event_type":"message.finalized","payload":{"id":"tx-1","from":{"phone_number":"+15550000001"},"to":[{"phone_number":"+15551234567","status":"delivered"}]}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ack, err := f.ingest.Telnyx(ctx, ev)
	if err != nil || !ack.Handled {
		t.Fatalf("unexpected %+v %v", ack, err)
	}
	m, _ := f.sms.FindByVendorID(ctx, "t1", "tx-1")
	if m.Status != sms.StatusDelivered {
		t.Fatalf("expected delivered, got %s", m.Status)
	}
}

func TestInboundSMS_OptOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.followUps.Create(ctx, followups.FollowUp{ID: "f1", TenantID: "t1", LeadID: "l1", ActionType: followups.ActionCallback, Status: followups.StatusPending, ScheduledAt: fixedNow.Add(time.Hour)}); err != nil {
		t.Fatalf("seed follow-up: %v", err)
	}

	ack, err := f.ingest.InboundSMS(ctx, VendorTwilio, "SM1", "+15551234567", "+15550000001", " stop ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ack.OptedOut {
		t.Fatalf("expected opt-out, got %+v", ack)
	}
	l, _ := f.leads.Get(ctx, "t1", "l1")
	if !l.DoNotCall {
		t.Fatalf("expected lead to be do-not-call")
	}
	fu, _ := f.followUps.Get(ctx, "t1", "f1")
	if fu.Status != followups.StatusCancelled {
		t.Fatalf("expected follow-up cancelled, got %s", fu.Status)
	}
	msgs := f.sms.Messages()
	if len(msgs) != 1 || msgs[0].LeadID != "l1" || msgs[0].Direction != sms.DirectionInbound {
		t.Fatalf("expected the inbound message to be logged, got %+v", msgs)
	}
	evs := f.audit.Events()
	if len(evs) == 0 || evs[len(evs)-1].Type != audit.EventTypeLeadOptedOut {
		t.Fatalf("expected opt-out audit event, got %+v", evs)
	}
}

func TestInboundSMS_PlainMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ack, err := f.ingest.InboundSMS(ctx, VendorTwilio, "SM2", "+15551234567", "+15550000001", "call me tomorrow")
	if err != nil || ack.OptedOut || !ack.Handled {
		t.Fatalf("unexpected %+v %v", ack, err)
	}
	l, _ := f.leads.Get(ctx, "t1", "l1")
	if l.DoNotCall {
		t.Fatalf("plain message must not opt out")
	}
}
