// Package webhooks turns vendor call and SMS callbacks into call log, SMS log,
// lead and follow-up mutations.
package webhooks

import (
	"context"
	"errors"
	"strings"
	"time"

	"dialer-platform/internal/audit"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/dispositions"
	"dialer-platform/internal/followups"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/numbers"
	"dialer-platform/internal/sms"
	"dialer-platform/internal/telephony"
	"dialer-platform/pkg/logger"

	"github.com/google/uuid"
)

const (
	VendorRetell = "retell"
	VendorTelnyx = "telnyx"
	VendorTwilio = "twilio"
)

// Ack is what a webhook delivery produced. Ignored deliveries are still acknowledged.
type Ack struct {
	Handled  bool   `json:"handled"`
	Reason   string `json:"reason,omitempty"`
	CallID   string `json:"call_id,omitempty"`
	Status   string `json:"status,omitempty"`
	OptedOut bool   `json:"opted_out,omitempty"`
}

func ignored(reason string) Ack { return Ack{Reason: reason} }

// Deps are the stores webhook ingestion mutates.
type Deps struct {
	Calls        *calls.Service
	Leads        *leads.Service
	SMS          sms.Repository
	Numbers      numbers.Repository
	FollowUps    *followups.Scheduler
	Dispositions *dispositions.Router
	Audit        *audit.Service
}

type Ingest struct {
	d     Deps
	clock func() time.Time
}

func NewIngest(d Deps) *Ingest {
	return &Ingest{d: d, clock: time.Now}
}

func (in *Ingest) WithClock(clock func() time.Time) *Ingest {
	in.clock = clock
	return in
}

// findCall resolves the tenant through the call log by vendor call id.
func (in *Ingest) findCall(ctx context.Context, vendorCallID string) (calls.LogEntry, bool, error) {
	c, err := in.d.Calls.Repo().FindByVendorCallID(ctx, vendorCallID)
	if errors.Is(err, calls.ErrNotFound) {
		return calls.LogEntry{}, false, nil
	}
	if err != nil {
		return calls.LogEntry{}, false, err
	}
	return c, true, nil
}

// ownerOf resolves the tenant owning one of the given numbers, in order.
func (in *Ingest) ownerOf(ctx context.Context, candidates ...string) (numbers.PhoneNumber, bool, error) {
	for _, raw := range candidates {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		n, err := in.d.Numbers.FindByNumber(ctx, numbers.NormalizeE164(raw))
		if errors.Is(err, numbers.ErrNotFound) {
			continue
		}
		if err != nil {
			return numbers.PhoneNumber{}, false, err
		}
		return n, true, nil
	}
	return numbers.PhoneNumber{}, false, nil
}

// findLead matches a handset number to the tenant's lead, trying it as given and in E.164.
func (in *Ingest) findLead(ctx context.Context, tenantID, phone string) (leads.Lead, bool, error) {
	raw := strings.TrimSpace(phone)
	for _, p := range []string{raw, numbers.NormalizeE164(raw)} {
		if p == "" {
			continue
		}
		l, err := in.d.Leads.Repo().FindByPhone(ctx, tenantID, p)
		if errors.Is(err, leads.ErrNotFound) {
			continue
		}
		if err != nil {
			return leads.Lead{}, false, err
		}
		return l, true, nil
	}
	return leads.Lead{}, false, nil
}

// openInbound creates a call log for a call the dialer did not place.
// The tenant is the owner of the dialed number; the lead is matched by caller phone.
func (in *Ingest) openInbound(ctx context.Context, vendor, vendorCallID, from, to string, dir calls.Direction) (calls.LogEntry, bool, error) {
	owned := to
	if dir == calls.DirectionOutbound {
		owned = from
	}
	owner, ok, err := in.ownerOf(ctx, owned)
	if err != nil || !ok {
		return calls.LogEntry{}, false, err
	}
	entry := calls.LogEntry{
		TenantID:     owner.TenantID,
		Vendor:       vendor,
		VendorCallID: vendorCallID,
		From:         from,
		To:           to,
		Direction:    dir,
		Status:       calls.StatusInitiated,
	}
	counterpart := from
	if dir == calls.DirectionOutbound {
		counterpart = to
	}
	lead, found, err := in.findLead(ctx, owner.TenantID, counterpart)
	if err != nil {
		return calls.LogEntry{}, false, err
	}
	if found {
		entry.LeadID = lead.ID
		entry.CampaignID = lead.CampaignID
	}
	c, err := in.d.Calls.Open(ctx, entry)
	if err != nil {
		return calls.LogEntry{}, false, err
	}
	return c, true, nil
}

// advance moves the call and stamps lead contact when the call reached a terminal status.
func (in *Ingest) advance(ctx context.Context, c calls.LogEntry, to calls.Status, at time.Time) (Ack, error) {
	updated, moved, err := in.d.Calls.Advance(ctx, c, to, at)
	if err != nil {
		return Ack{}, err
	}
	if moved && !to.Open() && updated.LeadID != "" {
		if _, err := in.d.Leads.RecordContact(ctx, updated.TenantID, updated.LeadID, at); err != nil && !errors.Is(err, leads.ErrNotFound) {
			return Ack{}, err
		}
	}
	ack := Ack{Handled: true, CallID: updated.ID, Status: string(updated.Status)}
	if !moved {
		ack.Reason = "status unchanged"
	}
	return ack, nil
}

// Retell applies one Retell call event.
func (in *Ingest) Retell(ctx context.Context, ev telephony.RetellEvent) (Ack, error) {
	c, ok, err := in.findCall(ctx, ev.Call.CallID)
	if err != nil {
		return Ack{}, err
	}
	if !ok {
		dir := calls.DirectionInbound
		if strings.EqualFold(ev.Call.Direction, "outbound") {
			dir = calls.DirectionOutbound
		}
		c, ok, err = in.openInbound(ctx, VendorRetell, ev.Call.CallID, ev.Call.FromNumber, ev.Call.ToNumber, dir)
		if err != nil {
			return Ack{}, err
		}
		if !ok {
			return ignored("unknown call"), nil
		}
	}
	ctx = logger.With(ctx, logger.ForTenant(ctx, c.TenantID).With("call_id", c.ID))
	now := in.clock().UTC()

	switch ev.Event {
	case telephony.RetellCallStarted:
		at := now
		if ev.Call.StartTimestamp > 0 {
			at = time.UnixMilli(ev.Call.StartTimestamp).UTC()
		}
		return in.advance(ctx, c, calls.StatusInProgress, at)

	case telephony.RetellCallEnded:
		at := now
		if ev.Call.EndTimestamp > 0 {
			at = time.UnixMilli(ev.Call.EndTimestamp).UTC()
		}
		to := calls.StatusCompleted
		switch {
		case ev.Call.Busy():
			to = calls.StatusBusy
		case !ev.Call.Answered():
			to = calls.StatusNoAnswer
		}
		c.DurationSeconds = int(ev.Call.Duration() / time.Second)
		if ev.Call.Transcript != "" {
			c.Transcript = ev.Call.Transcript
		}
		if ev.Call.RecordingURL != "" {
			c.RecordingURL = ev.Call.RecordingURL
		}
		return in.advance(ctx, c, to, at)

	case telephony.RetellCallAnalyzed:
		if ev.Call.Analysis != nil && ev.Call.Analysis.CallSummary != "" {
			c.Summary = ev.Call.Analysis.CallSummary
		}
		ack, err := in.advance(ctx, c, c.Status, now)
		if err != nil {
			return Ack{}, err
		}
		ack.Reason = ""
		name := ev.Call.Disposition()
		if name == "" || c.LeadID == "" {
			return ack, nil
		}
		_, err = in.d.Dispositions.Apply(ctx, c.TenantID, dispositions.Input{Disposition: name, LeadID: c.LeadID, CallID: c.ID})
		if errors.Is(err, dispositions.ErrRuleNotFound) {
			logger.From(ctx).Warn("analysis produced unregistered disposition", "disposition", name)
			ack.Reason = "unregistered disposition"
			return ack, nil
		}
		if err != nil {
			return Ack{}, err
		}
		return ack, nil

	default:
		logger.From(ctx).Info("retell event ignored", "event", ev.Event)
		return ignored("unhandled event " + ev.Event), nil
	}
}

// telnyxHangupStatus maps a Telnyx hangup to the terminal call status.
func telnyxHangupStatus(c calls.LogEntry, cause string) calls.Status {
	switch strings.ToLower(cause) {
	case "user_busy", "call_rejected":
		return calls.StatusBusy
	case "timeout", "no_answer", "originator_cancel":
		return calls.StatusNoAnswer
	case "unallocated_number", "destination_out_of_order", "network_failure":
		return calls.StatusFailed
	}
	if c.Status == calls.StatusInProgress {
		return calls.StatusCompleted
	}
	return calls.StatusNoAnswer
}

// Telnyx applies one Telnyx v2 event.
func (in *Ingest) Telnyx(ctx context.Context, ev telephony.TelnyxEvent) (Ack, error) {
	switch {
	case ev.IsCall():
		return in.telnyxCall(ctx, ev)
	case ev.IsMessage():
		return in.telnyxMessage(ctx, ev)
	default:
		logger.From(ctx).Info("telnyx event ignored", "event", ev.Data.EventType)
		return ignored("unhandled event " + ev.Data.EventType), nil
	}
}

func (in *Ingest) telnyxCall(ctx context.Context, ev telephony.TelnyxEvent) (Ack, error) {
	p, err := ev.CallPayload()
	if err != nil {
		return Ack{}, err
	}
	c, ok, err := in.findCall(ctx, p.CallControlID)
	if err != nil {
		return Ack{}, err
	}
	if !ok {
		if ev.Data.EventType != "call.initiated" {
			return ignored("unknown call"), nil
		}
		dir := calls.DirectionInbound
		if strings.EqualFold(p.Direction, "outgoing") {
			dir = calls.DirectionOutbound
		}
		c, ok, err = in.openInbound(ctx, VendorTelnyx, p.CallControlID, p.From, p.To, dir)
		if err != nil {
			return Ack{}, err
		}
		if !ok {
			return ignored("unknown call"), nil
		}
		return Ack{Handled: true, CallID: c.ID, Status: string(c.Status)}, nil
	}

	now := in.clock().UTC()
	switch ev.Data.EventType {
	case "call.initiated":
		return Ack{Handled: true, CallID: c.ID, Status: string(c.Status), Reason: "status unchanged"}, nil
	case "call.ringing":
		return in.advance(ctx, c, calls.StatusRinging, now)
	case "call.answered":
		return in.advance(ctx, c, calls.StatusInProgress, now)
	case "call.hangup":
		if c.StartedAt != nil {
			c.DurationSeconds = int(now.Sub(*c.StartedAt) / time.Second)
		}
		return in.advance(ctx, c, telnyxHangupStatus(c, p.HangupCause), now)
	default:
		return ignored("unhandled event " + ev.Data.EventType), nil
	}
}

func (in *Ingest) telnyxMessage(ctx context.Context, ev telephony.TelnyxEvent) (Ack, error) {
	p, err := ev.MessagePayload()
	if err != nil {
		return Ack{}, err
	}
	to := p.FirstTo()
	if ev.Data.EventType == "message.received" {
		return in.InboundSMS(ctx, VendorTelnyx, p.ID, p.From.PhoneNumber, to.PhoneNumber, p.Text)
	}

	status := sms.StatusSent
	switch strings.ToLower(to.Status) {
	case "delivered":
		status = sms.StatusDelivered
	case "delivery_failed", "sending_failed", "delivery_unconfirmed":
		status = sms.StatusFailed
	case "queued":
		status = sms.StatusQueued
	}
	return in.SMSStatus(ctx, VendorTelnyx, p.ID, p.From.PhoneNumber, status)
}

var twilioCallStatus = map[string]calls.Status{
	"queued":      calls.StatusInitiated,
	"initiated":   calls.StatusInitiated,
	"ringing":     calls.StatusRinging,
	"in-progress": calls.StatusInProgress,
	"answered":    calls.StatusInProgress,
	"completed":   calls.StatusCompleted,
	"busy":        calls.StatusBusy,
	"no-answer":   calls.StatusNoAnswer,
	"failed":      calls.StatusFailed,
	"canceled":    calls.StatusCanceled,
}

// TwilioCallStatus applies a Twilio voice status callback.
func (in *Ingest) TwilioCallStatus(ctx context.Context, f telephony.TwilioCallStatus) (Ack, error) {
	to, known := twilioCallStatus[strings.ToLower(f.CallStatus)]
	if !known {
		return ignored("unhandled status " + f.CallStatus), nil
	}
	c, ok, err := in.findCall(ctx, f.CallSid)
	if err != nil {
		return Ack{}, err
	}
	if !ok {
		dir := calls.DirectionInbound
		if strings.HasPrefix(strings.ToLower(f.Direction), "outbound") {
			dir = calls.DirectionOutbound
		}
		c, ok, err = in.openInbound(ctx, VendorTwilio, f.CallSid, f.From, f.To, dir)
		if err != nil {
			return Ack{}, err
		}
		if !ok {
			return ignored("unknown call"), nil
		}
	}
	if f.CallDuration > 0 {
		c.DurationSeconds = f.CallDuration
	}
	if f.RecordingURL != "" {
		c.RecordingURL = f.RecordingURL
	}
	return in.advance(ctx, c, to, in.clock().UTC())
}

// TwilioSMSStatus applies a Twilio SMS delivery callback.
func (in *Ingest) TwilioSMSStatus(ctx context.Context, m telephony.TwilioSMS) (Ack, error) {
	var status sms.Status
	switch strings.ToLower(m.MessageStatus) {
	case "queued", "accepted", "sending":
		status = sms.StatusQueued
	case "sent":
		status = sms.StatusSent
	case "delivered", "read":
		status = sms.StatusDelivered
	case "failed", "undelivered":
		status = sms.StatusFailed
	default:
		return ignored("unhandled status " + m.MessageStatus), nil
	}
	return in.SMSStatus(ctx, VendorTwilio, m.MessageSid, m.From, status)
}

// InboundSMS logs a message from a handset to one of our numbers. A stop keyword
// opts the lead out: it becomes do-not-call and its pending follow-ups are cancelled.
func (in *Ingest) InboundSMS(ctx context.Context, vendor, vendorID, from, to, body string) (Ack, error) {
	owner, ok, err := in.ownerOf(ctx, to)
	if err != nil {
		return Ack{}, err
	}
	if !ok {
		return ignored("unknown destination number"), nil
	}
	tenantID := owner.TenantID
	log := logger.ForTenant(ctx, tenantID)
	now := in.clock().UTC()

	msg := sms.Message{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		Vendor:          vendor,
		VendorMessageID: vendorID,
		Direction:       sms.DirectionInbound,
		From:            from,
		To:              to,
		Body:            body,
		Status:          sms.StatusReceived,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	lead, found, err := in.findLead(ctx, tenantID, from)
	if err != nil {
		return Ack{}, err
	}
	if found {
		msg.LeadID = lead.ID
	}
	if err := in.d.SMS.Create(ctx, msg); err != nil {
		return Ack{}, err
	}

	ack := Ack{Handled: true, Status: string(sms.StatusReceived)}
	if !sms.IsOptOut(body) {
		return ack, nil
	}
	if !found {
		log.Info("opt-out from unknown sender", "from", from)
		ack.Reason = "sender is not a lead"
		return ack, nil
	}
	if _, err := in.d.Leads.MarkDoNotCall(ctx, tenantID, lead.ID); err != nil {
		return Ack{}, err
	}
	n, err := in.d.FollowUps.CancelPendingForLead(ctx, tenantID, lead.ID)
	if err != nil {
		return Ack{}, err
	}
	in.d.Audit.Record(ctx, audit.Event{
		TenantID:   tenantID,
		Type:       audit.EventTypeLeadOptedOut,
		LeadID:     lead.ID,
		CampaignID: lead.CampaignID,
		Message:    strings.TrimSpace(body),
	})
	log.Info("lead opted out by sms", "lead_id", lead.ID, "cancelled_follow_ups", n)
	ack.OptedOut = true
	return ack, nil
}

// SMSStatus records a delivery status change on an SMS we sent. The sender number
// resolves the tenant.
func (in *Ingest) SMSStatus(ctx context.Context, vendor, vendorID, from string, status sms.Status) (Ack, error) {
	owner, ok, err := in.ownerOf(ctx, from)
	if err != nil {
		return Ack{}, err
	}
	if !ok {
		return ignored("unknown sender number"), nil
	}
	m, err := in.d.SMS.FindByVendorID(ctx, owner.TenantID, vendorID)
	if errors.Is(err, sms.ErrNotFound) {
		return ignored("unknown message"), nil
	}
	if err != nil {
		return Ack{}, err
	}
	m.Status = status
	m.UpdatedAt = in.clock().UTC()
	if err := in.d.SMS.Update(ctx, m); err != nil {
		return Ack{}, err
	}
	return Ack{Handled: true, Status: string(status)}, nil
}
