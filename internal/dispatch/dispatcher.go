// Package dispatch turns campaign membership into outbound call attempts.
// Each run is stateless and safe to repeat; the recurring trigger lives outside.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dialer-platform/internal/audit"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaigns"
	"dialer-platform/internal/config"
	"dialer-platform/internal/events"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/numbers"
	"dialer-platform/internal/queue"
	"dialer-platform/internal/telephony"
	"dialer-platform/internal/tenant"
	"dialer-platform/pkg/logger"

	"github.com/google/uuid"
)

// SkippedAlreadyRunning is reported when another run holds the tenant lock.
const SkippedAlreadyRunning = "dispatch already running"

// VendorRetell names the voice vendor on call logs the dispatcher opens.
const VendorRetell = "retell"

// CallInitiator places one outbound call with the tenant's credentials.
type CallInitiator interface {
	CreatePhoneCall(ctx context.Context, creds tenant.Credentials, call telephony.OutboundCall) (string, error)
}

// Deps are the stores and collaborators a Dispatcher drives.
type Deps struct {
	Campaigns campaigns.Repository
	Leads     leads.Repository
	Queue     *queue.Service
	Numbers   *numbers.Service
	Calls     *calls.Service
	Initiator CallInitiator
	Publisher events.Publisher
	// WorkflowTopic receives the workflow executor handoff.
	WorkflowTopic string
	Audit         *audit.Service
	// Locker and Pacer are optional. Without them runs are not serialised or paced.
	Locker Locker
	Pacer  Pacer
	Config config.DispatchConfig
}

type Dispatcher struct {
	d     Deps
	clock func() time.Time
}

func New(d Deps) *Dispatcher {
	if d.Config.FetchLimit <= 0 {
		d.Config.FetchLimit = 10
	}
	if d.Config.CallLimit <= 0 {
		d.Config.CallLimit = 5
	}
	if d.Config.StuckAfter <= 0 {
		d.Config.StuckAfter = 5 * time.Minute
	}
	if d.Config.LockTTL <= 0 {
		d.Config.LockTTL = 2 * time.Minute
	}
	return &Dispatcher{d: d, clock: time.Now}
}

func (s *Dispatcher) WithClock(clock func() time.Time) *Dispatcher {
	s.clock = clock
	return s
}

// Outcome values on CallResult.
const (
	OutcomeDispatched = "dispatched"
	OutcomeFailed     = "failed"
	OutcomeSkipped    = "skipped"
)

// CallResult explains what happened to one queue entry in this run.
type CallResult struct {
	QueueEntryID string         `json:"queue_entry_id"`
	CampaignID   string         `json:"campaign_id"`
	LeadID       string         `json:"lead_id"`
	Outcome      string         `json:"outcome"`
	VendorCallID string         `json:"call_id,omitempty"`
	FromNumber   string         `json:"from_number,omitempty"`
	Score        *numbers.Score `json:"score,omitempty"`
	Reason       string         `json:"reason,omitempty"`
}

// Result is the dispatcher response.
type Result struct {
	Dispatched int          `json:"dispatched"`
	Queued     int          `json:"queued"`
	Failed     int          `json:"failed"`
	SMSStarted int          `json:"sms_started"`
	Enqueued   int          `json:"enqueued"`
	Results    []CallResult `json:"results"`
	Warning    string       `json:"warning,omitempty"`
	Skipped    string       `json:"skipped,omitempty"`
}

// Dispatch runs one pass for t. Missing vendor credentials fail the whole run
// before anything is written; every per-lead failure is recorded and the pass continues.
func (s *Dispatcher) Dispatch(ctx context.Context, t tenant.Tenant) (Result, error) {
	res := Result{Results: []CallResult{}}
	if t.ID == "" {
		return res, tenant.ErrMissingTenant
	}
	if err := t.Credentials.RequireRetell(); err != nil {
		return res, err
	}
	log := logger.ForTenant(ctx, t.ID)

	if s.d.Locker != nil {
		key := "dispatch:" + t.ID
		token, err := s.d.Locker.TryLock(ctx, key, s.d.Config.LockTTL)
		if err != nil {
			return res, fmt.Errorf("dispatch lock: %w", err)
		}
		if token == "" {
			res.Skipped = SkippedAlreadyRunning
			return res, nil
		}
		defer func() {
			if err := s.d.Locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
				log.Warn("dispatch unlock failed", "err", err)
			}
		}()
	}

	active, err := s.d.Campaigns.ListActive(ctx, t.ID)
	if err != nil {
		return res, err
	}
	if len(active) == 0 {
		return res, nil
	}
	byID := make(map[string]campaigns.Campaign, len(active))
	ids := make([]string, 0, len(active))
	for _, c := range active {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	if err := s.queueMembers(ctx, t.ID, active, ids, &res); err != nil {
		return res, err
	}

	pending, err := s.d.Queue.Pending(ctx, t.ID, ids, s.d.Config.FetchLimit)
	if err != nil {
		return res, err
	}
	if len(pending) > 0 {
		if err := s.callPending(ctx, t, byID, pending, &res); err != nil {
			return res, err
		}
	}

	if st, err := s.d.Queue.Stats(ctx, t.ID); err != nil {
		log.Warn("queue stats failed", "err", err)
	} else {
		res.Queued = st.Pending
	}
	log.Info("dispatch finished",
		"dispatched", res.Dispatched, "failed", res.Failed, "queued", res.Queued,
		"enqueued", res.Enqueued, "sms_started", res.SMSStarted)
	return res, nil
}

// smsFirst reports the campaigns whose workflow begins with an SMS, keyed by campaign id.
func (s *Dispatcher) smsFirst(ctx context.Context, tenantID string, active []campaigns.Campaign) map[string]campaigns.Workflow {
	out := map[string]campaigns.Workflow{}
	for _, c := range active {
		if c.WorkflowID == "" {
			continue
		}
		wf, err := s.d.Campaigns.GetWorkflow(ctx, tenantID, c.WorkflowID)
		if err != nil {
			logger.ForTenant(ctx, tenantID).Warn("workflow lookup failed; dialing campaign directly",
				"campaign_id", c.ID, "workflow_id", c.WorkflowID, "err", err)
			continue
		}
		if wf.StartsWithSMS() {
			out[c.ID] = wf
		}
	}
	return out
}

// queueMembers routes dialable members without live work into a workflow or the dialing queue.
func (s *Dispatcher) queueMembers(ctx context.Context, tenantID string, active []campaigns.Campaign, ids []string, res *Result) error {
	log := logger.ForTenant(ctx, tenantID)
	workflows := s.smsFirst(ctx, tenantID, active)

	live, err := s.d.Queue.LiveKeys(ctx, tenantID)
	if err != nil {
		return err
	}
	progress, err := s.d.Campaigns.ListLiveProgress(ctx, tenantID)
	if err != nil {
		return err
	}
	for _, p := range progress {
		live[queue.Key(p.CampaignID, p.LeadID)] = struct{}{}
	}

	members, err := s.d.Campaigns.ListCampaignLeads(ctx, tenantID, ids)
	if err != nil {
		return err
	}
	var candidates []campaigns.CampaignLead
	leadIDs := make([]string, 0, len(members))
	seen := map[string]bool{}
	for _, m := range members {
		if _, ok := live[queue.Key(m.CampaignID, m.LeadID)]; ok {
			continue
		}
		candidates = append(candidates, m)
		if !seen[m.LeadID] {
			seen[m.LeadID] = true
			leadIDs = append(leadIDs, m.LeadID)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	found, err := s.d.Leads.GetMany(ctx, tenantID, leadIDs)
	if err != nil {
		return err
	}
	attempts, err := s.d.Queue.AttemptCounts(ctx, tenantID, ids)
	if err != nil {
		return err
	}

	byCampaign := map[string]campaigns.Campaign{}
	for _, c := range active {
		byCampaign[c.ID] = c
	}
	now := s.clock().UTC()
	started := map[string][]string{}
	var toQueue []queue.Request
	for _, m := range candidates {
		lead, ok := found[m.LeadID]
		if !ok || !lead.Dialable() {
			continue
		}
		// A scheduled callback re-enqueues the lead itself once it is due.
		if lead.NextCallbackAt != nil && lead.NextCallbackAt.After(now) {
			continue
		}
		if wf, ok := workflows[m.CampaignID]; ok {
			first, _ := wf.FirstStep()
			p := campaigns.WorkflowProgress{
				ID:          uuid.NewString(),
				TenantID:    tenantID,
				WorkflowID:  wf.ID,
				CampaignID:  m.CampaignID,
				LeadID:      lead.ID,
				Status:      campaigns.ProgressInProgress,
				CurrentStep: first.Order,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.d.Campaigns.CreateProgress(ctx, p); err != nil {
				log.Warn("workflow progress create failed; lead skipped", "campaign_id", m.CampaignID, "lead_id", lead.ID, "err", err)
				continue
			}
			started[m.CampaignID] = append(started[m.CampaignID], lead.ID)
			res.SMSStarted++
			continue
		}
		c := byCampaign[m.CampaignID]
		if c.MaxAttempts > 0 && attempts[queue.Key(m.CampaignID, lead.ID)] >= c.MaxAttempts {
			continue
		}
		toQueue = append(toQueue, queue.Request{
			CampaignID:  m.CampaignID,
			LeadID:      lead.ID,
			PhoneNumber: lead.PhoneNumber,
			Priority:    lead.Priority,
			MaxAttempts: c.MaxAttempts,
		})
	}

	for _, c := range active {
		batch := started[c.ID]
		if len(batch) == 0 || s.d.Publisher == nil {
			continue
		}
		err := s.d.Publisher.Publish(ctx, s.d.WorkflowTopic, c.ID, events.WorkflowExecute{
			Action:     events.ActionExecutePending,
			TenantID:   tenantID,
			CampaignID: c.ID,
			WorkflowID: workflows[c.ID].ID,
			LeadIDs:    batch,
			IssuedAt:   now,
		})
		if err != nil {
			// Progress rows stay in_progress; the executor finds them on its next execute_pending.
			log.Warn("workflow handoff publish failed", "campaign_id", c.ID, "err", err)
		}
	}

	n, err := s.d.Queue.Enqueue(ctx, tenantID, toQueue)
	if err != nil {
		return err
	}
	res.Enqueued = n
	return nil
}

// callPending works through at most CallLimit of the fetched entries.
func (s *Dispatcher) callPending(ctx context.Context, t tenant.Tenant, byID map[string]campaigns.Campaign, pending []queue.Entry, res *Result) error {
	log := logger.ForTenant(ctx, t.ID)
	now := s.clock().UTC()

	pool, err := s.d.Numbers.Pool(ctx, t.ID, now)
	if err != nil {
		return err
	}
	res.Warning = pool.Warning
	available := pool.Numbers

	if len(pending) > s.d.Config.CallLimit {
		pending = pending[:s.d.Config.CallLimit]
	}
	leadIDs := make([]string, 0, len(pending))
	for _, e := range pending {
		leadIDs = append(leadIDs, e.LeadID)
	}
	current, err := s.d.Leads.GetMany(ctx, t.ID, leadIDs)
	if err != nil {
		return err
	}

	for _, e := range pending {
		r := CallResult{QueueEntryID: e.ID, CampaignID: e.CampaignID, LeadID: e.LeadID}
		c := byID[e.CampaignID]

		// The lead may have opted out or been dispositioned since it was queued.
		lead, ok := current[e.LeadID]
		if !ok || !lead.Dialable() {
			r.Outcome, r.Reason = OutcomeSkipped, "lead is no longer dialable"
			s.fail(ctx, t.ID, e, queue.StatusPending, r.Reason)
			res.Results = append(res.Results, r)
			continue
		}
		if lead.NextCallbackAt != nil && lead.NextCallbackAt.After(now) {
			r.Outcome, r.Reason = OutcomeSkipped, "callback scheduled later"
			res.Results = append(res.Results, r)
			continue
		}
		if e.PhoneNumber == "" || c.AgentID == "" {
			r.Outcome, r.Reason = OutcomeSkipped, "missing lead phone or campaign agent"
			res.Results = append(res.Results, r)
			continue
		}
		if !c.WithinCallingHours(now) {
			r.Outcome, r.Reason = OutcomeSkipped, "outside calling hours"
			res.Results = append(res.Results, r)
			continue
		}
		number, score, ok := numbers.Select(available, e.PhoneNumber, now)
		if !ok {
			r.Outcome, r.Reason = OutcomeSkipped, "no eligible phone number"
			res.Results = append(res.Results, r)
			continue
		}
		if s.d.Pacer != nil {
			allowed, err := s.d.Pacer.Allow(ctx, t.ID, c.ID, c.CallsPerMinute, now)
			if err != nil {
				log.Warn("pacing check failed; entry left pending", "campaign_id", c.ID, "err", err)
				allowed = false
			}
			if !allowed {
				r.Outcome, r.Reason = OutcomeSkipped, "campaign pacing limit reached"
				res.Results = append(res.Results, r)
				continue
			}
		}
		available = without(available, number.ID)
		r.FromNumber, r.Score = number.Number, &score

		if err := s.d.Queue.Move(ctx, t.ID, e.ID, queue.StatusPending, queue.StatusCalling, ""); err != nil {
			if errors.Is(err, queue.ErrStaleTransition) {
				r.Outcome, r.Reason = OutcomeSkipped, "entry taken by another run"
				res.Results = append(res.Results, r)
				continue
			}
			return err
		}

		callID, err := s.d.Initiator.CreatePhoneCall(ctx, t.Credentials, telephony.OutboundCall{
			FromNumber: number.Number,
			ToNumber:   e.PhoneNumber,
			AgentID:    c.AgentID,
			Metadata: map[string]string{
				"tenant_id":      t.ID,
				"campaign_id":    c.ID,
				"lead_id":        e.LeadID,
				"queue_entry_id": e.ID,
			},
		})
		if err != nil {
			r.Outcome, r.Reason = OutcomeFailed, err.Error()
			s.fail(ctx, t.ID, e, queue.StatusCalling, err.Error())
			res.Failed++
			res.Results = append(res.Results, r)
			continue
		}

		if err := s.d.Numbers.RecordUse(ctx, t.ID, number.ID, now); err != nil {
			log.Warn("number usage update failed", "number_id", number.ID, "err", err)
		}
		if err := s.d.Queue.Move(ctx, t.ID, e.ID, queue.StatusCalling, queue.StatusCompleted, ""); err != nil {
			log.Warn("queue entry completion failed", "lead_id", e.LeadID, "err", err)
		}
		if _, err := s.d.Calls.Open(ctx, calls.LogEntry{
			TenantID:     t.ID,
			Vendor:       VendorRetell,
			VendorCallID: callID,
			CampaignID:   c.ID,
			LeadID:       e.LeadID,
			QueueEntryID: e.ID,
			From:         number.Number,
			To:           e.PhoneNumber,
			Direction:    calls.DirectionOutbound,
			Status:       calls.StatusInitiated,
		}); err != nil {
			log.Warn("call log create failed", "lead_id", e.LeadID, "call_id", callID, "err", err)
		}

		r.Outcome, r.VendorCallID = OutcomeDispatched, callID
		res.Dispatched++
		res.Results = append(res.Results, r)
	}
	return nil
}

func (s *Dispatcher) fail(ctx context.Context, tenantID string, e queue.Entry, from queue.Status, reason string) {
	if err := s.d.Queue.Move(ctx, tenantID, e.ID, from, queue.StatusFailed, reason); err != nil {
		logger.ForTenant(ctx, tenantID).Warn("queue entry fail transition failed", "lead_id", e.LeadID, "err", err)
	}
}

func without(pool []numbers.PhoneNumber, id string) []numbers.PhoneNumber {
	out := make([]numbers.PhoneNumber, 0, len(pool))
	for _, n := range pool {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}

// CleanupResult reports a stuck-call sweep.
type CleanupResult struct {
	Cleaned int `json:"cleaned"`
}

// CleanupStuckCalls forces calls left open past StuckAfter to no_answer.
func (s *Dispatcher) CleanupStuckCalls(ctx context.Context, t tenant.Tenant) (CleanupResult, error) {
	if t.ID == "" {
		return CleanupResult{}, tenant.ErrMissingTenant
	}
	n, err := s.d.Calls.CloseStuck(ctx, t.ID, s.d.Config.StuckAfter)
	if err != nil {
		return CleanupResult{}, err
	}
	if n > 0 {
		s.d.Audit.Record(ctx, audit.Event{
			TenantID: t.ID,
			Type:     audit.EventTypeStuckCallsCleaned,
			Message:  fmt.Sprintf("%d calls forced to no_answer", n),
		})
		logger.ForTenant(ctx, t.ID).Info("stuck calls cleaned", "count", n)
	}
	return CleanupResult{Cleaned: n}, nil
}

// QueueStatus counts the tenant's queue entries by status.
func (s *Dispatcher) QueueStatus(ctx context.Context, t tenant.Tenant) (queue.Stats, error) {
	if t.ID == "" {
		return queue.Stats{}, tenant.ErrMissingTenant
	}
	return s.d.Queue.Stats(ctx, t.ID)
}
