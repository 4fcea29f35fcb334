package dispositions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dialer-platform/internal/audit"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/events"
	"dialer-platform/internal/followups"
	"dialer-platform/internal/leads"
	"dialer-platform/pkg/logger"

	"github.com/google/uuid"
)

// Deps are the collaborators a Router mutates when routing a disposition.
type Deps struct {
	Repo      Repository
	Leads     *leads.Service
	Calls     calls.Repository
	FollowUps *followups.Scheduler
	Audit     *audit.Service
	Publisher events.Publisher
	// Topic receives a DispositionApplied event per routed disposition.
	Topic string
}

// Router turns a disposition applied to a (call, lead) pair into lead, pipeline
// and follow-up mutations.
type Router struct {
	repo      Repository
	leads     *leads.Service
	calls     calls.Repository
	followUps *followups.Scheduler
	audit     *audit.Service
	publisher events.Publisher
	topic     string
	clock     func() time.Time
}

func NewRouter(d Deps) *Router {
	return &Router{
		repo:      d.Repo,
		leads:     d.Leads,
		calls:     d.Calls,
		followUps: d.FollowUps,
		audit:     d.Audit,
		publisher: d.Publisher,
		topic:     d.Topic,
		clock:     time.Now,
	}
}

func (r *Router) WithClock(clock func() time.Time) *Router {
	r.clock = clock
	return r
}

// Input names the disposition and what it is applied to. CallID is optional.
type Input struct {
	Disposition string `json:"disposition"`
	LeadID      string `json:"lead_id"`
	CallID      string `json:"call_id,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Outcome reports every mutation Apply made.
type Outcome struct {
	Disposition    string               `json:"disposition"`
	LeadStatus     leads.Status         `json:"lead_status"`
	PipelineStage  string               `json:"pipeline_stage,omitempty"`
	FollowUps      []followups.FollowUp `json:"follow_ups"`
	NextCallbackAt *time.Time           `json:"next_callback_at,omitempty"`
	DoNotCall      bool                 `json:"do_not_call"`
}

// Apply routes one disposition. Unknown disposition names fail with ErrRuleNotFound
// before anything is written.
//
// The writes span several stores and are not one transaction. They run in an
// order that is safe to retry: the call outcome, lead status and pipeline
// position are overwrites, and follow-ups created before a failure are
// cancelled before the error is returned.
func (r *Router) Apply(ctx context.Context, tenantID string, in Input) (Outcome, error) {
	in.Disposition = strings.TrimSpace(in.Disposition)
	if tenantID == "" || in.LeadID == "" || in.Disposition == "" {
		return Outcome{}, fmt.Errorf("%w: tenant_id, lead_id and disposition required", ErrInvalidArgument)
	}
	log := logger.ForTenant(ctx, tenantID).With("lead_id", in.LeadID, "disposition", in.Disposition)

	rule, err := r.repo.GetRuleByName(ctx, tenantID, in.Disposition)
	if err != nil {
		return Outcome{}, err
	}
	var seq Sequence
	if rule.FollowUpAction == FollowUpSequence {
		if seq, err = r.repo.GetSequence(ctx, tenantID, rule.SequenceID); err != nil {
			return Outcome{}, fmt.Errorf("disposition %q: %w", rule.Name, err)
		}
	}
	lead, err := r.leads.Get(ctx, tenantID, in.LeadID)
	if err != nil {
		return Outcome{}, err
	}

	now := r.clock().UTC()
	campaignID := lead.CampaignID

	if in.CallID != "" {
		call, err := r.calls.Get(ctx, tenantID, in.CallID)
		if err != nil {
			return Outcome{}, err
		}
		call.Outcome = rule.Name
		if in.Notes != "" {
			call.Notes = in.Notes
		}
		call.UpdatedAt = now
		if err := r.calls.Update(ctx, call); err != nil {
			return Outcome{}, err
		}
		if call.CampaignID != "" {
			campaignID = call.CampaignID
		}
	}

	lead, err = r.leads.MarkContacted(ctx, tenantID, lead.ID, rule.LeadStatus(), now)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Disposition: rule.Name, LeadStatus: lead.Status, FollowUps: []followups.FollowUp{}}

	if rule.AutoCreateStage && rule.PipelineStage != "" {
		stage, err := r.repo.FindOrCreateStage(ctx, tenantID, rule.PipelineStage, now)
		if err != nil {
			return Outcome{}, err
		}
		if err := r.repo.UpsertLeadPosition(ctx, LeadPosition{TenantID: tenantID, LeadID: lead.ID, StageID: stage.ID, UpdatedAt: now}); err != nil {
			return Outcome{}, err
		}
		out.PipelineStage = stage.Name
	}

	switch rule.FollowUpAction {
	case FollowUpCallback:
		at := now.Add(time.Duration(rule.DelayMinutes) * time.Minute)
		f, err := r.followUps.Schedule(ctx, tenantID, followups.Plan{
			LeadID:      lead.ID,
			CampaignID:  campaignID,
			ActionType:  followups.ActionCallback,
			ScheduledAt: at,
		})
		if err != nil {
			return Outcome{}, err
		}
		if _, err := r.leads.SetNextCallback(ctx, tenantID, lead.ID, at); err != nil {
			r.unwind(ctx, tenantID, []followups.FollowUp{f})
			return Outcome{}, err
		}
		out.FollowUps = append(out.FollowUps, f)
		out.NextCallbackAt = &f.ScheduledAt
	case FollowUpSequence:
		for _, step := range seq.Expand(now) {
			f, err := r.followUps.Schedule(ctx, tenantID, followups.Plan{
				LeadID:      lead.ID,
				CampaignID:  campaignID,
				ActionType:  followups.ActionSequenceStep,
				ScheduledAt: step.At,
				SequenceID:  seq.ID,
				StepOrder:   step.Order,
				StepAction:  step.ActionType,
			})
			if err != nil {
				r.unwind(ctx, tenantID, out.FollowUps)
				return Outcome{}, err
			}
			out.FollowUps = append(out.FollowUps, f)
		}
	}

	if rule.MarkDoNotCall {
		if lead, err = r.leads.MarkDoNotCall(ctx, tenantID, lead.ID); err != nil {
			return Outcome{}, err
		}
		n, err := r.followUps.CancelPendingForLead(ctx, tenantID, lead.ID)
		if err != nil {
			return Outcome{}, err
		}
		out.LeadStatus = lead.Status
		out.DoNotCall = true
		log.Info("lead opted out by disposition", "cancelled_follow_ups", n)
	}

	r.audit.Record(ctx, audit.Event{
		TenantID:   tenantID,
		Type:       audit.EventTypeDispositionApplied,
		CampaignID: campaignID,
		LeadID:     lead.ID,
		CallID:     in.CallID,
		Message:    rule.Name,
		Metadata:   audit.Metadata(out),
	})
	if r.publisher != nil {
		err := r.publisher.Publish(ctx, r.topic, lead.ID, events.DispositionApplied{
			TenantID:         tenantID,
			LeadID:           lead.ID,
			CallID:           in.CallID,
			Disposition:      rule.Name,
			LeadStatus:       string(out.LeadStatus),
			PipelineStage:    out.PipelineStage,
			FollowUpsCreated: len(out.FollowUps),
			AppliedAt:        now,
		})
		if err != nil {
			log.Warn("disposition event publish failed", "err", err)
		}
	}

	log.Info("disposition applied", "lead_status", string(out.LeadStatus), "follow_ups", len(out.FollowUps))
	return out, nil
}

func (r *Router) ListRules(ctx context.Context, tenantID string) ([]Rule, error) {
	return r.repo.ListRules(ctx, tenantID)
}

// CreateRule registers a custom disposition.
func (r *Router) CreateRule(ctx context.Context, tenantID string, rule Rule) (Rule, error) {
	rule.Name = strings.TrimSpace(rule.Name)
	if tenantID == "" || rule.Name == "" {
		return Rule{}, fmt.Errorf("%w: tenant_id and name required", ErrInvalidArgument)
	}
	if rule.FollowUpAction == "" {
		rule.FollowUpAction = FollowUpNone
	}
	if !rule.FollowUpAction.Valid() {
		return Rule{}, fmt.Errorf("%w: unknown follow_up_action %q", ErrInvalidArgument, rule.FollowUpAction)
	}
	if rule.DelayMinutes < 0 {
		return Rule{}, fmt.Errorf("%w: delay_minutes must be >= 0", ErrInvalidArgument)
	}
	if rule.FollowUpAction == FollowUpSequence {
		if _, err := r.repo.GetSequence(ctx, tenantID, rule.SequenceID); err != nil {
			return Rule{}, err
		}
	}
	if rule.Sentiment == "" {
		rule.Sentiment = SentimentNeutral
	}
	rule.ID = uuid.NewString()
	rule.TenantID = tenantID
	rule.CreatedAt = r.clock().UTC()
	if err := r.repo.CreateRule(ctx, rule); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// unwind cancels follow-ups created by an Apply that failed before finishing,
// so a retry does not leave the lead with a duplicate schedule.
func (r *Router) unwind(ctx context.Context, tenantID string, created []followups.FollowUp) {
	for _, f := range created {
		if _, err := r.followUps.Cancel(ctx, tenantID, f.ID); err != nil {
			logger.ForTenant(ctx, tenantID).Warn("follow-up unwind failed", "follow_up_id", f.ID, "err", err)
		}
	}
}
