package followups

import (
	"context"
	"errors"
	"fmt"

	"dialer-platform/internal/campaigns"
	"dialer-platform/internal/events"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/queue"
	"dialer-platform/pkg/logger"
)

// CallbackPriority puts callbacks ahead of freshly imported leads in the dialing queue.
const CallbackPriority = 5

var ErrLeadNotDialable = errors.New("followups: lead is not dialable")

// DefaultPerformer turns callbacks into dialing-queue entries and hands sequence
// steps to the sequence runner over the event bus.
type DefaultPerformer struct {
	leads     leads.Repository
	campaigns campaigns.Repository
	queue     *queue.Service
	publisher events.Publisher
	topic     string
}

func NewDefaultPerformer(l leads.Repository, c campaigns.Repository, q *queue.Service, p events.Publisher, sequenceTopic string) *DefaultPerformer {
	return &DefaultPerformer{leads: l, campaigns: c, queue: q, publisher: p, topic: sequenceTopic}
}

func (p *DefaultPerformer) Perform(ctx context.Context, f FollowUp) error {
	switch f.ActionType {
	case ActionCallback:
		return p.callback(ctx, f)
	case ActionSequenceStep:
		return p.publisher.Publish(ctx, p.topic, f.LeadID, events.SequenceStepDue{
			TenantID:   f.TenantID,
			FollowUpID: f.ID,
			LeadID:     f.LeadID,
			CampaignID: f.CampaignID,
			SequenceID: f.SequenceID,
			StepOrder:  f.StepOrder,
			ActionType: f.StepAction,
			DueAt:      f.ScheduledAt,
		})
	default:
		return fmt.Errorf("%w: unknown action_type %q", ErrInvalidArgument, f.ActionType)
	}
}

func (p *DefaultPerformer) callback(ctx context.Context, f FollowUp) error {
	lead, err := p.leads.Get(ctx, f.TenantID, f.LeadID)
	if err != nil {
		return err
	}
	if !lead.Dialable() {
		return ErrLeadNotDialable
	}
	campaignID := f.CampaignID
	if campaignID == "" {
		campaignID = lead.CampaignID
	}
	if campaignID == "" {
		return fmt.Errorf("%w: callback has no campaign", ErrInvalidArgument)
	}
	c, err := p.campaigns.GetCampaign(ctx, f.TenantID, campaignID)
	if err != nil {
		return err
	}

	n, err := p.queue.Enqueue(ctx, f.TenantID, []queue.Request{{
		CampaignID:  c.ID,
		LeadID:      lead.ID,
		PhoneNumber: lead.PhoneNumber,
		Priority:    CallbackPriority,
		MaxAttempts: c.MaxAttempts,
	}})
	if err != nil {
		return err
	}
	if n == 0 {
		logger.ForTenant(ctx, f.TenantID).Info("callback lead already queued", "lead_id", lead.ID, "campaign_id", c.ID)
	}
	return nil
}
