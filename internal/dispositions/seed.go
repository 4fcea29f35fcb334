package dispositions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// HotLeadNurture is the default sequence attached to "Hot Lead".
const HotLeadNurture = "Hot Lead Nurture"

type seedRule struct {
	Rule
	sequence string
}

var defaultSequences = []Sequence{
	{Name: HotLeadNurture, Steps: []SequenceStep{
		{Order: 1, DelayMinutes: 10, ActionType: "call"},
		{Order: 2, DelayMinutes: 1440, ActionType: "sms"},
	}},
}

var defaultRules = []seedRule{
	{Rule: Rule{Name: "Interested", Sentiment: SentimentPositive, PipelineStage: "Interested", AutoCreateStage: true, FollowUpAction: FollowUpCallback, DelayMinutes: 1440}},
	{Rule: Rule{Name: "Hot Lead", Sentiment: SentimentPositive, PipelineStage: "Hot Leads", AutoCreateStage: true, FollowUpAction: FollowUpSequence}, sequence: HotLeadNurture},
	{Rule: Rule{Name: "Appointment Booked", Sentiment: SentimentPositive, PipelineStage: "Appointment Set", AutoCreateStage: true, FollowUpAction: FollowUpNone}},
	{Rule: Rule{Name: "Qualified", Sentiment: SentimentPositive, PipelineStage: "Qualified", AutoCreateStage: true, FollowUpAction: FollowUpNone}},
	{Rule: Rule{Name: "Callback Requested", Sentiment: SentimentNeutral, PipelineStage: "Follow Up", AutoCreateStage: true, FollowUpAction: FollowUpCallback, DelayMinutes: 60}},
	{Rule: Rule{Name: "Gatekeeper", Sentiment: SentimentNeutral, FollowUpAction: FollowUpCallback, DelayMinutes: 1440}},
	{Rule: Rule{Name: "Voicemail", Sentiment: SentimentNeutral, FollowUpAction: FollowUpCallback, DelayMinutes: 240}},
	{Rule: Rule{Name: "No Answer", Sentiment: SentimentNeutral, FollowUpAction: FollowUpCallback, DelayMinutes: 120}},
	{Rule: Rule{Name: "Busy", Sentiment: SentimentNeutral, FollowUpAction: FollowUpCallback, DelayMinutes: 30}},
	{Rule: Rule{Name: "Not Interested", Sentiment: SentimentNegative, PipelineStage: "Lost", AutoCreateStage: true, FollowUpAction: FollowUpNone}},
	{Rule: Rule{Name: "Wrong Number", Sentiment: SentimentNegative, FollowUpAction: FollowUpNone}},
	{Rule: Rule{Name: "Do Not Call", Sentiment: SentimentNegative, PipelineStage: "Lost", AutoCreateStage: true, FollowUpAction: FollowUpNone, MarkDoNotCall: true}},
}

// SeedResult counts rows inserted by SeedDefaults.
type SeedResult struct {
	Rules     int `json:"rules_inserted"`
	Sequences int `json:"sequences_inserted"`
}

// SeedDefaults installs the default sequences and disposition catalog for a tenant.
// Names that already exist are left untouched, so repeated calls insert nothing.
func (r *Router) SeedDefaults(ctx context.Context, tenantID string) (SeedResult, error) {
	if tenantID == "" {
		return SeedResult{}, fmt.Errorf("%w: tenant_id required", ErrInvalidArgument)
	}
	now := r.clock().UTC()
	var res SeedResult

	sequenceIDs := map[string]string{}
	for _, def := range defaultSequences {
		existing, err := r.repo.FindSequenceByName(ctx, tenantID, def.Name)
		if err == nil {
			sequenceIDs[def.Name] = existing.ID
			continue
		}
		if !errors.Is(err, ErrSequenceNotFound) {
			return res, err
		}
		s := def
		s.ID = uuid.NewString()
		s.TenantID = tenantID
		s.CreatedAt = now
		if err := r.repo.CreateSequence(ctx, s); err != nil {
			return res, err
		}
		sequenceIDs[s.Name] = s.ID
		res.Sequences++
	}

	for _, def := range defaultRules {
		rule := def.Rule
		rule.ID = uuid.NewString()
		rule.TenantID = tenantID
		rule.SequenceID = sequenceIDs[def.sequence]
		rule.CreatedAt = now
		err := r.repo.CreateRule(ctx, rule)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return res, err
		}
		res.Rules++
	}
	return res, nil
}
