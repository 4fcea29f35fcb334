package dispositions

import (
	"sort"
	"time"

	"dialer-platform/internal/leads"
)

// Rule maps a disposition name to the automation it triggers.
// Rules are reference data: seeded once per tenant and read at routing time.
type Rule struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	Sentiment Sentiment `json:"sentiment" db:"sentiment"`

	PipelineStage   string `json:"pipeline_stage,omitempty" db:"pipeline_stage"`
	AutoCreateStage bool   `json:"auto_create_pipeline_stage" db:"auto_create_pipeline_stage"`

	FollowUpAction FollowUpAction `json:"follow_up_action" db:"follow_up_action"`
	DelayMinutes   int            `json:"delay_minutes" db:"delay_minutes"`
	SequenceID     string         `json:"sequence_id,omitempty" db:"sequence_id"`

	// MarkDoNotCall removes the lead from dialing for good and cancels its pending follow-ups.
	MarkDoNotCall bool `json:"mark_do_not_call" db:"mark_do_not_call"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

type FollowUpAction string

const (
	FollowUpNone     FollowUpAction = "none"
	FollowUpCallback FollowUpAction = "callback"
	FollowUpSequence FollowUpAction = "sequence"
)

func (a FollowUpAction) Valid() bool {
	switch a {
	case FollowUpNone, FollowUpCallback, FollowUpSequence:
		return true
	default:
		return false
	}
}

// LeadStatus derives the lead status a rule moves the lead to.
func (r Rule) LeadStatus() leads.Status {
	switch r.Sentiment {
	case SentimentPositive:
		return leads.StatusQualified
	case SentimentNegative:
		return leads.StatusLost
	default:
		return leads.StatusContacted
	}
}

// Sequence is an ordered multi-step follow-up plan.
type Sequence struct {
	ID        string         `json:"id" db:"id"`
	TenantID  string         `json:"tenant_id" db:"tenant_id"`
	Name      string         `json:"name" db:"name"`
	Steps     []SequenceStep `json:"steps" db:"steps"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// SequenceStep fires DelayMinutes after the previous step.
type SequenceStep struct {
	Order        int    `json:"order"`
	DelayMinutes int    `json:"delay_minutes"`
	ActionType   string `json:"action_type"`
}

// ScheduledStep is a sequence step pinned to an absolute time.
type ScheduledStep struct {
	SequenceStep
	At time.Time
}

// Expand orders steps and offsets each by the cumulative delay of itself and every earlier step.
func (s Sequence) Expand(now time.Time) []ScheduledStep {
	steps := make([]SequenceStep, len(s.Steps))
	copy(steps, s.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })

	out := make([]ScheduledStep, 0, len(steps))
	total := 0
	for _, st := range steps {
		total += st.DelayMinutes
		out = append(out, ScheduledStep{SequenceStep: st, At: now.Add(time.Duration(total) * time.Minute)})
	}
	return out
}

// Stage is a named bucket in the tenant's sales pipeline.
type Stage struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// LeadPosition places a lead in one stage. There is at most one row per (tenant, lead).
type LeadPosition struct {
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	LeadID    string    `json:"lead_id" db:"lead_id"`
	StageID   string    `json:"stage_id" db:"stage_id"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
