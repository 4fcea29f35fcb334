// Package events publishes domain events for out-of-process consumers:
// the workflow executor, the follow-up sequence runner and analytics.
package events

import (
	"context"
	"time"
)

// Publisher hands an event to the message bus. The caller's responsibility ends at enqueue.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// Topics names the destinations events are routed to.
type Topics struct {
	Workflow    string
	Sequence    string
	Disposition string
}

// ActionExecutePending asks the workflow executor to advance pending SMS-first leads.
const ActionExecutePending = "execute_pending"

// WorkflowExecute is the workflow executor handoff. Keyed by campaign.
type WorkflowExecute struct {
	Action     string    `json:"action"`
	TenantID   string    `json:"tenant_id"`
	CampaignID string    `json:"campaign_id"`
	WorkflowID string    `json:"workflow_id"`
	LeadIDs    []string  `json:"lead_ids"`
	IssuedAt   time.Time `json:"issued_at"`
}

// SequenceStepDue is emitted when a scheduled sequence step comes due. Keyed by lead.
type SequenceStepDue struct {
	TenantID   string    `json:"tenant_id"`
	FollowUpID string    `json:"follow_up_id"`
	LeadID     string    `json:"lead_id"`
	CampaignID string    `json:"campaign_id,omitempty"`
	SequenceID string    `json:"sequence_id"`
	StepOrder  int       `json:"step_order"`
	ActionType string    `json:"action_type"`
	DueAt      time.Time `json:"due_at"`
}

// DispositionApplied is emitted after a disposition has been routed. Keyed by lead.
type DispositionApplied struct {
	TenantID         string    `json:"tenant_id"`
	LeadID           string    `json:"lead_id"`
	CallID           string    `json:"call_id,omitempty"`
	Disposition      string    `json:"disposition"`
	LeadStatus       string    `json:"lead_status"`
	PipelineStage    string    `json:"pipeline_stage,omitempty"`
	FollowUpsCreated int       `json:"follow_ups_created"`
	AppliedAt        time.Time `json:"applied_at"`
}
