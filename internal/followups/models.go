package followups

import "time"

// FollowUp is a durable, time-delayed next action for a lead.
// An external executor polls for pending rows whose ScheduledAt has passed.
type FollowUp struct {
	ID         string     `json:"id" db:"id"`
	TenantID   string     `json:"tenant_id" db:"tenant_id"`
	LeadID     string     `json:"lead_id" db:"lead_id"`
	CampaignID string     `json:"campaign_id,omitempty" db:"campaign_id"`
	ActionType ActionType `json:"action_type" db:"action_type"`

	// SequenceID and StepOrder are set for sequence steps only.
	SequenceID string `json:"sequence_id,omitempty" db:"sequence_id"`
	StepOrder  int    `json:"step_order,omitempty" db:"step_order"`
	// StepAction is what the sequence step does (call, sms, email).
	StepAction string `json:"step_action,omitempty" db:"step_action"`

	ScheduledAt time.Time  `json:"scheduled_at" db:"scheduled_at"`
	Status      Status     `json:"status" db:"status"`
	LastError   string     `json:"last_error,omitempty" db:"last_error"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

type ActionType string

const (
	ActionCallback     ActionType = "callback"
	ActionSequenceStep ActionType = "sequence_step"
)

func (a ActionType) Valid() bool {
	return a == ActionCallback || a == ActionSequenceStep
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)
