package campaigns

import (
	"time"
)

// Campaign is a tenant-scoped outbound calling effort.
type Campaign struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`
	Name     string `json:"name" db:"name"`
	Status   Status `json:"status" db:"status"`

	CallsPerMinute int          `json:"calls_per_minute" db:"calls_per_minute"`
	CallingHours   CallingHours `json:"calling_hours" db:"calling_hours"`
	MaxAttempts    int          `json:"max_attempts" db:"max_attempts"`

	Script     string `json:"script,omitempty" db:"script"`
	WorkflowID string `json:"workflow_id,omitempty" db:"workflow_id"`
	// AgentID references the voice agent that runs the calls.
	AgentID string `json:"agent_id,omitempty" db:"agent_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusCompleted:
		return true
	default:
		return false
	}
}

const (
	DefaultCallsPerMinute = 10
	DefaultMaxAttempts    = 3
)

// CallingHours is a local-time window [StartHour, EndHour). A zero window means always open.
// EndHour < StartHour wraps past midnight.
type CallingHours struct {
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
	Timezone  string `json:"timezone,omitempty"`
}

func (h CallingHours) IsZero() bool { return h.StartHour == 0 && h.EndHour == 0 }

// Contains reports whether now falls inside the window.
// An unknown timezone falls back to UTC.
func (h CallingHours) Contains(now time.Time) bool {
	if h.IsZero() || h.StartHour == h.EndHour {
		return true
	}
	loc := time.UTC
	if h.Timezone != "" {
		if l, err := time.LoadLocation(h.Timezone); err == nil {
			loc = l
		}
	}
	hour := now.In(loc).Hour()
	if h.StartHour < h.EndHour {
		return hour >= h.StartHour && hour < h.EndHour
	}
	return hour >= h.StartHour || hour < h.EndHour
}

func (c Campaign) WithinCallingHours(now time.Time) bool {
	return c.CallingHours.Contains(now)
}

// CampaignLead is the membership join between campaigns and leads.
type CampaignLead struct {
	TenantID   string    `json:"tenant_id" db:"tenant_id"`
	CampaignID string    `json:"campaign_id" db:"campaign_id"`
	LeadID     string    `json:"lead_id" db:"lead_id"`
	AddedAt    time.Time `json:"added_at" db:"added_at"`
}

// Workflow is an ordered list of automated steps applied to a lead.
type Workflow struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	Steps     []Step    `json:"steps" db:"steps"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type StepType string

const (
	StepSMS  StepType = "sms"
	StepCall StepType = "call"
	StepWait StepType = "wait"
)

type Step struct {
	Order        int      `json:"order"`
	Type         StepType `json:"type"`
	DelayMinutes int      `json:"delay_minutes"`
	Template     string   `json:"template,omitempty"`
}

// FirstStep returns the lowest-ordered step.
func (w Workflow) FirstStep() (Step, bool) {
	if len(w.Steps) == 0 {
		return Step{}, false
	}
	first := w.Steps[0]
	for _, s := range w.Steps[1:] {
		if s.Order < first.Order {
			first = s
		}
	}
	return first, true
}

// StartsWithSMS classifies a workflow by its first step only.
// Later SMS steps do not make a call-first workflow SMS-first.
func (w Workflow) StartsWithSMS() bool {
	s, ok := w.FirstStep()
	return ok && s.Type == StepSMS
}

// WorkflowProgress tracks one lead moving through a workflow.
type WorkflowProgress struct {
	ID           string         `json:"id" db:"id"`
	TenantID     string         `json:"tenant_id" db:"tenant_id"`
	WorkflowID   string         `json:"workflow_id" db:"workflow_id"`
	CampaignID   string         `json:"campaign_id" db:"campaign_id"`
	LeadID       string         `json:"lead_id" db:"lead_id"`
	Status       ProgressStatus `json:"status" db:"status"`
	CurrentStep  int            `json:"current_step" db:"current_step"`
	NextActionAt *time.Time     `json:"next_action_at,omitempty" db:"next_action_at"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

type ProgressStatus string

const (
	ProgressPending    ProgressStatus = "pending"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressFailed     ProgressStatus = "failed"
)

// Live reports whether the progress row still owns the lead.
func (s ProgressStatus) Live() bool {
	return s == ProgressPending || s == ProgressInProgress
}
