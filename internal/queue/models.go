package queue

import "time"

// Entry is one (campaign, lead) work item awaiting an outbound call.
//
// Invariant: at most one live (pending or calling) entry per (tenant, campaign, lead).
type Entry struct {
	ID          string `json:"id" db:"id"`
	TenantID    string `json:"tenant_id" db:"tenant_id"`
	CampaignID  string `json:"campaign_id" db:"campaign_id"`
	LeadID      string `json:"lead_id" db:"lead_id"`
	PhoneNumber string `json:"phone_number" db:"phone_number"`

	Status      Status `json:"status" db:"status"`
	Attempts    int    `json:"attempts" db:"attempts"`
	MaxAttempts int    `json:"max_attempts" db:"max_attempts"`
	Priority    int    `json:"priority" db:"priority"`
	LastError   string `json:"last_error,omitempty" db:"last_error"`

	ScheduledAt time.Time `json:"scheduled_at" db:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCalling   Status = "calling"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Live reports whether an entry in status still holds its (campaign, lead) slot.
func (s Status) Live() bool {
	return s == StatusPending || s == StatusCalling
}

// CanTransition encodes pending -> calling -> {completed, failed}.
// pending -> failed covers entries rejected before a call is attempted.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusCalling || to == StatusFailed
	case StatusCalling:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// countsAttempt reports whether moving into to consumes a dispatch attempt.
func countsAttempt(to Status) bool {
	return to == StatusCompleted || to == StatusFailed
}

// Key identifies the live slot an entry occupies.
func Key(campaignID, leadID string) string {
	return campaignID + "|" + leadID
}

// Stats counts entries by status.
type Stats struct {
	Pending   int `json:"pending"`
	Calling   int `json:"calling"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

func (s *Stats) add(st Status, n int) {
	switch st {
	case StatusPending:
		s.Pending += n
	case StatusCalling:
		s.Calling += n
	case StatusCompleted:
		s.Completed += n
	case StatusFailed:
		s.Failed += n
	}
}
