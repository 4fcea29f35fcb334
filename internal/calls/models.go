package calls

import "time"

// LogEntry is one attempted call, outbound or inbound.
//
// Multi-tenant invariant: TenantID is required on every row.
// Vendor identifiers live in Vendor/VendorCallID, not in the core fields.
type LogEntry struct {
	ID           string `json:"id" db:"id"`
	TenantID     string `json:"tenant_id" db:"tenant_id"`
	Vendor       string `json:"vendor" db:"vendor"`
	VendorCallID string `json:"vendor_call_id,omitempty" db:"vendor_call_id"`

	CampaignID   string `json:"campaign_id,omitempty" db:"campaign_id"`
	LeadID       string `json:"lead_id,omitempty" db:"lead_id"`
	QueueEntryID string `json:"queue_entry_id,omitempty" db:"queue_entry_id"`

	From      string    `json:"from" db:"from_number"`
	To        string    `json:"to" db:"to_number"`
	Direction Direction `json:"direction" db:"direction"`

	Status  Status `json:"status" db:"status"`
	Outcome string `json:"outcome,omitempty" db:"outcome"`
	Notes   string `json:"notes,omitempty" db:"notes"`

	DurationSeconds int    `json:"duration" db:"duration_seconds"`
	Transcript      string `json:"transcript,omitempty" db:"transcript"`
	Summary         string `json:"summary,omitempty" db:"summary"`
	RecordingURL    string `json:"recording_url,omitempty" db:"recording_url"`

	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusNoAnswer   Status = "no_answer"
	StatusBusy       Status = "busy"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// Open reports whether the call has not reached a terminal status.
func (s Status) Open() bool {
	switch s {
	case StatusInitiated, StatusRinging, StatusInProgress:
		return true
	default:
		return false
	}
}

func (s Status) rank() int {
	switch s {
	case StatusInitiated:
		return 0
	case StatusRinging:
		return 1
	case StatusInProgress:
		return 2
	default:
		return 3
	}
}

// CanAdvance reports whether a lifecycle event may move a call from one status to another.
// Out-of-order webhooks never move a call backwards, and terminal statuses are final.
func CanAdvance(from, to Status) bool {
	if from == to {
		return false
	}
	if !from.Open() {
		return false
	}
	return to.rank() > from.rank()
}

// Range filters call logs by created_at in [From, To). Zero bounds are open.
type Range struct {
	From       time.Time
	To         time.Time
	CampaignID string
}

func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}
