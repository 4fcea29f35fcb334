package audit

import "time"

// Event is an immutable, append-only internal audit record.
//
// Invariants:
// - Events are never updated or deleted.
// - tenant_id is required for tenancy isolation.
// - Audit is best-effort; critical flows never block on audit failures.
type Event struct {
	ID       string    `json:"id" db:"id"`
	TenantID string    `json:"tenant_id" db:"tenant_id"`
	Type     EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event, empty for automated flows.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	CampaignID string `json:"campaign_id,omitempty" db:"campaign_id"`
	LeadID     string `json:"lead_id,omitempty" db:"lead_id"`
	CallID     string `json:"call_id,omitempty" db:"call_id"`
	NumberID   string `json:"number_id,omitempty" db:"number_id"`

	Message string `json:"message,omitempty" db:"message"`
	// Metadata is optional JSON with full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeDispositionApplied EventType = "disposition_applied"
	EventTypeNumberQuarantined  EventType = "number_quarantined"
	EventTypeNumberReleased     EventType = "number_released"
	EventTypeStuckCallsCleaned  EventType = "stuck_calls_cleaned"
	EventTypeLeadOptedOut       EventType = "lead_opted_out"
)
