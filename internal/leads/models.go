package leads

import (
	"strings"
	"time"
)

// Lead is a tenant-scoped prospect contact record.
//
// Leads are never hard-deleted; they leave the dialing pool through Status.
// Invariant: a lead with DoNotCall set is never enqueued.
type Lead struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	PhoneNumber string `json:"phone_number" db:"phone_number"`
	Email       string `json:"email,omitempty" db:"email"`
	FirstName   string `json:"first_name,omitempty" db:"first_name"`
	LastName    string `json:"last_name,omitempty" db:"last_name"`
	Company     string `json:"company,omitempty" db:"company"`
	CampaignID  string `json:"campaign_id,omitempty" db:"campaign_id"`

	Status    Status `json:"status" db:"status"`
	DoNotCall bool   `json:"do_not_call" db:"do_not_call"`
	// Priority is 1 (lowest) to 5 (highest).
	Priority int `json:"priority" db:"priority"`

	NextCallbackAt  *time.Time `json:"next_callback_at,omitempty" db:"next_callback_at"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty" db:"last_contacted_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusNew           Status = "new"
	StatusContacted     Status = "contacted"
	StatusQualified     Status = "qualified"
	StatusCallback      Status = "callback"
	StatusConverted     Status = "converted"
	StatusNotInterested Status = "not_interested"
	StatusLost          Status = "lost"
	StatusDoNotCall     Status = "do_not_call"
)

const (
	MinPriority     = 1
	MaxPriority     = 5
	DefaultPriority = 3
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusCallback,
		StatusConverted, StatusNotInterested, StatusLost, StatusDoNotCall:
		return true
	default:
		return false
	}
}

// Dialable reports whether the lead may be put in front of the dialer.
func (l Lead) Dialable() bool {
	if strings.TrimSpace(l.PhoneNumber) == "" || l.DoNotCall {
		return false
	}
	switch l.Status {
	case StatusNew, StatusContacted, StatusCallback:
		return true
	default:
		return false
	}
}

func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Status     Status
	CampaignID string
	Limit      int
}
