package numbers

import (
	"strings"
	"time"
)

// PhoneNumber is a caller-ID number owned by a tenant.
//
// Invariant: only active numbers whose quarantine has lapsed are eligible for selection.
// DailyCalls is reset by an external job.
type PhoneNumber struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`
	Number   string `json:"number" db:"number"`
	Provider string `json:"provider,omitempty" db:"provider"`
	Status   Status `json:"status" db:"status"`

	DailyCalls      int        `json:"daily_calls" db:"daily_calls"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	IsSpam          bool       `json:"is_spam" db:"is_spam"`
	QuarantineUntil *time.Time `json:"quarantine_until,omitempty" db:"quarantine_until"`

	// RetellPhoneID is set once the number is registered with the voice-agent vendor.
	RetellPhoneID string `json:"retell_phone_id,omitempty" db:"retell_phone_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusActive      Status = "active"
	StatusQuarantined Status = "quarantined"
	StatusInactive    Status = "inactive"
	StatusReleased    Status = "released"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusQuarantined, StatusInactive, StatusReleased:
		return true
	default:
		return false
	}
}

// Eligible reports whether the number may be used as caller ID at now.
func (n PhoneNumber) Eligible(now time.Time) bool {
	if n.Status != StatusActive {
		return false
	}
	return n.QuarantineUntil == nil || !n.QuarantineUntil.After(now)
}

func (n PhoneNumber) VendorRegistered() bool {
	return strings.TrimSpace(n.RetellPhoneID) != ""
}

// Digits strips everything but 0-9.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// AreaCode returns the three digits preceding the last seven, or "" if there are fewer than ten digits.
func AreaCode(s string) string {
	d := Digits(s)
	if len(d) < 10 {
		return ""
	}
	return d[len(d)-10 : len(d)-7]
}

// NormalizeE164 formats a North American or already-international number as +<digits>.
func NormalizeE164(s string) string {
	d := Digits(s)
	if d == "" {
		return ""
	}
	if len(d) == 10 {
		d = "1" + d
	}
	return "+" + d
}
