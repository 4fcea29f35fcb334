package sms

import (
	"strings"
	"time"
)

// Message is one inbound or outbound SMS.
type Message struct {
	ID              string    `json:"id" db:"id"`
	TenantID        string    `json:"tenant_id" db:"tenant_id"`
	Vendor          string    `json:"vendor" db:"vendor"`
	VendorMessageID string    `json:"vendor_message_id,omitempty" db:"vendor_message_id"`
	LeadID          string    `json:"lead_id,omitempty" db:"lead_id"`
	Direction       Direction `json:"direction" db:"direction"`
	From            string    `json:"from" db:"from_number"`
	To              string    `json:"to" db:"to_number"`
	Body            string    `json:"body" db:"body"`
	Status          Status    `json:"status" db:"status"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Status string

const (
	StatusReceived  Status = "received"
	StatusQueued    Status = "queued"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

var optOutKeywords = map[string]struct{}{
	"STOP":        {},
	"STOPALL":     {},
	"UNSUBSCRIBE": {},
	"CANCEL":      {},
	"END":         {},
	"QUIT":        {},
}

// IsOptOut reports whether an inbound body is a carrier opt-out keyword.
func IsOptOut(body string) bool {
	_, ok := optOutKeywords[strings.ToUpper(strings.TrimSpace(body))]
	return ok
}
