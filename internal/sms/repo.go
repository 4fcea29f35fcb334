package sms

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("sms: not found")

// Repository is the persistence contract for the SMS log.
type Repository interface {
	Create(ctx context.Context, m Message) error
	FindByVendorID(ctx context.Context, tenantID, vendorMessageID string) (Message, error)
	Update(ctx context.Context, m Message) error
	ListForLead(ctx context.Context, tenantID, leadID string) ([]Message, error)
}
