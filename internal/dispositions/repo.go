package dispositions

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRuleNotFound     = errors.New("dispositions: disposition not registered")
	ErrNotFound         = errors.New("dispositions: not found")
	ErrConflict         = errors.New("dispositions: already exists")
	ErrInvalidArgument  = errors.New("dispositions: invalid argument")
	ErrSequenceNotFound = errors.New("dispositions: sequence not found")
)

// Repository is the persistence contract for rules, sequences and the pipeline.
type Repository interface {
	// CreateRule returns ErrConflict when the tenant already has a rule with that name.
	CreateRule(ctx context.Context, r Rule) error
	GetRuleByName(ctx context.Context, tenantID, name string) (Rule, error)
	ListRules(ctx context.Context, tenantID string) ([]Rule, error)

	CreateSequence(ctx context.Context, s Sequence) error
	GetSequence(ctx context.Context, tenantID, id string) (Sequence, error)
	FindSequenceByName(ctx context.Context, tenantID, name string) (Sequence, error)

	// FindOrCreateStage returns the stage called name, appending it to the pipeline if new.
	FindOrCreateStage(ctx context.Context, tenantID, name string, at time.Time) (Stage, error)
	// UpsertLeadPosition moves the lead to p.StageID; last write wins.
	UpsertLeadPosition(ctx context.Context, p LeadPosition) error
	GetLeadPosition(ctx context.Context, tenantID, leadID string) (LeadPosition, error)
}
