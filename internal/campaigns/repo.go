package campaigns

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("campaigns: not found")
	ErrInvalidArgument   = errors.New("campaigns: invalid argument")
	ErrInvalidTransition = errors.New("campaigns: invalid status transition")
)

// Repository is the persistence contract for campaigns, membership and workflows.
type Repository interface {
	CreateCampaign(ctx context.Context, c Campaign) error
	GetCampaign(ctx context.Context, tenantID, id string) (Campaign, error)
	ListCampaigns(ctx context.Context, tenantID string) ([]Campaign, error)
	ListActive(ctx context.Context, tenantID string) ([]Campaign, error)
	UpdateCampaign(ctx context.Context, c Campaign) error

	// AddLeads inserts membership rows, ignoring ones that already exist. Returns inserted count.
	AddLeads(ctx context.Context, tenantID, campaignID string, leadIDs []string, at time.Time) (int, error)
	ListCampaignLeads(ctx context.Context, tenantID string, campaignIDs []string) ([]CampaignLead, error)

	CreateWorkflow(ctx context.Context, w Workflow) error
	GetWorkflow(ctx context.Context, tenantID, id string) (Workflow, error)

	CreateProgress(ctx context.Context, p WorkflowProgress) error
	// ListLiveProgress returns pending and in_progress rows.
	ListLiveProgress(ctx context.Context, tenantID string) ([]WorkflowProgress, error)
}
