package campaigns

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service validates campaign and workflow mutations.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) Repo() Repository { return s.repo }

// Create stores a new campaign. Campaigns start as draft unless a status is given.
func (s *Service) Create(ctx context.Context, tenantID string, c Campaign) (Campaign, error) {
	if tenantID == "" {
		return Campaign{}, fmt.Errorf("%w: tenant_id required", ErrInvalidArgument)
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Campaign{}, fmt.Errorf("%w: name required", ErrInvalidArgument)
	}
	if c.Status == "" {
		c.Status = StatusDraft
	}
	if !c.Status.Valid() {
		return Campaign{}, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, c.Status)
	}
	if c.CallsPerMinute == 0 {
		c.CallsPerMinute = DefaultCallsPerMinute
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.CallsPerMinute < 0 || c.MaxAttempts < 0 {
		return Campaign{}, fmt.Errorf("%w: pacing values must be positive", ErrInvalidArgument)
	}
	if err := validateHours(c.CallingHours); err != nil {
		return Campaign{}, err
	}
	if c.WorkflowID != "" {
		if _, err := s.repo.GetWorkflow(ctx, tenantID, c.WorkflowID); err != nil {
			return Campaign{}, fmt.Errorf("workflow %s: %w", c.WorkflowID, err)
		}
	}

	now := s.clock().UTC()
	c.ID = uuid.NewString()
	c.TenantID = tenantID
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.repo.CreateCampaign(ctx, c); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

func validateHours(h CallingHours) error {
	if h.StartHour < 0 || h.StartHour > 23 || h.EndHour < 0 || h.EndHour > 24 {
		return fmt.Errorf("%w: calling hours out of range", ErrInvalidArgument)
	}
	if h.Timezone != "" {
		if _, err := time.LoadLocation(h.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidArgument, h.Timezone)
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (Campaign, error) {
	return s.repo.GetCampaign(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID string) ([]Campaign, error) {
	return s.repo.ListCampaigns(ctx, tenantID)
}

// CanTransition reports whether a campaign may move from one status to another.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusActive || to == StatusCompleted
	case StatusActive:
		return to == StatusPaused || to == StatusCompleted
	case StatusPaused:
		return to == StatusActive || to == StatusCompleted
	default:
		return false
	}
}

func (s *Service) SetStatus(ctx context.Context, tenantID, id string, to Status) (Campaign, error) {
	c, err := s.repo.GetCampaign(ctx, tenantID, id)
	if err != nil {
		return Campaign{}, err
	}
	if c.Status == to {
		return c, nil
	}
	if !CanTransition(c.Status, to) {
		return Campaign{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}
	c.Status = to
	c.UpdatedAt = s.clock().UTC()
	if err := s.repo.UpdateCampaign(ctx, c); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

// AddLeads attaches leads to a campaign. Existing members are ignored.
func (s *Service) AddLeads(ctx context.Context, tenantID, campaignID string, leadIDs []string) (int, error) {
	if _, err := s.repo.GetCampaign(ctx, tenantID, campaignID); err != nil {
		return 0, err
	}
	if len(leadIDs) == 0 {
		return 0, fmt.Errorf("%w: lead_ids required", ErrInvalidArgument)
	}
	return s.repo.AddLeads(ctx, tenantID, campaignID, leadIDs, s.clock().UTC())
}

func (s *Service) Members(ctx context.Context, tenantID, campaignID string) ([]CampaignLead, error) {
	return s.repo.ListCampaignLeads(ctx, tenantID, []string{campaignID})
}

// CreateWorkflow stores a workflow with its steps sorted by order.
func (s *Service) CreateWorkflow(ctx context.Context, tenantID string, w Workflow) (Workflow, error) {
	if tenantID == "" {
		return Workflow{}, fmt.Errorf("%w: tenant_id required", ErrInvalidArgument)
	}
	if len(w.Steps) == 0 {
		return Workflow{}, fmt.Errorf("%w: workflow needs at least one step", ErrInvalidArgument)
	}
	for _, st := range w.Steps {
		switch st.Type {
		case StepSMS, StepCall, StepWait:
		default:
			return Workflow{}, fmt.Errorf("%w: unknown step type %q", ErrInvalidArgument, st.Type)
		}
		if st.DelayMinutes < 0 {
			return Workflow{}, fmt.Errorf("%w: negative delay", ErrInvalidArgument)
		}
	}
	sort.SliceStable(w.Steps, func(i, j int) bool { return w.Steps[i].Order < w.Steps[j].Order })

	w.ID = uuid.NewString()
	w.TenantID = tenantID
	w.CreatedAt = s.clock().UTC()
	if err := s.repo.CreateWorkflow(ctx, w); err != nil {
		return Workflow{}, err
	}
	return w, nil
}
