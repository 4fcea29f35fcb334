package campaigns

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dialer-platform/pkg/utils"
)

// PostgresRepo stores campaigns, campaign_leads, workflows and workflow_progress.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

const campaignColumns = `id, tenant_id, name, status, calls_per_minute, calling_start_hour, calling_end_hour,
	calling_timezone, max_attempts, script, workflow_id, agent_id, created_at, updated_at`

func scanCampaign(s rowScanner) (Campaign, error) {
	var c Campaign
	err := s.Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Status, &c.CallsPerMinute, &c.CallingHours.StartHour, &c.CallingHours.EndHour,
		&c.CallingHours.Timezone, &c.MaxAttempts, &c.Script, &c.WorkflowID, &c.AgentID, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *PostgresRepo) CreateCampaign(ctx context.Context, c Campaign) error {
	const q = `INSERT INTO campaigns (` + campaignColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err := r.db.ExecContext(ctx, q,
		c.ID, c.TenantID, c.Name, c.Status, c.CallsPerMinute, c.CallingHours.StartHour, c.CallingHours.EndHour,
		c.CallingHours.Timezone, c.MaxAttempts, c.Script, c.WorkflowID, c.AgentID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("campaigns: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetCampaign(ctx context.Context, tenantID, id string) (Campaign, error) {
	const q = `SELECT ` + campaignColumns + ` FROM campaigns WHERE tenant_id = $1 AND id = $2`
	c, err := scanCampaign(r.db.QueryRowContext(ctx, q, tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	if err != nil {
		return Campaign{}, fmt.Errorf("campaigns: get: %w", err)
	}
	return c, nil
}

func (r *PostgresRepo) ListCampaigns(ctx context.Context, tenantID string) ([]Campaign, error) {
	const q = `SELECT ` + campaignColumns + ` FROM campaigns WHERE tenant_id = $1 ORDER BY created_at, id`
	return r.queryCampaigns(ctx, q, tenantID)
}

func (r *PostgresRepo) ListActive(ctx context.Context, tenantID string) ([]Campaign, error) {
	const q = `SELECT ` + campaignColumns + ` FROM campaigns WHERE tenant_id = $1 AND status = 'active' ORDER BY created_at, id`
	return r.queryCampaigns(ctx, q, tenantID)
}

func (r *PostgresRepo) queryCampaigns(ctx context.Context, q string, args ...any) ([]Campaign, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("campaigns: list: %w", err)
	}
	defer rows.Close()
	var out []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("campaigns: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UpdateCampaign(ctx context.Context, c Campaign) error {
	const q = `UPDATE campaigns SET
	name = $3, status = $4, calls_per_minute = $5, calling_start_hour = $6, calling_end_hour = $7,
	calling_timezone = $8, max_attempts = $9, script = $10, workflow_id = $11, agent_id = $12, updated_at = $13
WHERE tenant_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q,
		c.TenantID, c.ID, c.Name, c.Status, c.CallsPerMinute, c.CallingHours.StartHour, c.CallingHours.EndHour,
		c.CallingHours.Timezone, c.MaxAttempts, c.Script, c.WorkflowID, c.AgentID, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("campaigns: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("campaigns: update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) AddLeads(ctx context.Context, tenantID, campaignID string, leadIDs []string, at time.Time) (int, error) {
	const q = `INSERT INTO campaign_leads (tenant_id, campaign_id, lead_id, added_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tenant_id, campaign_id, lead_id) DO NOTHING`
	inserted := 0
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		for _, id := range leadIDs {
			res, err := tx.ExecContext(ctx, q, tenantID, campaignID, id, at)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("campaigns: add leads: %w", err)
	}
	return inserted, nil
}

func (r *PostgresRepo) ListCampaignLeads(ctx context.Context, tenantID string, campaignIDs []string) ([]CampaignLead, error) {
	if len(campaignIDs) == 0 {
		return nil, nil
	}
	const q = `SELECT tenant_id, campaign_id, lead_id, added_at FROM campaign_leads
WHERE tenant_id = $1 AND campaign_id = ANY($2)
ORDER BY added_at, lead_id`
	rows, err := r.db.QueryContext(ctx, q, tenantID, campaignIDs)
	if err != nil {
		return nil, fmt.Errorf("campaigns: list leads: %w", err)
	}
	defer rows.Close()
	var out []CampaignLead
	for rows.Next() {
		var m CampaignLead
		if err := rows.Scan(&m.TenantID, &m.CampaignID, &m.LeadID, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("campaigns: scan lead: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CreateWorkflow(ctx context.Context, w Workflow) error {
	steps, err := json.Marshal(w.Steps)
	if err != nil {
		return fmt.Errorf("campaigns: encode steps: %w", err)
	}
	const q = `INSERT INTO workflows (id, tenant_id, name, steps, created_at) VALUES ($1,$2,$3,$4,$5)`
	if _, err := r.db.ExecContext(ctx, q, w.ID, w.TenantID, w.Name, steps, w.CreatedAt); err != nil {
		return fmt.Errorf("campaigns: insert workflow: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetWorkflow(ctx context.Context, tenantID, id string) (Workflow, error) {
	const q = `SELECT id, tenant_id, name, steps, created_at FROM workflows WHERE tenant_id = $1 AND id = $2`
	var (
		w     Workflow
		steps []byte
	)
	err := r.db.QueryRowContext(ctx, q, tenantID, id).Scan(&w.ID, &w.TenantID, &w.Name, &steps, &w.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Workflow{}, ErrNotFound
	}
	if err != nil {
		return Workflow{}, fmt.Errorf("campaigns: get workflow: %w", err)
	}
	if err := json.Unmarshal(steps, &w.Steps); err != nil {
		return Workflow{}, fmt.Errorf("campaigns: decode steps: %w", err)
	}
	return w, nil
}

func (r *PostgresRepo) CreateProgress(ctx context.Context, p WorkflowProgress) error {
	const q = `INSERT INTO workflow_progress
	(id, tenant_id, workflow_id, campaign_id, lead_id, status, current_step, next_action_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.db.ExecContext(ctx, q,
		p.ID, p.TenantID, p.WorkflowID, p.CampaignID, p.LeadID, p.Status, p.CurrentStep, p.NextActionAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("campaigns: insert progress: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ListLiveProgress(ctx context.Context, tenantID string) ([]WorkflowProgress, error) {
	const q = `SELECT id, tenant_id, workflow_id, campaign_id, lead_id, status, current_step, next_action_at, created_at, updated_at
FROM workflow_progress
WHERE tenant_id = $1 AND status IN ('pending', 'in_progress')`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, fmt.Errorf("campaigns: list progress: %w", err)
	}
	defer rows.Close()
	var out []WorkflowProgress
	for rows.Next() {
		var p WorkflowProgress
		if err := rows.Scan(&p.ID, &p.TenantID, &p.WorkflowID, &p.CampaignID, &p.LeadID, &p.Status,
			&p.CurrentStep, &p.NextActionAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("campaigns: scan progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
