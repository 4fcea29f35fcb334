package followups

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresRepo stores follow-ups in scheduled_follow_ups.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const followUpColumns = `id, tenant_id, lead_id, campaign_id, action_type, sequence_id, step_order, step_action,
	scheduled_at, status, last_error, completed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFollowUp(s rowScanner) (FollowUp, error) {
	var f FollowUp
	err := s.Scan(&f.ID, &f.TenantID, &f.LeadID, &f.CampaignID, &f.ActionType, &f.SequenceID, &f.StepOrder, &f.StepAction,
		&f.ScheduledAt, &f.Status, &f.LastError, &f.CompletedAt, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (r *PostgresRepo) Create(ctx context.Context, f FollowUp) error {
	const q = `INSERT INTO scheduled_follow_ups (` + followUpColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err := r.db.ExecContext(ctx, q, f.ID, f.TenantID, f.LeadID, f.CampaignID, f.ActionType, f.SequenceID, f.StepOrder,
		f.StepAction, f.ScheduledAt, f.Status, f.LastError, f.CompletedAt, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("followups: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, tenantID, id string) (FollowUp, error) {
	const q = `SELECT ` + followUpColumns + ` FROM scheduled_follow_ups WHERE tenant_id = $1 AND id = $2`
	f, err := scanFollowUp(r.db.QueryRowContext(ctx, q, tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return FollowUp{}, ErrNotFound
	}
	if err != nil {
		return FollowUp{}, fmt.Errorf("followups: get: %w", err)
	}
	return f, nil
}

func (r *PostgresRepo) Due(ctx context.Context, tenantID string, now time.Time, limit int) ([]FollowUp, error) {
	q := `SELECT ` + followUpColumns + ` FROM scheduled_follow_ups
WHERE tenant_id = $1 AND status = 'pending' AND scheduled_at <= $2
ORDER BY scheduled_at ASC`
	args := []any{tenantID, now}
	if limit > 0 {
		q += " LIMIT $3"
		args = append(args, limit)
	}
	return r.query(ctx, q, args...)
}

func (r *PostgresRepo) query(ctx context.Context, q string, args ...any) ([]FollowUp, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("followups: list: %w", err)
	}
	defer rows.Close()
	var out []FollowUp
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, fmt.Errorf("followups: scan: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Finish(ctx context.Context, tenantID, id string, status Status, lastErr string, at time.Time) error {
	const q = `UPDATE scheduled_follow_ups
SET status = $3, last_error = $4, updated_at = $5,
    completed_at = CASE WHEN $3 = 'completed' THEN $5 ELSE completed_at END
WHERE tenant_id = $1 AND id = $2 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, q, tenantID, id, status, lastErr, at)
	if err != nil {
		return fmt.Errorf("followups: finish: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("followups: finish: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.Get(ctx, tenantID, id); err != nil {
		return err
	}
	return ErrNotPending
}

func (r *PostgresRepo) CancelPendingForLead(ctx context.Context, tenantID, leadID string, at time.Time) (int, error) {
	const q = `UPDATE scheduled_follow_ups SET status = 'cancelled', updated_at = $3
WHERE tenant_id = $1 AND lead_id = $2 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, q, tenantID, leadID, at)
	if err != nil {
		return 0, fmt.Errorf("followups: cancel for lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("followups: cancel for lead: %w", err)
	}
	return int(n), nil
}

func (r *PostgresRepo) ListForLead(ctx context.Context, tenantID, leadID string) ([]FollowUp, error) {
	const q = `SELECT ` + followUpColumns + ` FROM scheduled_follow_ups
WHERE tenant_id = $1 AND lead_id = $2 ORDER BY scheduled_at`
	return r.query(ctx, q, tenantID, leadID)
}
