package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresRepo stores call logs in call_logs.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const callColumns = `id, tenant_id, vendor, vendor_call_id, campaign_id, lead_id, queue_entry_id, from_number, to_number,
	direction, status, outcome, notes, duration_seconds, transcript, summary, recording_url,
	started_at, ended_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(s rowScanner) (LogEntry, error) {
	var c LogEntry
	err := s.Scan(&c.ID, &c.TenantID, &c.Vendor, &c.VendorCallID, &c.CampaignID, &c.LeadID, &c.QueueEntryID, &c.From, &c.To,
		&c.Direction, &c.Status, &c.Outcome, &c.Notes, &c.DurationSeconds, &c.Transcript, &c.Summary, &c.RecordingURL,
		&c.StartedAt, &c.EndedAt, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *PostgresRepo) Create(ctx context.Context, c LogEntry) error {
	const q = `INSERT INTO call_logs (` + callColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`
	_, err := r.db.ExecContext(ctx, q, c.ID, c.TenantID, c.Vendor, c.VendorCallID, c.CampaignID, c.LeadID, c.QueueEntryID,
		c.From, c.To, c.Direction, c.Status, c.Outcome, c.Notes, c.DurationSeconds, c.Transcript, c.Summary, c.RecordingURL,
		c.StartedAt, c.EndedAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("calls: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, tenantID, id string) (LogEntry, error) {
	const q = `SELECT ` + callColumns + ` FROM call_logs WHERE tenant_id = $1 AND id = $2`
	return r.one(ctx, q, tenantID, id)
}

func (r *PostgresRepo) FindByVendorCallID(ctx context.Context, vendorCallID string) (LogEntry, error) {
	if vendorCallID == "" {
		return LogEntry{}, ErrNotFound
	}
	const q = `SELECT ` + callColumns + ` FROM call_logs WHERE vendor_call_id = $1 ORDER BY created_at DESC LIMIT 1`
	return r.one(ctx, q, vendorCallID)
}

func (r *PostgresRepo) one(ctx context.Context, q string, args ...any) (LogEntry, error) {
	c, err := scanCall(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return LogEntry{}, ErrNotFound
	}
	if err != nil {
		return LogEntry{}, fmt.Errorf("calls: get: %w", err)
	}
	return c, nil
}

func (r *PostgresRepo) Update(ctx context.Context, c LogEntry) error {
	const q = `UPDATE call_logs SET
	vendor_call_id = $3, status = $4, outcome = $5, notes = $6, duration_seconds = $7, transcript = $8,
	summary = $9, recording_url = $10, started_at = $11, ended_at = $12, updated_at = $13
WHERE tenant_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, c.TenantID, c.ID, c.VendorCallID, c.Status, c.Outcome, c.Notes, c.DurationSeconds,
		c.Transcript, c.Summary, c.RecordingURL, c.StartedAt, c.EndedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("calls: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("calls: update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) CloseStuck(ctx context.Context, tenantID string, olderThan, now time.Time) (int, error) {
	const q = `UPDATE call_logs SET status = 'no_answer', ended_at = $3, updated_at = $3
WHERE tenant_id = $1 AND status IN ('initiated', 'ringing', 'in_progress') AND created_at < $2`
	res, err := r.db.ExecContext(ctx, q, tenantID, olderThan, now)
	if err != nil {
		return 0, fmt.Errorf("calls: close stuck: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("calls: close stuck: %w", err)
	}
	return int(n), nil
}

func (r *PostgresRepo) List(ctx context.Context, tenantID string, rg Range) ([]LogEntry, error) {
	q := `SELECT ` + callColumns + ` FROM call_logs WHERE tenant_id = $1`
	args := []any{tenantID}
	if !rg.From.IsZero() {
		args = append(args, rg.From)
		q += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !rg.To.IsZero() {
		args = append(args, rg.To)
		q += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	if rg.CampaignID != "" {
		args = append(args, rg.CampaignID)
		q += fmt.Sprintf(" AND campaign_id = $%d", len(args))
	}
	q += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("calls: list: %w", err)
	}
	defer rows.Close()
	var out []LogEntry
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("calls: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
