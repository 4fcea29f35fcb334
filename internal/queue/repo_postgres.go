package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dialer-platform/pkg/utils"
)

// PostgresRepo stores entries in dialing_queue. The partial unique index
// dialing_queue_one_live makes the live-slot invariant hold under concurrent dispatchers.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const entryColumns = `id, tenant_id, campaign_id, lead_id, phone_number, status, attempts, max_attempts,
	priority, last_error, scheduled_at, created_at, updated_at`

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	err := rows.Scan(&e.ID, &e.TenantID, &e.CampaignID, &e.LeadID, &e.PhoneNumber, &e.Status, &e.Attempts,
		&e.MaxAttempts, &e.Priority, &e.LastError, &e.ScheduledAt, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *PostgresRepo) EnqueueIfAbsent(ctx context.Context, entries []Entry) (int, error) {
	const q = `INSERT INTO dialing_queue (` + entryColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (tenant_id, campaign_id, lead_id) WHERE status IN ('pending', 'calling') DO NOTHING`
	inserted := 0
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		for _, e := range entries {
			res, err := tx.ExecContext(ctx, q, e.ID, e.TenantID, e.CampaignID, e.LeadID, e.PhoneNumber, e.Status,
				e.Attempts, e.MaxAttempts, e.Priority, e.LastError, e.ScheduledAt, e.CreatedAt, e.UpdatedAt)
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
		return 0, fmt.Errorf("queue: enqueue: %w", err)
	}
	return inserted, nil
}

func (r *PostgresRepo) ListLive(ctx context.Context, tenantID string) ([]Entry, error) {
	const q = `SELECT ` + entryColumns + ` FROM dialing_queue
WHERE tenant_id = $1 AND status IN ('pending', 'calling')`
	return r.query(ctx, q, tenantID)
}

func (r *PostgresRepo) ListPending(ctx context.Context, tenantID string, campaignIDs []string, limit int) ([]Entry, error) {
	if len(campaignIDs) == 0 {
		return nil, nil
	}
	const q = `SELECT ` + entryColumns + ` FROM dialing_queue
WHERE tenant_id = $1 AND status = 'pending' AND campaign_id = ANY($2)
ORDER BY priority DESC, scheduled_at ASC
LIMIT $3`
	return r.query(ctx, q, tenantID, campaignIDs, limit)
}

func (r *PostgresRepo) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("queue: list: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("queue: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Transition(ctx context.Context, tenantID, id string, from, to Status, lastErr string, at time.Time) error {
	const q = `UPDATE dialing_queue
SET status = $4, last_error = $5, updated_at = $6,
    attempts = attempts + CASE WHEN $4 IN ('completed', 'failed') THEN 1 ELSE 0 END
WHERE tenant_id = $1 AND id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, q, tenantID, id, from, to, lastErr, at)
	if err != nil {
		return fmt.Errorf("queue: transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("queue: transition: %w", err)
	}
	if n > 0 {
		return nil
	}

	var cur Status
	err = r.db.QueryRowContext(ctx, `SELECT status FROM dialing_queue WHERE tenant_id = $1 AND id = $2`, tenantID, id).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("queue: transition lookup: %w", err)
	}
	return fmt.Errorf("%w: %s is %s, expected %s", ErrStaleTransition, id, cur, from)
}

func (r *PostgresRepo) Stats(ctx context.Context, tenantID string) (Stats, error) {
	const q = `SELECT status, COUNT(*) FROM dialing_queue WHERE tenant_id = $1 GROUP BY status`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return Stats{}, fmt.Errorf("queue: stats: %w", err)
	}
	defer rows.Close()
	var s Stats
	for rows.Next() {
		var (
			st Status
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return Stats{}, fmt.Errorf("queue: scan stats: %w", err)
		}
		s.add(st, n)
	}
	return s, rows.Err()
}

func (r *PostgresRepo) AttemptCounts(ctx context.Context, tenantID string, campaignIDs []string) (map[string]int, error) {
	out := map[string]int{}
	if len(campaignIDs) == 0 {
		return out, nil
	}
	const q = `SELECT campaign_id, lead_id, SUM(attempts) FROM dialing_queue
WHERE tenant_id = $1 AND campaign_id = ANY($2) AND attempts > 0
GROUP BY campaign_id, lead_id`
	rows, err := r.db.QueryContext(ctx, q, tenantID, campaignIDs)
	if err != nil {
		return nil, fmt.Errorf("queue: attempt counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			campaignID, leadID string
			n                  int
		)
		if err := rows.Scan(&campaignID, &leadID, &n); err != nil {
			return nil, fmt.Errorf("queue: scan attempt counts: %w", err)
		}
		out[Key(campaignID, leadID)] = n
	}
	return out, rows.Err()
}
