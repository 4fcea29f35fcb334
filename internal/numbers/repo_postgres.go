package numbers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dialer-platform/pkg/utils"
)

// PostgresRepo stores the pool in phone_numbers. number is globally unique.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const numberColumns = `id, tenant_id, number, provider, status, daily_calls, last_used_at, is_spam,
	quarantine_until, retell_phone_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNumber(s rowScanner) (PhoneNumber, error) {
	var n PhoneNumber
	err := s.Scan(&n.ID, &n.TenantID, &n.Number, &n.Provider, &n.Status, &n.DailyCalls, &n.LastUsedAt, &n.IsSpam,
		&n.QuarantineUntil, &n.RetellPhoneID, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func (r *PostgresRepo) Create(ctx context.Context, n PhoneNumber) error {
	const q = `INSERT INTO phone_numbers (` + numberColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.db.ExecContext(ctx, q, n.ID, n.TenantID, n.Number, n.Provider, n.Status, n.DailyCalls, n.LastUsedAt,
		n.IsSpam, n.QuarantineUntil, n.RetellPhoneID, n.CreatedAt, n.UpdatedAt)
	if utils.IsUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("numbers: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, tenantID, id string) (PhoneNumber, error) {
	const q = `SELECT ` + numberColumns + ` FROM phone_numbers WHERE tenant_id = $1 AND id = $2`
	n, err := scanNumber(r.db.QueryRowContext(ctx, q, tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return PhoneNumber{}, ErrNotFound
	}
	if err != nil {
		return PhoneNumber{}, fmt.Errorf("numbers: get: %w", err)
	}
	return n, nil
}

func (r *PostgresRepo) List(ctx context.Context, tenantID string) ([]PhoneNumber, error) {
	const q = `SELECT ` + numberColumns + ` FROM phone_numbers WHERE tenant_id = $1 ORDER BY created_at, id`
	return r.query(ctx, q, tenantID)
}

func (r *PostgresRepo) ListEligible(ctx context.Context, tenantID string, now time.Time) ([]PhoneNumber, error) {
	const q = `SELECT ` + numberColumns + ` FROM phone_numbers
WHERE tenant_id = $1 AND status = 'active' AND (quarantine_until IS NULL OR quarantine_until <= $2)
ORDER BY created_at, id`
	return r.query(ctx, q, tenantID, now)
}

func (r *PostgresRepo) query(ctx context.Context, q string, args ...any) ([]PhoneNumber, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("numbers: list: %w", err)
	}
	defer rows.Close()
	var out []PhoneNumber
	for rows.Next() {
		n, err := scanNumber(rows)
		if err != nil {
			return nil, fmt.Errorf("numbers: scan: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) RecordUse(ctx context.Context, tenantID, id string, at time.Time) error {
	const q = `UPDATE phone_numbers SET daily_calls = daily_calls + 1, last_used_at = $3, updated_at = $3
WHERE tenant_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, tenantID, id, at)
	if err != nil {
		return fmt.Errorf("numbers: record use: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("numbers: record use: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Update(ctx context.Context, n PhoneNumber) error {
	const q = `UPDATE phone_numbers SET
	provider = $3, status = $4, is_spam = $5, quarantine_until = $6, retell_phone_id = $7, updated_at = $8
WHERE tenant_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, n.TenantID, n.ID, n.Provider, n.Status, n.IsSpam, n.QuarantineUntil,
		n.RetellPhoneID, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("numbers: update: %w", err)
	}
	c, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("numbers: update: %w", err)
	}
	if c == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) RestoreExpired(ctx context.Context, tenantID string, now time.Time) (int, error) {
	const q = `UPDATE phone_numbers SET status = 'active', quarantine_until = NULL, updated_at = $2
WHERE tenant_id = $1 AND status = 'quarantined' AND quarantine_until IS NOT NULL AND quarantine_until <= $2`
	res, err := r.db.ExecContext(ctx, q, tenantID, now)
	if err != nil {
		return 0, fmt.Errorf("numbers: restore expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("numbers: restore expired: %w", err)
	}
	return int(n), nil
}

func (r *PostgresRepo) FindByNumber(ctx context.Context, number string) (PhoneNumber, error) {
	const q = `SELECT ` + numberColumns + ` FROM phone_numbers WHERE number = $1`
	n, err := scanNumber(r.db.QueryRowContext(ctx, q, number))
	if errors.Is(err, sql.ErrNoRows) {
		return PhoneNumber{}, ErrNotFound
	}
	if err != nil {
		return PhoneNumber{}, fmt.Errorf("numbers: find: %w", err)
	}
	return n, nil
}
