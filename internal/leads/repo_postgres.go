package leads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresRepo stores leads in the leads table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const leadColumns = `id, tenant_id, phone_number, email, first_name, last_name, company, campaign_id,
	status, do_not_call, priority, next_callback_at, last_contacted_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(s rowScanner) (Lead, error) {
	var l Lead
	err := s.Scan(
		&l.ID, &l.TenantID, &l.PhoneNumber, &l.Email, &l.FirstName, &l.LastName, &l.Company, &l.CampaignID,
		&l.Status, &l.DoNotCall, &l.Priority, &l.NextCallbackAt, &l.LastContactedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

func (r *PostgresRepo) Create(ctx context.Context, l Lead) error {
	const q = `INSERT INTO leads (` + leadColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	_, err := r.db.ExecContext(ctx, q,
		l.ID, l.TenantID, l.PhoneNumber, l.Email, l.FirstName, l.LastName, l.Company, l.CampaignID,
		l.Status, l.DoNotCall, l.Priority, l.NextCallbackAt, l.LastContactedAt, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("leads: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, tenantID, id string) (Lead, error) {
	const q = `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id = $1 AND id = $2`
	l, err := scanLead(r.db.QueryRowContext(ctx, q, tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, fmt.Errorf("leads: get: %w", err)
	}
	return l, nil
}

func (r *PostgresRepo) GetMany(ctx context.Context, tenantID string, ids []string) (map[string]Lead, error) {
	out := make(map[string]Lead, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const q = `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id = $1 AND id = ANY($2)`
	rows, err := r.db.QueryContext(ctx, q, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("leads: get many: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan: %w", err)
		}
		out[l.ID] = l
	}
	return out, rows.Err()
}

func (r *PostgresRepo) List(ctx context.Context, tenantID string, f Filter) ([]Lead, error) {
	q := `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id = $1`
	args := []any{tenantID}
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.CampaignID != "" {
		args = append(args, f.CampaignID)
		q += fmt.Sprintf(" AND campaign_id = $%d", len(args))
	}
	q += " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: list: %w", err)
	}
	defer rows.Close()
	var out []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, l Lead) error {
	const q = `UPDATE leads SET
	phone_number = $3, email = $4, first_name = $5, last_name = $6, company = $7, campaign_id = $8,
	status = $9, do_not_call = $10, priority = $11, next_callback_at = $12, last_contacted_at = $13,
	updated_at = $14
WHERE tenant_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q,
		l.TenantID, l.ID, l.PhoneNumber, l.Email, l.FirstName, l.LastName, l.Company, l.CampaignID,
		l.Status, l.DoNotCall, l.Priority, l.NextCallbackAt, l.LastContactedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("leads: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("leads: update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) FindByPhone(ctx context.Context, tenantID, phone string) (Lead, error) {
	const q = `SELECT ` + leadColumns + ` FROM leads
WHERE tenant_id = $1 AND phone_number = $2
ORDER BY updated_at DESC LIMIT 1`
	l, err := scanLead(r.db.QueryRowContext(ctx, q, tenantID, phone))
	if errors.Is(err, sql.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, fmt.Errorf("leads: find by phone: %w", err)
	}
	return l, nil
}
