package sms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresRepo stores messages in sms_messages.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const messageColumns = `id, tenant_id, vendor, vendor_message_id, lead_id, direction, from_number, to_number, body,
	status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(s rowScanner) (Message, error) {
	var m Message
	err := s.Scan(&m.ID, &m.TenantID, &m.Vendor, &m.VendorMessageID, &m.LeadID, &m.Direction, &m.From, &m.To, &m.Body,
		&m.Status, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *PostgresRepo) Create(ctx context.Context, m Message) error {
	const q = `INSERT INTO sms_messages (` + messageColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.TenantID, m.Vendor, m.VendorMessageID, m.LeadID, m.Direction, m.From, m.To,
		m.Body, m.Status, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sms: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepo) FindByVendorID(ctx context.Context, tenantID, vendorMessageID string) (Message, error) {
	const q = `SELECT ` + messageColumns + ` FROM sms_messages WHERE tenant_id = $1 AND vendor_message_id = $2 LIMIT 1`
	m, err := scanMessage(r.db.QueryRowContext(ctx, q, tenantID, vendorMessageID))
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, fmt.Errorf("sms: find: %w", err)
	}
	return m, nil
}

func (r *PostgresRepo) Update(ctx context.Context, m Message) error {
	const q = `UPDATE sms_messages SET status = $3, body = $4, lead_id = $5, updated_at = $6 WHERE tenant_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, m.TenantID, m.ID, m.Status, m.Body, m.LeadID, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sms: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sms: update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) ListForLead(ctx context.Context, tenantID, leadID string) ([]Message, error) {
	const q = `SELECT ` + messageColumns + ` FROM sms_messages WHERE tenant_id = $1 AND lead_id = $2 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, tenantID, leadID)
	if err != nil {
		return nil, fmt.Errorf("sms: list: %w", err)
	}
	defer rows.Close()
	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("sms: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
