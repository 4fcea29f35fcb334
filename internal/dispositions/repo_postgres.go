package dispositions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dialer-platform/pkg/utils"

	"github.com/google/uuid"
)

// PostgresRepo stores disposition_rules, sequences, pipeline_stages and lead_pipeline_positions.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const ruleColumns = `id, tenant_id, name, sentiment, pipeline_stage, auto_create_pipeline_stage,
	follow_up_action, delay_minutes, sequence_id, mark_do_not_call, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(s rowScanner) (Rule, error) {
	var r Rule
	err := s.Scan(&r.ID, &r.TenantID, &r.Name, &r.Sentiment, &r.PipelineStage, &r.AutoCreateStage,
		&r.FollowUpAction, &r.DelayMinutes, &r.SequenceID, &r.MarkDoNotCall, &r.CreatedAt)
	return r, err
}

func (r *PostgresRepo) CreateRule(ctx context.Context, rule Rule) error {
	const q = `INSERT INTO disposition_rules (` + ruleColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.db.ExecContext(ctx, q, rule.ID, rule.TenantID, rule.Name, rule.Sentiment, rule.PipelineStage,
		rule.AutoCreateStage, rule.FollowUpAction, rule.DelayMinutes, rule.SequenceID, rule.MarkDoNotCall, rule.CreatedAt)
	if utils.IsUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("dispositions: insert rule: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetRuleByName(ctx context.Context, tenantID, name string) (Rule, error) {
	const q = `SELECT ` + ruleColumns + ` FROM disposition_rules WHERE tenant_id = $1 AND name = $2`
	rule, err := scanRule(r.db.QueryRowContext(ctx, q, tenantID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return Rule{}, ErrRuleNotFound
	}
	if err != nil {
		return Rule{}, fmt.Errorf("dispositions: get rule: %w", err)
	}
	return rule, nil
}

func (r *PostgresRepo) ListRules(ctx context.Context, tenantID string) ([]Rule, error) {
	const q = `SELECT ` + ruleColumns + ` FROM disposition_rules WHERE tenant_id = $1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, fmt.Errorf("dispositions: list rules: %w", err)
	}
	defer rows.Close()
	var out []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("dispositions: scan rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CreateSequence(ctx context.Context, s Sequence) error {
	steps, err := json.Marshal(s.Steps)
	if err != nil {
		return fmt.Errorf("dispositions: encode steps: %w", err)
	}
	const q = `INSERT INTO sequences (id, tenant_id, name, steps, created_at) VALUES ($1,$2,$3,$4,$5)`
	_, err = r.db.ExecContext(ctx, q, s.ID, s.TenantID, s.Name, steps, s.CreatedAt)
	if utils.IsUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("dispositions: insert sequence: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetSequence(ctx context.Context, tenantID, id string) (Sequence, error) {
	return r.oneSequence(ctx, `SELECT id, tenant_id, name, steps, created_at FROM sequences WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

func (r *PostgresRepo) FindSequenceByName(ctx context.Context, tenantID, name string) (Sequence, error) {
	return r.oneSequence(ctx, `SELECT id, tenant_id, name, steps, created_at FROM sequences WHERE tenant_id = $1 AND name = $2`, tenantID, name)
}

func (r *PostgresRepo) oneSequence(ctx context.Context, q string, args ...any) (Sequence, error) {
	var (
		s     Sequence
		steps []byte
	)
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&s.ID, &s.TenantID, &s.Name, &steps, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Sequence{}, ErrSequenceNotFound
	}
	if err != nil {
		return Sequence{}, fmt.Errorf("dispositions: get sequence: %w", err)
	}
	if err := json.Unmarshal(steps, &s.Steps); err != nil {
		return Sequence{}, fmt.Errorf("dispositions: decode steps: %w", err)
	}
	return s, nil
}

func (r *PostgresRepo) FindOrCreateStage(ctx context.Context, tenantID, name string, at time.Time) (Stage, error) {
	const insert = `INSERT INTO pipeline_stages (id, tenant_id, name, position, created_at)
VALUES ($1, $2, $3, (SELECT COALESCE(MAX(position), 0) + 1 FROM pipeline_stages WHERE tenant_id = $2), $4)
ON CONFLICT (tenant_id, name) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), tenantID, name, at); err != nil {
		return Stage{}, fmt.Errorf("dispositions: create stage: %w", err)
	}

	const q = `SELECT id, tenant_id, name, position, created_at FROM pipeline_stages WHERE tenant_id = $1 AND name = $2`
	var s Stage
	if err := r.db.QueryRowContext(ctx, q, tenantID, name).Scan(&s.ID, &s.TenantID, &s.Name, &s.Position, &s.CreatedAt); err != nil {
		return Stage{}, fmt.Errorf("dispositions: get stage: %w", err)
	}
	return s, nil
}

func (r *PostgresRepo) UpsertLeadPosition(ctx context.Context, p LeadPosition) error {
	const q = `INSERT INTO lead_pipeline_positions (tenant_id, lead_id, stage_id, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tenant_id, lead_id) DO UPDATE SET stage_id = EXCLUDED.stage_id, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, q, p.TenantID, p.LeadID, p.StageID, p.UpdatedAt); err != nil {
		return fmt.Errorf("dispositions: upsert position: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetLeadPosition(ctx context.Context, tenantID, leadID string) (LeadPosition, error) {
	const q = `SELECT tenant_id, lead_id, stage_id, updated_at FROM lead_pipeline_positions WHERE tenant_id = $1 AND lead_id = $2`
	var p LeadPosition
	err := r.db.QueryRowContext(ctx, q, tenantID, leadID).Scan(&p.TenantID, &p.LeadID, &p.StageID, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return LeadPosition{}, ErrNotFound
	}
	if err != nil {
		return LeadPosition{}, fmt.Errorf("dispositions: get position: %w", err)
	}
	return p, nil
}
