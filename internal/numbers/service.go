package numbers

import (
	"context"
	"fmt"
	"time"

	"dialer-platform/internal/audit"
	"dialer-platform/pkg/logger"

	"github.com/google/uuid"
)

// WarningUnregistered is surfaced when the pool had to fall back to numbers the vendor does not know.
const WarningUnregistered = "using unregistered numbers"

// Service manages the number pool lifecycle.
type Service struct {
	repo  Repository
	audit *audit.Service
	clock func() time.Time
}

func NewService(repo Repository, auditSvc *audit.Service) *Service {
	return &Service{repo: repo, audit: auditSvc, clock: time.Now}
}

func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) Repo() Repository { return s.repo }

// Create adds a number to the tenant's pool in active status.
func (s *Service) Create(ctx context.Context, tenantID string, n PhoneNumber) (PhoneNumber, error) {
	if tenantID == "" {
		return PhoneNumber{}, fmt.Errorf("%w: tenant_id required", ErrInvalidArgument)
	}
	n.Number = NormalizeE164(n.Number)
	if len(Digits(n.Number)) < 10 {
		return PhoneNumber{}, fmt.Errorf("%w: number must have at least 10 digits", ErrInvalidArgument)
	}
	if n.Status == "" {
		n.Status = StatusActive
	}
	if !n.Status.Valid() {
		return PhoneNumber{}, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, n.Status)
	}
	now := s.clock().UTC()
	n.ID = uuid.NewString()
	n.TenantID = tenantID
	n.CreatedAt = now
	n.UpdatedAt = now
	if err := s.repo.Create(ctx, n); err != nil {
		return PhoneNumber{}, err
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (PhoneNumber, error) {
	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID string) ([]PhoneNumber, error) {
	return s.repo.List(ctx, tenantID)
}

// Quarantine flags a number as spam and takes it out of rotation until until.
func (s *Service) Quarantine(ctx context.Context, tenantID, id string, until time.Time, reason string) (PhoneNumber, error) {
	now := s.clock().UTC()
	if !until.After(now) {
		return PhoneNumber{}, fmt.Errorf("%w: quarantine must end in the future", ErrInvalidArgument)
	}
	n, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return PhoneNumber{}, err
	}
	if n.Status == StatusReleased {
		return PhoneNumber{}, fmt.Errorf("%w: number is released", ErrInvalidArgument)
	}
	until = until.UTC()
	n.Status = StatusQuarantined
	n.IsSpam = true
	n.QuarantineUntil = &until
	n.UpdatedAt = now
	if err := s.repo.Update(ctx, n); err != nil {
		return PhoneNumber{}, err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID,
		Type:     audit.EventTypeNumberQuarantined,
		NumberID: n.ID,
		Message:  reason,
		Metadata: audit.Metadata(map[string]any{"number": n.Number, "until": until}),
	})
	return n, nil
}

// Release permanently retires a number from the pool.
func (s *Service) Release(ctx context.Context, tenantID, id string) (PhoneNumber, error) {
	n, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return PhoneNumber{}, err
	}
	n.Status = StatusReleased
	n.QuarantineUntil = nil
	n.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, n); err != nil {
		return PhoneNumber{}, err
	}
	s.audit.Record(ctx, audit.Event{TenantID: tenantID, Type: audit.EventTypeNumberReleased, NumberID: n.ID, Message: n.Number})
	return n, nil
}

// Pool is the candidate set for one dispatch pass.
type Pool struct {
	Numbers []PhoneNumber
	Warning string
}

// Pool restores lapsed quarantines and returns the eligible numbers, preferring
// vendor-registered ones. With none registered it falls back to every eligible
// number and sets Warning.
func (s *Service) Pool(ctx context.Context, tenantID string, now time.Time) (Pool, error) {
	if restored, err := s.repo.RestoreExpired(ctx, tenantID, now); err != nil {
		logger.ForTenant(ctx, tenantID).Warn("restore expired quarantines failed", "err", err)
	} else if restored > 0 {
		logger.ForTenant(ctx, tenantID).Info("quarantine lapsed", "restored", restored)
	}

	eligible, err := s.repo.ListEligible(ctx, tenantID, now)
	if err != nil {
		return Pool{}, err
	}
	var registered []PhoneNumber
	for _, n := range eligible {
		if n.VendorRegistered() {
			registered = append(registered, n)
		}
	}
	if len(registered) > 0 {
		return Pool{Numbers: registered}, nil
	}
	if len(eligible) == 0 {
		return Pool{}, nil
	}
	return Pool{Numbers: eligible, Warning: WarningUnregistered}, nil
}

// RecordUse bumps the usage counters after a successful call.
func (s *Service) RecordUse(ctx context.Context, tenantID, id string, at time.Time) error {
	return s.repo.RecordUse(ctx, tenantID, id, at.UTC())
}
