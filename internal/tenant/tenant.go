// Package tenant carries the explicit per-invocation tenant context: who the
// caller acts for and which vendor credentials apply.
package tenant

import (
	"context"
	"errors"
	"strings"

	"dialer-platform/internal/auth"
	"dialer-platform/internal/config"
)

var (
	ErrMissingTenant      = errors.New("tenant: tenant id required")
	ErrMissingCredentials = errors.New("tenant: vendor credentials missing")
)

// Credentials are the vendor API keys a tenant's operations run with.
type Credentials struct {
	RetellAPIKey  string
	RetellBaseURL string
	TwilioSID     string
	TwilioToken   string
	TelnyxAPIKey  string
}

// RequireRetell fails when outbound calls cannot be placed for this tenant.
func (c Credentials) RequireRetell() error {
	if strings.TrimSpace(c.RetellAPIKey) == "" {
		return errors.Join(ErrMissingCredentials, errors.New("RETELL_API_KEY is not configured"))
	}
	return nil
}

// Tenant is passed explicitly into every core operation.
type Tenant struct {
	ID          string
	Credentials Credentials
}

// Resolver builds a Tenant for an authenticated tenant id.
type Resolver struct {
	creds Credentials
}

func NewResolver(cfg config.Config) *Resolver {
	return &Resolver{creds: Credentials{
		RetellAPIKey:  cfg.Retell.APIKey,
		RetellBaseURL: cfg.Retell.BaseURL,
		TwilioSID:     cfg.Twilio.AccountSID,
		TwilioToken:   cfg.Twilio.AuthToken,
		TelnyxAPIKey:  cfg.Telnyx.APIKey,
	}}
}

// NewStaticResolver is used by tests and the CLI when credentials are known up front.
func NewStaticResolver(creds Credentials) *Resolver {
	return &Resolver{creds: creds}
}

// Resolve returns the tenant context for id.
func (r *Resolver) Resolve(id string) (Tenant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Tenant{}, ErrMissingTenant
	}
	return Tenant{ID: id, Credentials: r.creds}, nil
}

// FromContext resolves the tenant of the authenticated caller.
func (r *Resolver) FromContext(ctx context.Context) (Tenant, error) {
	id, err := auth.TenantID(ctx)
	if err != nil {
		return Tenant{}, ErrMissingTenant
	}
	return r.Resolve(id)
}
