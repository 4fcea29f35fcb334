package auth

import (
	"context"
	"errors"
)

// ErrNoIdentity means the request context carries no authenticated caller.
var ErrNoIdentity = errors.New("auth: no identity in context")

// Identity is the authenticated caller as taken from a verified access token.
type Identity struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

type identityKey struct{}

func WithIdentity(ctx context.Context, userID, tenantID, role string) context.Context {
	return context.WithValue(ctx, identityKey{}, Identity{UserID: userID, TenantID: tenantID, Role: role})
}

// IdentityFrom returns the caller stored by WithIdentity.
func IdentityFrom(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}

func UserID(ctx context.Context) (string, error) {
	return field(ctx, "user_id", func(id Identity) string { return id.UserID })
}

func TenantID(ctx context.Context) (string, error) {
	return field(ctx, "tenant_id", func(id Identity) string { return id.TenantID })
}

func Role(ctx context.Context) (string, error) {
	return field(ctx, "role", func(id Identity) string { return id.Role })
}

func field(ctx context.Context, name string, get func(Identity) string) (string, error) {
	id, err := IdentityFrom(ctx)
	if err != nil {
		return "", err
	}
	if v := get(id); v != "" {
		return v, nil
	}
	return "", errors.Join(ErrNoIdentity, errors.New(name+" not in context"))
}
