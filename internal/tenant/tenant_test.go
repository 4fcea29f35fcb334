package tenant

import (
	"context"
	"errors"
	"testing"

	"dialer-platform/internal/auth"
)

func TestRequireRetell(t *testing.T) {
	if err := (Credentials{}).RequireRetell(); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if err := (Credentials{RetellAPIKey: "key"}).RequireRetell(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestResolver_FromContext(t *testing.T) {
	r := NewStaticResolver(Credentials{RetellAPIKey: "key"})

	if _, err := r.FromContext(context.Background()); !errors.Is(err, ErrMissingTenant) {
		t.Fatalf("expected ErrMissingTenant, got %v", err)
	}

	ctx := auth.WithIdentity(context.Background(), "u", "t-1", "owner")
	tn, err := r.FromContext(ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tn.ID != "t-1" || tn.Credentials.RetellAPIKey != "key" {
		t.Fatalf("unexpected tenant %+v", tn)
	}
}
