package auth

import (
	"errors"
	"testing"
	"time"

	"dialer-platform/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "issuer",
		JWTAudience:     "aud",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	now := time.Unix(1700000000, 0).UTC()
	pair, err := m.IssuePair(now, "user-1", "tenant-1", "manager")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected token strings")
	}

	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(1*time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.TenantID != "tenant-1" || claims.Role != "manager" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	now := time.Unix(1700000000, 0).UTC()
	p, err := m.IssuePair(now, "u", "t", "r")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(p.RefreshToken, TokenTypeAccess, now); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected token_type mismatch, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	now := time.Unix(1700000000, 0).UTC()
	p, err := m.IssuePair(now, "u", "t", "owner")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(p.AccessToken, TokenTypeAccess, now.Add(10*time.Minute)); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestIssuePairRequiresTenant(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	if _, err := m.IssuePair(time.Unix(1700000000, 0).UTC(), "u", "", "owner"); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	a, _ := NewManager(config.AuthConfig{JWTSecret: "one", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	b, _ := NewManager(config.AuthConfig{JWTSecret: "two", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	p, _ := a.IssuePair(now, "u", "t", "owner")
	if _, err := b.Verify(p.AccessToken, TokenTypeAccess, now); err == nil {
		t.Fatalf("expected signature failure")
	}
}

func TestNewManagerValidatesConfig(t *testing.T) {
	if _, err := NewManager(config.AuthConfig{AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}); err == nil {
		t.Fatalf("expected missing secret error")
	}
	if _, err := NewManager(config.AuthConfig{JWTSecret: "s"}); err == nil {
		t.Fatalf("expected ttl error")
	}
}

func TestVerifyChecksIssuerAndAudience(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	issuing, _ := NewManager(config.AuthConfig{JWTSecret: "s", JWTIssuer: "dialer", JWTAudience: "api", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	p, err := issuing.IssuePair(now, "u", "t", "owner")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	otherIssuer, _ := NewManager(config.AuthConfig{JWTSecret: "s", JWTIssuer: "elsewhere", JWTAudience: "api", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	if _, err := otherIssuer.Verify(p.AccessToken, TokenTypeAccess, now); !errors.Is(err, jwt.ErrTokenInvalidIssuer) {
		t.Fatalf("expected issuer mismatch, got %v", err)
	}
	otherAudience, _ := NewManager(config.AuthConfig{JWTSecret: "s", JWTIssuer: "dialer", JWTAudience: "admin", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	if _, err := otherAudience.Verify(p.AccessToken, TokenTypeAccess, now); !errors.Is(err, jwt.ErrTokenInvalidAudience) {
		t.Fatalf("expected audience mismatch, got %v", err)
	}
	if _, err := issuing.Verify(p.AccessToken, TokenTypeAccess, now.Add(20*time.Second)); err != nil {
		t.Fatalf("expected matching issuer and audience to verify: %v", err)
	}
}
