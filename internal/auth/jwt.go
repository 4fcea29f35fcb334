package auth

import (
	"errors"
	"fmt"
	"time"

	"dialer-platform/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidClaims wraps every reason a well-signed token is still refused.
var ErrInvalidClaims = errors.New("auth: invalid token claims")

// clockSkew is tolerated on exp/iat between the issuing and verifying hosts.
const clockSkew = 30 * time.Second

type Manager struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("token TTLs must be > 0")
	}
	return &Manager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// IssuePair issues an access/refresh pair for a user acting inside tenantID.
// Refresh tokens carry no role.
func (m *Manager) IssuePair(now time.Time, userID, tenantID, role string) (TokenPair, error) {
	if userID == "" || tenantID == "" {
		return TokenPair{}, fmt.Errorf("%w: user_id and tenant_id are required", ErrInvalidClaims)
	}
	access, err := m.sign(m.claims(now, TokenTypeAccess, Identity{UserID: userID, TenantID: tenantID, Role: role}, m.accessTTL))
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(m.claims(now, TokenTypeRefresh, Identity{UserID: userID, TenantID: tenantID}, m.refreshTTL))
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify checks signature and registered claims against now, then the identity
// claims the expected token type must carry.
func (m *Manager) Verify(tokenString string, expected TokenType, now time.Time) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}); err != nil {
		return Claims{}, err
	}

	if err := m.validator(now).Validate(claims.RegisteredClaims); err != nil {
		return Claims{}, err
	}

	switch {
	case claims.TokenType != expected:
		return Claims{}, fmt.Errorf("%w: token_type %q, want %q", ErrInvalidClaims, claims.TokenType, expected)
	case claims.UserID == "":
		return Claims{}, fmt.Errorf("%w: user_id missing", ErrInvalidClaims)
	case claims.TenantID == "":
		return Claims{}, fmt.Errorf("%w: tenant_id missing", ErrInvalidClaims)
	case expected == TokenTypeAccess && claims.Role == "":
		return Claims{}, fmt.Errorf("%w: role missing in access token", ErrInvalidClaims)
	}
	return claims, nil
}

func (m *Manager) validator(now time.Time) *jwt.Validator {
	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}
	return jwt.NewValidator(opts...)
}

func (m *Manager) claims(now time.Time, tokenType TokenType, id Identity, ttl time.Duration) Claims {
	rc := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   id.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	if m.audience != "" {
		rc.Audience = jwt.ClaimStrings{m.audience}
	}
	return Claims{
		RegisteredClaims: rc,
		UserID:           id.UserID,
		TenantID:         id.TenantID,
		Role:             id.Role,
		TokenType:        tokenType,
	}
}

func (m *Manager) sign(c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}
