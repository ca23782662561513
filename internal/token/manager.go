// Package token manages the bearer credential lifecycle: issuing, validating,
// refreshing, and revoking signed access/refresh token pairs.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Type distinguishes the two credential kinds. An access token never
// validates as a refresh token and vice versa.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

const (
	defaultIssuer        = "stridelog"
	defaultAccessTTL     = 15 * time.Minute
	defaultRefreshTTL    = 7 * 24 * time.Hour
	defaultLookupTimeout = 2 * time.Second
)

// Claims are the signed token claims. The jti (RegisteredClaims.ID) is unique
// per issuance and anchors revocation.
type Claims struct {
	Email     string `json:"email,omitempty"`
	TokenType Type   `json:"token_type"`
	jwt.RegisteredClaims
}

// JTI returns the unique token identifier.
func (c *Claims) JTI() string { return c.ID }

// Pair bundles a freshly issued access/refresh token pair.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Manager issues and validates HS256-signed bearer tokens and enforces
// revocation through an injected store. Read-only after construction and
// safe for arbitrarily many concurrent callers.
type Manager struct {
	secret        []byte
	store         RevocationStore
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	lookupTimeout time.Duration
	rotateRefresh bool
	now           func() time.Time
}

// Option configures Manager behavior.
type Option func(*Manager) error

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) Option {
	return func(m *Manager) error {
		if s := strings.TrimSpace(issuer); s != "" {
			m.issuer = s
		}
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(m *Manager) error {
		if ttl > 0 {
			m.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(m *Manager) error {
		if ttl > 0 {
			m.refreshTTL = ttl
		}
		return nil
	}
}

// WithLookupTimeout bounds the revocation-store lookup performed during
// validation.
func WithLookupTimeout(d time.Duration) Option {
	return func(m *Manager) error {
		if d > 0 {
			m.lookupTimeout = d
		}
		return nil
	}
}

// WithoutRefreshRotation keeps the same refresh token across Refresh calls
// instead of rotating it. This preserves legacy behavior: a leaked refresh
// token stays valid for its full lifetime even after legitimate use. Rotation
// is the default.
func WithoutRefreshRotation() Option {
	return func(m *Manager) error {
		m.rotateRefresh = false
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) error {
		if fn != nil {
			m.now = fn
		}
		return nil
	}
}

// New constructs a Manager. The signing secret and revocation store are
// required.
func New(secret []byte, store RevocationStore, opts ...Option) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: signing secret is required")
	}
	if store == nil {
		return nil, errors.New("token: revocation store is required")
	}
	m := &Manager{
		secret:        secret,
		store:         store,
		issuer:        defaultIssuer,
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		lookupTimeout: defaultLookupTimeout,
		rotateRefresh: true,
		now:           time.Now,
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Issue signs an independent access/refresh token pair for the subject. Each
// token carries its own fresh jti.
func (m *Manager) Issue(ctx context.Context, subject, email string) (Pair, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Pair{}, errors.New("token: subject is required")
	}
	now := m.now().UTC()

	access, accessExp, err := m.sign(subject, email, TypeAccess, now, m.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshExp, err := m.sign(subject, email, TypeRefresh, now, m.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (m *Manager) sign(subject, email string, typ Type, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := Claims{
		Email:     email,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, exp, nil
}

// Validate verifies the signature and expiry, enforces the expected token
// type, and consults the revocation store. Each failure maps to a distinct
// kind; all kinds unwrap to ErrAuthenticationFailed.
func (m *Manager) Validate(ctx context.Context, tokenString string, expected Type) (*Claims, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != expected {
		return nil, ErrWrongTokenType
	}
	revoked, err := m.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func (m *Manager) parse(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMalformedToken
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(m.issuer))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrInvalidSignature):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformedToken
		}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedToken
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.ID == "" {
		return nil, ErrMalformedToken
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil || !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// IsRevoked looks up the jti in the revocation store under the configured
// timeout. Store errors fail closed as ErrRevocationCheck.
func (m *Manager) IsRevoked(ctx context.Context, jti string) (bool, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, m.lookupTimeout)
	defer cancel()
	revoked, err := m.store.IsRevoked(lookupCtx, jti)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRevocationCheck, err)
	}
	return revoked, nil
}

// Revoke inserts the jti into the revocation set until expiresAt. Revoking an
// already-revoked or already-expired token is a no-op.
func (m *Manager) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if strings.TrimSpace(jti) == "" {
		return errors.New("token: jti is required")
	}
	revokeCtx, cancel := context.WithTimeout(ctx, m.lookupTimeout)
	defer cancel()
	return m.store.Revoke(revokeCtx, jti, expiresAt)
}

// Refresh validates the refresh token and issues a new access token for the
// same subject. By default the refresh token is rotated: a new one is issued
// and the presented jti is revoked, so a leaked refresh token dies on first
// legitimate use.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (Pair, error) {
	claims, err := m.Validate(ctx, refreshToken, TypeRefresh)
	if err != nil {
		return Pair{}, err
	}
	now := m.now().UTC()

	access, accessExp, err := m.sign(claims.Subject, claims.Email, TypeAccess, now, m.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	pair := Pair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: claims.ExpiresAt.Time,
	}
	if !m.rotateRefresh {
		return pair, nil
	}

	refresh, refreshExp, err := m.sign(claims.Subject, claims.Email, TypeRefresh, now, m.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	if err := m.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return Pair{}, err
	}
	pair.RefreshToken = refresh
	pair.RefreshExpiresAt = refreshExp
	return pair, nil
}

// Logout revokes the access token's jti and, when a refresh token is
// supplied, its jti as well. Revocation of an already-invalid refresh token
// is best-effort and never fails the logout.
func (m *Manager) Logout(ctx context.Context, accessToken, refreshToken string) (*Claims, error) {
	claims, err := m.Validate(ctx, accessToken, TypeAccess)
	if err != nil {
		return nil, err
	}
	if err := m.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return nil, err
	}
	if refreshToken != "" {
		if rc, err := m.parse(refreshToken); err == nil && rc.TokenType == TypeRefresh {
			_ = m.Revoke(ctx, rc.ID, rc.ExpiresAt.Time)
		}
	}
	return claims, nil
}
