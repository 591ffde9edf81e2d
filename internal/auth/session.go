// Package auth implements password login and signed session tokens for
// the admin surface.
package auth

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// ErrUnauthorized covers every authentication failure. Callers get one
// uniform error whether the password was wrong, the token expired, or the
// signature did not verify, so responses leak nothing about which check
// failed.
var ErrUnauthorized = eris.New("auth: unauthorized")

// CookieName is the session cookie set on successful login.
const CookieName = "admin_session"

// DefaultSessionTTL matches one working day with margin.
const DefaultSessionTTL = 8 * time.Hour

const issuer = "pharmadz"

// Manager issues and validates admin session tokens.
type Manager struct {
	secret   []byte
	password string
	ttl      time.Duration
	now      func() time.Time
}

// New creates a Manager. A zero ttl falls back to DefaultSessionTTL.
func New(secret, password string, ttl time.Duration) (*Manager, error) {
	if len(secret) < 16 {
		return nil, eris.New("auth: session secret must be at least 16 bytes")
	}
	if password == "" {
		return nil, eris.New("auth: admin password not configured")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{
		secret:   []byte(secret),
		password: password,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Login checks the password and mints a session token.
func (m *Manager) Login(password string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(m.password)) != 1 {
		return "", ErrUnauthorized
	}

	now := m.now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "admin",
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", eris.Wrap(err, "auth: sign session token")
	}
	return token, nil
}

// Validate checks a session token's signature, issuer and expiry.
func (m *Manager) Validate(token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, eris.Errorf("auth: unexpected signing method %v", t.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)
	if err != nil || !parsed.Valid {
		return ErrUnauthorized
	}
	return nil
}

// TTL returns the configured session lifetime, for cookie max-age.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}
