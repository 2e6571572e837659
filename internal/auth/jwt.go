// Package auth issues and verifies session credentials.
//
// A credential is an HS256-signed JWT carrying the user id and username.
// Verification is purely cryptographic: the user directory is never
// consulted, so a credential stays valid until it expires.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/atinyakov/TodoKeeper/internal/common"
	"github.com/atinyakov/TodoKeeper/internal/models"
	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the lifetime of a session credential.
const DefaultTTL = 7 * 24 * time.Hour

// ErrMissingSecret is returned by NewManager when no signing secret is set.
var ErrMissingSecret = errors.New("jwt secret is not configured")

// Claims is the payload of a session credential.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session credentials with a shared secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
	parser *jwt.Parser
}

// NewManager returns a Manager. A zero ttl means DefaultTTL and a nil clk
// means the wall clock.
func NewManager(secret string, ttl time.Duration, clk clock.Clock) (*Manager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clk,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clk.Now),
		),
	}, nil
}

// TTL returns the credential lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a credential for id. It returns the token and its expiry.
func (m *Manager) Issue(id models.Identity) (string, time.Time, error) {
	now := m.clock.Now()
	expires := now.Add(m.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   id.ID,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify checks the signature and expiry of token and returns the identity
// it carries. Any failure wraps common.ErrUnauthorized.
func (m *Manager) Verify(token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, fmt.Errorf("%w: empty token", common.ErrUnauthorized)
	}

	claims := &Claims{}
	_, err := m.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
	}
	if claims.UserID <= 0 || claims.Username == "" {
		return models.Identity{}, fmt.Errorf("%w: incomplete claims", common.ErrUnauthorized)
	}

	return models.Identity{ID: claims.UserID, Username: claims.Username}, nil
}
