// Package session issues and verifies the signed, self-contained session
// assertions carried by API callers. Nothing is persisted server-side; a
// session is valid exactly as long as its signature and expiry hold.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession covers every verification failure: bad signature,
// malformed token, expiry. Callers must treat it identically to
// "unauthenticated"; there is no partial trust.
var ErrInvalidSession = errors.New("invalid session")

// ErrForbidden is returned by RequireRole for a valid session whose account
// lacks the required role. Distinct from ErrInvalidSession: the caller is
// known, just not allowed.
var ErrForbidden = errors.New("forbidden")

// DefaultTTL forces re-authentication every few hours.
const DefaultTTL = 4 * time.Hour

// Identity is the verified content of a session token.
type Identity struct {
	AccountID string
	Name      string
	Email     string
	Role      string
}

type claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Authority signs and verifies session tokens with a deployment secret.
type Authority struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthority builds an Authority. A zero ttl means DefaultTTL.
func NewAuthority(secret []byte, ttl time.Duration) (*Authority, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty session signing secret")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Authority{secret: secret, ttl: ttl}, nil
}

// TTL reports the configured session lifetime.
func (a *Authority) TTL() time.Duration {
	return a.ttl
}

// Issue signs a session assertion for the account.
func (a *Authority) Issue(accountID, name, email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		Name:  name,
		Email: email,
	})

	return token.SignedString(a.secret)
}

// Verify checks signature and expiry and returns the embedded identity.
// The role is not embedded in the token; it is loaded from storage by the
// middleware so that role changes take effect without re-login.
func (a *Authority) Verify(tokenString string) (*Identity, error) {
	parsed := &claims{}

	token, err := jwt.ParseWithClaims(tokenString, parsed, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}

	if parsed.Subject == "" {
		return nil, ErrInvalidSession
	}

	return &Identity{
		AccountID: parsed.Subject,
		Name:      parsed.Name,
		Email:     parsed.Email,
	}, nil
}

// RequireRole is the explicit role check layered on top of a valid session.
func RequireRole(id *Identity, roles ...string) error {
	if id == nil {
		return ErrInvalidSession
	}
	for _, role := range roles {
		if id.Role == role {
			return nil
		}
	}
	return ErrForbidden
}
