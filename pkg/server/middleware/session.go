package middleware

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/keyfold/keyfold/pkg/identity"
	"github.com/keyfold/keyfold/pkg/server/store"
	"github.com/keyfold/keyfold/pkg/session"
)

// SessionCookieName is where browser clients carry the session token.
const SessionCookieName = "keyfold_session"

// SessionAuthenticator is middleware that validates session tokens
type SessionAuthenticator struct {
	Authority *session.Authority
	Accounts  store.AccountsStore
}

// NewSessionAuthenticator creates a new session authenticator middleware
func NewSessionAuthenticator(authority *session.Authority, accounts store.AccountsStore) *SessionAuthenticator {
	return &SessionAuthenticator{Authority: authority, Accounts: accounts}
}

// tokenFromRequest pulls the session token from the Authorization header
// (Bearer scheme) or, failing that, the session cookie.
func tokenFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}

	return ""
}

// Middleware returns an HTTP middleware that validates session tokens and
// loads the caller's identity into the request context. The role comes
// from storage on every request, not from the token.
func (s *SessionAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := tokenFromRequest(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "Authorization missing")
			return
		}

		claims, err := s.Authority.Verify(tokenStr)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid session")
			return
		}

		account, err := s.Accounts.AccountByID(claims.AccountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "Invalid session")
				return
			}
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		id := identity.FromSession(claims).WithRole(account.Role)
		if host, _, splitErr := net.SplitHostPort(r.RemoteAddr); splitErr == nil {
			id.WithRemoteIP(net.ParseIP(host))
		}

		next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
