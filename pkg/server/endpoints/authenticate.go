package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/keyfold/keyfold/pkg/notify"
	"github.com/keyfold/keyfold/pkg/server"
	"github.com/keyfold/keyfold/pkg/server/middleware"
	"github.com/keyfold/keyfold/pkg/server/store"
	"github.com/keyfold/keyfold/pkg/session"
)

// LoginRequest is the body of POST /authn/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the session token plus the identity it asserts.
type LoginResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"accountId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// VerifyRequest is the body of POST /authn/verify.
type VerifyRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// ResendRequest is the body of POST /authn/resend.
type ResendRequest struct {
	Email string `json:"email"`
}

// ForgotRequest is the body of POST /authn/forgot.
type ForgotRequest struct {
	Email string `json:"email"`
}

// ResetRequest is the body of POST /authn/reset.
type ResetRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

// RegisterAuthnEndpoints registers login, verification and recovery.
func RegisterAuthnEndpoints(s *server.Server) {
	authnRouter := s.Router.PathPrefix("/authn").Subrouter()

	authnRouter.HandleFunc("/login", handleLogin(s.AccountsStore, s.Authority)).Methods("POST")
	authnRouter.HandleFunc("/verify", handleVerify(s.AccountsStore)).Methods("POST")
	authnRouter.HandleFunc("/resend", handleResend(s.AccountsStore, s.Notifier)).Methods("POST")
	authnRouter.HandleFunc("/forgot", handleForgot(s.AccountsStore, s.Notifier)).Methods("POST")
	authnRouter.HandleFunc("/reset", handleReset(s.AccountsStore)).Methods("POST")
}

func handleLogin(accounts store.AccountsStore, authority *session.Authority) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		account, err := accounts.AccountByEmail(req.Email)
		if err != nil {
			// Unknown email and wrong password answer identically.
			respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(req.Password)); err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		if !account.Verified() {
			respondWithError(w, http.StatusForbidden, "Account not verified")
			return
		}

		token, err := authority.Issue(account.Id, account.Name, account.Email)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(authority.TTL().Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})

		respondWithJSON(w, http.StatusOK, LoginResponse{
			Token:     token,
			AccountID: account.Id,
			Name:      account.Name,
			Email:     account.Email,
			Role:      account.Role,
		})
	}
}

func handleVerify(accounts store.AccountsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VerifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		account, err := accounts.AccountByEmail(req.Email)
		if err != nil || account.VerificationToken == nil || *account.VerificationToken != req.Token {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid verification token")
			return
		}

		account.VerificationToken = nil
		if err := accounts.UpdateAccount(account); err != nil {
			respondWithMappedError(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]string{"status": "verified"})
	}
}

func handleResend(accounts store.AccountsStore, notifier notify.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		// Same shape as /forgot: the answer never reveals whether the email
		// exists or is already verified. The old token stops working.
		account, err := accounts.AccountByEmail(req.Email)
		if err == nil && !account.Verified() {
			verificationToken := uuid.NewString()
			account.VerificationToken = &verificationToken
			if updateErr := accounts.UpdateAccount(account); updateErr == nil {
				_ = notifier.VerificationToken(account.Email, verificationToken)
			}
		} else if err != nil && !errors.Is(err, store.ErrNotFound) {
			respondWithMappedError(w, err)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

func handleForgot(accounts store.AccountsStore, notifier notify.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ForgotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		// The answer never reveals whether the email exists.
		account, err := accounts.AccountByEmail(req.Email)
		if err == nil {
			recoveryToken := uuid.NewString()
			account.RecoveryToken = &recoveryToken
			if updateErr := accounts.UpdateAccount(account); updateErr == nil {
				_ = notifier.RecoveryToken(account.Email, recoveryToken)
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			respondWithMappedError(w, err)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

func handleReset(accounts store.AccountsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		if req.Password == "" {
			respondWithError(w, http.StatusUnprocessableEntity, "Missing required fields")
			return
		}

		account, err := accounts.AccountByEmail(req.Email)
		if err != nil || account.RecoveryToken == nil || *account.RecoveryToken != req.Token {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid recovery token")
			return
		}

		passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		account.PasswordHash = passwordHash
		account.RecoveryToken = nil
		if err := accounts.UpdateAccount(account); err != nil {
			respondWithMappedError(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]string{"status": "password reset"})
	}
}
