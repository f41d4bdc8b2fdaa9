package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/keyfold/keyfold/pkg/identity"
	"github.com/keyfold/keyfold/pkg/model"
	"github.com/keyfold/keyfold/pkg/notify"
	"github.com/keyfold/keyfold/pkg/server"
	"github.com/keyfold/keyfold/pkg/server/store"
	"github.com/keyfold/keyfold/pkg/session"
)

// AccountResponse is one account in administrative listings.
type AccountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChangePasswordRequest is the body of PATCH /accounts/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangeEmailRequest is the body of PATCH /accounts/email.
type ChangeEmailRequest struct {
	Password string `json:"password"`
	NewEmail string `json:"newEmail"`
}

// RegisterAccountsEndpoints registers the session-gated account surface:
// self-service password change plus the owner-only administration calls.
// Public registration lives in RegisterRegistrationEndpoint.
func RegisterAccountsEndpoints(s *server.Server) {
	accountsRouter := s.Router.PathPrefix("/accounts").Subrouter()
	accountsRouter.Use(s.SessionMiddleware.Middleware)

	accountsRouter.HandleFunc("", handleListAccounts(s.AccountsStore)).Methods("GET")
	accountsRouter.HandleFunc("/password", handleChangePassword(s.AccountsStore)).Methods("PATCH")
	accountsRouter.HandleFunc("/email", handleChangeEmail(s.AccountsStore, s.Notifier)).Methods("PATCH")
	accountsRouter.HandleFunc("/{account_id}", handleDeleteAccount(s.AccountsStore)).Methods("DELETE")
}

func handleListAccounts(accounts store.AccountsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		if err := session.RequireRole(id.Session(), model.RoleOwner); err != nil {
			respondWithMappedError(w, err)
			return
		}

		list, err := accounts.ListAccounts()
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		response := make([]AccountResponse, 0, len(list))
		for _, account := range list {
			response = append(response, AccountResponse{
				ID:        account.Id,
				Name:      account.Name,
				Email:     account.Email,
				Role:      account.Role,
				CreatedAt: account.CreatedAt,
			})
		}
		respondWithJSON(w, http.StatusOK, response)
	}
}

func handleDeleteAccount(accounts store.AccountsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		targetID := mux.Vars(r)["account_id"]

		// Owners can delete anyone; everyone else only themselves.
		if targetID != id.AccountID {
			if err := session.RequireRole(id.Session(), model.RoleOwner); err != nil {
				respondWithMappedError(w, err)
				return
			}
		}

		if err := accounts.DeleteAccount(targetID); err != nil {
			respondWithMappedError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleChangePassword(accounts store.AccountsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())

		var req ChangePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		if req.NewPassword == "" {
			respondWithError(w, http.StatusUnprocessableEntity, "Missing required fields")
			return
		}

		account, err := accounts.AccountByID(id.AccountID)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(req.CurrentPassword)); err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		account.PasswordHash = newHash
		if err := accounts.UpdateAccount(account); err != nil {
			respondWithMappedError(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
	}
}

func handleChangeEmail(accounts store.AccountsStore, notifier notify.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())

		var req ChangeEmailRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		if req.NewEmail == "" {
			respondWithError(w, http.StatusUnprocessableEntity, "Missing required fields")
			return
		}

		account, err := accounts.AccountByID(id.AccountID)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(req.Password)); err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		if _, err := accounts.AccountByEmail(req.NewEmail); err == nil {
			respondWithMappedError(w, store.ErrAlreadyExists)
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			respondWithMappedError(w, err)
			return
		}

		// The new address starts unverified; login stays blocked until its
		// token comes back through /authn/verify.
		verificationToken := uuid.NewString()
		account.Email = req.NewEmail
		account.VerificationToken = &verificationToken
		if err := accounts.UpdateAccount(account); err != nil {
			respondWithMappedError(w, err)
			return
		}
		_ = notifier.VerificationToken(account.Email, verificationToken)

		respondWithJSON(w, http.StatusOK, map[string]string{"status": "verification required"})
	}
}
