package endpoints

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/keyfold/keyfold/pkg/keyfold"
	"github.com/keyfold/keyfold/pkg/model"
	"github.com/keyfold/keyfold/pkg/notify"
	"github.com/keyfold/keyfold/pkg/server"
	"github.com/keyfold/keyfold/pkg/server/store"
)

// RegisterRequest is the body of POST /accounts.
type RegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceName string `json:"deviceName,omitempty"`
}

// RegisterResponse carries the private key out exactly once. It is never
// persisted server-side and cannot be fetched again.
type RegisterResponse struct {
	AccountID       string `json:"accountId"`
	PrivateKey      string `json:"privateKey"`
	InitialDeviceID string `json:"initialDeviceId"`
}

// RegisterRegistrationEndpoint registers the public account-creation
// endpoint.
func RegisterRegistrationEndpoint(s *server.Server) {
	s.Router.HandleFunc("/accounts", handleRegister(s.AccountsStore, s.DevicesStore, s.Notifier)).Methods("POST")
}

func handleRegister(accounts store.AccountsStore, devices store.DevicesStore, notifier notify.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		var missing []string
		for field, value := range map[string]string{
			"name":     req.Name,
			"email":    req.Email,
			"password": req.Password,
		} {
			if strings.TrimSpace(value) == "" {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			respondWithError(w, http.StatusUnprocessableEntity, "Missing required fields")
			return
		}

		// Duplicate check runs before key generation so a taken email
		// costs no keygen work.
		if _, err := accounts.AccountByEmail(req.Email); err == nil {
			respondWithError(w, http.StatusConflict, "Already exists")
			return
		}

		passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		keyPair, err := keyfold.GenerateKeyPair()
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		role := model.RoleStandard
		if count, countErr := accounts.CountAccounts(); countErr == nil && count == 0 {
			role = model.RoleOwner
		}

		verificationToken := uuid.NewString()
		account := &model.Account{
			Name:              req.Name,
			Email:             req.Email,
			PasswordHash:      passwordHash,
			PublicKeyPem:      keyPair.PublicPEM(),
			Role:              role,
			VerificationToken: &verificationToken,
		}

		if err := accounts.CreateAccount(account); err != nil {
			respondWithMappedError(w, err)
			return
		}

		device, err := devices.RegisterDevice(account.Id, deviceLabel(req.DeviceName, r.UserAgent()))
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		_ = notifier.VerificationToken(account.Email, verificationToken)

		respondWithJSON(w, http.StatusCreated, RegisterResponse{
			AccountID:       account.Id,
			PrivateKey:      string(keyPair.PrivatePEM()),
			InitialDeviceID: device.Id,
		})
	}
}

// deviceLabel picks the registration label for the initial device: an
// explicit name wins, then the User-Agent product token, then a generic
// fallback.
func deviceLabel(explicit, userAgent string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}

	if userAgent != "" {
		if product, _, found := strings.Cut(userAgent, "/"); found && product != "" {
			return product
		}
		return userAgent
	}

	return "Unknown device"
}
