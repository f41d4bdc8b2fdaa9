package endpoints

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/keyfold/keyfold/pkg/identity"
	"github.com/keyfold/keyfold/pkg/keyfold"
	"github.com/keyfold/keyfold/pkg/model"
	"github.com/keyfold/keyfold/pkg/server"
	"github.com/keyfold/keyfold/pkg/server/store"
	"github.com/keyfold/keyfold/pkg/totp"
)

// CredentialRequest is the body of credential creation.
type CredentialRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CredentialUpdateRequest carries only the fields to re-encrypt. A field
// left out keeps its stored ciphertext untouched.
type CredentialUpdateRequest struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
}

// CredentialResponse returns secret fields in transit form: the symmetric
// layer removed, the asymmetric layer intact, base64 over the wire. Only
// the holder of the account private key can finish the decryption.
type CredentialResponse struct {
	ID        string    `json:"id"`
	VaultID   string    `json:"vaultId"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"createdAt"`
}

// OtpSeedRequest is the body of OTP-seed creation.
type OtpSeedRequest struct {
	Label     string `json:"label"`
	Seed      string `json:"seed"`
	Digits    int    `json:"digits,omitempty"`
	Period    int    `json:"period,omitempty"`
	Algorithm string `json:"algorithm,omitempty"`
}

// OtpSeedUpdateRequest carries only the fields to change.
type OtpSeedUpdateRequest struct {
	Label     *string `json:"label,omitempty"`
	Seed      *string `json:"seed,omitempty"`
	Digits    *int    `json:"digits,omitempty"`
	Period    *int    `json:"period,omitempty"`
	Algorithm *string `json:"algorithm,omitempty"`
}

// OtpSeedResponse returns the label and seed in transit form; the
// derivation parameters are plain.
type OtpSeedResponse struct {
	ID        string    `json:"id"`
	VaultID   string    `json:"vaultId"`
	Label     string    `json:"label"`
	Seed      string    `json:"seed"`
	Digits    int       `json:"digits"`
	Period    int       `json:"period"`
	Algorithm string    `json:"algorithm"`
	CreatedAt time.Time `json:"createdAt"`
}

// RegisterSecretsEndpoints registers the credential and OTP-seed surfaces.
// Everything here sits behind both the session and the device gate: a
// valid session from an unregistered device gets nothing.
func RegisterSecretsEndpoints(s *server.Server) {
	secretsRouter := s.Router.PathPrefix("/vaults/{vault_id}").Subrouter()
	secretsRouter.Use(s.SessionMiddleware.Middleware)
	secretsRouter.Use(s.DeviceMiddleware.Middleware)

	secretsRouter.HandleFunc("/credentials", handleCreateCredential(s)).Methods("POST")
	secretsRouter.HandleFunc("/credentials", handleListCredentials(s)).Methods("GET")
	secretsRouter.HandleFunc("/credentials/{credential_id}", handleFetchCredential(s)).Methods("GET")
	secretsRouter.HandleFunc("/credentials/{credential_id}", handleUpdateCredential(s)).Methods("PATCH")
	secretsRouter.HandleFunc("/credentials/{credential_id}", handleDeleteCredential(s)).Methods("DELETE")

	secretsRouter.HandleFunc("/otp-seeds", handleCreateOtpSeed(s)).Methods("POST")
	secretsRouter.HandleFunc("/otp-seeds", handleListOtpSeeds(s)).Methods("GET")
	secretsRouter.HandleFunc("/otp-seeds/{seed_id}", handleFetchOtpSeed(s)).Methods("GET")
	secretsRouter.HandleFunc("/otp-seeds/{seed_id}", handleUpdateOtpSeed(s)).Methods("PATCH")
	secretsRouter.HandleFunc("/otp-seeds/{seed_id}", handleDeleteOtpSeed(s)).Methods("DELETE")
}

// ownedVault resolves the vault path variable against the caller's
// account. Foreign vaults come back as store.ErrNotFound.
func ownedVault(r *http.Request, vaults store.VaultsStore) (*model.Vault, error) {
	id, _ := identity.Get(r.Context())
	return vaults.VaultByID(id.AccountID, mux.Vars(r)["vault_id"])
}

// accountPublicKey loads the sealing key for the caller's account.
func accountPublicKey(r *http.Request, accounts store.AccountsStore) (*rsa.PublicKey, error) {
	id, _ := identity.Get(r.Context())
	account, err := accounts.AccountByID(id.AccountID)
	if err != nil {
		return nil, err
	}
	return keyfold.ParsePublicKeyPEM(account.PublicKeyPem)
}

func credentialResponse(credential *model.Credential) CredentialResponse {
	return CredentialResponse{
		ID:        credential.Id,
		VaultID:   credential.VaultId,
		Username:  base64.StdEncoding.EncodeToString(credential.UsernameCipher),
		Password:  base64.StdEncoding.EncodeToString(credential.PasswordCipher),
		CreatedAt: credential.CreatedAt,
	}
}

func otpSeedResponse(seed *model.OtpSeed) OtpSeedResponse {
	return OtpSeedResponse{
		ID:        seed.Id,
		VaultID:   seed.VaultId,
		Label:     base64.StdEncoding.EncodeToString(seed.LabelCipher),
		Seed:      base64.StdEncoding.EncodeToString(seed.SeedCipher),
		Digits:    seed.Digits,
		Period:    seed.Period,
		Algorithm: seed.Algorithm,
		CreatedAt: seed.CreatedAt,
	}
}

func handleCreateCredential(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vault, err := ownedVault(r, s.VaultsStore)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		var req CredentialRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		if req.Username == "" || req.Password == "" {
			respondWithError(w, http.StatusUnprocessableEntity, "Missing required fields")
			return
		}

		pub, err := accountPublicKey(r, s.AccountsStore)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		sealedUser, err := s.Cipher.SealToPublicKey(pub, []byte(req.Username))
		if err != nil {
			respondWithMappedError(w, err)
			return
		}
		sealedPass, err := s.Cipher.SealToPublicKey(pub, []byte(req.Password))
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		credential := &model.Credential{
			VaultId:        vault.Id,
			UsernameCipher: sealedUser,
			PasswordCipher: sealedPass,
		}
		if err := s.SecretsStore.CreateCredential(credential); err != nil {
			respondWithMappedError(w, err)
			return
		}

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{
			"id":        credential.Id,
			"vaultId":   credential.VaultId,
			"createdAt": credential.CreatedAt,
		})
	}
}

func handleListCredentials(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vault, err := ownedVault(r, s.VaultsStore)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		credentials, err := s.SecretsStore.ListCredentials(vault.Id)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		response := make([]CredentialResponse, 0, len(credentials))
		for i := range credentials {
			response = append(response, credentialResponse(&credentials[i]))
		}
		respondWithJSON(w, http.StatusOK, response)
	}
}

func handleFetchCredential(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vault, err := ownedVault(r, s.VaultsStore)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		credential, err := s.SecretsStore.CredentialByID(vault.Id, mux.Vars(r)["credential_id"])
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, credentialResponse(credential))
	}
}

func handleUpdateCredential(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vault, err := ownedVault(r, s.VaultsStore)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		var req CredentialUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		if req.Username == nil && req.Password == nil {
			respondWithError(w, http.StatusUnprocessableEntity, "No updatable fields")
			return
		}

		pub, err := accountPublicKey(r, s.AccountsStore)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		credential := &model.Credential{
			Id:      mux.Vars(r)["credential_id"],
			VaultId: vault.Id,
		}
		if req.Username != nil {
			credential.UsernameCipher, err = s.Cipher.SealToPublicKey(pub, []byte(*req.Username))
			if err != nil {
				respondWithMappedError(w, err)
				return
			}
		}
		if req.Password != nil {
			credential.PasswordCipher, err = s.Cipher.SealToPublicKey(pub, []byte(*req.Password))
			if err != nil {
				respondWithMappedError(w, err)
				return
			}
		}

		if err := s.SecretsStore.UpdateCredential(credential); err != nil {
			respondWithMappedError(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]string{"id": credential.Id})
	}
}

func handleDeleteCredential(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vault, err := ownedVault(r, s.VaultsStore)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		if err := s.SecretsStore.DeleteCredential(vault.Id, mux.Vars(r)["credential_id"]); err != nil {
			respondWithMappedError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCreateOtpSeed(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vault, err := ownedVault(r, s.VaultsStore)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		var req OtpSeedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		if req.Label == "" || req.Seed == "" {
			respondWithError(w, http.StatusUnprocessableEntity, "Missing required fields")
			return
		}

		if req.Digits == 0 {
			req.Digits = totp.DefaultDigits
		}
		if req.Period == 0 {
			req.Period = totp.DefaultPeriod
		}
		if req.Algorithm == "" {
			req.Algorithm = "SHA-1"
		}
		if req.Digits < 0 || req.Period < 0 {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid derivation parameters")
			return
		}
		if err := totp.ValidateAlgorithm(req.Algorithm); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Unsupported algorithm")
			return
		}

		pub, err := accountPublicKey(r, s.AccountsStore)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		sealedLabel, err := s.Cipher.SealToPublicKey(pub, []byte(req.Label))
		if err != nil {
			respondWithMappedError(w, err)
			return
		}
		sealedSeed, err := s.Cipher.SealToPublicKey(pub, []byte(req.Seed))
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		seed := &model.OtpSeed{
			VaultId:     vault.Id,
			LabelCipher: sealedLabel,
			SeedCipher:  sealedSeed,
			Digits:      req.Digits,
			Period:      req.Period,
			Algorithm:   req.Algorithm,
		}
		if err := s.SecretsStore.CreateOtpSeed(seed); err != nil {
			respondWithMappedError(w, err)
			return
		}

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{
			"id":        seed.Id,
			"vaultId":   seed.VaultId,
			"createdAt": seed.CreatedAt,
		})
	}
}

func handleListOtpSeeds(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vault, err := ownedVault(r, s.VaultsStore)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		seeds, err := s.SecretsStore.ListOtpSeeds(vault.Id)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		response := make([]OtpSeedResponse, 0, len(seeds))
		for i := range seeds {
			response = append(response, otpSeedResponse(&seeds[i]))
		}
		respondWithJSON(w, http.StatusOK, response)
	}
}

func handleFetchOtpSeed(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vault, err := ownedVault(r, s.VaultsStore)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		seed, err := s.SecretsStore.OtpSeedByID(vault.Id, mux.Vars(r)["seed_id"])
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, otpSeedResponse(seed))
	}
}

func handleUpdateOtpSeed(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vault, err := ownedVault(r, s.VaultsStore)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		var req OtpSeedUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		if req.Label == nil && req.Seed == nil && req.Digits == nil && req.Period == nil && req.Algorithm == nil {
			respondWithError(w, http.StatusUnprocessableEntity, "No updatable fields")
			return
		}

		seed := &model.OtpSeed{
			Id:      mux.Vars(r)["seed_id"],
			VaultId: vault.Id,
		}
		if req.Digits != nil {
			if *req.Digits <= 0 {
				respondWithError(w, http.StatusUnprocessableEntity, "Invalid derivation parameters")
				return
			}
			seed.Digits = *req.Digits
		}
		if req.Period != nil {
			if *req.Period <= 0 {
				respondWithError(w, http.StatusUnprocessableEntity, "Invalid derivation parameters")
				return
			}
			seed.Period = *req.Period
		}
		if req.Algorithm != nil {
			if err := totp.ValidateAlgorithm(*req.Algorithm); err != nil {
				respondWithError(w, http.StatusUnprocessableEntity, "Unsupported algorithm")
				return
			}
			seed.Algorithm = *req.Algorithm
		}

		if req.Label != nil || req.Seed != nil {
			pub, keyErr := accountPublicKey(r, s.AccountsStore)
			if keyErr != nil {
				respondWithMappedError(w, keyErr)
				return
			}
			if req.Label != nil {
				seed.LabelCipher, err = s.Cipher.SealToPublicKey(pub, []byte(*req.Label))
				if err != nil {
					respondWithMappedError(w, err)
					return
				}
			}
			if req.Seed != nil {
				seed.SeedCipher, err = s.Cipher.SealToPublicKey(pub, []byte(*req.Seed))
				if err != nil {
					respondWithMappedError(w, err)
					return
				}
			}
		}

		if err := s.SecretsStore.UpdateOtpSeed(seed); err != nil {
			respondWithMappedError(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]string{"id": seed.Id})
	}
}

func handleDeleteOtpSeed(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vault, err := ownedVault(r, s.VaultsStore)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		if err := s.SecretsStore.DeleteOtpSeed(vault.Id, mux.Vars(r)["seed_id"]); err != nil {
			respondWithMappedError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
