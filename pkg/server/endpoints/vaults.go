package endpoints

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/keyfold/keyfold/pkg/identity"
	"github.com/keyfold/keyfold/pkg/model"
	"github.com/keyfold/keyfold/pkg/server"
	"github.com/keyfold/keyfold/pkg/server/store"
)

// VaultRequest is the body of vault create and update calls.
type VaultRequest struct {
	Name string `json:"name"`
	Url  string `json:"url"`
}

// VaultResponse is one vault in API form.
type VaultResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Url       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

func vaultResponse(vault *model.Vault) VaultResponse {
	return VaultResponse{
		ID:        vault.Id,
		Name:      vault.Name,
		Url:       vault.Url,
		CreatedAt: vault.CreatedAt,
	}
}

// RegisterVaultsEndpoints registers vault CRUD under session auth.
func RegisterVaultsEndpoints(s *server.Server) {
	vaultsRouter := s.Router.PathPrefix("/vaults").Subrouter()
	vaultsRouter.Use(s.SessionMiddleware.Middleware)

	vaultsRouter.HandleFunc("", handleCreateVault(s.VaultsStore)).Methods("POST")
	vaultsRouter.HandleFunc("", handleListVaults(s.VaultsStore)).Methods("GET")
	vaultsRouter.HandleFunc("/{vault_id}", handleFetchVault(s.VaultsStore)).Methods("GET")
	vaultsRouter.HandleFunc("/{vault_id}", handleUpdateVault(s.VaultsStore)).Methods("PATCH")
	vaultsRouter.HandleFunc("/{vault_id}", handleDeleteVault(s.VaultsStore)).Methods("DELETE")
}

func handleCreateVault(vaults store.VaultsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())

		var req VaultRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		if strings.TrimSpace(req.Name) == "" {
			respondWithError(w, http.StatusUnprocessableEntity, "Missing required fields")
			return
		}

		vault := &model.Vault{
			AccountId: id.AccountID,
			Name:      req.Name,
			Url:       req.Url,
		}
		if err := vaults.CreateVault(vault); err != nil {
			respondWithMappedError(w, err)
			return
		}

		respondWithJSON(w, http.StatusCreated, vaultResponse(vault))
	}
}

func handleListVaults(vaults store.VaultsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())

		list, err := vaults.ListVaults(id.AccountID)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		response := make([]VaultResponse, 0, len(list))
		for i := range list {
			response = append(response, vaultResponse(&list[i]))
		}
		respondWithJSON(w, http.StatusOK, response)
	}
}

func handleFetchVault(vaults store.VaultsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		vaultID := mux.Vars(r)["vault_id"]

		vault, err := vaults.VaultByID(id.AccountID, vaultID)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, vaultResponse(vault))
	}
}

func handleUpdateVault(vaults store.VaultsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		vaultID := mux.Vars(r)["vault_id"]

		var req VaultRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		vault := &model.Vault{
			Id:        vaultID,
			AccountId: id.AccountID,
			Name:      req.Name,
			Url:       req.Url,
		}
		if err := vaults.UpdateVault(vault); err != nil {
			respondWithMappedError(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, vaultResponse(vault))
	}
}

func handleDeleteVault(vaults store.VaultsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		vaultID := mux.Vars(r)["vault_id"]

		if err := vaults.DeleteVault(id.AccountID, vaultID); err != nil {
			respondWithMappedError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
