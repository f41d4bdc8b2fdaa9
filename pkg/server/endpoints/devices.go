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

// DeviceRequest is the body of device registration and rename calls.
type DeviceRequest struct {
	Name string `json:"name"`
}

// DeviceResponse is one trust-registry entry in API form.
type DeviceResponse struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"createdAt"`
}

func deviceResponse(device *model.Device) DeviceResponse {
	return DeviceResponse{
		ID:        device.Id,
		Label:     device.Label,
		CreatedAt: device.CreatedAt,
	}
}

// RegisterDevicesEndpoints registers the trust-registry surface. The
// registration call itself is session-gated but not device-gated; a newly
// paired device has to be able to add itself.
func RegisterDevicesEndpoints(s *server.Server) {
	devicesRouter := s.Router.PathPrefix("/devices").Subrouter()
	devicesRouter.Use(s.SessionMiddleware.Middleware)

	devicesRouter.HandleFunc("", handleListDevices(s.DevicesStore)).Methods("GET")
	devicesRouter.HandleFunc("", handleRegisterDevice(s.DevicesStore)).Methods("POST")
	devicesRouter.HandleFunc("/{device_id}", handleRenameDevice(s.DevicesStore)).Methods("PATCH")
	devicesRouter.HandleFunc("/{device_id}", handleRevokeDevice(s.DevicesStore)).Methods("DELETE")
}

func handleListDevices(devices store.DevicesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())

		list, err := devices.ListDevices(id.AccountID)
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		response := make([]DeviceResponse, 0, len(list))
		for i := range list {
			response = append(response, deviceResponse(&list[i]))
		}
		respondWithJSON(w, http.StatusOK, response)
	}
}

func handleRegisterDevice(devices store.DevicesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())

		var req DeviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		device, err := devices.RegisterDevice(id.AccountID, deviceLabel(req.Name, r.UserAgent()))
		if err != nil {
			respondWithMappedError(w, err)
			return
		}

		respondWithJSON(w, http.StatusCreated, deviceResponse(device))
	}
}

func handleRenameDevice(devices store.DevicesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		deviceID := mux.Vars(r)["device_id"]

		var req DeviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
			return
		}
		defer func() { _ = r.Body.Close() }()

		if strings.TrimSpace(req.Name) == "" {
			respondWithError(w, http.StatusUnprocessableEntity, "Missing required fields")
			return
		}

		if err := devices.RenameDevice(id.AccountID, deviceID, req.Name); err != nil {
			respondWithMappedError(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]string{"id": deviceID, "label": req.Name})
	}
}

func handleRevokeDevice(devices store.DevicesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		deviceID := mux.Vars(r)["device_id"]

		if err := devices.RevokeDevice(id.AccountID, deviceID); err != nil {
			respondWithMappedError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
