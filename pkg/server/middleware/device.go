package middleware

import (
	"errors"
	"net/http"

	"github.com/keyfold/keyfold/pkg/identity"
	"github.com/keyfold/keyfold/pkg/server/store"
)

// DeviceIDHeader carries the caller's device id on secret reads.
const DeviceIDHeader = "x-device-id"

// DeviceAuthorizer is middleware that checks the presented device id
// against the account's trust registry. It must run after the session
// middleware; a valid session from an untrusted device is still refused.
type DeviceAuthorizer struct {
	Devices store.DevicesStore
}

// NewDeviceAuthorizer creates a new device authorizer middleware
func NewDeviceAuthorizer(devices store.DevicesStore) *DeviceAuthorizer {
	return &DeviceAuthorizer{Devices: devices}
}

// Middleware returns an HTTP middleware that enforces device trust. A
// missing or unregistered device id gets 404, not 401: the session is
// fine, the device isn't in the registry.
func (d *DeviceAuthorizer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authorization missing")
			return
		}

		deviceID := r.Header.Get(DeviceIDHeader)
		if deviceID == "" {
			writeError(w, http.StatusNotFound, "Device not registered")
			return
		}

		if err := d.Devices.AuthorizeDevice(id.AccountID, deviceID); err != nil {
			if errors.Is(err, store.ErrDeviceNotRegistered) {
				writeError(w, http.StatusNotFound, "Device not registered")
				return
			}
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		id.WithDeviceID(deviceID)
		next.ServeHTTP(w, r)
	})
}
