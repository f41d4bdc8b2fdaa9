package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/keyfold/keyfold/pkg/keyfold"
	"github.com/keyfold/keyfold/pkg/server/store"
	"github.com/keyfold/keyfold/pkg/session"
)

func respondWithError(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, map[string]interface{}{"error": payload})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithMappedError translates sentinel errors into their HTTP form.
// Anything unrecognized is a 500.
func respondWithMappedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrDeviceNotRegistered):
		respondWithError(w, http.StatusNotFound, "Device not registered")
	case errors.Is(err, store.ErrAlreadyExists):
		respondWithError(w, http.StatusConflict, "Already exists")
	case errors.Is(err, keyfold.ErrPayloadTooLarge):
		respondWithError(w, http.StatusRequestEntityTooLarge, "Payload too large")
	case errors.Is(err, keyfold.ErrDecryptionFailed):
		respondWithError(w, http.StatusUnprocessableEntity, "Decryption failed")
	case errors.Is(err, session.ErrForbidden):
		respondWithError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, session.ErrInvalidSession):
		respondWithError(w, http.StatusUnauthorized, "Invalid session")
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
