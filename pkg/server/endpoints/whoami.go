package endpoints

import (
	"net/http"

	"github.com/keyfold/keyfold/pkg/identity"
	"github.com/keyfold/keyfold/pkg/server"
)

// WhoamiResponse represents the response from the /whoami endpoint
type WhoamiResponse struct {
	AccountID string `json:"accountId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// RegisterWhoamiEndpoint registers the /whoami endpoint
func RegisterWhoamiEndpoint(s *server.Server) {
	whoamiRouter := s.Router.PathPrefix("/whoami").Subrouter()
	whoamiRouter.Use(s.SessionMiddleware.Middleware)

	whoamiRouter.HandleFunc("", handleWhoami()).Methods("GET")
}

func handleWhoami() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Unable to determine identity")
			return
		}

		respondWithJSON(w, http.StatusOK, WhoamiResponse{
			AccountID: id.AccountID,
			Name:      id.Name,
			Email:     id.Email,
			Role:      id.Role,
		})
	}
}
