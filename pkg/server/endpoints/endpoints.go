// Package endpoints wires the keyfold HTTP API onto a server's router.
// Each Register* function owns one surface; RegisterAll installs the lot.
package endpoints

import (
	"github.com/keyfold/keyfold/pkg/server"
)

// RegisterAll registers every API endpoint. Order matters: registration
// (public POST /accounts) must precede the session-gated accounts
// subrouter, and vault CRUD must precede the nested secrets routes.
func RegisterAll(s *server.Server) {
	RegisterStatusEndpoints(s)
	RegisterRegistrationEndpoint(s)
	RegisterAuthnEndpoints(s)
	RegisterWhoamiEndpoint(s)
	RegisterAccountsEndpoints(s)
	RegisterDevicesEndpoints(s)
	RegisterVaultsEndpoints(s)
	RegisterSecretsEndpoints(s)
}
