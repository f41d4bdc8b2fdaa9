// Package server provides the HTTP server for the keyfold API.
//
// This package implements the core HTTP server that handles all keyfold REST
// API requests. It uses gorilla/mux for routing and provides middleware for
// session authentication and device trust.
//
// # Server Setup
//
//	srv := server.NewServer(cipher, authority, db, notifier, host, port)
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Components
//
// The Server struct holds:
//
//   - Cipher: the two-layer at-rest cipher
//   - Authority: session token signing and verification
//   - Router: HTTP request router
//   - DB: Database connection
//   - Stores: accounts, devices, vaults and secrets storage
//   - Middleware: session authentication and device authorization
//
// # Endpoints
//
// API endpoints are registered via the endpoints subpackage:
//
//	endpoints.RegisterAll(srv)
//
// This registers all keyfold API endpoints including:
//
//   - /accounts - registration and owner administration
//   - /authn/* - login, verification, recovery
//   - /vaults and nested /credentials, /otp-seeds - secret management
//   - /devices - the device-trust registry
//   - /whoami - session introspection
package server
