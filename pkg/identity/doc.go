// Package identity provides authenticated identity management for keyfold
// requests.
//
// This package separates the concept of an authenticated identity from the
// raw token verification. An Identity combines session claims (account id,
// name, email) with request-specific context (role, device id, remote IP).
//
// # Basic Usage
//
//	// Create identity from verified session claims
//	id := identity.FromSession(claims)
//
//	// Add request context
//	id.WithRole(account.Role).
//	   WithDeviceID(deviceID).
//	   WithRemoteIP(clientIP)
//
//	// Store in request context
//	ctx = identity.Set(ctx, id)
//
//	// Retrieve from context
//	id, ok := identity.Get(ctx)
//
// # Identity vs Session
//
// The session package handles signing and verifying the raw session token.
// The identity package builds on that to provide a richer context:
//   - Session claims (account id, name, email)
//   - Storage-backed role, loaded per request
//   - Device trust (the verified x-device-id header)
//   - Client IP
package identity
