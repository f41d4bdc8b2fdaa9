package identity

import (
	"context"
	"net"

	"github.com/keyfold/keyfold/pkg/model"
	"github.com/keyfold/keyfold/pkg/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

// Identity represents the authenticated identity for a request.
// It combines session claims with request-specific context.
type Identity struct {
	// Session claims
	AccountID string
	Name      string
	Email     string

	// Role is loaded from storage by the middleware, not carried in the
	// token, so role changes take effect without re-login.
	Role string

	// Request context
	DeviceID string // x-device-id header, verified against the trust registry
	RemoteIP net.IP // Client IP address
}

// FromSession creates an Identity from verified session claims.
func FromSession(claims *session.Identity) *Identity {
	return &Identity{
		AccountID: claims.AccountID,
		Name:      claims.Name,
		Email:     claims.Email,
		Role:      claims.Role,
	}
}

// WithRole sets the storage-backed role.
func (i *Identity) WithRole(role string) *Identity {
	i.Role = role
	return i
}

// WithDeviceID sets the verified device id.
func (i *Identity) WithDeviceID(deviceID string) *Identity {
	i.DeviceID = deviceID
	return i
}

// WithRemoteIP sets the remote IP address.
func (i *Identity) WithRemoteIP(ip net.IP) *Identity {
	i.RemoteIP = ip
	return i
}

// IsOwner returns true if the account holds the owner role.
func (i *Identity) IsOwner() bool {
	return i.Role == model.RoleOwner
}

// Session converts back to the claim form expected by session.RequireRole.
func (i *Identity) Session() *session.Identity {
	return &session.Identity{
		AccountID: i.AccountID,
		Name:      i.Name,
		Email:     i.Email,
		Role:      i.Role,
	}
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}
