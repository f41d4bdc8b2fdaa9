package store

import (
	"github.com/keyfold/keyfold/pkg/model"
)

// DevicesStore abstracts the device-trust registry
type DevicesStore interface {
	// RegisterDevice adds a device to the account's registry and returns
	// it with its generated id.
	RegisterDevice(accountID, label string) (*model.Device, error)

	// AuthorizeDevice checks the exact (account, device) pair.
	// Returns ErrDeviceNotRegistered on any miss, including a device id
	// registered to a different account.
	AuthorizeDevice(accountID, deviceID string) error

	// ListDevices returns the account's registered devices.
	ListDevices(accountID string) ([]model.Device, error)

	// RenameDevice updates a device label.
	// Returns ErrNotFound if the pair doesn't exist.
	RenameDevice(accountID, deviceID, label string) error

	// RevokeDevice removes the device from the registry. The row is all
	// that goes; stored ciphertext is not re-encrypted, so material the
	// device already holds is not recalled.
	// Returns ErrNotFound if the pair doesn't exist.
	RevokeDevice(accountID, deviceID string) error
}
