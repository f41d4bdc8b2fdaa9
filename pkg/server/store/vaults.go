package store

import (
	"github.com/keyfold/keyfold/pkg/model"
)

// VaultsStore abstracts vault storage operations. Every lookup is scoped
// to the owning account; a vault owned by someone else is ErrNotFound,
// never a forbidden hint that it exists.
type VaultsStore interface {
	// CreateVault persists a new vault for the account.
	CreateVault(vault *model.Vault) error

	// VaultByID fetches one vault owned by the account.
	// Returns ErrNotFound on absence or foreign ownership.
	VaultByID(accountID, vaultID string) (*model.Vault, error)

	// ListVaults returns the account's vaults.
	ListVaults(accountID string) ([]model.Vault, error)

	// UpdateVault persists name/url changes.
	// Returns ErrNotFound on absence or foreign ownership.
	UpdateVault(vault *model.Vault) error

	// DeleteVault removes the vault and everything in it.
	// Returns ErrNotFound on absence or foreign ownership.
	DeleteVault(accountID, vaultID string) error
}
