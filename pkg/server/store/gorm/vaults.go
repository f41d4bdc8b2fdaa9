package gorm

import (
	"errors"

	"gorm.io/gorm"

	"github.com/keyfold/keyfold/pkg/model"
	"github.com/keyfold/keyfold/pkg/server/store"
)

// Ensure VaultsStore implements store.VaultsStore
var _ store.VaultsStore = (*VaultsStore)(nil)

// VaultsStore implements store.VaultsStore using GORM
type VaultsStore struct {
	db *gorm.DB
}

// NewVaultsStore creates a new VaultsStore
func NewVaultsStore(db *gorm.DB) *VaultsStore {
	return &VaultsStore{db: db}
}

// CreateVault persists a new vault for the account.
func (s *VaultsStore) CreateVault(vault *model.Vault) error {
	return s.db.Create(vault).Error
}

// VaultByID fetches one vault owned by the account.
func (s *VaultsStore) VaultByID(accountID, vaultID string) (*model.Vault, error) {
	var vault model.Vault
	err := s.db.Where("id = ? AND account_id = ?", vaultID, accountID).First(&vault).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &vault, nil
}

// ListVaults returns the account's vaults.
func (s *VaultsStore) ListVaults(accountID string) ([]model.Vault, error) {
	var vaults []model.Vault
	err := s.db.Where("account_id = ?", accountID).Order("created_at asc").Find(&vaults).Error
	return vaults, err
}

// UpdateVault persists name/url changes for a vault the account owns.
func (s *VaultsStore) UpdateVault(vault *model.Vault) error {
	tx := s.db.Model(&model.Vault{}).
		Where("id = ? AND account_id = ?", vault.Id, vault.AccountId).
		Updates(map[string]interface{}{"name": vault.Name, "url": vault.Url})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteVault removes the vault and everything in it, atomically.
func (s *VaultsStore) DeleteVault(accountID, vaultID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND account_id = ?", vaultID, accountID).Delete(&model.Vault{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}

		if err := tx.Where("vault_id = ?", vaultID).Delete(&model.Credential{}).Error; err != nil {
			return err
		}
		return tx.Where("vault_id = ?", vaultID).Delete(&model.OtpSeed{}).Error
	})
}
