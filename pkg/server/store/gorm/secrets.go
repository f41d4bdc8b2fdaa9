package gorm

import (
	"errors"

	"gorm.io/gorm"

	"github.com/keyfold/keyfold/pkg/model"
	"github.com/keyfold/keyfold/pkg/server/store"
)

// Ensure SecretsStore implements store.SecretsStore
var _ store.SecretsStore = (*SecretsStore)(nil)

// SecretsStore implements store.SecretsStore using GORM. Fields cross this
// boundary sealed to the account public key; the model hooks add and
// remove the symmetric at-rest layer.
type SecretsStore struct {
	db *gorm.DB
}

// NewSecretsStore creates a new SecretsStore
func NewSecretsStore(db *gorm.DB) *SecretsStore {
	return &SecretsStore{db: db}
}

// CreateCredential persists a new credential in a vault.
func (s *SecretsStore) CreateCredential(credential *model.Credential) error {
	return s.db.Create(credential).Error
}

// CredentialByID fetches one credential scoped to a vault.
func (s *SecretsStore) CredentialByID(vaultID, credentialID string) (*model.Credential, error) {
	var credential model.Credential
	err := s.db.Where("id = ? AND vault_id = ?", credentialID, vaultID).First(&credential).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &credential, nil
}

// ListCredentials returns all credentials in a vault.
func (s *SecretsStore) ListCredentials(vaultID string) ([]model.Credential, error) {
	var credentials []model.Credential
	err := s.db.Where("vault_id = ?", vaultID).Order("created_at asc").Find(&credentials).Error
	return credentials, err
}

// UpdateCredential re-persists only the cipher fields set on the struct.
// The BeforeUpdate hook wraps them; fields left nil stay out of the update
// set, so their stored ciphertext is byte-identical afterwards.
func (s *SecretsStore) UpdateCredential(credential *model.Credential) error {
	tx := s.db.Model(credential).
		Where("vault_id = ?", credential.VaultId).
		Updates(credential)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteCredential removes a credential.
func (s *SecretsStore) DeleteCredential(vaultID, credentialID string) error {
	tx := s.db.Where("id = ? AND vault_id = ?", credentialID, vaultID).Delete(&model.Credential{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CreateOtpSeed persists a new OTP seed in a vault.
func (s *SecretsStore) CreateOtpSeed(seed *model.OtpSeed) error {
	return s.db.Create(seed).Error
}

// OtpSeedByID fetches one OTP seed scoped to a vault.
func (s *SecretsStore) OtpSeedByID(vaultID, seedID string) (*model.OtpSeed, error) {
	var seed model.OtpSeed
	err := s.db.Where("id = ? AND vault_id = ?", seedID, vaultID).First(&seed).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &seed, nil
}

// ListOtpSeeds returns all OTP seeds in a vault.
func (s *SecretsStore) ListOtpSeeds(vaultID string) ([]model.OtpSeed, error) {
	var seeds []model.OtpSeed
	err := s.db.Where("vault_id = ?", vaultID).Order("created_at asc").Find(&seeds).Error
	return seeds, err
}

// UpdateOtpSeed re-persists only the fields set on the struct.
func (s *SecretsStore) UpdateOtpSeed(seed *model.OtpSeed) error {
	tx := s.db.Model(seed).
		Where("vault_id = ?", seed.VaultId).
		Updates(seed)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteOtpSeed removes an OTP seed.
func (s *SecretsStore) DeleteOtpSeed(vaultID, seedID string) error {
	tx := s.db.Where("id = ? AND vault_id = ?", seedID, vaultID).Delete(&model.OtpSeed{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
