package store

import (
	"github.com/keyfold/keyfold/pkg/model"
)

// SecretsStore abstracts credential and OTP-seed operations within a
// vault. Secret-bearing fields pass through this layer in their sealed
// (asymmetric) form; the symmetric at-rest layer is handled by the model
// hooks, so fetches come back for transit, never in plaintext.
type SecretsStore interface {
	// CreateCredential persists a new credential in a vault.
	CreateCredential(credential *model.Credential) error

	// CredentialByID fetches one credential scoped to a vault.
	// Returns ErrNotFound on absence or foreign vault.
	CredentialByID(vaultID, credentialID string) (*model.Credential, error)

	// ListCredentials returns all credentials in a vault.
	ListCredentials(vaultID string) ([]model.Credential, error)

	// UpdateCredential re-persists only the cipher fields set on the
	// struct; untouched fields keep their stored ciphertext.
	// Returns ErrNotFound on absence or foreign vault.
	UpdateCredential(credential *model.Credential) error

	// DeleteCredential removes a credential.
	// Returns ErrNotFound on absence or foreign vault.
	DeleteCredential(vaultID, credentialID string) error

	// CreateOtpSeed persists a new OTP seed in a vault.
	CreateOtpSeed(seed *model.OtpSeed) error

	// OtpSeedByID fetches one OTP seed scoped to a vault.
	// Returns ErrNotFound on absence or foreign vault.
	OtpSeedByID(vaultID, seedID string) (*model.OtpSeed, error)

	// ListOtpSeeds returns all OTP seeds in a vault.
	ListOtpSeeds(vaultID string) ([]model.OtpSeed, error)

	// UpdateOtpSeed re-persists only the fields set on the struct.
	// Returns ErrNotFound on absence or foreign vault.
	UpdateOtpSeed(seed *model.OtpSeed) error

	// DeleteOtpSeed removes an OTP seed.
	// Returns ErrNotFound on absence or foreign vault.
	DeleteOtpSeed(vaultID, seedID string) error
}
