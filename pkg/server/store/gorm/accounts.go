package gorm

import (
	"errors"

	"gorm.io/gorm"

	"github.com/keyfold/keyfold/pkg/model"
	"github.com/keyfold/keyfold/pkg/server/store"
)

// Ensure AccountsStore implements store.AccountsStore
var _ store.AccountsStore = (*AccountsStore)(nil)

// AccountsStore implements store.AccountsStore using GORM
type AccountsStore struct {
	db *gorm.DB
}

// NewAccountsStore creates a new AccountsStore
func NewAccountsStore(db *gorm.DB) *AccountsStore {
	return &AccountsStore{db: db}
}

// CreateAccount persists a new account.
func (s *AccountsStore) CreateAccount(account *model.Account) error {
	var existing model.Account
	err := s.db.Where("email = ?", account.Email).First(&existing).Error
	if err == nil {
		return store.ErrAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return s.db.Create(account).Error
}

// AccountByEmail looks an account up by email.
func (s *AccountsStore) AccountByEmail(email string) (*model.Account, error) {
	var account model.Account
	err := s.db.Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// AccountByID looks an account up by id.
func (s *AccountsStore) AccountByID(id string) (*model.Account, error) {
	var account model.Account
	err := s.db.Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ListAccounts returns all accounts.
func (s *AccountsStore) ListAccounts() ([]model.Account, error) {
	var accounts []model.Account
	err := s.db.Order("created_at asc").Find(&accounts).Error
	return accounts, err
}

// CountAccounts reports how many accounts exist.
func (s *AccountsStore) CountAccounts() (int64, error) {
	var count int64
	err := s.db.Model(&model.Account{}).Count(&count).Error
	return count, err
}

// UpdateAccount persists account changes. The public key column is left
// out of the update set so it stays immutable after registration.
func (s *AccountsStore) UpdateAccount(account *model.Account) error {
	tx := s.db.Model(account).
		Omit("public_key_pem").
		Select("name", "email", "password_hash", "role", "verification_token", "recovery_token").
		Updates(map[string]interface{}{
			"name":               account.Name,
			"email":              account.Email,
			"password_hash":      account.PasswordHash,
			"role":               account.Role,
			"verification_token": account.VerificationToken,
			"recovery_token":     account.RecoveryToken,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteAccount soft-deletes an account.
func (s *AccountsStore) DeleteAccount(id string) error {
	tx := s.db.Where("id = ?", id).Delete(&model.Account{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
