package store

import (
	"github.com/keyfold/keyfold/pkg/model"
)

// AccountsStore abstracts account storage operations
type AccountsStore interface {
	// CreateAccount persists a new account.
	// Returns ErrAlreadyExists if the email is taken.
	CreateAccount(account *model.Account) error

	// AccountByEmail looks an account up by email.
	// Returns ErrNotFound if no such account exists.
	AccountByEmail(email string) (*model.Account, error)

	// AccountByID looks an account up by id.
	// Returns ErrNotFound if no such account exists.
	AccountByID(id string) (*model.Account, error)

	// ListAccounts returns all accounts. Owner-only surface.
	ListAccounts() ([]model.Account, error)

	// CountAccounts reports how many accounts exist. The first account
	// registered on a deployment becomes the owner.
	CountAccounts() (int64, error)

	// UpdateAccount persists changes to name, email, password hash, role
	// and the verification/recovery tokens. The public key is never
	// updated.
	UpdateAccount(account *model.Account) error

	// DeleteAccount soft-deletes an account.
	// Returns ErrNotFound if no such account exists.
	DeleteAccount(id string) error
}
