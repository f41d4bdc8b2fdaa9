// Package store provides storage abstractions for the keyfold server.
//
// This package defines interfaces for database operations, allowing the
// server endpoints to be decoupled from the specific database implementation.
// This enables easier testing with mocks and potential support for different
// storage backends.
//
// # Available Stores
//
//   - AccountsStore: account lifecycle, lookup and role administration
//   - DevicesStore: the device-trust registry gating secret reads
//   - VaultsStore: vault CRUD scoped to the owning account
//   - SecretsStore: credential and OTP-seed operations within a vault
//
// # Usage
//
//	accounts := gorm.NewAccountsStore(db)
//	account, err := accounts.AccountByEmail("alice@example.com")
//	if err != nil {
//	    if errors.Is(err, store.ErrNotFound) {
//	        // Handle not found
//	    }
//	}
package store
