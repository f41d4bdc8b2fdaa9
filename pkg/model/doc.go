// Package model defines the database models for keyfold.
//
// This package contains GORM models that map to the keyfold PostgreSQL
// schema.
//
// # Core Models
//
//   - Account: a registered user, their public key and role
//   - Device: a trusted device registered to an account
//   - Vault: a named collection of secrets belonging to an account
//   - Credential: a username/password pair stored in a vault
//   - OtpSeed: a TOTP seed and its derivation parameters stored in a vault
//
// # Encryption hooks
//
// Secret-bearing fields arrive at this layer already sealed to the owning
// account's public key. The GORM hooks on Credential and OtpSeed apply and
// remove the symmetric at-rest layer using a cipher carried in the DB
// context, so a row read back through a store is exactly the "for transit"
// form: still RSA ciphertext, never plaintext.
package model
