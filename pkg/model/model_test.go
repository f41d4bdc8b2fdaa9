package model

import (
	"bytes"
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/keyfold/keyfold/pkg/keyfold"
)

func testCipher(t *testing.T) *keyfold.AtRestCipher {
	t.Helper()
	cipher, err := keyfold.NewAtRestCipher([]byte("test-data-key"), []byte("test-salt"), "sha256")
	if err != nil {
		t.Fatalf("NewAtRestCipher: %v", err)
	}
	return cipher
}

func txWithCipher(cipher Cipher) *gorm.DB {
	tx := &gorm.DB{Config: &gorm.Config{}}
	ctx := context.Background()
	if cipher != nil {
		ctx = context.WithValue(ctx, "cipher", cipher)
	}
	tx.Statement = &gorm.Statement{DB: tx, Context: ctx}
	return tx
}

func TestCredentialHooks_RoundTrip(t *testing.T) {
	cipher := testCipher(t)
	tx := txWithCipher(cipher)

	sealedUser := []byte("rsa-blob-username")
	sealedPass := []byte("rsa-blob-password")

	cred := &Credential{
		VaultId:        "vault-1",
		UsernameCipher: append([]byte(nil), sealedUser...),
		PasswordCipher: append([]byte(nil), sealedPass...),
	}

	if err := cred.BeforeCreate(tx); err != nil {
		t.Fatalf("BeforeCreate: %v", err)
	}
	if cred.Id == "" {
		t.Fatal("BeforeCreate did not assign an id")
	}
	if bytes.Equal(cred.UsernameCipher, sealedUser) {
		t.Fatal("username not wrapped at rest")
	}
	if bytes.Equal(cred.PasswordCipher, sealedPass) {
		t.Fatal("password not wrapped at rest")
	}

	if err := cred.AfterFind(tx); err != nil {
		t.Fatalf("AfterFind: %v", err)
	}
	if !bytes.Equal(cred.UsernameCipher, sealedUser) {
		t.Error("username did not round trip to the transit form")
	}
	if !bytes.Equal(cred.PasswordCipher, sealedPass) {
		t.Error("password did not round trip to the transit form")
	}
}

func TestCredentialHooks_PartialUpdateWrapsOnlySetFields(t *testing.T) {
	cipher := testCipher(t)
	tx := txWithCipher(cipher)

	cred := &Credential{
		Id:             "cred-1",
		PasswordCipher: []byte("new-sealed-password"),
	}

	if err := cred.BeforeUpdate(tx); err != nil {
		t.Fatalf("BeforeUpdate: %v", err)
	}
	if cred.UsernameCipher != nil {
		t.Error("untouched username field was modified")
	}
	if bytes.Equal(cred.PasswordCipher, []byte("new-sealed-password")) {
		t.Error("updated password field was not wrapped")
	}
}

func TestCredentialHooks_AadIsRowScoped(t *testing.T) {
	cipher := testCipher(t)
	tx := txWithCipher(cipher)

	cred := &Credential{Id: "cred-1", PasswordCipher: []byte("sealed")}
	if err := cred.BeforeUpdate(tx); err != nil {
		t.Fatalf("BeforeUpdate: %v", err)
	}

	// Ciphertext moved to another row must not decrypt.
	other := &Credential{Id: "cred-2", PasswordCipher: cred.PasswordCipher}
	if err := other.AfterFind(tx); err == nil {
		t.Fatal("expected decryption failure for foreign row id")
	}
}

func TestOtpSeedHooks_RoundTrip(t *testing.T) {
	cipher := testCipher(t)
	tx := txWithCipher(cipher)

	sealedLabel := []byte("rsa-blob-label")
	sealedSeed := []byte("rsa-blob-seed")

	seed := &OtpSeed{
		VaultId:     "vault-1",
		LabelCipher: append([]byte(nil), sealedLabel...),
		SeedCipher:  append([]byte(nil), sealedSeed...),
		Digits:      6,
		Period:      30,
		Algorithm:   "SHA-1",
	}

	if err := seed.BeforeCreate(tx); err != nil {
		t.Fatalf("BeforeCreate: %v", err)
	}
	if err := seed.AfterFind(tx); err != nil {
		t.Fatalf("AfterFind: %v", err)
	}
	if !bytes.Equal(seed.LabelCipher, sealedLabel) || !bytes.Equal(seed.SeedCipher, sealedSeed) {
		t.Error("otp seed fields did not round trip to the transit form")
	}
	if seed.Digits != 6 || seed.Period != 30 || seed.Algorithm != "SHA-1" {
		t.Error("derivation parameters must pass through untouched")
	}
}

func TestHooks_MissingCipher(t *testing.T) {
	tx := txWithCipher(nil)

	cred := &Credential{UsernameCipher: []byte("sealed")}
	if err := cred.BeforeCreate(tx); err == nil {
		t.Error("expected error when no cipher is in the db context")
	}

	seed := &OtpSeed{SeedCipher: []byte("sealed")}
	if err := seed.AfterFind(tx); err == nil {
		t.Error("expected error when no cipher is in the db context")
	}
}

func TestAccountBeforeCreate_Defaults(t *testing.T) {
	a := &Account{Email: "alice@example.com"}
	if err := a.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate: %v", err)
	}
	if a.Id == "" {
		t.Error("expected generated id")
	}
	if a.Role != RoleStandard {
		t.Errorf("expected default role %q, got %q", RoleStandard, a.Role)
	}

	owner := &Account{Email: "first@example.com", Role: RoleOwner}
	_ = owner.BeforeCreate(nil)
	if owner.Role != RoleOwner {
		t.Error("explicit role must be preserved")
	}
}

func TestAccountVerified(t *testing.T) {
	token := "tok"
	a := &Account{VerificationToken: &token}
	if a.Verified() {
		t.Error("account with a pending verification token is not verified")
	}
	a.VerificationToken = nil
	if !a.Verified() {
		t.Error("account with no verification token is verified")
	}
}
