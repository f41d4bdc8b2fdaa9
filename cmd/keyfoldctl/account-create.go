package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/keyfold/keyfold/pkg/config"
	"github.com/keyfold/keyfold/pkg/db"
	"github.com/keyfold/keyfold/pkg/keyfold"
	"github.com/keyfold/keyfold/pkg/model"
	storegorm "github.com/keyfold/keyfold/pkg/server/store/gorm"
)

// accountCreateCmd represents the account create command
var accountCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create an account",
	Long: `Create an account directly in the database.

This command creates a new account with a 2048-bit RSA key pair. The
public half is stored; the private half is printed to STDOUT exactly
once and never persisted. Accounts created this way skip email
verification.

If no password is provided one is generated and printed to STDERR.

The first account on a deployment becomes the owner.

Example:
  keyfoldctl account create alice@example.com
  keyfoldctl account create alice@example.com --name Alice --password hunter22`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		email := args[0]
		name, _ := cmd.Flags().GetString("name")
		password, _ := cmd.Flags().GetString("password")

		privateKey, err := createAccount(name, email, password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create account: %v\n", err)
			os.Exit(1)
		}

		fmt.Fprintf(os.Stderr, "Created account '%s'\n", email)
		fmt.Printf("%s", privateKey)
	},
}

func init() {
	accountCmd.AddCommand(accountCreateCmd)
	accountCreateCmd.Flags().StringP("name", "n", "", "Display name (default: the email)")
	accountCreateCmd.Flags().StringP("password", "w", "", "Login password (default: generated)")
}

func createAccount(name, email, password string) (privateKeyPEM []byte, err error) {
	secrets, err := config.LoadSecrets()
	if err != nil {
		return nil, err
	}

	cipher, err := newAtRestCipher(secrets)
	if err != nil {
		return nil, err
	}

	gormDB, err := db.Connect(db.Config{URL: secrets.DatabaseURL, Cipher: cipher})
	if err != nil {
		return nil, err
	}
	accounts := storegorm.NewAccountsStore(gormDB)

	if name == "" {
		name = email
	}
	if password == "" {
		random, err := keyfold.RandomBytes(16)
		if err != nil {
			return nil, err
		}
		password = base64.RawURLEncoding.EncodeToString(random)
		fmt.Fprintf(os.Stderr, "Generated password: %s\n", password)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	keyPair, err := keyfold.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	role := model.RoleStandard
	count, err := accounts.CountAccounts()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		role = model.RoleOwner
	}

	account := &model.Account{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		PublicKeyPem: keyPair.PublicPEM(),
		Role:         role,
	}
	if err := accounts.CreateAccount(account); err != nil {
		return nil, err
	}

	return keyPair.PrivatePEM(), nil
}
