package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keyfold/keyfold/pkg/config"
	"github.com/keyfold/keyfold/pkg/db"
	storegorm "github.com/keyfold/keyfold/pkg/server/store/gorm"
)

// accountDeleteCmd represents the account delete command
var accountDeleteCmd = &cobra.Command{
	Use:   "delete <email>",
	Short: "Delete an account",
	Long: `Delete an account and all its associated data.

This command deletes the account's vaults, stored credentials, OTP
seeds and trusted devices, then soft-deletes the account itself.

Example:
  keyfoldctl account delete alice@example.com`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		email := args[0]

		if err := deleteAccount(email); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to delete account: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Deleted account '%s'\n", email)
	},
}

func init() {
	accountCmd.AddCommand(accountDeleteCmd)
}

func deleteAccount(email string) error {
	secrets, err := config.LoadSecrets()
	if err != nil {
		return err
	}

	cipher, err := newAtRestCipher(secrets)
	if err != nil {
		return err
	}

	gormDB, err := db.Connect(db.Config{URL: secrets.DatabaseURL, Cipher: cipher})
	if err != nil {
		return err
	}

	accounts := storegorm.NewAccountsStore(gormDB)
	account, err := accounts.AccountByEmail(email)
	if err != nil {
		return fmt.Errorf("account '%s' does not exist", email)
	}

	// Delete in order to respect foreign key constraints
	// 1. Delete stored credentials in the account's vaults
	if err := gormDB.Exec(`DELETE FROM credentials WHERE vault_id IN (SELECT id FROM vaults WHERE account_id = ?)`, account.Id).Error; err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}

	// 2. Delete OTP seeds in the account's vaults
	if err := gormDB.Exec(`DELETE FROM otp_seeds WHERE vault_id IN (SELECT id FROM vaults WHERE account_id = ?)`, account.Id).Error; err != nil {
		return fmt.Errorf("failed to delete otp seeds: %w", err)
	}

	// 3. Delete the vaults themselves
	if err := gormDB.Exec(`DELETE FROM vaults WHERE account_id = ?`, account.Id).Error; err != nil {
		return fmt.Errorf("failed to delete vaults: %w", err)
	}

	// 4. Delete the trusted device registry
	if err := gormDB.Exec(`DELETE FROM devices WHERE account_id = ?`, account.Id).Error; err != nil {
		return fmt.Errorf("failed to delete devices: %w", err)
	}

	// 5. Soft-delete the account
	if err := accounts.DeleteAccount(account.Id); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	return nil
}
