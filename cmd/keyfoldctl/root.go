package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "keyfoldctl",
	Short: "keyfold credential vault server and admin tool",
	Long: `keyfoldctl runs and administers a keyfold server.

keyfold is a credential vault: accounts hold vaults of passwords and
TOTP seeds, stored two-layer encrypted so that only the account's
private key (held on trusted devices, never by the server) can read
them back.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
