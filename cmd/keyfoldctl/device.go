package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// deviceCmd represents the device command
var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage trusted devices",
	Long:  `Manage this machine's membership in an account's trusted device registry.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'device' requires a subcommand (pair)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(deviceCmd)
}
