package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

// dbWaitCmd represents the db wait command
var dbWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the database to accept connections",
	Long: `Wait for the database to accept connections.

This command polls DATABASE_URL until the database responds to a ping
or the maximum number of retries is reached. Useful in container
startup ordering before running migrations.

Example:
  keyfoldctl db wait
  keyfoldctl db wait --retries 60`,
	Run: func(cmd *cobra.Command, args []string) {
		retries, _ := cmd.Flags().GetInt("retries")

		if err := waitForDatabase(retries); err != nil {
			fmt.Fprintf(os.Stderr, "Database did not become ready: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	dbCmd.AddCommand(dbWaitCmd)
	dbWaitCmd.Flags().IntP("retries", "r", 90, "Number of retries")
}

func waitForDatabase(retries int) error {
	dbURL := getDatabaseURL()
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	fmt.Println("Waiting for the database to be ready...")

	for i := 0; i < retries; i++ {
		if err := db.Ping(); err == nil {
			fmt.Println()
			fmt.Println("Database is ready!")
			return nil
		}

		fmt.Print(".")
		time.Sleep(1 * time.Second)
	}

	fmt.Println()
	return fmt.Errorf("database is not ready after %d seconds", retries)
}
