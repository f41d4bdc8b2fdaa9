package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/keyfold/keyfold/pkg/config"
	"github.com/keyfold/keyfold/pkg/db"
	"github.com/keyfold/keyfold/pkg/keyfold"
	"github.com/keyfold/keyfold/pkg/notify"
	"github.com/keyfold/keyfold/pkg/server"
	"github.com/keyfold/keyfold/pkg/server/endpoints"
	"github.com/keyfold/keyfold/pkg/session"
)

func defaultBindAddress() string {
	return config.Get().BindAddress
}

func defaultPort() string {
	return strconv.Itoa(config.Get().Port)
}

func defaultPortInt() int {
	return config.Get().Port
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the keyfold application server",
	Long: `Run the keyfold application server.

To run the server requires the environment variables KEYFOLD_DATA_KEY,
KEYFOLD_SESSION_SECRET, KEYFOLD_AT_REST_SALT, KEYFOLD_AT_REST_DIGEST
and DATABASE_URL.

By default, database migrations are run on startup. Use --no-migrate to skip.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Validate required environment variables first (fail fast)
		secrets, err := config.LoadSecrets()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Run migrations unless --no-migrate is set
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			log.Println("Running database migrations...")
			if err := runMigrations(); err != nil {
				fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
				os.Exit(1)
			}
		}

		cipher, err := newAtRestCipher(secrets)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to initiate cipher:", err)
			os.Exit(1)
		}

		authority, err := session.NewAuthority(secrets.SessionSecret, config.Get().SessionTTL())
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to initiate session authority:", err)
			os.Exit(1)
		}

		gormDB, err := db.Connect(db.Config{URL: secrets.DatabaseURL, Cipher: cipher})
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to connect to DB:", err)
			os.Exit(1)
		}

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		s := server.NewServer(cipher, authority, gormDB, notify.NewLogNotifier(nil), host, port)

		endpoints.RegisterAll(s)

		// Tunables reload on file change; secrets never do.
		go func() {
			err := config.Watch(context.Background(), func(cfg *config.Config) {
				log.Println("Configuration reloaded")
			})
			if err != nil {
				log.Println("Config watch disabled:", err)
			}
		}()

		log.Printf("Running server at http://%s:%s...\n", host, port)
		log.Fatal(s.Start())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}

// newAtRestCipher builds the symmetric at-rest layer from deployment
// secrets. The data key arrives base64-encoded (see data-key generate).
func newAtRestCipher(secrets *config.Secrets) (*keyfold.AtRestCipher, error) {
	dataKey, err := base64.StdEncoding.DecodeString(string(secrets.DataKey))
	if err != nil {
		return nil, fmt.Errorf("bad KEYFOLD_DATA_KEY: %w", err)
	}

	return keyfold.NewAtRestCipher(dataKey, secrets.AtRestSalt, secrets.AtRestDigest)
}
