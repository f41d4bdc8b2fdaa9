// Package main is the keyfoldctl CLI: it runs the keyfold credential
// vault server and provides admin commands for accounts, devices, the
// database schema and the data encryption key.
//
// # Architecture
//
// The server is organized into several packages:
//
//   - pkg/server: HTTP server and routing
//   - pkg/server/endpoints: REST API endpoint handlers
//   - pkg/server/store: storage interfaces and the gorm implementation
//   - pkg/keyfold: cryptographic operations (key pairs, two-layer encryption)
//   - pkg/session: session token authority
//   - pkg/totp: TOTP code derivation
//   - pkg/pairing: device pairing state machine
//   - pkg/custody: client-local private key custody
//   - pkg/model: database models
//   - pkg/db: database connection utilities
//   - pkg/config: configuration management
//
// # Quick Start
//
// The server is run via the keyfoldctl CLI:
//
//	# Generate a data key for encryption
//	keyfoldctl data-key generate > data_key
//	export KEYFOLD_DATA_KEY=$(cat data_key)
//
//	# Run database migrations
//	keyfoldctl db migrate
//
//	# Start the server
//	keyfoldctl server
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - KEYFOLD_DATA_KEY: Base64-encoded 256-bit key for the at-rest layer
//   - KEYFOLD_SESSION_SECRET: secret for signing session tokens
//   - KEYFOLD_AT_REST_SALT: salt for at-rest key derivation
//   - KEYFOLD_AT_REST_DIGEST: digest for at-rest key derivation (sha256 or sha512)
//   - KEYFOLD_LOG_LEVEL: log level (debug enables SQL logging)
//   - KEYFOLD_PORT: server port (default: 8000)
package main
