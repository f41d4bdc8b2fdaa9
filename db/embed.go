// Package db embeds the SQL migrations so production builds carry the
// schema with them (see the embed_migrations build tag in cmd/keyfoldctl).
package db

import "embed"

//go:embed migrations
var Migrations embed.FS
