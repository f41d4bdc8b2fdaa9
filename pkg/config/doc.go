// Package config loads deployment configuration for the keyfold server.
//
// Two kinds of settings exist. Secrets (the data key, session signing
// secret, at-rest salt and digest, database URL) come from the environment
// only and are required: a missing value is a startup-fatal
// MissingConfiguration error, never a silent degradation. Tunables (token
// TTL, bind address, port) come from an optional YAML file overridden by
// environment variables, with the source of each value tracked.
package config
