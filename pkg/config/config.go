package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/keyfold/config"
	ConfigFileName    = "keyfold.yml"
)

// ErrMissingConfiguration wraps the names of absent required values.
var ErrMissingConfiguration = errors.New("missing configuration")

// ValidDigests are the digest algorithms accepted for the at-rest layer.
var ValidDigests = []string{"sha256", "sha512"}

// Secrets are the deployment secrets the server cannot run without. They
// are environment-only; they never appear in the config file.
type Secrets struct {
	// DataKey keys the symmetric at-rest layer.
	DataKey []byte
	// SessionSecret signs session tokens.
	SessionSecret []byte
	// AtRestSalt and AtRestDigest parameterize at-rest key derivation.
	AtRestSalt   []byte
	AtRestDigest string
	// DatabaseURL is the postgres connection string.
	DatabaseURL string
}

// LoadSecrets reads all required secrets from the environment. Every
// missing value is collected so the operator sees the full list at once.
func LoadSecrets() (*Secrets, error) {
	var missing []string

	lookup := func(name string) string {
		value := os.Getenv(name)
		if value == "" {
			missing = append(missing, name)
		}
		return value
	}

	secrets := &Secrets{
		DataKey:       []byte(lookup("KEYFOLD_DATA_KEY")),
		SessionSecret: []byte(lookup("KEYFOLD_SESSION_SECRET")),
		AtRestSalt:    []byte(lookup("KEYFOLD_AT_REST_SALT")),
		AtRestDigest:  lookup("KEYFOLD_AT_REST_DIGEST"),
		DatabaseURL:   lookup("DATABASE_URL"),
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfiguration, strings.Join(missing, ", "))
	}

	valid := false
	for _, digest := range ValidDigests {
		if secrets.AtRestDigest == digest {
			valid = true
		}
	}
	if !valid {
		return nil, fmt.Errorf("invalid KEYFOLD_AT_REST_DIGEST %q (valid: %s)",
			secrets.AtRestDigest, strings.Join(ValidDigests, ", "))
	}

	return secrets, nil
}

// Config holds the tunable (non-secret) settings.
type Config struct {
	// SessionTokenTTL is the session lifetime in seconds.
	SessionTokenTTL int `yaml:"session_token_ttl" json:"session_token_ttl"`

	// BindAddress is the listen address for the HTTP server.
	BindAddress string `yaml:"bind_address" json:"bind_address"`

	// Port is the listen port for the HTTP server.
	Port int `yaml:"port" json:"port"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source.
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

var (
	globalConfig *Config
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment.
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

func newDefault() *Config {
	return &Config{
		SessionTokenTTL: 4 * 60 * 60,
		BindAddress:     "0.0.0.0",
		Port:            8000,
		sources:         make(map[string]string),
	}
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over file values.
func Load() (*Config, error) {
	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	configPath := os.Getenv("KEYFOLD_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig Config
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	config.applyEnvConfig()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func attributeNames() []string {
	return []string{"session_token_ttl", "bind_address", "port"}
}

func (c *Config) applyFileConfig(file *Config) {
	if file.SessionTokenTTL != 0 {
		c.SessionTokenTTL = file.SessionTokenTTL
		c.sources["session_token_ttl"] = "file"
	}
	if file.BindAddress != "" {
		c.BindAddress = file.BindAddress
		c.sources["bind_address"] = "file"
	}
	if file.Port != 0 {
		c.Port = file.Port
		c.sources["port"] = "file"
	}
}

func (c *Config) applyEnvConfig() {
	if val := os.Getenv("KEYFOLD_SESSION_TOKEN_TTL"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.SessionTokenTTL = i
			c.sources["session_token_ttl"] = "environment"
		}
	}
	if val := os.Getenv("KEYFOLD_BIND_ADDRESS"); val != "" {
		c.BindAddress = val
		c.sources["bind_address"] = "environment"
	}
	if val := os.Getenv("KEYFOLD_PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.Port = i
			c.sources["port"] = "environment"
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.SessionTokenTTL <= 0 {
		return fmt.Errorf("session_token_ttl must be positive, got %d", c.SessionTokenTTL)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	return nil
}

// ConfigFilePath returns the path to the config file.
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute.
func (c *Config) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// SessionTTL returns the session token TTL as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTokenTTL) * time.Second
}

// Attributes returns all configuration attributes with values and sources.
func (c *Config) Attributes() []Attribute {
	return []Attribute{
		{Name: "session_token_ttl", Value: strconv.Itoa(c.SessionTokenTTL), Source: c.Source("session_token_ttl")},
		{Name: "bind_address", Value: c.BindAddress, Source: c.Source("bind_address")},
		{Name: "port", Value: strconv.Itoa(c.Port), Source: c.Source("port")},
	}
}

// FormatJSON returns a JSON representation of the configuration.
func (c *Config) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(c.Attributes(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatText returns a text representation of the configuration.
func (c *Config) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-24s %-16s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-24s %-16s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-24s %-16s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}
