// Package config loads the TOML configuration of a persistence engine and
// assembles a ready-to-use service from it.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/ruteri/ida-persistence-engine/cryptoutils"
	"github.com/ruteri/ida-persistence-engine/ida"
	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// Key stores the encrypting service can keep its keys in.
const (
	KeyStoreSQLite = "sqlite"
	KeyStoreVault  = "vault"
	KeyStoreMemory = "memory"
)

// DefaultMetadataDSN is the SQLite database used when none is configured.
const DefaultMetadataDSN = "ida-metadata.db"

// Config is the on-disk configuration.
type Config struct {
	FragmentNumber          int    `toml:"fragment_number"`
	RedundantFragmentNumber int    `toml:"redundant_fragment_number"`
	Algorithm               string `toml:"algorithm"`
	Workers                 int    `toml:"workers"`

	Metadata     MetadataConfig     `toml:"metadata"`
	Encryption   *EncryptionConfig  `toml:"encryption"`
	Repositories []RepositoryConfig `toml:"repositories"`
}

// MetadataConfig locates the fragment metadata database.
type MetadataConfig struct {
	DSN string `toml:"dsn"`
}

// EncryptionConfig enables the encrypting service when present.
type EncryptionConfig struct {
	Provider            string      `toml:"provider"`
	KeySize             int         `toml:"key_size"`
	KeyStore            string      `toml:"key_store"`
	BestEffortKeyDelete bool        `toml:"best_effort_key_delete"`
	Vault               VaultConfig `toml:"vault"`
}

// VaultConfig is used when key_store is "vault".
type VaultConfig struct {
	Address        string `toml:"address"`
	Token          string `toml:"token"`
	Mount          string `toml:"mount"`
	Path           string `toml:"path"`
	CertFile       string `toml:"cert_file"`
	KeyFile        string `toml:"key_file"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the configured request timeout, zero if unset.
func (v VaultConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutSeconds) * time.Second
}

// RepositoryConfig is one fragment repository.
type RepositoryConfig struct {
	Location string `toml:"location"`
}

// Default returns a configuration with every optional field set to its default.
func Default() Config {
	return Config{
		RedundantFragmentNumber: ida.DefaultRedundantFragmentNumber,
		Algorithm:               ida.CRSName,
		Metadata:                MetadataConfig{DSN: DefaultMetadataDSN},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a TOML document. Absent keys keep their defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", interfaces.ErrInvalidConfiguration, err)
	}

	if cfg.Encryption != nil {
		if cfg.Encryption.Provider == "" {
			cfg.Encryption.Provider = cryptoutils.AESCBCName
		}
		if cfg.Encryption.KeyStore == "" {
			cfg.Encryption.KeyStore = KeyStoreSQLite
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Locations returns the configured repository locations in order.
func (c *Config) Locations() []string {
	locations := make([]string, 0, len(c.Repositories))
	for _, repository := range c.Repositories {
		locations = append(locations, repository.Location)
	}
	return locations
}

// Validate reports every problem found, joined, wrapping ErrInvalidConfiguration.
func (c *Config) Validate() error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if c.FragmentNumber <= 0 {
		add("fragment_number must be positive, got %d", c.FragmentNumber)
	}
	if c.RedundantFragmentNumber < 0 {
		add("redundant_fragment_number must not be negative, got %d", c.RedundantFragmentNumber)
	}
	if c.FragmentNumber > 0 && c.RedundantFragmentNumber >= c.FragmentNumber {
		add("redundant_fragment_number (%d) must be less than fragment_number (%d)", c.RedundantFragmentNumber, c.FragmentNumber)
	}
	if !slices.Contains(ida.Names(), c.Algorithm) {
		add("unknown algorithm %q, expected one of %s", c.Algorithm, strings.Join(ida.Names(), ", "))
	}
	if c.Workers < 0 {
		add("workers must not be negative, got %d", c.Workers)
	}
	if c.Metadata.DSN == "" {
		add("metadata.dsn is required")
	}

	if len(c.Repositories) < c.FragmentNumber {
		add("%d repositories configured, at least fragment_number (%d) are required", len(c.Repositories), c.FragmentNumber)
	}
	seen := make(map[string]bool, len(c.Repositories))
	for i, repository := range c.Repositories {
		if _, err := interfaces.ParseRepositoryLocation(repository.Location); err != nil {
			add("repositories[%d]: %v", i, err)
			continue
		}
		if seen[repository.Location] {
			add("repositories[%d]: location %q configured twice", i, repository.Location)
		}
		seen[repository.Location] = true
	}

	if enc := c.Encryption; enc != nil {
		if !slices.Contains(cryptoutils.ProviderNames(), strings.ToLower(enc.Provider)) {
			add("unknown encryption provider %q, expected one of %s", enc.Provider, strings.Join(cryptoutils.ProviderNames(), ", "))
		}
		if enc.KeySize < 0 {
			add("encryption.key_size must not be negative, got %d", enc.KeySize)
		}
		switch enc.KeyStore {
		case KeyStoreSQLite, KeyStoreMemory:
		case KeyStoreVault:
			if enc.Vault.Mount == "" {
				add("encryption.vault.mount is required with key_store %q", KeyStoreVault)
			}
		default:
			add("unknown key_store %q", enc.KeyStore)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", interfaces.ErrInvalidConfiguration, errors.Join(problems...))
}
