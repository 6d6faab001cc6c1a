// Package config loads the settings of the paillier command from TOML.
package config

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/coinbase/cb-paillier-go/pkg/paillier"
	"github.com/coinbase/cb-paillier-go/pkg/paillier/keyfile"
	"github.com/coinbase/cb-paillier-go/pkg/paillier/keystore"
	"github.com/coinbase/cb-paillier-go/pkg/paillier/logging"
)

// Config holds every setting of the command line tool.
type Config struct {
	Keys     KeysConfig     `toml:"keys"`
	Log      LogConfig      `toml:"log"`
	Keystore KeystoreConfig `toml:"keystore"`
}

// KeysConfig controls key generation and key file encoding.
type KeysConfig struct {
	Bits            int    `toml:"bits"`
	PrimalityRounds int    `toml:"primality_rounds"`
	Format          string `toml:"format"` // json or cbor
}

// LogConfig controls diagnostics written to stderr.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn or error
	Format string `toml:"format"` // text or json
}

// KeystoreConfig locates the SQLite key store.
type KeystoreConfig struct {
	Path       string `toml:"path"`
	Iterations int    `toml:"iterations"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Keys: KeysConfig{
			Bits:            paillier.DefaultKeyBits,
			PrimalityRounds: paillier.DefaultPrimalityRounds,
			Format:          "json",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Keystore: KeystoreConfig{
			Path:       "paillier-keys.db",
			Iterations: keystore.DefaultIterations,
		},
	}
}

// Load reads a TOML file over the defaults. Unknown keys are rejected so a
// misspelt setting does not silently fall back to its default.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("decode %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from PAILLIER_* variables looked up with
// getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PAILLIER_KEY_BITS"); v != "" {
		bits, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PAILLIER_KEY_BITS: %w", err)
		}
		c.Keys.Bits = bits
	}
	if v := getenv("PAILLIER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("PAILLIER_KEYSTORE"); v != "" {
		c.Keystore.Path = v
	}
	return c.Validate()
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Keys.Bits < paillier.MinKeyBits || c.Keys.Bits%2 != 0 {
		return fmt.Errorf("keys.bits %d must be even and at least %d", c.Keys.Bits, paillier.MinKeyBits)
	}
	if c.Keys.PrimalityRounds < paillier.MinPrimalityRounds {
		return fmt.Errorf("keys.primality_rounds %d below minimum %d", c.Keys.PrimalityRounds, paillier.MinPrimalityRounds)
	}
	if _, err := keyfile.ParseFormat(c.Keys.Format); err != nil {
		return fmt.Errorf("keys.format: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	if c.Keystore.Path == "" {
		return errors.New("keystore.path is required")
	}
	if c.Keystore.Iterations < keystore.MinIterations {
		return fmt.Errorf("keystore.iterations %d below minimum %d", c.Keystore.Iterations, keystore.MinIterations)
	}
	return nil
}

// Logger builds the logger described by c, writing to w.
func (c *Config) Logger(w io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(c.Log.Format, "json") {
		return logging.NewJSON(w, level), nil
	}
	return logging.NewText(w, level), nil
}

// KeyFormat returns the configured key file encoding.
func (c *Config) KeyFormat() keyfile.Format {
	f, err := keyfile.ParseFormat(c.Keys.Format)
	if err != nil {
		return keyfile.FormatJSON
	}
	return f
}

// GenerateParams returns key generation parameters for bits, or the
// configured size when bits is zero.
func (c *Config) GenerateParams(bits int, logger logging.Logger) *paillier.GenerateParams {
	if bits == 0 {
		bits = c.Keys.Bits
	}
	return &paillier.GenerateParams{
		Bits:            bits,
		PrimalityRounds: c.Keys.PrimalityRounds,
		Logger:          logger,
	}
}

// KeystoreOptions returns options for keystore.Open.
func (c *Config) KeystoreOptions(logger logging.Logger) *keystore.Options {
	return &keystore.Options{
		Iterations: c.Keystore.Iterations,
		Logger:     logger,
	}
}
