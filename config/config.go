package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"titlevault/crypto"
)

// Backend names the supported storage backends.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
)

type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	Backend     string `toml:"Backend"`
	Environment string `toml:"Environment"`

	// Fixed protocol roles, bech32 encoded. Immutable once the daemon is
	// running.
	Seller    string `toml:"Seller"`
	Inspector string `toml:"Inspector"`
	Lender    string `toml:"Lender"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	if strings.TrimSpace(cfg.Backend) == "" {
		cfg.Backend = BackendLevelDB
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
}

// Validate rejects configs with an unknown backend or malformed role
// addresses. Role addresses may be empty only together: a daemon without
// roles can serve queries but refuses mutators.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendLevelDB, BackendBolt:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Backend)
	}
	roles := map[string]string{
		"Seller":    c.Seller,
		"Inspector": c.Inspector,
		"Lender":    c.Lender,
	}
	for name, encoded := range roles {
		if strings.TrimSpace(encoded) == "" {
			return fmt.Errorf("%s address required", name)
		}
		if _, err := crypto.DecodeAddress(encoded); err != nil {
			return fmt.Errorf("%s address: %w", name, err)
		}
	}
	return nil
}

// Roles decodes the three fixed stakeholder addresses.
func (c *Config) Roles() (seller, inspector, lender [20]byte, err error) {
	decode := func(encoded string) ([20]byte, error) {
		addr, err := crypto.DecodeAddress(encoded)
		if err != nil {
			return [20]byte{}, err
		}
		return addr.Bytes(), nil
	}
	if seller, err = decode(c.Seller); err != nil {
		return
	}
	if inspector, err = decode(c.Inspector); err != nil {
		return
	}
	lender, err = decode(c.Lender)
	return
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	// Fresh role keys so a new deployment starts with usable identities.
	for _, target := range []*string{&cfg.Seller, &cfg.Inspector, &cfg.Lender} {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		*target = key.PubKey().Address().String()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
