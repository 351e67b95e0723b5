package config

import (
	"os"
	"path/filepath"
	"testing"

	"titlevault/crypto"
)

func testAddress(t *testing.T) string {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key.PubKey().Address().String()
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "escrowd.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress == "" || cfg.Backend != BackendLevelDB {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if _, _, _, err := cfg.Roles(); err != nil {
		t.Fatalf("generated roles do not decode: %v", err)
	}

	// A second load parses the file that was just written.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Seller != cfg.Seller {
		t.Fatal("reload lost generated roles")
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "escrowd.toml")
	content := `RPCAddress = "127.0.0.1:9999"
Backend = "memory"
Seller = "` + testAddress(t) + `"
Inspector = "` + testAddress(t) + `"
Lender = "` + testAddress(t) + `"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != "127.0.0.1:9999" {
		t.Fatalf("RPCAddress = %q", cfg.RPCAddress)
	}
	if cfg.Backend != BackendMemory {
		t.Fatalf("Backend = %q", cfg.Backend)
	}
	if cfg.DataDir != "./data" {
		t.Fatalf("DataDir default missing: %q", cfg.DataDir)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := &Config{
		Backend:   "cassandra",
		Seller:    testAddress(t),
		Inspector: testAddress(t),
		Lender:    testAddress(t),
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected backend rejection")
	}
}

func TestValidateRejectsBadRoleAddress(t *testing.T) {
	cfg := &Config{
		Backend:   BackendMemory,
		Seller:    "not-an-address",
		Inspector: testAddress(t),
		Lender:    testAddress(t),
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected role address rejection")
	}
}
