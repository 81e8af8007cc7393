package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashford-digital/docvault/pkg/filestore"
)

// validVault returns a vault config that passes validation.
func validVault() VaultConfig {
	return VaultConfig{
		CipherKey: strings.Repeat("ab", 32),
		HMACKey:   "signing-secret",
	}
}

func TestVaultConfigDefaults(t *testing.T) {
	cfg := validVault()
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if cfg.URLExpiration != "15m" {
		t.Errorf("url_expiration default = %q", cfg.URLExpiration)
	}
	if cfg.URLExpirationDuration() != 15*time.Minute {
		t.Errorf("url_expiration duration = %v", cfg.URLExpirationDuration())
	}
	if cfg.DownloadPath != "/api/documents/download" {
		t.Errorf("download_path default = %q", cfg.DownloadPath)
	}
	if cfg.Schema != "public" {
		t.Errorf("schema default = %q", cfg.Schema)
	}
	if cfg.Storage.Root != "uploads" {
		t.Errorf("storage root default = %q", cfg.Storage.Root)
	}
}

func TestVaultConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*VaultConfig)
	}{
		{"non-hex cipher key", func(c *VaultConfig) { c.CipherKey = "not-hex" }},
		{"short cipher key", func(c *VaultConfig) { c.CipherKey = "abcd" }},
		{"missing hmac key", func(c *VaultConfig) { c.HMACKey = "" }},
		{"bad expiration", func(c *VaultConfig) { c.URLExpiration = "soon" }},
		{"negative expiration", func(c *VaultConfig) { c.URLExpiration = "-5m" }},
		{"node id out of range", func(c *VaultConfig) { c.NodeID = 1024 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validVault()
			tc.mutate(&cfg)
			if err := cfg.Finalize(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}

func TestVaultConfigEnvOverrides(t *testing.T) {
	t.Setenv(EnvVaultCipherKey, strings.Repeat("cd", 16))
	t.Setenv(EnvVaultHMACKey, "env-secret")
	t.Setenv(EnvVaultURLExpiration, "1h")
	t.Setenv(EnvVaultNodeID, "42")
	t.Setenv(EnvVaultCipherByDefault, "true")
	t.Setenv(EnvVaultSchema, "tenant_a")
	t.Setenv("DOCVAULT_STORAGE_ROOT", "/srv/docvault")

	var cfg VaultConfig
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	key, err := cfg.CipherKeyBytes()
	if err != nil {
		t.Fatalf("CipherKeyBytes: %v", err)
	}
	if len(key) != 16 {
		t.Errorf("key length = %d", len(key))
	}
	if string(cfg.HMACKeyBytes()) != "env-secret" {
		t.Errorf("hmac key = %q", cfg.HMACKeyBytes())
	}
	if cfg.URLExpirationDuration() != time.Hour {
		t.Errorf("expiration = %v", cfg.URLExpirationDuration())
	}
	if cfg.NodeID != 42 {
		t.Errorf("node id = %d", cfg.NodeID)
	}
	if !cfg.CipherByDefault {
		t.Error("cipher_by_default not overridden")
	}
	if cfg.Schema != "tenant_a" {
		t.Errorf("schema = %q", cfg.Schema)
	}
	if cfg.Storage.Root != "/srv/docvault" {
		t.Errorf("storage root = %q", cfg.Storage.Root)
	}
}

func TestVaultConfigMerge(t *testing.T) {
	base := validVault()
	base.URLExpiration = "15m"
	base.NodeID = 1

	overlay := VaultConfig{
		HMACKey:         "overlay-secret",
		NodeID:          7,
		CipherByDefault: true,
		Storage:         filestore.Config{Root: "/mnt/docs"},
	}

	base.Merge(&overlay)

	if base.CipherKey != validVault().CipherKey {
		t.Error("cipher key must survive an empty overlay value")
	}
	if base.HMACKey != "overlay-secret" {
		t.Errorf("hmac key = %q", base.HMACKey)
	}
	if base.NodeID != 7 {
		t.Errorf("node id = %d", base.NodeID)
	}
	if !base.CipherByDefault {
		t.Error("cipher_by_default not merged")
	}
	if base.Storage.Root != "/mnt/docs" {
		t.Errorf("storage root = %q", base.Storage.Root)
	}
}

func TestConfigLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	content := `
shutdown_timeout = "45s"
version = "1.2.3"

[server]
port = 9000

[database]
name = "docvault"
user = "docvault"

[vault]
cipher_key = "` + strings.Repeat("ef", 32) + `"
hmac_key = "toml-secret"
url_expiration = "30m"
node_id = 3

[vault.storage]
root = "data"

[api]
base_path = "/api"
`
	if err := os.WriteFile(filepath.Join(dir, BaseConfigFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ShutdownTimeout != "45s" {
		t.Errorf("shutdown_timeout = %q", cfg.ShutdownTimeout)
	}
	if cfg.Version != "1.2.3" {
		t.Errorf("version = %q", cfg.Version)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Database.Name != "docvault" {
		t.Errorf("database name = %q", cfg.Database.Name)
	}
	if cfg.Vault.HMACKey != "toml-secret" {
		t.Errorf("hmac key = %q", cfg.Vault.HMACKey)
	}
	if cfg.Vault.Storage.Root != "data" {
		t.Errorf("storage root = %q", cfg.Vault.Storage.Root)
	}
	if cfg.API.BasePath != "/api" {
		t.Errorf("base path = %q", cfg.API.BasePath)
	}
}

func TestConfigDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	t.Setenv(EnvVaultCipherKey, strings.Repeat("ab", 32))
	t.Setenv(EnvVaultHMACKey, "env-secret")
	t.Setenv("DOCVAULT_DB_NAME", "docvault")
	t.Setenv("DOCVAULT_DB_USER", "docvault")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ShutdownTimeout != "30s" {
		t.Errorf("shutdown_timeout default = %q", cfg.ShutdownTimeout)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port default = %d", cfg.Server.Port)
	}
	if cfg.API.BasePath != "/api" {
		t.Errorf("base path default = %q", cfg.API.BasePath)
	}
}
