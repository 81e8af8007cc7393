package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ashford-digital/docvault/pkg/filestore"
)

const (
	EnvVaultCipherKey       = "DOCVAULT_VAULT_CIPHER_KEY"
	EnvVaultHMACKey         = "DOCVAULT_VAULT_HMAC_KEY"
	EnvVaultURLExpiration   = "DOCVAULT_VAULT_URL_EXPIRATION"
	EnvVaultNodeID          = "DOCVAULT_VAULT_NODE_ID"
	EnvVaultCipherByDefault = "DOCVAULT_VAULT_CIPHER_BY_DEFAULT"
	EnvVaultDownloadPath    = "DOCVAULT_VAULT_DOWNLOAD_PATH"
	EnvVaultSchema          = "DOCVAULT_VAULT_SCHEMA"
)

var storageEnv = &filestore.Env{
	Root: "DOCVAULT_STORAGE_ROOT",
}

// VaultConfig holds the document vault parameters: encryption keys,
// signed-URL settings, and local file storage.
type VaultConfig struct {
	// CipherKey is the hex-encoded AES key for file content and names.
	CipherKey string `toml:"cipher_key"`
	// HMACKey signs download URLs.
	HMACKey string `toml:"hmac_key"`
	// URLExpiration bounds how long signed download URLs stay valid.
	URLExpiration string `toml:"url_expiration"`
	// NodeID is the snowflake worker id; it must be unique per instance.
	NodeID int64 `toml:"node_id"`
	// CipherByDefault encrypts uploads unless the request says otherwise.
	CipherByDefault bool `toml:"cipher_by_default"`
	// DownloadPath is the public path signed download URLs point at.
	DownloadPath string `toml:"download_path"`
	// Schema is the database schema document records live in.
	Schema  string           `toml:"schema"`
	Storage filestore.Config `toml:"storage"`
}

// CipherKeyBytes decodes the hex cipher key.
func (c *VaultConfig) CipherKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.CipherKey)
	if err != nil {
		return nil, fmt.Errorf("decode cipher_key: %w", err)
	}
	return key, nil
}

// HMACKeyBytes returns the raw HMAC key.
func (c *VaultConfig) HMACKeyBytes() []byte {
	return []byte(c.HMACKey)
}

// URLExpirationDuration returns URLExpiration as a time.Duration.
func (c *VaultConfig) URLExpirationDuration() time.Duration {
	d, _ := time.ParseDuration(c.URLExpiration)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *VaultConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *VaultConfig) Merge(overlay *VaultConfig) {
	if overlay.CipherKey != "" {
		c.CipherKey = overlay.CipherKey
	}
	if overlay.HMACKey != "" {
		c.HMACKey = overlay.HMACKey
	}
	if overlay.URLExpiration != "" {
		c.URLExpiration = overlay.URLExpiration
	}
	if overlay.NodeID != 0 {
		c.NodeID = overlay.NodeID
	}
	c.CipherByDefault = overlay.CipherByDefault
	if overlay.DownloadPath != "" {
		c.DownloadPath = overlay.DownloadPath
	}
	if overlay.Schema != "" {
		c.Schema = overlay.Schema
	}
	c.Storage.Merge(&overlay.Storage)
}

func (c *VaultConfig) loadDefaults() {
	if c.URLExpiration == "" {
		c.URLExpiration = "15m"
	}
	if c.DownloadPath == "" {
		c.DownloadPath = "/api/documents/download"
	}
	if c.Schema == "" {
		c.Schema = "public"
	}
}

func (c *VaultConfig) loadEnv() {
	if v := os.Getenv(EnvVaultCipherKey); v != "" {
		c.CipherKey = v
	}
	if v := os.Getenv(EnvVaultHMACKey); v != "" {
		c.HMACKey = v
	}
	if v := os.Getenv(EnvVaultURLExpiration); v != "" {
		c.URLExpiration = v
	}
	if v := os.Getenv(EnvVaultNodeID); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.NodeID = id
		}
	}
	if v := os.Getenv(EnvVaultCipherByDefault); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.CipherByDefault = b
		}
	}
	if v := os.Getenv(EnvVaultDownloadPath); v != "" {
		c.DownloadPath = v
	}
	if v := os.Getenv(EnvVaultSchema); v != "" {
		c.Schema = v
	}
}

func (c *VaultConfig) validate() error {
	key, err := c.CipherKeyBytes()
	if err != nil {
		return err
	}
	switch len(key) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("cipher_key must decode to 16, 24, or 32 bytes, got %d", len(key))
	}

	if c.HMACKey == "" {
		return fmt.Errorf("hmac_key required")
	}

	d, err := time.ParseDuration(c.URLExpiration)
	if err != nil {
		return fmt.Errorf("invalid url_expiration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("url_expiration must be positive")
	}

	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("node_id must be between 0 and 1023")
	}
	return nil
}
