// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, file storage, crypto) that
// domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ashford-digital/docvault/internal/config"
	"github.com/ashford-digital/docvault/pkg/cipherio"
	"github.com/ashford-digital/docvault/pkg/database"
	"github.com/ashford-digital/docvault/pkg/filestore"
	"github.com/ashford-digital/docvault/pkg/lifecycle"
	"github.com/ashford-digital/docvault/pkg/telemetry"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, file storage, and the content cipher.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Store     filestore.System
	Cipher    *cipherio.Cipher
	Metrics   telemetry.Registry
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	key, err := cfg.Vault.CipherKeyBytes()
	if err != nil {
		return nil, fmt.Errorf("cipher key invalid: %w", err)
	}
	cipher, err := cipherio.New(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init failed: %w", err)
	}

	store, err := filestore.New(&cfg.Vault.Storage, cipher, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Store:     store,
		Cipher:    cipher,
		Metrics:   telemetry.New(),
	}, nil
}

// Start registers infrastructure systems with the lifecycle coordinator.
// The file store needs no coordination; it holds no connections.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	return nil
}
