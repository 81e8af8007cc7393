package api

import (
	"github.com/ashford-digital/docvault/internal/config"
	"github.com/ashford-digital/docvault/internal/infrastructure"
	"github.com/ashford-digital/docvault/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Vault         config.VaultConfig
	Pagination    pagination.Config
	MaxUploadSize int64
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Store:     infra.Store,
			Cipher:    infra.Cipher,
			Metrics:   infra.Metrics,
		},
		Vault:         cfg.Vault,
		Pagination:    cfg.API.Pagination,
		MaxUploadSize: cfg.API.MaxUploadSizeBytes(),
	}
}
