// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/ashford-digital/docvault/internal/config"
	"github.com/ashford-digital/docvault/internal/infrastructure"
	"github.com/ashford-digital/docvault/internal/rbac"
	"github.com/ashford-digital/docvault/pkg/middleware"
	"github.com/ashford-digital/docvault/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure, checker rbac.Checker) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(runtime, checker)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))

	return m, nil
}
