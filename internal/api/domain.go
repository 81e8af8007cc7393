package api

import (
	"fmt"

	"github.com/ashford-digital/docvault/internal/cipherstate"
	"github.com/ashford-digital/docvault/internal/documents"
	"github.com/ashford-digital/docvault/internal/rbac"
	"github.com/ashford-digital/docvault/internal/transfer"
	"github.com/ashford-digital/docvault/internal/uploads"
	"github.com/ashford-digital/docvault/pkg/signedurl"
	"github.com/ashford-digital/docvault/pkg/storagename"
)

// Domain holds all domain handlers that comprise the API.
type Domain struct {
	Documents   *documents.Handler
	Uploads     *uploads.Handler
	CipherState *cipherstate.Handler
	Transfer    *transfer.Handler
}

// NewDomain creates all domain systems from the API runtime. Permission
// checks go through the injected checker; AllowAll stands in until an
// external RBAC engine is configured.
func NewDomain(runtime *Runtime, checker rbac.Checker) (*Domain, error) {
	if checker == nil {
		checker = rbac.AllowAll{}
	}

	logger := runtime.Logger
	db := runtime.Database.Connection()
	schema := runtime.Vault.Schema

	repo := documents.NewRepository(db, schema, logger, runtime.Pagination)
	audit := documents.NewAuditRepository(db, schema, logger)
	guard := rbac.NewGuard(checker, logger)

	codec := signedurl.New(
		runtime.Cipher,
		runtime.Vault.HMACKeyBytes(),
		runtime.Vault.URLExpirationDuration(),
	)
	service := documents.NewService(repo, audit, runtime.Store, codec, logger, runtime.Metrics)

	names, err := storagename.New(runtime.Vault.NodeID, runtime.Cipher)
	if err != nil {
		return nil, fmt.Errorf("storage name builder: %w", err)
	}
	manager := uploads.NewManager(names, runtime.Store, repo, audit, logger, runtime.Metrics)

	migrator := cipherstate.NewMigrator(repo, audit, runtime.Store, runtime.Cipher, logger, runtime.Metrics)
	streamer := transfer.NewStreamer(runtime.Store, runtime.Cipher, logger, runtime.Metrics)

	return &Domain{
		Documents: documents.NewHandler(service, guard, logger, runtime.Pagination),
		Uploads: uploads.NewHandler(
			manager,
			guard,
			logger,
			runtime.MaxUploadSize,
			runtime.Vault.CipherByDefault,
		),
		CipherState: cipherstate.NewHandler(migrator, guard, logger),
		Transfer: transfer.NewHandler(
			service,
			streamer,
			guard,
			logger,
			runtime.Vault.DownloadPath,
		),
	}, nil
}
