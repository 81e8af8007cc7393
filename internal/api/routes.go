package api

import (
	"net/http"

	"github.com/ashford-digital/docvault/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain) {
	routes.Register(
		mux,
		domain.Documents.Routes(),
		domain.Uploads.Routes(),
		domain.CipherState.Routes(),
		domain.Transfer.Routes(),
	)
}
