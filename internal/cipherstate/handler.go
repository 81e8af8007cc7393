package cipherstate

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashford-digital/docvault/internal/rbac"
	"github.com/ashford-digital/docvault/pkg/handlers"
	"github.com/ashford-digital/docvault/pkg/routes"
)

// Handler exposes the bulk cipher-state migration over HTTP.
type Handler struct {
	migrator *Migrator
	guard    *rbac.Guard
	logger   *slog.Logger
}

// NewHandler creates the cipher-state Handler.
func NewHandler(migrator *Migrator, guard *rbac.Guard, logger *slog.Logger) *Handler {
	return &Handler{
		migrator: migrator,
		guard:    guard,
		logger:   logger.With("handler", "cipherstate"),
	}
}

// Routes returns the route group definition for cipher-state endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{
				Method:  "PUT",
				Pattern: "/cipher-state/{state}",
				Handler: h.guard.Require(rbac.ScopeDocuments, rbac.LevelAdmin, h.ChangeState),
			},
		},
	}
}

// ChangeState migrates all documents to the requested cipher state and
// responds with the number of documents changed.
func (h *Handler) ChangeState(w http.ResponseWriter, r *http.Request) {
	state, err := strconv.ParseBool(r.PathValue("state"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	count, err := h.migrator.ChangeState(r.Context(), rbac.FromRequest(r), state)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]int{"changed": count})
}
