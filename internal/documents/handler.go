package documents

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/ashford-digital/docvault/internal/rbac"
	"github.com/ashford-digital/docvault/pkg/handlers"
	"github.com/ashford-digital/docvault/pkg/pagination"
	"github.com/ashford-digital/docvault/pkg/routes"
)

// Handler exposes document metadata operations over HTTP.
type Handler struct {
	service *Service
	guard   *rbac.Guard
	logger  *slog.Logger
	pages   pagination.Config
}

// NewHandler creates the documents Handler.
func NewHandler(service *Service, guard *rbac.Guard, logger *slog.Logger, pages pagination.Config) *Handler {
	return &Handler{
		service: service,
		guard:   guard,
		logger:  logger.With("handler", "documents"),
		pages:   pages,
	}
}

// Routes returns the route group definition for document endpoints.
func (h *Handler) Routes() routes.Group {
	view := func(fn http.HandlerFunc) http.HandlerFunc {
		return h.guard.Require(rbac.ScopeDocuments, rbac.LevelView, fn)
	}
	remove := func(fn http.HandlerFunc) http.HandlerFunc {
		return h.guard.Require(rbac.ScopeDocuments, rbac.LevelDelete, fn)
	}

	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: view(h.List)},
			{Method: "GET", Pattern: "/search", Handler: view(h.Search)},
			{Method: "GET", Pattern: "/count", Handler: view(h.Count)},
			{Method: "GET", Pattern: "/owner/{ownerID}", Handler: view(h.FindByOwner)},
			{Method: "GET", Pattern: "/group/{groupID}", Handler: view(h.FindByGroup)},
			{Method: "GET", Pattern: "/{id}", Handler: view(h.Find)},
			{Method: "PUT", Pattern: "/{id}", Handler: h.guard.Require(rbac.ScopeDocuments, rbac.LevelCreate, h.Update)},
			{Method: "DELETE", Pattern: "/{id}", Handler: remove(h.Delete)},
			{Method: "DELETE", Pattern: "/group/{groupID}", Handler: remove(h.DeleteByGroup)},
			{Method: "DELETE", Pattern: "", Handler: h.guard.Require(rbac.ScopeDocuments, rbac.LevelAdmin, h.DeleteAll)},
		},
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pages)

	result, err := h.service.List(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	filters := FiltersFromQuery(r.URL.Query())
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pages)

	result, err := h.service.Search(r.Context(), filters, page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Count(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	doc, err := h.service.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, doc)
}

func (h *Handler) FindByOwner(w http.ResponseWriter, r *http.Request) {
	ownerID := r.PathValue("ownerID")
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pages)

	result, err := h.service.FindByOwner(r.Context(), ownerID, page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) FindByGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(r.PathValue("groupID"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pages)

	result, err := h.service.FindByGroup(r.Context(), groupID, page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	var body struct {
		Description *string `json:"description"`
		Type        *string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	cmd := UpdateCommand{ID: id, Description: body.Description}
	if body.Type != nil {
		t, err := ParseType(*body.Type)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		cmd.Type = &t
	}

	doc, err := h.service.Update(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, doc)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	if err := h.service.Delete(r.Context(), rbac.FromRequest(r), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteByGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(r.PathValue("groupID"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	count, err := h.service.DeleteByGroup(r.Context(), rbac.FromRequest(r), groupID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, map[string]int{"deleted": count})
}

func (h *Handler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.DeleteAll(r.Context(), rbac.FromRequest(r))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, map[string]int{"deleted": count})
}
