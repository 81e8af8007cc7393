package uploads

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/ashford-digital/docvault/internal/documents"
	"github.com/ashford-digital/docvault/internal/rbac"
	"github.com/ashford-digital/docvault/pkg/handlers"
	"github.com/ashford-digital/docvault/pkg/routes"
)

// Handler provides the HTTP upload endpoint.
type Handler struct {
	manager       *Manager
	guard         *rbac.Guard
	logger        *slog.Logger
	maxUploadSize int64
	defaultCipher bool
}

// NewHandler creates the upload Handler.
func NewHandler(
	manager *Manager,
	guard *rbac.Guard,
	logger *slog.Logger,
	maxUploadSize int64,
	defaultCipher bool,
) *Handler {
	return &Handler{
		manager:       manager,
		guard:         guard,
		logger:        logger.With("handler", "uploads"),
		maxUploadSize: maxUploadSize,
		defaultCipher: defaultCipher,
	}
}

// Routes returns the route group definition for upload endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{
				Method:  "POST",
				Pattern: "",
				Handler: h.guard.Require(rbac.ScopeDocuments, rbac.LevelCreate, h.Upload),
			},
		},
	}
}

// Upload accepts a multipart form with owner_id, type, optional group_id,
// optional cipher flag, file parts under "files", and per-file
// "description" values in file order.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	ownerID := r.FormValue("owner_id")
	if ownerID == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrBlankField)
		return
	}

	docType, err := documents.ParseType(r.FormValue("type"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var groupID *uuid.UUID
	if raw := r.FormValue("group_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidID)
			return
		}
		groupID = &id
	}

	cipher := h.defaultCipher
	if raw := r.FormValue("cipher"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		cipher = v
	}

	headers := r.MultipartForm.File["files"]
	descriptions := r.MultipartForm.Value["description"]

	files := make([]File, len(headers))
	for i, header := range headers {
		files[i] = File{Header: header}
		if i < len(descriptions) {
			files[i].Description = descriptions[i]
		}
	}

	cmd := Command{
		Actor:   rbac.FromRequest(r),
		OwnerID: ownerID,
		GroupID: groupID,
		Type:    docType,
		Cipher:  cipher,
	}

	docs, err := h.manager.Process(r.Context(), cmd, files)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, docs)
}
