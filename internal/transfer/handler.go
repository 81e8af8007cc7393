package transfer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/ashford-digital/docvault/internal/documents"
	"github.com/ashford-digital/docvault/internal/rbac"
	"github.com/ashford-digital/docvault/pkg/handlers"
	"github.com/ashford-digital/docvault/pkg/routes"
)

// Handler exposes signed-URL generation, token downloads, and backup
// archives over HTTP.
type Handler struct {
	service  *documents.Service
	streamer *Streamer
	guard    *rbac.Guard
	logger   *slog.Logger
	// basePath is the public download path signed into URLs; tokens only
	// verify against the path they were generated for.
	basePath string
}

// NewHandler creates the transfer Handler.
func NewHandler(
	service *documents.Service,
	streamer *Streamer,
	guard *rbac.Guard,
	logger *slog.Logger,
	basePath string,
) *Handler {
	return &Handler{
		service:  service,
		streamer: streamer,
		guard:    guard,
		logger:   logger.With("handler", "transfer"),
		basePath: basePath,
	}
}

// Routes returns the route group definition for transfer endpoints. The
// download route is intentionally unguarded: possession of a valid signed
// token is the authorization.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{
				Method:  "GET",
				Pattern: "/download-url",
				Handler: h.guard.Require(rbac.ScopeDocuments, rbac.LevelView, h.GenerateURL),
			},
			{
				Method:  "GET",
				Pattern: "/download",
				Handler: h.Download,
			},
			{
				Method:  "GET",
				Pattern: "/backup",
				Handler: h.guard.Require(rbac.ScopeDocuments, rbac.LevelAdmin, h.Backup),
			},
		},
	}
}

// GenerateURL issues a signed, time-limited download URL for a document
// id, a group id, or both.
func (h *Handler) GenerateURL(w http.ResponseWriter, r *http.Request) {
	documentID, ok := parseOptionalID(w, h.logger, r.URL.Query().Get("document_id"))
	if !ok {
		return
	}
	groupID, ok := parseOptionalID(w, h.logger, r.URL.Query().Get("group_id"))
	if !ok {
		return
	}

	signed, err := h.service.GenerateURL(h.basePath, documentID, groupID)
	if err != nil {
		handlers.RespondError(w, h.logger, documents.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]string{"url": signed})
}

// Download streams the content a signed token resolves to. Invalid,
// tampered, or expired tokens are rejected with 403; a valid token whose
// documents no longer exist yields 404. Ciphered content is deciphered
// in transit unless the client asks for it as stored (decipher=false);
// archive=true forces an archive even for a single document.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	signature := r.URL.Query().Get("signature")
	if token == "" || signature == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("token and signature are required"))
		return
	}

	docs, err := h.service.FindBySignature(r.Context(), h.basePath, token, signature)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	if docs == nil {
		handlers.RespondError(w, h.logger, http.StatusForbidden, errors.New("invalid or expired download token"))
		return
	}
	if len(docs) == 0 {
		handlers.RespondError(w, h.logger, http.StatusNotFound, documents.ErrNotFound)
		return
	}

	opts := Options{Decipher: true}
	if raw := r.URL.Query().Get("decipher"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			opts.Decipher = v
		}
	}
	if raw := r.URL.Query().Get("archive"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			opts.ArchiveAlways = v
		}
	}

	content, err := h.streamer.Prepare(r.Context(), docs, opts)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.stream(w, content)
}

// Backup streams a zip archive of the whole corpus. An empty corpus
// yields 204.
func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListAll(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	if len(docs) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	content, err := h.streamer.Backup(r.Context(), docs)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.stream(w, content)
}

// stream writes a prepared download to the response. Once the body has
// started, failures can only be logged; the status line is already gone.
func (h *Handler) stream(w http.ResponseWriter, content *Content) {
	defer content.Body.Close()

	w.Header().Set("Content-Type", content.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", content.Name))
	if content.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(content.Size, 10))
	}

	if _, err := io.Copy(w, content.Body); err != nil {
		h.logger.Error("download stream aborted", "name", content.Name, "error", err)
	}
}

// parseOptionalID parses an optional uuid query parameter, writing a 400
// response itself when the value is present but malformed.
func parseOptionalID(w http.ResponseWriter, logger *slog.Logger, raw string) (*uuid.UUID, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		handlers.RespondError(w, logger, http.StatusBadRequest, documents.ErrInvalidID)
		return nil, false
	}
	return &id, true
}
