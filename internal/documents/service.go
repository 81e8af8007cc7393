package documents

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"github.com/ashford-digital/docvault/internal/rbac"
	"github.com/ashford-digital/docvault/pkg/filestore"
	"github.com/ashford-digital/docvault/pkg/pagination"
	"github.com/ashford-digital/docvault/pkg/signedurl"
	"github.com/ashford-digital/docvault/pkg/telemetry"
)

// Token payload keys for signed download URLs.
const (
	tokenDocumentID = "document_id"
	tokenGroupID    = "group_id"
)

// Service orchestrates repository access for lookup, search, deletion,
// and signed-URL token resolution. It is stateless beyond its injected
// collaborators; the acting identity travels as an explicit parameter.
type Service struct {
	repo    Repository
	audit   AuditRepository
	store   filestore.System
	codec   *signedurl.Codec
	logger  *slog.Logger
	deletes telemetry.Counter
}

// NewService wires a Service from its collaborators.
func NewService(
	repo Repository,
	audit AuditRepository,
	store filestore.System,
	codec *signedurl.Codec,
	logger *slog.Logger,
	metrics telemetry.Registry,
) *Service {
	return &Service{
		repo:    repo,
		audit:   audit,
		store:   store,
		codec:   codec,
		logger:  logger.With("system", "documents-service"),
		deletes: metrics.Counter("documents_deleted"),
	}
}

func (s *Service) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.Find(ctx, id)
}

func (s *Service) FindByOwner(ctx context.Context, ownerID string, page pagination.PageRequest) (*pagination.PageResult[Document], error) {
	return s.repo.FindByOwner(ctx, ownerID, page)
}

func (s *Service) FindByGroup(ctx context.Context, groupID uuid.UUID, page pagination.PageRequest) (*pagination.PageResult[Document], error) {
	return s.repo.FindByGroup(ctx, groupID, page)
}

func (s *Service) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Document], error) {
	return s.repo.List(ctx, page)
}

func (s *Service) Search(ctx context.Context, filters Filters, page pagination.PageRequest) (*pagination.PageResult[Document], error) {
	return s.repo.Search(ctx, filters, page)
}

func (s *Service) ListAll(ctx context.Context) ([]Document, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *Service) Update(ctx context.Context, cmd UpdateCommand) (*Document, error) {
	return s.repo.Update(ctx, cmd)
}

// GenerateURL builds a signed, time-limited download URL for a document
// and/or group. At least one identifier is required.
func (s *Service) GenerateURL(basePath string, documentID, groupID *uuid.UUID) (string, error) {
	if documentID == nil && groupID == nil {
		return "", ErrInvalidID
	}

	data := url.Values{}
	if documentID != nil {
		data.Set(tokenDocumentID, documentID.String())
	}
	if groupID != nil {
		data.Set(tokenGroupID, groupID.String())
	}

	return s.codec.Generate(basePath, data.Encode())
}

// FindBySignature resolves a signed download token to its documents.
// An invalid or expired token yields (nil, nil); the caller decides the
// HTTP semantics. Only hard repository failures surface as errors.
func (s *Service) FindBySignature(ctx context.Context, basePath, token, signature string) ([]Document, error) {
	data, ok := s.codec.Verify(basePath, token, signature)
	if !ok {
		return nil, nil
	}

	values, err := url.ParseQuery(data)
	if err != nil {
		s.logger.Warn("signed token carried unparseable payload")
		return nil, nil
	}

	var filters Filters
	if raw := values.Get(tokenDocumentID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, nil
		}
		filters.ID = &id
	}
	if raw := values.Get(tokenGroupID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, nil
		}
		filters.GroupID = &id
	}
	if filters.ID == nil && filters.GroupID == nil {
		return nil, nil
	}

	return s.repo.SearchAll(ctx, filters)
}

// Delete removes a document record and its backing file.
func (s *Service) Delete(ctx context.Context, actor rbac.Actor, id uuid.UUID) error {
	doc, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	s.removeFiles(*doc)
	s.deletes.Add(1)
	s.recordAudit(ctx, actor, "delete", doc.OwnerID, &doc.ID, &doc.GroupID)
	return nil
}

// DeleteByGroup removes every document in a group along with its files,
// returning the number of deleted records.
func (s *Service) DeleteByGroup(ctx context.Context, actor rbac.Actor, groupID uuid.UUID) (int, error) {
	docs, err := s.repo.DeleteByGroup(ctx, groupID)
	if err != nil {
		return 0, err
	}

	s.removeFiles(docs...)
	s.deletes.Add(int64(len(docs)))
	s.recordAudit(ctx, actor, "delete-group", "", nil, &groupID)
	return len(docs), nil
}

// DeleteAll clears the whole corpus, returning the number of deleted records.
func (s *Service) DeleteAll(ctx context.Context, actor rbac.Actor) (int, error) {
	docs, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}

	s.removeFiles(docs...)
	s.deletes.Add(int64(len(docs)))
	s.recordAudit(ctx, actor, "delete-all", "", nil, nil)
	return len(docs), nil
}

// removeFiles deletes backing files after their records are gone. Failures
// are logged; the rows no longer exist, so there is nothing to roll back.
func (s *Service) removeFiles(docs ...Document) {
	for _, doc := range docs {
		if err := s.store.Remove(doc.Location, doc.StorageName); err != nil {
			s.logger.Warn(
				"file delete failed after record delete",
				"id", doc.ID,
				"name", doc.StorageName,
				"error", err,
			)
		}
	}
}

func (s *Service) recordAudit(ctx context.Context, actor rbac.Actor, op, ownerID string, docID, groupID *uuid.UUID) {
	rec := AuditRecord{
		Operation:  op,
		DocumentID: docID,
		GroupID:    groupID,
	}
	if actor.ID != "" {
		rec.ActorID = &actor.ID
	}
	if ownerID != "" {
		rec.OwnerID = &ownerID
	}

	if err := s.audit.Create(ctx, rec); err != nil {
		s.logger.Warn("audit record failed", "operation", op, "error", err)
	}
}
