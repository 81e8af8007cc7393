package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/ashford-digital/docvault/pkg/pagination"
)

// Repository defines data access for document records. The postgres
// implementation lives in this package; callers depend only on this
// interface so the storage engine can be swapped or mocked.
type Repository interface {
	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	FindByOwner(ctx context.Context, ownerID string, page pagination.PageRequest) (*pagination.PageResult[Document], error)
	FindByGroup(ctx context.Context, groupID uuid.UUID, page pagination.PageRequest) (*pagination.PageResult[Document], error)
	List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Document], error)
	Search(ctx context.Context, filters Filters, page pagination.PageRequest) (*pagination.PageResult[Document], error)

	// ListAll returns the full corpus without pagination. Used by bulk
	// maintenance (cipher-state migration, backup archives).
	ListAll(ctx context.Context) ([]Document, error)
	// SearchAll returns every match without pagination. Used for token
	// resolution, where a group must be returned whole.
	SearchAll(ctx context.Context, filters Filters) ([]Document, error)

	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	// CreateBatch inserts all commands inside one transaction; either
	// every row is created or none are.
	CreateBatch(ctx context.Context, cmds []CreateCommand) ([]Document, error)
	Update(ctx context.Context, cmd UpdateCommand) (*Document, error)
	// SetCipherState updates IsCiphered and StorageName together so the
	// record tracks the renamed on-disk file.
	SetCipherState(ctx context.Context, id uuid.UUID, ciphered bool, storageName string) error

	Delete(ctx context.Context, id uuid.UUID) (*Document, error)
	DeleteByGroup(ctx context.Context, groupID uuid.UUID) ([]Document, error)
	DeleteAll(ctx context.Context) ([]Document, error)

	Count(ctx context.Context) (int64, error)
}

// AuditRecord captures one audited operation against documents.
type AuditRecord struct {
	Operation  string
	ActorID    *string
	DocumentID *uuid.UUID
	GroupID    *uuid.UUID
	OwnerID    *string
	Log        *string
}

// AuditRepository persists append-only audit rows, one per audited action.
type AuditRepository interface {
	Create(ctx context.Context, rec AuditRecord) error
}
