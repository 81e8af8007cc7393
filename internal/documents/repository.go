package documents

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ashford-digital/docvault/pkg/pagination"
	"github.com/ashford-digital/docvault/pkg/query"
	"github.com/ashford-digital/docvault/pkg/repository"
)

type repo struct {
	db         *sql.DB
	schema     string
	logger     *slog.Logger
	pagination pagination.Config
}

// NewRepository creates a postgres-backed document Repository scoped to the
// given schema.
func NewRepository(
	db *sql.DB,
	schema string,
	logger *slog.Logger,
	pagination pagination.Config,
) Repository {
	return &repo{
		db:         db,
		schema:     schema,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection(r.schema)).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) FindByOwner(
	ctx context.Context,
	ownerID string,
	page pagination.PageRequest,
) (*pagination.PageResult[Document], error) {
	qb := query.
		NewBuilder(projection(r.schema), defaultSort).
		WhereEquals("OwnerID", &ownerID)

	return r.paged(ctx, qb, page)
}

func (r *repo) FindByGroup(
	ctx context.Context,
	groupID uuid.UUID,
	page pagination.PageRequest,
) (*pagination.PageResult[Document], error) {
	qb := query.
		NewBuilder(projection(r.schema), defaultSort).
		WhereEquals("GroupID", &groupID)

	return r.paged(ctx, qb, page)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
) (*pagination.PageResult[Document], error) {
	qb := query.NewBuilder(projection(r.schema), defaultSort)
	return r.paged(ctx, qb, page)
}

func (r *repo) Search(
	ctx context.Context,
	filters Filters,
	page pagination.PageRequest,
) (*pagination.PageResult[Document], error) {
	qb := query.
		NewBuilder(projection(r.schema), defaultSort).
		WhereSearch(page.Search, "OriginalName", "Description")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	return r.paged(ctx, qb, page)
}

// paged runs the count and content queries separately; the count never
// pays for the row projection and the page query never pays for a window
// function.
func (r *repo) paged(
	ctx context.Context,
	qb *query.Builder,
	page pagination.PageRequest,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) ListAll(ctx context.Context) ([]Document, error) {
	q, args := query.NewBuilder(projection(r.schema), defaultSort).Build()

	docs, err := repository.QueryMany(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query all documents: %w", err)
	}
	return docs, nil
}

func (r *repo) SearchAll(ctx context.Context, filters Filters) ([]Document, error) {
	qb := query.NewBuilder(projection(r.schema), defaultSort)
	filters.Apply(qb)

	q, args := qb.Build()
	docs, err := repository.QueryMany(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return docs, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	docs, err := r.CreateBatch(ctx, []CreateCommand{cmd})
	if err != nil {
		return nil, err
	}
	return &docs[0], nil
}

func (r *repo) CreateBatch(ctx context.Context, cmds []CreateCommand) ([]Document, error) {
	for _, cmd := range cmds {
		if err := cmd.Validate(); err != nil {
			return nil, err
		}
	}

	q := fmt.Sprintf(`
		INSERT INTO %s.documents(id, owner_id, group_id, doc_type, description, original_name, storage_name, location, is_ciphered, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, owner_id, group_id, doc_type, description, original_name, storage_name, location, is_ciphered, size_bytes, created_at, updated_at`,
		r.schema,
	)

	docs, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) ([]Document, error) {
		created := make([]Document, 0, len(cmds))
		for _, cmd := range cmds {
			args := []any{
				uuid.New(),
				cmd.OwnerID,
				cmd.GroupID,
				string(cmd.Type),
				cmd.Description,
				cmd.OriginalName,
				cmd.StorageName,
				cmd.Location,
				cmd.IsCiphered,
				cmd.Size,
			}

			d, err := repository.QueryOne(ctx, tx, q, args, scanDocument)
			if err != nil {
				return nil, err
			}
			created = append(created, d)
		}
		return created, nil
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("documents created", "count", len(docs))
	return docs, nil
}

func (r *repo) Update(ctx context.Context, cmd UpdateCommand) (*Document, error) {
	if cmd.Type != nil {
		if _, err := ParseType(string(*cmd.Type)); err != nil {
			return nil, err
		}
	}

	q := fmt.Sprintf(`
		UPDATE %s.documents
		SET description = COALESCE($2, description),
		    doc_type = COALESCE($3, doc_type),
		    updated_at = now()
		WHERE id = $1
		RETURNING id, owner_id, group_id, doc_type, description, original_name, storage_name, location, is_ciphered, size_bytes, created_at, updated_at`,
		r.schema,
	)

	var docType *string
	if cmd.Type != nil {
		s := string(*cmd.Type)
		docType = &s
	}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		return repository.QueryOne(ctx, tx, q, []any{cmd.ID, cmd.Description, docType}, scanDocument)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &d, nil
}

func (r *repo) SetCipherState(ctx context.Context, id uuid.UUID, ciphered bool, storageName string) error {
	if storageName == "" {
		return fmt.Errorf("%w: storage name", ErrBlankField)
	}

	q := fmt.Sprintf(`
		UPDATE %s.documents
		SET is_ciphered = $2, storage_name = $3, updated_at = now()
		WHERE id = $1`,
		r.schema,
	)

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, q, id, ciphered, storageName)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) (*Document, error) {
	docs, err := r.deleteReturning(ctx, "WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}

	r.logger.Info("document deleted", "id", id)
	return &docs[0], nil
}

func (r *repo) DeleteByGroup(ctx context.Context, groupID uuid.UUID) ([]Document, error) {
	docs, err := r.deleteReturning(ctx, "WHERE group_id = $1", groupID)
	if err != nil {
		return nil, err
	}

	r.logger.Info("document group deleted", "group_id", groupID, "count", len(docs))
	return docs, nil
}

func (r *repo) DeleteAll(ctx context.Context) ([]Document, error) {
	docs, err := r.deleteReturning(ctx, "")
	if err != nil {
		return nil, err
	}

	r.logger.Info("all documents deleted", "count", len(docs))
	return docs, nil
}

// deleteReturning removes matching rows and returns them, so callers can
// delete the backing files once the records are gone.
func (r *repo) deleteReturning(ctx context.Context, where string, args ...any) ([]Document, error) {
	q := fmt.Sprintf(`
		DELETE FROM %s.documents %s
		RETURNING id, owner_id, group_id, doc_type, description, original_name, storage_name, location, is_ciphered, size_bytes, created_at, updated_at`,
		r.schema, where,
	)

	docs, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) ([]Document, error) {
		return repository.QueryMany(ctx, tx, q, args, scanDocument)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return docs, nil
}

func (r *repo) Count(ctx context.Context) (int64, error) {
	q, args := query.NewBuilder(projection(r.schema)).BuildCount()

	var count int64
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}
