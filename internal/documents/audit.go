package documents

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

type auditRepo struct {
	db     *sql.DB
	schema string
	logger *slog.Logger
}

// NewAuditRepository creates the append-only audit log repository.
func NewAuditRepository(db *sql.DB, schema string, logger *slog.Logger) AuditRepository {
	return &auditRepo{
		db:     db,
		schema: schema,
		logger: logger.With("system", "documents-audit"),
	}
}

func (r *auditRepo) Create(ctx context.Context, rec AuditRecord) error {
	if rec.Operation == "" {
		return fmt.Errorf("%w: operation", ErrBlankField)
	}

	q := fmt.Sprintf(`
		INSERT INTO %s.document_audit_log(id, operation, actor_id, document_id, group_id, owner_id, log)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.schema,
	)

	_, err := r.db.ExecContext(
		ctx, q,
		uuid.New(),
		rec.Operation,
		rec.ActorID,
		rec.DocumentID,
		rec.GroupID,
		rec.OwnerID,
		rec.Log,
	)
	if err != nil {
		return fmt.Errorf("create audit record: %w", err)
	}

	return nil
}
