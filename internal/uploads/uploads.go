// Package uploads persists multipart upload batches: each file part is
// written to storage concurrently, and the batch's document records are
// created only after every file is durably on disk. A failure at any
// point rolls the whole batch back — no orphaned file survives without a
// matching record, and no record ever references a missing file.
package uploads

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ashford-digital/docvault/internal/documents"
	"github.com/ashford-digital/docvault/internal/rbac"
	"github.com/ashford-digital/docvault/pkg/filestore"
	"github.com/ashford-digital/docvault/pkg/storagename"
	"github.com/ashford-digital/docvault/pkg/telemetry"
)

// Command carries the batch-level parameters of one upload request.
type Command struct {
	Actor   rbac.Actor
	OwnerID string
	// GroupID groups the batch; nil means a fresh group id is generated
	// and shared by every file in the batch.
	GroupID *uuid.UUID
	Type    documents.Type
	// Cipher encrypts both file content and storage names.
	Cipher bool
}

// File pairs one multipart file part with its optional description.
type File struct {
	Header      *multipart.FileHeader
	Description string
}

// Manager fans upload batches out to storage and registers the results.
type Manager struct {
	names    *storagename.Builder
	store    filestore.System
	repo     documents.Repository
	audit    documents.AuditRepository
	logger   *slog.Logger
	uploaded telemetry.Counter
	failed   telemetry.Counter
	duration telemetry.Timer
}

// NewManager wires a Manager from its collaborators.
func NewManager(
	names *storagename.Builder,
	store filestore.System,
	repo documents.Repository,
	audit documents.AuditRepository,
	logger *slog.Logger,
	metrics telemetry.Registry,
) *Manager {
	return &Manager{
		names:    names,
		store:    store,
		repo:     repo,
		audit:    audit,
		logger:   logger.With("system", "uploads"),
		uploaded: metrics.Counter("documents_uploaded"),
		failed:   metrics.Counter("uploads_failed"),
		duration: metrics.Timer("upload_duration"),
	}
}

// stored tracks one file written during the batch so it can be deleted on
// rollback.
type stored struct {
	result      *filestore.Result
	original    string
	description string
}

// Process persists every file of the batch concurrently, then creates all
// document records in one transaction. Files are fully written before any
// record becomes visible. On any failure — including context cancellation
// when the client disconnects — every file the batch already wrote is
// removed and a FailedError naming the owner wraps the cause.
func (m *Manager) Process(ctx context.Context, cmd Command, files []File) ([]documents.Document, error) {
	start := time.Now()
	defer func() { m.duration.Observe(time.Since(start)) }()

	if len(files) == 0 {
		return nil, ErrNoDocument
	}
	for _, f := range files {
		if f.Header == nil || f.Header.Filename == "" {
			return nil, fmt.Errorf("%w: file part without a filename", ErrNoDocument)
		}
	}

	groupID := uuid.New()
	if cmd.GroupID != nil {
		groupID = *cmd.GroupID
	}

	partition := storagename.PartitionPath(time.Now())
	results := make([]stored, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			// Part resources are released as soon as this task ends,
			// success or failure.
			part, err := f.Header.Open()
			if err != nil {
				return fmt.Errorf("open part %s: %w", f.Header.Filename, err)
			}
			defer part.Close()

			name, err := m.names.Build(
				cmd.OwnerID,
				groupID.String(),
				string(cmd.Type),
				f.Header.Filename,
				cmd.Cipher,
			)
			if err != nil {
				return err
			}

			res, err := m.store.Store(gctx, partition, name, cmd.Cipher, part)
			if err != nil {
				return err
			}

			results[i] = stored{
				result:      res,
				original:    f.Header.Filename,
				description: f.Description,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		m.rollback(results)
		m.failed.Add(1)
		return nil, &FailedError{OwnerID: cmd.OwnerID, Err: err}
	}

	cmds := make([]documents.CreateCommand, len(results))
	for i, r := range results {
		cmds[i] = documents.CreateCommand{
			OwnerID:      cmd.OwnerID,
			GroupID:      groupID,
			Type:         cmd.Type,
			Description:  r.description,
			OriginalName: r.original,
			StorageName:  r.result.Name,
			Location:     r.result.Location,
			IsCiphered:   cmd.Cipher,
			Size:         r.result.Size,
		}
	}

	docs, err := m.repo.CreateBatch(ctx, cmds)
	if err != nil {
		// The transaction rolled every row back; remove the batch files
		// so failure leaves no orphans either way.
		m.rollback(results)
		m.failed.Add(1)
		return nil, &FailedError{OwnerID: cmd.OwnerID, Err: err}
	}

	m.uploaded.Add(int64(len(docs)))
	m.recordAudit(ctx, cmd, groupID, len(docs))

	m.logger.Info(
		"upload batch persisted",
		"owner", cmd.OwnerID,
		"group", groupID,
		"files", len(docs),
		"ciphered", cmd.Cipher,
	)
	return docs, nil
}

// rollback removes every file the batch managed to write. Cleanup is best
// effort: failures are logged and the remaining files are still attempted.
func (m *Manager) rollback(results []stored) {
	for _, r := range results {
		if r.result == nil {
			continue
		}
		if err := m.store.Remove(r.result.Location, r.result.Name); err != nil {
			m.logger.Warn(
				"batch cleanup failed",
				"name", r.result.Name,
				"error", err,
			)
		}
	}
}

func (m *Manager) recordAudit(ctx context.Context, cmd Command, groupID uuid.UUID, count int) {
	log := fmt.Sprintf("uploaded %d file(s)", count)
	rec := documents.AuditRecord{
		Operation: "upload",
		GroupID:   &groupID,
		OwnerID:   &cmd.OwnerID,
		Log:       &log,
	}
	if cmd.Actor.ID != "" {
		rec.ActorID = &cmd.Actor.ID
	}

	if err := m.audit.Create(ctx, rec); err != nil {
		m.logger.Warn("audit record failed", "operation", "upload", "error", err)
	}
}
