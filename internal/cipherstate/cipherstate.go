// Package cipherstate migrates the whole document corpus between
// ciphered and plaintext states: file content is rewritten in place
// through a temp file, the storage name is re-derived, and the record
// updated to match. Per-document failures are logged and skipped so one
// bad file cannot abort a bulk maintenance run; only fully migrated
// documents count toward the result.
package cipherstate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/ashford-digital/docvault/internal/documents"
	"github.com/ashford-digital/docvault/internal/rbac"
	"github.com/ashford-digital/docvault/pkg/cipherio"
	"github.com/ashford-digital/docvault/pkg/filestore"
	"github.com/ashford-digital/docvault/pkg/telemetry"
)

// Temp file prefixes used during the in-place rewrite.
const (
	tempCipherPrefix   = "temp-cipher-"
	tempDecipherPrefix = "temp-decipher-"
)

// errSkipped marks a document left untouched. Skipped documents never
// count toward the changed total.
var errSkipped = errors.New("document skipped")

// Migrator performs bulk cipher-state transitions.
type Migrator struct {
	repo     documents.Repository
	audit    documents.AuditRepository
	store    filestore.System
	cipher   *cipherio.Cipher
	logger   *slog.Logger
	migrated telemetry.Counter

	// locks serializes concurrent state changes against the same
	// document; the rewrite-and-rename sequence is not safe under
	// concurrent writers.
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewMigrator wires a Migrator from its collaborators.
func NewMigrator(
	repo documents.Repository,
	audit documents.AuditRepository,
	store filestore.System,
	cipher *cipherio.Cipher,
	logger *slog.Logger,
	metrics telemetry.Registry,
) *Migrator {
	return &Migrator{
		repo:     repo,
		audit:    audit,
		store:    store,
		cipher:   cipher,
		logger:   logger.With("system", "cipherstate"),
		migrated: metrics.Counter("documents_reciphered"),
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// ChangeState brings every document to the requested cipher state and
// returns the number actually changed. Documents already in the desired
// state are skipped, which makes an immediately repeated call affect
// zero documents.
func (m *Migrator) ChangeState(ctx context.Context, actor rbac.Actor, cipher bool) (int, error) {
	docs, err := m.repo.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load documents: %w", err)
	}

	count := 0
	for _, doc := range docs {
		if doc.IsCiphered == cipher {
			continue
		}
		if err := ctx.Err(); err != nil {
			return count, err
		}

		if err := m.migrate(ctx, doc, cipher); err != nil {
			if !errors.Is(err, errSkipped) {
				m.logger.Error(
					"document cipher migration failed",
					"id", doc.ID,
					"name", doc.StorageName,
					"to_ciphered", cipher,
					"error", err,
				)
			}
			continue
		}
		count++
	}

	m.migrated.Add(int64(count))
	m.recordAudit(ctx, actor, cipher, count)

	m.logger.Info(
		"cipher state migration finished",
		"to_ciphered", cipher,
		"changed", count,
		"total", len(docs),
	)
	return count, nil
}

func (m *Migrator) migrate(ctx context.Context, doc documents.Document, cipher bool) error {
	unlock := m.lock(doc.ID)
	defer unlock()

	if !m.store.Exists(doc.Location, doc.StorageName) {
		m.logger.Warn("file missing, skipping", "id", doc.ID, "name", doc.StorageName)
		return errSkipped
	}

	if err := m.rewrite(doc, cipher); err != nil {
		return err
	}

	// Re-derive the storage name from the current one: encrypt on the way
	// into the ciphered state, decrypt on the way out.
	var newName string
	var err error
	if cipher {
		newName, err = m.cipher.EncryptName(doc.StorageName)
	} else {
		newName, err = m.cipher.DecryptName(doc.StorageName)
	}
	if err != nil {
		return fmt.Errorf("derive storage name: %w", err)
	}

	if err := m.store.Rename(doc.Location, doc.StorageName, newName); err != nil {
		return err
	}

	if err := m.repo.SetCipherState(ctx, doc.ID, cipher, newName); err != nil {
		// Put the file back so record and disk stay in lockstep.
		if rerr := m.store.Rename(doc.Location, newName, doc.StorageName); rerr != nil {
			m.logger.Error("rename rollback failed", "id", doc.ID, "error", rerr)
		}
		return err
	}

	return nil
}

// rewrite streams the file through the cipher into a temp file, then
// copies the temp content over the original path. The original path is
// preserved deliberately; the temp file is removed no matter the outcome.
func (m *Migrator) rewrite(doc documents.Document, cipher bool) error {
	prefix := tempDecipherPrefix
	if cipher {
		prefix = tempCipherPrefix
	}

	tmp, err := m.store.CreateTemp(doc.Location, prefix+"*")
	if err != nil {
		return err
	}
	tmpName := filepath.Base(tmp.Name())
	defer func() {
		tmp.Close()
		if err := m.store.Remove(doc.Location, tmpName); err != nil && !errors.Is(err, filestore.ErrNotFound) {
			m.logger.Warn("temp file cleanup failed", "name", tmpName, "error", err)
		}
	}()

	src, err := m.store.Open(doc.Location, doc.StorageName)
	if err != nil {
		return err
	}

	if cipher {
		err = m.cipher.Encrypt(tmp, src)
	} else {
		err = m.cipher.Decrypt(tmp, src)
	}
	src.Close()
	if err != nil {
		return fmt.Errorf("rewrite content: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind temp file: %w", err)
	}

	return m.store.ReplaceContent(doc.Location, doc.StorageName, tmp)
}

func (m *Migrator) lock(id uuid.UUID) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (m *Migrator) recordAudit(ctx context.Context, actor rbac.Actor, cipher bool, count int) {
	log := fmt.Sprintf("changed cipher state to %t for %d document(s)", cipher, count)
	rec := documents.AuditRecord{
		Operation: "cipher-state",
		Log:       &log,
	}
	if actor.ID != "" {
		rec.ActorID = &actor.ID
	}

	if err := m.audit.Create(ctx, rec); err != nil {
		m.logger.Warn("audit record failed", "operation", "cipher-state", "error", err)
	}
}
