package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"strings"
	"testing"

	"github.com/ashford-digital/docvault/internal/documents"
	"github.com/ashford-digital/docvault/internal/documents/documenttest"
	"github.com/ashford-digital/docvault/pkg/cipherio"
	"github.com/ashford-digital/docvault/pkg/filestore"
	"github.com/ashford-digital/docvault/pkg/storagename"
	"github.com/ashford-digital/docvault/pkg/telemetry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	repo    *documenttest.Repo
	store   filestore.System
	cipher  *cipherio.Cipher
	manager *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cipher, err := cipherio.New(bytes.Repeat([]byte{3}, 32))
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}

	logger := testLogger()
	store, err := filestore.New(&filestore.Config{Root: t.TempDir()}, cipher, logger)
	if err != nil {
		t.Fatalf("filestore: %v", err)
	}

	names, err := storagename.New(1, cipher)
	if err != nil {
		t.Fatalf("storagename: %v", err)
	}

	repo := &documenttest.Repo{}
	return &fixture{
		repo:    repo,
		store:   store,
		cipher:  cipher,
		manager: NewManager(names, store, repo, &documenttest.Audit{}, logger, telemetry.New()),
	}
}

// makeFiles builds real multipart file headers from name/content pairs.
func makeFiles(t *testing.T, parts map[string]string) []File {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, content := range parts {
		fw, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })

	files := make([]File, 0, len(form.File["files"]))
	for _, header := range form.File["files"] {
		files = append(files, File{Header: header})
	}
	return files
}

func TestProcessSharesOneGroup(t *testing.T) {
	f := newFixture(t)
	files := makeFiles(t, map[string]string{
		"one.txt": "first file",
		"two.txt": "second file",
	})

	docs, err := f.manager.Process(context.Background(), Command{
		OwnerID: "owner-1",
		Type:    documents.TypeGeneral,
	}, files)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	if docs[0].GroupID != docs[1].GroupID {
		t.Error("batch files must share one group id")
	}

	for _, doc := range docs {
		if !f.store.Exists(doc.Location, doc.StorageName) {
			t.Errorf("file %s missing on disk", doc.StorageName)
		}
		if doc.OwnerID != "owner-1" {
			t.Errorf("owner = %q", doc.OwnerID)
		}
	}
}

func TestProcessCipheredUpload(t *testing.T) {
	f := newFixture(t)
	content := "confidential body"
	files := makeFiles(t, map[string]string{"secret.pdf": content})

	docs, err := f.manager.Process(context.Background(), Command{
		OwnerID: "owner-1",
		Type:    documents.TypeContract,
		Cipher:  true,
	}, files)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	doc := docs[0]

	if !doc.IsCiphered {
		t.Error("document not marked ciphered")
	}
	if doc.Size != int64(len(content)) {
		t.Errorf("size = %d, want plaintext length %d", doc.Size, len(content))
	}
	if strings.Contains(doc.StorageName, "secret.pdf") {
		t.Error("ciphered storage name leaks the original filename")
	}

	r, err := f.store.Open(doc.Location, doc.StorageName)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if err := f.cipher.Decrypt(&buf, r); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if buf.String() != content {
		t.Error("deciphered content does not match upload")
	}
}

func TestProcessRejectsEmptyBatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Process(context.Background(), Command{
		OwnerID: "owner-1",
		Type:    documents.TypeGeneral,
	}, nil)
	if !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func TestProcessRollsBackFilesOnRecordFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.FailCreateBatch = errors.New("db down")
	files := makeFiles(t, map[string]string{
		"one.txt": "first",
		"two.txt": "second",
	})

	_, err := f.manager.Process(context.Background(), Command{
		OwnerID: "owner-1",
		Type:    documents.TypeGeneral,
	}, files)

	var failed *FailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected FailedError, got %v", err)
	}
	if failed.OwnerID != "owner-1" {
		t.Errorf("failed owner = %q", failed.OwnerID)
	}

	if docs := f.repo.All(); len(docs) != 0 {
		t.Errorf("expected no records, got %d", len(docs))
	}

	// Every written file must be gone again.
	root := f.store.Root()
	var leftovers []string
	walk(t, root, &leftovers)
	if len(leftovers) != 0 {
		t.Errorf("orphaned files after rollback: %v", leftovers)
	}
}

func walk(t *testing.T, dir string, files *[]string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			walk(t, dir+"/"+e.Name(), files)
			continue
		}
		*files = append(*files, e.Name())
	}
}
