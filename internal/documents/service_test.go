package documents_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ashford-digital/docvault/internal/documents"
	"github.com/ashford-digital/docvault/internal/documents/documenttest"
	"github.com/ashford-digital/docvault/internal/rbac"
	"github.com/ashford-digital/docvault/pkg/cipherio"
	"github.com/ashford-digital/docvault/pkg/filestore"
	"github.com/ashford-digital/docvault/pkg/pagination"
	"github.com/ashford-digital/docvault/pkg/signedurl"
	"github.com/ashford-digital/docvault/pkg/telemetry"
)

const downloadPath = "/api/documents/download"

type fixture struct {
	repo    *documenttest.Repo
	store   filestore.System
	service *documents.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cipher, err := cipherio.New(bytes.Repeat([]byte{5}, 32))
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := filestore.New(&filestore.Config{Root: t.TempDir()}, cipher, logger)
	if err != nil {
		t.Fatalf("filestore: %v", err)
	}

	codec := signedurl.New(cipher, []byte("hmac-test-key"), time.Hour)
	repo := &documenttest.Repo{}
	return &fixture{
		repo:    repo,
		store:   store,
		service: documents.NewService(repo, &documenttest.Audit{}, store, codec, logger, telemetry.New()),
	}
}

func (f *fixture) seed(t *testing.T, name string, group uuid.UUID) documents.Document {
	t.Helper()

	res, err := f.store.Store(context.Background(), "2026/08/01", name, false, strings.NewReader("content of "+name))
	if err != nil {
		t.Fatalf("store %s: %v", name, err)
	}

	doc := documents.Document{
		ID:           uuid.New(),
		OwnerID:      "owner-1",
		GroupID:      group,
		Type:         documents.TypeGeneral,
		OriginalName: name,
		StorageName:  res.Name,
		Location:     res.Location,
		Size:         res.Size,
	}
	f.repo.Seed(doc)
	return doc
}

// signedParts generates a URL and extracts its token and signature.
func signedParts(t *testing.T, f *fixture, docID, groupID *uuid.UUID) (string, string) {
	t.Helper()

	signed, err := f.service.GenerateURL(downloadPath, docID, groupID)
	if err != nil {
		t.Fatalf("GenerateURL: %v", err)
	}

	parsed, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}
	return parsed.Query().Get("token"), parsed.Query().Get("signature")
}

func TestGenerateURLRequiresAnID(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GenerateURL(downloadPath, nil, nil)
	if !errors.Is(err, documents.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestSignedURLResolvesDocument(t *testing.T) {
	f := newFixture(t)
	doc := f.seed(t, "a.txt", uuid.New())

	token, signature := signedParts(t, f, &doc.ID, nil)

	docs, err := f.service.FindBySignature(context.Background(), downloadPath, token, signature)
	if err != nil {
		t.Fatalf("FindBySignature: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != doc.ID {
		t.Fatalf("resolved %d documents, want the signed one", len(docs))
	}
}

func TestSignedURLResolvesWholeGroup(t *testing.T) {
	f := newFixture(t)
	group := uuid.New()
	f.seed(t, "a.txt", group)
	f.seed(t, "b.txt", group)
	f.seed(t, "other.txt", uuid.New())

	token, signature := signedParts(t, f, nil, &group)

	docs, err := f.service.FindBySignature(context.Background(), downloadPath, token, signature)
	if err != nil {
		t.Fatalf("FindBySignature: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("resolved %d documents, want 2 group members", len(docs))
	}
	for _, d := range docs {
		if d.GroupID != group {
			t.Errorf("document %s outside the signed group", d.OriginalName)
		}
	}
}

func TestSignedURLToVanishedDocumentResolvesEmpty(t *testing.T) {
	f := newFixture(t)
	doc := f.seed(t, "a.txt", uuid.New())

	token, signature := signedParts(t, f, &doc.ID, nil)
	if _, err := f.repo.Delete(context.Background(), doc.ID); err != nil {
		t.Fatal(err)
	}

	docs, err := f.service.FindBySignature(context.Background(), downloadPath, token, signature)
	if err != nil {
		t.Fatalf("FindBySignature: %v", err)
	}
	if docs == nil {
		t.Fatal("valid token over deleted documents must resolve to an empty slice, not nil")
	}
	if len(docs) != 0 {
		t.Fatalf("resolved %d documents, want 0", len(docs))
	}
}

func TestSignedURLRejectsTampering(t *testing.T) {
	f := newFixture(t)
	doc := f.seed(t, "a.txt", uuid.New())

	token, signature := signedParts(t, f, &doc.ID, nil)

	cases := []struct {
		name             string
		token, signature string
	}{
		{"forged signature", token, "deadbeef"},
		{"mangled token", token + "x", signature},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			docs, err := f.service.FindBySignature(context.Background(), downloadPath, tc.token, tc.signature)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if docs != nil {
				t.Error("invalid credentials must resolve to nil")
			}
		})
	}
}

func TestSignedURLBoundToPath(t *testing.T) {
	f := newFixture(t)
	doc := f.seed(t, "a.txt", uuid.New())

	token, signature := signedParts(t, f, &doc.ID, nil)

	docs, err := f.service.FindBySignature(context.Background(), "/other/path", token, signature)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docs != nil {
		t.Error("token must not verify against a different path")
	}
}

func TestSearchTotalIndependentOfPageSize(t *testing.T) {
	f := newFixture(t)
	group := uuid.New()
	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"} {
		f.seed(t, name, group)
	}

	filters := documents.Filters{GroupID: &group}

	for _, size := range []int{2, 10} {
		result, err := f.service.Search(context.Background(), filters, pagination.PageRequest{Page: 1, PageSize: size})
		if err != nil {
			t.Fatalf("Search (page size %d): %v", size, err)
		}
		if result.Total != 5 {
			t.Errorf("page size %d: total = %d, want 5", size, result.Total)
		}
		want := size
		if want > 5 {
			want = 5
		}
		if len(result.Data) != want {
			t.Errorf("page size %d: got %d rows, want %d", size, len(result.Data), want)
		}
	}
}

func TestDeleteRemovesRecordAndFile(t *testing.T) {
	f := newFixture(t)
	doc := f.seed(t, "a.txt", uuid.New())

	if err := f.service.Delete(context.Background(), rbac.Actor{ID: "admin"}, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, ok := f.repo.Get(doc.ID); ok {
		t.Error("record still present")
	}
	if f.store.Exists(doc.Location, doc.StorageName) {
		t.Error("file still on disk")
	}
}

func TestDeleteByGroupRemovesAllMembers(t *testing.T) {
	f := newFixture(t)
	group := uuid.New()
	a := f.seed(t, "a.txt", group)
	b := f.seed(t, "b.txt", group)
	other := f.seed(t, "other.txt", uuid.New())

	count, err := f.service.DeleteByGroup(context.Background(), rbac.Actor{}, group)
	if err != nil {
		t.Fatalf("DeleteByGroup: %v", err)
	}
	if count != 2 {
		t.Fatalf("deleted %d, want 2", count)
	}

	for _, doc := range []documents.Document{a, b} {
		if f.store.Exists(doc.Location, doc.StorageName) {
			t.Errorf("group member %s still on disk", doc.OriginalName)
		}
	}
	if !f.store.Exists(other.Location, other.StorageName) {
		t.Error("unrelated document was deleted")
	}
}
