// Package documenttest provides in-memory fakes of the documents
// repositories for tests in dependent packages.
package documenttest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ashford-digital/docvault/internal/documents"
	"github.com/ashford-digital/docvault/pkg/pagination"
)

// Repo is an in-memory documents.Repository. Zero value is usable.
// Error fields, when set, are returned by the matching method so tests
// can drive failure paths.
type Repo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]documents.Document

	FailCreateBatch    error
	FailSetCipherState error
	FailListAll        error
}

var _ documents.Repository = (*Repo)(nil)

// Seed inserts documents directly, bypassing validation.
func (r *Repo) Seed(docs ...documents.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure()
	for _, d := range docs {
		r.docs[d.ID] = d
	}
}

// All returns every stored document sorted by original name.
func (r *Repo) All() []documents.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// Get returns the stored document by id.
func (r *Repo) Get(id uuid.UUID) (documents.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure()
	d, ok := r.docs[id]
	return d, ok
}

func (r *Repo) ensure() {
	if r.docs == nil {
		r.docs = make(map[uuid.UUID]documents.Document)
	}
}

func (r *Repo) snapshot() []documents.Document {
	out := make([]documents.Document, 0, len(r.docs))
	for _, d := range r.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OriginalName < out[j].OriginalName
	})
	return out
}

func (r *Repo) Find(_ context.Context, id uuid.UUID) (*documents.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure()
	d, ok := r.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	return &d, nil
}

func (r *Repo) FindByOwner(ctx context.Context, ownerID string, page pagination.PageRequest) (*pagination.PageResult[documents.Document], error) {
	return r.page(func(d documents.Document) bool { return d.OwnerID == ownerID }, page)
}

func (r *Repo) FindByGroup(ctx context.Context, groupID uuid.UUID, page pagination.PageRequest) (*pagination.PageResult[documents.Document], error) {
	return r.page(func(d documents.Document) bool { return d.GroupID == groupID }, page)
}

func (r *Repo) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[documents.Document], error) {
	return r.page(func(documents.Document) bool { return true }, page)
}

func (r *Repo) Search(ctx context.Context, filters documents.Filters, page pagination.PageRequest) (*pagination.PageResult[documents.Document], error) {
	return r.page(func(d documents.Document) bool { return matches(d, filters) }, page)
}

func (r *Repo) page(keep func(documents.Document) bool, page pagination.PageRequest) (*pagination.PageResult[documents.Document], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []documents.Document
	for _, d := range r.snapshot() {
		if keep(d) {
			out = append(out, d)
		}
	}
	size := page.PageSize
	if size < 1 {
		size = len(out)
		if size < 1 {
			size = 1
		}
	}
	p := page.Page
	if p < 1 {
		p = 1
	}
	// Window the matches the way LIMIT/OFFSET would.
	start := (p - 1) * size
	if start > len(out) {
		start = len(out)
	}
	end := start + size
	if end > len(out) {
		end = len(out)
	}
	result := pagination.NewPageResult(out[start:end], len(out), p, size)
	return &result, nil
}

func (r *Repo) ListAll(_ context.Context) ([]documents.Document, error) {
	if r.FailListAll != nil {
		return nil, r.FailListAll
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(), nil
}

func (r *Repo) SearchAll(_ context.Context, filters documents.Filters) ([]documents.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Non-nil even when empty, like the production query path; callers
	// distinguish no-match from invalid-token by nil-ness.
	out := make([]documents.Document, 0)
	for _, d := range r.snapshot() {
		if matches(d, filters) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
	docs, err := r.CreateBatch(ctx, []documents.CreateCommand{cmd})
	if err != nil {
		return nil, err
	}
	return &docs[0], nil
}

func (r *Repo) CreateBatch(_ context.Context, cmds []documents.CreateCommand) ([]documents.Document, error) {
	if r.FailCreateBatch != nil {
		return nil, r.FailCreateBatch
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure()
	out := make([]documents.Document, len(cmds))
	for i, cmd := range cmds {
		if err := cmd.Validate(); err != nil {
			return nil, err
		}
		d := documents.Document{
			ID:           uuid.New(),
			OwnerID:      cmd.OwnerID,
			GroupID:      cmd.GroupID,
			Type:         cmd.Type,
			Description:  cmd.Description,
			OriginalName: cmd.OriginalName,
			StorageName:  cmd.StorageName,
			Location:     cmd.Location,
			IsCiphered:   cmd.IsCiphered,
			Size:         cmd.Size,
		}
		r.docs[d.ID] = d
		out[i] = d
	}
	return out, nil
}

func (r *Repo) Update(_ context.Context, cmd documents.UpdateCommand) (*documents.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure()
	d, ok := r.docs[cmd.ID]
	if !ok {
		return nil, documents.ErrNotFound
	}
	if cmd.Description != nil {
		d.Description = *cmd.Description
	}
	if cmd.Type != nil {
		d.Type = *cmd.Type
	}
	r.docs[d.ID] = d
	return &d, nil
}

func (r *Repo) SetCipherState(_ context.Context, id uuid.UUID, ciphered bool, storageName string) error {
	if r.FailSetCipherState != nil {
		return r.FailSetCipherState
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure()
	d, ok := r.docs[id]
	if !ok {
		return documents.ErrNotFound
	}
	d.IsCiphered = ciphered
	d.StorageName = storageName
	r.docs[id] = d
	return nil
}

func (r *Repo) Delete(_ context.Context, id uuid.UUID) (*documents.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure()
	d, ok := r.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	delete(r.docs, id)
	return &d, nil
}

func (r *Repo) DeleteByGroup(_ context.Context, groupID uuid.UUID) ([]documents.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []documents.Document
	for _, d := range r.snapshot() {
		if d.GroupID == groupID {
			out = append(out, d)
			delete(r.docs, d.ID)
		}
	}
	return out, nil
}

func (r *Repo) DeleteAll(_ context.Context) ([]documents.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.snapshot()
	r.docs = make(map[uuid.UUID]documents.Document)
	return out, nil
}

func (r *Repo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.docs)), nil
}

func matches(d documents.Document, f documents.Filters) bool {
	if f.ID != nil && d.ID != *f.ID {
		return false
	}
	if f.OwnerID != nil && d.OwnerID != *f.OwnerID {
		return false
	}
	if f.GroupID != nil && d.GroupID != *f.GroupID {
		return false
	}
	if f.Name != nil && !contains(d.OriginalName, *f.Name) {
		return false
	}
	if f.Description != nil && !contains(d.Description, *f.Description) {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if d.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func contains(value, fragment string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(fragment))
}

// Audit is an in-memory documents.AuditRepository.
type Audit struct {
	mu      sync.Mutex
	Records []documents.AuditRecord
}

var _ documents.AuditRepository = (*Audit)(nil)

func (a *Audit) Create(_ context.Context, rec documents.AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Records = append(a.Records, rec)
	return nil
}
