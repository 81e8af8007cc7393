package documents

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/ashford-digital/docvault/pkg/query"
	"github.com/ashford-digital/docvault/pkg/repository"
)

func projection(schema string) *query.ProjectionMap {
	return query.
		NewProjectionMap(schema, "documents", "d").
		Project("id", "ID").
		Project("owner_id", "OwnerID").
		Project("group_id", "GroupID").
		Project("doc_type", "Type").
		Project("description", "Description").
		Project("original_name", "OriginalName").
		Project("storage_name", "StorageName").
		Project("location", "Location").
		Project("is_ciphered", "IsCiphered").
		Project("size_bytes", "Size").
		Project("created_at", "CreatedAt").
		Project("updated_at", "UpdatedAt")
}

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional search criteria. Nil fields are ignored.
// ID, OwnerID, and GroupID match exactly; Name and Description use
// case-insensitive contains matching; Types is set-membership.
type Filters struct {
	ID          *uuid.UUID `json:"id,omitempty"`
	OwnerID     *string    `json:"owner_id,omitempty"`
	GroupID     *uuid.UUID `json:"group_id,omitempty"`
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Types       []Type     `json:"types,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.
		WhereEquals("ID", f.ID).
		WhereEquals("OwnerID", f.OwnerID).
		WhereEquals("GroupID", f.GroupID).
		WhereContains("OriginalName", f.Name).
		WhereContains("Description", f.Description)

	if len(f.Types) > 0 {
		values := make([]any, len(f.Types))
		for i, t := range f.Types {
			values[i] = string(t)
		}
		b.WhereIn("Type", values)
	}

	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Type filters may be supplied as repeated "type" parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if raw := values.Get("id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			f.ID = &id
		}
	}

	if owner := values.Get("owner_id"); owner != "" {
		f.OwnerID = &owner
	}

	if raw := values.Get("group_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			f.GroupID = &id
		}
	}

	if name := values.Get("name"); name != "" {
		f.Name = &name
	}

	if desc := values.Get("description"); desc != "" {
		f.Description = &desc
	}

	for _, raw := range values["type"] {
		if t, err := ParseType(raw); err == nil {
			f.Types = append(f.Types, t)
		}
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.OwnerID,
		&d.GroupID,
		&d.Type,
		&d.Description,
		&d.OriginalName,
		&d.StorageName,
		&d.Location,
		&d.IsCiphered,
		&d.Size,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}
