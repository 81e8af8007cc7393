// Package documents implements the document domain for DocVault. It
// provides types, data access, and orchestration for document metadata:
// lookup, filtered search, cipher-state bookkeeping, deletion, and
// signed-URL resolution. Physical file handling lives in pkg/filestore;
// this package owns the records that describe those files.
package documents

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type enumerates the document categories accepted by the service.
type Type string

const (
	TypeGeneral     Type = "general"
	TypeCertificate Type = "certificate"
	TypeContract    Type = "contract"
	TypeInvoice     Type = "invoice"
	TypePassport    Type = "passport"
	TypePersonalID  Type = "personal-id"
	TypeReceipt     Type = "receipt"
	TypeReport      Type = "report"
)

// Types lists every valid document type.
var Types = []Type{
	TypeGeneral, TypeCertificate, TypeContract, TypeInvoice,
	TypePassport, TypePersonalID, TypeReceipt, TypeReport,
}

// ParseType validates a raw type string.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// Document is one physical file plus its metadata. OriginalName,
// StorageName, and Location are never blank, and (Location, StorageName)
// resolves to an existing file for as long as the record exists — every
// mutating operation keeps the two in lockstep. Size is always the
// plaintext byte length, even while IsCiphered is set.
type Document struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      string    `json:"owner_id"`
	GroupID      uuid.UUID `json:"group_id"`
	Type         Type      `json:"type"`
	Description  string    `json:"description"`
	OriginalName string    `json:"original_name"`
	StorageName  string    `json:"storage_name"`
	Location     string    `json:"location"`
	IsCiphered   bool      `json:"is_ciphered"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateCommand carries the data needed to register one stored file.
type CreateCommand struct {
	OwnerID      string
	GroupID      uuid.UUID
	Type         Type
	Description  string
	OriginalName string
	StorageName  string
	Location     string
	IsCiphered   bool
	Size         int64
}

// Validate enforces the non-blank invariants before a row is written.
func (c CreateCommand) Validate() error {
	if c.OriginalName == "" {
		return fmt.Errorf("%w: original name", ErrBlankField)
	}
	if c.StorageName == "" {
		return fmt.Errorf("%w: storage name", ErrBlankField)
	}
	if c.Location == "" {
		return fmt.Errorf("%w: location", ErrBlankField)
	}
	if _, err := ParseType(string(c.Type)); err != nil {
		return err
	}
	return nil
}

// UpdateCommand carries mutable metadata for an existing document.
// Nil fields are left unchanged.
type UpdateCommand struct {
	ID          uuid.UUID
	Description *string
	Type        *Type
}
