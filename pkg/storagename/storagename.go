// Package storagename derives collision-resistant on-disk filenames for
// stored documents. Names embed a snowflake id, so concurrent uploads across
// multiple service instances never collide, and may optionally be encrypted
// into an opaque token.
package storagename

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/ashford-digital/docvault/pkg/cipherio"
)

// Separator joins the metadata segments of a plaintext storage name.
const Separator = "~"

// ErrNameRoundTrip indicates the encrypt-then-decrypt verification of a
// ciphered storage name did not reproduce the original string. It signals
// an inconsistent cipher configuration, not a user error, and must abort
// the operation that encountered it.
var ErrNameRoundTrip = errors.New("storage name encryption round trip mismatch")

// Builder produces storage names and date-partitioned locations.
type Builder struct {
	node   *snowflake.Node
	cipher *cipherio.Cipher
}

// New creates a Builder backed by a snowflake node with the given worker id.
func New(nodeID int64, cipher *cipherio.Cipher) (*Builder, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}
	return &Builder{node: node, cipher: cipher}, nil
}

// Build returns the storage name for a file:
// {snowflakeID}~{ownerID}~{type}~{groupID|empty}~{originalName}.
// When cipherName is set, the structured name is encrypted and the
// resulting opaque token is verified by immediate decryption before use.
func (b *Builder) Build(ownerID, groupID, docType, originalName string, cipherName bool) (string, error) {
	name := fmt.Sprintf(
		"%s%s%s%s%s%s%s%s%s",
		b.node.Generate().String(), Separator,
		ownerID, Separator,
		docType, Separator,
		groupID, Separator,
		originalName,
	)

	if !cipherName {
		return name, nil
	}

	encrypted, err := b.cipher.EncryptName(name)
	if err != nil {
		return "", fmt.Errorf("encrypt storage name: %w", err)
	}

	decrypted, err := b.cipher.DecryptName(encrypted)
	if err != nil {
		return "", fmt.Errorf("verify storage name: %w", err)
	}
	if decrypted != name {
		return "", ErrNameRoundTrip
	}

	return encrypted, nil
}

// PartitionPath returns the date-partitioned relative directory for files
// created at t: year/month/day with zero-padded components.
func PartitionPath(t time.Time) string {
	return fmt.Sprintf("%04d/%02d/%02d", t.Year(), t.Month(), t.Day())
}
