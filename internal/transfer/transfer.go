// Package transfer streams stored document content back to clients. A
// single document streams directly; multiple documents are packed into a
// zip archive produced on the fly, so the response starts before the
// archive is fully built. Ciphered files are deciphered in transit and
// never written to disk in plaintext.
package transfer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/ashford-digital/docvault/internal/documents"
	"github.com/ashford-digital/docvault/pkg/cipherio"
	"github.com/ashford-digital/docvault/pkg/filestore"
	"github.com/ashford-digital/docvault/pkg/telemetry"
)

// Content is a prepared download stream. Size is -1 when the total
// length is not known up front, as with archives.
type Content struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// Options controls how a download stream is prepared.
type Options struct {
	// Decipher serves plaintext for ciphered documents. When false, file
	// content is streamed exactly as stored.
	Decipher bool
	// ArchiveName overrides the derived archive filename.
	ArchiveName string
	// ArchiveAlways packs even a single document into an archive.
	ArchiveAlways bool
}

// Streamer prepares download streams over stored files.
type Streamer struct {
	store     filestore.System
	cipher    *cipherio.Cipher
	logger    *slog.Logger
	downloads telemetry.Counter
	archives  telemetry.Counter
}

// NewStreamer wires a Streamer from its collaborators.
func NewStreamer(
	store filestore.System,
	cipher *cipherio.Cipher,
	logger *slog.Logger,
	metrics telemetry.Registry,
) *Streamer {
	return &Streamer{
		store:     store,
		cipher:    cipher,
		logger:    logger.With("system", "transfer"),
		downloads: metrics.Counter("documents_downloaded"),
		archives:  metrics.Counter("archives_streamed"),
	}
}

// Prepare builds a download stream for the given documents: a direct
// stream for one document, a zip archive for several or when opts force
// one. The caller owns Body and must close it.
func (s *Streamer) Prepare(ctx context.Context, docs []documents.Document, opts Options) (*Content, error) {
	if len(docs) == 0 {
		return nil, ErrNoContent
	}
	if len(docs) == 1 && !opts.ArchiveAlways {
		return s.single(docs[0], opts)
	}

	name := opts.ArchiveName
	if name == "" {
		name = archiveName(docs)
	}
	return s.archive(ctx, docs, name, opts)
}

// Backup packs the documents into a zip archive under a timestamped name,
// preserving stored content as is.
func (s *Streamer) Backup(ctx context.Context, docs []documents.Document) (*Content, error) {
	if len(docs) == 0 {
		return nil, ErrNoContent
	}
	return s.Prepare(ctx, docs, Options{
		ArchiveName:   fmt.Sprintf("backup-%s.zip", time.Now().Format("20060102-150405")),
		ArchiveAlways: true,
	})
}

func (s *Streamer) single(doc documents.Document, opts Options) (*Content, error) {
	src, err := s.store.Open(doc.Location, doc.StorageName)
	if err != nil {
		return nil, &StreamError{OwnerID: doc.OwnerID, Err: err}
	}

	body := src
	size := doc.Size
	name := doc.OriginalName
	if opts.Decipher && doc.IsCiphered {
		body = s.decipherStream(doc, src)
	} else if doc.IsCiphered {
		// Ciphered content served as stored; the plaintext size no
		// longer describes the stream.
		size = -1
		name = doc.StorageName
	}

	s.downloads.Add(1)
	return &Content{
		Name:        name,
		ContentType: contentType(doc.OriginalName),
		Size:        size,
		Body:        body,
	}, nil
}

// decipherStream turns a ciphered file reader into a plaintext stream
// without buffering the whole file.
func (s *Streamer) decipherStream(doc documents.Document, src io.ReadCloser) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		defer src.Close()
		err := s.cipher.Decrypt(pw, src)
		if err != nil {
			err = &StreamError{OwnerID: doc.OwnerID, Err: err}
		}
		pw.CloseWithError(err)
	}()
	return pr
}

// archive streams the documents into a zip produced by a writer goroutine.
// Missing files are logged and skipped so a stale record cannot break a
// whole archive; any other failure tears the stream down mid-flight.
func (s *Streamer) archive(ctx context.Context, docs []documents.Document, name string, opts Options) (*Content, error) {
	pr, pw := io.Pipe()

	go func() {
		zw := zip.NewWriter(pw)
		names := make(map[string]int)

		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				zw.Close()
				pw.CloseWithError(err)
				return
			}

			src, err := s.store.Open(doc.Location, doc.StorageName)
			if err != nil {
				s.logger.Warn(
					"archive entry skipped",
					"id", doc.ID,
					"name", doc.StorageName,
					"error", err,
				)
				continue
			}

			if err := s.writeEntry(zw, doc, src, names, opts); err != nil {
				src.Close()
				zw.Close()
				pw.CloseWithError(&StreamError{OwnerID: doc.OwnerID, Err: err})
				return
			}
			src.Close()
		}

		err := zw.Close()
		pw.CloseWithError(err)
	}()

	s.archives.Add(1)
	return &Content{
		Name:        name,
		ContentType: "application/zip",
		Size:        -1,
		Body:        pr,
	}, nil
}

// writeEntry packs one file into the archive. Deciphered entries carry
// the original name; as-stored entries keep their storage name.
func (s *Streamer) writeEntry(zw *zip.Writer, doc documents.Document, src io.Reader, names map[string]int, opts Options) error {
	entry := doc.StorageName
	if opts.Decipher {
		entry = doc.OriginalName
	}

	w, err := zw.Create(uniqueName(entry, names))
	if err != nil {
		return err
	}

	if opts.Decipher && doc.IsCiphered {
		return s.cipher.Decrypt(w, src)
	}
	_, err = io.Copy(w, src)
	return err
}

// uniqueName deduplicates archive entry names: the second report.pdf
// becomes report(1).pdf, the third report(2).pdf.
func uniqueName(name string, seen map[string]int) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}

	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]
	return fmt.Sprintf("%s(%d)%s", base, n, ext)
}

// archiveName derives the download filename for a multi-document stream.
// Group downloads share a group id, so the archive is named after it.
func archiveName(docs []documents.Document) string {
	group := docs[0].GroupID
	for _, doc := range docs[1:] {
		if doc.GroupID != group {
			return fmt.Sprintf("documents-%s.zip", time.Now().Format("20060102-150405"))
		}
	}
	return fmt.Sprintf("group-%s.zip", group)
}

func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
