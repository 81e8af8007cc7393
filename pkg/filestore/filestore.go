// Package filestore persists document content on the local filesystem under
// a configured root, partitioned by date. Writes may be run through the
// stream cipher, with the reported size always reflecting plaintext length.
package filestore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashford-digital/docvault/pkg/cipherio"
)

// Result describes a stored file.
type Result struct {
	// Location is the absolute directory the file was written to.
	Location string
	// Name is the on-disk filename within Location.
	Name string
	// Size is the plaintext byte count, regardless of whether the
	// content was encrypted on the way to disk.
	Size int64
}

// System manages document files under a single storage root.
type System interface {
	// Store writes r to {root}/{partition}/{name}, encrypting when
	// ciphered is set. The partial file is removed on any error.
	Store(ctx context.Context, partition, name string, ciphered bool, r io.Reader) (*Result, error)
	// Open returns a reader over the file at location/name.
	Open(location, name string) (io.ReadCloser, error)
	// Remove deletes the file at location/name.
	Remove(location, name string) error
	// Exists reports whether a regular file exists at location/name.
	Exists(location, name string) bool
	// Rename renames a file within its location directory.
	Rename(location, oldName, newName string) error
	// CreateTemp creates a temp file next to the files in location using
	// the given name pattern.
	CreateTemp(location, pattern string) (*os.File, error)
	// ReplaceContent overwrites the file at location/name with the
	// content of src, preserving the original path.
	ReplaceContent(location, name string, src io.Reader) error
	// Root returns the absolute storage root.
	Root() string
}

type store struct {
	root   string
	cipher *cipherio.Cipher
	logger *slog.Logger
}

// New creates a filesystem store rooted at cfg.Root. The root directory is
// created if missing.
func New(cfg *Config, cipher *cipherio.Cipher, logger *slog.Logger) (System, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &store{
		root:   root,
		cipher: cipher,
		logger: logger.With("system", "filestore"),
	}, nil
}

func (s *store) Root() string {
	return s.root
}

func (s *store) Store(ctx context.Context, partition, name string, ciphered bool, r io.Reader) (*Result, error) {
	location, err := s.resolveDir(filepath.Join(s.root, partition))
	if err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(location, 0o755); err != nil {
		return nil, fmt.Errorf("create partition %s: %w", partition, err)
	}

	path := filepath.Join(location, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file %s: %w", name, err)
	}

	counter := &countingReader{r: contextReader{ctx: ctx, r: r}}
	w := bufio.NewWriter(f)

	if ciphered {
		err = s.cipher.Encrypt(w, counter)
	} else {
		_, err = io.Copy(w, counter)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			s.logger.Warn("partial file cleanup failed", "path", path, "error", rmErr)
		}
		return nil, fmt.Errorf("write file %s: %w", name, err)
	}

	return &Result{Location: location, Name: name, Size: counter.n}, nil
}

func (s *store) Open(location, name string) (io.ReadCloser, error) {
	path, err := s.resolvePath(location, name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open file %s: %w", name, err)
	}
	return f, nil
}

func (s *store) Remove(location, name string) error {
	path, err := s.resolvePath(location, name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove file %s: %w", name, err)
	}
	return nil
}

func (s *store) Exists(location, name string) bool {
	path, err := s.resolvePath(location, name)
	if err != nil {
		return false
	}

	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (s *store) Rename(location, oldName, newName string) error {
	oldPath, err := s.resolvePath(location, oldName)
	if err != nil {
		return err
	}
	newPath, err := s.resolvePath(location, newName)
	if err != nil {
		return err
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("rename %s to %s: %w", oldName, newName, err)
	}
	return nil
}

func (s *store) CreateTemp(location, pattern string) (*os.File, error) {
	dir, err := s.resolveDir(location)
	if err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return f, nil
}

func (s *store) ReplaceContent(location, name string, src io.Reader) error {
	path, err := s.resolvePath(location, name)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("open file %s for rewrite: %w", name, err)
	}

	_, err = io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("rewrite file %s: %w", name, err)
	}
	return nil
}

// resolveDir verifies that dir sits under the storage root.
func (s *store) resolveDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve location: %w", err)
	}
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return abs, nil
}

func (s *store) resolvePath(location, name string) (string, error) {
	dir, err := s.resolveDir(location)
	if err != nil {
		return "", err
	}
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func validateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return ErrInvalidPath
	}
	return nil
}

// countingReader counts plaintext bytes as they are consumed, before any
// encryption is applied.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// contextReader fails reads once ctx is cancelled, so an abandoned upload
// stops writing and takes the normal cleanup path.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
