// Package cipherio provides symmetric authenticated encryption for byte
// streams and short names. Streams use AES-CTR with a per-stream random IV
// written as a length-prefixed header; names use AES-GCM encoded as
// URL-safe base64 so the result is valid as a filename or query value.
package cipherio

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// ChunkSize is the unit in which stream data is processed. It is a
// multiple of the AES block size so CTR keystream alignment is preserved
// across chunk boundaries.
const ChunkSize = 32 * 1024

// Cipher performs streaming encryption and decryption with a fixed key.
type Cipher struct {
	block cipher.Block
}

// New creates a Cipher from the given key. The key length selects the AES
// variant: 16, 24, or 32 bytes for AES-128, AES-192, or AES-256.
func New(key []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return &Cipher{block: block}, nil
}

// Encrypt reads plaintext from src and writes an IV header followed by the
// CTR-encrypted stream to dst. Data is processed in ChunkSize units; the
// whole stream is never held in memory. On error, partially written output
// is the caller's responsibility to discard.
func (c *Cipher) Encrypt(dst io.Writer, src io.Reader) error {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return fmt.Errorf("generate iv: %w", err)
	}

	if _, err := dst.Write([]byte{byte(len(iv))}); err != nil {
		return fmt.Errorf("write iv header: %w", err)
	}
	if _, err := dst.Write(iv); err != nil {
		return fmt.Errorf("write iv: %w", err)
	}

	return c.stream(dst, src, iv)
}

// Decrypt reads the IV header written by Encrypt from src and streams the
// decrypted content to dst.
func (c *Cipher) Decrypt(dst io.Writer, src io.Reader) error {
	header := make([]byte, 1)
	if _, err := io.ReadFull(src, header); err != nil {
		return fmt.Errorf("read iv header: %w", err)
	}

	size := int(header[0])
	if size != aes.BlockSize {
		return fmt.Errorf("invalid iv length %d", size)
	}

	iv := make([]byte, size)
	if _, err := io.ReadFull(src, iv); err != nil {
		return fmt.Errorf("read iv: %w", err)
	}

	return c.stream(dst, src, iv)
}

// stream applies the CTR keystream to src in bounded chunks. CTR is
// symmetric, so the same path serves both directions.
func (c *Cipher) stream(dst io.Writer, src io.Reader, iv []byte) error {
	ctr := cipher.NewCTR(c.block, iv)
	buf := make([]byte, ChunkSize)

	for {
		n, err := src.Read(buf)
		if n > 0 {
			ctr.XORKeyStream(buf[:n], buf[:n])
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write cipher stream: %w", werr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read cipher stream: %w", err)
		}
	}
}
