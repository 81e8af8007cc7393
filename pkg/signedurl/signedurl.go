// Package signedurl generates and verifies time-limited signed download
// URLs. The payload is encrypted into an opaque token; an HMAC signature
// over the full URL binds token and path together. Invalid or expired
// input is a normal negative outcome, not an error.
package signedurl

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ashford-digital/docvault/pkg/cipherio"
)

// Codec signs and verifies download URLs.
type Codec struct {
	cipher     *cipherio.Cipher
	hmacKey    []byte
	expiration time.Duration
	now        func() time.Time
}

// New creates a Codec. expiration bounds how long generated URLs stay valid.
func New(cipher *cipherio.Cipher, hmacKey []byte, expiration time.Duration) *Codec {
	return &Codec{
		cipher:     cipher,
		hmacKey:    hmacKey,
		expiration: expiration,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Generate builds a signed URL for data:
// {basePath}?token={encrypted "data:expiresAt"}&signature={hmac over url-so-far}.
func (c *Codec) Generate(basePath, data string) (string, error) {
	expiresAt := c.now().Add(c.expiration).Unix()

	token, err := c.cipher.EncryptName(fmt.Sprintf("%s:%d", data, expiresAt))
	if err != nil {
		return "", fmt.Errorf("encrypt token: %w", err)
	}

	url := fmt.Sprintf("%s?token=%s", basePath, token)
	return fmt.Sprintf("%s&signature=%s", url, c.sign(url)), nil
}

// Verify checks signature and expiration for a token received against
// basePath. It returns the embedded data and true while the token is
// valid. A bad signature, malformed token, or elapsed expiration yields
// ("", false) — never an error.
func (c *Codec) Verify(basePath, token, signature string) (string, bool) {
	url := fmt.Sprintf("%s?token=%s", basePath, token)
	if !hmac.Equal([]byte(c.sign(url)), []byte(signature)) {
		return "", false
	}

	payload, err := c.cipher.DecryptName(token)
	if err != nil {
		return "", false
	}

	parts := strings.Split(payload, ":")
	if len(parts) != 2 || parts[0] == "" {
		return "", false
	}
	data := parts[0]

	expiresAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", false
	}

	if c.now().Unix() > expiresAt {
		return "", false
	}

	return data, true
}

func (c *Codec) sign(url string) string {
	mac := hmac.New(sha256.New, c.hmacKey)
	mac.Write([]byte(url))
	return hex.EncodeToString(mac.Sum(nil))
}
