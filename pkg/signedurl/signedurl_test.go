package signedurl_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ashford-digital/docvault/pkg/cipherio"
	"github.com/ashford-digital/docvault/pkg/signedurl"
)

const basePath = "/api/documents/download"

func newCodec(t *testing.T, expiration time.Duration) *signedurl.Codec {
	t.Helper()

	c, err := cipherio.New([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("cipher init failed: %v", err)
	}
	return signedurl.New(c, []byte("hmac-test-key"), expiration)
}

func extract(t *testing.T, signed string) (token, signature string) {
	t.Helper()

	u, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("parsing generated url failed: %v", err)
	}
	return u.Query().Get("token"), u.Query().Get("signature")
}

func TestGenerateVerifyRoundTrip(t *testing.T) {
	codec := newCodec(t, time.Minute)

	signed, err := codec.Generate(basePath, "document_id=42")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.HasPrefix(signed, basePath+"?token=") {
		t.Errorf("url = %q, want %s?token= prefix", signed, basePath)
	}

	token, signature := extract(t, signed)
	data, ok := codec.Verify(basePath, token, signature)
	if !ok {
		t.Fatal("Verify rejected a freshly generated token")
	}
	if data != "document_id=42" {
		t.Errorf("data = %q, want document_id=42", data)
	}
}

func TestVerifyExpired(t *testing.T) {
	codec := newCodec(t, time.Minute)

	signed, err := codec.Generate(basePath, "group_id=7")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	token, signature := extract(t, signed)

	codec.WithClock(func() time.Time { return time.Now().Add(2 * time.Minute) })

	if _, ok := codec.Verify(basePath, token, signature); ok {
		t.Error("Verify accepted an expired token")
	}
}

func TestVerifyBadSignature(t *testing.T) {
	codec := newCodec(t, time.Minute)

	signed, _ := codec.Generate(basePath, "document_id=1")
	token, _ := extract(t, signed)

	if _, ok := codec.Verify(basePath, token, "deadbeef"); ok {
		t.Error("Verify accepted a forged signature")
	}
	if _, ok := codec.Verify(basePath, token, ""); ok {
		t.Error("Verify accepted an empty signature")
	}
}

func TestVerifyWrongPath(t *testing.T) {
	codec := newCodec(t, time.Minute)

	signed, _ := codec.Generate(basePath, "document_id=1")
	token, signature := extract(t, signed)

	if _, ok := codec.Verify("/api/other", token, signature); ok {
		t.Error("Verify accepted a signature bound to a different path")
	}
}

func TestVerifyMalformedToken(t *testing.T) {
	codec := newCodec(t, time.Minute)

	// Sign garbage tokens correctly so only payload validation can reject them.
	cases := []string{
		"not-a-token",
		"",
	}
	for _, token := range cases {
		signed, err := codec.Generate(basePath, "x")
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		_, signature := extract(t, signed)
		if _, ok := codec.Verify(basePath, token, signature); ok {
			t.Errorf("Verify accepted malformed token %q", token)
		}
	}
}

func TestVerifyPayloadShape(t *testing.T) {
	c, err := cipherio.New([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("cipher init failed: %v", err)
	}
	hmacKey := []byte("hmac-test-key")
	codec := signedurl.New(c, hmacKey, time.Minute)

	sign := func(token string) string {
		mac := hmac.New(sha256.New, hmacKey)
		mac.Write([]byte(basePath + "?token=" + token))
		return hex.EncodeToString(mac.Sum(nil))
	}

	tests := []struct {
		name    string
		payload string
	}{
		{"no expiry separator", "payload-without-expiry"},
		{"too many parts", "a:b:123"},
		{"empty data", ":9999999999"},
		{"non-numeric expiry", "data:soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := c.EncryptName(tt.payload)
			if err != nil {
				t.Fatalf("EncryptName failed: %v", err)
			}
			if _, ok := codec.Verify(basePath, token, sign(token)); ok {
				t.Errorf("Verify accepted payload %q", tt.payload)
			}
		})
	}
}
