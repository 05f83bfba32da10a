// Package token issues opaque single-use secrets. Only the SHA-256 digest is
// persisted; the raw value travels to the user and back.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Generate returns a URL-safe random token of size bytes and its digest.
func Generate(size int) (raw, digest string, err error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("read random token: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(b)
	return raw, Digest(raw), nil
}

// Digest is the stored form of a raw token.
func Digest(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
