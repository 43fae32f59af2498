// Package sha256 derives stable object names from page URLs.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

const digestLen = sha256.Size * 2

// Hasher names archived pages by the SHA-256 of their URL.
type Hasher struct{}

// New returns a Hasher.
func New() *Hasher {
	return &Hasher{}
}

// Sum returns the lowercase hex SHA-256 of data.
func (Hasher) Sum(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}

// Short returns the first n hex characters of the digest of s, or the whole
// digest when n is out of range.
func (h Hasher) Short(s string, n int) string {
	full := h.Sum([]byte(s))
	if n > 0 && n < digestLen {
		return full[:n]
	}
	return full
}
