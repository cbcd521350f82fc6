package sessions

import (
	"crypto/rand"
	"encoding/base64"
)

// tokenBytes is 256 bits of entropy per token.
const tokenBytes = 32

// GenerateToken produces an opaque session token: random bytes from the
// system CSPRNG, URL-safe base64 without padding. A failure here means
// the entropy source is broken and the caller should treat it as fatal.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
