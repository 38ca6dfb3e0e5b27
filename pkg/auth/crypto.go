package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
)

// GenerateToken generates a URL-safe random string from n random bytes.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewSecurityStamp generates a fresh security stamp. Rotating the stamp
// invalidates every token issued against the previous value.
func NewSecurityStamp() (string, error) {
	return GenerateToken(16)
}

// constantTimeCompare compares two byte slices in constant time.
func constantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
