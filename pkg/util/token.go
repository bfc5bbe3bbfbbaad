package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// TokenLength is the byte length of a confirmation token
const TokenLength = 32

// GenerateToken creates a cryptographically secure random token.
// The plaintext is only ever embedded in the emailed link; storage and
// lookup go through HashToken.
func GenerateToken() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// HashToken returns the SHA-256 hex digest of a plaintext token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
