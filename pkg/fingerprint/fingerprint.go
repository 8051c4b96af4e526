// Package fingerprint produces the public identifiers printed into certified
// documents: the typable verification code, the human-comparable document
// fingerprint and the artifact content hash.
package fingerprint

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// CodeLength is the hex length of a public verification code.
const CodeLength = 16

// NewVerificationCode returns a cryptographically random 16-hex-char code.
func NewVerificationCode() (string, error) {
	buf := make([]byte, CodeLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidCode reports whether s has the shape of a verification code: exactly
// CodeLength lowercase hex characters.
func ValidCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Doc derives the printed fingerprint for a signature event. It is a stable
// per-signature identifier for human cross-checking, not an integrity hash of
// the file bytes; integrity verification uses ContentHash of the final
// artifact instead.
func Doc(requestID, signerID string) string {
	sum := sha256.Sum256([]byte(requestID + ":" + signerID))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// DocDisplay truncates the printed fingerprint for the certification footer.
func DocDisplay(requestID, signerID string) string {
	return Doc(requestID, signerID)[:20]
}

// ContentHash is the true integrity digest of serialized artifact bytes,
// stored for verify-by-upload.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NewAccessToken returns an opaque per-signer signing-URL token.
func NewAccessToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
