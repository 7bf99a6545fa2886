package token

import (
	"crypto/sha256"
	"encoding/hex"
)

// FingerprintLength is the number of hex characters in a fingerprint.
const FingerprintLength = 12

// Hash computes the hex-encoded SHA-256 hash of s.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Fingerprint returns a short stable tag for s that does not reveal s.
func Fingerprint(s string) string {
	return Hash(s)[:FingerprintLength]
}
