package token

import (
	"crypto/rand"
)

// Alphabet is the symbol set of generated identifiers.
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// DefaultLength is the default identifier length in characters.
const DefaultLength = 32

// maxByte is the largest multiple of len(Alphabet) that fits in a byte.
// Bytes at or above it are rejected to keep the distribution uniform.
const maxByte = 256 - 256%len(Alphabet)

// Generate generates a cryptographically secure identifier of DefaultLength.
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength generates an identifier with the specified length.
func GenerateWithLength(length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= maxByte {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
