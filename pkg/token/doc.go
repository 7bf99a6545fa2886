// Package token provides identifier generation and fingerprinting.
//
// Document identifiers are capabilities: whoever knows an edit id can write
// to the document. They are therefore drawn from crypto/rand.
//
// Identifier Format:
//
//   - Alphabet: a-z and 0-9 (36 symbols)
//   - Length: 32 characters (~165 bits)
//   - Uniform: rejection sampling, no modulo bias
//
// Fingerprints are short SHA-256 prefixes used to correlate an id across
// log lines without writing the id itself.
package token
