// Package domain defines the core domain models for data-scribbler.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - DocumentID: 32-char capability identifiers and their pairing
//   - Action / VersionRecord: the tagged edit action and its committed form
//   - StatusRecord: the immutable edit/read-only linkage
//   - Lease: ownership metadata for an in-flight append
//   - Errors: Domain-specific error definitions
//
// @req RQ-0101
// @design DS-0101
package domain
