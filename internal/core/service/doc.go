// Package service provides the version log and sync engine.
//
// Services contain the business logic and orchestrate operations on the
// domain models. Storage is reached only through the Store interface, so
// every service is a pure function of the backend state plus the clock.
//
// This package contains:
//
//   - VersionStore: append-only log with exactly-one-wins per version slot
//   - CheckpointPolicy: decides when a save must carry a full snapshot
//   - LatestIndex: recomputes the highest committed version from a scan
//   - SyncReader: bounded incremental and initial history reads
//   - DocumentRegistry: creates edit/read-only document pairs
//   - DocumentService: save and update orchestration
//
// Services hold no per-document state between calls and are safe for
// concurrent use.
//
// @req RQ-0102
// @design DS-0103
package service
