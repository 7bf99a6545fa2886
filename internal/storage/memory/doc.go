// Package memory provides in-memory document storage.
//
// It implements the service.Store capabilities on concurrent-safe sharded
// maps. Nothing survives a restart; the backend exists for tests and for
// throwaway single-process deployments (storage.driver: memory).
//
// Features:
//
//   - Exclusive create: leases and committed versions use SetIfAbsent
//   - Compare-and-delete: lease reclaim matches on the writer identity
//   - Version index: per-document set of committed numbers for scans
//
// Thread Safety:
//
// All operations are thread-safe through per-shard locking. Committed
// records are copied on the way in and out.
//
// @design DS-0102
package memory
