// Package cmap provides a concurrent map for the in-memory storage backend.
//
// The map is sharded by key hash with one RWMutex per shard. Besides the
// plain Get/Set/Delete it offers the conditional primitives the backend
// builds its atomicity on:
//
//   - SetIfAbsent: exclusive create (lease acquire, version publish)
//   - DeleteIf: compare-and-delete (lease reclaim by writer identity)
//   - Pop: take-and-remove (staged payload hand-off)
//
// Usage:
//
//	m := cmap.New[slot, domain.Lease]()
//	if !m.SetIfAbsent(k, lease) {
//		// somebody else holds the slot
//	}
//
// All operations are thread-safe. A single conditional operation is atomic;
// sequences of operations are not.
package cmap
