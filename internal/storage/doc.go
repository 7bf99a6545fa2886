// Package storage provides the document storage backends.
//
// Every backend implements service.Store on top of two atomic primitives:
// exclusive create (leases, committed versions) and atomic replace (status
// and latest pointer). Three drivers are available:
//
//   - fs: sharded directory tree, one file per resource (default)
//   - badger: embedded LSM key-value store with conditional transactions
//   - memory: sharded in-process maps, for tests and throwaway instances
//
// The fs layout per document id is:
//
//	<root>/<id[0:2]>/<id[2:4]>/<id[4:]>/
//	    status.json        link between edit and read-only ids
//	    latest.json        highest committed version, or -1
//	    <n>.json           committed version record n
//	    temp-<n>.json      in-progress lease for slot n
//	    temp-<n>-<w>.json  record bytes staged by writer w
//
// @req RQ-0101
// @design DS-0102
package storage
