package domain

import "time"

// Lease is the in-progress marker of one append for one (document, version)
// slot. It is created exclusively, so at most one writer holds it at a time.
//
// A lease whose writer crashed is reclaimed once it is stale. Reclaim is a
// compare-and-delete on Writer, so a lease that changed hands after it was
// observed is never removed.
type Lease struct {
	Writer  string `json:"writer"`  // ULID of the appending writer
	Started int64  `json:"started"` // unix milliseconds
}

// StaleAt returns the instant the lease may be reclaimed.
func (l *Lease) StaleAt(staleAfter time.Duration) time.Time {
	return time.UnixMilli(l.Started).Add(staleAfter)
}

// IsStale reports whether now is at or past the stale instant.
func (l *Lease) IsStale(now time.Time, staleAfter time.Duration) bool {
	return !now.Before(l.StaleAt(staleAfter))
}
