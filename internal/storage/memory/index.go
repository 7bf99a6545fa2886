package memory

import (
	"sync"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
	"github.com/jeff-tyrrill/data-scribbler/pkg/cmap"
)

// VersionSet is a concurrent-safe set of committed version numbers.
type VersionSet struct {
	mu    sync.RWMutex
	items map[int64]struct{}
}

// NewVersionSet creates a new version set.
func NewVersionSet() *VersionSet {
	return &VersionSet{
		items: make(map[int64]struct{}),
	}
}

// Add adds a version number to the set.
func (s *VersionSet) Add(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[n] = struct{}{}
}

// Contains checks if a version number is in the set.
func (s *VersionSet) Contains(n int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[n]
	return ok
}

// Len returns the number of items in the set.
func (s *VersionSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy of all version numbers, unordered.
func (s *VersionSet) Items() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]int64, 0, len(s.items))
	for n := range s.items {
		items = append(items, n)
	}
	return items
}

// DocumentIndex maps a document id to its committed version numbers.
//
// Records themselves live in the store's record map; the index only
// answers "which numbers exist" without scanning every record.
type DocumentIndex struct {
	index *cmap.Map[domain.DocumentID, *VersionSet]
}

// NewDocumentIndex creates a new document index.
func NewDocumentIndex() *DocumentIndex {
	return &DocumentIndex{
		index: cmap.New[domain.DocumentID, *VersionSet](),
	}
}

// Add records that version n of id is committed.
func (i *DocumentIndex) Add(id domain.DocumentID, n int64) {
	set, _ := i.index.GetOrSet(id, NewVersionSet())
	set.Add(n)
}

// Get returns the committed version numbers of id.
func (i *DocumentIndex) Get(id domain.DocumentID) []int64 {
	set, ok := i.index.Get(id)
	if !ok {
		return nil
	}
	return set.Items()
}

// Count returns the number of committed versions of id.
func (i *DocumentIndex) Count(id domain.DocumentID) int {
	set, ok := i.index.Get(id)
	if !ok {
		return 0
	}
	return set.Len()
}
