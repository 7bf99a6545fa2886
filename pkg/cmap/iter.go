package cmap

// Range iterates over all key-value pairs until fn returns false.
// Locks are taken shard by shard, so the view is not a snapshot.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Keys returns all keys.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Count())
	m.Range(func(key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// GetOrSet returns the existing value for a key, or stores and returns value
// if absent. loaded reports whether the value was already present.
func (m *Map[K, V]) GetOrSet(key K, value V) (actual V, loaded bool) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[key]; ok {
		return existing, true
	}
	s.items[key] = value
	return value, false
}

// SetIfAbsent sets the value only if the key does not exist.
// Returns true if the value was set.
func (m *Map[K, V]) SetIfAbsent(key K, value V) bool {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; ok {
		return false
	}
	s.items[key] = value
	return true
}

// Pop removes a key and returns its value.
func (m *Map[K, V]) Pop(key K) (V, bool) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	val, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return val, ok
}

// DeleteIf removes key only if its current value satisfies match.
// Returns true if the entry was removed.
func (m *Map[K, V]) DeleteIf(key K, match func(current V) bool) bool {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[key]
	if !ok || !match(current) {
		return false
	}
	delete(s.items, key)
	return true
}
