// Package cache provides a size-accounted least-recently-used store.
//
// Unlike a count-bounded LRU, every entry carries an explicit byte size and
// the store maintains sum(sizes) <= maxSize after every mutation, evicting
// from the least-recently-used end as needed. A release callback gives the
// owner a deterministic hook for freeing backing resources on eviction.
package cache

import (
	log "github.com/sirupsen/logrus"
)

// Store is a size-bounded LRU cache. It is not safe for concurrent use;
// the owner is expected to serialize access.
type Store[K comparable, V any] struct {
	maxSize   int64
	totalSize int64
	entries   map[K]*entry[K, V]

	// first is the most recently used entry, last the least recently used.
	first, last *entry[K, V]

	// release is invoked for every value leaving the store (eviction,
	// Remove, Clear). May be nil.
	release func(K, V)
}

type entry[K comparable, V any] struct {
	prev, next *entry[K, V]
	key        K
	value      V
	size       int64
}

// Stats is a point-in-time snapshot of store occupancy.
type Stats struct {
	Count       int
	TotalSize   int64
	MaxSize     int64
	Utilization float64
}

// New creates a store bounded to maxSize bytes. release, if non-nil, is
// called for every evicted or removed value.
func New[K comparable, V any](maxSize int64, release func(K, V)) *Store[K, V] {
	if maxSize < 0 {
		maxSize = 0
	}
	return &Store[K, V]{
		maxSize: maxSize,
		entries: make(map[K]*entry[K, V]),
		release: release,
	}
}

// Get returns the value stored under key and marks it most recently used.
func (s *Store[K, V]) Get(key K) (V, bool) {
	ent, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	s.moveToFront(ent)
	return ent.value, true
}

// Peek returns the value without touching the recency order.
func (s *Store[K, V]) Peek(key K) (V, bool) {
	ent, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return ent.value, true
}

// Contains reports whether key is present, without touching recency order.
func (s *Store[K, V]) Contains(key K) bool {
	_, ok := s.entries[key]
	return ok
}

// Set stores value under key, accounting size bytes against the budget.
// An existing entry is updated in place and promoted. Entries are evicted
// from the least-recently-used end until the new value fits. A value larger
// than the whole budget is rejected and Set returns false; the release
// callback is not called for it since the store never owned it.
func (s *Store[K, V]) Set(key K, value V, size int64) bool {
	if size < 0 {
		size = 0
	}
	if size > s.maxSize {
		return false
	}

	// An in-place update is neither an eviction nor a removal, so the old
	// value is not passed to the release callback; it simply drops out of
	// the store's ownership.
	if ent, ok := s.entries[key]; ok {
		s.totalSize += size - ent.size
		ent.value = value
		ent.size = size
		s.moveToFront(ent)
		s.evictOverflow()
		return true
	}

	for s.totalSize+size > s.maxSize && s.last != nil {
		s.evictLast()
	}

	ent := &entry[K, V]{key: key, value: value, size: size}
	s.entries[key] = ent
	s.pushFront(ent)
	s.totalSize += size
	return true
}

// Remove drops the entry for key, invoking the release callback.
func (s *Store[K, V]) Remove(key K) bool {
	ent, ok := s.entries[key]
	if !ok {
		return false
	}

	s.unlink(ent)
	delete(s.entries, key)
	s.totalSize -= ent.size
	s.callRelease(ent.key, ent.value)
	return true
}

// Clear removes every entry, releasing each one.
func (s *Store[K, V]) Clear() {
	for s.last != nil {
		s.evictLast()
	}
}

// Len returns the number of entries currently stored.
func (s *Store[K, V]) Len() int {
	return len(s.entries)
}

// TotalSize returns the summed size of all stored entries.
func (s *Store[K, V]) TotalSize() int64 {
	return s.totalSize
}

// MaxSize returns the configured budget.
func (s *Store[K, V]) MaxSize() int64 {
	return s.maxSize
}

// Stats returns a snapshot of current occupancy.
func (s *Store[K, V]) Stats() Stats {
	util := 0.0
	if s.maxSize > 0 {
		util = float64(s.totalSize) / float64(s.maxSize)
	}
	return Stats{
		Count:       len(s.entries),
		TotalSize:   s.totalSize,
		MaxSize:     s.maxSize,
		Utilization: util,
	}
}

// Keys returns the stored keys ordered most to least recently used.
func (s *Store[K, V]) Keys() []K {
	keys := make([]K, 0, len(s.entries))
	for ent := s.first; ent != nil; ent = ent.next {
		keys = append(keys, ent.key)
	}
	return keys
}

func (s *Store[K, V]) evictOverflow() {
	for s.totalSize > s.maxSize && s.last != nil {
		s.evictLast()
	}
}

func (s *Store[K, V]) evictLast() {
	ent := s.last
	s.unlink(ent)
	delete(s.entries, ent.key)
	s.totalSize -= ent.size
	s.callRelease(ent.key, ent.value)
}

// callRelease shields bookkeeping from a misbehaving callback: a panic is
// logged and swallowed so size accounting never ends up corrupted.
func (s *Store[K, V]) callRelease(key K, value V) {
	if s.release == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.WithField("key", key).Warnf("cache: release callback panicked: %v", r)
		}
	}()
	s.release(key, value)
}

func (s *Store[K, V]) pushFront(ent *entry[K, V]) {
	ent.prev = nil
	ent.next = s.first
	if s.first != nil {
		s.first.prev = ent
	}
	s.first = ent
	if s.last == nil {
		s.last = ent
	}
}

func (s *Store[K, V]) unlink(ent *entry[K, V]) {
	if ent.prev != nil {
		ent.prev.next = ent.next
	} else {
		s.first = ent.next
	}
	if ent.next != nil {
		ent.next.prev = ent.prev
	} else {
		s.last = ent.prev
	}
	ent.prev = nil
	ent.next = nil
}

func (s *Store[K, V]) moveToFront(ent *entry[K, V]) {
	if ent == s.first {
		return
	}
	s.unlink(ent)
	s.pushFront(ent)
}
