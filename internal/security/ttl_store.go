package security

import (
	"sync"
	"time"
)

type ttlEntry[T any] struct {
	value   T
	expires time.Time
}

// TTLStore keeps short-lived values such as MFA ceremony state in memory.
type TTLStore[T any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]ttlEntry[T]
}

// NewTTLStore creates a store whose entries expire after ttl.
func NewTTLStore[T any](ttl time.Duration) *TTLStore[T] {
	return &TTLStore[T]{ttl: ttl, now: time.Now, items: make(map[string]ttlEntry[T])}
}

// Set stores value under key with the default TTL.
func (s *TTLStore[T]) Set(key string, value T) {
	s.SetUntil(key, value, time.Time{})
}

// SetUntil stores value until expires; a zero time uses the default TTL.
func (s *TTLStore[T]) SetUntil(key string, value T, expires time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expires.IsZero() {
		expires = s.now().Add(s.ttl)
	}
	s.items[key] = ttlEntry[T]{value: value, expires: expires}
}

// Get returns the value for key if present and not expired.
func (s *TTLStore[T]) Get(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	if s.now().After(entry.expires) {
		delete(s.items, key)
		var zero T
		return zero, false
	}
	return entry.value, true
}

// Delete removes key.
func (s *TTLStore[T]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}
