package infrastructure

import (
	"sync"
	"time"
)

type kvEntry struct {
	value     any
	expiresAt time.Time
}

// KVStore is a process-wide TTL key-value store, one shared instance per
// process with explicit lifecycle (construct at startup, Clear at shutdown).
// Expired entries are dropped lazily on Get.
type KVStore struct {
	data  map[string]kvEntry
	mutex sync.RWMutex
}

func NewKVStore() *KVStore {
	return &KVStore{data: make(map[string]kvEntry)}
}

func (s *KVStore) Get(key string) (any, bool) {
	s.mutex.RLock()
	entry, ok := s.data[key]
	s.mutex.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		s.mutex.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if current, still := s.data[key]; still && time.Now().After(current.expiresAt) {
			delete(s.data, key)
		}
		s.mutex.Unlock()
		return nil, false
	}
	return entry.value, true
}

func (s *KVStore) Set(key string, value any, ttl time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.data[key] = kvEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

func (s *KVStore) Delete(key string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.data, key)
}

func (s *KVStore) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.data = make(map[string]kvEntry)
}
