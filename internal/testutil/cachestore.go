package testutil

import (
	"sync"
	"time"

	"filesentry/internal/model"
)

// MemEntryStore is an in-memory cache.EntryStore for tests.
type MemEntryStore struct {
	mu      sync.Mutex
	entries map[string]*model.CacheEntry
}

func NewMemEntryStore() *MemEntryStore {
	return &MemEntryStore{entries: make(map[string]*model.CacheEntry)}
}

func cacheKey(path, checksum string) string {
	return path + "\x00" + checksum
}

func (s *MemEntryStore) GetCacheEntry(path, checksum string) (*model.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[cacheKey(path, checksum)]
	if !ok {
		return nil, nil
	}
	cp := *e
	cp.Blob = append([]byte(nil), e.Blob...)
	return &cp, nil
}

func (s *MemEntryStore) PutCacheEntry(entry *model.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	cp.Blob = append([]byte(nil), entry.Blob...)
	s.entries[cacheKey(entry.FilePath, entry.Checksum)] = &cp
	return nil
}

func (s *MemEntryStore) RefreshCacheEntry(path, checksum string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[cacheKey(path, checksum)]
	if !ok {
		return false, nil
	}
	e.ExpiresAt = expiresAt
	return true, nil
}

func (s *MemEntryStore) DeleteCacheEntry(path, checksum string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, cacheKey(path, checksum))
	return nil
}

func (s *MemEntryStore) DeleteExpiredCacheEntries(now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, e := range s.entries {
		if !e.ExpiresAt.After(now) {
			delete(s.entries, k)
			count++
		}
	}
	return count, nil
}

// Len reports the number of stored entries.
func (s *MemEntryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Corrupt flips one byte in the stored blob for (path, checksum).
// Returns false if no such entry exists.
func (s *MemEntryStore) Corrupt(path, checksum string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[cacheKey(path, checksum)]
	if !ok || len(e.Blob) == 0 {
		return false
	}
	e.Blob[len(e.Blob)/2] ^= 0x01
	return true
}

// Expiry returns the stored expiry for (path, checksum).
func (s *MemEntryStore) Expiry(path, checksum string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[cacheKey(path, checksum)]
	if !ok {
		return time.Time{}, false
	}
	return e.ExpiresAt, true
}
