// Package cache implements the encrypted, compressed, TTL-bound content
// cache used to reconstruct diffs across scan runs. Entries are keyed by
// (file path, checksum) and stored encrypt-then-compress: encryption must
// happen before persistence since the store is the at-rest boundary, and
// compressing the high-entropy ciphertext afterwards is harmless.
//
// The cache is best-effort: every failure on the read path (expired entry,
// decompression error, authentication-tag mismatch, checksum mismatch) is
// treated as a miss, the offending entry is deleted, and no error escapes
// to the caller.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"filesentry/internal/compress"
	"filesentry/internal/encryption"
	"filesentry/internal/model"
	"filesentry/internal/scan"
)

// EntryStore is the persistence interface for cache entries.
// Implementations must apply row-level operations only; the cache is shared
// with the retention engine's expiry sweep.
type EntryStore interface {
	// GetCacheEntry returns the entry for (path, checksum), or nil.
	GetCacheEntry(path, checksum string) (*model.CacheEntry, error)

	// PutCacheEntry inserts a new entry.
	PutCacheEntry(entry *model.CacheEntry) error

	// RefreshCacheEntry updates the expiry of an existing entry.
	// Returns false if no entry exists for the key.
	RefreshCacheEntry(path, checksum string, expiresAt time.Time) (bool, error)

	// DeleteCacheEntry removes the entry for (path, checksum).
	DeleteCacheEntry(path, checksum string) error

	// DeleteExpiredCacheEntries removes entries expired as of now,
	// returning how many were deleted.
	DeleteExpiredCacheEntries(now time.Time) (int64, error)
}

// Cache composes the cipher and compressor stages over an EntryStore.
type Cache struct {
	store  EntryStore
	cipher encryption.Cipher
	comp   *compress.Gzip
	clock  scan.Clock
	logger scan.Logger
}

// New creates a content cache.
func New(store EntryStore, cipher encryption.Cipher, clock scan.Clock, logger scan.Logger) *Cache {
	return &Cache{
		store:  store,
		cipher: cipher,
		comp:   compress.NewGzip(),
		clock:  clock,
		logger: logger,
	}
}

// Store caches content under (path, checksum) for ttl. It refuses sensitive
// content outright. If an entry already exists for the key, only its expiry
// is refreshed; the blob is never rewritten. Returns whether the content is
// cached (freshly or already).
func (c *Cache) Store(path, checksum string, content []byte, ttl time.Duration, isSensitive bool) bool {
	if isSensitive {
		return false
	}

	expiresAt := c.clock.Now().Add(ttl)

	refreshed, err := c.store.RefreshCacheEntry(path, checksum, expiresAt)
	if err != nil {
		c.logger.Warn("cache refresh failed", "path", path, "error", err)
		return false
	}
	if refreshed {
		return true
	}

	sealed, err := c.cipher.Seal(content)
	if err != nil {
		c.logger.Warn("cache encryption failed", "path", path, "error", err)
		return false
	}
	blob, err := c.comp.Compress(sealed)
	if err != nil {
		c.logger.Warn("cache compression failed", "path", path, "error", err)
		return false
	}

	entry := &model.CacheEntry{
		FilePath:  path,
		Checksum:  checksum,
		Blob:      blob,
		ExpiresAt: expiresAt,
		CreatedAt: c.clock.Now(),
	}
	if err := c.store.PutCacheEntry(entry); err != nil {
		c.logger.Warn("cache write failed", "path", path, "error", err)
		return false
	}
	return true
}

// Get returns the cached content for (path, checksum), or (nil, false) on
// any miss. Expired, corrupt, tampered, or checksum-mismatching entries are
// deleted and reported as misses.
func (c *Cache) Get(path, checksum string) ([]byte, bool) {
	entry, err := c.store.GetCacheEntry(path, checksum)
	if err != nil {
		c.logger.Warn("cache read failed", "path", path, "error", err)
		return nil, false
	}
	if entry == nil {
		return nil, false
	}

	if !entry.ExpiresAt.After(c.clock.Now()) {
		c.evict(path, checksum, "expired")
		return nil, false
	}

	sealed, err := c.comp.Decompress(entry.Blob)
	if err != nil {
		c.evict(path, checksum, "decompression failed")
		return nil, false
	}

	content, err := c.cipher.Open(sealed)
	if err != nil {
		c.evict(path, checksum, "decryption failed")
		return nil, false
	}

	sum := sha256.Sum256(content)
	if hex.EncodeToString(sum[:]) != checksum {
		c.evict(path, checksum, "checksum mismatch")
		return nil, false
	}

	return content, true
}

// CleanupExpired deletes all entries whose expiry has passed.
// Intended to run on a periodic timer independent of scan execution.
func (c *Cache) CleanupExpired() (int64, error) {
	count, err := c.store.DeleteExpiredCacheEntries(c.clock.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		c.logger.Info("expired cache entries removed", "count", count)
	}
	return count, nil
}

func (c *Cache) evict(path, checksum, reason string) {
	c.logger.Debug("cache entry evicted", "path", path, "reason", reason)
	if err := c.store.DeleteCacheEntry(path, checksum); err != nil {
		c.logger.Warn("cache eviction failed", "path", path, "error", err)
	}
}
