package cache_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"filesentry/internal/cache"
	"filesentry/internal/scan"
	"filesentry/internal/testutil"
)

func digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func newCache(t *testing.T) (*cache.Cache, *testutil.MemEntryStore, *testutil.StubClock) {
	t.Helper()
	store := testutil.NewMemEntryStore()
	clock := testutil.FixedClock()
	c := cache.New(store, testutil.TestCipher(t), clock, scan.NewNopLogger())
	return c, store, clock
}

func TestCache_RoundTrip(t *testing.T) {
	c, _, _ := newCache(t)
	content := []byte("line one\nline two\n")
	sum := digest(content)

	if ok := c.Store("wp-config.php", sum, content, time.Hour, false); !ok {
		t.Fatal("Store() = false, want true")
	}

	got, ok := c.Get("wp-config.php", sum)
	if !ok {
		t.Fatal("Get() miss, want hit")
	}
	if !bytes.Equal(got, content) {
		t.Errorf("Get() = %q, want %q", got, content)
	}
}

func TestCache_RefusesSensitiveContent(t *testing.T) {
	c, store, _ := newCache(t)
	content := []byte("secret=hunter2")
	sum := digest(content)

	if ok := c.Store(".env", sum, content, time.Hour, true); ok {
		t.Error("Store() = true for sensitive content, want false")
	}
	if store.Len() != 0 {
		t.Errorf("store has %d entries, want 0", store.Len())
	}
	if _, ok := c.Get(".env", sum); ok {
		t.Error("Get() hit for refused content")
	}
}

func TestCache_DuplicateStoreRefreshesExpiryOnly(t *testing.T) {
	c, store, clock := newCache(t)
	content := []byte("stable")
	sum := digest(content)

	if ok := c.Store("a.txt", sum, content, time.Hour, false); !ok {
		t.Fatal("first Store() failed")
	}
	firstExpiry, _ := store.Expiry("a.txt", sum)

	clock.Advance(30 * time.Minute)
	if ok := c.Store("a.txt", sum, content, time.Hour, false); !ok {
		t.Fatal("second Store() failed")
	}

	secondExpiry, _ := store.Expiry("a.txt", sum)
	if !secondExpiry.After(firstExpiry) {
		t.Errorf("expiry not refreshed: %v then %v", firstExpiry, secondExpiry)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d entries, want 1", store.Len())
	}
}

func TestCache_ExpiredEntryIsMissAndDeleted(t *testing.T) {
	c, store, clock := newCache(t)
	content := []byte("short lived")
	sum := digest(content)

	c.Store("a.txt", sum, content, time.Minute, false)
	clock.Advance(2 * time.Minute)

	if _, ok := c.Get("a.txt", sum); ok {
		t.Error("Get() hit on expired entry")
	}
	if store.Len() != 0 {
		t.Errorf("expired entry not deleted, store has %d entries", store.Len())
	}
}

func TestCache_TamperedEntryIsMissAndDeleted(t *testing.T) {
	c, store, _ := newCache(t)
	content := []byte("authentic content")
	sum := digest(content)

	c.Store("a.txt", sum, content, time.Hour, false)
	if !store.Corrupt("a.txt", sum) {
		t.Fatal("no entry to corrupt")
	}

	got, ok := c.Get("a.txt", sum)
	if ok {
		t.Errorf("Get() returned %q from tampered entry", got)
	}
	if store.Len() != 0 {
		t.Errorf("tampered entry not deleted, store has %d entries", store.Len())
	}
}

func TestCache_ChecksumMismatchIsMiss(t *testing.T) {
	c, store, _ := newCache(t)
	content := []byte("actual content")

	// Store under a checksum that does not match the content.
	wrong := digest([]byte("different content"))
	c.Store("a.txt", wrong, content, time.Hour, false)

	if _, ok := c.Get("a.txt", wrong); ok {
		t.Error("Get() hit despite checksum mismatch")
	}
	if store.Len() != 0 {
		t.Errorf("mismatching entry not deleted, store has %d entries", store.Len())
	}
}

func TestCache_CleanupExpired(t *testing.T) {
	c, store, clock := newCache(t)

	c.Store("a.txt", digest([]byte("a")), []byte("a"), time.Minute, false)
	c.Store("b.txt", digest([]byte("b")), []byte("b"), time.Hour, false)

	clock.Advance(10 * time.Minute)

	count, err := c.CleanupExpired()
	if err != nil {
		t.Fatalf("CleanupExpired() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", count)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d entries, want 1", store.Len())
	}
}
