package testutil

import (
	"testing"

	"filesentry/internal/encryption"
)

// TestCipher returns an AES-GCM cipher with a fixed test secret.
func TestCipher(t *testing.T) encryption.Cipher {
	t.Helper()
	c, err := encryption.NewAESGCMCipher("testutil-secret")
	if err != nil {
		t.Fatalf("creating test cipher: %v", err)
	}
	return c
}
