package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// keySalt is the fixed derivation context for the cache key. The per-message
// randomness comes from the nonce, not the salt.
var keySalt = []byte("filesentry/content-cache/v1")

// AESGCMCipher implements Cipher with AES-256-GCM. The key is derived once
// from the application-wide secret via argon2id; each Seal call uses a fresh
// random nonce, prepended to the ciphertext.
type AESGCMCipher struct {
	aead cipher.AEAD
}

var _ Cipher = (*AESGCMCipher)(nil)

// NewAESGCMCipher derives a 256-bit key from secret and prepares the AEAD.
func NewAESGCMCipher(secret string) (*AESGCMCipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption secret must not be empty")
	}

	key := argon2.IDKey([]byte(secret), keySalt, 1, 64*1024, 4, 32)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// Seal encrypts plaintext as nonce || ciphertext+tag.
func (c *AESGCMCipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open authenticates and decrypts data produced by Seal.
// An authentication-tag mismatch is tamper detection and returns an error.
func (c *AESGCMCipher) Open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < c.aead.NonceSize() {
		return nil, fmt.Errorf("ciphertext shorter than nonce")
	}
	nonce, sealed := ciphertext[:c.aead.NonceSize()], ciphertext[c.aead.NonceSize():]

	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("authenticating ciphertext: %w", err)
	}
	return plaintext, nil
}
