// Package encryption provides authenticated byte-level ciphers for the
// content cache. Encryption happens before persistence: the cache store is
// the at-rest boundary.
package encryption

// Cipher is an authenticated bytes-to-bytes encryption stage.
// Open must fail (never return garbage) when the ciphertext was tampered
// with or sealed under a different secret.
type Cipher interface {
	// Seal encrypts plaintext with a fresh random nonce per call.
	Seal(plaintext []byte) ([]byte, error)

	// Open authenticates and decrypts ciphertext produced by Seal.
	Open(ciphertext []byte) ([]byte, error)
}
