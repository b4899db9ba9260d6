package encryption

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
)

// ageWorkFactor is the scrypt cost (log2 N) for the passphrase recipient.
// Lower than age's default: the cache seals one blob per changed file and
// the default cost would dominate scan time.
const ageWorkFactor = 15

// AgeCipher implements Cipher with age's scrypt passphrase encryption.
// Each sealed blob carries its own random salt and is authenticated by the
// age format, so tampering fails on Open.
type AgeCipher struct {
	secret string
}

var _ Cipher = (*AgeCipher)(nil)

func NewAgeCipher(secret string) (*AgeCipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption secret must not be empty")
	}
	return &AgeCipher{secret: secret}, nil
}

func (c *AgeCipher) Seal(plaintext []byte) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(c.secret)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(ageWorkFactor)

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("encrypting data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}

	return buf.Bytes(), nil
}

func (c *AgeCipher) Open(ciphertext []byte) ([]byte, error) {
	identity, err := age.NewScryptIdentity(c.secret)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting data: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted data: %w", err)
	}
	return plaintext, nil
}
