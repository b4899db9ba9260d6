package encryption

import (
	"fmt"

	"filesentry/internal/config"
)

// NewCipherFromConfig creates a Cipher based on the configuration type.
func NewCipherFromConfig(cfg config.EncryptionConfig) (Cipher, error) {
	switch cfg.Type {
	case "aesgcm", "":
		return NewAESGCMCipher(cfg.Secret)
	case "age":
		return NewAgeCipher(cfg.Secret)
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
