package encryption

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"free-shipping-bar/internal/ports"

	"golang.org/x/crypto/chacha20poly1305"
)

var errShortCiphertext = errors.New("ciphertext too short")

// Service encrypts secrets with XChaCha20-Poly1305. Ciphertexts are
// base64(nonce || sealed box).
type Service struct {
	key []byte
}

// NewService creates an encryption service from a 32 byte key encoded as hex
// or standard base64.
func NewService(encodedKey string) (ports.EncryptionService, error) {
	key, err := decodeKey(encodedKey)
	if err != nil {
		return nil, err
	}
	return &Service{key: key}, nil
}

func decodeKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, errors.New("encryption key is required")
	}
	if key, err := hex.DecodeString(encoded); err == nil && len(key) == chacha20poly1305.KeySize {
		return key, nil
	}
	if key, err := base64.StdEncoding.DecodeString(encoded); err == nil && len(key) == chacha20poly1305.KeySize {
		return key, nil
	}
	return nil, fmt.Errorf("encryption key must be %d bytes encoded as hex or base64", chacha20poly1305.KeySize)
}

// Encrypt seals plaintext with a fresh random nonce
func (s *Service) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt
func (s *Service) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to init cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", errShortCiphertext
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plain), nil
}
