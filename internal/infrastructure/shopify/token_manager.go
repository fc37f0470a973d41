package shopify

import (
	"fmt"

	"free-shipping-bar/internal/ports"

	"github.com/rs/zerolog"
)

// TokenManager seals access tokens before they are persisted
type TokenManager struct {
	encryptionSvc ports.EncryptionService
	logger        zerolog.Logger
}

// NewTokenManager creates a new token manager
func NewTokenManager(encryptionSvc ports.EncryptionService, logger zerolog.Logger) *TokenManager {
	return &TokenManager{
		encryptionSvc: encryptionSvc,
		logger:        logger,
	}
}

// EncryptToken encrypts an access token before storage
func (tm *TokenManager) EncryptToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("token cannot be empty")
	}
	return tm.encryptionSvc.Encrypt(token)
}

// DecryptToken decrypts an access token after retrieval
func (tm *TokenManager) DecryptToken(encryptedToken string) (string, error) {
	if encryptedToken == "" {
		return "", fmt.Errorf("encrypted token cannot be empty")
	}
	token, err := tm.encryptionSvc.Decrypt(encryptedToken)
	if err != nil {
		tm.logger.Warn().Err(err).Msg("Failed to decrypt stored access token")
		return "", err
	}
	return token, nil
}
