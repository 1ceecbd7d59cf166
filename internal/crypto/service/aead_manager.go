package service

import (
	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
)

// AEADManagerService creates AEAD cipher instances for the supported algorithms.
type AEADManagerService struct{}

// NewAEADManager creates a new AEAD manager.
func NewAEADManager() *AEADManagerService {
	return &AEADManagerService{}
}

// CreateCipher returns an AEAD for the given algorithm and 32-byte key.
func (am *AEADManagerService) CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	switch alg {
	case cryptoDomain.AESGCM:
		return NewAESGCM(key)
	case cryptoDomain.ChaCha20:
		return NewChaCha20Poly1305(key)
	default:
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
}
