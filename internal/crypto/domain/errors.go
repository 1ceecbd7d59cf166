package domain

import (
	"github.com/finsec/keyguard/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures. All errors are mapped to
// appropriate HTTP status codes by the error handling layer.
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	//
	// Supported algorithms: AESGCM (AES-256-GCM), ChaCha20 (ChaCha20-Poly1305).
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates the cryptographic key size is invalid.
	//
	// All keys (master keys and data keys) must be exactly 32 bytes (256 bits).
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrMalformedEnvelope indicates an envelope's ciphertext is missing the
	// wrapped-data-key delimiter or is otherwise structurally invalid. This means
	// the stored value was corrupted or produced by a different encoder.
	ErrMalformedEnvelope = errors.Wrap(errors.ErrInvalidInput, "malformed envelope")

	// ErrAuthenticationFailed indicates an AEAD tag mismatch during decryption.
	//
	// This covers any tampering of ciphertext, nonce, tag, or the wrapped data
	// key, as well as decryption under the wrong key. No partially-decrypted
	// bytes are ever returned. The specific cause is not disclosed to callers to
	// prevent oracle attacks.
	ErrAuthenticationFailed = errors.Wrap(errors.ErrInvalidInput, "authentication failed")

	// ErrNoBusinessKeyManager indicates business-scoped field encryption was
	// requested but no BusinessKeyManager is configured. This is a deployment
	// misconfiguration, fatal at startup rather than per-call.
	ErrNoBusinessKeyManager = errors.New("no business key manager configured")
)
