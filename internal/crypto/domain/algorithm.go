// Package domain defines the core cryptographic domain models for envelope encryption.
//
// Envelope encryption keeps master keys inside the KMS boundary: every payload is
// encrypted with a fresh data key, and only the wrapped data key travels with the
// ciphertext. The models here describe the envelope artifacts and the typed field
// values used for column-level encryption.
package domain

// Algorithm represents the cryptographic algorithm used for encryption.
//
// All supported algorithms provide Authenticated Encryption with Associated Data
// (AEAD), ensuring both confidentiality and authenticity of encrypted data. AEAD
// prevents both unauthorized reading and tampering with encrypted data.
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	//
	// This is the default and the only algorithm stamped into envelopes produced
	// by the encryption service.
	//
	// Key features:
	//   - 256-bit key size
	//   - 12-byte nonce (96 bits)
	//   - 16-byte authentication tag
	//   - Hardware acceleration on modern CPUs
	AESGCM Algorithm = "aes-256-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm.
	//
	// Available as an alternative AEAD for platforms without AES hardware
	// acceleration. Same 256-bit key, 12-byte nonce and 16-byte tag sizes.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// Sizes shared by both AEAD algorithms.
const (
	// KeySize is the symmetric key size in bytes (256 bits).
	KeySize = 32
	// NonceSize is the AEAD nonce size in bytes (96 bits).
	NonceSize = 12
	// TagSize is the AEAD authentication tag size in bytes (128 bits).
	TagSize = 16
)
