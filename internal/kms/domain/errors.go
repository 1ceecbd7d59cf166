package domain

import (
	"github.com/finsec/keyguard/internal/errors"
)

// KMS provider error definitions.
//
// Every provider implementation returns these for the corresponding contract
// violations so callers can branch on error kind without knowing the backend.
var (
	// ErrMasterKeyNotFound indicates an operation referenced an unknown master key.
	// Always fatal to the caller, never retried automatically.
	ErrMasterKeyNotFound = errors.Wrap(errors.ErrNotFound, "master key not found")

	// ErrKeyDisabled indicates the master key exists but is administratively
	// disabled. Fatal until an operator re-enables the key.
	ErrKeyDisabled = errors.Wrap(errors.ErrInvalidState, "master key is disabled")

	// ErrInvalidCiphertext indicates the wrapped payload is structurally invalid
	// (shorter than the nonce plus authentication tag).
	ErrInvalidCiphertext = errors.Wrap(errors.ErrInvalidInput, "invalid ciphertext")

	// ErrOperationNotSupported indicates the provider cannot perform the
	// requested management operation (e.g., provisioning keys on a backend where
	// master keys are created out-of-band).
	ErrOperationNotSupported = errors.Wrap(errors.ErrInvalidState, "operation not supported by kms provider")
)
