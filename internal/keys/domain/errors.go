package domain

import (
	"fmt"

	"github.com/finsec/keyguard/internal/errors"
)

var (
	// ErrKeyNotFound indicates that no key exists for the given id, business,
	// or version.
	ErrKeyNotFound = fmt.Errorf("%w: encryption key not found", errors.ErrNotFound)

	// ErrKeyAlreadyExists indicates an attempt to create a key for a business
	// that already has one.
	ErrKeyAlreadyExists = fmt.Errorf("%w: business already has an encryption key", errors.ErrConflict)

	// ErrInvalidStateTransition indicates a lifecycle operation that the status
	// state machine forbids.
	ErrInvalidStateTransition = fmt.Errorf("%w: invalid key state transition", errors.ErrInvalidState)

	// ErrKeyRevoked indicates an operation against a revoked key.
	ErrKeyRevoked = fmt.Errorf("%w: key is revoked", errors.ErrInvalidState)
)
