package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	keysUsecase "github.com/finsec/keyguard/internal/keys/usecase"
)

// RunCheckRotation rotates expired keys. With a business id it checks and
// rotates that one chain; without, it sweeps every business in the registry.
// Intended to run from cron alongside the server.
func RunCheckRotation(
	ctx context.Context,
	keyManager keysUsecase.KeyManager,
	logger *slog.Logger,
	w io.Writer,
	businessID string,
) error {
	if businessID != "" {
		rotated, err := keyManager.CheckAndRotateKey(ctx, businessID)
		if err != nil {
			return fmt.Errorf("failed to check rotation: %w", err)
		}
		if rotated {
			fmt.Fprintf(w, "Key for %s rotated\n", businessID)
		} else {
			fmt.Fprintf(w, "Key for %s does not need rotation\n", businessID)
		}
		return nil
	}

	rotated, err := keyManager.CheckAndRotateBusinessKeys(ctx)
	if err != nil {
		logger.Error("rotation sweep finished with errors", slog.Any("error", err))
		return fmt.Errorf("rotation sweep: %w", err)
	}

	fmt.Fprintf(w, "Rotation sweep complete: %d key(s) rotated\n", rotated)
	return nil
}
