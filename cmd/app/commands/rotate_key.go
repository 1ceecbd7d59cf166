package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	keysUsecase "github.com/finsec/keyguard/internal/keys/usecase"
)

// RunRotateKey supersedes the business's active key version with a fresh one.
// Existing envelopes keep decrypting through the deprecated versions.
func RunRotateKey(
	ctx context.Context,
	keyManager keysUsecase.KeyManager,
	logger *slog.Logger,
	w io.Writer,
	businessID string,
) error {
	logger.Info("rotating encryption key", slog.String("business_id", businessID))

	key, err := keyManager.RotateKey(ctx, businessID)
	if err != nil {
		return fmt.Errorf("failed to rotate key: %w", err)
	}

	fmt.Fprintf(w, "Key rotated\n")
	fmt.Fprintf(w, "  ID:         %s\n", key.ID)
	fmt.Fprintf(w, "  Business:   %s\n", key.BusinessID)
	fmt.Fprintf(w, "  Version:    %d\n", key.Version)
	fmt.Fprintf(w, "  Expires at: %s\n", key.ExpiresAt.Format("2006-01-02 15:04:05 MST"))

	return nil
}
