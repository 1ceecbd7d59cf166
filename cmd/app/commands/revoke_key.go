package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	keysUsecase "github.com/finsec/keyguard/internal/keys/usecase"
)

// RunRevokeKey revokes every version of a business's key chain. Revocation is
// permanent: data encrypted under the chain becomes unrecoverable through the
// service.
func RunRevokeKey(
	ctx context.Context,
	keyManager keysUsecase.KeyManager,
	logger *slog.Logger,
	w io.Writer,
	businessID string,
	reason string,
) error {
	if reason == "" {
		return fmt.Errorf("a revocation reason is required")
	}

	logger.Warn("revoking encryption key chain",
		slog.String("business_id", businessID),
		slog.String("reason", reason),
	)

	if err := keyManager.RevokeKey(ctx, businessID, reason); err != nil {
		return fmt.Errorf("failed to revoke key: %w", err)
	}

	fmt.Fprintf(w, "All key versions for %s revoked: %s\n", businessID, reason)
	return nil
}
