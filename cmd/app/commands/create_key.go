package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	keysUsecase "github.com/finsec/keyguard/internal/keys/usecase"
)

// RunCreateKey provisions version 1 of a business's key chain and prints the
// new key's public metadata.
func RunCreateKey(
	ctx context.Context,
	keyManager keysUsecase.KeyManager,
	logger *slog.Logger,
	w io.Writer,
	businessID string,
	algorithmStr string,
) error {
	algorithm, err := parseAlgorithm(algorithmStr)
	if err != nil {
		return err
	}

	logger.Info("creating encryption key",
		slog.String("business_id", businessID),
		slog.String("algorithm", string(algorithm)),
	)

	key, err := keyManager.CreateKey(ctx, businessID, algorithm)
	if err != nil {
		return fmt.Errorf("failed to create key: %w", err)
	}

	fmt.Fprintf(w, "Key created\n")
	fmt.Fprintf(w, "  ID:         %s\n", key.ID)
	fmt.Fprintf(w, "  Business:   %s\n", key.BusinessID)
	fmt.Fprintf(w, "  Version:    %d\n", key.Version)
	fmt.Fprintf(w, "  Algorithm:  %s\n", key.Algorithm)
	fmt.Fprintf(w, "  Expires at: %s\n", key.ExpiresAt.Format("2006-01-02 15:04:05 MST"))

	return nil
}
