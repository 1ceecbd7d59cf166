package commands

import (
	"context"
	"fmt"
	"io"

	keysUsecase "github.com/finsec/keyguard/internal/keys/usecase"
)

// RunListKeys prints every key version in the registry.
func RunListKeys(ctx context.Context, keyManager keysUsecase.KeyManager, w io.Writer) error {
	keys, err := keyManager.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}

	if len(keys) == 0 {
		fmt.Fprintln(w, "No keys found")
		return nil
	}

	fmt.Fprintf(w, "%-38s %-20s %-8s %-18s %-10s\n", "ID", "BUSINESS", "VERSION", "ALGORITHM", "STATUS")
	for _, key := range keys {
		fmt.Fprintf(w, "%-38s %-20s %-8d %-18s %-10s\n",
			key.ID, key.BusinessID, key.Version, key.Algorithm, key.Status)
	}

	return nil
}
