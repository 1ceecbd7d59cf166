// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/finsec/keyguard/cmd/app/commands"
	"github.com/finsec/keyguard/internal/app"
	"github.com/finsec/keyguard/internal/config"
	keysUsecase "github.com/finsec/keyguard/internal/keys/usecase"
)

const version = "1.0.0"

// withKeyManager loads configuration, builds the container, and runs fn with
// the key manager, shutting the container down afterwards.
func withKeyManager(
	ctx context.Context,
	fn func(ctx context.Context, keyManager keysUsecase.KeyManager, logger *slog.Logger) error,
) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer func() {
		if err := container.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown container", slog.Any("error", err))
		}
	}()

	keyManager, err := container.KeyManager()
	if err != nil {
		return err
	}

	return fn(ctx, keyManager, logger)
}

func main() {
	cmd := &cli.Command{
		Name:    "keyguard",
		Usage:   "Envelope encryption and key lifecycle service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the API and metrics servers",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "create-key",
				Usage: "Create version 1 of a business's encryption key chain",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "business-id",
						Aliases:  []string{"b"},
						Required: true,
						Usage:    "Business (tenant) identifier",
					},
					&cli.StringFlag{
						Name:    "algorithm",
						Aliases: []string{"alg"},
						Value:   "aes-256-gcm",
						Usage:   "Encryption algorithm (aes-256-gcm or chacha20-poly1305)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withKeyManager(ctx, func(ctx context.Context, km keysUsecase.KeyManager, logger *slog.Logger) error {
						return commands.RunCreateKey(ctx, km, logger, os.Stdout, cmd.String("business-id"), cmd.String("algorithm"))
					})
				},
			},
			{
				Name:  "rotate-key",
				Usage: "Rotate a business's active key version",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "business-id",
						Aliases:  []string{"b"},
						Required: true,
						Usage:    "Business (tenant) identifier",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withKeyManager(ctx, func(ctx context.Context, km keysUsecase.KeyManager, logger *slog.Logger) error {
						return commands.RunRotateKey(ctx, km, logger, os.Stdout, cmd.String("business-id"))
					})
				},
			},
			{
				Name:  "revoke-key",
				Usage: "Permanently revoke every version of a business's key chain",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "business-id",
						Aliases:  []string{"b"},
						Required: true,
						Usage:    "Business (tenant) identifier",
					},
					&cli.StringFlag{
						Name:     "reason",
						Aliases:  []string{"r"},
						Required: true,
						Usage:    "Reason recorded on every revoked version",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withKeyManager(ctx, func(ctx context.Context, km keysUsecase.KeyManager, logger *slog.Logger) error {
						return commands.RunRevokeKey(ctx, km, logger, os.Stdout, cmd.String("business-id"), cmd.String("reason"))
					})
				},
			},
			{
				Name:  "list-keys",
				Usage: "List every key version in the registry",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withKeyManager(ctx, func(ctx context.Context, km keysUsecase.KeyManager, _ *slog.Logger) error {
						return commands.RunListKeys(ctx, km, os.Stdout)
					})
				},
			},
			{
				Name:  "check-rotation",
				Usage: "Rotate expired keys (one business, or sweep all)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "business-id",
						Aliases: []string{"b"},
						Usage:   "Business to check; omit to sweep every business",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withKeyManager(ctx, func(ctx context.Context, km keysUsecase.KeyManager, logger *slog.Logger) error {
						return commands.RunCheckRotation(ctx, km, logger, os.Stdout, cmd.String("business-id"))
					})
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
