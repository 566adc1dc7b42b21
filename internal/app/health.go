package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/storefront/internal/cli"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Second, "Storage ping timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	kv, err := openStorage(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer kv.Close()

	if err := kv.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("health check failed")
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}

	logger.Info().
		Str("storage", cfg.StorageBackend()).
		Dur("timeout", *timeout).
		Msg("storage health check passed")
	fmt.Fprintf(stdout, "ok: %s storage reachable\n", cfg.StorageBackend())
	if cfg.TranslationConfigured() {
		fmt.Fprintf(stdout, "ok: translation provider %s configured\n", cfg.TranslationProvider)
	} else {
		fmt.Fprintln(stdout, "warn: no translation credential, text passes through untranslated")
	}
	return 0
}
