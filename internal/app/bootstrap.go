package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"horse.fit/storefront/internal/cli"
	"horse.fit/storefront/internal/config"
	"horse.fit/storefront/internal/langdetect"
	"horse.fit/storefront/internal/logging"
	"horse.fit/storefront/internal/storage"
	"horse.fit/storefront/internal/translation"
)

var stdout io.Writer = os.Stdout

func loadConfig(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage.KV, error) {
	kv, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("backend", cfg.StorageBackend()).Msg("open cart storage failed")
		return nil, fmt.Errorf("failed to open cart storage: %w", err)
	}
	return kv, nil
}

// translationStack is the gateway plus the free-provider queue whose worker
// the caller must run.
type translationStack struct {
	Gateway *translation.Gateway
	Queue   *translation.Queue
}

func buildTranslation(cfg *config.Config, logger zerolog.Logger) translationStack {
	registry := translation.NewRegistryFromOptions(translation.RegistryOptions{
		DefaultProvider: cfg.TranslationProvider,
		APIKey:          cfg.TranslationAPIKey,
		Endpoint:        cfg.TranslationEndpoint,
		FreeEndpoint:    cfg.FreeTranslationEndpoint,
		RequestTimeout:  cfg.TranslationTimeout,
	})

	opts := translation.GatewayOptions{
		CacheSize:   cfg.TranslationCache,
		DefaultLang: cfg.DefaultDetectLanguage,
		Logger:      logger.With().Str("component", "translation").Logger(),
	}

	if primary, err := registry.Primary(); err == nil {
		opts.Primary = primary
		if detector, ok := primary.(translation.Detector); ok {
			opts.Detector = detector
		}
	} else if cfg.TranslationConfigured() {
		logger.Warn().Err(err).Msg("translation credential set but no primary provider resolved")
	} else {
		logger.Debug().Msg("no translation credential, live translation passes text through")
	}

	if cfg.LocalLanguageDetection {
		opts.LocalDetector = langdetect.New()
	}

	var queue *translation.Queue
	if free, err := registry.Free(); err == nil {
		limiter := translation.NewRateLimiter(cfg.FreeTranslationMinInterval, cfg.FreeTranslationCooldown, nil)
		queue = translation.NewQueue(free, limiter, opts.Logger, cfg.FreeTranslationQueueSize)
		opts.Queue = queue
	}

	return translationStack{
		Gateway: translation.NewGateway(opts),
		Queue:   queue,
	}
}

// startQueue runs the queue worker until ctx is done.
func (s translationStack) startQueue(ctx context.Context, logger zerolog.Logger) {
	if s.Queue == nil {
		return
	}
	go func() {
		if err := s.Queue.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("translation queue stopped with error")
		}
	}()
}

func printJSON(value any) error {
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeTable(headers []string, rows [][]string) error {
	writer := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(writer, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// textArgs joins positional arguments, or reads stdin when there are none.
func textArgs(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if stdin == nil {
		return "", nil
	}
	raw, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(raw), "\r\n"), nil
}
