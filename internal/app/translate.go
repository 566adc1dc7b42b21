package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"horse.fit/storefront/internal/cli"
	"horse.fit/storefront/internal/translation"
)

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	to := fs.String("to", "", "Target language (one of de, en, fr, it, tr, ar)")
	from := fs.String("from", translation.AutoLang, "Source language or auto")
	queued := fs.Bool("queued", false, "Use the rate-limited free provider queue")
	batch := fs.Bool("batch", false, "Translate each argument as a separate text in one request")
	asJSON := fs.Bool("json", false, "Print results as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	targetLang := normalizeLanguageFlag(*to)
	if targetLang == "" || !translation.IsSupported(targetLang) {
		fmt.Fprintf(os.Stderr, "--to is required and must be one of %s\n", strings.Join(translation.SupportedLanguageCodes(), ", "))
		return 2
	}
	sourceLang := normalizeLanguageFlag(*from)
	if sourceLang == "" {
		sourceLang = translation.AutoLang
	}
	if *batch && *queued {
		fmt.Fprintln(os.Stderr, "--batch and --queued cannot be combined")
		return 2
	}

	var texts []string
	if *batch {
		texts = fs.Args()
		if len(texts) == 0 {
			fmt.Fprintln(os.Stderr, "translate --batch requires at least one argument")
			return 2
		}
	} else {
		text, err := readTextInput(fs.Args())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		texts = []string{text}
	}

	cfg, logger, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stack := buildTranslation(cfg, logger)
	if !*queued && !stack.Gateway.Configured() {
		fmt.Fprintln(os.Stderr, "Warning: TRANSLATION_API_KEY is not set, text is returned unchanged")
	}

	var results []string
	switch {
	case *batch:
		results = stack.Gateway.TranslateBatch(ctx, texts, targetLang, sourceLang)
	case *queued:
		stack.startQueue(ctx, logger)
		results = []string{stack.Gateway.TranslateQueued(ctx, texts[0], targetLang, sourceLang)}
	default:
		results = []string{stack.Gateway.TranslateText(ctx, texts[0], targetLang, sourceLang)}
	}

	if *asJSON {
		if err := printJSON(map[string]any{
			"source": sourceLang,
			"target": targetLang,
			"texts":  results,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to print JSON: %v\n", err)
			return 1
		}
		return 0
	}

	for _, result := range results {
		fmt.Fprintln(stdout, result)
	}
	return 0
}

func runDetect(args []string) int {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	text, err := readTextInput(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, logger, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stack := buildTranslation(cfg, logger)
	fmt.Fprintln(stdout, stack.Gateway.DetectLanguage(ctx, text))
	return 0
}

func runLanguages(args []string) int {
	fs := flag.NewFlagSet("languages", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	asJSON := fs.Bool("json", false, "Print languages as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	options := translation.LanguageOptions()
	if *asJSON {
		if err := printJSON(options); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to print JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(options))
	for _, option := range options {
		rows = append(rows, []string{option.Code, option.Label, option.Native})
	}
	if err := writeTable([]string{"CODE", "LANGUAGE", "NATIVE"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to print languages: %v\n", err)
		return 1
	}
	return 0
}

func normalizeLanguageFlag(raw string) string {
	return translation.NormalizeLangCode(raw)
}

// readTextInput uses positional arguments, or piped stdin when there are none.
func readTextInput(args []string) (string, error) {
	var stdin io.Reader
	if len(args) == 0 {
		if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return "", fmt.Errorf("text is required as arguments or on stdin")
		}
		stdin = os.Stdin
	}
	text, err := textArgs(args, stdin)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text must not be empty")
	}
	return text, nil
}
