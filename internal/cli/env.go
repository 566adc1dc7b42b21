package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// EnvFileOverrideVar names an env file that wins over the --env flag.
const EnvFileOverrideVar = "STOREFRONT_ENV_FILE"

// EnvLoader loads .env files with a predictable override order.
type EnvLoader struct {
	value       *string
	defaultPath string
	out         io.Writer
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(fs *flag.FlagSet, defaultPath, description string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}
	if description == "" {
		description = "Path to the .env file"
	}

	value := fs.String("env", defaultPath, description)
	return &EnvLoader{
		value:       value,
		defaultPath: defaultPath,
		out:         os.Stderr,
	}
}

// Load resolves and loads environment variables. The returned path is the file
// that was applied. A missing file is reported as an error; callers usually
// treat it as a warning because plain environment variables still apply.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	if custom := strings.TrimSpace(os.Getenv(EnvFileOverrideVar)); custom != "" {
		if err := godotenv.Overload(custom); err == nil {
			l.printf("Loaded environment from %s: %s\n", EnvFileOverrideVar, custom)
			return custom, nil
		}
		l.printf("Warning: failed to load %s=%s\n", EnvFileOverrideVar, custom)
	}

	requested := ""
	if l.value != nil {
		requested = strings.TrimSpace(*l.value)
	}
	if requested == "" {
		requested = l.defaultPath
	}

	candidates := []string{requested}
	if base := filepath.Base(requested); base != "" && base != requested {
		candidates = append(candidates, base)
	}
	if requested != l.defaultPath {
		candidates = append(candidates, l.defaultPath)
	}

	for _, path := range candidates {
		if err := godotenv.Overload(path); err == nil {
			l.printf("Loaded environment from: %s\n", path)
			return path, nil
		}
	}

	return "", fmt.Errorf("failed to load env file from %s", requested)
}

func (l *EnvLoader) printf(format string, args ...any) {
	if l.out == nil {
		return
	}
	fmt.Fprintf(l.out, format, args...)
}
