package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	CartStorage     string `envconfig:"CART_STORAGE" default:"file"`
	CartStoragePath string `envconfig:"CART_STORAGE_PATH" default:".storefront/storage.json"`
	CartStorageKey  string `envconfig:"CART_STORAGE_KEY" default:"storefront.cart"`
	RedisURL        string `envconfig:"REDIS_URL" default:""`
	DatabaseURL     string `envconfig:"DATABASE_URL" default:""`
	DBMaxConns      int32  `envconfig:"DB_MAX_CONNS" default:"4"`

	TranslationProvider string        `envconfig:"TRANSLATION_PROVIDER" default:"google"`
	TranslationAPIKey   string        `envconfig:"TRANSLATION_API_KEY" default:""`
	TranslationEndpoint string        `envconfig:"TRANSLATION_ENDPOINT" default:"https://translation.googleapis.com/language/translate/v2"`
	TranslationTimeout  time.Duration `envconfig:"TRANSLATION_TIMEOUT" default:"15s"`
	TranslationCache    int           `envconfig:"TRANSLATION_CACHE_SIZE" default:"1024"`

	FreeTranslationEndpoint    string        `envconfig:"FREE_TRANSLATION_ENDPOINT" default:"https://api.mymemory.translated.net/get"`
	FreeTranslationMinInterval time.Duration `envconfig:"FREE_TRANSLATION_MIN_INTERVAL" default:"5s"`
	FreeTranslationCooldown    time.Duration `envconfig:"FREE_TRANSLATION_COOLDOWN" default:"1h"`
	FreeTranslationQueueSize   int           `envconfig:"FREE_TRANSLATION_QUEUE_SIZE" default:"64"`

	DefaultDetectLanguage  string `envconfig:"DEFAULT_DETECT_LANGUAGE" default:"de"`
	LocalLanguageDetection bool   `envconfig:"LOCAL_LANGUAGE_DETECTION" default:"false"`

	CatalogBaseURL string `envconfig:"CATALOG_BASE_URL" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageBackend() {
	case StorageMemory:
	case StorageFile:
		if strings.TrimSpace(c.CartStoragePath) == "" {
			return fmt.Errorf("CART_STORAGE_PATH is required for file storage")
		}
	case StorageRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("REDIS_URL is required for redis storage")
		}
	case StoragePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres storage")
		}
		if c.DBMaxConns < 1 {
			return fmt.Errorf("DB_MAX_CONNS must be >= 1")
		}
	default:
		return fmt.Errorf("CART_STORAGE must be one of memory, file, redis, postgres (got %q)", c.CartStorage)
	}
	if strings.TrimSpace(c.CartStorageKey) == "" {
		return fmt.Errorf("CART_STORAGE_KEY is required")
	}
	if c.TranslationTimeout <= 0 {
		return fmt.Errorf("TRANSLATION_TIMEOUT must be > 0")
	}
	if c.TranslationCache < 0 {
		return fmt.Errorf("TRANSLATION_CACHE_SIZE must be >= 0")
	}
	if c.FreeTranslationMinInterval < 0 {
		return fmt.Errorf("FREE_TRANSLATION_MIN_INTERVAL must be >= 0")
	}
	if c.FreeTranslationCooldown <= 0 {
		return fmt.Errorf("FREE_TRANSLATION_COOLDOWN must be > 0")
	}
	if c.FreeTranslationQueueSize < 1 {
		return fmt.Errorf("FREE_TRANSLATION_QUEUE_SIZE must be >= 1")
	}
	if strings.TrimSpace(c.DefaultDetectLanguage) == "" {
		return fmt.Errorf("DEFAULT_DETECT_LANGUAGE is required")
	}
	if raw := strings.TrimSpace(c.CatalogBaseURL); raw != "" {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("CATALOG_BASE_URL is not a valid URL: %w", err)
		}
	}
	return nil
}

// StorageBackend returns the normalized CART_STORAGE value.
func (c *Config) StorageBackend() string {
	if c == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(c.CartStorage))
}

// TranslationConfigured reports whether the keyed provider credential is present.
func (c *Config) TranslationConfigured() bool {
	return c != nil && strings.TrimSpace(c.TranslationAPIKey) != ""
}

// CatalogURL parses CATALOG_BASE_URL. It returns nil when unset.
func (c *Config) CatalogURL() *url.URL {
	if c == nil {
		return nil
	}
	raw := strings.TrimSpace(c.CatalogBaseURL)
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return parsed
}
