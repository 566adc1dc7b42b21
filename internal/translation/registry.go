package translation

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultProviderName is used when TRANSLATION_PROVIDER is unset.
const DefaultProviderName = googleProviderName

// Registry stores translation providers and resolves a default provider.
type Registry struct {
	providers       map[string]Provider
	defaultProvider string
}

func NewRegistry(defaultProvider string) *Registry {
	normalizedDefault := normalizeProviderName(defaultProvider)
	if normalizedDefault == "" {
		normalizedDefault = DefaultProviderName
	}

	return &Registry{
		providers:       make(map[string]Provider),
		defaultProvider: normalizedDefault,
	}
}

// RegistryOptions describes the providers NewRegistryFromOptions can build.
type RegistryOptions struct {
	DefaultProvider string
	APIKey          string
	Endpoint        string
	FreeEndpoint    string
	RequestTimeout  time.Duration
}

// NewRegistryFromOptions registers the keyed provider (only when a credential
// is present) and the free provider.
func NewRegistryFromOptions(opts RegistryOptions) *Registry {
	registry := NewRegistry(opts.DefaultProvider)
	if google := NewGoogleProvider(opts.Endpoint, opts.APIKey, opts.RequestTimeout); google != nil {
		_ = registry.Register(google)
	}
	_ = registry.Register(NewMyMemoryProvider(opts.FreeEndpoint, opts.RequestTimeout))
	return registry
}

// Register adds one provider.
func (r *Registry) Register(provider Provider) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if provider == nil {
		return fmt.Errorf("provider is nil")
	}
	name := normalizeProviderName(provider.Name())
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	r.providers[name] = provider
	return nil
}

// Provider resolves a provider by name. Empty names use the configured default provider.
func (r *Registry) Provider(name string) (Provider, error) {
	if r == nil {
		return nil, fmt.Errorf("registry is nil")
	}

	resolvedName := normalizeProviderName(name)
	if resolvedName == "" {
		resolvedName = r.defaultProvider
	}
	provider, ok := r.providers[resolvedName]
	if ok {
		return provider, nil
	}

	return nil, fmt.Errorf("translation provider %q is not registered (available: %s): %w",
		resolvedName, strings.Join(r.ProviderNames(), ", "), ErrNotConfigured)
}

// Primary resolves the default provider. The free provider is never returned
// here; it is only reachable through the Queue.
func (r *Registry) Primary() (Provider, error) {
	if r == nil {
		return nil, ErrNotConfigured
	}
	if r.defaultProvider == myMemoryProviderName {
		return nil, fmt.Errorf("%s cannot serve live translation: %w", myMemoryProviderName, ErrNotConfigured)
	}
	return r.Provider("")
}

// Free resolves the unauthenticated provider used by the Queue.
func (r *Registry) Free() (Provider, error) {
	return r.Provider(myMemoryProviderName)
}

func (r *Registry) DefaultProvider() string {
	if r == nil {
		return ""
	}
	return r.defaultProvider
}

func (r *Registry) ProviderNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeProviderName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
