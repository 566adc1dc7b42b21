package translation

import (
	"errors"
	"testing"
	"time"
)

func TestRegistryWithoutCredential(t *testing.T) {
	t.Parallel()

	registry := NewRegistryFromOptions(RegistryOptions{RequestTimeout: time.Second})
	if registry.DefaultProvider() != "google" {
		t.Fatalf("unexpected default provider %q", registry.DefaultProvider())
	}
	if _, err := registry.Primary(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured without key, got %v", err)
	}
	free, err := registry.Free()
	if err != nil {
		t.Fatalf("Free() error = %v", err)
	}
	if free.Name() != "mymemory" {
		t.Fatalf("unexpected free provider %q", free.Name())
	}
}

func TestRegistryWithCredential(t *testing.T) {
	t.Parallel()

	registry := NewRegistryFromOptions(RegistryOptions{APIKey: "secret", RequestTimeout: time.Second})
	primary, err := registry.Primary()
	if err != nil {
		t.Fatalf("Primary() error = %v", err)
	}
	if primary.Name() != "google" {
		t.Fatalf("unexpected primary provider %q", primary.Name())
	}
	names := registry.ProviderNames()
	if len(names) != 2 || names[0] != "google" || names[1] != "mymemory" {
		t.Fatalf("unexpected provider names %v", names)
	}
}

func TestRegistryFreeProviderCannotBePrimary(t *testing.T) {
	t.Parallel()

	registry := NewRegistryFromOptions(RegistryOptions{DefaultProvider: " MyMemory ", APIKey: "secret"})
	if _, err := registry.Primary(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured for free default, got %v", err)
	}
	if _, err := registry.Provider("deepl"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
