package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWithWriterEmitsJSONOutsideLocal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewWithWriter("production", "info", &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Debug().Msg("hidden")
	logger.Info().Str("cart_key", "storefront.cart").Msg("cart loaded")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "storefront" {
		t.Fatalf("unexpected service field: %v", entry["service"])
	}
	if entry["cart_key"] != "storefront.cart" {
		t.Fatalf("unexpected cart_key field: %v", entry["cart_key"])
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	if _, err := New("local", "loud"); err == nil {
		t.Fatalf("expected invalid level to fail")
	}
}
