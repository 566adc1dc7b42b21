package translation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewGoogleProviderRequiresKey(t *testing.T) {
	t.Parallel()

	if p := NewGoogleProvider("", "  ", time.Second); p != nil {
		t.Fatalf("expected nil provider without key")
	}
	var p *GoogleProvider
	if _, err := p.Translate(context.Background(), TranslateRequest{Text: "hi", TargetLang: "de"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured from nil provider, got %v", err)
	}
}

func TestGoogleProviderRateLimitIsTyped(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewGoogleProvider(server.URL, "k", time.Second)
	_, err := provider.Translate(context.Background(), TranslateRequest{Text: "hi", TargetLang: "de"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestMyMemoryProviderBuildsLangPair(t *testing.T) {
	t.Parallel()

	var gotQuery, gotPair string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotPair = r.URL.Query().Get("langpair")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"responseData":{"translatedText":"Kaffee"},"responseStatus":200}`))
	}))
	defer server.Close()

	provider := NewMyMemoryProvider(server.URL, time.Second)
	resp, err := provider.Translate(context.Background(), TranslateRequest{Text: "coffee", SourceLang: "auto", TargetLang: "de-DE"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if resp.Text != "Kaffee" || resp.ProviderName != "mymemory" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if gotQuery != "coffee" {
		t.Fatalf("q = %q", gotQuery)
	}
	if gotPair != "autodetect|de" {
		t.Fatalf("langpair = %q", gotPair)
	}
}

func TestMyMemoryProviderEnvelopeStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want error
	}{
		{name: "numeric 429", body: `{"responseData":{"translatedText":"MYMEMORY WARNING"},"responseStatus":429,"responseDetails":"quota"}`, want: ErrRateLimited},
		{name: "quoted 429", body: `{"responseData":{"translatedText":""},"responseStatus":"429"}`, want: ErrRateLimited},
		{name: "empty translation", body: `{"responseData":{"translatedText":"  "},"responseStatus":200}`, want: ErrEmptyResult},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := NewMyMemoryProvider(server.URL, time.Second).Translate(context.Background(), TranslateRequest{Text: "hi", SourceLang: "en", TargetLang: "de"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestMyMemoryProviderHTTP429(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewMyMemoryProvider(server.URL, time.Second).Translate(context.Background(), TranslateRequest{Text: "hi", TargetLang: "de"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}
