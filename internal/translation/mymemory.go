package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultMyMemoryEndpoint is the free, unauthenticated MyMemory GET API.
	DefaultMyMemoryEndpoint = "https://api.mymemory.translated.net/get"
	myMemoryProviderName    = "mymemory"
	myMemoryAutoDetect      = "autodetect"
)

// MyMemoryProvider calls the free MyMemory API. The API enforces a small
// daily quota, so it is only reached through the rate-limited Queue.
type MyMemoryProvider struct {
	endpoint string
	client   *http.Client
}

func NewMyMemoryProvider(endpoint string, timeout time.Duration) *MyMemoryProvider {
	base := strings.TrimSpace(endpoint)
	if base == "" {
		base = DefaultMyMemoryEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &MyMemoryProvider{
		endpoint: base,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *MyMemoryProvider) Name() string {
	return myMemoryProviderName
}

func (p *MyMemoryProvider) SupportedLanguages() []string {
	return SupportedLanguageCodes()
}

func (p *MyMemoryProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if p == nil {
		return nil, ErrNotConfigured
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}
	targetLang := NormalizeLangCode(req.TargetLang)
	if targetLang == "" {
		return nil, fmt.Errorf("target language is required")
	}
	sourceLang := normalizeSourceLang(req.SourceLang)
	pairSource := sourceLang
	if pairSource == "" {
		pairSource = myMemoryAutoDetect
	}

	target, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse translation endpoint: %w", err)
	}
	query := target.Query()
	query.Set("q", text)
	query.Set("langpair", pairSource+"|"+targetLang)
	target.RawQuery = query.Encode()

	started := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build translation request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send translation request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read translation response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	var parsed myMemoryResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode translation response: %w", err)
	}

	// The envelope status can disagree with the HTTP status, quota exhaustion
	// arrives as HTTP 200 with responseStatus 429.
	status := parsed.status()
	if status != 0 && (status < 200 || status >= 300) {
		return nil, &StatusError{StatusCode: status, Message: strings.TrimSpace(parsed.ResponseDetails)}
	}

	translated := strings.TrimSpace(parsed.ResponseData.TranslatedText)
	if translated == "" {
		return nil, ErrEmptyResult
	}

	return &TranslateResponse{
		Text:         translated,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  json.RawMessage `json:"responseStatus"`
	ResponseDetails string          `json:"responseDetails"`
}

// status accepts responseStatus as a number or a quoted number.
func (r myMemoryResponse) status() int {
	raw := strings.Trim(strings.TrimSpace(string(r.ResponseStatus)), `"`)
	if raw == "" || raw == "null" {
		return 0
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return code
}
