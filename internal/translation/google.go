package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultGoogleEndpoint is the Cloud Translation v2 REST endpoint.
	DefaultGoogleEndpoint = "https://translation.googleapis.com/language/translate/v2"
	googleProviderName    = "google"
	googleResponseLimit   = 4 << 20
)

// GoogleProvider calls the keyed Cloud Translation v2 JSON API. A whole batch
// is sent as one request.
type GoogleProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewGoogleProvider returns nil when apiKey is blank, so callers can treat a
// missing credential as "no provider".
func NewGoogleProvider(endpoint, apiKey string, timeout time.Duration) *GoogleProvider {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil
	}
	base := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if base == "" {
		base = DefaultGoogleEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GoogleProvider{
		endpoint: base,
		apiKey:   key,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *GoogleProvider) Name() string {
	return googleProviderName
}

func (p *GoogleProvider) SupportedLanguages() []string {
	return SupportedLanguageCodes()
}

func (p *GoogleProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	batch, err := p.TranslateBatch(ctx, BatchRequest{
		Texts:      []string{req.Text},
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
	})
	if err != nil {
		return nil, err
	}
	return &TranslateResponse{
		Text:         batch.Texts[0],
		SourceLang:   batch.SourceLang,
		TargetLang:   batch.TargetLang,
		ProviderName: batch.ProviderName,
		LatencyMs:    batch.LatencyMs,
	}, nil
}

func (p *GoogleProvider) TranslateBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	if p == nil {
		return nil, ErrNotConfigured
	}
	if len(req.Texts) == 0 {
		return nil, fmt.Errorf("at least one text is required")
	}
	targetLang := NormalizeLangCode(req.TargetLang)
	if targetLang == "" {
		return nil, fmt.Errorf("target language is required")
	}
	sourceLang := normalizeSourceLang(req.SourceLang)

	started := time.Now()
	var parsed googleTranslateResponse
	if err := p.post(ctx, p.endpoint, googleTranslateRequest{
		Q:      req.Texts,
		Target: targetLang,
		Source: sourceLang,
		Format: "text",
	}, &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Data.Translations) != len(req.Texts) {
		return nil, fmt.Errorf("translation response has %d results for %d texts", len(parsed.Data.Translations), len(req.Texts))
	}

	texts := make([]string, len(parsed.Data.Translations))
	detected := sourceLang
	for i, item := range parsed.Data.Translations {
		if strings.TrimSpace(item.TranslatedText) == "" && strings.TrimSpace(req.Texts[i]) != "" {
			return nil, ErrEmptyResult
		}
		texts[i] = item.TranslatedText
		if detected == "" {
			detected = NormalizeLangCode(item.DetectedSourceLanguage)
		}
	}

	return &BatchResponse{
		Texts:        texts,
		SourceLang:   detected,
		TargetLang:   targetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}

func (p *GoogleProvider) Detect(ctx context.Context, text string) (string, error) {
	if p == nil {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text is required")
	}

	var parsed googleDetectResponse
	if err := p.post(ctx, p.endpoint+"/detect", googleDetectRequest{Q: []string{text}}, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Data.Detections) == 0 || len(parsed.Data.Detections[0]) == 0 {
		return "", ErrEmptyResult
	}

	best := parsed.Data.Detections[0][0]
	for _, candidate := range parsed.Data.Detections[0][1:] {
		if candidate.Confidence > best.Confidence {
			best = candidate
		}
	}
	code := NormalizeLangCode(best.Language)
	if code == "" || code == "und" {
		return "", ErrEmptyResult
	}
	return code, nil
}

func (p *GoogleProvider) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal translation request: %w", err)
	}

	target, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse translation endpoint: %w", err)
	}
	query := target.Query()
	query.Set("key", p.apiKey)
	target.RawQuery = query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build translation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send translation request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, googleResponseLimit))
	if err != nil {
		return fmt.Errorf("read translation response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := strings.TrimSpace(string(respBody))
		var errPayload googleErrorResponse
		if unmarshalErr := json.Unmarshal(respBody, &errPayload); unmarshalErr == nil {
			if msg := strings.TrimSpace(errPayload.Error.Message); msg != "" {
				message = msg
			}
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: message}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode translation response: %w", err)
	}
	return nil
}

type googleTranslateRequest struct {
	Q      []string `json:"q"`
	Target string   `json:"target"`
	Source string   `json:"source,omitempty"`
	Format string   `json:"format,omitempty"`
}

type googleTranslateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage"`
		} `json:"translations"`
	} `json:"data"`
}

type googleDetectRequest struct {
	Q []string `json:"q"`
}

type googleDetectResponse struct {
	Data struct {
		Detections [][]struct {
			Language   string  `json:"language"`
			Confidence float64 `json:"confidence"`
		} `json:"detections"`
	} `json:"data"`
}

type googleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
