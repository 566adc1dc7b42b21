package translation

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/crypto/blake2b"

	"horse.fit/storefront/internal/reader"
)

const (
	DefaultDetectLanguage = "de"
	DefaultCacheSize      = 1024

	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
)

// GatewayOptions wires the collaborators of a Gateway. A nil Primary means no
// credential is configured and live translation is skipped.
type GatewayOptions struct {
	Primary        Provider
	Detector       Detector
	LocalDetector  Detector
	Queue          *Queue
	CacheSize      int
	DefaultLang    string
	BreakerTimeout time.Duration
	Logger         zerolog.Logger
}

// Gateway is the best-effort translation facade. Its public methods never
// return errors: every failure degrades to the original text.
type Gateway struct {
	primary     Provider
	detector    Detector
	local       Detector
	queue       *Queue
	cache       *lru.Cache
	breaker     *gobreaker.CircuitBreaker[any]
	defaultLang string
	logger      zerolog.Logger
}

func NewGateway(opts GatewayOptions) *Gateway {
	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		opts.Logger.Warn().Err(err).Msg("translation cache disabled")
		cache = nil
	}

	defaultLang := NormalizeLangCode(opts.DefaultLang)
	if defaultLang == "" || defaultLang == AutoLang {
		defaultLang = DefaultDetectLanguage
	}

	breakerTimeout := opts.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = defaultBreakerTimeout
	}

	logger := opts.Logger
	g := &Gateway{
		primary:     opts.Primary,
		detector:    opts.Detector,
		local:       opts.LocalDetector,
		queue:       opts.Queue,
		cache:       cache,
		defaultLang: defaultLang,
		logger:      logger,
	}
	if g.primary != nil {
		g.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:    g.primary.Name(),
			Timeout: breakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= defaultBreakerFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).Msg("translation breaker state changed")
			},
		})
	}
	return g
}

// Configured reports whether a keyed provider is available for live translation.
func (g *Gateway) Configured() bool {
	return g != nil && g.primary != nil
}

func (g *Gateway) DefaultLanguage() string {
	if g == nil {
		return DefaultDetectLanguage
	}
	return g.defaultLang
}

// QueueState returns the free-provider limiter snapshot when a queue is wired.
func (g *Gateway) QueueState() (LimiterState, bool) {
	if g == nil || g.queue == nil || g.queue.Limiter() == nil {
		return LimiterState{}, false
	}
	return g.queue.Limiter().State(), true
}

// TranslateText returns the translation of text, or text itself when the
// input is blank, the languages match, no credential is configured or the
// provider fails.
func (g *Gateway) TranslateText(ctx context.Context, text, targetLang, sourceLang string) string {
	if passThrough(text, targetLang, sourceLang) || !g.Configured() {
		return text
	}

	translated, err := g.translate(ctx, text, targetLang, sourceLang)
	if err != nil {
		g.logFailure(err, text)
		return text
	}
	return translated
}

// TranslateBatch translates texts in one provider request. Any failure falls
// the whole batch back to the originals. The result is always a new slice of
// the same length.
func (g *Gateway) TranslateBatch(ctx context.Context, texts []string, targetLang, sourceLang string) []string {
	originals := append([]string(nil), texts...)
	if len(texts) == 0 {
		return []string{}
	}
	if langsMatch(targetLang, sourceLang) || !g.Configured() {
		return originals
	}

	translated, err := g.translateBatch(ctx, texts, targetLang, sourceLang)
	if err != nil {
		g.logFailure(err, strings.Join(texts, " | "))
		return originals
	}
	return translated
}

// DetectLanguage returns a best-guess language code, or the default code when
// the text is blank or detection is unavailable or fails.
func (g *Gateway) DetectLanguage(ctx context.Context, text string) string {
	if g == nil {
		return DefaultDetectLanguage
	}
	if strings.TrimSpace(text) == "" {
		return g.defaultLang
	}

	code, err := g.detect(ctx, text)
	if err != nil {
		g.logFailure(err, text)
		return g.defaultLang
	}
	return code
}

// TranslateQueued sends text through the rate-limited free provider queue.
// It does not need a credential. A throttled queue returns text unchanged
// without any network call.
func (g *Gateway) TranslateQueued(ctx context.Context, text, targetLang, sourceLang string) string {
	if g == nil || passThrough(text, targetLang, sourceLang) {
		return text
	}

	translated, err := g.translateQueued(ctx, text, targetLang, sourceLang)
	if err != nil {
		if errors.Is(err, ErrThrottled) {
			g.logger.Debug().Str("text", reader.Preview(text)).Msg("queued translation skipped while throttled")
			return text
		}
		g.logFailure(err, text)
		return text
	}
	return translated
}

func (g *Gateway) translate(ctx context.Context, text, targetLang, sourceLang string) (string, error) {
	req := TranslateRequest{
		Text:       text,
		SourceLang: normalizeSourceLang(sourceLang),
		TargetLang: NormalizeLangCode(targetLang),
	}
	key := cacheKey(req.SourceLang, req.TargetLang, text)
	if cached, ok := g.cachedText(key); ok {
		return cached, nil
	}

	out, err := g.breaker.Execute(func() (any, error) {
		return g.primary.Translate(ctx, req)
	})
	if err != nil {
		return "", &Error{Op: "translate", Provider: g.primary.Name(), Err: err}
	}
	resp, _ := out.(*TranslateResponse)
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", &Error{Op: "translate", Provider: g.primary.Name(), Err: ErrEmptyResult}
	}

	g.storeText(key, resp.Text)
	return resp.Text, nil
}

func (g *Gateway) translateBatch(ctx context.Context, texts []string, targetLang, sourceLang string) ([]string, error) {
	source := normalizeSourceLang(sourceLang)
	target := NormalizeLangCode(targetLang)

	result := append([]string(nil), texts...)
	pending := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if cached, ok := g.cachedText(cacheKey(source, target, text)); ok {
			result[i] = cached
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return result, nil
	}

	batch := make([]string, len(pending))
	for i, idx := range pending {
		batch[i] = texts[idx]
	}

	out, err := g.breaker.Execute(func() (any, error) {
		return g.providerBatch(ctx, BatchRequest{Texts: batch, SourceLang: source, TargetLang: target})
	})
	if err != nil {
		return nil, &Error{Op: "translate batch", Provider: g.primary.Name(), Err: err}
	}
	resp, _ := out.(*BatchResponse)
	if resp == nil || len(resp.Texts) != len(batch) {
		return nil, &Error{Op: "translate batch", Provider: g.primary.Name(), Err: fmt.Errorf("provider returned a mismatched batch")}
	}

	for i, idx := range pending {
		result[idx] = resp.Texts[i]
		g.storeText(cacheKey(source, target, batch[i]), resp.Texts[i])
	}
	return result, nil
}

// providerBatch uses a single batch request when the provider supports it.
func (g *Gateway) providerBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	if batcher, ok := g.primary.(BatchProvider); ok {
		return batcher.TranslateBatch(ctx, req)
	}

	texts := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		resp, err := g.primary.Translate(ctx, TranslateRequest{Text: text, SourceLang: req.SourceLang, TargetLang: req.TargetLang})
		if err != nil {
			return nil, err
		}
		texts[i] = resp.Text
	}
	return &BatchResponse{
		Texts:        texts,
		SourceLang:   req.SourceLang,
		TargetLang:   req.TargetLang,
		ProviderName: g.primary.Name(),
	}, nil
}

func (g *Gateway) detect(ctx context.Context, text string) (string, error) {
	var (
		raw  string
		err  error
		name string
	)
	switch {
	case g.detector != nil && g.breaker != nil:
		name = g.primary.Name()
		var out any
		out, err = g.breaker.Execute(func() (any, error) {
			return g.detector.Detect(ctx, text)
		})
		raw, _ = out.(string)
	case g.detector != nil:
		raw, err = g.detector.Detect(ctx, text)
	case g.local != nil:
		name = "local"
		raw, err = g.local.Detect(ctx, text)
	default:
		return g.defaultLang, nil
	}
	if err != nil {
		return "", &Error{Op: "detect", Provider: name, Err: err}
	}

	code := NormalizeLangCode(raw)
	if code == "" || code == AutoLang {
		return "", &Error{Op: "detect", Provider: name, Err: ErrEmptyResult}
	}
	return code, nil
}

func (g *Gateway) translateQueued(ctx context.Context, text, targetLang, sourceLang string) (string, error) {
	if g.queue == nil {
		return "", &Error{Op: "translate queued", Err: ErrNotConfigured}
	}

	req := TranslateRequest{
		Text:       text,
		SourceLang: normalizeSourceLang(sourceLang),
		TargetLang: NormalizeLangCode(targetLang),
	}
	resp, err := g.queue.Submit(ctx, req)
	if err != nil {
		return "", &Error{Op: "translate queued", Provider: g.queue.ProviderName(), Err: err}
	}
	return resp.Text, nil
}

func (g *Gateway) cachedText(key string) (string, bool) {
	if g.cache == nil {
		return "", false
	}
	value, ok := g.cache.Get(key)
	if !ok {
		return "", false
	}
	text, ok := value.(string)
	return text, ok
}

func (g *Gateway) storeText(key, text string) {
	if g.cache == nil {
		return
	}
	g.cache.Add(key, text)
}

func (g *Gateway) logFailure(err error, text string) {
	event := g.logger.Warn().Err(err).Str("text", reader.Preview(text))
	var gatewayErr *Error
	if errors.As(err, &gatewayErr) {
		event = event.Str("op", gatewayErr.Op)
		if gatewayErr.Provider != "" {
			event = event.Str("provider", gatewayErr.Provider)
		}
	}
	event.Msg("translation fell back to original text")
}

func passThrough(text, targetLang, sourceLang string) bool {
	return strings.TrimSpace(text) == "" || langsMatch(targetLang, sourceLang)
}

// langsMatch also treats an unusable target as a match so the text is kept.
func langsMatch(targetLang, sourceLang string) bool {
	if targetLang == sourceLang {
		return true
	}
	target := NormalizeLangCode(targetLang)
	if target == "" || target == AutoLang {
		return true
	}
	return target == NormalizeLangCode(sourceLang)
}

// cacheKey hashes the text so long descriptions do not pin memory as keys.
func cacheKey(sourceLang, targetLang, text string) string {
	sum := blake2b.Sum256([]byte(text))
	return sourceLang + ":" + targetLang + ":" + hex.EncodeToString(sum[:])
}
