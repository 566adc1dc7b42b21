package translation

import (
	"context"
	"sync"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// stubProvider prefixes the target language. failOn maps 1-based call numbers
// to the error returned for that call.
type stubProvider struct {
	name   string
	mu     sync.Mutex
	calls  int
	failOn map[int]error
}

func (p *stubProvider) Translate(_ context.Context, req TranslateRequest) (*TranslateResponse, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()

	if err, ok := p.failOn[call]; ok {
		return nil, err
	}
	return &TranslateResponse{
		Text:         "[" + req.TargetLang + "] " + req.Text,
		SourceLang:   req.SourceLang,
		TargetLang:   req.TargetLang,
		ProviderName: p.Name(),
	}, nil
}

func (p *stubProvider) Name() string {
	if p.name == "" {
		return "stub"
	}
	return p.name
}

func (p *stubProvider) SupportedLanguages() []string {
	return SupportedLanguageCodes()
}

func (p *stubProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type stubDetector struct {
	code string
	err  error
}

func (d stubDetector) Detect(_ context.Context, _ string) (string, error) {
	return d.code, d.err
}
