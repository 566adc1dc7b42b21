package translation

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func startQueue(t *testing.T, provider Provider, limiter *RateLimiter) *Queue {
	t.Helper()

	queue := NewQueue(provider, limiter, zerolog.Nop(), 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = queue.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return queue
}

func TestQueueThrottleScenario(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := NewRateLimiter(0, time.Hour, clock.Now)
	provider := &stubProvider{failOn: map[int]error{
		2: &StatusError{StatusCode: http.StatusTooManyRequests, Message: "quota"},
	}}
	queue := startQueue(t, provider, limiter)
	gateway := NewGateway(GatewayOptions{Queue: queue, Logger: zerolog.Nop()})
	ctx := context.Background()

	if got := gateway.TranslateQueued(ctx, "hello", "de", "en"); got != "[de] hello" {
		t.Fatalf("first call = %q", got)
	}

	if got := gateway.TranslateQueued(ctx, "coffee", "de", "en"); got != "coffee" {
		t.Fatalf("rate-limited call must return original text, got %q", got)
	}
	if !limiter.Throttled() {
		t.Fatalf("expected throttle flag after 429")
	}
	if provider.Calls() != 2 {
		t.Fatalf("expected 2 provider calls, got %d", provider.Calls())
	}

	if got := gateway.TranslateQueued(ctx, "tea", "de", "en"); got != "tea" {
		t.Fatalf("throttled call must return original text, got %q", got)
	}
	if provider.Calls() != 2 {
		t.Fatalf("throttled call reached the provider: %d calls", provider.Calls())
	}

	clock.Advance(time.Hour)
	if limiter.Throttled() {
		t.Fatalf("expected throttle flag to clear after cooldown")
	}
	if got := gateway.TranslateQueued(ctx, "tea", "de", "en"); got != "[de] tea" {
		t.Fatalf("call after cooldown = %q", got)
	}
	if provider.Calls() != 3 {
		t.Fatalf("expected network attempts to resume, got %d calls", provider.Calls())
	}
	if failures := limiter.State().ConsecutiveFailures; failures != 0 {
		t.Fatalf("expected success to reset failures, got %d", failures)
	}
}

func TestQueueSubmitThrottledSkipsEnqueue(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(0, time.Hour, nil)
	limiter.MarkRateLimited()
	provider := &stubProvider{}
	// The worker is never started; a throttled submit must not block on it.
	queue := NewQueue(provider, limiter, zerolog.Nop(), 1)

	_, err := queue.Submit(context.Background(), TranslateRequest{Text: "hi", TargetLang: "de"})
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected ErrThrottled, got %v", err)
	}
	if provider.Calls() != 0 {
		t.Fatalf("provider must not be called, got %d", provider.Calls())
	}
}

func TestQueueCountsNonRateLimitFailures(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(0, time.Hour, nil)
	provider := &stubProvider{failOn: map[int]error{
		1: &StatusError{StatusCode: http.StatusBadGateway},
		2: errors.New("connection reset"),
	}}
	queue := startQueue(t, provider, limiter)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := queue.Submit(ctx, TranslateRequest{Text: "hi", TargetLang: "de"}); err == nil {
			t.Fatalf("call %d: expected error", i+1)
		}
	}
	if limiter.Throttled() {
		t.Fatalf("plain failures must not set the throttle flag")
	}
	if got := limiter.State().ConsecutiveFailures; got != 2 {
		t.Fatalf("expected 2 consecutive failures, got %d", got)
	}
}

func TestQueueSerializesProviderCalls(t *testing.T) {
	t.Parallel()

	provider := &concurrencyRecorder{}
	queue := startQueue(t, provider, NewRateLimiter(0, time.Hour, nil))

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = queue.Submit(context.Background(), TranslateRequest{Text: "hi", TargetLang: "de"})
		}()
	}
	wg.Wait()

	if provider.maxInFlight != 1 {
		t.Fatalf("expected one request in flight at a time, saw %d", provider.maxInFlight)
	}
}

func TestQueueSubmitAfterStopReturnsClosed(t *testing.T) {
	t.Parallel()

	queue := NewQueue(&stubProvider{}, NewRateLimiter(0, time.Hour, nil), zerolog.Nop(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = queue.Run(ctx)
	}()
	cancel()
	<-done

	_, err := queue.Submit(context.Background(), TranslateRequest{Text: "hi", TargetLang: "de"})
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestQueueSubmitRacingShutdownAlwaysReturns(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		queue := NewQueue(&stubProvider{}, NewRateLimiter(0, time.Hour, nil), zerolog.Nop(), 4)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = queue.Run(ctx)
		}()

		submitted := make(chan error, 1)
		go func() {
			_, err := queue.Submit(context.Background(), TranslateRequest{Text: "hi", TargetLang: "de"})
			submitted <- err
		}()
		cancel()

		select {
		case err := <-submitted:
			if err != nil && !errors.Is(err, ErrQueueClosed) && !errors.Is(err, context.Canceled) {
				t.Fatalf("iteration %d: unexpected error %v", i, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("iteration %d: submit blocked after shutdown", i)
		}
		<-done
	}
}

type concurrencyRecorder struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func (p *concurrencyRecorder) Translate(_ context.Context, req TranslateRequest) (*TranslateResponse, error) {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.maxInFlight {
		p.maxInFlight = p.inFlight
	}
	p.mu.Unlock()

	time.Sleep(2 * time.Millisecond)

	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
	return &TranslateResponse{Text: req.Text, TargetLang: req.TargetLang}, nil
}

func (p *concurrencyRecorder) Name() string                 { return "recorder" }
func (p *concurrencyRecorder) SupportedLanguages() []string { return nil }
