package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultQueueCapacity = 64

type queueJob struct {
	ID      string
	Request TranslateRequest
	result  chan queueResult
}

type queueResult struct {
	response *TranslateResponse
	err      error
}

// Queue serializes calls to a rate-limited provider. A single worker drains
// jobs in FIFO order, one request in flight at a time.
type Queue struct {
	provider Provider
	limiter  *RateLimiter
	logger   zerolog.Logger

	jobs    chan queueJob
	stopped chan struct{}
	// sendMu is held shared while a submit sends and exclusively while the
	// worker drains on shutdown, so no job lands after the final drain.
	sendMu sync.RWMutex

	mu      sync.Mutex
	running bool
}

func NewQueue(provider Provider, limiter *RateLimiter, logger zerolog.Logger, capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if limiter == nil {
		limiter = NewRateLimiter(DefaultMinInterval, DefaultCooldown, nil)
	}
	return &Queue{
		provider: provider,
		limiter:  limiter,
		logger:   logger,
		jobs:     make(chan queueJob, capacity),
		stopped:  make(chan struct{}),
	}
}

func (q *Queue) Limiter() *RateLimiter {
	if q == nil {
		return nil
	}
	return q.limiter
}

func (q *Queue) ProviderName() string {
	if q == nil || q.provider == nil {
		return ""
	}
	return q.provider.Name()
}

// Run drains the queue until ctx is done. Pending jobs are answered with
// ErrQueueClosed on exit.
func (q *Queue) Run(ctx context.Context) error {
	if q == nil {
		return fmt.Errorf("translation queue is nil")
	}
	if q.provider == nil {
		return ErrNotConfigured
	}

	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return fmt.Errorf("translation queue is already running")
	}
	q.running = true
	q.mu.Unlock()

	q.logger.Debug().Str("provider", q.provider.Name()).Int("capacity", cap(q.jobs)).Msg("translation queue started")

	for {
		select {
		case <-ctx.Done():
			q.shutdown()
			q.logger.Debug().Msg("translation queue stopped")
			return nil
		case job := <-q.jobs:
			job.result <- q.process(ctx, job)
		}
	}
}

func (q *Queue) shutdown() {
	close(q.stopped)

	q.sendMu.Lock()
	defer q.sendMu.Unlock()
	q.drain()
}

func (q *Queue) drain() {
	for {
		select {
		case job := <-q.jobs:
			job.result <- queueResult{err: ErrQueueClosed}
		default:
			return
		}
	}
}

// Submit enqueues one request and waits for its result. A throttled limiter
// answers ErrThrottled without touching the provider.
func (q *Queue) Submit(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if q == nil || q.provider == nil {
		return nil, ErrNotConfigured
	}
	if q.limiter.Throttled() {
		return nil, ErrThrottled
	}

	job := queueJob{
		ID:      uuid.NewString(),
		Request: req,
		result:  make(chan queueResult, 1),
	}

	if err := q.enqueue(ctx, job); err != nil {
		return nil, err
	}

	select {
	case res := <-job.result:
		return res.response, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue) enqueue(ctx context.Context, job queueJob) error {
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()

	select {
	case <-q.stopped:
		return ErrQueueClosed
	default:
	}

	select {
	case q.jobs <- job:
		return nil
	case <-q.stopped:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) process(ctx context.Context, job queueJob) queueResult {
	log := q.logger.With().Str("job_id", job.ID).Str("provider", q.provider.Name()).Logger()

	if q.limiter.Throttled() {
		log.Debug().Msg("translation job skipped while throttled")
		return queueResult{err: ErrThrottled}
	}
	if err := q.limiter.Wait(ctx); err != nil {
		return queueResult{err: err}
	}

	started := time.Now()
	resp, err := q.provider.Translate(ctx, job.Request)
	switch {
	case errors.Is(err, ErrRateLimited):
		until := q.limiter.MarkRateLimited()
		log.Warn().Err(err).Time("throttled_until", until).Msg("translation provider rate limited")
		return queueResult{err: err}
	case err != nil:
		failures := q.limiter.RecordFailure()
		log.Warn().Err(err).Int("consecutive_failures", failures).Msg("queued translation failed")
		return queueResult{err: err}
	case resp == nil || strings.TrimSpace(resp.Text) == "":
		failures := q.limiter.RecordFailure()
		log.Warn().Int("consecutive_failures", failures).Msg("queued translation returned no text")
		return queueResult{err: ErrEmptyResult}
	}

	q.limiter.RecordSuccess()
	log.Debug().Dur("elapsed", time.Since(started)).Msg("queued translation completed")
	return queueResult{response: resp}
}
