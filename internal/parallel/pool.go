package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nibzard/sheetplan/internal/plan"
)

// Result is the outcome of one job.
type Result struct {
	Source   string
	Plan     *plan.Plan
	Error    error
	Duration time.Duration
	// Skipped is set when the job never ran because the pool was cancelled.
	Skipped bool
}

// Job produces a plan. ctx is cancelled when the pool is.
type Job func(ctx context.Context) (*plan.Plan, error)

// WorkerPool runs jobs with bounded concurrency.
type WorkerPool struct {
	maxWorkers int
	semaphore  chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	results    []Result
	errors     []error
	failFast   bool
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a new worker pool with bounded concurrency.
// If maxWorkers is 0, unlimited workers are allowed (bounded by submitted jobs).
// If failFast is true, the context is cancelled on the first error.
func NewWorkerPool(ctx context.Context, maxWorkers int, failFast bool) *WorkerPool {
	if maxWorkers < 0 {
		maxWorkers = 0
	}
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
		failFast:   failFast,
		ctx:        ctx,
		cancel:     cancel,
		results:    make([]Result, 0),
	}
}

// Submit schedules job under source. It never blocks; the job waits for a
// worker slot in its own goroutine. Jobs that cannot run because the pool
// was cancelled are recorded as skipped.
func (p *WorkerPool) Submit(source string, job Job) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if p.maxWorkers > 0 {
			select {
			case p.semaphore <- struct{}{}:
				defer func() { <-p.semaphore }()
			case <-p.ctx.Done():
				p.record(Result{Source: source, Error: p.ctx.Err(), Skipped: true})
				return
			}
		}

		// Check if we should still run (fail-fast or cancelled)
		if err := p.ctx.Err(); err != nil {
			p.record(Result{Source: source, Error: err, Skipped: true})
			return
		}

		start := time.Now()
		pl, err := job(p.ctx)
		p.record(Result{
			Source:   source,
			Plan:     pl,
			Error:    err,
			Duration: time.Since(start),
		})
	}()
}

func (p *WorkerPool) record(r Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.results = append(p.results, r)
	if r.Error != nil && !r.Skipped {
		p.errors = append(p.errors, fmt.Errorf("%s: %w", r.Source, r.Error))
		if p.failFast {
			p.cancel()
		}
	}
}

// Wait waits for all submitted jobs and returns their results in
// completion order along with the errors of the jobs that ran.
func (p *WorkerPool) Wait() ([]Result, []error) {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()

	// Cancel the context to clean up
	p.cancel()

	results := make([]Result, len(p.results))
	copy(results, p.results)

	errors := make([]error, len(p.errors))
	copy(errors, p.errors)

	return results, errors
}

// Results returns a snapshot of current results without waiting.
func (p *WorkerPool) Results() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	results := make([]Result, len(p.results))
	copy(results, p.results)
	return results
}

// Cancel cancels all pending work in the pool.
func (p *WorkerPool) Cancel() {
	p.cancel()
}
