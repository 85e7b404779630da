package worker

import (
	"context"
	"runtime"
	"sync"

	"github.com/alde/mangaview/pkg/progress"
)

// Job is a unit of work, typically one page to render and encode.
type Job interface {
	Process(ctx context.Context) error
	ID() string
}

// Result contains the outcome of processing a job.
type Result struct {
	JobID string
	Error error
}

// Pool manages a pool of worker goroutines.
type Pool struct {
	workerCount int
	jobs        chan Job
	results     chan Result
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	progress    *progress.ProgressTracker
}

// NewPool creates a worker pool. A non-positive count takes one worker
// per CPU.
func NewPool(workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workerCount: workerCount,
		jobs:        make(chan Job, workerCount*2), // Buffer to prevent blocking
		results:     make(chan Result, workerCount*2),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// NewPoolWithProgress creates a worker pool that reports per-worker
// progress on the terminal.
func NewPoolWithProgress(workerCount, totalJobs int) *Pool {
	p := NewPool(workerCount)
	p.progress = progress.NewProgressTracker(p.workerCount, totalJobs)
	return p
}

// Start begins processing jobs
func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully shuts down the pool
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
	p.cancel()

	if p.progress != nil {
		p.progress.Finish()
	}
}

// Submit adds a job to the processing queue
func (p *Pool) Submit(job Job) {
	select {
	case p.jobs <- job:
	case <-p.ctx.Done():
		// Pool is shutting down
		p.results <- Result{
			JobID: job.ID(),
			Error: p.ctx.Err(),
		}
	}
}

// Results returns the results channel
func (p *Pool) Results() <-chan Result {
	return p.results
}

// worker processes jobs from the jobs channel
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return // Channel closed, worker should exit
			}

			if p.progress != nil {
				p.progress.UpdateWorker(id, job.ID(), false)
			}

			err := job.Process(p.ctx)

			if p.progress != nil {
				p.progress.UpdateWorker(id, job.ID(), true)
			}

			p.results <- Result{
				JobID: job.ID(),
				Error: err,
			}

		case <-p.ctx.Done():
			return // Context cancelled, worker should exit
		}
	}
}

// WorkerCount returns the number of workers in the pool
func (p *Pool) WorkerCount() int {
	return p.workerCount
}
