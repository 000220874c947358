package plagiarism

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
)

type Job interface {
	Execute(ctx context.Context) error
}

// JobFunc adapts a function to the Job interface
type JobFunc func(ctx context.Context) error

func (f JobFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

type WorkerPool struct {
	workers  int
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// creates a new worker pool; size <= 0 selects CPU-based sizing
func NewWorkerPool(ctx context.Context, size int) *WorkerPool {
	totalCPU := runtime.NumCPU()
	systemReserve := max(1, totalCPU/4) // Reserve 1/4 of the CPU for system processes
	if size <= 0 {
		size = max(1, totalCPU-systemReserve)
	}
	log.Info().
		Int("totalCPU", totalCPU).
		Int("workers", size).
		Msg("Worker pool initialized")
	poolCtx, cancel := context.WithCancel(ctx)

	pool := &WorkerPool{
		workers:  size,
		jobQueue: make(chan Job, size*2), // Buffer 2x the worker count
		ctx:      poolCtx,
		cancel:   cancel,
	}

	pool.start()

	return pool
}

// starts all worker goroutines
func (p *WorkerPool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// worker goroutine that processes jobs
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return // Channel closed
			}
			if err := job.Execute(p.ctx); err != nil {
				log.Error().Err(err).Int("worker", id).Msg("Worker failed to execute job")
			}
		}
	}
}

// submits a job to the pool
func (p *WorkerPool) Submit(job Job) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobQueue <- job:
		return nil
	}
}

// closes the worker pool and waits for all workers to finish
func (p *WorkerPool) Close() {
	p.cancel()
	p.wg.Wait()
}

// returns the number of workers
func (p *WorkerPool) Size() int {
	return p.workers
}

// Done is closed once the pool stops accepting and running jobs.
func (p *WorkerPool) Done() <-chan struct{} {
	return p.ctx.Done()
}

// dispatch runs every job with ctx and waits for all of them. A nil pool runs
// the jobs inline on the calling goroutine.
func dispatch(ctx context.Context, pool *WorkerPool, jobs []Job) error {
	if pool == nil {
		for _, job := range jobs {
			if err := job.Execute(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error

	for _, job := range jobs {
		job := job
		wg.Add(1)
		wrapped := JobFunc(func(context.Context) error {
			defer wg.Done()
			if err := job.Execute(ctx); err != nil {
				once.Do(func() { firstErr = err })
			}
			return nil
		})
		if err := pool.Submit(wrapped); err != nil {
			wg.Done()
			return fmt.Errorf("failed to submit job: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return firstErr
	case <-pool.Done():
		return fmt.Errorf("worker pool closed: %w", context.Canceled)
	}
}
