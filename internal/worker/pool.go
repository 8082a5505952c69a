package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"newsbot/internal/logger"
)

var (
	ErrDispatcherBusy = errors.New("dispatcher queue is full")
	ErrPoolStopped    = errors.New("worker pool stopped")
)

const defaultQueueSize = 16

// Pool runs jobs on a fixed set of workers fed from a bounded queue.
type Pool struct {
	JobQueue   chan Job
	workerPool chan chan Job

	mu      sync.RWMutex
	stopped bool
	quit    chan struct{}
	wg      sync.WaitGroup
	log     *zap.Logger
}

// NewPool starts workers goroutines and the dispatcher.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	p := &Pool{
		JobQueue:   make(chan Job, queueSize),
		workerPool: make(chan chan Job, workers),
		quit:       make(chan struct{}),
		log:        logger.Named("worker"),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		NewWorker(i+1, p.workerPool, p.quit, p.log).Start(p.wg.Done)
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Do enqueues fn and waits for its result. A full queue fails fast with
// ErrDispatcherBusy. fn receives ctx.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	job := Job{ctx: ctx, run: fn, result: make(chan jobResult, 1)}

	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return "", ErrPoolStopped
	}
	select {
	case p.JobQueue <- job:
	default:
		p.mu.RUnlock()
		p.log.Warn("job rejected, queue full", zap.Int("queue", cap(p.JobQueue)))
		return "", ErrDispatcherBusy
	}
	p.mu.RUnlock()

	select {
	case res := <-job.result:
		return res.out, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Stop rejects new jobs, lets running jobs finish and waits for every
// goroutine to exit. Queued jobs fail with ErrPoolStopped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.quit)
	p.mu.Unlock()
	p.wg.Wait()
}
