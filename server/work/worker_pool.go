package work

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const DEFAULT_QUEUE_SIZE = 256

// WorkerPool runs jobs on a fixed number of workers. Jobs are kept in memory,
// a job lost on shutdown is expected to be observed again by whoever produced it.
type WorkerPool struct {
	handlers    map[string]Handler
	workers     []*worker
	queue       chan JobParams
	active      map[string]bool
	concurrency int
	started     bool
	cancel      context.CancelFunc
	mu          sync.Mutex
	logg        *zap.SugaredLogger
}

func NewWorkerPool(concurrency, queueSize int, logg *zap.SugaredLogger) *WorkerPool {
	if concurrency < 1 {
		concurrency = 1
	}
	if queueSize < 1 {
		queueSize = DEFAULT_QUEUE_SIZE
	}

	wp := &WorkerPool{
		handlers:    make(map[string]Handler),
		queue:       make(chan JobParams, queueSize),
		active:      make(map[string]bool),
		concurrency: concurrency,
		logg:        logg,
	}

	for i := 0; i < concurrency; i++ {
		wp.workers = append(wp.workers, newWorker(i+1, wp, logg))
	}

	return wp
}

// RegisterHandler binds a name to a job handler for all workers in pool
func (wp *WorkerPool) RegisterHandler(name string, handler Handler) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if _, ok := wp.handlers[name]; ok {
		return ErrDuplicateHandler
	}

	wp.handlers[name] = handler
	return nil
}

// Enqueue adds a job to the queue without blocking. Unique jobs already queued
// or in-progress return ErrDuplicateJob, a full queue returns ErrQueueFull.
func (wp *WorkerPool) Enqueue(job JobParams) error {
	if strings.TrimSpace(job.Name) == "" || strings.TrimSpace(job.Handler) == "" {
		return fmt.Errorf("both a name & handler is required for a job")
	}

	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.started {
		return ErrPoolStopped
	}

	if _, ok := wp.handlers[job.Handler]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandler, job.Handler)
	}

	if job.Unique && wp.active[job.Name] {
		return ErrDuplicateJob
	}

	select {
	case wp.queue <- job:
	default:
		return ErrQueueFull
	}

	if job.Unique {
		wp.active[job.Name] = true
	}

	return nil
}

// Start starts all workers in pool i.e the workers can start processing jobs
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}
	wp.started = true

	ctx, wp.cancel = context.WithCancel(ctx)
	for _, worker := range wp.workers {
		worker.start(ctx)
	}
}

// Stop stops all workers in pool i.e jobs will stop being processed.
// In-progress jobs see their context cancelled & are waited for.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if !wp.started {
		wp.mu.Unlock()
		return
	}
	wp.started = false
	wp.cancel()
	wp.mu.Unlock()

	wg := sync.WaitGroup{}
	for _, w := range wp.workers {
		wg.Add(1)
		go func(w *worker) {
			w.stop()
			wg.Done()
		}(w)
	}
	wg.Wait()

	wp.drain()
}

// drain drops jobs that never got a worker, so their unique names can be queued again
func (wp *WorkerPool) drain() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	for {
		select {
		case job := <-wp.queue:
			wp.logg.Warnf("Dropping unprocessed job: %v", job.Name)
		default:
			wp.active = make(map[string]bool)
			return
		}
	}
}

// Pending is the number of jobs waiting for a worker
func (wp *WorkerPool) Pending() int {
	return len(wp.queue)
}

func (wp *WorkerPool) handler(name string) (Handler, bool) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	handler, ok := wp.handlers[name]
	return handler, ok
}

func (wp *WorkerPool) release(job JobParams) {
	if !job.Unique {
		return
	}

	wp.mu.Lock()
	delete(wp.active, job.Name)
	wp.mu.Unlock()
}
