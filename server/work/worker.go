package work

import (
	"context"
	"errors"
	"fmt"

	"github.com/Daskott/medibox/colors"
	"go.uber.org/zap"
)

var (
	ErrDuplicateHandler = errors.New("handler with provided name already mapped")
	ErrDuplicateJob     = errors.New("job with the given name already exists in queue")
	ErrUnknownHandler   = errors.New("no handler mapped for job")
	ErrQueueFull        = errors.New("job queue is full")
	ErrPoolStopped      = errors.New("worker pool is not running")
)

type JobParams struct {
	Name    string
	Handler string
	// Unique jobs are dropped while a job with the same name is queued or in-progress
	Unique bool
	Args   map[string]interface{}
}

type Handler func(ctx context.Context, args map[string]interface{}) error

type worker struct {
	id       int
	pool     *WorkerPool
	stopChan chan struct{}
	logg     *zap.SugaredLogger
}

func newWorker(id int, pool *WorkerPool, logg *zap.SugaredLogger) *worker {
	return &worker{
		id:       id,
		pool:     pool,
		stopChan: make(chan struct{}),
		logg:     logg,
	}
}

// start starts the worker loop that pulls jobs from the queue & process them
func (w *worker) start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *worker) stop() {
	w.stopChan <- struct{}{}
}

func (w *worker) loop(ctx context.Context) {
	w.logInfof("Starting worker")
	for {
		select {
		case <-w.stopChan:
			w.logInfof("Stopping worker")
			return
		case job := <-w.pool.queue:
			w.processJob(ctx, job)
		}
	}
}

func (w *worker) processJob(ctx context.Context, job JobParams) {
	defer w.pool.release(job)

	handler, ok := w.pool.handler(job.Handler)
	if !ok {
		w.logError(fmt.Errorf("%w: %s", ErrUnknownHandler, job.Handler))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.logError(fmt.Errorf("job %s panicked: %v", job.Name, r))
		}
	}()

	err := handler(ctx, job.Args)
	if err != nil {
		w.logError(fmt.Errorf("job %s failed: %v", job.Name, err))
		return
	}

	w.logg.Debugf(w.prefix()+"job %s completed", job.Name)
}

func (w *worker) prefix() string {
	return colors.Yellow(fmt.Sprintf("[worker %v] ", w.id))
}

func (w *worker) logInfof(template string, args ...interface{}) {
	w.logg.Infof(w.prefix()+template, args...)
}

func (w *worker) logError(err error) {
	w.logg.Error(colors.Red(fmt.Sprintf("[worker %v] ", w.id)), err)
}
