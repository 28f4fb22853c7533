package work

import (
	"context"
	"errors"
	"fmt"

	"github.com/Daskott/medibox/server/cron"
	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

type WorkerPoolAdapter struct {
	cronScheduler *gocron.Scheduler
	pool          *WorkerPool
	logg          *zap.SugaredLogger
}

func NewWorkerAdapter(timeZoneArg string, concurrency int, logg *zap.SugaredLogger) *WorkerPoolAdapter {
	return &WorkerPoolAdapter{
		cronScheduler: cron.NewCronScheduler(timeZoneArg),
		pool:          NewWorkerPool(concurrency, DEFAULT_QUEUE_SIZE, logg),
		logg:          logg,
	}
}

// Start starts the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Start(ctx context.Context) {
	adapter.logg.Info("Starting cron scheduler & worker pool")
	adapter.pool.Start(ctx)
	adapter.cronScheduler.StartAsync()
}

// Stop stops the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Stop() {
	adapter.logg.Info("Stopping cron scheduler & worker pool")
	adapter.cronScheduler.Stop()
	adapter.pool.Stop()
}

// Register binds a name to a handler.
func (adapter *WorkerPoolAdapter) Register(name string, handler Handler) error {
	return adapter.pool.RegisterHandler(name, handler)
}

// Perform sends a new job to the queue, now - to be executed as soon as a worker is available.
// A duplicate unique job is not an error, the queued one will do the work.
func (adapter *WorkerPoolAdapter) Perform(job JobParams) error {
	err := adapter.pool.Enqueue(job)
	if errors.Is(err, ErrDuplicateJob) {
		adapter.logg.Debugf("Duplicate job already in queue for: %v", job.Name)
		return nil
	}

	if err != nil {
		return fmt.Errorf("error enqueuing job: %v, %w", job.Name, err)
	}

	adapter.logg.Debugf("Enqueued job: %v", job.Name)
	return nil
}

// PeriodicallyPerform adds a job to the queue (to be executed)
// periodically, based on the 'cronExpression' expression provided
func (adapter *WorkerPoolAdapter) PeriodicallyPerform(cronExpression string, job JobParams) error {
	_, err := adapter.cronScheduler.Cron(cronExpression).Tag(job.Name).Do(adapter.performLogged, job)
	return err
}

// PerformEvery adds a job to the queue every 'interval' e.g. "2s"
func (adapter *WorkerPoolAdapter) PerformEvery(interval string, job JobParams) error {
	_, err := adapter.cronScheduler.Every(interval).Tag(job.Name).Do(adapter.performLogged, job)
	return err
}

func (adapter *WorkerPoolAdapter) performLogged(job JobParams) {
	err := adapter.Perform(job)
	if err != nil {
		adapter.logg.Error(err)
	}
}
