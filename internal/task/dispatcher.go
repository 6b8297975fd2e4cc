package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/studykit/ingest-worker/internal/domain"
	"github.com/studykit/ingest-worker/internal/pipeline"
)

// PipelineRouter maps queue names to pipelines. Satisfied by
// *pipeline.Router.
type PipelineRouter interface {
	For(queueName string) (pipeline.Pipeline, bool)
}

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	// MaxWorkers is the number of concurrent executors. If zero or
	// negative, defaults to 1.
	MaxWorkers int

	// TaskTimeout is the deadline attached to each pipeline execution.
	// Zero disables the deadline.
	TaskTimeout time.Duration
}

// DefaultDispatcherConfig returns a DispatcherConfig with the reference
// worker's defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxWorkers:  4,
		TaskTimeout: 5 * time.Minute,
	}
}

// Dispatcher executes routed pipelines on a bounded pool of concurrent
// executors. Submit blocks the calling poller while the pool is saturated:
// a queue whose tasks are slow naturally stalls its own poller instead of
// buffering unbounded in-process memory.
type Dispatcher struct {
	router  PipelineRouter
	tracker *Tracker

	// slots is the executor semaphore; holding a token is holding an
	// executor.
	slots chan struct{}

	taskTimeout time.Duration
	wg          sync.WaitGroup
	logger      *slog.Logger

	// resultHandler observes every PipelineResult. Defaults to logging.
	resultHandler func(result domain.PipelineResult)
}

// NewDispatcher creates a dispatcher over the given router and idempotency
// tracker.
func NewDispatcher(router PipelineRouter, tracker *Tracker, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.MaxWorkers,
			"default_count", 1)
	}

	d := &Dispatcher{
		router:      router,
		tracker:     tracker,
		slots:       make(chan struct{}, maxWorkers),
		taskTimeout: config.TaskTimeout,
		logger:      logger,
	}
	d.resultHandler = d.logResult
	return d
}

// SetResultHandler replaces the default result observer. Must be called
// before any Submit.
func (d *Dispatcher) SetResultHandler(handler func(result domain.PipelineResult)) {
	d.resultHandler = handler
}

// Submit hands a task to the pool. If a free executor slot exists the task
// begins processing immediately on its own goroutine; otherwise Submit
// blocks until a slot frees or ctx is cancelled. Two concurrently submitted
// tasks never share an executor.
func (d *Dispatcher) Submit(ctx context.Context, task *domain.IngestionTask) error {
	select {
	case d.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.slots }()
		d.execute(task)
	}()

	return nil
}

// Wait blocks until every in-flight execution has finished. Used during
// shutdown after the pollers have stopped submitting.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// execute runs one task through dedup, routing and its pipeline. It owns
// the single recover boundary: a panic escaping a pipeline is converted
// into a failed result and must not crash the pool or other in-flight
// executions.
func (d *Dispatcher) execute(task *domain.IngestionTask) {
	logger := d.logger.With(
		"task_id", task.TaskID,
		"queue", task.QueueName,
	)

	fingerprint := d.tracker.Fingerprint(task)
	if !d.tracker.TryAcquire(fingerprint) {
		logger.Info("task already processed or in flight, skipping",
			"fingerprint", fingerprint)
		return
	}

	p, ok := d.router.For(task.QueueName)
	if !ok {
		// Unknown queues are consumed without a result; the entry stays
		// held like any other seen task.
		logger.Warn("unknown queue, dropping task")
		return
	}

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			// Unexpected failure: release the entry so a resubmission of
			// the identical payload can be retried.
			d.tracker.Release(fingerprint)
			err := fmt.Errorf("panic during pipeline execution: %v", r)
			logger.Error("pipeline panicked", "panic", r)
			d.resultHandler(domain.Failed(task, err, time.Since(start)))
		}
	}()

	ctx := context.Background()
	if d.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.taskTimeout)
		defer cancel()
	}

	err := p.Run(ctx, task)
	elapsed := time.Since(start)

	if err == nil {
		d.resultHandler(domain.Completed(task, elapsed))
		return
	}

	err = classify(err)
	if !isModeled(err) {
		// Not one of the tagged kinds: treat like a panic and allow a
		// future resubmission. Modeled failures keep their entry so a
		// misbehaving producer cannot hot-loop retries.
		d.tracker.Release(fingerprint)
	}
	d.resultHandler(domain.Failed(task, err, elapsed))
}

// logResult is the default result observer.
func (d *Dispatcher) logResult(result domain.PipelineResult) {
	if result.Status == domain.ResultCompleted {
		d.logger.Info("task completed",
			"task_id", result.TaskID,
			"queue", result.Queue,
			"processing_ms", result.ProcessingTime.Milliseconds())
		return
	}
	d.logger.Error("task failed",
		"task_id", result.TaskID,
		"queue", result.Queue,
		"error", result.Err,
		"processing_ms", result.ProcessingTime.Milliseconds())
}

// classify maps context deadline expiry onto the timeout kind; other errors
// pass through unchanged.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}

// isModeled reports whether err carries one of the tagged pipeline error
// kinds.
func isModeled(err error) bool {
	for _, kind := range []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrDownload,
		domain.ErrGeneration,
		domain.ErrPersistence,
		domain.ErrTimeout,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
