package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/studykit/ingest-worker/internal/domain"
)

// QueuePopper is the transport-level queue read. Pop blocks up to timeout
// and returns (nil, nil) when no element arrived in time.
type QueuePopper interface {
	Pop(ctx context.Context, queueName string, timeout time.Duration) ([]byte, error)
}

// Submitter is the poller's handoff to the dispatcher.
type Submitter interface {
	Submit(ctx context.Context, task *domain.IngestionTask) error
}

// PollerConfig holds configuration shared by all pollers.
type PollerConfig struct {
	// PollTimeout bounds each blocking pop.
	PollTimeout time.Duration

	// ReconnectBackoff is how long to sleep after a transport failure
	// before polling again.
	ReconnectBackoff time.Duration
}

// DefaultPollerConfig returns a PollerConfig with the reference defaults:
// 1s pop timeout, 5s reconnect backoff.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		PollTimeout:      time.Second,
		ReconnectBackoff: 5 * time.Second,
	}
}

// Poller drains one queue in a blocking-pop loop and hands parsed tasks to
// the dispatcher. Pollers share no mutable state with each other beyond the
// dispatcher's submission interface, and a poller loop exits only when its
// context is cancelled.
type Poller struct {
	queueName string
	popper    QueuePopper
	submitter Submitter
	config    PollerConfig
	logger    *slog.Logger
}

// NewPoller creates a poller for one queue.
func NewPoller(queueName string, popper QueuePopper, submitter Submitter, config PollerConfig, logger *slog.Logger) *Poller {
	if config.PollTimeout <= 0 {
		config.PollTimeout = time.Second
	}
	if config.ReconnectBackoff <= 0 {
		config.ReconnectBackoff = 5 * time.Second
	}
	return &Poller{
		queueName: queueName,
		popper:    popper,
		submitter: submitter,
		config:    config,
		logger:    logger.With("queue", queueName),
	}
}

// Run polls until ctx is cancelled.
//
// A pop timeout simply loops; a malformed payload is logged and dropped
// before reaching any pipeline; a transport error backs off for the
// configured interval instead of terminating the loop. Submit applies the
// pool's backpressure: while every executor is busy, the poller stalls
// right here and its queue backs up in Redis rather than in memory.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("starting queue poller")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("stopping queue poller")
			return
		default:
		}

		raw, err := p.popper.Pop(ctx, p.queueName, p.config.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("stopping queue poller")
				return
			}
			p.logger.Error("queue pop failed, backing off",
				"error", err,
				"backoff", p.config.ReconnectBackoff)
			if !sleep(ctx, p.config.ReconnectBackoff) {
				return
			}
			continue
		}
		if raw == nil {
			// Timeout with no task; no task lost, no error.
			continue
		}

		task, err := domain.ParseTask(p.queueName, raw)
		if err != nil {
			p.logger.Error("dropping malformed task payload", "error", err)
			continue
		}

		p.logger.Debug("received task", "task_id", task.TaskID)

		if err := p.submitter.Submit(ctx, task); err != nil {
			// Submit only fails when ctx dies while waiting for a slot.
			p.logger.Info("stopping queue poller", "reason", err)
			return
		}
	}
}

// sleep waits for d or until ctx is cancelled, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
