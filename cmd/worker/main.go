// Package main implements the entry point for the ingestion worker,
// which consumes document-processing tasks from Redis queues, runs them
// through content-type pipelines, and writes generated study material
// back to the document store.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/studykit/ingest-worker/internal/config"
	"github.com/studykit/ingest-worker/internal/domain"
	"github.com/studykit/ingest-worker/internal/pipeline"
	"github.com/studykit/ingest-worker/internal/platform/gemini"
	"github.com/studykit/ingest-worker/internal/platform/logger"
	"github.com/studykit/ingest-worker/internal/platform/objectstore"
	"github.com/studykit/ingest-worker/internal/platform/pdftext"
	"github.com/studykit/ingest-worker/internal/platform/postgres"
	"github.com/studykit/ingest-worker/internal/platform/redisq"
	"github.com/studykit/ingest-worker/internal/platform/scraper"
	"github.com/studykit/ingest-worker/internal/platform/transcript"
	"github.com/studykit/ingest-worker/internal/task"
)

// statusInterval is how often the worker logs a liveness line with the
// current in-flight count.
const statusInterval = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Worker.LogLevel)
	appLogger.Info("worker configuration loaded",
		"max_workers", cfg.Worker.MaxWorkers,
		"task_timeout", cfg.Worker.TaskTimeout,
		"queues", domain.Queues(),
		"log_level", cfg.Worker.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connection failures to either backing store are fatal at startup:
	// a worker that cannot pop tasks or persist results has nothing to do.
	queue, err := redisq.NewClient(ctx, cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to task queue: %w", err)
	}
	defer func() { _ = queue.Close() }()
	appLogger.Info("task queue connection established")

	pool, err := postgres.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to document store: %w", err)
	}
	defer pool.Close()
	appLogger.Info("document store connection established")

	generator, err := gemini.NewGenerator(ctx, appLogger, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	resolver, err := objectstore.NewResolver(appLogger, cfg.ObjectStore, cfg.Fetch)
	if err != nil {
		return fmt.Errorf("failed to create file resolver: %w", err)
	}

	fetchClient := resty.New().SetTimeout(cfg.Fetch.ScrapeTimeout)

	router := pipeline.NewRouter(pipeline.Deps{
		Store:      postgres.NewDocumentStore(pool, appLogger),
		Generator:  generator,
		Resolver:   resolver,
		Extractor:  pdftext.NewExtractor(appLogger),
		Transcript: transcript.NewFetcher(appLogger, fetchClient),
		Scraper:    scraper.NewPageScraper(appLogger, fetchClient),
		Logger:     appLogger,
	})

	tracker := task.NewTracker(task.TrackerOptions{
		ScopeByQueue: cfg.Worker.ScopeDedupByQueue,
	})
	dispatcher := task.NewDispatcher(router, tracker, task.DispatcherConfig{
		MaxWorkers:  cfg.Worker.MaxWorkers,
		TaskTimeout: cfg.Worker.TaskTimeout,
	}, appLogger)

	pollerCfg := task.PollerConfig{
		PollTimeout:      cfg.Worker.PollTimeout,
		ReconnectBackoff: cfg.Worker.ReconnectBackoff,
	}

	var pollers sync.WaitGroup
	for _, queueName := range domain.Queues() {
		poller := task.NewPoller(queueName, queue, dispatcher, pollerCfg, appLogger)
		pollers.Add(1)
		go func() {
			defer pollers.Done()
			poller.Run(ctx)
		}()
	}
	appLogger.Info("worker started", "pollers", len(domain.Queues()))

	go statusLoop(ctx, appLogger, tracker)

	<-ctx.Done()
	appLogger.Info("shutdown signal received, draining")

	// Pollers notice the cancelled context and stop submitting; then
	// wait out whatever the dispatcher already accepted.
	pollers.Wait()
	dispatcher.Wait()

	appLogger.Info("worker stopped")
	return nil
}

func statusLoop(ctx context.Context, logger *slog.Logger, tracker *task.Tracker) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			logger.Info("worker alive", "in_flight", tracker.Len())
		case <-ctx.Done():
			return
		}
	}
}
