package domain

import "time"

// ResultStatus is the terminal state of a pipeline execution.
type ResultStatus string

// Possible result status values
const (
	ResultCompleted ResultStatus = "completed"
	ResultFailed    ResultStatus = "failed"
)

// PipelineResult records the outcome of one pipeline execution. Results are
// emitted to the log only; there is no result queue or acknowledgment back
// to the producer.
type PipelineResult struct {
	TaskID string
	Queue  string
	Status ResultStatus

	// Err carries the tagged failure when Status is ResultFailed;
	// classify with errors.Is against the Err* sentinels.
	Err error

	// ProcessingTime is the wall-clock duration of the pipeline run.
	ProcessingTime time.Duration

	CompletedAt time.Time
}

// Completed builds a successful result for the given task.
func Completed(task *IngestionTask, elapsed time.Duration) PipelineResult {
	return PipelineResult{
		TaskID:         task.TaskID,
		Queue:          task.QueueName,
		Status:         ResultCompleted,
		ProcessingTime: elapsed,
		CompletedAt:    time.Now().UTC(),
	}
}

// Failed builds a failed result tagged with err.
func Failed(task *IngestionTask, err error, elapsed time.Duration) PipelineResult {
	return PipelineResult{
		TaskID:         task.TaskID,
		Queue:          task.QueueName,
		Status:         ResultFailed,
		Err:            err,
		ProcessingTime: elapsed,
		CompletedAt:    time.Now().UTC(),
	}
}
