package task

import (
	"sync"

	"github.com/studykit/ingest-worker/internal/domain"
)

// TrackerOptions configures idempotency tracking.
type TrackerOptions struct {
	// ScopeByQueue mixes the queue name into fingerprints, isolating
	// structurally identical payloads submitted to different queues.
	// Disabled by default: unscoped fingerprints match the reference
	// behavior, where such payloads collide. The scoping is a constructor
	// parameter precisely so the choice is explicit and testable.
	ScopeByQueue bool
}

// Tracker guards against a task being processed twice concurrently. It is
// an explicitly-scoped registry injected into the Dispatcher, never
// package-level state, so tests get a fresh instance per case.
//
// Fingerprints acquired for successfully processed tasks are deliberately
// never released: the guarantee is at-most-once per process lifetime, not a
// general dedup cache. Only the unexpected-failure path (panic) releases an
// entry, permitting a resubmission of the identical payload to be retried.
// A process restart resets the registry entirely.
type Tracker struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	opts     TrackerOptions
}

// NewTracker creates an empty tracker.
func NewTracker(opts TrackerOptions) *Tracker {
	return &Tracker{
		inFlight: make(map[string]struct{}),
		opts:     opts,
	}
}

// Fingerprint computes the dedup key for a task under this tracker's
// scoping policy.
func (t *Tracker) Fingerprint(task *domain.IngestionTask) string {
	return task.Fingerprint(t.opts.ScopeByQueue)
}

// TryAcquire atomically tests for presence and inserts if absent. A false
// return means the fingerprint is already held and the caller must skip
// processing.
func (t *Tracker) TryAcquire(fingerprint string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.inFlight[fingerprint]; exists {
		return false
	}
	t.inFlight[fingerprint] = struct{}{}
	return true
}

// Release removes a fingerprint. Must be invoked only on the
// abnormal-termination path; successful completions keep their entry.
func (t *Tracker) Release(fingerprint string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inFlight, fingerprint)
}

// Len reports the number of held fingerprints, for status logging.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inFlight)
}
