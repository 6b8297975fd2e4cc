package domain

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Queue names monitored by the worker. Producers push JSON task payloads
// onto these; each maps to exactly one pipeline variant.
const (
	QueuePDF     = "process-pdf"
	QueueText    = "process-text"
	QueueVideo   = "process-ytvideo"
	QueueWebsite = "process-website"
)

// Queues returns the full set of monitored queue names.
func Queues() []string {
	return []string{QueuePDF, QueueText, QueueVideo, QueueWebsite}
}

// IngestionTask is the unit of work read off a queue. It is created by an
// external producer, consumed by exactly one pipeline execution, and never
// persisted or mutated by the worker.
type IngestionTask struct {
	// QueueName is the queue the task was popped from.
	QueueName string

	// TaskID uniquely identifies this task. If the producer did not supply
	// an "id" field it is derived from the payload (see ParseTask).
	TaskID string

	// DocumentID identifies the target document record. Opaque to the
	// worker; interpreted by the document store.
	DocumentID string

	// UserID identifies the owner of the document. Both ids are required
	// for any record access.
	UserID string

	// Payload holds the full decoded task body, including fields the
	// worker itself does not interpret.
	Payload map[string]any
}

// ParseTask decodes a raw queue element into an IngestionTask.
//
// The payload must be a JSON object. documentId and userId are extracted but
// not validated here; the pipeline's validate stage rejects empty ids so
// that a missing-id task still produces a tagged PipelineResult rather than
// being dropped. If the producer supplied no "id" field, a task id is
// derived from a fresh UUID plus a short hash of the canonical payload, so
// re-submitting an identical payload yields a new id unless the producer
// pins one explicitly.
func ParseTask(queueName string, raw []byte) (*IngestionTask, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid task JSON: %w", err)
	}

	task := &IngestionTask{
		QueueName: queueName,
		Payload:   payload,
	}

	if id, ok := payload["documentId"].(string); ok {
		task.DocumentID = id
	}
	if id, ok := payload["userId"].(string); ok {
		task.UserID = id
	}

	if id, ok := payload["id"].(string); ok && id != "" {
		task.TaskID = id
	} else {
		task.TaskID = deriveTaskID(payload)
	}

	return task, nil
}

// deriveTaskID builds a task id from a random UUID and the first 8 hex
// characters of the canonical payload's MD5, matching the producer-visible
// id format.
func deriveTaskID(payload map[string]any) string {
	sum := md5.Sum(canonicalJSON(payload))
	return fmt.Sprintf("%s_%s", uuid.New().String(), hex.EncodeToString(sum[:])[:8])
}

// Fingerprint computes the dedup key for a task: a SHA-256 over the
// canonical (sorted-key) JSON serialization of the payload. When
// scopeByQueue is true the queue name is mixed into the hash, isolating
// structurally identical payloads submitted to different queues; when false
// such payloads collide, which matches the reference behavior.
func (t *IngestionTask) Fingerprint(scopeByQueue bool) string {
	h := sha256.New()
	if scopeByQueue {
		h.Write([]byte(t.QueueName))
		h.Write([]byte{0})
	}
	h.Write(canonicalJSON(t.Payload))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalJSON serializes a payload with object keys in sorted order so
// that field ordering in the producer's JSON does not affect hashes.
func canonicalJSON(v any) []byte {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, _ := json.Marshal(k)
			buf = append(buf, kb...)
			buf = append(buf, ':')
			buf = append(buf, canonicalJSON(val[k])...)
		}
		return append(buf, '}')
	case []any:
		buf := []byte{'['}
		for i, item := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, canonicalJSON(item)...)
		}
		return append(buf, ']')
	default:
		b, _ := json.Marshal(val)
		return b
	}
}
