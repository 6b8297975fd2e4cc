package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTask(t *testing.T) {
	raw := []byte(`{"documentId":"d1","userId":"u1","source":"upload"}`)

	task, err := ParseTask(QueueText, raw)
	require.NoError(t, err)

	assert.Equal(t, QueueText, task.QueueName)
	assert.Equal(t, "d1", task.DocumentID)
	assert.Equal(t, "u1", task.UserID)
	assert.Equal(t, "upload", task.Payload["source"])
	assert.NotEmpty(t, task.TaskID)
}

func TestParseTaskInvalidJSON(t *testing.T) {
	_, err := ParseTask(QueueText, []byte(`{not json`))
	assert.Error(t, err)
}

func TestParseTaskMissingIDs(t *testing.T) {
	// Missing ids must parse; the pipeline's validate stage rejects them.
	task, err := ParseTask(QueuePDF, []byte(`{"foo":"bar"}`))
	require.NoError(t, err)
	assert.Empty(t, task.DocumentID)
	assert.Empty(t, task.UserID)
}

func TestParseTaskExplicitID(t *testing.T) {
	task, err := ParseTask(QueueText, []byte(`{"id":"my-task","documentId":"d1","userId":"u1"}`))
	require.NoError(t, err)
	assert.Equal(t, "my-task", task.TaskID)
}

func TestParseTaskDerivedIDIsNotStable(t *testing.T) {
	raw := []byte(`{"documentId":"d1","userId":"u1"}`)

	task1, err := ParseTask(QueueText, raw)
	require.NoError(t, err)
	task2, err := ParseTask(QueueText, raw)
	require.NoError(t, err)

	// The UUID disambiguator makes re-submitted payloads get fresh ids,
	// but the payload-hash suffix is shared.
	assert.NotEqual(t, task1.TaskID, task2.TaskID)
	suffix := func(id string) string {
		parts := strings.Split(id, "_")
		return parts[len(parts)-1]
	}
	assert.Equal(t, suffix(task1.TaskID), suffix(task2.TaskID))
}

func TestFingerprintIgnoresFieldOrder(t *testing.T) {
	a, err := ParseTask(QueueText, []byte(`{"documentId":"d1","userId":"u1"}`))
	require.NoError(t, err)
	b, err := ParseTask(QueueText, []byte(`{"userId":"u1","documentId":"d1"}`))
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(false), b.Fingerprint(false))
}

func TestFingerprintQueueScoping(t *testing.T) {
	raw := []byte(`{"documentId":"d1","userId":"u1"}`)

	onText, err := ParseTask(QueueText, raw)
	require.NoError(t, err)
	onPDF, err := ParseTask(QueuePDF, raw)
	require.NoError(t, err)

	// Unscoped fingerprints collide across queues; scoped ones do not.
	assert.Equal(t, onText.Fingerprint(false), onPDF.Fingerprint(false))
	assert.NotEqual(t, onText.Fingerprint(true), onPDF.Fingerprint(true))
}

func TestFingerprintNestedCanonicalization(t *testing.T) {
	a, err := ParseTask(QueueText, []byte(`{"documentId":"d1","userId":"u1","meta":{"x":1,"y":[1,2]}}`))
	require.NoError(t, err)
	b, err := ParseTask(QueueText, []byte(`{"meta":{"y":[1,2],"x":1},"userId":"u1","documentId":"d1"}`))
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(false), b.Fingerprint(false))
}
