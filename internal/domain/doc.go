// Package domain contains the core entities and value objects of the
// ingestion worker: queue names, parsed ingestion tasks and their
// idempotency fingerprints, generated study artifacts, the tagged error
// taxonomy, and pipeline results. It is independent of any specific
// infrastructure or delivery mechanism.
package domain
