// Package gemini implements the generation.Generator interface using
// Google's Gemini API. It layers two recovery loops over the raw API
// call: exponential-backoff retries for transient transport failures,
// and bounded re-solicitation when the model returns output that cannot
// be parsed into a valid study artifact.
package gemini
