package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"text/template"
	"time"

	"google.golang.org/genai"

	"github.com/studykit/ingest-worker/internal/config"
	"github.com/studykit/ingest-worker/internal/domain"
	"github.com/studykit/ingest-worker/internal/generation"
)

// maxSolicitations bounds how many times a malformed model response is
// sent back for repair before giving up.
const maxSolicitations = 3

// modelCaller is the seam between the generator logic and the Gemini
// SDK, so the retry and re-solicitation loops can be tested without the
// network.
type modelCaller interface {
	generateText(ctx context.Context, prompt string) (string, error)
}

// Generator implements generation.Generator using the Gemini API.
type Generator struct {
	logger *slog.Logger
	config config.LLMConfig
	tmpl   *template.Template
	caller modelCaller
	rng    *rand.Rand
	sleep  func(ctx context.Context, d time.Duration) error
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Generator backed by a real Gemini client.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newGenerator(logger, cfg, &genaiCaller{client: client, model: cfg.ModelName})
}

// newGenerator wires a Generator around an arbitrary caller.
func newGenerator(logger *slog.Logger, cfg config.LLMConfig, caller modelCaller) (*Generator, error) {
	tmpl, err := template.New("artifact").Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger: logger.With(slog.String("component", "gemini_generator")),
		config: cfg,
		tmpl:   tmpl,
		caller: caller,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:  defaultSleep,
	}, nil
}

// Generate produces a study artifact for the given source text. A model
// response that fails parsing or validation is sent back for repair up
// to maxSolicitations times before the whole call is reported invalid.
func (g *Generator) Generate(ctx context.Context, text string) (*domain.GeneratedArtifact, error) {
	if text == "" {
		return nil, generation.ErrEmptyInput
	}

	prompt, err := buildPrompt(g.tmpl, text)
	if err != nil {
		return nil, err
	}

	var lastProblem string
	for round := 1; round <= maxSolicitations; round++ {
		p := prompt
		if lastProblem != "" {
			p += fmt.Sprintf(repairSuffix, lastProblem)
		}

		raw, err := g.callWithRetry(ctx, p)
		if err != nil {
			return nil, err
		}

		artifact, parseErr := parseArtifact(raw)
		if parseErr == nil {
			g.logger.InfoContext(ctx, "artifact generated",
				"round", round,
				"flashcards", len(artifact.Flashcards),
				"mcqs", len(artifact.MCQs))
			return artifact, nil
		}

		lastProblem = parseErr.Error()
		g.logger.WarnContext(ctx, "model response rejected, re-soliciting",
			"round", round,
			"max_rounds", maxSolicitations,
			"problem", lastProblem)
	}

	return nil, fmt.Errorf("%w: rejected after %d rounds: %s",
		generation.ErrInvalidResponse, maxSolicitations, lastProblem)
}

// callWithRetry calls the model, retrying transient failures with
// exponential backoff and jitter. Permanent failures (safety blocks,
// context cancellation) are returned immediately.
func (g *Generator) callWithRetry(ctx context.Context, prompt string) (string, error) {
	// MaxRetries counts retries after the first call, so the total
	// attempt budget is MaxRetries+1 (3 with the default of 2).
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 2
	}
	baseDelaySeconds := g.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		raw, err := g.caller.generateText(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if errors.Is(err, generation.ErrContentBlocked) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}

		g.logger.WarnContext(ctx, "model call failed",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1,
			"error", err)

		if attempt == maxRetries {
			break
		}

		// delay = base * 2^attempt * jitter in [0.5, 1.0)
		backoff := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + g.rng.Float64()*0.5) * float64(time.Second))

		if err := g.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
	}

	return "", fmt.Errorf("%w: exceeded %d attempts: %v",
		generation.ErrTransientFailure, maxRetries+1, lastErr)
}

// parseArtifact decodes and validates one model response.
func parseArtifact(raw string) (*domain.GeneratedArtifact, error) {
	cleaned := stripJSONFences(raw)
	if cleaned == "" {
		return nil, errors.New("response was empty")
	}

	var artifact domain.GeneratedArtifact
	if err := json.Unmarshal([]byte(cleaned), &artifact); err != nil {
		return nil, fmt.Errorf("response was not valid JSON: %v", err)
	}
	if err := artifact.Validate(); err != nil {
		return nil, err
	}
	return &artifact, nil
}

// genaiCaller is the production modelCaller over the Gemini SDK.
type genaiCaller struct {
	client *genai.Client
	model  string
}

func (c *genaiCaller) generateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", generation.ErrContentBlocked
	}
	return resp.Text(), nil
}
