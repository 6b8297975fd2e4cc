package gemini

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/studykit/ingest-worker/internal/domain"
)

// promptTemplate instructs the model to return a single JSON object with
// the exact shape of domain.GeneratedArtifact. The item bounds and the
// option-label requirements are spelled out because the response is
// validated strictly and out-of-shape output costs a re-solicitation
// round trip.
const promptTemplate = `You are an expert study-material author. Read the source text below and produce learning aids from it.

Respond with a single JSON object and nothing else. No markdown, no commentary. The object must have exactly these fields:

{
  "summary": "a concise summary of the source text",
  "flashcards": [
    {"front": "question or term", "back": "answer or definition"}
  ],
  "mcqs": [
    {
      "question": "a multiple-choice question",
      "options": {"A": "...", "B": "...", "C": "...", "D": "..."},
      "correct_answer": "A"
    }
  ]
}

Rules:
- "flashcards" and "mcqs" must each contain between {{.MinItems}} and {{.MaxItems}} items.
- Every MCQ must have exactly four options labeled "A", "B", "C" and "D".
- "correct_answer" must be one of "A", "B", "C" or "D".
- Every field must be non-empty and grounded in the source text.

Source text:
---
{{.SourceText}}
---
`

// repairSuffix is appended to the prompt when a previous model response
// failed parsing or validation, asking the model to try again.
const repairSuffix = `

Your previous response could not be used: %s
Respond again with ONLY the JSON object, exactly in the shape described above.`

type promptData struct {
	SourceText string
	MinItems   int
	MaxItems   int
}

// buildPrompt renders the generation prompt for the given source text.
func buildPrompt(tmpl *template.Template, sourceText string) (string, error) {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, promptData{
		SourceText: sourceText,
		MinItems:   domain.MinItems,
		MaxItems:   domain.MaxItems,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// stripJSONFences removes a surrounding markdown code fence from the model
// output, tolerating a "json" language tag. Models frequently wrap JSON
// this way despite instructions not to.
func stripJSONFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
