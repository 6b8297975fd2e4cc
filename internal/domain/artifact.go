package domain

import (
	"errors"
	"fmt"
)

// Bounds on generated study material, mirrored in the generator prompt.
const (
	MinItems = 1
	MaxItems = 10
)

// Validation errors for GeneratedArtifact.
var (
	ErrEmptySummary    = errors.New("artifact summary cannot be empty")
	ErrFlashcardCount  = errors.New("artifact must contain between 1 and 10 flashcards")
	ErrMCQCount        = errors.New("artifact must contain between 1 and 10 mcqs")
	ErrInvalidCard     = errors.New("flashcard must have both front and back")
	ErrInvalidMCQ      = errors.New("mcq is malformed")
	ErrInvalidMCQLabel = errors.New("mcq correct answer must be one of A, B, C, D")
)

// mcqLabels are the exact option labels every MCQ must carry.
var mcqLabels = []string{"A", "B", "C", "D"}

// Flashcard is a single front/back study card.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// MCQ is a multiple-choice question with four labeled options.
type MCQ struct {
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
}

// GeneratedArtifact is the structured study material produced for one
// document: a markdown summary plus bounded sets of flashcards and MCQs.
// The pipeline treats it as opaque beyond Validate.
type GeneratedArtifact struct {
	Summary    string      `json:"summary"`
	Flashcards []Flashcard `json:"flashcards"`
	MCQs       []MCQ       `json:"mcqs"`
}

// Validate checks the artifact against the structure the generator is asked
// to produce. An artifact that fails validation is treated as a malformed
// model response, not a partial success.
func (a *GeneratedArtifact) Validate() error {
	if a.Summary == "" {
		return ErrEmptySummary
	}

	if len(a.Flashcards) < MinItems || len(a.Flashcards) > MaxItems {
		return fmt.Errorf("%w: got %d", ErrFlashcardCount, len(a.Flashcards))
	}
	for i, card := range a.Flashcards {
		if card.Front == "" || card.Back == "" {
			return fmt.Errorf("%w: flashcard %d", ErrInvalidCard, i)
		}
	}

	if len(a.MCQs) < MinItems || len(a.MCQs) > MaxItems {
		return fmt.Errorf("%w: got %d", ErrMCQCount, len(a.MCQs))
	}
	for i, mcq := range a.MCQs {
		if mcq.Question == "" {
			return fmt.Errorf("%w: mcq %d missing question", ErrInvalidMCQ, i)
		}
		if len(mcq.Options) != len(mcqLabels) {
			return fmt.Errorf("%w: mcq %d has %d options", ErrInvalidMCQ, i, len(mcq.Options))
		}
		for _, label := range mcqLabels {
			if _, ok := mcq.Options[label]; !ok {
				return fmt.Errorf("%w: mcq %d missing option %s", ErrInvalidMCQ, i, label)
			}
		}
		if !isMCQLabel(mcq.CorrectAnswer) {
			return fmt.Errorf("%w: mcq %d has %q", ErrInvalidMCQLabel, i, mcq.CorrectAnswer)
		}
	}

	return nil
}

func isMCQLabel(s string) bool {
	for _, label := range mcqLabels {
		if s == label {
			return true
		}
	}
	return false
}
