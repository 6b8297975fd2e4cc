package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// validArtifact returns a minimal artifact that passes validation.
func validArtifact() *GeneratedArtifact {
	return &GeneratedArtifact{
		Summary: "## Notes\n- ATP is produced in mitochondria",
		Flashcards: []Flashcard{
			{Front: "What produces ATP?", Back: "Mitochondria"},
		},
		MCQs: []MCQ{
			{
				Question: "Where is ATP produced?",
				Options: map[string]string{
					"A": "Nucleus", "B": "Mitochondria", "C": "Ribosome", "D": "Golgi",
				},
				CorrectAnswer: "B",
			},
		},
	}
}

func TestArtifactValidate(t *testing.T) {
	assert.NoError(t, validArtifact().Validate())
}

func TestArtifactValidateEmptySummary(t *testing.T) {
	a := validArtifact()
	a.Summary = ""
	assert.ErrorIs(t, a.Validate(), ErrEmptySummary)
}

func TestArtifactValidateFlashcardBounds(t *testing.T) {
	a := validArtifact()
	a.Flashcards = nil
	assert.ErrorIs(t, a.Validate(), ErrFlashcardCount)

	a = validArtifact()
	for i := 0; i < MaxItems; i++ {
		a.Flashcards = append(a.Flashcards, Flashcard{Front: "f", Back: "b"})
	}
	assert.ErrorIs(t, a.Validate(), ErrFlashcardCount)
}

func TestArtifactValidateFlashcardSides(t *testing.T) {
	a := validArtifact()
	a.Flashcards[0].Back = ""
	assert.ErrorIs(t, a.Validate(), ErrInvalidCard)
}

func TestArtifactValidateMCQ(t *testing.T) {
	a := validArtifact()
	a.MCQs = nil
	assert.ErrorIs(t, a.Validate(), ErrMCQCount)

	a = validArtifact()
	delete(a.MCQs[0].Options, "D")
	assert.ErrorIs(t, a.Validate(), ErrInvalidMCQ)

	a = validArtifact()
	a.MCQs[0].Options["E"] = "extra"
	assert.ErrorIs(t, a.Validate(), ErrInvalidMCQ)

	a = validArtifact()
	a.MCQs[0].CorrectAnswer = "E"
	assert.ErrorIs(t, a.Validate(), ErrInvalidMCQLabel)

	a = validArtifact()
	a.MCQs[0].Question = ""
	assert.ErrorIs(t, a.Validate(), ErrInvalidMCQ)
}
