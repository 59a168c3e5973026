package driven

import (
	"context"

	"github.com/lectern-dev/lectern/internal/core/domain"
)

// QuizModel prompts a generative model for quiz questions grounded on a
// context block of retrieved passages. This is an optional service -
// when nil, quiz generation is disabled.
type QuizModel interface {
	// GenerateQuestions produces count questions of the given type from
	// the context block. Model output is validated at the boundary;
	// unparseable questions come back as domain.UnparsedQuestion.
	GenerateQuestions(ctx context.Context, contextBlock string, quizType domain.QuizType, count int) ([]domain.Question, error)

	// Close releases resources.
	Close() error
}
