package driving

import (
	"context"

	"github.com/lectern-dev/lectern/internal/core/domain"
)

// QuizRequest configures quiz generation for a document.
type QuizRequest struct {
	// DocumentID is the source document.
	DocumentID string

	// Type selects the question kind.
	Type domain.QuizType

	// Count is the number of questions to generate (default 5).
	Count int

	// Topic optionally focuses retrieval on a subject; when empty a
	// generic whole-document sample is used instead.
	Topic string
}

// QuizService generates quizzes grounded on retrieved chunks.
type QuizService interface {
	// Generate retrieves relevant chunks and prompts the generation
	// model for questions.
	Generate(ctx context.Context, req QuizRequest) (*domain.Quiz, error)
}
