package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lectern-dev/lectern/internal/core/domain"
	"github.com/lectern-dev/lectern/internal/core/ports/driven"
	"github.com/lectern-dev/lectern/internal/core/ports/driving"
	"github.com/lectern-dev/lectern/internal/logger"
)

// Ensure QuizService implements the interface.
var _ driving.QuizService = (*QuizService)(nil)

const (
	// DefaultQuestionCount is used when the request leaves Count unset.
	DefaultQuestionCount = 5

	// quizContextChunks is how many chunks ground one quiz.
	quizContextChunks = 8
)

// QuizService generates quizzes grounded on retrieved chunks.
type QuizService struct {
	docStore  driven.DocumentStore
	retrieval driving.RetrievalService
	model     driven.QuizModel
}

// NewQuizService creates a new quiz service. The model is optional (can
// be nil); generation then fails with ErrQuizModelUnavailable.
func NewQuizService(
	docStore driven.DocumentStore,
	retrieval driving.RetrievalService,
	model driven.QuizModel,
) *QuizService {
	return &QuizService{
		docStore:  docStore,
		retrieval: retrieval,
		model:     model,
	}
}

// Generate retrieves relevant chunks and prompts the generation model
// for questions. With a topic the retrieval is focused; without one a
// generic whole-document sample grounds the quiz.
func (s *QuizService) Generate(ctx context.Context, req driving.QuizRequest) (*domain.Quiz, error) {
	if s.model == nil {
		return nil, domain.ErrQuizModelUnavailable
	}
	if req.DocumentID == "" {
		return nil, fmt.Errorf("%w: document id required", domain.ErrInvalidInput)
	}
	if !domain.ValidQuizType(req.Type) {
		return nil, fmt.Errorf("%w: unknown quiz type %q", domain.ErrInvalidInput, req.Type)
	}
	count := req.Count
	if count <= 0 {
		count = DefaultQuestionCount
	}

	doc, err := s.docStore.GetDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	logger.Section("Quiz Generation")
	logger.Debug("Document: %s, type: %s, count: %d, topic: %q", doc.ID, req.Type, count, req.Topic)

	result, err := s.ground(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(result.Chunks) == 0 {
		return nil, fmt.Errorf("%w: no indexed content for document %s",
			domain.ErrInvalidInput, req.DocumentID)
	}
	if result.Degraded {
		logger.Warn("Quiz grounding used a degraded retrieval result")
	}

	contextBlock := buildContextBlock(result.Chunks)
	logger.Debug("Context block: %d chunks, %d characters", len(result.Chunks), len(contextBlock))

	questions, err := s.model.GenerateQuestions(ctx, contextBlock, req.Type, count)
	if err != nil {
		return nil, err
	}
	logger.Info("Generated %d questions", len(questions))

	chunkIDs := make([]string, len(result.Chunks))
	for i, rc := range result.Chunks {
		chunkIDs[i] = rc.Chunk.ID
	}

	return &domain.Quiz{
		ID:             uuid.NewString(),
		DocumentID:     doc.ID,
		Title:          quizTitle(doc.Name, req.Topic),
		Type:           req.Type,
		Questions:      questions,
		SourceChunkIDs: chunkIDs,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// ground selects the chunks a quiz is based on: focused retrieval when a
// topic is given, a whole-document sample otherwise.
func (s *QuizService) ground(ctx context.Context, req driving.QuizRequest) (*domain.RetrievalResult, error) {
	if req.Topic != "" {
		return s.retrieval.Retrieve(ctx, req.Topic, domain.RetrieveOptions{
			TopK:       quizContextChunks,
			DocumentID: req.DocumentID,
		})
	}
	return s.retrieval.RetrieveSample(ctx, req.DocumentID, quizContextChunks)
}

// buildContextBlock concatenates ranked chunks into the passage material
// handed to the model, tagging each passage with its page.
func buildContextBlock(chunks []domain.RetrievedChunk) string {
	var b strings.Builder
	for i, rc := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[passage %d, page %d]\n%s", i+1, rc.Chunk.Page, rc.Chunk.Content)
	}
	return b.String()
}

// quizTitle builds a display title from the document name and topic.
func quizTitle(docName, topic string) string {
	name := strings.TrimSuffix(docName, ".pdf")
	if topic != "" {
		return fmt.Sprintf("%s: %s", name, topic)
	}
	return name
}
