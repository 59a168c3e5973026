package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-dev/lectern/internal/core/domain"
	"github.com/lectern-dev/lectern/internal/core/ports/driving"
)

// fakeQuizModel records the prompt material and returns canned questions.
type fakeQuizModel struct {
	lastContext string
	lastType    domain.QuizType
	lastCount   int
	questions   []domain.Question
	err         error
}

func (m *fakeQuizModel) GenerateQuestions(
	_ context.Context, contextBlock string, quizType domain.QuizType, count int,
) ([]domain.Question, error) {
	m.lastContext = contextBlock
	m.lastType = quizType
	m.lastCount = count
	if m.err != nil {
		return nil, m.err
	}
	return m.questions, nil
}

func (m *fakeQuizModel) Close() error { return nil }

func newQuizFixture(t *testing.T) (*QuizService, *fakeQuizModel) {
	t.Helper()
	c := seedCorpus(t)
	model := &fakeQuizModel{
		questions: []domain.Question{
			domain.MCQQuestion{
				Text:    "What does backpropagation adjust?",
				Options: []string{"Weights", "Inputs", "Labels", "Layers"},
				Correct: 0,
			},
		},
	}
	return NewQuizService(c.store, c.retrieval, model), model
}

func TestQuizService_Generate(t *testing.T) {
	svc, model := newQuizFixture(t)

	quiz, err := svc.Generate(context.Background(), driving.QuizRequest{
		DocumentID: "doc-1",
		Type:       domain.QuizMCQ,
		Count:      3,
	})
	require.NoError(t, err)
	require.NotNil(t, quiz)

	assert.NotEmpty(t, quiz.ID)
	assert.Equal(t, "doc-1", quiz.DocumentID)
	assert.Equal(t, domain.QuizMCQ, quiz.Type)
	assert.Equal(t, "doc-1", quiz.Title)
	require.Len(t, quiz.Questions, 1)
	assert.NotEmpty(t, quiz.SourceChunkIDs)
	assert.False(t, quiz.CreatedAt.IsZero())

	// The model saw the request parameters and grounded material.
	assert.Equal(t, domain.QuizMCQ, model.lastType)
	assert.Equal(t, 3, model.lastCount)
	assert.Contains(t, model.lastContext, "[passage 1, page")
}

func TestQuizService_Generate_TopicFocus(t *testing.T) {
	svc, model := newQuizFixture(t)

	quiz, err := svc.Generate(context.Background(), driving.QuizRequest{
		DocumentID: "doc-1",
		Type:       domain.QuizShort,
		Topic:      "gradient descent",
	})
	require.NoError(t, err)

	assert.Equal(t, "doc-1: gradient descent", quiz.Title)
	assert.Contains(t, strings.ToLower(model.lastContext), "gradient descent")

	// Grounding stays inside the requested document.
	for _, id := range quiz.SourceChunkIDs {
		assert.True(t, strings.HasPrefix(id, "doc-1-"), "chunk %s from another document", id)
	}
}

func TestQuizService_Generate_DefaultCount(t *testing.T) {
	svc, model := newQuizFixture(t)

	_, err := svc.Generate(context.Background(), driving.QuizRequest{
		DocumentID: "doc-1",
		Type:       domain.QuizTrueFalse,
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultQuestionCount, model.lastCount)
}

func TestQuizService_Generate_NoModel(t *testing.T) {
	c := seedCorpus(t)
	svc := NewQuizService(c.store, c.retrieval, nil)

	_, err := svc.Generate(context.Background(), driving.QuizRequest{
		DocumentID: "doc-1",
		Type:       domain.QuizMCQ,
	})
	assert.ErrorIs(t, err, domain.ErrQuizModelUnavailable)
}

func TestQuizService_Generate_InvalidRequest(t *testing.T) {
	svc, _ := newQuizFixture(t)

	t.Run("missing document id", func(t *testing.T) {
		_, err := svc.Generate(context.Background(), driving.QuizRequest{Type: domain.QuizMCQ})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown quiz type", func(t *testing.T) {
		_, err := svc.Generate(context.Background(), driving.QuizRequest{
			DocumentID: "doc-1",
			Type:       domain.QuizType("essay"),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown document", func(t *testing.T) {
		_, err := svc.Generate(context.Background(), driving.QuizRequest{
			DocumentID: "missing",
			Type:       domain.QuizMCQ,
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestQuizService_Generate_ModelFailure(t *testing.T) {
	svc, model := newQuizFixture(t)
	model.err = domain.ErrQuizModelUnavailable

	_, err := svc.Generate(context.Background(), driving.QuizRequest{
		DocumentID: "doc-1",
		Type:       domain.QuizMCQ,
	})
	assert.ErrorIs(t, err, domain.ErrQuizModelUnavailable)
}
