package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-dev/lectern/internal/core/domain"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("Heaps are tree-shaped priority queues.", domain.QuizMCQ, 3)

	assert.Contains(t, prompt, "exactly 3 mcq questions")
	assert.Contains(t, prompt, "Heaps are tree-shaped priority queues.")
	assert.Contains(t, prompt, `"type": "mcq"`)
	assert.Contains(t, prompt, "JSON array")
}

func TestParseResponse(t *testing.T) {
	t.Run("plain array", func(t *testing.T) {
		questions, err := ParseResponse(`[
			{"type": "short", "question": "What shape is a heap?", "answer": "A tree"}
		]`)
		require.NoError(t, err)
		require.Len(t, questions, 1)
		q, ok := questions[0].(domain.ShortQuestion)
		require.True(t, ok)
		assert.Equal(t, "What shape is a heap?", q.Text)
	})

	t.Run("array wrapped in markdown fences", func(t *testing.T) {
		questions, err := ParseResponse("```json\n" +
			`[{"type": "truefalse", "question": "A heap is a tree.", "answer": "true"}]` +
			"\n```")
		require.NoError(t, err)
		require.Len(t, questions, 1)
		assert.Equal(t, domain.QuizTrueFalse, questions[0].Type())
	})

	t.Run("invalid element becomes unparsed fallback", func(t *testing.T) {
		questions, err := ParseResponse(`[
			{"type": "short", "question": "Q?", "answer": "A"},
			{"type": "mcq", "question": "Broken", "options": ["a", "b"], "correct": 9}
		]`)
		require.NoError(t, err)
		require.Len(t, questions, 2)
		assert.Equal(t, domain.QuizShort, questions[0].Type())
		_, ok := questions[1].(domain.UnparsedQuestion)
		assert.True(t, ok)
	})

	t.Run("no array at all", func(t *testing.T) {
		_, err := ParseResponse("I cannot generate questions for this material.")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidQuestion)
	})

	t.Run("bracket noise is not an array", func(t *testing.T) {
		_, err := ParseResponse("see section [3] of the notes]")
		require.Error(t, err)
	})
}
