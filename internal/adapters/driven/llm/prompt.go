// Package llm holds the prompt construction and response parsing
// shared by the quiz model adapters. The adapters differ only in the
// API they call; the instructions sent to the model and the boundary
// validation of what comes back are identical.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lectern-dev/lectern/internal/core/domain"
)

// typeInstructions describes the expected wire shape per quiz type.
var typeInstructions = map[domain.QuizType]string{
	domain.QuizMCQ: `Each question object must have:
- "type": "mcq"
- "question": the question text
- "options": exactly 4 distinct answer choices
- "correct": the zero-based index of the right option
- "explanation": one sentence justifying the answer
Randomize the position of the correct option. Distractors must be plausible but wrong.`,

	domain.QuizTrueFalse: `Each question object must have:
- "type": "truefalse"
- "question": a statement to judge
- "answer": "true" or "false"
- "explanation": one sentence justifying the answer
Mix true and false statements; avoid trivially worded ones.`,

	domain.QuizShort: `Each question object must have:
- "type": "short"
- "question": the question text
- "answer": the expected answer in at most 5 words
- "explanation": one sentence justifying the answer`,
}

// BuildPrompt renders the generation prompt for one quiz request.
// The context block is the retrieved lecture material the questions
// must be grounded on.
func BuildPrompt(contextBlock string, quizType domain.QuizType, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert quiz generator for university lecture material.\n")
	fmt.Fprintf(&b, "Create exactly %d %s questions based ONLY on the material below.\n\n", count, quizType)
	b.WriteString("Material:\n---\n")
	b.WriteString(contextBlock)
	b.WriteString("\n---\n\n")
	b.WriteString(typeInstructions[quizType])
	b.WriteString(`

Respond ONLY with a JSON array of question objects. No prose, no markdown fences, no text before or after the array.`)
	return b.String()
}

// ParseResponse extracts the JSON array from a model response and
// validates each element. Unparseable elements come back as
// domain.UnparsedQuestion so the caller can decide whether to keep
// them; a response with no array at all is an error.
func ParseResponse(response string) ([]domain.Question, error) {
	arr, err := extractJSONArray(response)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(arr, &items); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON array: %v", domain.ErrInvalidQuestion, err)
	}

	questions := make([]domain.Question, 0, len(items))
	for _, item := range items {
		q, _ := domain.ParseQuestion(item)
		questions = append(questions, q)
	}
	return questions, nil
}

// extractJSONArray finds the outermost JSON array in the response.
// Models wrap output in markdown fences or prose often enough that
// scanning for the brackets beats trusting the raw body.
func extractJSONArray(s string) ([]byte, error) {
	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array in model response", domain.ErrInvalidQuestion)
	}
	return []byte(s[start : end+1]), nil
}
