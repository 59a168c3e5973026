package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// QuizType selects the kind of questions to generate.
type QuizType string

const (
	// QuizMCQ generates multiple-choice questions.
	QuizMCQ QuizType = "mcq"

	// QuizTrueFalse generates true/false questions.
	QuizTrueFalse QuizType = "truefalse"

	// QuizShort generates short-answer questions.
	QuizShort QuizType = "short"
)

// ValidQuizType reports whether t is a known quiz type.
func ValidQuizType(t QuizType) bool {
	switch t {
	case QuizMCQ, QuizTrueFalse, QuizShort:
		return true
	}
	return false
}

// Question is a generated quiz question. Implementations form a tagged
// variant discriminated by Type; model output that cannot be parsed into
// a valid variant becomes an UnparsedQuestion rather than a partially
// filled struct.
type Question interface {
	// Type returns the variant discriminator.
	Type() QuizType

	// Prompt returns the question text shown to the student.
	Prompt() string
}

// MCQQuestion is a multiple-choice question with exactly one correct option.
type MCQQuestion struct {
	// Text is the question prompt.
	Text string

	// Options are the candidate answers, in display order.
	Options []string

	// Correct is the index into Options of the right answer.
	Correct int

	// Explanation justifies the correct answer. Optional.
	Explanation string
}

// Type returns the variant discriminator.
func (q MCQQuestion) Type() QuizType { return QuizMCQ }

// Prompt returns the question text.
func (q MCQQuestion) Prompt() string { return q.Text }

// Validate checks structural invariants of the question.
func (q MCQQuestion) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("%w: empty question text", ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: need at least 2 options, got %d", ErrInvalidQuestion, len(q.Options))
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return fmt.Errorf("%w: correct index %d out of range", ErrInvalidQuestion, q.Correct)
	}
	return nil
}

// TrueFalseQuestion is a true/false question.
type TrueFalseQuestion struct {
	// Text is the statement to judge.
	Text string

	// Answer is the correct judgement.
	Answer bool

	// Explanation justifies the answer. Optional.
	Explanation string
}

// Type returns the variant discriminator.
func (q TrueFalseQuestion) Type() QuizType { return QuizTrueFalse }

// Prompt returns the statement text.
func (q TrueFalseQuestion) Prompt() string { return q.Text }

// ShortQuestion is a short-answer question with a sample answer.
type ShortQuestion struct {
	// Text is the question prompt.
	Text string

	// Answer is the expected short answer.
	Answer string

	// Explanation justifies the answer. Optional.
	Explanation string
}

// Type returns the variant discriminator.
func (q ShortQuestion) Type() QuizType { return QuizShort }

// Prompt returns the question text.
func (q ShortQuestion) Prompt() string { return q.Text }

// UnparsedQuestion is the fallback variant for model output that failed
// boundary validation. It preserves the raw payload for inspection.
type UnparsedQuestion struct {
	// Raw is the unmodified model output.
	Raw string

	// Reason explains why parsing failed.
	Reason string
}

// Type returns the variant discriminator.
func (q UnparsedQuestion) Type() QuizType { return QuizType("unparsed") }

// Prompt returns the raw payload.
func (q UnparsedQuestion) Prompt() string { return q.Raw }

// Quiz is a set of generated questions grounded on retrieved chunks.
type Quiz struct {
	// ID is the unique quiz identifier.
	ID string

	// DocumentID links to the source document.
	DocumentID string

	// Title is a human-readable quiz title.
	Title string

	// Type is the quiz type requested at generation time.
	Type QuizType

	// Questions are the generated questions in order.
	Questions []Question

	// SourceChunkIDs are the chunks the quiz was grounded on.
	SourceChunkIDs []string

	// CreatedAt is the generation timestamp.
	CreatedAt time.Time
}

// questionPayload is the wire shape produced by the generation model.
type questionPayload struct {
	Type        string   `json:"type"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     *int     `json:"correct"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// ParseQuestion validates one model-produced question object and returns
// the matching variant. A payload that fails validation comes back as an
// UnparsedQuestion together with a non-nil error; callers decide whether
// to keep or drop the fallback.
func ParseQuestion(raw []byte) (Question, error) {
	var p questionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return UnparsedQuestion{Raw: string(raw), Reason: err.Error()},
			fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}

	switch QuizType(p.Type) {
	case QuizMCQ:
		if p.Correct == nil {
			return UnparsedQuestion{Raw: string(raw), Reason: "missing correct index"},
				fmt.Errorf("%w: mcq missing correct index", ErrInvalidQuestion)
		}
		q := MCQQuestion{
			Text:        p.Question,
			Options:     p.Options,
			Correct:     *p.Correct,
			Explanation: p.Explanation,
		}
		if err := q.Validate(); err != nil {
			return UnparsedQuestion{Raw: string(raw), Reason: err.Error()}, err
		}
		return q, nil

	case QuizTrueFalse:
		if p.Question == "" {
			return UnparsedQuestion{Raw: string(raw), Reason: "empty question text"},
				fmt.Errorf("%w: empty question text", ErrInvalidQuestion)
		}
		ans, ok := parseBoolAnswer(p.Answer)
		if !ok {
			return UnparsedQuestion{Raw: string(raw), Reason: "unrecognised answer: " + p.Answer},
				fmt.Errorf("%w: unrecognised true/false answer %q", ErrInvalidQuestion, p.Answer)
		}
		return TrueFalseQuestion{Text: p.Question, Answer: ans, Explanation: p.Explanation}, nil

	case QuizShort:
		if p.Question == "" || p.Answer == "" {
			return UnparsedQuestion{Raw: string(raw), Reason: "missing question or answer"},
				fmt.Errorf("%w: short question needs question and answer", ErrInvalidQuestion)
		}
		return ShortQuestion{Text: p.Question, Answer: p.Answer, Explanation: p.Explanation}, nil

	default:
		return UnparsedQuestion{Raw: string(raw), Reason: "unknown type: " + p.Type},
			fmt.Errorf("%w: unknown question type %q", ErrInvalidQuestion, p.Type)
	}
}

// parseBoolAnswer accepts the answer spellings the model is known to emit.
func parseBoolAnswer(s string) (value, ok bool) {
	switch s {
	case "true", "True", "TRUE", "O":
		return true, true
	case "false", "False", "FALSE", "X":
		return false, true
	}
	return false, false
}
