package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lectern-dev/lectern/internal/core/domain"
	"github.com/lectern-dev/lectern/internal/core/ports/driving"
)

var (
	quizType  string
	quizCount int
	quizTopic string
	quizJSON  bool
)

var quizCmd = &cobra.Command{
	Use:   "quiz [doc-id]",
	Short: "Generate a quiz from an ingested document",
	Long: `Retrieves representative passages from the document and prompts the
configured generation model for questions. With --topic the passages are
focused on that subject; otherwise a whole-document sample is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuiz,
}

func init() {
	quizCmd.Flags().StringVarP(&quizType, "type", "t", "mcq", "question type: mcq, truefalse or short")
	quizCmd.Flags().IntVarP(&quizCount, "count", "c", 5, "number of questions")
	quizCmd.Flags().StringVar(&quizTopic, "topic", "", "focus questions on a topic")
	quizCmd.Flags().BoolVar(&quizJSON, "json", false, "output the quiz as JSON")
	rootCmd.AddCommand(quizCmd)
}

func runQuiz(cmd *cobra.Command, args []string) error {
	if quizService == nil {
		return errors.New("quiz service not configured")
	}

	req := driving.QuizRequest{
		DocumentID: args[0],
		Type:       domain.QuizType(quizType),
		Count:      quizCount,
		Topic:      quizTopic,
	}

	quiz, err := quizService.Generate(context.Background(), req)
	if err != nil {
		return fmt.Errorf("quiz generation failed: %w", err)
	}

	if quizJSON {
		return outputQuizJSON(cmd, quiz)
	}
	outputQuizText(cmd, quiz)
	return nil
}

// quizQuestionJSON is the stable JSON shape for one question.
type quizQuestionJSON struct {
	Type        string   `json:"type"`
	Question    string   `json:"question"`
	Options     []string `json:"options,omitempty"`
	Correct     *int     `json:"correct,omitempty"`
	Answer      string   `json:"answer,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

func outputQuizJSON(cmd *cobra.Command, quiz *domain.Quiz) error {
	questions := make([]quizQuestionJSON, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions = append(questions, questionJSON(q))
	}

	out := struct {
		ID         string             `json:"id"`
		DocumentID string             `json:"document_id"`
		Title      string             `json:"title"`
		Type       string             `json:"type"`
		Questions  []quizQuestionJSON `json:"questions"`
	}{
		ID:         quiz.ID,
		DocumentID: quiz.DocumentID,
		Title:      quiz.Title,
		Type:       string(quiz.Type),
		Questions:  questions,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal quiz: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func questionJSON(q domain.Question) quizQuestionJSON {
	switch v := q.(type) {
	case domain.MCQQuestion:
		correct := v.Correct
		return quizQuestionJSON{
			Type: string(domain.QuizMCQ), Question: v.Text,
			Options: v.Options, Correct: &correct, Explanation: v.Explanation,
		}
	case domain.TrueFalseQuestion:
		answer := "false"
		if v.Answer {
			answer = "true"
		}
		return quizQuestionJSON{
			Type: string(domain.QuizTrueFalse), Question: v.Text,
			Answer: answer, Explanation: v.Explanation,
		}
	case domain.ShortQuestion:
		return quizQuestionJSON{
			Type: string(domain.QuizShort), Question: v.Text,
			Answer: v.Answer, Explanation: v.Explanation,
		}
	default:
		return quizQuestionJSON{Type: string(q.Type()), Question: q.Prompt()}
	}
}

func outputQuizText(cmd *cobra.Command, quiz *domain.Quiz) {
	cmd.Printf("%s\n\n", quiz.Title)

	for i, q := range quiz.Questions {
		cmd.Printf("%d. %s\n", i+1, q.Prompt())

		switch v := q.(type) {
		case domain.MCQQuestion:
			for j, opt := range v.Options {
				marker := " "
				if j == v.Correct {
					marker = "*"
				}
				cmd.Printf("   %s %c) %s\n", marker, 'a'+rune(j), opt)
			}
		case domain.TrueFalseQuestion:
			cmd.Printf("   Answer: %t\n", v.Answer)
		case domain.ShortQuestion:
			cmd.Printf("   Answer: %s\n", v.Answer)
		case domain.UnparsedQuestion:
			cmd.Printf("   (could not be parsed: %s)\n", v.Reason)
		}
		cmd.Println()
	}
}
