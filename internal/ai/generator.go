package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"quizzz-service/internal/domain"
	"github.com/google/uuid"
)

// DefaultMaxQuestions bounds how many questions one generation may request
// from the model, regardless of what the user asked for.
const DefaultMaxQuestions = 10

const generatorSystemPrompt = `You are an expert quiz creator with deep knowledge across many subjects.
Your task is to create engaging, educational multiple-choice quizzes that test knowledge accurately.
Follow these guidelines:
- Create clear, unambiguous questions with one definitively correct answer
- Ensure all answer options are plausible but only one is correct
- Match the difficulty level to the likely audience for this topic
- Provide brief, informative explanations for the correct answers
- Format your response exactly as specified in the JSON structure
- Detect the language of the prompt and create the quiz in that same language`

const generatorUserTemplate = `Create a quiz of multiple-choice questions on the topic of "%s".
- **Number of Questions**: %d.
- **Language Detection**: %s.
- **Difficulty Level**: %s.
- **Response Format**: Format the quiz as a JSON object with the following structure:
{
  "title": "Quiz title here",
  "description": "Brief description of the quiz",
  "questions": [
    {
      "id": "0e66df44",
      "question": "Question text",
      "options": { "A": "Option A", "B": "Option B", "C": "Option C", "D": "Option D" },
      "correctAnswer": "A",
      "explanation": "Explanation of the correct answer"
    }
  ]
}`

// Generator turns a prompt analysis into a quiz draft.
type Generator struct {
	client       ChatClient
	maxQuestions int
}

// NewGenerator builds a generator; maxQuestions <= 0 uses DefaultMaxQuestions.
func NewGenerator(client ChatClient, maxQuestions int) *Generator {
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}
	return &Generator{client: client, maxQuestions: maxQuestions}
}

// Generate asks the model for a complete quiz matching the analysis. The
// requested count is clamped at the configured ceiling; fewer questions than
// requested are accepted as returned, with no re-request or padding. The reply
// passes a structural validation gate before becoming a domain object.
// Status and limitTime defaults belong to the caller, not the generator.
func (g *Generator) Generate(ctx context.Context, analysis domain.PromptAnalysis) (domain.Quiz, error) {
	count := analysis.QuestionCount
	if count > g.maxQuestions {
		count = g.maxQuestions
	}

	user := fmt.Sprintf(generatorUserTemplate, analysis.Topic, count, analysis.Language, analysis.Difficulty)
	reply, err := g.client.Complete(ctx, generatorSystemPrompt, user)
	if err != nil {
		return domain.Quiz{}, err
	}

	raw, err := extractJSON(reply)
	if err != nil {
		return domain.Quiz{}, err
	}

	var quiz domain.Quiz
	if err := json.Unmarshal([]byte(raw), &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: decode quiz: %v", domain.ErrGenerationFormat, err)
	}
	if err := validateGenerated(&quiz); err != nil {
		return domain.Quiz{}, err
	}
	return domain.Quiz{Title: quiz.Title, Description: quiz.Description, Questions: quiz.Questions}, nil
}

// validateGenerated rejects structurally malformed model output and repairs
// missing or duplicate question IDs. Untrusted model text never becomes a
// domain object without passing here.
func validateGenerated(quiz *domain.Quiz) error {
	if strings.TrimSpace(quiz.Title) == "" {
		return fmt.Errorf("%w: quiz missing title", domain.ErrGenerationFormat)
	}
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("%w: quiz has no questions", domain.ErrGenerationFormat)
	}

	seen := make(map[string]struct{}, len(quiz.Questions))
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("%w: question %d has no text", domain.ErrGenerationFormat, i)
		}
		if len(q.Options) != len(domain.OptionKeys) {
			return fmt.Errorf("%w: question %d has %d options", domain.ErrGenerationFormat, i, len(q.Options))
		}
		for _, key := range domain.OptionKeys {
			if _, ok := q.Options[key]; !ok {
				return fmt.Errorf("%w: question %d missing option %s", domain.ErrGenerationFormat, i, key)
			}
		}
		if _, ok := q.Options[q.CorrectAnswer]; !ok {
			return fmt.Errorf("%w: question %d correct answer %q not among options", domain.ErrGenerationFormat, i, q.CorrectAnswer)
		}

		id := strings.TrimSpace(q.ID)
		if id == "" {
			id = NewQuestionID(seen)
		} else if _, dup := seen[id]; dup {
			id = NewQuestionID(seen)
		}
		q.ID = id
		seen[id] = struct{}{}
	}
	return nil
}

// NewQuestionID returns a short random question ID absent from taken.
func NewQuestionID(taken map[string]struct{}) string {
	for {
		id := "q" + uuid.NewString()[:8]
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}
