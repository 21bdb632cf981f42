package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"quizzz-service/internal/domain"
)

const analyzerSystemPrompt = `You are an expert in analyzing text and providing a summary of the main points.`

const analyzerUserTemplate = `Analyze the following text and provide a summary of the main points.
- **Text**: %s
- **Response Format**: Format the summary as a JSON object with the following structure:
{
  "topic": "Quiz topic of the text",
  "language": "English",
  "questionCount": 5,
  "difficulty": "Easy"
}`

// Analyzer classifies a free-text prompt into structured quiz parameters.
type Analyzer struct {
	client ChatClient
}

func NewAnalyzer(client ChatClient) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze asks the model to extract topic, language, question count, and
// difficulty from the prompt. The prompt must be non-blank. The model is
// called exactly once; parse failures never fall back to defaults.
func (a *Analyzer) Analyze(ctx context.Context, prompt string) (domain.PromptAnalysis, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.PromptAnalysis{}, fmt.Errorf("%w: prompt must not be empty", domain.ErrValidation)
	}

	reply, err := a.client.Complete(ctx, analyzerSystemPrompt, fmt.Sprintf(analyzerUserTemplate, prompt))
	if err != nil {
		return domain.PromptAnalysis{}, err
	}

	raw, err := extractJSON(reply)
	if err != nil {
		return domain.PromptAnalysis{}, err
	}

	var analysis domain.PromptAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return domain.PromptAnalysis{}, fmt.Errorf("%w: decode analysis: %v", domain.ErrGenerationFormat, err)
	}
	if strings.TrimSpace(analysis.Topic) == "" {
		return domain.PromptAnalysis{}, fmt.Errorf("%w: analysis missing topic", domain.ErrGenerationFormat)
	}
	if strings.TrimSpace(analysis.Difficulty) == "" {
		return domain.PromptAnalysis{}, fmt.Errorf("%w: analysis missing difficulty", domain.ErrGenerationFormat)
	}
	if analysis.QuestionCount < 1 {
		return domain.PromptAnalysis{}, fmt.Errorf("%w: analysis question count %d", domain.ErrGenerationFormat, analysis.QuestionCount)
	}
	if strings.TrimSpace(analysis.Language) == "" {
		analysis.Language = "English"
	}
	return analysis, nil
}
