package ai

import (
	"context"

	"quizzz-service/internal/domain"
)

// DefaultMaxRequested is the advertised per-quiz question limit. It disagrees
// with DefaultMaxQuestions on purpose: the product copy promises 25 while
// generation enforces 10, and the mismatch is kept visible in configuration
// until product settles it.
const DefaultMaxRequested = 25

// Pipeline runs the two generation stages in order: the analyzer must finish
// before the generator starts, since the second call's parameters come from
// the first call's output.
type Pipeline struct {
	analyzer     *Analyzer
	generator    *Generator
	maxRequested int
}

// NewPipeline wires the two stages. maxQuestions bounds what the generator
// requests from the model; maxRequested bounds what an analysis may carry.
func NewPipeline(client ChatClient, maxQuestions, maxRequested int) *Pipeline {
	if maxRequested <= 0 {
		maxRequested = DefaultMaxRequested
	}
	return &Pipeline{
		analyzer:     NewAnalyzer(client),
		generator:    NewGenerator(client, maxQuestions),
		maxRequested: maxRequested,
	}
}

// GenerateFromPrompt produces a quiz draft from a raw user prompt.
func (p *Pipeline) GenerateFromPrompt(ctx context.Context, prompt string) (domain.Quiz, error) {
	analysis, err := p.analyzer.Analyze(ctx, prompt)
	if err != nil {
		return domain.Quiz{}, err
	}
	if analysis.QuestionCount > p.maxRequested {
		analysis.QuestionCount = p.maxRequested
	}
	return p.generator.Generate(ctx, analysis)
}
