package advice

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mediguide-ai/triage/pkg/common/models"
)

// LLMJudge implements the semantic intent-judgment collaborator on top of
// the same generator client. Errors bubble up so the safety classifier can
// fall back to its lexical decision.
type LLMJudge struct {
	generator Generator
}

func NewLLMJudge(generator Generator) *LLMJudge {
	return &LLMJudge{generator: generator}
}

func (j *LLMJudge) Assess(ctx context.Context, text string) (models.IntentAssessment, error) {
	raw, err := j.generator.Generate(ctx, fmt.Sprintf(judgePrompt, text))
	if err != nil {
		return models.IntentAssessment{}, err
	}

	payload, err := extractJSON(raw)
	if err != nil {
		return models.IntentAssessment{}, fmt.Errorf("judge output: %w", err)
	}

	var assessment models.IntentAssessment
	if err := json.Unmarshal([]byte(payload), &assessment); err != nil {
		return models.IntentAssessment{}, fmt.Errorf("judge output: %w", err)
	}
	if assessment.Confidence < 0 {
		assessment.Confidence = 0
	}
	if assessment.Confidence > 100 {
		assessment.Confidence = 100
	}
	return assessment, nil
}
