package advice

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mediguide-ai/triage/pkg/common/models"
)

var errNoJSON = errors.New("no JSON object found in output")

// ParseAdvice validates collaborator output against the fixed advice schema.
// The output is untrusted: a direct decode is attempted first, then a repair
// pass that strips markdown fences and extracts the outermost JSON object.
func ParseAdvice(raw string) (models.AdviceResponse, error) {
	var advice models.AdviceResponse
	if err := json.Unmarshal([]byte(raw), &advice); err == nil {
		if err := advice.Validate(); err == nil {
			return advice, nil
		}
	}

	repaired, err := extractJSON(raw)
	if err != nil {
		return models.AdviceResponse{}, fmt.Errorf("parse advice: %w", err)
	}
	advice = models.AdviceResponse{}
	if err := json.Unmarshal([]byte(repaired), &advice); err != nil {
		return models.AdviceResponse{}, fmt.Errorf("parse advice: %w", err)
	}
	if err := advice.Validate(); err != nil {
		return models.AdviceResponse{}, fmt.Errorf("invalid advice: %w", err)
	}
	return advice, nil
}

// ParseDistribution decodes a probability distribution over candidates and
// normalizes it to sum to 1. Entries with unknown disease IDs are dropped.
func ParseDistribution(raw string, candidates []models.Candidate) ([]models.CandidateProbability, error) {
	payload, err := extractJSONArray(raw)
	if err != nil {
		return nil, err
	}

	var entries []struct {
		DiseaseID   string  `json:"disease_id"`
		Probability float64 `json:"probability"`
	}
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		return nil, fmt.Errorf("parse distribution: %w", err)
	}

	names := make(map[string]string, len(candidates))
	for _, c := range candidates {
		names[c.DiseaseID] = c.DiseaseName
	}

	var out []models.CandidateProbability
	total := 0.0
	for _, e := range entries {
		name, known := names[e.DiseaseID]
		if !known || e.Probability < 0 {
			continue
		}
		out = append(out, models.CandidateProbability{
			DiseaseID:   e.DiseaseID,
			DiseaseName: name,
			Probability: e.Probability,
		})
		total += e.Probability
	}
	if len(out) == 0 || total == 0 {
		return nil, errNoJSON
	}
	for i := range out {
		out[i].Probability /= total
	}
	return out, nil
}

func extractJSON(raw string) (string, error) {
	cleaned := stripFences(raw)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return "", errNoJSON
	}
	return cleaned[start : end+1], nil
}

func extractJSONArray(raw string) (string, error) {
	cleaned := stripFences(raw)
	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end <= start {
		return "", errNoJSON
	}
	return cleaned[start : end+1], nil
}

func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
