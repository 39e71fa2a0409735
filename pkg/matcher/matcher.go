package matcher

import (
	"sort"
	"strings"

	"github.com/mediguide-ai/triage/pkg/common/logger"
	"github.com/mediguide-ai/triage/pkg/common/models"
)

const (
	// Each matched keyword past the first raises confidence by this step.
	confidenceStep = 0.1
	confidenceCap  = 0.99

	defaultDiseaseID  = "D01"
	defaultConfidence = 0.3
	defaultSymptom    = "一般不适"
)

// Matcher ranks disease candidates for free-text symptom descriptions. It is
// pure and deterministic: the same text always yields the same ranking.
type Matcher struct {
	table  Table
	priors map[string]Prior
}

func New(table Table) *Matcher {
	priors := make(map[string]Prior, len(table.Priors))
	for _, p := range table.Priors {
		priors[p.DiseaseID] = p
	}
	return &Matcher{table: table, priors: priors}
}

// Match maps text to a ranked, never-empty candidate list. When nothing in
// the keyword table is present, a single low-confidence general-malaise
// candidate is returned so the pipeline always has something to hand
// downstream.
func (m *Matcher) Match(text string) []models.Candidate {
	keywords := m.extractKeywords(text)
	if len(keywords) == 0 {
		logger.Log.Warn("No symptom keywords extracted, using default candidate")
		return []models.Candidate{m.defaultCandidate()}
	}

	candidates := m.aggregate(keywords)
	if len(candidates) == 0 {
		return []models.Candidate{m.defaultCandidate()}
	}
	if len(candidates) == 1 {
		return candidates
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].MatchCount != candidates[j].MatchCount {
			return candidates[i].MatchCount > candidates[j].MatchCount
		}
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].DiseaseID < candidates[j].DiseaseID
	})

	return candidates
}

// extractKeywords collects every table keyword literally present in the
// lower-cased text, in table order.
func (m *Matcher) extractKeywords(text string) []string {
	lower := strings.ToLower(text)
	var keywords []string
	for _, entry := range m.table.Keywords {
		if strings.Contains(lower, entry.Keyword) {
			keywords = append(keywords, entry.Keyword)
		}
	}
	return keywords
}

func (m *Matcher) aggregate(keywords []string) []models.Candidate {
	byDisease := make(map[string]*models.Candidate)
	var order []string

	for _, keyword := range keywords {
		for _, entry := range m.table.Keywords {
			if entry.Keyword != keyword {
				continue
			}
			for _, diseaseID := range entry.Diseases {
				cand, seen := byDisease[diseaseID]
				if !seen {
					prior := m.priors[diseaseID]
					byDisease[diseaseID] = &models.Candidate{
						DiseaseID:       diseaseID,
						DiseaseName:     prior.Name,
						Confidence:      prior.Confidence,
						MatchedSymptoms: []string{keyword},
						MatchCount:      1,
					}
					order = append(order, diseaseID)
					continue
				}
				cand.MatchedSymptoms = append(cand.MatchedSymptoms, keyword)
				cand.MatchCount++
				cand.Confidence = min(confidenceCap, cand.Confidence+confidenceStep)
			}
			break
		}
	}

	candidates := make([]models.Candidate, 0, len(order))
	for _, id := range order {
		candidates = append(candidates, *byDisease[id])
	}
	return candidates
}

func (m *Matcher) defaultCandidate() models.Candidate {
	prior, ok := m.priors[defaultDiseaseID]
	name := prior.Name
	if !ok {
		name = "普通感冒"
	}
	return models.Candidate{
		DiseaseID:       defaultDiseaseID,
		DiseaseName:     name,
		Confidence:      defaultConfidence,
		MatchedSymptoms: []string{defaultSymptom},
		MatchCount:      1,
	}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
