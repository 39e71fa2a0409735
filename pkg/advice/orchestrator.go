package advice

import (
	"context"
	"fmt"
	"time"

	"github.com/mediguide-ai/triage/pkg/common/logger"
	"github.com/mediguide-ai/triage/pkg/common/models"
	"github.com/mediguide-ai/triage/pkg/knowledge"
	"github.com/mediguide-ai/triage/pkg/observability/metrics"
)

// Orchestrator builds structured advice requests from matched candidates and
// patient attributes, invokes the generation collaborator under a bounded
// timeout, and assembles the terminal result. Every failure path degrades to
// a well-formed conservative advice object; the orchestrator itself never
// returns a failed result once candidates exist.
type Orchestrator struct {
	store     *knowledge.Store
	generator Generator
	timeout   time.Duration
}

func NewOrchestrator(store *knowledge.Store, generator Generator, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Orchestrator{store: store, generator: generator, timeout: timeout}
}

func (o *Orchestrator) Advise(ctx context.Context, candidates []models.Candidate, patient models.PatientInfo) models.QueryResult {
	top := candidates[0]

	guideline, risk := o.enrich(top.DiseaseID)
	request := models.AdviceRequest{
		Patient:   patient,
		Symptom:   top,
		Guideline: guideline,
		Risk:      risk,
	}

	advice := o.generate(ctx, request)

	supplementary := map[string]interface{}{
		"confidence":       top.Confidence,
		"matched_symptoms": top.MatchedSymptoms,
	}

	if len(candidates) > 1 {
		o.attachDifferential(ctx, candidates, supplementary)
	}

	return models.QueryResult{
		Status:            models.StatusSuccess,
		DiseaseName:       top.DiseaseName,
		Urgency:           guideline.Urgency,
		Advice:            &advice,
		SupplementaryInfo: supplementary,
		Model:             o.generator.Model(),
	}
}

// enrich pulls guideline and risk records concurrently. Both lookups are
// read-only against immutable reference data, so there is no ordering
// dependency. Misses default; the pipeline never blocks on absent reference
// data.
func (o *Orchestrator) enrich(diseaseID string) (models.GuidelineRecord, models.RiskRecord) {
	guidelineCh := make(chan models.GuidelineRecord, 1)
	riskCh := make(chan models.RiskRecord, 1)

	go func() {
		guideline, ok := o.store.Guideline(diseaseID)
		if !ok {
			guideline = models.GuidelineRecord{
				DiseaseID:         diseaseID,
				Urgency:           models.UrgencyUnknown,
				RecommendedAction: "建议就医",
			}
		}
		guidelineCh <- guideline
	}()

	go func() {
		risk, ok := o.store.Risk(diseaseID)
		if !ok {
			risk = models.RiskRecord{
				DiseaseID:    diseaseID,
				SpecialNotes: "暂无特殊注意事项",
				RiskGroups:   []string{"一般人群"},
			}
		}
		riskCh <- risk
	}()

	return <-guidelineCh, <-riskCh
}

func (o *Orchestrator) generate(ctx context.Context, request models.AdviceRequest) models.AdviceResponse {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	raw, err := o.generator.Generate(callCtx, buildPrompt(request))
	if err != nil {
		logger.Log.WithError(err).WithField("disease", request.Symptom.DiseaseName).
			Warn("Advice generation failed, using fallback")
		metrics.ObserveAdviceFallback()
		return fallbackAdvice(request)
	}

	advice, err := ParseAdvice(raw)
	if err != nil {
		logger.Log.WithError(err).WithField("disease", request.Symptom.DiseaseName).
			Warn("Advice output invalid, using fallback")
		metrics.ObserveAdviceFallback()
		return fallbackAdvice(request)
	}
	return advice
}

// attachDifferential requests a probability distribution over all candidates
// and records the highest-probability one with its guideline and risk data.
// This is best-effort enrichment: any failure falls back to a distribution
// derived from matcher confidences, and nothing here can fail the result.
func (o *Orchestrator) attachDifferential(ctx context.Context, candidates []models.Candidate, supplementary map[string]interface{}) {
	distribution := o.distribution(ctx, candidates)
	if len(distribution) == 0 {
		return
	}

	best := distribution[0]
	for _, p := range distribution[1:] {
		if p.Probability > best.Probability {
			best = p
		}
	}

	bestView := map[string]interface{}{
		"disease_id":   best.DiseaseID,
		"disease_name": best.DiseaseName,
		"probability":  best.Probability,
	}
	if guideline, ok := o.store.Guideline(best.DiseaseID); ok {
		bestView["urgency"] = guideline.Urgency
		bestView["recommended_action"] = guideline.RecommendedAction
	}
	if risk, ok := o.store.Risk(best.DiseaseID); ok {
		bestView["special_notes"] = risk.SpecialNotes
		bestView["risk_groups"] = risk.RiskGroups
	}

	supplementary["probabilities"] = distribution
	supplementary["best_candidate"] = bestView
}

func (o *Orchestrator) distribution(ctx context.Context, candidates []models.Candidate) []models.CandidateProbability {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	raw, err := o.generator.Generate(callCtx, buildDistributionPrompt(candidates))
	if err == nil {
		if distribution, perr := ParseDistribution(raw, candidates); perr == nil {
			return distribution
		} else {
			logger.Log.WithError(perr).Debug("Distribution output invalid, deriving from confidences")
		}
	} else {
		logger.Log.WithError(err).Debug("Distribution call failed, deriving from confidences")
	}

	return confidenceDistribution(candidates)
}

// confidenceDistribution normalizes matcher confidences into a probability
// distribution.
func confidenceDistribution(candidates []models.Candidate) []models.CandidateProbability {
	total := 0.0
	for _, c := range candidates {
		total += c.Confidence
	}
	if total == 0 {
		return nil
	}
	out := make([]models.CandidateProbability, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, models.CandidateProbability{
			DiseaseID:   c.DiseaseID,
			DiseaseName: c.DiseaseName,
			Probability: c.Confidence / total,
		})
	}
	return out
}

// fallbackAdvice is the canned, clinically conservative advice skeleton used
// whenever the collaborator times out or returns unusable output. Always
// well-formed and non-empty.
func fallbackAdvice(request models.AdviceRequest) models.AdviceResponse {
	return models.AdviceResponse{
		Assessment:        fmt.Sprintf("根据症状描述，疑似%s", request.Symptom.DiseaseName),
		ImmediateActions:  []string{"保持冷静", "观察症状变化"},
		MedicalAdvice:     request.Guideline.RecommendedAction,
		MonitoringPoints:  []string{"体温", "症状严重程度", "精神状态"},
		EmergencyHandling: "如症状加重或出现紧急情况，请立即就医",
	}
}
