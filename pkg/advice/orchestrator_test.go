package advice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mediguide-ai/triage/pkg/common/models"
	"github.com/mediguide-ai/triage/pkg/knowledge"
)

type failingGenerator struct{}

func (failingGenerator) Generate(_ context.Context, _ string) (string, error) {
	return "", errors.New("upstream unavailable")
}

func (failingGenerator) Model() string { return "failing" }

func testStore(t *testing.T) *knowledge.Store {
	t.Helper()
	return knowledge.NewStore(knowledge.DefaultCatalog())
}

func TestAdviseWithTemplateGenerator(t *testing.T) {
	o := NewOrchestrator(testStore(t), TemplateGenerator{}, time.Second)

	candidates := []models.Candidate{
		{DiseaseID: "D01", DiseaseName: "普通感冒", Confidence: 0.9, MatchedSymptoms: []string{"咳嗽", "发烧"}, MatchCount: 2},
	}
	result := o.Advise(context.Background(), candidates, models.PatientInfo{Age: 30, Gender: "男"})

	if result.Status != models.StatusSuccess {
		t.Fatalf("expected success, got %s", result.Status)
	}
	if result.DiseaseName != "普通感冒" {
		t.Fatalf("unexpected disease name: %s", result.DiseaseName)
	}
	if result.Advice == nil || result.Advice.Validate() != nil {
		t.Fatalf("expected well-formed advice, got %+v", result.Advice)
	}
	if result.Urgency != models.UrgencyLow {
		t.Fatalf("expected low urgency for D01, got %s", result.Urgency)
	}
	if result.Model == "" {
		t.Fatal("expected model name on result")
	}
}

func TestAdviseFallsBackWhenGeneratorFails(t *testing.T) {
	o := NewOrchestrator(testStore(t), failingGenerator{}, time.Second)

	candidates := []models.Candidate{
		{DiseaseID: "D05", DiseaseName: "心脏病发作风险", Confidence: 0.95, MatchedSymptoms: []string{"胸痛"}, MatchCount: 1},
	}
	result := o.Advise(context.Background(), candidates, models.PatientInfo{Age: 60, Gender: "女"})

	if result.Status != models.StatusSuccess {
		t.Fatalf("expected success via fallback, got %s", result.Status)
	}
	if result.Advice == nil {
		t.Fatal("expected fallback advice")
	}
	if err := result.Advice.Validate(); err != nil {
		t.Fatalf("fallback advice must be well-formed: %v", err)
	}
	if result.Urgency != models.UrgencyHigh {
		t.Fatalf("expected high urgency for D05, got %s", result.Urgency)
	}
}

func TestAdviseDefaultsWhenGuidelineMissing(t *testing.T) {
	// Catalog with a disease that has no guideline or risk record.
	store := knowledge.NewStore(knowledge.Catalog{
		Diseases: []models.DiseaseRecord{{DiseaseID: "D77", Name: "测试病"}},
	})
	o := NewOrchestrator(store, failingGenerator{}, time.Second)

	candidates := []models.Candidate{
		{DiseaseID: "D77", DiseaseName: "测试病", Confidence: 0.5, MatchedSymptoms: []string{"咳嗽"}, MatchCount: 1},
	}
	result := o.Advise(context.Background(), candidates, models.PatientInfo{Age: 25, Gender: "男"})

	if result.Status != models.StatusSuccess {
		t.Fatalf("expected success despite missing reference data, got %s", result.Status)
	}
	if result.Urgency != models.UrgencyUnknown {
		t.Fatalf("expected unknown urgency without guideline, got %s", result.Urgency)
	}
	if result.Advice.MedicalAdvice != "建议就医" {
		t.Fatalf("expected conservative default advice, got %q", result.Advice.MedicalAdvice)
	}
}

func TestAdviseAttachesDifferentialForMultipleCandidates(t *testing.T) {
	o := NewOrchestrator(testStore(t), failingGenerator{}, time.Second)

	candidates := []models.Candidate{
		{DiseaseID: "D02", DiseaseName: "过敏性鼻炎", Confidence: 0.8, MatchedSymptoms: []string{"打喷嚏", "鼻子痒"}, MatchCount: 2},
		{DiseaseID: "D01", DiseaseName: "普通感冒", Confidence: 0.8, MatchedSymptoms: []string{"打喷嚏"}, MatchCount: 1},
	}
	result := o.Advise(context.Background(), candidates, models.PatientInfo{Age: 30, Gender: "女"})

	probs, ok := result.SupplementaryInfo["probabilities"].([]models.CandidateProbability)
	if !ok || len(probs) != 2 {
		t.Fatalf("expected confidence-derived distribution, got %v", result.SupplementaryInfo["probabilities"])
	}
	if _, ok := result.SupplementaryInfo["best_candidate"]; !ok {
		t.Fatal("expected best_candidate enrichment")
	}
}

func TestConfidenceDistributionNormalizes(t *testing.T) {
	candidates := []models.Candidate{
		{DiseaseID: "D01", DiseaseName: "普通感冒", Confidence: 0.9},
		{DiseaseID: "D03", DiseaseName: "急性肠胃炎", Confidence: 0.3},
	}
	distribution := confidenceDistribution(candidates)
	total := 0.0
	for _, p := range distribution {
		total += p.Probability
	}
	if total < 0.999 || total > 1.001 {
		t.Fatalf("expected distribution summing to 1, got %f", total)
	}
	if distribution[0].Probability <= distribution[1].Probability {
		t.Fatalf("expected higher confidence to keep larger share: %v", distribution)
	}
}
