package knowledge

import (
	"testing"

	"github.com/mediguide-ai/triage/pkg/common/logger"
	"github.com/mediguide-ai/triage/pkg/common/models"
)

func init() {
	logger.InitQuiet()
}

func TestFindByKind(t *testing.T) {
	store := NewStore(DefaultCatalog())

	rec, ok := store.Find("D01", KindSymptom)
	if !ok || rec.Disease == nil || rec.Disease.Name != "普通感冒" {
		t.Fatalf("unexpected symptom lookup result: %+v ok=%v", rec, ok)
	}

	rec, ok = store.Find("D05", KindGuideline)
	if !ok || rec.Guideline == nil || rec.Guideline.Urgency != models.UrgencyHigh {
		t.Fatalf("unexpected guideline lookup result: %+v ok=%v", rec, ok)
	}

	rec, ok = store.Find("D04", KindRisk)
	if !ok || rec.Risk == nil || len(rec.Risk.Contraindications) == 0 {
		t.Fatalf("unexpected risk lookup result: %+v ok=%v", rec, ok)
	}
}

func TestFindMissReturnsNotOK(t *testing.T) {
	store := NewStore(DefaultCatalog())

	if _, ok := store.Find("D99", KindGuideline); ok {
		t.Fatal("expected miss for unknown disease ID")
	}
	if _, ok := store.Find("D01", Kind("bogus")); ok {
		t.Fatal("expected miss for unknown kind")
	}
}

func TestViewMergesAllRecordFamilies(t *testing.T) {
	store := NewStore(DefaultCatalog())

	view, ok := store.View("D04")
	if !ok {
		t.Fatal("expected view for D04")
	}
	if view.Name != "高血压急症风险" {
		t.Fatalf("identity fields must come from the disease record, got %q", view.Name)
	}
	if view.Urgency != models.UrgencyHigh {
		t.Fatalf("expected guideline urgency, got %s", view.Urgency)
	}
	if view.SpecialNotes == "" || len(view.RiskGroups) == 0 {
		t.Fatalf("expected risk fields on view: %+v", view)
	}
}

func TestViewWithoutGuidelineDefaultsUnknown(t *testing.T) {
	store := NewStore(Catalog{
		Diseases: []models.DiseaseRecord{{DiseaseID: "D50", Name: "孤立病", RelatedSymptoms: []string{"咳嗽"}}},
	})

	view, ok := store.View("D50")
	if !ok {
		t.Fatal("expected view even without guideline and risk records")
	}
	if view.Urgency != models.UrgencyUnknown {
		t.Fatalf("expected unknown urgency, got %s", view.Urgency)
	}
	if view.RecommendedAction != "" || view.SpecialNotes != "" {
		t.Fatalf("expected empty optional fields, got %+v", view)
	}
}

func TestViewUnknownDisease(t *testing.T) {
	store := NewStore(DefaultCatalog())
	if _, ok := store.View("D99"); ok {
		t.Fatal("expected no view for unknown disease")
	}
}

func TestSearchBySymptom(t *testing.T) {
	store := NewStore(DefaultCatalog())

	hits := store.SearchBySymptom("打喷嚏")
	if len(hits) != 2 {
		t.Fatalf("expected 2 diseases for 打喷嚏, got %d", len(hits))
	}
}

func TestDiseasesByUrgency(t *testing.T) {
	store := NewStore(DefaultCatalog())

	high := store.DiseasesByUrgency(models.UrgencyHigh)
	if len(high) != 2 {
		t.Fatalf("expected 2 high-urgency diseases, got %d", len(high))
	}
	for _, v := range high {
		if v.Urgency != models.UrgencyHigh {
			t.Fatalf("non-high urgency in result: %+v", v)
		}
	}
}

func TestAllViewsCoversCatalog(t *testing.T) {
	store := NewStore(DefaultCatalog())

	views := store.AllViews()
	if len(views) != 5 {
		t.Fatalf("expected 5 views, got %d", len(views))
	}
}
