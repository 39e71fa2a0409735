package knowledge

import (
	"github.com/mediguide-ai/triage/pkg/common/logger"
	"github.com/mediguide-ai/triage/pkg/common/models"
)

// Kind selects which record family a lookup targets.
type Kind string

const (
	KindSymptom   Kind = "symptom"
	KindGuideline Kind = "guideline"
	KindRisk      Kind = "risk"
)

// Store answers exact-key reads over the catalog. Lookups never fail: a miss
// returns ok=false and logs a warning. The contract assumes nothing beyond
// "read by exact key" so the backing data can move to a database later.
type Store struct {
	catalog Catalog
}

func NewStore(catalog Catalog) *Store {
	return &Store{catalog: catalog}
}

// Record is the union result of a Find call; exactly one field is set on a
// hit, depending on the requested kind.
type Record struct {
	Disease   *models.DiseaseRecord
	Guideline *models.GuidelineRecord
	Risk      *models.RiskRecord
}

func (s *Store) Find(diseaseID string, kind Kind) (Record, bool) {
	switch kind {
	case KindSymptom:
		for i := range s.catalog.Diseases {
			if s.catalog.Diseases[i].DiseaseID == diseaseID {
				return Record{Disease: &s.catalog.Diseases[i]}, true
			}
		}
	case KindGuideline:
		for i := range s.catalog.Guidelines {
			if s.catalog.Guidelines[i].DiseaseID == diseaseID {
				return Record{Guideline: &s.catalog.Guidelines[i]}, true
			}
		}
	case KindRisk:
		for i := range s.catalog.Risks {
			if s.catalog.Risks[i].DiseaseID == diseaseID {
				return Record{Risk: &s.catalog.Risks[i]}, true
			}
		}
	default:
		logger.Log.WithField("kind", string(kind)).Warn("Unknown knowledge kind requested")
		return Record{}, false
	}

	logger.Log.WithFields(map[string]interface{}{
		"disease_id": diseaseID,
		"kind":       string(kind),
	}).Warn("Knowledge lookup miss")
	return Record{}, false
}

func (s *Store) Guideline(diseaseID string) (models.GuidelineRecord, bool) {
	rec, ok := s.Find(diseaseID, KindGuideline)
	if !ok {
		return models.GuidelineRecord{}, false
	}
	return *rec.Guideline, true
}

func (s *Store) Risk(diseaseID string) (models.RiskRecord, bool) {
	rec, ok := s.Find(diseaseID, KindRisk)
	if !ok {
		return models.RiskRecord{}, false
	}
	return *rec.Risk, true
}

func (s *Store) Disease(diseaseID string) (models.DiseaseRecord, bool) {
	rec, ok := s.Find(diseaseID, KindSymptom)
	if !ok {
		return models.DiseaseRecord{}, false
	}
	return *rec.Disease, true
}

func (s *Store) AllDiseases() []models.DiseaseRecord {
	out := make([]models.DiseaseRecord, len(s.catalog.Diseases))
	copy(out, s.catalog.Diseases)
	return out
}

// SearchBySymptom returns every disease whose related-symptom list contains
// the given symptom verbatim.
func (s *Store) SearchBySymptom(symptom string) []models.DiseaseRecord {
	var matches []models.DiseaseRecord
	for _, d := range s.catalog.Diseases {
		for _, sym := range d.RelatedSymptoms {
			if sym == symptom {
				matches = append(matches, d)
				break
			}
		}
	}
	return matches
}

// DiseasesByUrgency returns the merged views of diseases whose guideline
// carries the given urgency.
func (s *Store) DiseasesByUrgency(u models.Urgency) []models.DiseaseView {
	var views []models.DiseaseView
	for _, g := range s.catalog.Guidelines {
		if g.Urgency != u {
			continue
		}
		if v, ok := s.View(g.DiseaseID); ok {
			views = append(views, v)
		}
	}
	return views
}
