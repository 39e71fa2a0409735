package knowledge

import "github.com/mediguide-ai/triage/pkg/common/models"

// View composes the disease, guideline and risk records for one disease ID
// into a single DiseaseView. Field precedence is explicit: identity fields
// (DiseaseID, Name, RelatedSymptoms) always come from the disease record;
// guideline and risk contribute only their own optional fields. Missing
// guideline leaves urgency at unknown; missing risk leaves notes empty.
func (s *Store) View(diseaseID string) (models.DiseaseView, bool) {
	disease, ok := s.Disease(diseaseID)
	if !ok {
		return models.DiseaseView{}, false
	}

	view := models.DiseaseView{
		DiseaseID:       disease.DiseaseID,
		Name:            disease.Name,
		RelatedSymptoms: disease.RelatedSymptoms,
		Urgency:         models.UrgencyUnknown,
	}

	if guideline, ok := s.Guideline(diseaseID); ok {
		view.Urgency = guideline.Urgency
		view.RecommendedAction = guideline.RecommendedAction
		view.Timeframe = guideline.Timeframe
	}

	if risk, ok := s.Risk(diseaseID); ok {
		view.SpecialNotes = risk.SpecialNotes
		view.RiskGroups = risk.RiskGroups
		view.Contraindications = risk.Contraindications
	}

	return view, true
}

// AllViews merges every disease in the catalog.
func (s *Store) AllViews() []models.DiseaseView {
	diseases := s.AllDiseases()
	views := make([]models.DiseaseView, 0, len(diseases))
	for _, d := range diseases {
		if v, ok := s.View(d.DiseaseID); ok {
			views = append(views, v)
		}
	}
	return views
}
