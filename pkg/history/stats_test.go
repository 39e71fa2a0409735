package history

import (
	"testing"

	"github.com/mediguide-ai/triage/pkg/common/models"
)

func TestAggregateEmpty(t *testing.T) {
	stats := Aggregate(nil)
	if stats.Counts.Total != 0 {
		t.Fatalf("expected zero total, got %d", stats.Counts.Total)
	}
	if stats.DurationsMS.Count != 0 || stats.DurationsMS.Avg != 0 {
		t.Fatalf("expected zero duration stats, got %+v", stats.DurationsMS)
	}
}

func TestAggregateClassifiesOutcomes(t *testing.T) {
	outcomes := []Outcome{
		{Status: models.StatusSuccess, TotalDurationMS: 100},
		{Status: models.StatusSuccess, TotalDurationMS: 200},
		{Status: models.StatusNoMatch, TotalDurationMS: 50},
		{Status: models.StatusFailed, TotalDurationMS: 10},
		{Status: models.StatusError, TotalDurationMS: 20},
	}

	stats := Aggregate(outcomes)
	if stats.Counts.Normal != 2 {
		t.Fatalf("expected 2 normal, got %d", stats.Counts.Normal)
	}
	if stats.Counts.NonMedical != 1 {
		t.Fatalf("expected 1 non-medical, got %d", stats.Counts.NonMedical)
	}
	if stats.Counts.MaliciousOrError != 2 {
		t.Fatalf("expected 2 malicious-or-error, got %d", stats.Counts.MaliciousOrError)
	}
	if stats.Counts.Total != 5 {
		t.Fatalf("expected total 5, got %d", stats.Counts.Total)
	}
}

func TestAggregateDurations(t *testing.T) {
	outcomes := []Outcome{
		{Status: models.StatusSuccess, TotalDurationMS: 100},
		{Status: models.StatusSuccess, TotalDurationMS: 300},
		{Status: models.StatusSuccess, TotalDurationMS: 200},
	}

	stats := Aggregate(outcomes)
	if stats.DurationsMS.Count != 3 {
		t.Fatalf("expected 3 durations, got %d", stats.DurationsMS.Count)
	}
	if stats.DurationsMS.Avg != 200 {
		t.Fatalf("expected avg 200, got %f", stats.DurationsMS.Avg)
	}
	if stats.DurationsMS.Max != 300 {
		t.Fatalf("expected max 300, got %f", stats.DurationsMS.Max)
	}
	if stats.DurationsMS.P95 != 200 {
		t.Fatalf("expected p95 200 for three samples, got %f", stats.DurationsMS.P95)
	}
}

func TestAggregateFallsBackToServerDuration(t *testing.T) {
	outcomes := []Outcome{
		{Status: models.StatusSuccess, ServerDurationMS: 40},
		{Status: models.StatusSuccess},
	}

	stats := Aggregate(outcomes)
	if stats.DurationsMS.Count != 1 {
		t.Fatalf("expected 1 usable duration, got %d", stats.DurationsMS.Count)
	}
	if stats.DurationsMS.Max != 40 {
		t.Fatalf("expected server duration fallback 40, got %f", stats.DurationsMS.Max)
	}
}

func TestToRecordMapsAuditEntry(t *testing.T) {
	entry := models.AuditEntry{
		ID:      "abc",
		Symptom: "咳嗽",
		PatientInfo: models.PatientInfo{
			Age:    42,
			Gender: "女",
		},
		Status:      models.StatusSuccess,
		DiseaseName: "普通感冒",
		Urgency:     models.UrgencyLow,
		Advice: &models.AdviceResponse{
			Assessment:       "疑似普通感冒",
			ImmediateActions: []string{"休息"},
			MedicalAdvice:    "多喝水",
		},
		PipelineState:    "done",
		ServerDurationMS: 12,
		TotalDurationMS:  34,
	}

	rec := toRecord(entry)
	if rec.ID != "abc" || rec.Status != "success" || rec.Urgency != "low" {
		t.Fatalf("unexpected record mapping: %+v", rec)
	}
	if rec.PatientAge != 42 || rec.PatientGender != "女" {
		t.Fatalf("patient fields lost: %+v", rec)
	}
	if rec.Advice == nil {
		t.Fatal("expected advice JSON map")
	}
	if rec.TotalDurationMS != 34 {
		t.Fatalf("expected total duration 34, got %d", rec.TotalDurationMS)
	}
}
