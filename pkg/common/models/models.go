package models

import (
	"errors"
	"fmt"
	"time"
)

// Urgency levels carried by guideline records and query results.
type Urgency string

const (
	UrgencyLow     Urgency = "low"
	UrgencyMedium  Urgency = "medium"
	UrgencyHigh    Urgency = "high"
	UrgencyUnknown Urgency = "unknown"
)

func ParseUrgency(s string) Urgency {
	switch Urgency(s) {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return Urgency(s)
	default:
		return UrgencyUnknown
	}
}

// Query result statuses.
type QueryStatus string

const (
	StatusSuccess QueryStatus = "success"
	StatusFailed  QueryStatus = "failed"
	StatusNoMatch QueryStatus = "no_match"
	StatusError   QueryStatus = "error"
)

// Knowledge base records. Loaded once at startup, read-only afterwards.
type DiseaseRecord struct {
	DiseaseID       string   `yaml:"disease_id" json:"disease_id"`
	Name            string   `yaml:"name" json:"name"`
	RelatedSymptoms []string `yaml:"related_symptoms" json:"related_symptoms"`
}

type GuidelineRecord struct {
	DiseaseID         string  `yaml:"disease_id" json:"disease_id"`
	Urgency           Urgency `yaml:"urgency" json:"urgency"`
	RecommendedAction string  `yaml:"recommended_action" json:"recommended_action"`
	Timeframe         string  `yaml:"timeframe,omitempty" json:"timeframe,omitempty"`
}

type RiskRecord struct {
	DiseaseID         string   `yaml:"disease_id" json:"disease_id"`
	SpecialNotes      string   `yaml:"special_notes" json:"special_notes"`
	RiskGroups        []string `yaml:"risk_groups" json:"risk_groups"`
	Contraindications []string `yaml:"contraindications,omitempty" json:"contraindications,omitempty"`
}

// DiseaseView merges disease, guideline and risk data for one disease ID.
// Guideline and risk fields never override the identity fields.
type DiseaseView struct {
	DiseaseID         string   `json:"disease_id"`
	Name              string   `json:"name"`
	RelatedSymptoms   []string `json:"related_symptoms"`
	Urgency           Urgency  `json:"urgency"`
	RecommendedAction string   `json:"recommended_action,omitempty"`
	Timeframe         string   `json:"timeframe,omitempty"`
	SpecialNotes      string   `json:"special_notes,omitempty"`
	RiskGroups        []string `json:"risk_groups,omitempty"`
	Contraindications []string `json:"contraindications,omitempty"`
}

// Candidate is a disease hypothesized to match the input text. Built per
// query, never persisted.
type Candidate struct {
	DiseaseID       string   `json:"disease_id"`
	DiseaseName     string   `json:"disease_name"`
	Confidence      float64  `json:"confidence"`
	MatchedSymptoms []string `json:"matched_symptoms"`
	MatchCount      int      `json:"match_count"`
}

// PatientInfo is validated on every inbound request.
type PatientInfo struct {
	Age               int    `json:"age"`
	Gender            string `json:"gender"`
	SpecialConditions string `json:"special_conditions,omitempty"`
}

var (
	ErrAgeOutOfRange  = errors.New("age must be between 0 and 120")
	ErrMissingGender  = errors.New("gender is required")
	ErrMissingSymptom = errors.New("symptom text is required")
)

// ValidationError marks malformed caller input. Surfaced with 4xx semantics
// and never retried.
type ValidationError struct {
	reason error
}

func NewValidationError(reason error) ValidationError {
	return ValidationError{reason: reason}
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

func (p PatientInfo) Validate() error {
	if p.Age < 0 || p.Age > 120 {
		return ValidationError{reason: fmt.Errorf("invalid patient info: %w", ErrAgeOutOfRange)}
	}
	if p.Gender == "" {
		return ValidationError{reason: fmt.Errorf("invalid patient info: %w", ErrMissingGender)}
	}
	return nil
}

// IntentAssessment is the semantic judge's verdict on one input text. The
// most recent assessment is carried downstream to compose rejection messages.
type IntentAssessment struct {
	IsMedical  bool   `json:"is_medical"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

// AdviceRequest is the structured payload handed to the advice-generation
// collaborator.
type AdviceRequest struct {
	Patient   PatientInfo     `json:"patient_info"`
	Symptom   Candidate       `json:"symptom_info"`
	Guideline GuidelineRecord `json:"guideline_info"`
	Risk      RiskRecord      `json:"risk_info"`
}

// AdviceResponse is the collaborator's output. It is untrusted and must be
// validated before acceptance.
type AdviceResponse struct {
	Assessment        string   `json:"assessment"`
	ImmediateActions  []string `json:"immediate_actions"`
	MedicalAdvice     string   `json:"medical_advice"`
	MonitoringPoints  []string `json:"monitoring_points"`
	EmergencyHandling string   `json:"emergency_handling,omitempty"`
}

var (
	ErrEmptyAssessment = errors.New("assessment is empty")
	ErrNoActions       = errors.New("immediate_actions must not be empty")
	ErrEmptyAdvice     = errors.New("medical_advice is empty")
)

func (a AdviceResponse) Validate() error {
	if a.Assessment == "" {
		return ErrEmptyAssessment
	}
	if len(a.ImmediateActions) == 0 {
		return ErrNoActions
	}
	if a.MedicalAdvice == "" {
		return ErrEmptyAdvice
	}
	return nil
}

// CandidateProbability pairs a disease with its share of the differential
// distribution.
type CandidateProbability struct {
	DiseaseID   string  `json:"disease_id"`
	DiseaseName string  `json:"disease_name"`
	Probability float64 `json:"probability"`
}

// QueryResult is the terminal object returned to the caller and appended to
// the audit sink.
type QueryResult struct {
	Status            QueryStatus            `json:"status"`
	DiseaseName       string                 `json:"disease_name,omitempty"`
	Urgency           Urgency                `json:"urgency"`
	Advice            *AdviceResponse        `json:"advice,omitempty"`
	SupplementaryInfo map[string]interface{} `json:"supplementary_info,omitempty"`
	ErrorMessage      string                 `json:"error_message,omitempty"`
	ServerDurationMS  int64                  `json:"server_duration_ms,omitempty"`
	TotalDurationMS   int64                  `json:"total_duration_ms,omitempty"`
	Model             string                 `json:"model,omitempty"`
}

// QueryRequest is the service-boundary input shape.
type QueryRequest struct {
	Symptom       string      `json:"symptom"`
	PatientInfo   PatientInfo `json:"patient_info"`
	ClientStartTS string      `json:"client_start_ts,omitempty"`
}

// AuditEntry is emitted once per processed query, best-effort.
type AuditEntry struct {
	ID               string                 `json:"id"`
	Timestamp        time.Time              `json:"timestamp"`
	Symptom          string                 `json:"symptom"`
	PatientInfo      PatientInfo            `json:"patient_info"`
	Status           QueryStatus            `json:"status"`
	DiseaseName      string                 `json:"disease_name,omitempty"`
	Urgency          Urgency                `json:"urgency"`
	Advice           *AdviceResponse        `json:"advice,omitempty"`
	Supplementary    map[string]interface{} `json:"supplementary_info,omitempty"`
	PipelineState    string                 `json:"pipeline_state"`
	ServerDurationMS int64                  `json:"server_duration_ms"`
	TotalDurationMS  int64                  `json:"total_duration_ms"`
	Model            string                 `json:"model,omitempty"`
	SourceChannel    string                 `json:"source_channel,omitempty"`
}
