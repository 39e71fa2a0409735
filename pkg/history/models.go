package history

import (
	"time"

	"gorm.io/datatypes"
)

// QueryRecord is the persisted form of one processed query.
type QueryRecord struct {
	ID               string            `gorm:"primaryKey;column:id" json:"id"`
	Timestamp        time.Time         `gorm:"column:timestamp;index" json:"timestamp"`
	Symptom          string            `gorm:"column:symptom" json:"symptom"`
	PatientAge       int               `gorm:"column:patient_age" json:"patient_age"`
	PatientGender    string            `gorm:"column:patient_gender" json:"patient_gender"`
	Status           string            `gorm:"column:status;index" json:"status"`
	DiseaseName      string            `gorm:"column:disease_name" json:"disease_name"`
	Urgency          string            `gorm:"column:urgency" json:"urgency"`
	Advice           datatypes.JSONMap `gorm:"column:advice;type:jsonb" json:"advice,omitempty"`
	Supplementary    datatypes.JSONMap `gorm:"column:supplementary;type:jsonb" json:"supplementary_info,omitempty"`
	PipelineState    string            `gorm:"column:pipeline_state" json:"pipeline_state"`
	ServerDurationMS int64             `gorm:"column:server_duration_ms" json:"server_duration_ms"`
	TotalDurationMS  int64             `gorm:"column:total_duration_ms" json:"total_duration_ms"`
	Model            string            `gorm:"column:model" json:"model,omitempty"`
	SourceChannel    string            `gorm:"column:source_channel" json:"source_channel,omitempty"`
}

func (QueryRecord) TableName() string {
	return "query_history"
}

// Page is one page of history records.
type Page struct {
	Items    []QueryRecord `json:"items"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int64         `json:"total"`
}
