package history

import (
	"context"
	"encoding/json"

	"github.com/mediguide-ai/triage/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&QueryRecord{})
}

func (r *Repository) Save(ctx context.Context, record QueryRecord) error {
	return r.db.WithContext(ctx).Create(&record).Error
}

func (r *Repository) List(ctx context.Context, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&QueryRecord{}).Count(&total).Error; err != nil {
		return Page{}, err
	}

	var items []QueryRecord
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return Page{}, err
	}

	return Page{Items: items, Page: page, PageSize: pageSize, Total: total}, nil
}

// RecentOutcomes loads the status and duration columns needed for stats
// aggregation, newest first, capped at limit.
func (r *Repository) RecentOutcomes(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 1000
	}
	var rows []QueryRecord
	err := r.db.WithContext(ctx).
		Select("status", "server_duration_ms", "total_duration_ms").
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	outcomes := make([]Outcome, 0, len(rows))
	for _, row := range rows {
		outcomes = append(outcomes, Outcome{
			Status:           models.QueryStatus(row.Status),
			ServerDurationMS: row.ServerDurationMS,
			TotalDurationMS:  row.TotalDurationMS,
		})
	}
	return outcomes, nil
}

// DBSink adapts the repository to the audit.Sink interface so query history
// persistence rides the same emission path as the other sinks.
type DBSink struct {
	repo *Repository
}

func NewDBSink(repo *Repository) *DBSink {
	return &DBSink{repo: repo}
}

func (s *DBSink) Append(ctx context.Context, entry models.AuditEntry) error {
	return s.repo.Save(ctx, toRecord(entry))
}

func toRecord(entry models.AuditEntry) QueryRecord {
	return QueryRecord{
		ID:               entry.ID,
		Timestamp:        entry.Timestamp,
		Symptom:          entry.Symptom,
		PatientAge:       entry.PatientInfo.Age,
		PatientGender:    entry.PatientInfo.Gender,
		Status:           string(entry.Status),
		DiseaseName:      entry.DiseaseName,
		Urgency:          string(entry.Urgency),
		Advice:           toJSONMap(entry.Advice),
		Supplementary:    datatypes.JSONMap(entry.Supplementary),
		PipelineState:    entry.PipelineState,
		ServerDurationMS: entry.ServerDurationMS,
		TotalDurationMS:  entry.TotalDurationMS,
		Model:            entry.Model,
		SourceChannel:    entry.SourceChannel,
	}
}

func toJSONMap(advice *models.AdviceResponse) datatypes.JSONMap {
	if advice == nil {
		return nil
	}
	raw, err := json.Marshal(advice)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return datatypes.JSONMap(out)
}
