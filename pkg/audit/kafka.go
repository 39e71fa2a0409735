package audit

import (
	"context"

	"github.com/mediguide-ai/triage/pkg/common/kafka"
	"github.com/mediguide-ai/triage/pkg/common/models"
)

// KafkaSink publishes each audit entry as a triage event for downstream
// consumers (dashboards, long-term storage).
type KafkaSink struct {
	producer *kafka.Producer
}

func NewKafkaSink(producer *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Append(ctx context.Context, entry models.AuditEntry) error {
	return s.producer.PublishEvent(ctx, "query-processed", "triage-service", map[string]interface{}{
		"id":                 entry.ID,
		"timestamp":          entry.Timestamp,
		"status":             string(entry.Status),
		"disease_name":       entry.DiseaseName,
		"urgency":            string(entry.Urgency),
		"pipeline_state":     entry.PipelineState,
		"server_duration_ms": entry.ServerDurationMS,
		"total_duration_ms":  entry.TotalDurationMS,
		"model":              entry.Model,
	})
}
