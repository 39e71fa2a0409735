package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mediguide-ai/triage/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

// RedisSink keeps the most recent entries in a capped list, newest first.
type RedisSink struct {
	client  *redis.Client
	key     string
	maxSize int64
}

func NewRedisSink(client *redis.Client, key string, maxSize int64) *RedisSink {
	if maxSize <= 0 {
		maxSize = 5000
	}
	return &RedisSink{client: client, key: key, maxSize: maxSize}
}

func (s *RedisSink) Append(ctx context.Context, entry models.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, 0, s.maxSize-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis audit append: %w", err)
	}
	return nil
}

// Recent returns up to n most recent entries.
func (s *RedisSink) Recent(ctx context.Context, n int64) ([]models.AuditEntry, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis audit read: %w", err)
	}
	entries := make([]models.AuditEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.AuditEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
