package audit

import (
	"context"
	"sync"

	"github.com/mediguide-ai/triage/pkg/common/logger"
	"github.com/mediguide-ai/triage/pkg/common/models"
)

// Sink receives one entry per processed query. Appends are best-effort: the
// pipeline swallows and warns on failure, so implementations should never
// panic into the caller.
type Sink interface {
	Append(ctx context.Context, entry models.AuditEntry) error
}

// MemorySink collects entries in memory. Injected in tests in place of the
// file/redis/kafka sinks.
type MemorySink struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, entry models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemorySink) Entries() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// MultiSink fans an entry out to several sinks. Each sink is attempted even
// when an earlier one fails; the first error is reported.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (s *MultiSink) Append(ctx context.Context, entry models.AuditEntry) error {
	var first error
	for _, sink := range s.sinks {
		if err := sink.Append(ctx, entry); err != nil {
			logger.Log.WithError(err).Warn("Audit sink append failed")
			if first == nil {
				first = err
			}
		}
	}
	return first
}
