package audit

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mediguide-ai/triage/pkg/common/logger"
	"github.com/mediguide-ai/triage/pkg/common/models"
)

func init() {
	logger.InitQuiet()
}

func testEntry(id string) models.AuditEntry {
	return models.AuditEntry{
		ID:      id,
		Symptom: "咳嗽发烧",
		Status:  models.StatusSuccess,
		Urgency: models.UrgencyLow,
	}
}

func TestFileSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := sink.Append(context.Background(), testEntry(fmt.Sprintf("e%d", i))); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	entries, err := sink.Entries()
	if err != nil {
		t.Fatalf("failed to read back entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ID != "e0" || entries[2].ID != "e2" {
		t.Fatalf("entries out of order: %v", entries)
	}
}

func TestFileSinkMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-written.json")
	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}

	entries, err := sink.Entries()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty log, got %d entries", len(entries))
	}
}

func TestFileSinkConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := sink.Append(context.Background(), testEntry(fmt.Sprintf("c%d", i))); err != nil {
				t.Errorf("concurrent append failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := sink.Entries()
	if err != nil {
		t.Fatalf("failed to read back entries: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(entries))
	}
}

type errorSink struct{}

func (errorSink) Append(_ context.Context, _ models.AuditEntry) error {
	return errors.New("sink down")
}

func TestMultiSinkAttemptsAllSinks(t *testing.T) {
	mem := NewMemorySink()
	multi := NewMultiSink(errorSink{}, mem)

	err := multi.Append(context.Background(), testEntry("m1"))
	if err == nil {
		t.Fatal("expected first sink's error to surface")
	}
	if len(mem.Entries()) != 1 {
		t.Fatal("expected later sink to still receive the entry")
	}
}

func TestMemorySinkCopiesOnRead(t *testing.T) {
	mem := NewMemorySink()
	if err := mem.Append(context.Background(), testEntry("a")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	entries := mem.Entries()
	entries[0].ID = "mutated"

	if mem.Entries()[0].ID != "a" {
		t.Fatal("internal slice was aliased to the caller")
	}
}
