package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mediguide-ai/triage/pkg/common/models"
)

// FileSink appends entries to a JSON array on disk. Writes follow
// read-append-replace semantics: the full collection is rewritten to a temp
// file and renamed over the original, so a crash mid-write never corrupts
// prior entries. A mutex serializes writers within the process.
type FileSink struct {
	path string
	mu   sync.Mutex
}

func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &FileSink{path: path}, nil
}

func (s *FileSink) Append(_ context.Context, entry models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return err
	}
	entries = append(entries, entry)

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal audit entries: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".audit-*")
	if err != nil {
		return fmt.Errorf("create temp audit file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write audit file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close audit file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace audit file: %w", err)
	}
	return nil
}

// Entries reads back the full collection. A missing file is an empty log.
func (s *FileSink) Entries() ([]models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

func (s *FileSink) readAll() ([]models.AuditEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read audit file: %w", err)
	}
	var entries []models.AuditEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode audit file: %w", err)
	}
	return entries, nil
}
