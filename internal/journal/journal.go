// Package journal appends published events as JSON lines for offline audit.
package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fangwater/crypto-trade/internal/event"
)

// JSONLJournal appends events as JSON lines. Journaling is best-effort: a
// write failure must never stall the dispatch loop.
type JSONLJournal struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// New creates/opens the target file and returns a journal.
func New(path string) (*JSONLJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLJournal{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record writes a single event to the underlying JSONL file.
func (j *JSONLJournal) Record(ev event.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.enc.Encode(ev)
}

// Close flushes and closes the file handle.
func (j *JSONLJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
