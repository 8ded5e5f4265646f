package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/relscope/relscope/internal/core/port"
)

// runLine is one NDJSON record of the run log.
type runLine struct {
	Timestamp    string  `json:"ts"`
	RunID        string  `json:"run_id"`
	Source       string  `json:"source"`
	Tables       int     `json:"tables"`
	Associations int     `json:"associations"`
	Excluded     int     `json:"excluded"`
	Ambiguous    int     `json:"ambiguous"`
	DurationMS   int64   `json:"duration_ms"`
	Error        *string `json:"error"`
}

// RunLog appends one JSON object per analysis run to a file.
type RunLog struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	now  func() time.Time
}

// NewRunLog opens (or creates) the file at path for append-only writing.
func NewRunLog(path string) (*RunLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	return &RunLog{
		file: f,
		enc:  json.NewEncoder(f),
		now:  time.Now,
	}, nil
}

func (l *RunLog) Record(_ context.Context, entry port.RunEntry) {
	line := runLine{
		Timestamp:    l.now().UTC().Format(time.RFC3339),
		RunID:        entry.RunID,
		Source:       entry.Source,
		Tables:       entry.Tables,
		Associations: entry.Associations,
		Excluded:     entry.Excluded,
		Ambiguous:    entry.Ambiguous,
		DurationMS:   entry.DurationMS,
	}
	if entry.Err != nil {
		s := entry.Err.Error()
		line.Error = &s
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.enc.Encode(line) // best-effort; a run never fails on log I/O
}

func (l *RunLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// NoopRecorder discards all run entries.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, port.RunEntry) {}
func (NoopRecorder) Close() error                          { return nil }
