package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// FileRecorder appends journal events to a file, one JSON object per
// line. Writes are serialized; the file is opened once and kept open
// for the recorder's lifetime.
type FileRecorder struct {
	mu sync.Mutex
	f  *os.File
}

var _ Recorder = (*FileRecorder)(nil)

// NewFileRecorder opens (creating if needed) an append-only journal
// file.
func NewFileRecorder(path string) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	return &FileRecorder{f: f}, nil
}

// Record implements Recorder.
func (r *FileRecorder) Record(_ context.Context, event *Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("journal: encode event: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.f.Write(line); err != nil {
		return fmt.Errorf("journal: append event: %w", err)
	}
	return nil
}

// Close flushes and closes the journal file.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Close()
}
