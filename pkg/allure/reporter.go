package allure

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Reporter records scheduled test results. Schedule registers a result
// under an id; Close finalizes it and hands it to the sink.
type Reporter interface {
	Schedule(id string, result TestResult)
	Close(id string) error
}

// NewResultID returns a fresh result identifier.
func NewResultID() string {
	return uuid.NewString()
}

// HistoryID derives a stable history identifier from a logical test
// identity, so re-runs of the same entry line up in the report timeline.
func HistoryID(identity string) string {
	return uuid.NewMD5(uuid.NameSpaceOID, []byte(identity)).String()
}

// FileReporter writes closed results as <uuid>-result.json files into a
// results directory, the layout report tooling ingests.
type FileReporter struct {
	dir string

	mu      sync.Mutex
	pending map[string]TestResult
}

// NewFileReporter creates the results directory if needed.
func NewFileReporter(dir string) (*FileReporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}
	return &FileReporter{dir: dir, pending: make(map[string]TestResult)}, nil
}

// Dir returns the results directory.
func (r *FileReporter) Dir() string { return r.dir }

// Schedule registers a result to be written on Close.
func (r *FileReporter) Schedule(id string, result TestResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[id] = result
}

// Close writes the scheduled result to disk and forgets it.
func (r *FileReporter) Close(id string) error {
	r.mu.Lock()
	result, ok := r.pending[id]
	delete(r.pending, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("close of unscheduled result %q", id)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result %q: %w", id, err)
	}
	path := filepath.Join(r.dir, id+"-result.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing result %q: %w", id, err)
	}
	return nil
}

// MemoryReporter collects closed results in memory. Test double for the
// file reporter.
type MemoryReporter struct {
	mu      sync.Mutex
	pending map[string]TestResult
	Closed  []TestResult
}

// NewMemoryReporter returns an empty in-memory reporter.
func NewMemoryReporter() *MemoryReporter {
	return &MemoryReporter{pending: make(map[string]TestResult)}
}

// Schedule registers a result.
func (r *MemoryReporter) Schedule(id string, result TestResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[id] = result
}

// Close moves a scheduled result into Closed.
func (r *MemoryReporter) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, ok := r.pending[id]
	if !ok {
		return fmt.Errorf("close of unscheduled result %q", id)
	}
	delete(r.pending, id)
	r.Closed = append(r.Closed, result)
	return nil
}
