package operations

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Record captures the outcome of a single restore run.
type Record struct {
	RunID       string        `json:"run_id"`
	Engine      string        `json:"engine"`
	Database    string        `json:"database"`
	Artifact    string        `json:"artifact"`
	Status      string        `json:"status"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
	SizeBytes   int64         `json:"size_bytes"`
}

// finish stamps the completion time and outcome.
func (r Record) finish(err error) Record {
	r.CompletedAt = time.Now()
	r.Duration = r.CompletedAt.Sub(r.StartedAt)
	if err != nil {
		r.Status = "failed"
		r.Error = err.Error()
		return r
	}
	r.Status = "success"
	return r
}

// Write stores the record as indented JSON under dirPath, one file per run.
func (r *Record) Write(dirPath string) error {
	// Ensure directory exists
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return fmt.Errorf("ensure run directory %q: %w", dirPath, err)
	}

	filePath := filepath.Join(dirPath, fmt.Sprintf("%s-%s.json", r.Database, r.RunID))
	jsonFile, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("create run record %q: %w", filePath, err)
	}
	defer jsonFile.Close()

	encoder := json.NewEncoder(jsonFile)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("encode run record JSON: %w", err)
	}
	return nil
}
