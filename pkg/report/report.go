package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/DrSkyle/idlewatch/pkg/finding"
	"github.com/DrSkyle/idlewatch/pkg/storage"
)

// Header is the fixed CSV column set. Downstream consumers diff these files
// day over day; do not reorder.
var Header = []string{"resource_type", "identifier", "region", "reason", "detected_at"}

// RunReport is the durable artifact of one invocation.
type RunReport struct {
	GeneratedAt time.Time
	Findings    []finding.Finding
	Location    string
}

// New builds a report over the aggregated findings.
func New(generatedAt time.Time, findings []finding.Finding) *RunReport {
	return &RunReport{GeneratedAt: generatedAt, Findings: findings}
}

// Key derives the object key from the invocation's calendar date (UTC).
// Runs on the same day overwrite each other, which is acceptable.
func Key(t time.Time) string {
	return fmt.Sprintf("unused-resources-report-%s.csv", t.UTC().Format("2006-01-02"))
}

// StorageError wraps a rejected report upload. The run fails on it; a report
// that was never persisted is not a report.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to store report %q: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// CSV serializes the findings, header row included. encoding/csv handles the
// quoting of embedded commas.
func (r *RunReport) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for _, f := range r.Findings {
		record := []string{
			string(f.Type),
			f.ID,
			f.Region,
			f.Reason,
			f.DetectedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes the report and puts it in the store under the dated key.
// On success the report's Location is filled in and returned.
func (r *RunReport) Write(ctx context.Context, store storage.BlobStore) (string, error) {
	data, err := r.CSV()
	if err != nil {
		return "", fmt.Errorf("failed to serialize report: %w", err)
	}

	key := Key(r.GeneratedAt)
	if err := store.Put(ctx, key, data, "text/csv"); err != nil {
		return "", &StorageError{Key: key, Err: err}
	}

	r.Location = store.Location(key)
	return r.Location, nil
}

// Parse reads a serialized report back into findings. Mostly a verification
// aid; the pipeline itself never re-reads reports.
func Parse(data []byte) ([]finding.Finding, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse report csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("report has no header row")
	}

	var findings []finding.Finding
	for _, rec := range records[1:] {
		if len(rec) != len(Header) {
			return nil, fmt.Errorf("row has %d fields, want %d", len(rec), len(Header))
		}
		detectedAt, err := time.Parse(time.RFC3339, rec[4])
		if err != nil {
			return nil, fmt.Errorf("bad detected_at %q: %w", rec[4], err)
		}
		findings = append(findings, finding.Finding{
			Type:       finding.ResourceType(rec[0]),
			ID:         rec[1],
			Region:     rec[2],
			Reason:     rec[3],
			DetectedAt: detectedAt,
		})
	}
	return findings, nil
}
