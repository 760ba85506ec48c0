package catalog

import "time"

// Scan run states.
const (
	ScanRunning = "running"
	ScanSuccess = "success"
	ScanFailed  = "error"
)

// ScanRun records one ingestion pass over a root directory.
type ScanRun struct {
	ID         string
	Root       string
	Recursive  bool
	Extensions string // comma-separated allow-list, empty for all files
	StartedAt  time.Time
	FinishedAt *time.Time
	Seen       int
	Added      int
	Skipped    int
	Status     string
}

// Finished reports whether the run has completed, successfully or not.
func (r *ScanRun) Finished() bool {
	return r.FinishedAt != nil
}

// Duration returns how long a finished run took, or zero while running.
func (r *ScanRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
