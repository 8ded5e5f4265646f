package port

import "context"

// RunEntry summarizes one analysis run.
type RunEntry struct {
	RunID        string
	Source       string
	Tables       int
	Associations int
	Excluded     int
	Ambiguous    int
	DurationMS   int64
	Err          error
}

// RunRecorder records analysis runs.
type RunRecorder interface {
	Record(ctx context.Context, entry RunEntry)
	Close() error
}
