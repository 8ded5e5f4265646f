package port

import "context"

// Instrumentation records application-level metrics.
type Instrumentation interface {
	RecordAnalysisDuration(ctx context.Context, ms float64)
	RecordAssociations(ctx context.Context, kind string, n int64)
	RecordAmbiguous(ctx context.Context, n int64)
	IncrementAnalysisErrors(ctx context.Context)
	RecordToolDuration(ctx context.Context, ms float64)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) RecordAnalysisDuration(context.Context, float64)   {}
func (NoopInstrumentation) RecordAssociations(context.Context, string, int64) {}
func (NoopInstrumentation) RecordAmbiguous(context.Context, int64)            {}
func (NoopInstrumentation) IncrementAnalysisErrors(context.Context)           {}
func (NoopInstrumentation) RecordToolDuration(context.Context, float64)       {}
