package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/relscope/relscope"

// Instruments holds pre-created OTel metric instruments.
type Instruments struct {
	AnalysisDuration metric.Float64Histogram
	AnalysisErrors   metric.Int64Counter
	Associations     metric.Int64Counter
	Ambiguous        metric.Int64Counter
	ToolDuration     metric.Float64Histogram
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return NewInstrumentsFromMeter(noop.NewMeterProvider().Meter(instrumentationName))
}

// NewInstrumentsFromMeter creates the instruments on an explicit meter.
func NewInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	analysisDuration, _ := meter.Float64Histogram("relscope.analysis.duration",
		metric.WithDescription("Catalog load and association inference duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	analysisErrors, _ := meter.Int64Counter("relscope.analysis.errors",
		metric.WithDescription("Total number of failed analysis runs"),
	)
	associations, _ := meter.Int64Counter("relscope.associations",
		metric.WithDescription("Weak associations emitted, by strategy"),
	)
	ambiguous, _ := meter.Int64Counter("relscope.associations.ambiguous",
		metric.WithDescription("Table pairs dropped because their proposals conflicted"),
	)
	toolDuration, _ := meter.Float64Histogram("relscope.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		AnalysisDuration: analysisDuration,
		AnalysisErrors:   analysisErrors,
		Associations:     associations,
		Ambiguous:        ambiguous,
		ToolDuration:     toolDuration,
	}
}

func (i *Instruments) RecordAnalysisDuration(ctx context.Context, ms float64) {
	i.AnalysisDuration.Record(ctx, ms)
}

func (i *Instruments) RecordAssociations(ctx context.Context, kind string, n int64) {
	i.Associations.Add(ctx, n, metric.WithAttributes(attribute.String("association.kind", kind)))
}

func (i *Instruments) RecordAmbiguous(ctx context.Context, n int64) {
	i.Ambiguous.Add(ctx, n)
}

func (i *Instruments) IncrementAnalysisErrors(ctx context.Context) {
	i.AnalysisErrors.Add(ctx, 1)
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
