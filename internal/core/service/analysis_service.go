package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/relscope/relscope/internal/core/association"
	"github.com/relscope/relscope/internal/core/domain"
	"github.com/relscope/relscope/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Snapshot is an immutable catalog together with the associations inferred
// from it.
type Snapshot struct {
	RunID    string
	Source   string
	LoadedAt time.Time
	Catalog  *domain.Catalog
	Result   *association.Result
}

// AnalysisService loads a catalog from its source and runs the inference
// engine over it.
type AnalysisService struct {
	loader   port.CatalogLoader
	analyzer *association.Analyzer
	recorder port.RunRecorder
	logger   *slog.Logger
	tracer   trace.Tracer
	inst     port.Instrumentation
	now      func() time.Time
}

func NewAnalysisService(loader port.CatalogLoader, analyzer *association.Analyzer, recorder port.RunRecorder, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *AnalysisService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &AnalysisService{
		loader:   loader,
		analyzer: analyzer,
		recorder: recorder,
		logger:   logger,
		tracer:   tracer,
		inst:     inst,
		now:      time.Now,
	}
}

// Run performs one full load and analysis. Every run, failed or not, is
// recorded.
func (s *AnalysisService) Run(ctx context.Context) (*Snapshot, error) {
	runID := uuid.NewString()
	source := s.loader.Source()

	ctx, span := s.tracer.Start(ctx, "AnalysisService.Run",
		trace.WithAttributes(
			attribute.String("relscope.run_id", runID),
			attribute.String("catalog.source", source),
		),
	)
	defer span.End()

	start := s.now()
	snap, err := s.run(ctx, runID, source)
	durationMS := s.now().Sub(start).Milliseconds()
	s.inst.RecordAnalysisDuration(ctx, float64(durationMS))

	entry := port.RunEntry{RunID: runID, Source: source, DurationMS: durationMS, Err: err}
	if snap != nil {
		stats := snap.Result.Stats
		entry.Tables = stats.Tables
		entry.Associations = stats.Associations
		entry.Excluded = stats.Excluded
		entry.Ambiguous = stats.Ambiguous
	}
	s.recorder.Record(ctx, entry)

	if err != nil {
		s.logger.ErrorContext(ctx, "analysis failed",
			slog.String("run_id", runID),
			slog.String("source", source),
			slog.String("error", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementAnalysisErrors(ctx)
		return nil, err
	}

	stats := snap.Result.Stats
	span.SetAttributes(
		attribute.Int("catalog.tables", stats.Tables),
		attribute.Int("relscope.associations", stats.Associations),
		attribute.Int("relscope.ambiguous", stats.Ambiguous),
	)
	byKind := make(map[association.Kind]int64)
	for _, wa := range snap.Result.Associations {
		byKind[wa.Kind]++
	}
	for _, k := range association.Kinds() {
		if n := byKind[k]; n > 0 {
			s.inst.RecordAssociations(ctx, k.String(), n)
		}
	}
	if stats.Ambiguous > 0 {
		s.inst.RecordAmbiguous(ctx, int64(stats.Ambiguous))
	}

	s.logger.InfoContext(ctx, "analysis complete",
		slog.String("run_id", runID),
		slog.String("source", source),
		slog.Int("tables", stats.Tables),
		slog.Int("candidate_keys", stats.CandidateKeys),
		slog.Int("proposals", stats.Proposals),
		slog.Int("associations", stats.Associations),
		slog.Int("excluded", stats.Excluded),
		slog.Int("ambiguous", stats.Ambiguous),
		slog.Int64("duration_ms", durationMS),
	)
	return snap, nil
}

func (s *AnalysisService) run(ctx context.Context, runID, source string) (*Snapshot, error) {
	loadCtx, loadSpan := s.tracer.Start(ctx, "CatalogLoader.LoadCatalog")
	cat, err := s.loader.LoadCatalog(loadCtx)
	loadSpan.End()
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	analyzeCtx, analyzeSpan := s.tracer.Start(ctx, "Analyzer.Analyze")
	res, err := s.analyzer.Analyze(analyzeCtx, cat)
	analyzeSpan.End()
	if err != nil {
		return nil, fmt.Errorf("analyzing catalog: %w", err)
	}

	return &Snapshot{
		RunID:    runID,
		Source:   source,
		LoadedAt: s.now().UTC(),
		Catalog:  cat,
		Result:   res,
	}, nil
}
