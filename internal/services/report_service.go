// Package services orchestrates report runs: it wires dataset loading,
// report building and artifact export into pipeline steps, tracks run state
// in memory and publishes progress to subscribers.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"insightcli/internal/config"
	"insightcli/internal/dataset"
	"insightcli/internal/infrastructure"
	"insightcli/internal/operations"
	"insightcli/internal/report"
)

// stepTimeout bounds each pipeline step; model fitting dominates and stays
// well under this on the report datasets.
const stepTimeout = 10 * time.Minute

// Context keys for passing pipeline data between steps.
const (
	ctxKeyFrame     = "frame"
	ctxKeyReport    = "report"
	ctxKeyArtifacts = "artifacts"
)

// ProgressSink receives run snapshots; the websocket hub implements it.
type ProgressSink interface {
	BroadcastProgress(operations.RunSnapshot)
}

// Loader fetches and parses one dataset source.
type Loader interface {
	Load(ctx context.Context, src dataset.Source) (*dataset.Frame, error)
}

// fetchLoader is the production loader: HTTP fetch, then format dispatch.
type fetchLoader struct {
	fetcher *dataset.Fetcher
}

func (l fetchLoader) Load(ctx context.Context, src dataset.Source) (*dataset.Frame, error) {
	data, err := l.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.ID, err)
	}
	frame, err := dataset.Parse(src, data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.ID, err)
	}
	return frame, nil
}

// ReportInfo describes one runnable report for listings.
type ReportInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	SourceURL   string `json:"source_url"`
	Format      string `json:"format"`
}

// ReportService runs report pipelines and tracks their state.
type ReportService struct {
	cfg      *config.Config
	loader   Loader
	builders []report.Builder
	exporter *report.Exporter
	logger   *slog.Logger
	sink     ProgressSink
	metrics  *runMetrics

	mu       sync.Mutex
	runs     map[string]*operations.RunState
	inflight map[string]string // report id -> active run id
}

// ServiceOption configures the report service.
type ServiceOption func(*ReportService)

// WithLoader overrides the dataset loader.
func WithLoader(l Loader) ServiceOption {
	return func(s *ReportService) { s.loader = l }
}

// WithProgressSink registers a progress subscriber.
func WithProgressSink(sink ProgressSink) ServiceOption {
	return func(s *ReportService) { s.sink = sink }
}

// WithRegisterer sets the Prometheus registry for run metrics.
func WithRegisterer(reg prometheus.Registerer) ServiceOption {
	return func(s *ReportService) { s.metrics = newRunMetrics(reg) }
}

// NewReportService creates the service with the production loader and the
// builders for every registered dataset.
func NewReportService(cfg *config.Config, logger *slog.Logger, opts ...ServiceOption) *ReportService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	s := &ReportService{
		cfg:      cfg,
		loader:   fetchLoader{fetcher: dataset.NewFetcher(cfg.Fetch, logger)},
		builders: report.Builders(cfg.Pipeline, logger),
		exporter: report.NewExporter(cfg.Paths.ReportsDir, logger),
		logger:   logger.With(slog.String("component", "report_service")),
		runs:     make(map[string]*operations.RunState),
		inflight: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = newRunMetrics(nil)
	}
	return s
}

// ListReports returns metadata for every runnable report.
func (s *ReportService) ListReports() []ReportInfo {
	out := make([]ReportInfo, 0, len(s.builders))
	for _, src := range dataset.Sources() {
		out = append(out, ReportInfo{
			ID:          src.ID,
			Description: src.Description,
			SourceURL:   src.URL,
			Format:      string(src.Format),
		})
	}
	return out
}

// StartRun launches a report run asynchronously and returns its run id.
// A report can only have one active run at a time.
func (s *ReportService) StartRun(ctx context.Context, reportID string) (string, error) {
	builder, err := report.LookupBuilder(s.builders, reportID)
	if err != nil {
		return "", fmt.Errorf("start run: %w: %s", ErrUnknownReport, reportID)
	}
	src, err := dataset.Lookup(reportID)
	if err != nil {
		return "", fmt.Errorf("start run: %w: %s", ErrUnknownReport, reportID)
	}

	s.mu.Lock()
	if runID, busy := s.inflight[reportID]; busy {
		s.mu.Unlock()
		return "", fmt.Errorf("start run: %w: report %s has active run %s",
			ErrRunInProgress, reportID, runID)
	}
	runID := uuid.New().String()
	state := operations.NewRunState(runID, reportID)
	s.runs[runID] = state
	s.inflight[reportID] = runID
	s.mu.Unlock()

	// The run outlives the request; carry only the trace id forward.
	runCtx := context.Background()
	if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
		runCtx = infrastructure.WithTraceID(runCtx, traceID)
	}

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.inflight, reportID)
			s.mu.Unlock()
		}()
		s.execute(runCtx, state, src, builder)
	}()

	s.logger.InfoContext(ctx, "run started",
		slog.String("run_id", runID), slog.String("report", reportID))
	return runID, nil
}

// RunSync executes a report pipeline synchronously and returns the final
// snapshot. Used by the CLI.
func (s *ReportService) RunSync(ctx context.Context, reportID string) (operations.RunSnapshot, error) {
	builder, err := report.LookupBuilder(s.builders, reportID)
	if err != nil {
		return operations.RunSnapshot{}, fmt.Errorf("run %s: %w", reportID, ErrUnknownReport)
	}
	src, err := dataset.Lookup(reportID)
	if err != nil {
		return operations.RunSnapshot{}, fmt.Errorf("run %s: %w", reportID, ErrUnknownReport)
	}

	state := operations.NewRunState(uuid.New().String(), reportID)
	s.mu.Lock()
	s.runs[state.ID] = state
	s.mu.Unlock()

	if err := s.execute(ctx, state, src, builder); err != nil {
		return state.Snapshot(), err
	}
	return state.Snapshot(), nil
}

// RunAll executes every report concurrently and returns the first error.
func (s *ReportService) RunAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, b := range s.builders {
		reportID := b.ID()
		g.Go(func() error {
			_, err := s.RunSync(ctx, reportID)
			return err
		})
	}
	return g.Wait()
}

// Status returns the snapshot of a run.
func (s *ReportService) Status(runID string) (operations.RunSnapshot, error) {
	s.mu.Lock()
	state, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		return operations.RunSnapshot{}, fmt.Errorf("status: %w: %s", ErrRunNotFound, runID)
	}
	return state.Snapshot(), nil
}

// Runs returns a snapshot of every tracked run.
func (s *ReportService) Runs() []operations.RunSnapshot {
	s.mu.Lock()
	states := make([]*operations.RunState, 0, len(s.runs))
	for _, state := range s.runs {
		states = append(states, state)
	}
	s.mu.Unlock()

	out := make([]operations.RunSnapshot, 0, len(states))
	for _, state := range states {
		out = append(out, state.Snapshot())
	}
	return out
}

// execute runs the three pipeline steps and records metrics.
func (s *ReportService) execute(ctx context.Context, state *operations.RunState, src dataset.Source, builder report.Builder) error {
	s.metrics.runsActive.Inc()
	defer s.metrics.runsActive.Dec()

	runner := operations.NewRunner(
		s.pipelineSteps(src, builder),
		operations.WithLogger(s.logger),
		operations.WithStepTimeout(stepTimeout),
		operations.WithProgress(s.publish),
	)

	err := runner.Run(ctx, state)
	snap := state.Snapshot()
	s.metrics.observe(state.ReportID, string(snap.Status), snap.Duration.Seconds())
	if err != nil {
		return fmt.Errorf("run %s: %w", state.ReportID, err)
	}
	return nil
}

// pipelineSteps builds the load, build and export steps for one report.
func (s *ReportService) pipelineSteps(src dataset.Source, builder report.Builder) []operations.Step {
	return []operations.Step{
		operations.StepFunc("load", "Fetch and parse dataset",
			func(ctx context.Context, state *operations.RunState) error {
				frame, err := s.loader.Load(ctx, src)
				if err != nil {
					return err
				}
				state.SetContext(ctxKeyFrame, frame)
				return nil
			}),
		operations.StepFunc("build", "Build report",
			func(ctx context.Context, state *operations.RunState) error {
				val, ok := state.GetContext(ctxKeyFrame)
				if !ok {
					return fmt.Errorf("build: no frame in run context")
				}
				rep, err := builder.Build(ctx, val.(*dataset.Frame))
				if err != nil {
					return err
				}
				state.SetContext(ctxKeyReport, rep)
				return nil
			}),
		operations.StepFunc("export", "Export artifacts",
			func(ctx context.Context, state *operations.RunState) error {
				val, ok := state.GetContext(ctxKeyReport)
				if !ok {
					return fmt.Errorf("export: no report in run context")
				}
				paths, err := s.exporter.Export(ctx, val.(*report.Report))
				if err != nil {
					return err
				}
				state.SetContext(ctxKeyArtifacts, paths)
				return nil
			}),
	}
}

func (s *ReportService) publish(snap operations.RunSnapshot) {
	if s.sink != nil {
		s.sink.BroadcastProgress(snap)
	}
}
