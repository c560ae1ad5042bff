package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/mmrzaf/jsonlgen/internal/compiler"
	"github.com/mmrzaf/jsonlgen/internal/domain"
	"github.com/mmrzaf/jsonlgen/internal/exec"
	"github.com/mmrzaf/jsonlgen/internal/hashing"
	"github.com/mmrzaf/jsonlgen/internal/infra/repos/runs"
	"github.com/mmrzaf/jsonlgen/internal/infra/repos/schemas"
	"github.com/mmrzaf/jsonlgen/internal/infra/targets"
	"github.com/mmrzaf/jsonlgen/internal/logging"
	"github.com/mmrzaf/jsonlgen/internal/output"
	"github.com/mmrzaf/jsonlgen/internal/registry"
	"github.com/mmrzaf/jsonlgen/internal/validation"
)

type RunService struct {
	schemaRepo  schemas.Repository
	runRepo     runs.Repository
	genRegistry *registry.GeneratorRegistry
	executor    *exec.Executor
	logger      *logging.Logger
	stdout      io.Writer
	now         func() time.Time
}

type Option func(*RunService)

// WithStdout redirects console output, which defaults to os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(s *RunService) { s.stdout = w }
}

// WithClock fixes the clock used by timestamp rules.
func WithClock(now func() time.Time) Option {
	return func(s *RunService) { s.now = now }
}

// NewRunService wires the pipeline. runRepo may be nil, which disables run
// history.
func NewRunService(
	schemaRepo schemas.Repository,
	runRepo runs.Repository,
	genRegistry *registry.GeneratorRegistry,
	logger *logging.Logger,
	opts ...Option,
) *RunService {
	s := &RunService{
		schemaRepo:  schemaRepo,
		runRepo:     runRepo,
		genRegistry: genRegistry,
		executor:    exec.NewExecutor(genRegistry, logger.WithComponent("exec")),
		logger:      logger,
		stdout:      os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadSchema resolves a schema source and rejects empty schemas.
func (s *RunService) LoadSchema(source string) (*domain.Schema, error) {
	schema, err := s.schemaRepo.Load(source)
	if err != nil {
		return nil, err
	}
	if schema.Len() == 0 {
		return nil, domain.NewError(domain.ErrInvalidSchemaSource, "could not load data schema: schema is empty")
	}
	return schema, nil
}

func (s *RunService) Compile(schema *domain.Schema, collectAll bool) (*domain.Plan, error) {
	opts := []compiler.Option{compiler.WithLogger(s.logger.WithComponent("compiler"))}
	if collectAll {
		opts = append(opts, compiler.WithCollectAll())
	}
	return compiler.NewCompiler(s.genRegistry, opts...).Compile(schema)
}

// Plan loads and compiles a schema source in one step.
func (s *RunService) Plan(source string, collectAll bool) (*domain.Plan, error) {
	schema, err := s.LoadSchema(source)
	if err != nil {
		return nil, err
	}
	return s.Compile(schema, collectAll)
}

func (s *RunService) GenerateRecords(ctx context.Context, plan *domain.Plan, count int64, workers int, seed *int64) ([]domain.Record, error) {
	return s.executor.Generate(ctx, plan, count, exec.Options{Workers: workers, Seed: seed, Now: s.now})
}

// Sink reports where a request writes its records.
func Sink(req *domain.GenerateRequest) string {
	switch {
	case req.Target != nil:
		return req.Target.Kind
	case req.FileCount == 0:
		return domain.SinkConsole
	default:
		return domain.SinkFiles
	}
}

// RecordCount is data_lines per file, or data_lines alone when no files are written.
func RecordCount(req *domain.GenerateRequest) int64 {
	return int64(max(req.FileCount, 1)) * int64(req.DataLines)
}

// Run executes one request end to end. Validation and schema errors are
// returned before anything is recorded; later failures mark the run failed.
func (s *RunService) Run(ctx context.Context, req *domain.GenerateRequest) (*domain.Run, error) {
	if err := validation.ValidateGenerateRequest(req); err != nil {
		return nil, err
	}
	sink := Sink(req)

	var saveDir string
	if sink == domain.SinkFiles || sink == domain.SinkConsole {
		abs, err := validation.ValidateSavePath(req.SavePath)
		if err != nil {
			return nil, err
		}
		saveDir = abs
	}

	schema, err := s.LoadSchema(req.DataSchema)
	if err != nil {
		return nil, err
	}

	if req.ClearPath && sink == domain.SinkFiles {
		if _, err := output.ClearPath(s.logger.WithComponent("output"), saveDir, req.FileName); err != nil {
			s.logger.Errorw("clear.failed", map[string]any{"dir": saveDir, "error": err.Error()})
		}
	}

	plan, err := s.Compile(schema, req.CollectAll)
	if err != nil {
		return nil, err
	}
	if req.Target != nil {
		if err := validation.ValidatePlanColumns(plan); err != nil {
			return nil, err
		}
	}

	schemaHash, err := hashing.HashSchema(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to hash schema: %w", err)
	}
	configHash, err := hashing.HashRunConfig(plan, req, sink)
	if err != nil {
		return nil, fmt.Errorf("failed to hash run config: %w", err)
	}

	run := &domain.Run{
		SchemaHash:  schemaHash,
		ConfigHash:  configHash,
		Fields:      plan.Len(),
		Records:     RecordCount(req),
		FileCount:   req.FileCount,
		Workers:     req.Workers,
		Seed:        req.Seed,
		Sink:        sink,
		Destination: destination(req, saveDir),
		Status:      domain.RunStatusRunning,
		StartedAt:   time.Now().UTC(),
	}
	if s.runRepo != nil {
		if err := s.runRepo.Create(run); err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
	}
	s.logger.Infow("run.started", map[string]any{
		"run_id": run.ID, "sink": sink, "records": run.Records, "workers": req.Workers, "schema_hash": schemaHash,
	})

	stats, err := s.execute(ctx, req, plan, run, saveDir)
	if err != nil {
		s.finish(run, stats, err)
		return run, err
	}
	s.finish(run, stats, nil)
	return run, nil
}

func (s *RunService) execute(ctx context.Context, req *domain.GenerateRequest, plan *domain.Plan, run *domain.Run, saveDir string) (*domain.RunStats, error) {
	stats := &domain.RunStats{}

	genStart := time.Now()
	records, err := s.GenerateRecords(ctx, plan, run.Records, req.Workers, req.Seed)
	stats.GenerateSeconds = time.Since(genStart).Seconds()
	if err != nil {
		return stats, err
	}
	stats.RecordsGenerated = int64(len(records))

	writeStart := time.Now()
	defer func() { stats.WriteSeconds = time.Since(writeStart).Seconds() }()

	switch run.Sink {
	case domain.SinkConsole:
		return stats, output.PrintRecords(s.stdout, records)
	case domain.SinkFiles:
		w := output.NewFileWriter(s.logger.WithComponent("output"), fileNameRand(req.Seed))
		res, err := w.WriteFiles(records, req.FileCount, req.DataLines, saveDir, req.FileName, req.Prefix)
		if err != nil {
			return stats, err
		}
		stats.FilesWritten = res.FilesWritten
		stats.FilesFailed = res.FilesFailed
		stats.RecordsDropped = res.RecordsDropped
		s.logger.Infow("save.summary", map[string]any{"message": fmt.Sprintf("Successfully saved data to %d file(s).", res.FilesWritten)})
		return stats, nil
	default:
		return stats, s.writeTarget(ctx, req.Target, plan, records)
	}
}

func (s *RunService) writeTarget(ctx context.Context, cfg *domain.TargetConfig, plan *domain.Plan, records []domain.Record) error {
	tgt, err := targets.New(cfg)
	if err != nil {
		return err
	}
	if err := tgt.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", targets.Destination(cfg), err)
	}
	defer tgt.Close()
	_, err = targets.WriteRecords(ctx, tgt, cfg.Table, plan, records, targets.DefaultBatchSize, s.logger.WithComponent("target"))
	return err
}

func (s *RunService) finish(run *domain.Run, stats *domain.RunStats, runErr error) {
	now := time.Now().UTC()
	run.CompletedAt = &now
	if stats != nil {
		stats.DurationSeconds = now.Sub(run.StartedAt).Seconds()
		run.Stats, _ = json.Marshal(stats)
	}
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.Error = runErr.Error()
		s.logger.Errorw("run.failed", map[string]any{"run_id": run.ID, "error": runErr.Error()})
	} else {
		run.Status = domain.RunStatusSuccess
		s.logger.Infow("run.completed", map[string]any{"run_id": run.ID, "sink": run.Sink, "records": run.Records})
	}
	if s.runRepo != nil {
		if err := s.runRepo.Update(run); err != nil {
			s.logger.Errorw("run.update_failed", map[string]any{"run_id": run.ID, "error": err.Error()})
		}
	}
}

func (s *RunService) GetRun(id string) (*domain.Run, error) {
	if s.runRepo == nil {
		return nil, runs.ErrNotFound
	}
	return s.runRepo.Get(id)
}

func (s *RunService) ListRuns(limit int, status string, since time.Time) ([]*domain.Run, error) {
	if s.runRepo == nil {
		return []*domain.Run{}, nil
	}
	return s.runRepo.List(limit, status, since)
}

func destination(req *domain.GenerateRequest, saveDir string) string {
	switch {
	case req.Target != nil:
		return targets.Destination(req.Target)
	case req.FileCount == 0:
		return "stdout"
	default:
		return saveDir
	}
}

// fileNameRand drives random file name suffixes; seeded runs get stable names.
func fileNameRand(seed *int64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewSource(*seed))
	}
	return rand.New(rand.NewSource(exec.GenerateSeed()))
}

// Stream generates count records from plan and writes them to w as JSON Lines.
// The run is recorded with the http sink.
func (s *RunService) Stream(ctx context.Context, plan *domain.Plan, count int64, workers int, seed *int64, w io.Writer) (*domain.Run, error) {
	if plan == nil {
		return nil, exec.ErrInvalidPlan
	}
	schemaHash, err := hashing.HashSchema(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to hash schema: %w", err)
	}
	configHash, err := hashing.HashRunConfig(plan, &domain.GenerateRequest{DataLines: int(count), Seed: seed}, domain.SinkHTTP)
	if err != nil {
		return nil, fmt.Errorf("failed to hash run config: %w", err)
	}
	run := &domain.Run{
		SchemaHash:  schemaHash,
		ConfigHash:  configHash,
		Fields:      plan.Len(),
		Records:     count,
		Workers:     workers,
		Seed:        seed,
		Sink:        domain.SinkHTTP,
		Destination: "response",
		Status:      domain.RunStatusRunning,
		StartedAt:   time.Now().UTC(),
	}
	if s.runRepo != nil {
		if err := s.runRepo.Create(run); err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
	}

	stats := &domain.RunStats{}
	genStart := time.Now()
	records, err := s.GenerateRecords(ctx, plan, count, workers, seed)
	stats.GenerateSeconds = time.Since(genStart).Seconds()
	if err == nil {
		stats.RecordsGenerated = int64(len(records))
		writeStart := time.Now()
		err = output.EncodeJSONLines(w, records)
		stats.WriteSeconds = time.Since(writeStart).Seconds()
	}
	s.finish(run, stats, err)
	return run, err
}
