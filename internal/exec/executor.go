package exec

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/mmrzaf/jsonlgen/internal/domain"
	"github.com/mmrzaf/jsonlgen/internal/generators"
	"github.com/mmrzaf/jsonlgen/internal/logging"
	"github.com/mmrzaf/jsonlgen/internal/registry"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidPlan = errors.New("cannot generate data: the generation plan is not valid")

type Options struct {
	Workers int
	// Seed fixes the random streams; worker i uses Seed+i. Nil seeds every
	// worker from crypto/rand.
	Seed *int64
	// Now overrides the wall clock used by timestamp rules.
	Now func() time.Time
}

type Executor struct {
	genRegistry *registry.GeneratorRegistry
	logger      *logging.Logger
}

func NewExecutor(genRegistry *registry.GeneratorRegistry, logger *logging.Logger) *Executor {
	return &Executor{genRegistry: genRegistry, logger: logger}
}

// boundField pairs a plan field with the generator resolved for its rule, so the
// hot loop does not touch the registry.
type boundField struct {
	name string
	rule domain.Rule
	gen  generators.Generator
}

func (e *Executor) bind(plan *domain.Plan) ([]boundField, error) {
	fields := make([]boundField, len(plan.Fields))
	for i, f := range plan.Fields {
		gen, err := e.genRegistry.Get(f.Rule.Kind)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", f.Name, err)
		}
		fields[i] = boundField{name: f.Name, rule: f.Rule, gen: gen}
	}
	return fields, nil
}

func evaluate(fields []boundField, rng *rand.Rand, ctx generators.GeneratorContext) (domain.Record, error) {
	rec := domain.Record{
		Names:  make([]string, len(fields)),
		Values: make([]any, len(fields)),
	}
	for i, f := range fields {
		val, err := f.gen.Generate(rng, f.rule, ctx)
		if err != nil {
			return domain.Record{}, fmt.Errorf("field '%s', row %d: %w", f.name, ctx.RowIndex, err)
		}
		rec.Names[i] = f.name
		rec.Values[i] = val
	}
	return rec, nil
}

// Generate evaluates plan count times. With more than one worker the
// evaluations are spread over goroutines that each own a random source; the
// result is always in index order. Any failure aborts the whole request.
func (e *Executor) Generate(ctx context.Context, plan *domain.Plan, count int64, opts Options) ([]domain.Record, error) {
	if plan == nil {
		e.logger.Errorw("generate.invalid_plan", nil)
		return nil, ErrInvalidPlan
	}
	if count < 0 {
		return nil, domain.NewError(domain.ErrNegativeCount, "record count cannot be negative: %d", count)
	}

	fields, err := e.bind(plan)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	e.logger.Infow("generate.started", map[string]any{"records": count, "workers": opts.Workers, "fields": len(fields)})

	var records []domain.Record
	if opts.Workers <= 1 {
		records, err = e.generateSequential(ctx, fields, count, opts)
	} else {
		records, err = e.generateParallel(ctx, fields, count, opts)
	}
	if err != nil {
		e.logger.Errorw("generate.failed", map[string]any{"error": err.Error()})
		return nil, err
	}

	e.logger.Infow("generate.completed", map[string]any{
		"records":     len(records),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return records, nil
}

func (e *Executor) generateSequential(ctx context.Context, fields []boundField, count int64, opts Options) ([]domain.Record, error) {
	rng := newWorkerRand(opts.Seed, 0)
	records := make([]domain.Record, count)
	for i := int64(0); i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := evaluate(fields, rng, generators.GeneratorContext{RowIndex: i, Now: opts.Now})
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

// generateParallel deals indices round-robin: index i always goes to worker
// i % Workers, so a seeded run draws every record from the same stream.
func (e *Executor) generateParallel(ctx context.Context, fields []boundField, count int64, opts Options) ([]domain.Record, error) {
	records := make([]domain.Record, count)
	jobs := make([]chan int64, opts.Workers)
	for w := range jobs {
		jobs[w] = make(chan int64, 64)
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer func() {
			for _, ch := range jobs {
				close(ch)
			}
		}()
		for i := int64(0); i < count; i++ {
			select {
			case jobs[i%int64(opts.Workers)] <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < opts.Workers; w++ {
		rng := newWorkerRand(opts.Seed, w)
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("worker %d crashed: %v", w, r)
				}
			}()
			for i := range jobs[w] {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				rec, err := evaluate(fields, rng, generators.GeneratorContext{RowIndex: i, Now: opts.Now})
				if err != nil {
					return err
				}
				// each index is dispatched exactly once, so slots are never shared
				records[i] = rec
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func newWorkerRand(seed *int64, worker int) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewSource(*seed + int64(worker)))
	}
	return rand.New(rand.NewSource(GenerateSeed()))
}

// GenerateSeed returns a seed drawn from crypto/rand.
func GenerateSeed() int64 {
	var b [8]byte
	_, _ = crand.Read(b[:])
	return int64(binary.LittleEndian.Uint64(b[:]))
}
