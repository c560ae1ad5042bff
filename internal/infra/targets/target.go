package targets

import (
	"context"
	"fmt"
	"time"

	"github.com/mmrzaf/jsonlgen/internal/domain"
	pgTarget "github.com/mmrzaf/jsonlgen/internal/infra/targets/postgres"
	sqliteTarget "github.com/mmrzaf/jsonlgen/internal/infra/targets/sqlite"
	"github.com/mmrzaf/jsonlgen/internal/logging"
)

const DefaultBatchSize = 1000

// Target is a SQL table sink for generated records.
type Target interface {
	Connect(ctx context.Context) error
	Close() error
	ServerVersion(ctx context.Context) (string, error)
	CreateTableIfNotExists(ctx context.Context, table string, plan *domain.Plan) error
	InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) error
}

func New(t *domain.TargetConfig) (Target, error) {
	if t == nil {
		return nil, fmt.Errorf("target config is nil")
	}
	switch t.Kind {
	case domain.SinkPostgres:
		return pgTarget.NewPostgresTarget(t.DSN, ""), nil
	case domain.SinkSQLite:
		return sqliteTarget.NewSQLiteTarget(t.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported target kind: %s", t.Kind)
	}
}

type WriteResult struct {
	Rows    int64
	Batches int
}

// WriteRecords creates the table from plan when missing and inserts records in
// batches of batchSize, each batch in its own transaction.
func WriteRecords(ctx context.Context, tgt Target, table string, plan *domain.Plan, records []domain.Record, batchSize int, logger *logging.Logger) (*WriteResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if err := tgt.CreateTableIfNotExists(ctx, table, plan); err != nil {
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}

	columns := plan.Names()
	res := &WriteResult{}
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		rows := make([][]any, 0, end-start)
		for _, rec := range records[start:end] {
			row := make([]any, len(columns))
			for i, col := range columns {
				row[i], _ = rec.Get(col)
			}
			rows = append(rows, row)
		}

		batchStart := time.Now()
		if err := tgt.InsertBatch(ctx, table, columns, rows); err != nil {
			return res, fmt.Errorf("insert batch %d: %w", res.Batches+1, err)
		}
		res.Batches++
		res.Rows += int64(len(rows))
		logger.Debugw("target.batch_inserted", map[string]any{
			"table":       table,
			"rows":        len(rows),
			"duration_ms": time.Since(batchStart).Milliseconds(),
		})
	}
	logger.Infow("target.write_completed", map[string]any{"table": table, "rows": res.Rows, "batches": res.Batches})
	return res, nil
}
