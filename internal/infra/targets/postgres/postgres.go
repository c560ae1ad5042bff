package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mmrzaf/jsonlgen/internal/domain"
)

// maxParams is the bind parameter limit of the postgres wire protocol.
const maxParams = 65535

type PostgresTarget struct {
	dsn    string
	schema string
	db     *sql.DB
}

func NewPostgresTarget(dsn, schema string) *PostgresTarget {
	if schema == "" {
		schema = "public"
	}
	return &PostgresTarget{dsn: dsn, schema: schema}
}

func (t *PostgresTarget) Connect(ctx context.Context) error {
	db, err := sql.Open("postgres", t.dsn)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	t.db = db
	return nil
}

func (t *PostgresTarget) Close() error {
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

func (t *PostgresTarget) ServerVersion(ctx context.Context) (string, error) {
	var version string
	err := t.db.QueryRowContext(ctx, `SHOW server_version`).Scan(&version)
	return version, err
}

func (t *PostgresTarget) qualified(table string) string {
	return pq.QuoteIdentifier(t.schema) + "." + pq.QuoteIdentifier(table)
}

func (t *PostgresTarget) CreateTableIfNotExists(ctx context.Context, table string, plan *domain.Plan) error {
	var exists bool
	query := `SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2
	)`
	if err := t.db.QueryRowContext(ctx, query, t.schema, table).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}

	columnDefs := make([]string, len(plan.Fields))
	for i, f := range plan.Fields {
		columnDefs[i] = fmt.Sprintf("%s %s", pq.QuoteIdentifier(f.Name), mapColumnType(f.Rule.ValueType()))
	}
	_, err := t.db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", t.qualified(table), strings.Join(columnDefs, ", ")))
	return err
}

func mapColumnType(typ domain.DeclaredType) string {
	switch typ {
	case domain.DeclaredTypeInt, domain.DeclaredTypeTimestamp:
		return "BIGINT"
	default:
		return "TEXT"
	}
}

// InsertBatch writes rows inside one transaction using multi-row INSERT
// statements sized to stay under the bind parameter limit.
func (t *PostgresTarget) InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 || len(columns) == 0 {
		return nil
	}

	quotedCols := make([]string, len(columns))
	for i, col := range columns {
		quotedCols[i] = pq.QuoteIdentifier(col)
	}
	perStmt := max(1, maxParams/len(columns))

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for start := 0; start < len(rows); start += perStmt {
		chunk := rows[start:min(start+perStmt, len(rows))]
		placeholders := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			rowPlaceholders := make([]string, len(columns))
			for j := range columns {
				rowPlaceholders[j] = fmt.Sprintf("$%d", i*len(columns)+j+1)
				args = append(args, row[j])
			}
			placeholders[i] = "(" + strings.Join(rowPlaceholders, ", ") + ")"
		}

		insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			t.qualified(table), strings.Join(quotedCols, ", "), strings.Join(placeholders, ", "))
		if _, err := tx.ExecContext(ctx, insertSQL, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}
