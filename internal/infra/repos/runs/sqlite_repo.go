package runs

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mmrzaf/jsonlgen/internal/domain"
)

// timeLayout is fixed width so stored timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	dbPath string
	db     *sql.DB
}

func NewSQLiteRepository(dbPath string) *SQLiteRepository {
	return &SQLiteRepository{dbPath: dbPath}
}

func (r *SQLiteRepository) Init() error {
	if r.dbPath == "" {
		return fmt.Errorf("runs db path is required")
	}
	if dir := filepath.Dir(r.dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create runs db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", r.dbPath)
	if err != nil {
		return err
	}
	r.db = db

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		schema_hash TEXT NOT NULL,
		fields INTEGER NOT NULL,
		records INTEGER NOT NULL,
		file_count INTEGER NOT NULL,
		workers INTEGER NOT NULL,
		seed INTEGER,
		sink TEXT NOT NULL,
		destination TEXT,
		status TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP,
		stats TEXT,
		error TEXT,
		config_hash TEXT NOT NULL DEFAULT ''
	)`
	if _, err := r.db.Exec(createTableSQL); err != nil {
		return err
	}
	if err := r.addColumnIfMissing("config_hash", `TEXT NOT NULL DEFAULT ''`); err != nil {
		return err
	}
	_, err = r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC)`)
	return err
}

// addColumnIfMissing upgrades run databases created before column was added.
func (r *SQLiteRepository) addColumnIfMissing(column, decl string) error {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('runs') WHERE name = ?`, column).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := r.db.Exec(fmt.Sprintf(`ALTER TABLE runs ADD COLUMN %s %s`, column, decl))
	return err
}

func (r *SQLiteRepository) DB() *sql.DB { return r.db }

func (r *SQLiteRepository) Create(run *domain.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	query := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		run.ID, run.SchemaHash, run.Fields, run.Records, run.FileCount, run.Workers, run.Seed,
		run.Sink, run.Destination, run.Status,
		run.StartedAt.UTC().Format(timeLayout), formatTime(run.CompletedAt),
		nullableJSON(run.Stats), run.Error, run.ConfigHash,
	)
	return err
}

func (r *SQLiteRepository) Update(run *domain.Run) error {
	query := `
		UPDATE runs SET
			status = ?, completed_at = ?, stats = ?, error = ?
		WHERE id = ?
	`
	res, err := r.db.Exec(query, run.Status, formatTime(run.CompletedAt), nullableJSON(run.Stats), run.Error, run.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Get(id string) (*domain.Run, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanSQLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

func (r *SQLiteRepository) List(limit int, status string, since time.Time) ([]*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	args := make([]interface{}, 0)
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	if !since.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, since.UTC().Format(timeLayout))
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.Run, 0)
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(s scanner) (*domain.Run, error) {
	var (
		run            domain.Run
		seed           sql.NullInt64
		destination    sql.NullString
		startedAtStr   string
		completedAtStr sql.NullString
		statsStr       sql.NullString
		errorStr       sql.NullString
	)
	err := s.Scan(
		&run.ID, &run.SchemaHash, &run.Fields, &run.Records, &run.FileCount, &run.Workers, &seed,
		&run.Sink, &destination, &run.Status, &startedAtStr, &completedAtStr, &statsStr, &errorStr,
		&run.ConfigHash,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAtStr)
	if completedAtStr.Valid {
		t, _ := time.Parse(time.RFC3339Nano, completedAtStr.String)
		run.CompletedAt = &t
	}
	fillOptional(&run, seed, destination, statsStr, errorStr)
	return &run, nil
}

func fillOptional(run *domain.Run, seed sql.NullInt64, destination, stats, errStr sql.NullString) {
	if seed.Valid {
		v := seed.Int64
		run.Seed = &v
	}
	if destination.Valid {
		run.Destination = destination.String
	}
	if stats.Valid && stats.String != "" {
		run.Stats = []byte(stats.String)
	}
	if errStr.Valid {
		run.Error = errStr.String
	}
}

func formatTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
