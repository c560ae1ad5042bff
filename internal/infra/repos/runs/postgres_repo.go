package runs

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/mmrzaf/jsonlgen/internal/domain"
)

type PostgresRepository struct {
	dsn string
	db  *sql.DB
}

func NewPostgresRepository(dsn string) *PostgresRepository {
	return &PostgresRepository{dsn: strings.TrimSpace(dsn)}
}

func (r *PostgresRepository) Init() error {
	if r.dsn == "" {
		return fmt.Errorf("runs db dsn is required")
	}
	db, err := sql.Open("postgres", r.dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return err
	}
	r.db = db
	return r.applyMigrations()
}

func (r *PostgresRepository) DB() *sql.DB { return r.db }

func (r *PostgresRepository) applyMigrations() error {
	if _, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS jsonlgen_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}
	var cur int
	if err := r.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM jsonlgen_migrations`).Scan(&cur); err != nil {
		return err
	}

	migs := []struct {
		v  int
		up func(*sql.DB) error
	}{
		{1, migrateV1RunsPG},
		{2, migrateV2RunsIndexPG},
		{3, migrateV3RunsConfigHashPG},
	}
	for _, m := range migs {
		if cur >= m.v {
			continue
		}
		if err := m.up(r.db); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.v, err)
		}
		if _, err := r.db.Exec(`INSERT INTO jsonlgen_migrations(version) VALUES ($1)`, m.v); err != nil {
			return err
		}
		cur = m.v
	}
	return nil
}

func migrateV1RunsPG(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		schema_hash TEXT NOT NULL,
		fields INTEGER NOT NULL,
		records BIGINT NOT NULL,
		file_count INTEGER NOT NULL,
		workers INTEGER NOT NULL,
		seed BIGINT,
		sink TEXT NOT NULL,
		destination TEXT,
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ,
		stats TEXT,
		error TEXT
	)`)
	return err
}

func migrateV2RunsIndexPG(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC)`)
	return err
}

func migrateV3RunsConfigHashPG(db *sql.DB) error {
	_, err := db.Exec(`ALTER TABLE runs ADD COLUMN IF NOT EXISTS config_hash TEXT NOT NULL DEFAULT ''`)
	return err
}

func (r *PostgresRepository) Create(run *domain.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := r.db.Exec(`INSERT INTO runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		run.ID, run.SchemaHash, run.Fields, run.Records, run.FileCount, run.Workers, run.Seed,
		run.Sink, run.Destination, run.Status, run.StartedAt, run.CompletedAt,
		nullableJSON(run.Stats), run.Error, run.ConfigHash,
	)
	return err
}

func (r *PostgresRepository) Update(run *domain.Run) error {
	res, err := r.db.Exec(`
	UPDATE runs SET
		status = $1, completed_at = $2, stats = $3, error = $4
	WHERE id = $5`,
		run.Status, run.CompletedAt, nullableJSON(run.Stats), run.Error, run.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Get(id string) (*domain.Run, error) {
	run, err := scanPostgresRun(r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

func (r *PostgresRepository) List(limit int, status string, since time.Time) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	args := make([]interface{}, 0, 3)
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !since.IsZero() {
		args = append(args, since.UTC())
		query += fmt.Sprintf(" AND started_at >= $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Run, 0)
	for rows.Next() {
		run, err := scanPostgresRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func scanPostgresRun(s scanner) (*domain.Run, error) {
	var (
		run         domain.Run
		seed        sql.NullInt64
		destination sql.NullString
		completedAt sql.NullTime
		statsStr    sql.NullString
		errStr      sql.NullString
	)
	err := s.Scan(
		&run.ID, &run.SchemaHash, &run.Fields, &run.Records, &run.FileCount, &run.Workers, &seed,
		&run.Sink, &destination, &run.Status, &run.StartedAt, &completedAt, &statsStr, &errStr,
		&run.ConfigHash,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	fillOptional(&run, seed, destination, statsStr, errStr)
	return &run, nil
}
