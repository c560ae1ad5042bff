package runs

import (
	"errors"
	"strings"
	"time"

	"github.com/mmrzaf/jsonlgen/internal/domain"
)

var ErrNotFound = errors.New("run not found")

// Repository stores run history for jsonlgen.
type Repository interface {
	Init() error
	Create(run *domain.Run) error
	Update(run *domain.Run) error
	Get(id string) (*domain.Run, error)
	// List returns runs newest first. A zero since means no lower bound.
	List(limit int, status string, since time.Time) ([]*domain.Run, error)
	Close() error
}

// Open picks the backend from the DSN: postgres URLs and keyword DSNs go to
// PostgreSQL, anything else is a SQLite file path.
func Open(dsn string) Repository {
	dsn = strings.TrimSpace(dsn)
	if isPostgresDSN(dsn) {
		return NewPostgresRepository(dsn)
	}
	return NewSQLiteRepository(dsn)
}

func isPostgresDSN(dsn string) bool {
	l := strings.ToLower(dsn)
	return strings.HasPrefix(l, "postgres://") || strings.HasPrefix(l, "postgresql://") ||
		(strings.Contains(l, "host=") && strings.Contains(l, "dbname="))
}

const runColumns = `id, schema_hash, fields, records, file_count, workers, seed,
	sink, destination, status, started_at, completed_at, stats, error, config_hash`
