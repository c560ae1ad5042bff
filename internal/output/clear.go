package output

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mmrzaf/jsonlgen/internal/logging"
)

// ClearPath deletes regular files in dir whose name starts with base and ends
// in .json or .jsonl. Files that cannot be removed are logged and skipped.
func ClearPath(logger *logging.Logger, dir, base string) (int, error) {
	logger.Infow("clear.started", map[string]any{"dir": dir, "pattern": base + "*.json[l]"})
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasPrefix(name, base) {
			continue
		}
		if ext := filepath.Ext(name); ext != ".json" && ext != Extension {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			logger.Errorw("clear.delete_failed", map[string]any{"path": path, "error": err.Error()})
			continue
		}
		logger.Debugw("clear.deleted", map[string]any{"path": path})
		deleted++
	}
	logger.Infow("clear.completed", map[string]any{"deleted": deleted})
	return deleted, nil
}
