package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/mmrzaf/jsonlgen/internal/domain"
	"github.com/mmrzaf/jsonlgen/internal/logging"
)

type WriteResult struct {
	Paths          []string
	FilesWritten   int
	FilesFailed    int
	RecordsDropped int64
}

type FileWriter struct {
	logger *logging.Logger
	rng    *rand.Rand
}

func NewFileWriter(logger *logging.Logger, rng *rand.Rand) *FileWriter {
	return &FileWriter{logger: logger, rng: rng}
}

// WriteFiles splits records into chunks of dataLines and writes chunk i to the
// i-th file name. Chunks beyond fileCount are dropped with a warning. A file
// that cannot be written is logged and skipped.
func (w *FileWriter) WriteFiles(records []domain.Record, fileCount, dataLines int, dir, base, prefix string) (*WriteResult, error) {
	res := &WriteResult{}
	if len(records) == 0 {
		w.logger.Warnw("save.nothing_to_save", map[string]any{"reason": "no data was generated"})
		return res, nil
	}
	if dataLines < 1 {
		return nil, domain.NewError(domain.ErrInvalidDataLines, "data_lines must be >= 1, got %d", dataLines)
	}

	names, err := FileNames(base, prefix, fileCount, w.rng)
	if err != nil {
		return nil, err
	}

	for start, chunkIdx := 0, 0; start < len(records); start, chunkIdx = start+dataLines, chunkIdx+1 {
		end := min(start+dataLines, len(records))
		if chunkIdx >= len(names) {
			res.RecordsDropped = int64(len(records) - start)
			w.logger.Warnw("save.chunks_dropped", map[string]any{
				"reason":          "generated more data chunks than the specified file_count",
				"records_dropped": res.RecordsDropped,
			})
			break
		}

		path := filepath.Join(dir, names[chunkIdx])
		if err := writeJSONLines(path, records[start:end]); err != nil {
			res.FilesFailed++
			w.logger.Errorw("save.file_failed", map[string]any{"path": path, "error": err.Error()})
			continue
		}
		res.FilesWritten++
		res.Paths = append(res.Paths, path)
		w.logger.Debugw("save.file_written", map[string]any{"path": path, "lines": end - start})
	}

	w.logger.Infow("save.completed", map[string]any{"files_written": res.FilesWritten, "files_failed": res.FilesFailed})
	return res, nil
}

func writeJSONLines(path string, records []domain.Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	if err := EncodeJSONLines(bw, records); err != nil {
		return err
	}
	return bw.Flush()
}

// EncodeJSONLines writes one compact JSON object per line.
func EncodeJSONLines(w io.Writer, records []domain.Record) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

const consoleHeader = "--- Generated Data ---"

// PrintRecords pretty-prints every record with a four space indent.
func PrintRecords(w io.Writer, records []domain.Record) error {
	if _, err := fmt.Fprintln(w, consoleHeader); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}
