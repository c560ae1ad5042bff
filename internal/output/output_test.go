package output

import (
	"bytes"
	"encoding/json"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/mmrzaf/jsonlgen/internal/domain"
	"github.com/mmrzaf/jsonlgen/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(buf *bytes.Buffer) *logging.Logger {
	return logging.NewLoggerWithWriter("debug", buf)
}

func sampleRecords(n int) []domain.Record {
	records := make([]domain.Record, n)
	for i := range records {
		rec := domain.NewRecord(4)
		rec.Set("id", int64(i))
		rec.Set("name", faker.Name())
		rec.Set("note", "<b>&</b>")
		rec.Set("missing", nil)
		records[i] = rec
	}
	return records
}

func readJSONLines(r io.Reader) ([]domain.Record, error) {
	records := make([]domain.Record, 0)
	dec := json.NewDecoder(r)
	for dec.More() {
		var rec domain.Record
		if err := dec.Decode(&rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func TestFileNamesCount(t *testing.T) {
	names, err := FileNames("x", domain.PrefixCount, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x_1.jsonl", "x_2.jsonl", "x_3.jsonl"}, names)

	names, err = FileNames("x", domain.PrefixUUID, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x.jsonl"}, names)

	names, err = FileNames("x", domain.PrefixCount, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFileNamesRandomAndUUID(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	names, err := FileNames("out", domain.PrefixRandom, 50, rng)
	require.NoError(t, err)
	require.Len(t, names, 50)
	randomRe := regexp.MustCompile(`^out_[1-9]\d{4}\.jsonl$`)
	seen := map[string]bool{}
	for _, n := range names {
		assert.Regexp(t, randomRe, n)
		assert.False(t, seen[n], "duplicate name %s", n)
		seen[n] = true
	}

	names, err = FileNames("out", domain.PrefixUUID, 5, rng)
	require.NoError(t, err)
	uuidRe := regexp.MustCompile(`^out_[0-9a-f]{8}\.jsonl$`)
	for _, n := range names {
		assert.Regexp(t, uuidRe, n)
	}

	_, err = FileNames("out", "weird", 2, rng)
	assert.Error(t, err)
}

func TestFileNamesRandomSuffixSpace(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	names, err := FileNames("out", domain.PrefixRandom, domain.RandomSuffixSpace, rng)
	require.NoError(t, err)
	require.Len(t, names, domain.RandomSuffixSpace)

	names, err = FileNames("out", domain.PrefixRandom, domain.RandomSuffixSpace+1, rng)
	require.Error(t, err)
	assert.Nil(t, names)
	assert.Equal(t, domain.ErrTooManyFiles, domain.CodeOf(err))

	names, err = FileNames("out", domain.PrefixCount, domain.RandomSuffixSpace+1, nil)
	require.NoError(t, err)
	assert.Len(t, names, domain.RandomSuffixSpace+1)
}

func TestWriteFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	var logs bytes.Buffer
	w := NewFileWriter(testLogger(&logs), rand.New(rand.NewSource(7)))

	records := sampleRecords(6)
	res, err := w.WriteFiles(records, 3, 2, dir, "data", domain.PrefixCount)
	require.NoError(t, err)
	assert.Equal(t, 3, res.FilesWritten)
	assert.Zero(t, res.FilesFailed)
	assert.Zero(t, res.RecordsDropped)

	var got []domain.Record
	for i, name := range []string{"data_1.jsonl", "data_2.jsonl", "data_3.jsonl"} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(string(raw), "\n"), "file %d", i)
		assert.Contains(t, string(raw), "<b>&</b>")
		recs, err := readJSONLines(bytes.NewReader(raw))
		require.NoError(t, err)
		got = append(got, recs...)
	}

	require.Len(t, got, len(records))
	for i := range records {
		assert.Equal(t, records[i].Names, got[i].Names)
		assert.Equal(t, records[i].Values, got[i].Values)
	}
}

func TestWriteFilesDropsExtraChunks(t *testing.T) {
	dir := t.TempDir()
	var logs bytes.Buffer
	w := NewFileWriter(testLogger(&logs), nil)

	res, err := w.WriteFiles(sampleRecords(5), 2, 2, dir, "d", domain.PrefixCount)
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesWritten)
	assert.Equal(t, int64(1), res.RecordsDropped)
	assert.Contains(t, logs.String(), "save.chunks_dropped")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWriteFilesSingleFile(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(nil, nil)

	res, err := w.WriteFiles(sampleRecords(3), 1, 3, dir, "one", domain.PrefixUUID)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "one.jsonl")}, res.Paths)
}

func TestWriteFilesSkipsUnwritableFile(t *testing.T) {
	dir := t.TempDir()
	// a directory squatting on the first name makes os.Create fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, "f_1.jsonl"), 0o755))

	var logs bytes.Buffer
	w := NewFileWriter(testLogger(&logs), nil)
	res, err := w.WriteFiles(sampleRecords(2), 2, 1, dir, "f", domain.PrefixCount)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesWritten)
	assert.Equal(t, 1, res.FilesFailed)
	assert.Contains(t, logs.String(), "save.file_failed")
}

func TestWriteFilesEmpty(t *testing.T) {
	w := NewFileWriter(nil, nil)
	res, err := w.WriteFiles(nil, 3, 1, t.TempDir(), "x", domain.PrefixCount)
	require.NoError(t, err)
	assert.Zero(t, res.FilesWritten)
}

func TestPrintRecords(t *testing.T) {
	rec := domain.NewRecord(2)
	rec.Set("id", int64(1))
	rec.Set("tag", "a&b")

	var buf bytes.Buffer
	require.NoError(t, PrintRecords(&buf, []domain.Record{rec}))
	want := "--- Generated Data ---\n{\n    \"id\": 1,\n    \"tag\": \"a&b\"\n}\n"
	assert.Equal(t, want, buf.String())
}

func TestClearPath(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"out.jsonl", "out_1.jsonl", "out_2.json", "out_3.txt", "other.jsonl", "output_x.jsonl"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}\n"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "out_dir.jsonl"), 0o755))

	deleted, err := ClearPath(nil, dir, "out")
	require.NoError(t, err)
	assert.Equal(t, 4, deleted)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var left []string
	for _, e := range entries {
		left = append(left, e.Name())
	}
	sort.Strings(left)
	assert.Equal(t, []string{"other.jsonl", "out_3.txt", "out_dir.jsonl"}, left)
}

func TestClearPathMissingDir(t *testing.T) {
	_, err := ClearPath(nil, filepath.Join(t.TempDir(), "nope"), "out")
	assert.Error(t, err)
}
