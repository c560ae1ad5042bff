package api

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmrzaf/jsonlgen/internal/app"
	"github.com/mmrzaf/jsonlgen/internal/domain"
	"github.com/mmrzaf/jsonlgen/internal/infra/repos/runs"
	"github.com/mmrzaf/jsonlgen/internal/infra/repos/schemas"
	"github.com/mmrzaf/jsonlgen/internal/logging"
	"github.com/mmrzaf/jsonlgen/internal/registry"
)

func newTestHandler(t *testing.T) (*Handler, *runs.SQLiteRepository) {
	t.Helper()

	runRepo := runs.NewSQLiteRepository(filepath.Join(t.TempDir(), "runs.db"))
	if err := runRepo.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = runRepo.Close() })

	logger := logging.NewLogger("error")
	runSvc := app.NewRunService(schemas.NewFileRepository(logger), runRepo, registry.DefaultGeneratorRegistry(), logger)
	return NewHandler(runSvc), runRepo
}

func newMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/plan", h.Plan)
	mux.HandleFunc("POST /api/v1/generate", h.Generate)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	return mux
}

func do(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestPlan_ReturnsOrderedFields(t *testing.T) {
	h, _ := newTestHandler(t)
	rr := do(t, newMux(h), http.MethodPost, "/api/v1/plan",
		`{"schema": {"z": "int:rand(5, 1)", "a": "str:['x', 'y']", "m": "timestamp:"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var got planResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.SchemaHash == "" || len(got.Fields) != 3 {
		t.Fatalf("unexpected plan: %+v", got)
	}
	if got.Fields[0].Name != "z" || got.Fields[0].Rule.Low != 1 || got.Fields[0].Rule.High != 5 {
		t.Fatalf("unexpected first field: %+v", got.Fields[0])
	}
	if got.Fields[1].Rule.Kind != domain.RuleChoiceStr || got.Fields[2].Rule.Kind != domain.RuleCurrentTimestamp {
		t.Fatalf("unexpected rules: %+v", got.Fields)
	}
}

func TestPlan_InlineStringSchema(t *testing.T) {
	h, _ := newTestHandler(t)
	rr := do(t, newMux(h), http.MethodPost, "/api/v1/plan", `{"schema": "{\"id\": \"int:1\"}"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestPlan_CollectsAllErrors(t *testing.T) {
	h, _ := newTestHandler(t)
	rr := do(t, newMux(h), http.MethodPost, "/api/v1/plan",
		`{"schema": {"a": "float:1", "b": "str:rand(1,2)", "c": "int:ok"}, "collect_all": true}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var got errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %+v", got.Errors)
	}
	want := []domain.ErrorCode{domain.ErrUnknownType, domain.ErrTypeMismatch, domain.ErrInvalidStaticValue}
	for i, code := range want {
		if got.Errors[i].Code != string(code) {
			t.Fatalf("error %d: expected %s, got %+v", i, code, got.Errors[i])
		}
	}
}

func TestPlan_BadRequests(t *testing.T) {
	h, _ := newTestHandler(t)
	mux := newMux(h)

	cases := map[string]string{
		"not json":      `{`,
		"unknown field": `{"schema": {"a": "int:1"}, "extra": 1}`,
		"missing":       `{}`,
		"empty":         `{"schema": {}}`,
		"list":          `{"schema": ["a"]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := do(t, mux, http.MethodPost, "/api/v1/plan", body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestGenerate_StreamsRecordsAndRecordsRun(t *testing.T) {
	h, runRepo := newTestHandler(t)
	mux := newMux(h)

	rr := do(t, mux, http.MethodPost, "/api/v1/generate",
		`{"schema": {"id": "int:rand(1, 3)", "kind": "str:x"}, "count": 25, "workers": 2, "seed": 5}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("unexpected content type %q", ct)
	}

	lines := 0
	sc := bufio.NewScanner(rr.Body)
	for sc.Scan() {
		var rec domain.Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		if strings.Join(rec.Names, ",") != "id,kind" {
			t.Fatalf("unexpected field order %v", rec.Names)
		}
		lines++
	}
	if lines != 25 {
		t.Fatalf("expected 25 lines, got %d", lines)
	}

	runID := rr.Header().Get("X-Run-Id")
	run, err := runRepo.Get(runID)
	if err != nil {
		t.Fatalf("expected recorded run: %v", err)
	}
	if run.Sink != domain.SinkHTTP || run.Status != domain.RunStatusSuccess || run.Records != 25 || run.ConfigHash == "" {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestGenerate_RejectsBadCount(t *testing.T) {
	h, _ := newTestHandler(t)
	mux := newMux(h)
	for _, body := range []string{
		`{"schema": {"a": "int:1"}, "count": -1}`,
		`{"schema": {"a": "int:1"}, "count": 10, "workers": -1}`,
		`{"schema": {"a": "int:x"}}`,
	} {
		if rr := do(t, mux, http.MethodPost, "/api/v1/generate", body); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rr.Code)
		}
	}
}

func TestRuns_ListAndGet(t *testing.T) {
	h, runRepo := newTestHandler(t)
	mux := newMux(h)

	now := time.Now().UTC()
	run := &domain.Run{
		ID:         "run-1",
		SchemaHash: "h",
		Fields:     2,
		Records:    10,
		Sink:       domain.SinkFiles,
		Status:     domain.RunStatusFailed,
		StartedAt:  now,
		Error:      "boom",
	}
	if err := runRepo.Create(run); err != nil {
		t.Fatal(err)
	}

	rr := do(t, mux, http.MethodGet, "/api/v1/runs/run-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got domain.Run
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Error != "boom" || got.Status != domain.RunStatusFailed {
		t.Fatalf("unexpected run: %+v", got)
	}

	rr = do(t, mux, http.MethodGet, "/api/v1/runs?status=failed&limit=5", "")
	var list []domain.Run
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "run-1" {
		t.Fatalf("unexpected list: %+v", list)
	}

	rr = do(t, mux, http.MethodGet, "/api/v1/runs?since=bogus", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad since, got %d", rr.Code)
	}
	rr = do(t, mux, http.MethodGet, "/api/v1/runs?since=1h", "")
	list = nil
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected the fresh run within 1h, got %d", len(list))
	}

	if rr := do(t, mux, http.MethodGet, "/api/v1/runs/missing", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
