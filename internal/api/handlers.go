package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/mmrzaf/jsonlgen/internal/app"
	"github.com/mmrzaf/jsonlgen/internal/compiler"
	"github.com/mmrzaf/jsonlgen/internal/domain"
	"github.com/mmrzaf/jsonlgen/internal/hashing"
	"github.com/mmrzaf/jsonlgen/internal/infra/repos/runs"
	"github.com/mmrzaf/jsonlgen/internal/infra/repos/schemas"
	"github.com/mmrzaf/jsonlgen/internal/timeutil"
)

const (
	defaultGenerateCount = 10
	maxGenerateCount     = 1_000_000
	maxRequestBytes      = 4 << 20
)

type Handler struct {
	runService *app.RunService
}

func NewHandler(runService *app.RunService) *Handler {
	return &Handler{runService: runService}
}

type planRequest struct {
	Schema     json.RawMessage `json:"schema"`
	CollectAll bool            `json:"collect_all,omitempty"`
}

type generateRequest struct {
	Schema  json.RawMessage `json:"schema"`
	Count   *int64          `json:"count,omitempty"`
	Workers int             `json:"workers,omitempty"`
	Seed    *int64          `json:"seed,omitempty"`
}

type planResponse struct {
	SchemaHash string             `json:"schema_hash"`
	Fields     []domain.PlanField `json:"fields"`
}

type errorItem struct {
	Code   string `json:"code,omitempty"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

type errorResponse struct {
	Errors []errorItem `json:"errors"`
}

func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	plan, err := h.compile(req.Schema, req.CollectAll)
	if err != nil {
		writeErrors(w, http.StatusBadRequest, err)
		return
	}
	hash, err := hashing.HashSchema(plan)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, planResponse{SchemaHash: hash, Fields: plan.Fields})
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	count := int64(defaultGenerateCount)
	if req.Count != nil {
		count = *req.Count
	}
	if count < 0 || count > maxGenerateCount {
		writeErrors(w, http.StatusBadRequest, domain.NewError(domain.ErrNegativeCount,
			"count must be between 0 and %d, got %d", maxGenerateCount, count))
		return
	}
	if req.Workers < 0 {
		writeErrors(w, http.StatusBadRequest, domain.NewError(domain.ErrNegativeCount, "number of workers cannot be negative"))
		return
	}
	workers := min(req.Workers, runtime.NumCPU())

	plan, err := h.compile(req.Schema, false)
	if err != nil {
		writeErrors(w, http.StatusBadRequest, err)
		return
	}

	// buffered so a generation failure can still set the status code
	var buf bytes.Buffer
	run, err := h.runService.Stream(r.Context(), plan, count, workers, req.Seed, &buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	if run.ID != "" {
		w.Header().Set("X-Run-Id", run.ID)
	}
	_, _ = buf.WriteTo(w)
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	var since time.Time
	if q := r.URL.Query().Get("since"); q != "" {
		t, err := timeutil.ParseSince(q, time.Now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		since = t
	}
	list, err := h.runService.ListRuns(limit, r.URL.Query().Get("status"), since)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := h.runService.GetRun(id)
	if err != nil {
		if errors.Is(err, runs.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, run)
}

// compile accepts the schema either as a JSON object or as a string holding
// inline JSON. File paths are not resolved over HTTP.
func (h *Handler) compile(raw json.RawMessage, collectAll bool) (*domain.Plan, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, domain.NewError(domain.ErrInvalidSchemaSource, "the data schema has not been specified")
	}
	if raw[0] == '"' {
		var inline string
		if err := json.Unmarshal(raw, &inline); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidSchemaSource, err, "schema string is not valid JSON")
		}
		raw = []byte(inline)
	}
	schema, err := schemas.ParseJSON(raw)
	if err != nil {
		if domain.CodeOf(err) == "" {
			err = domain.WrapError(domain.ErrInvalidSchemaSource, err, "schema is not valid JSON")
		}
		return nil, err
	}
	if schema.Len() == 0 {
		return nil, domain.NewError(domain.ErrInvalidSchemaSource, "could not load data schema: schema is empty")
	}
	return h.runService.Compile(schema, collectAll)
}

func writeErrors(w http.ResponseWriter, status int, err error) {
	var items []errorItem
	var collect func(error)
	collect = func(e error) {
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				collect(inner)
			}
			return
		}
		var ferr *compiler.Error
		if errors.As(e, &ferr) {
			items = append(items, errorItem{Code: string(ferr.Code), Field: ferr.Field, Reason: ferr.Reason})
			return
		}
		items = append(items, errorItem{Code: string(domain.CodeOf(e)), Reason: e.Error()})
	}
	collect(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Errors: items})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSONStrict(r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
