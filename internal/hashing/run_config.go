package hashing

import (
	"github.com/mmrzaf/jsonlgen/internal/domain"
)

type runConfigHashPayload struct {
	SchemaHash string `json:"schema_hash"`
	FileCount  int    `json:"file_count"`
	DataLines  int    `json:"data_lines"`
	FileName   string `json:"file_name"`
	Prefix     string `json:"prefix"`
	Sink       string `json:"sink"`
	TargetDSN  string `json:"target_dsn,omitempty"`
	Table      string `json:"table,omitempty"`
	Seed       *int64 `json:"seed"`
}

// HashRunConfig fingerprints everything that determines a run's output. A
// seeded run with the same hash reproduces the same records.
func HashRunConfig(plan *domain.Plan, req *domain.GenerateRequest, sink string) (string, error) {
	sh, err := HashSchema(plan)
	if err != nil {
		return "", err
	}
	p := runConfigHashPayload{
		SchemaHash: sh,
		FileCount:  req.FileCount,
		DataLines:  req.DataLines,
		FileName:   req.FileName,
		Prefix:     req.Prefix,
		Sink:       sink,
		Seed:       req.Seed,
	}
	if req.Target != nil {
		p.TargetDSN = req.Target.DSN
		p.Table = req.Target.Table
	}
	return sum(p)
}
