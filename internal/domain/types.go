package domain

import (
	"encoding/json"
	"time"
)

// DeclaredType is the part of a field spec before the first ':'.
type DeclaredType string

const (
	DeclaredTypeTimestamp DeclaredType = "timestamp"
	DeclaredTypeStr       DeclaredType = "str"
	DeclaredTypeInt       DeclaredType = "int"
)

func (t DeclaredType) Valid() bool {
	switch t {
	case DeclaredTypeTimestamp, DeclaredTypeStr, DeclaredTypeInt:
		return true
	default:
		return false
	}
}

type RuleKind string

const (
	RuleCurrentTimestamp RuleKind = "current_timestamp"
	RuleRandomInt        RuleKind = "random_int"
	RuleStaticInt        RuleKind = "static_int"
	RuleStaticStr        RuleKind = "static_str"
	RuleChoiceInt        RuleKind = "choice_int"
	RuleChoiceStr        RuleKind = "choice_str"
	RuleNullValue        RuleKind = "null_value"
	RuleEmptyString      RuleKind = "empty_string"
	RuleRandomUUID       RuleKind = "random_uuid"
)

// Rule is a compiled generation rule. Only the payload fields used by Kind are set.
// It holds no pointers to shared state and is safe to copy across goroutines.
type Rule struct {
	Kind       RuleKind `json:"kind" yaml:"kind"`
	Low        int64    `json:"low,omitempty" yaml:"low,omitempty"`
	High       int64    `json:"high,omitempty" yaml:"high,omitempty"`
	IntValue   int64    `json:"int_value,omitempty" yaml:"int_value,omitempty"`
	StrValue   string   `json:"str_value,omitempty" yaml:"str_value,omitempty"`
	IntOptions []int64  `json:"int_options,omitempty" yaml:"int_options,omitempty"`
	StrOptions []string `json:"str_options,omitempty" yaml:"str_options,omitempty"`
}

func CurrentTimestamp() Rule { return Rule{Kind: RuleCurrentTimestamp} }

// RandomInt normalizes the bounds so that Low <= High.
func RandomInt(a, b int64) Rule {
	if a > b {
		a, b = b, a
	}
	return Rule{Kind: RuleRandomInt, Low: a, High: b}
}

func StaticInt(v int64) Rule  { return Rule{Kind: RuleStaticInt, IntValue: v} }
func StaticStr(v string) Rule { return Rule{Kind: RuleStaticStr, StrValue: v} }

func ChoiceInt(options []int64) Rule {
	return Rule{Kind: RuleChoiceInt, IntOptions: append([]int64(nil), options...)}
}

func ChoiceStr(options []string) Rule {
	return Rule{Kind: RuleChoiceStr, StrOptions: append([]string(nil), options...)}
}

func NullValue() Rule   { return Rule{Kind: RuleNullValue} }
func EmptyString() Rule { return Rule{Kind: RuleEmptyString} }
func RandomUUID() Rule  { return Rule{Kind: RuleRandomUUID} }

type PlanField struct {
	Name string `json:"name" yaml:"name"`
	Rule Rule   `json:"rule" yaml:"rule"`
}

// Plan is an ordered field -> rule mapping. A nil *Plan is the invalid plan.
type Plan struct {
	Fields []PlanField `json:"fields" yaml:"fields"`
}

func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Fields)
}

func (p *Plan) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		names[i] = f.Name
	}
	return names
}

type Run struct {
	ID          string          `json:"id" yaml:"id"`
	SchemaHash  string          `json:"schema_hash" yaml:"schema_hash"`
	ConfigHash  string          `json:"config_hash" yaml:"config_hash"`
	Fields      int             `json:"fields" yaml:"fields"`
	Records     int64           `json:"records" yaml:"records"`
	FileCount   int             `json:"file_count" yaml:"file_count"`
	Workers     int             `json:"workers" yaml:"workers"`
	Seed        *int64          `json:"seed,omitempty" yaml:"seed,omitempty"`
	Sink        string          `json:"sink" yaml:"sink"`
	Destination string          `json:"destination" yaml:"destination"`
	Status      RunStatus       `json:"status" yaml:"status"`
	StartedAt   time.Time       `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Stats       json.RawMessage `json:"stats,omitempty" yaml:"-"`
	Error       string          `json:"error,omitempty" yaml:"error,omitempty"`
}

type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

type RunStats struct {
	RecordsGenerated int64   `json:"records_generated"`
	FilesWritten     int     `json:"files_written"`
	FilesFailed      int     `json:"files_failed"`
	RecordsDropped   int64   `json:"records_dropped"`
	GenerateSeconds  float64 `json:"generate_seconds"`
	WriteSeconds     float64 `json:"write_seconds"`
	DurationSeconds  float64 `json:"duration_seconds"`
}

const (
	SinkFiles    = "files"
	SinkConsole  = "console"
	SinkSQLite   = "sqlite"
	SinkPostgres = "postgres"
	SinkHTTP     = "http"
)

const (
	PrefixCount  = "count"
	PrefixRandom = "random"
	PrefixUUID   = "uuid"
)

// Random file name suffixes are five-digit numbers, so at most
// RandomSuffixSpace distinct names can be drawn.
const (
	RandomSuffixMin   = 10000
	RandomSuffixMax   = 99999
	RandomSuffixSpace = RandomSuffixMax - RandomSuffixMin + 1
)

func IsValidPrefix(p string) bool {
	switch p {
	case PrefixCount, PrefixRandom, PrefixUUID:
		return true
	default:
		return false
	}
}

// GenerateRequest carries everything one generation needs after flag and
// config resolution.
type GenerateRequest struct {
	SavePath   string        `json:"save_path,omitempty"`
	FileCount  int           `json:"file_count"`
	FileName   string        `json:"file_name"`
	Prefix     string        `json:"prefix"`
	DataSchema string        `json:"data_schema"`
	DataLines  int           `json:"data_lines"`
	ClearPath  bool          `json:"clear_path,omitempty"`
	Workers    int           `json:"workers"`
	Seed       *int64        `json:"seed,omitempty"`
	CollectAll bool          `json:"collect_all,omitempty"`
	Target     *TargetConfig `json:"target,omitempty"`
}

// TargetConfig selects a SQL table instead of files as the write stage.
type TargetConfig struct {
	Kind  string `json:"kind" yaml:"kind"`
	DSN   string `json:"dsn" yaml:"dsn"`
	Table string `json:"table" yaml:"table"`
}

// ValueType reports the declared type whose values the rule produces.
func (r Rule) ValueType() DeclaredType {
	switch r.Kind {
	case RuleCurrentTimestamp:
		return DeclaredTypeTimestamp
	case RuleStaticStr, RuleChoiceStr, RuleEmptyString, RuleRandomUUID:
		return DeclaredTypeStr
	default:
		return DeclaredTypeInt
	}
}

// TargetCheck is the result of probing a SQL target.
type TargetCheck struct {
	Kind          string    `json:"kind" yaml:"kind"`
	Destination   string    `json:"destination" yaml:"destination"`
	CheckedAt     time.Time `json:"checked_at" yaml:"checked_at"`
	OK            bool      `json:"ok" yaml:"ok"`
	LatencyMS     int64     `json:"latency_ms" yaml:"latency_ms"`
	ServerVersion string    `json:"server_version,omitempty" yaml:"server_version,omitempty"`
	Error         string    `json:"error,omitempty" yaml:"error,omitempty"`
}
