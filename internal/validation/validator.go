package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mmrzaf/jsonlgen/internal/domain"
)

// identifier validation: allow simple SQL identifiers only (prevents injection via table/column names).
var (
	identRe       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	reservedWords = map[string]struct{}{
		"add": {}, "all": {}, "alter": {}, "and": {}, "any": {}, "as": {},
		"asc": {}, "between": {}, "by": {}, "case": {}, "check": {},
		"column": {}, "constraint": {}, "create": {}, "cross": {}, "current_date": {},
		"current_time": {}, "current_timestamp": {}, "database": {}, "default": {}, "delete": {},
		"desc": {}, "distinct": {}, "do": {}, "drop": {}, "else": {},
		"end": {}, "except": {}, "exists": {}, "false": {}, "for": {},
		"foreign": {}, "from": {}, "full": {}, "grant": {}, "group": {},
		"having": {}, "in": {}, "index": {}, "inner": {}, "insert": {},
		"intersect": {}, "into": {}, "is": {}, "join": {}, "key": {},
		"left": {}, "like": {}, "limit": {}, "natural": {}, "not": {},
		"null": {}, "offset": {}, "on": {}, "or": {}, "order": {},
		"outer": {}, "primary": {}, "references": {}, "returning": {}, "revoke": {},
		"right": {}, "schema": {}, "select": {}, "set": {}, "table": {},
		"then": {}, "to": {}, "true": {}, "truncate": {}, "union": {},
		"unique": {}, "update": {}, "user": {}, "using": {}, "values": {},
		"view": {}, "when": {}, "where": {}, "with": {},
	}
)

func IsValidIdentifier(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if !identRe.MatchString(s) {
		return false
	}
	if _, ok := reservedWords[strings.ToLower(s)]; ok {
		return false
	}
	return true
}

// ValidateGenerateRequest checks the numeric and naming options of a request.
// The save path and the schema are validated separately because they touch
// the filesystem.
func ValidateGenerateRequest(req *domain.GenerateRequest) error {
	if req == nil {
		return errors.New("request is required")
	}
	if req.FileCount < 0 {
		return domain.NewError(domain.ErrNegativeCount, "file_count cannot be negative")
	}
	if req.Workers < 0 {
		return domain.NewError(domain.ErrNegativeCount, "number of workers cannot be negative")
	}
	if req.DataLines < 1 {
		return domain.NewError(domain.ErrInvalidDataLines, "data_lines must be >= 1, got %d", req.DataLines)
	}
	if !domain.IsValidPrefix(req.Prefix) {
		return fmt.Errorf("invalid prefix %q (choose from count, random, uuid)", req.Prefix)
	}
	if req.FileCount > 0 && req.Target == nil {
		if strings.TrimSpace(req.FileName) == "" {
			return errors.New("file_name is required")
		}
		if strings.ContainsAny(req.FileName, `/\`) {
			return fmt.Errorf("file_name must not contain path separators: %s", req.FileName)
		}
		if req.Prefix == domain.PrefixRandom && req.FileCount > domain.RandomSuffixSpace {
			return domain.NewError(domain.ErrTooManyFiles,
				"random prefix supports at most %d files, got %d", domain.RandomSuffixSpace, req.FileCount)
		}
	}
	if req.Target != nil {
		if err := ValidateTarget(req.Target); err != nil {
			return fmt.Errorf("target validation failed: %w", err)
		}
	}
	return nil
}

func ValidateTarget(t *domain.TargetConfig) error {
	if t.Kind == "" {
		return errors.New("target kind is required")
	}
	if t.DSN == "" {
		return errors.New("target dsn is required")
	}
	switch t.Kind {
	case domain.SinkSQLite, domain.SinkPostgres:
	default:
		return fmt.Errorf("unsupported target kind: %s", t.Kind)
	}
	if !IsValidIdentifier(t.Table) {
		return domain.NewError(domain.ErrInvalidIdentifier, "invalid target table identifier: %q", t.Table)
	}
	return nil
}

// ValidatePlanColumns checks that every field of plan can be used as a column name.
func ValidatePlanColumns(plan *domain.Plan) error {
	for _, name := range plan.Names() {
		if !IsValidIdentifier(name) {
			return domain.NewError(domain.ErrInvalidIdentifier, "invalid column identifier: %q", name)
		}
	}
	return nil
}

// ValidateSavePath resolves path and checks that it is an existing directory.
func ValidateSavePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", domain.NewError(domain.ErrInvalidSavePath, "the path to save files has not been specified")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidSavePath, err, "cannot resolve path '%s'", path)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.NewError(domain.ErrInvalidSavePath, "the specified path does not exist: '%s'", abs)
		}
		return "", domain.WrapError(domain.ErrInvalidSavePath, err, "cannot stat '%s'", abs)
	}
	if !info.IsDir() {
		return "", domain.NewError(domain.ErrInvalidSavePath, "the specified path exists but is a file, not a directory: '%s'", abs)
	}
	return abs, nil
}
