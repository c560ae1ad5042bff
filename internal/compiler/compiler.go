// Package compiler turns a raw schema of "type:source" strings into an
// executable generation plan.
package compiler

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mmrzaf/jsonlgen/internal/domain"
	"github.com/mmrzaf/jsonlgen/internal/literal"
	"github.com/mmrzaf/jsonlgen/internal/logging"
	"github.com/mmrzaf/jsonlgen/internal/registry"
)

const (
	randToken       = "rand"
	defaultRandLow  = 0
	defaultRandHigh = 10000
)

var randIntRe = regexp.MustCompile(`^rand\(\s*(-?\d+)\s*,\s*(-?\d+)\s*\)$`)

// Error describes why a single field was rejected.
type Error struct {
	Code   domain.ErrorCode
	Field  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("field '%s': %s: %s", e.Field, e.Code, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) ErrorCode() domain.ErrorCode { return e.Code }

type Option func(*Compiler)

// WithCollectAll makes Compile validate every field and report all rejections
// instead of stopping at the first one.
func WithCollectAll() Option {
	return func(c *Compiler) { c.collectAll = true }
}

func WithLogger(logger *logging.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

type Compiler struct {
	genRegistry *registry.GeneratorRegistry
	logger      *logging.Logger
	collectAll  bool
}

func NewCompiler(genRegistry *registry.GeneratorRegistry, opts ...Option) *Compiler {
	c := &Compiler{genRegistry: genRegistry}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile builds a plan from schema. The plan is all-or-nothing: on any
// rejection the returned plan is nil.
func (c *Compiler) Compile(schema *domain.Schema) (*domain.Plan, error) {
	if schema == nil {
		return nil, &Error{Code: domain.ErrInvalidSchemaShape, Reason: "schema must be a mapping"}
	}

	plan := &domain.Plan{Fields: make([]domain.PlanField, 0, schema.Len())}
	var errs []error
	for _, f := range schema.Fields() {
		rule, err := c.CompileField(f.Name, f.Value)
		if err != nil {
			c.logRejected(err)
			if !c.collectAll {
				return nil, err
			}
			errs = append(errs, err)
			continue
		}
		plan.Fields = append(plan.Fields, domain.PlanField{Name: f.Name, Rule: rule})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return plan, nil
}

// CompileField compiles one schema entry into a rule.
func (c *Compiler) CompileField(name string, value any) (domain.Rule, error) {
	if name == "" {
		return domain.Rule{}, &Error{Code: domain.ErrMalformedFieldSpec, Reason: "field name must be a non-empty string"}
	}
	spec, ok := value.(string)
	if !ok || !strings.Contains(spec, ":") {
		return domain.Rule{}, fieldErr(domain.ErrMalformedFieldSpec, name, "invalid format, must be a string like 'type:source'")
	}

	typ, source, _ := strings.Cut(spec, ":")
	declared := domain.DeclaredType(typ)
	if !declared.Valid() {
		return domain.Rule{}, fieldErr(domain.ErrUnknownType, name, fmt.Sprintf("type '%s' is not allowed", typ))
	}

	var (
		rule domain.Rule
		err  error
	)
	switch declared {
	case domain.DeclaredTypeTimestamp:
		if source != "" {
			c.logger.Warnw("schema.field_source_ignored", map[string]any{"field": name, "source": source,
				"reason": "timestamp type ignores source value"})
		}
		rule = domain.CurrentTimestamp()
	case domain.DeclaredTypeInt:
		rule, err = compileInt(name, source)
	case domain.DeclaredTypeStr:
		rule, err = compileStr(name, source)
	}
	if err != nil {
		return domain.Rule{}, err
	}

	if c.genRegistry != nil {
		if verr := c.genRegistry.Validate(rule); verr != nil {
			return domain.Rule{}, &Error{Code: codeForKind(rule.Kind), Field: name, Reason: verr.Error(), Err: verr}
		}
	}

	c.logger.Infow("schema.field_compiled", map[string]any{"field": name, "type": typ, "rule": string(rule.Kind)})
	return rule, nil
}

func compileInt(name, source string) (domain.Rule, error) {
	switch {
	case source == "":
		return domain.NullValue(), nil
	case source == randToken:
		return domain.RandomInt(defaultRandLow, defaultRandHigh), nil
	}

	if m := randIntRe.FindStringSubmatch(source); m != nil {
		from, err1 := strconv.ParseInt(m[1], 10, 64)
		to, err2 := strconv.ParseInt(m[2], 10, 64)
		if err := errors.Join(err1, err2); err != nil {
			return domain.Rule{}, &Error{Code: domain.ErrInvalidStaticValue, Field: name,
				Reason: fmt.Sprintf("bounds of '%s' are out of range", source), Err: err}
		}
		return domain.RandomInt(from, to), nil
	}

	if isListSource(source) {
		options, err := literal.ParseIntList(source)
		if err != nil {
			return domain.Rule{}, listErr(name, source, "int", err)
		}
		if len(options) == 0 {
			return domain.Rule{}, fieldErr(domain.ErrInvalidListLiteral, name, fmt.Sprintf("'%s' has no options to choose from", source))
		}
		return domain.ChoiceInt(options), nil
	}

	v, err := parseStaticInt(source)
	if err != nil {
		return domain.Rule{}, &Error{Code: domain.ErrInvalidStaticValue, Field: name,
			Reason: fmt.Sprintf("'%s' is not a valid int", source), Err: err}
	}
	return domain.StaticInt(v), nil
}

func compileStr(name, source string) (domain.Rule, error) {
	switch {
	case source == "":
		return domain.EmptyString(), nil
	case source == randToken:
		return domain.RandomUUID(), nil
	case randIntRe.MatchString(source):
		return domain.Rule{}, fieldErr(domain.ErrTypeMismatch, name, "'rand(from, to)' is only for 'int' type")
	}

	if isListSource(source) {
		options, err := literal.ParseStrList(source)
		if err != nil {
			return domain.Rule{}, listErr(name, source, "str", err)
		}
		if len(options) == 0 {
			return domain.Rule{}, fieldErr(domain.ErrInvalidListLiteral, name, fmt.Sprintf("'%s' has no options to choose from", source))
		}
		return domain.ChoiceStr(options), nil
	}

	return domain.StaticStr(source), nil
}

func isListSource(source string) bool {
	return strings.HasPrefix(source, "[") && strings.HasSuffix(source, "]")
}

// parseStaticInt accepts surrounding whitespace, a sign and '_' digit separators.
func parseStaticInt(source string) (int64, error) {
	s := strings.TrimSpace(source)
	digits := strings.TrimLeft(s, "+-")
	if len(s)-len(digits) > 1 {
		return 0, fmt.Errorf("invalid sign in %q", s)
	}
	if strings.Contains(digits, "_") {
		if strings.HasPrefix(digits, "_") || strings.HasSuffix(digits, "_") || strings.Contains(digits, "__") {
			return 0, fmt.Errorf("invalid digit separator in %q", s)
		}
		s = strings.ReplaceAll(s, "_", "")
	}
	return strconv.ParseInt(s, 10, 64)
}

func fieldErr(code domain.ErrorCode, field, reason string) *Error {
	return &Error{Code: code, Field: field, Reason: reason}
}

func listErr(field, source, want string, err error) *Error {
	var typeErr *literal.ElementTypeError
	if errors.As(err, &typeErr) || errors.Is(err, literal.ErrNotList) {
		return &Error{Code: domain.ErrInvalidListLiteral, Field: field,
			Reason: fmt.Sprintf("'%s' is not a valid list of %ss", source, want), Err: err}
	}
	return &Error{Code: domain.ErrInvalidListLiteral, Field: field,
		Reason: fmt.Sprintf("malformed list string '%s'", source), Err: err}
}

func codeForKind(kind domain.RuleKind) domain.ErrorCode {
	switch kind {
	case domain.RuleChoiceInt, domain.RuleChoiceStr:
		return domain.ErrInvalidListLiteral
	default:
		return domain.ErrInvalidStaticValue
	}
}

func (c *Compiler) logRejected(err error) {
	var ferr *Error
	if !errors.As(err, &ferr) {
		return
	}
	fields := map[string]any{"field": ferr.Field, "code": string(ferr.Code), "reason": ferr.Reason}
	if ferr.Err != nil {
		fields["error"] = ferr.Err.Error()
	}
	c.logger.Errorw("schema.field_rejected", fields)
}
