package schemas

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmrzaf/jsonlgen/internal/domain"
	"github.com/mmrzaf/jsonlgen/internal/logging"
	"gopkg.in/yaml.v3"
)

type Repository interface {
	Load(input string) (*domain.Schema, error)
	GetByPath(path string) (*domain.Schema, error)
}

// FileRepository resolves a schema source that is either a path to a JSON/YAML
// file or an inline JSON document.
type FileRepository struct {
	logger *logging.Logger
}

func NewFileRepository(logger *logging.Logger) *FileRepository {
	return &FileRepository{logger: logger}
}

// Load tries input as a file path first and falls back to parsing it as inline
// JSON. A readable file with unparsable content also falls back.
func (r *FileRepository) Load(input string) (*domain.Schema, error) {
	r.logger.Infow("schema.load_started", nil)
	if strings.TrimSpace(input) == "" {
		return nil, domain.NewError(domain.ErrInvalidSchemaSource, "the data schema has not been specified")
	}

	schema, err := r.GetByPath(input)
	switch {
	case err == nil:
		r.logger.Infow("schema.loaded", map[string]any{"source": "file", "path": input, "fields": schema.Len()})
		return schema, nil
	case domain.CodeOf(err) == domain.ErrInvalidSchemaShape:
		return nil, err
	}

	schema, err = ParseJSON([]byte(input))
	if err != nil {
		if domain.CodeOf(err) == domain.ErrInvalidSchemaShape {
			return nil, err
		}
		r.logger.Debugw("schema.inline_attempt_failed", map[string]any{"error": err.Error()})
		r.logger.Errorw("schema.load_failed", map[string]any{"reason": "input is not a valid path or a valid JSON string"})
		return nil, domain.WrapError(domain.ErrInvalidSchemaSource, err, "input is not a valid path or a valid JSON string")
	}
	r.logger.Infow("schema.loaded", map[string]any{"source": "inline", "fields": schema.Len()})
	return schema, nil
}

func (r *FileRepository) GetByPath(path string) (*domain.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			r.logger.Debugw("schema.path_attempt_failed", map[string]any{"path": path, "reason": "file not found"})
		case isDirectory(path):
			r.logger.Debugw("schema.path_attempt_failed", map[string]any{"path": path, "reason": "path is a directory"})
		case errors.Is(err, os.ErrPermission):
			r.logger.Warnw("schema.path_read_failed", map[string]any{"path": path, "error": err.Error()})
		default:
			// inline JSON passed as a path usually lands here (e.g. name too long)
			r.logger.Debugw("schema.path_attempt_failed", map[string]any{"path": path, "error": err.Error()})
		}
		return nil, domain.WrapError(domain.ErrInvalidSchemaSource, err, "cannot read '%s'", path)
	}

	var schema *domain.Schema
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		schema, err = ParseYAML(data)
	default:
		schema, err = ParseJSON(data)
	}
	if err != nil {
		if domain.CodeOf(err) == domain.ErrInvalidSchemaShape {
			return nil, err
		}
		r.logger.Warnw("schema.file_invalid", map[string]any{"path": path, "error": err.Error()})
		return nil, domain.WrapError(domain.ErrInvalidSchemaSource, err, "file '%s' does not contain a valid schema", path)
	}
	return schema, nil
}

func ParseJSON(data []byte) (*domain.Schema, error) {
	var schema domain.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

// ParseYAML decodes a YAML mapping, preserving key order.
func ParseYAML(data []byte) (*domain.Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, domain.NewError(domain.ErrInvalidSchemaShape, "schema document is empty")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, domain.NewError(domain.ErrInvalidSchemaShape, "schema must be a mapping, got %s", nodeKind(root))
	}

	schema := domain.NewSchema()
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: schema keys must be scalars", key.Line)
		}
		var value any
		if val.Kind == yaml.ScalarNode && val.Tag == "!!str" {
			value = val.Value
		} else if err := val.Decode(&value); err != nil {
			return nil, fmt.Errorf("field '%s': %w", key.Value, err)
		}
		schema.Set(key.Value, value)
	}
	return schema, nil
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
