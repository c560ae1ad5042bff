package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type SchemaField struct {
	Name  string
	Value any
}

// Schema is the raw field name -> "type:source" mapping in document order.
type Schema struct {
	fields []SchemaField
	index  map[string]int
}

func NewSchema(fields ...SchemaField) *Schema {
	s := &Schema{}
	for _, f := range fields {
		s.Set(f.Name, f.Value)
	}
	return s
}

// Set appends a field, or replaces the value of an existing one in place.
func (s *Schema) Set(name string, value any) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[name]; ok {
		s.fields[i].Value = value
		return
	}
	s.index[name] = len(s.fields)
	s.fields = append(s.fields, SchemaField{Name: name, Value: value})
}

func (s *Schema) Fields() []SchemaField {
	if s == nil {
		return nil
	}
	out := make([]SchemaField, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fields)
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return NewError(ErrInvalidSchemaShape, "schema must be a JSON object, got %s", describeToken(tok))
	}

	*s = Schema{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("field '%s': %w", name, err)
		}
		s.Set(name, value)
	}
	_, err = dec.Token()
	return err
}

func (s *Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONValue(&buf, f.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONValue(&buf, f.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func describeToken(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		if v == '[' {
			return "array"
		}
		return string(v)
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", tok)
	}
}
