package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestSchemaKeepsDocumentOrder(t *testing.T) {
	var s Schema
	if err := json.Unmarshal([]byte(`{"z":"int:1","a":"str:x","m":"timestamp:"}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := []string{}
	for _, f := range s.Fields() {
		got = append(got, f.Name)
	}
	if fmt.Sprint(got) != "[z a m]" {
		t.Fatalf("unexpected order: %v", got)
	}

	out, err := json.Marshal(&s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"z":"int:1","a":"str:x","m":"timestamp:"}` {
		t.Fatalf("unexpected json: %s", out)
	}
}

func TestSchemaDuplicateKeyKeepsFirstPosition(t *testing.T) {
	var s Schema
	if err := json.Unmarshal([]byte(`{"a":"int:1","b":"int:2","a":"int:3"}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 fields, got %d", s.Len())
	}
	if s.Fields()[0].Name != "a" {
		t.Fatalf("expected 'a' first, got %s", s.Fields()[0].Name)
	}
	if v := s.Fields()[0].Value; v != "int:3" {
		t.Fatalf("expected last value to win, got %v", v)
	}
}

func TestSchemaRejectsNonObject(t *testing.T) {
	for _, src := range []string{`[1,2]`, `"x"`, `42`} {
		var s Schema
		err := json.Unmarshal([]byte(src), &s)
		if CodeOf(err) != ErrInvalidSchemaShape {
			t.Fatalf("%s: expected InvalidSchemaShape, got %v", src, err)
		}
	}
}

func TestRecordRoundTrip(t *testing.T) {
	rec := NewRecord(4)
	rec.Set("b", int64(7))
	rec.Set("a", "<x>")
	rec.Set("n", nil)
	rec.Set("b", int64(9))

	out, err := rec.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"b":9,"a":"<x>","n":null}` {
		t.Fatalf("unexpected json: %s", out)
	}

	var back Record
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, _ := back.Get("b"); v != int64(9) {
		t.Fatalf("expected int64 9, got %#v", v)
	}
	if back.Len() != 3 || back.Names[2] != "n" {
		t.Fatalf("unexpected record: %+v", back)
	}
}

func TestRecordWritesCompactRawUTF8(t *testing.T) {
	rec := NewRecord(2)
	rec.Set("city", "Zürich")
	rec.Set("tags", []string{"é", "ü"})
	out, err := rec.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `{"city":"Zürich","tags":["é","ü"]}`; string(out) != want {
		t.Fatalf("expected %s, got %s", want, out)
	}
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewError(ErrNegativeCount, "count %d", -1))
	if CodeOf(err) != ErrNegativeCount {
		t.Fatalf("expected NegativeCount, got %q", CodeOf(err))
	}
	joined := errors.Join(errors.New("plain"), WrapError(ErrInvalidSavePath, errors.New("io"), "bad"))
	if CodeOf(joined) != ErrInvalidSavePath {
		t.Fatalf("expected InvalidSavePath, got %q", CodeOf(joined))
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatal("expected empty code for uncoded error")
	}
}

func TestRandomIntNormalizesBounds(t *testing.T) {
	r := RandomInt(20, 10)
	if r.Low != 10 || r.High != 20 {
		t.Fatalf("expected [10,20], got [%d,%d]", r.Low, r.High)
	}
	if r.ValueType() != DeclaredTypeInt {
		t.Fatalf("unexpected value type %s", r.ValueType())
	}
	if RandomUUID().ValueType() != DeclaredTypeStr || CurrentTimestamp().ValueType() != DeclaredTypeTimestamp {
		t.Fatal("unexpected value types")
	}
}
