package record

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func readAll(t *testing.T, lr *LineReader) []Value {
	t.Helper()
	var out []Value
	for {
		rec, _, err := lr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out
			}
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, rec)
	}
}

func TestLineReaderJSON(t *testing.T) {
	input := `{"name": "ada", "age": 36}
{"name": "bob", "age": 41}
`
	lr := NewLineReader(strings.NewReader(input), nil, false)
	recs := readAll(t, lr)

	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Kind() != KindObject {
		t.Fatalf("expected object, got kind %d", recs[0].Kind())
	}
	if v, _ := recs[0].Obj().Get("age"); v.Int() != 36 {
		t.Errorf("age = %v, want 36", v)
	}
	// Key order must survive decoding
	keys := recs[0].Obj().Keys()
	if keys[0] != "name" || keys[1] != "age" {
		t.Errorf("unexpected key order %v", keys)
	}
}

func TestLineReaderNestedJSON(t *testing.T) {
	input := `{"outer": {"b": 1, "a": 2}, "list": [1, {"k": true}]}` + "\n"
	lr := NewLineReader(strings.NewReader(input), nil, false)
	recs := readAll(t, lr)

	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	outer, _ := recs[0].Obj().Get("outer")
	if outer.Kind() != KindObject {
		t.Fatalf("nested value should decode as object, got kind %d", outer.Kind())
	}
	keys := outer.Obj().Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Errorf("nested key order lost: %v", keys)
	}
	list, _ := recs[0].Obj().Get("list")
	if list.Kind() != KindList || len(list.Seq()) != 2 {
		t.Fatalf("array should decode as list, got %s", list.String())
	}
	if list.Seq()[1].Kind() != KindObject {
		t.Errorf("object inside array lost, got %s", list.Seq()[1].String())
	}
}

func TestLineReaderJSONScalars(t *testing.T) {
	input := "42\n1.5\n\"quoted\"\ntrue\nnull\n"
	lr := NewLineReader(strings.NewReader(input), nil, false)
	recs := readAll(t, lr)

	if len(recs) != 5 {
		t.Fatalf("expected 5 records, got %d", len(recs))
	}
	if recs[0].Kind() != KindInt || recs[0].Int() != 42 {
		t.Errorf("expected int 42, got %s", recs[0].String())
	}
	if recs[1].Kind() != KindFloat {
		t.Errorf("expected float, got %s", recs[1].String())
	}
	if recs[2].Str() != "quoted" {
		t.Errorf("expected quoted, got %s", recs[2].String())
	}
	if recs[4].Kind() != KindNull {
		t.Errorf("expected null, got %s", recs[4].String())
	}
}

func TestLineReaderSwitchesToCSV(t *testing.T) {
	input := "a,1,2.5\nb,2,3.5\n"
	lr := NewLineReader(strings.NewReader(input), nil, false)
	recs := readAll(t, lr)

	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	row := recs[0]
	if row.Kind() != KindTuple {
		t.Fatalf("expected tuple, got kind %d", row.Kind())
	}
	cols := row.Seq()
	if cols[0].Str() != "a" || cols[1].Int() != 1 || cols[2].Float() != 2.5 {
		t.Errorf("unexpected row %s", row.String())
	}
}

func TestLineReaderCSVCommitIsSticky(t *testing.T) {
	// The second line is valid JSON, but once CSV is committed it must be
	// parsed as CSV.
	input := "a,b\n42\n"
	lr := NewLineReader(strings.NewReader(input), nil, false)
	recs := readAll(t, lr)

	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[1].Kind() != KindTuple {
		t.Errorf("expected CSV tuple after commit, got kind %d", recs[1].Kind())
	}
}

func TestLineReaderSkipHeader(t *testing.T) {
	// The header is not valid JSON; skipping it must happen before parsing
	// so the reader stays in JSON mode.
	input := "name;age;city\n{\"name\": \"ada\"}\n"
	lr := NewLineReader(strings.NewReader(input), nil, true)
	recs := readAll(t, lr)

	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Kind() != KindObject {
		t.Errorf("expected JSON object, got kind %d", recs[0].Kind())
	}
}

func TestLineReaderBlankLines(t *testing.T) {
	input := "\n{\"a\": 1}\n\n   \n{\"a\": 2}\n"
	lr := NewLineReader(strings.NewReader(input), nil, false)
	recs := readAll(t, lr)

	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
}

func TestLineReaderDefaults(t *testing.T) {
	defaults, err := ParseObject(`{"city": "unknown", "age": 0}`)
	if err != nil {
		t.Fatalf("ParseObject: %v", err)
	}

	input := `{"name": "ada", "age": 36}` + "\n"
	lr := NewLineReader(strings.NewReader(input), defaults, false)
	rec, ctx, err := lr.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}

	if v, _ := rec.Obj().Get("city"); v.Str() != "unknown" {
		t.Errorf("default city not merged, got %v", v)
	}
	if v, _ := rec.Obj().Get("age"); v.Int() != 36 {
		t.Errorf("record field must override default, got %v", v)
	}
	if v, ok := ctx["city"]; !ok || v.Str() != "unknown" {
		t.Errorf("merged field not in context")
	}
}

func TestInferLiteralViaCSV(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{"numbers", "1,2.5,-3", "(1, 2.5, -3)"},
		{"booleans", "true,False", "(true, false)"},
		{"nulls", "null,None", "(null, null)"},
		{"tuple literal", `"(1, 2)",x`, "((1, 2), x)"},
		{"nested tuple literal", `"((1, 2), 3)",x`, "(((1, 2), 3), x)"},
		{"quoted string", "'hello',plain", "(hello, plain)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := decodeCSVLine(tt.line)
			if err != nil {
				t.Fatalf("decodeCSVLine: %v", err)
			}
			if got := rec.String(); got != tt.expected {
				t.Errorf("decodeCSVLine(%q) = %s, want %s", tt.line, got, tt.expected)
			}
		})
	}
}

func TestInferLiteralUnbalancedParens(t *testing.T) {
	rec, err := decodeCSVLine(`"(1, (2)"`)
	if err != nil {
		t.Fatalf("decodeCSVLine: %v", err)
	}
	field := rec.Seq()[0]
	if field.Kind() != KindStr || field.Str() != "(1, (2)" {
		t.Errorf("unbalanced parens should stay a raw string, got %s", field.String())
	}
}

func TestParseObjectRejectsNonObjects(t *testing.T) {
	if _, err := ParseObject(`[1, 2]`); err == nil {
		t.Errorf("expected error for array input")
	}
	if _, err := ParseObject(`{"a":`); err == nil {
		t.Errorf("expected error for truncated input")
	}
}
