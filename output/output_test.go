package output

import (
	"bytes"
	"strings"
	"testing"

	"recq/record"
)

func TestPlainFormatterObject(t *testing.T) {
	obj := record.NewObject()
	obj.Set("name", record.NewStr("ada"))
	obj.Set("age", record.NewInt(36))
	rec := record.NewObjectValue(obj)

	var buf bytes.Buffer
	f := NewPlainFormatter(&buf, false)
	if err := f.Format(rec); err != nil {
		t.Fatalf("Format: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "\n  \"name\": \"ada\"") {
		t.Errorf("expected indented output, got %q", got)
	}
	// Insertion order must survive
	if strings.Index(got, "name") > strings.Index(got, "age") {
		t.Errorf("key order lost: %q", got)
	}
}

func TestPlainFormatterCompact(t *testing.T) {
	obj := record.NewObject()
	obj.Set("b", record.NewInt(1))
	obj.Set("a", record.NewInt(2))

	var buf bytes.Buffer
	f := NewPlainFormatter(&buf, true)
	if err := f.Format(record.NewObjectValue(obj)); err != nil {
		t.Fatalf("Format: %v", err)
	}

	if got := buf.String(); got != `{"b":1,"a":2}`+"\n" {
		t.Errorf("got %q", got)
	}
}

func TestPlainFormatterRows(t *testing.T) {
	tests := []struct {
		name     string
		v        record.Value
		expected string
	}{
		{"tuple", record.NewTuple([]record.Value{record.NewStr("a"), record.NewInt(1)}), "a, 1\n"},
		{"scalar", record.NewInt(42), "42\n"},
		{"string bare", record.NewStr("hello world"), "hello world\n"},
		{"null", record.Null(), "null\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			f := NewPlainFormatter(&buf, false)
			if err := f.Format(tt.v); err != nil {
				t.Fatalf("Format: %v", err)
			}
			if got := buf.String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(&buf)

	rows := []record.Value{
		record.NewTuple([]record.Value{record.NewStr("ada"), record.NewInt(36)}),
		record.NewTuple([]record.Value{record.NewStr("bob"), record.NewInt(41)}),
	}
	for _, r := range rows {
		if err := f.Format(r); err != nil {
			t.Fatalf("Format: %v", err)
		}
	}

	// Nothing is written before Flush
	if buf.Len() != 0 {
		t.Errorf("table output written before Flush: %q", buf.String())
	}

	if err := f.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "ada") || !strings.Contains(got, "41") {
		t.Errorf("table missing cell values: %q", got)
	}
}
