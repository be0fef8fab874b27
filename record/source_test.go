package record

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func drainSource(t *testing.T, s Source) []Value {
	t.Helper()
	var out []Value
	for {
		rec, _, err := s.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out
			}
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, rec)
	}
}

func TestOpenPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jsonl")
	if err := os.WriteFile(path, []byte("{\"a\": 1}\n{\"a\": 2}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	src, err := Open(path, nil, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	recs := drainSource(t, src)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if v, _ := recs[1].Obj().Get("a"); v.Int() != 2 {
		t.Errorf("a = %v, want 2", v)
	}
}

func TestOpenGzipFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jsonl.gz")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	zw := gzip.NewWriter(file)
	if _, err := zw.Write([]byte("{\"a\": 1}\na,b,c\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	src, err := Open(path, nil, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	recs := drainSource(t, src)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Kind() != KindObject {
		t.Errorf("first record should decode as JSON")
	}
	if recs[1].Kind() != KindTuple {
		t.Errorf("second record should fall through to CSV")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.jsonl"), nil, false); err == nil {
		t.Errorf("expected error for missing file")
	}
}
