package record

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/segmentio/parquet-go"
)

// Source supplies (record, context) pairs to a map stage. Next returns
// io.EOF once the input is exhausted.
type Source interface {
	Next() (Value, Context, error)
	Close() error
}

// Open creates a Source for path. An empty path or "-" reads standard
// input; a ".parquet" suffix selects the parquet source; a ".gz" suffix
// decompresses transparently. Everything else is read line by line with
// the adaptive JSON/CSV reader.
func Open(path string, defaults *Object, skipHeader bool) (Source, error) {
	if path == "" || path == "-" {
		return &lineSource{reader: NewLineReader(os.Stdin, defaults, skipHeader)}, nil
	}

	if strings.HasSuffix(path, ".parquet") {
		return openParquet(path, defaults, skipHeader)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to open gzip file %s: %w", path, err)
		}
		return &lineSource{
			reader:  NewLineReader(zr, defaults, skipHeader),
			closers: []io.Closer{zr, file},
		}, nil
	}

	return &lineSource{
		reader:  NewLineReader(file, defaults, skipHeader),
		closers: []io.Closer{file},
	}, nil
}

// lineSource adapts a LineReader to the Source interface and owns the
// underlying file handles.
type lineSource struct {
	reader  *LineReader
	closers []io.Closer
}

func (s *lineSource) Next() (Value, Context, error) { return s.reader.Next() }

func (s *lineSource) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// parquetSource reads a parquet file row by row and feeds rows into the
// pipeline as JSON-mode records: each row becomes an object, the default
// object is merged under it and keys are bound in the context.
type parquetSource struct {
	file     *os.File
	reader   *parquet.Reader
	defaults *Object
	skip     bool
}

func openParquet(path string, defaults *Object, skipHeader bool) (*parquetSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to open parquet file %s: %w", path, err)
	}

	return &parquetSource{
		file:     file,
		reader:   parquet.NewReader(pqFile),
		defaults: defaults,
		skip:     skipHeader,
	}, nil
}

func (s *parquetSource) Next() (Value, Context, error) {
	for {
		row := make(map[string]interface{})
		if err := s.reader.Read(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return Value{}, nil, io.EOF
			}
			return Value{}, nil, fmt.Errorf("failed to read parquet row: %w", err)
		}
		if s.skip {
			s.skip = false
			continue
		}

		rec := MergeDefaults(s.defaults, fromGoValue(row))
		return rec, BuildContext(rec), nil
	}
}

func (s *parquetSource) Close() error {
	if err := s.reader.Close(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// fromGoValue converts a decoded Go value (as produced by the parquet
// reader) into a Value. Map keys are sorted for a deterministic field
// order, since Go maps carry none.
func fromGoValue(v interface{}) Value {
	switch val := v.(type) {
	case nil:
		return Null()
	case bool:
		return NewBool(val)
	case int:
		return NewInt(int64(val))
	case int32:
		return NewInt(int64(val))
	case int64:
		return NewInt(val)
	case float32:
		return NewFloat(float64(val))
	case float64:
		return NewFloat(val)
	case string:
		return NewStr(val)
	case []byte:
		return NewStr(string(val))
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			obj.Set(k, fromGoValue(val[k]))
		}
		return NewObjectValue(obj)
	case []interface{}:
		elems := make([]Value, len(val))
		for i, e := range val {
			elems[i] = fromGoValue(e)
		}
		return NewList(elems)
	default:
		return NewStr(fmt.Sprintf("%v", val))
	}
}
