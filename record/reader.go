package record

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseError reports a line that matched neither JSON nor CSV. The
// offending line is carried verbatim.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse line as JSON or CSV: %s", e.Line)
}

func (e *ParseError) Unwrap() error { return e.Err }

// readerMode is the format state of a LineReader. The reader starts by
// trying JSON and commits to CSV on the first JSON parse failure; the
// transition is one-way and sticky for the remainder of the stream.
type readerMode int

const (
	tryingJSON readerMode = iota
	committedCSV
)

// LineReader converts raw input lines into (record, context) pairs,
// adaptively choosing between JSON and CSV per stream.
type LineReader struct {
	scanner  *bufio.Scanner
	mode     readerMode
	defaults *Object
	skip     bool
}

// NewLineReader creates a reader over r. defaults, when non-nil, is merged
// under every JSON record before evaluation. When skipHeader is set the
// first line of the stream is discarded unparsed.
func NewLineReader(r io.Reader, defaults *Object, skipHeader bool) *LineReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &LineReader{
		scanner:  scanner,
		defaults: defaults,
		skip:     skipHeader,
	}
}

// Next returns the next (record, context) pair. Blank lines are skipped.
// Returns io.EOF once the stream is exhausted, or a *ParseError if a line
// matches neither format.
func (lr *LineReader) Next() (Value, Context, error) {
	for lr.scanner.Scan() {
		line := lr.scanner.Text()
		if lr.skip {
			lr.skip = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		return lr.record(line)
	}
	if err := lr.scanner.Err(); err != nil {
		return Value{}, nil, fmt.Errorf("reading input: %w", err)
	}
	return Value{}, nil, io.EOF
}

// record parses one line according to the current mode. A JSON failure in
// the trying state commits the reader to CSV and retries the same line.
func (lr *LineReader) record(line string) (Value, Context, error) {
	if lr.mode == tryingJSON {
		rec, err := decodeJSONLine(line)
		if err == nil {
			rec = MergeDefaults(lr.defaults, rec)
			return rec, BuildContext(rec), nil
		}
		lr.mode = committedCSV
	}

	rec, err := decodeCSVLine(line)
	if err != nil {
		return Value{}, nil, &ParseError{Line: line, Err: err}
	}
	return rec, BuildContext(rec), nil
}

// MergeDefaults merges an object record over a copy of the defaults, so
// record fields override default fields. Non-object records and nil
// defaults pass through unchanged.
func MergeDefaults(defaults *Object, rec Value) Value {
	if defaults == nil || defaults.Len() == 0 || rec.Kind() != KindObject {
		return rec
	}
	merged := defaults.Clone()
	for _, k := range rec.Obj().Keys() {
		v, _ := rec.Obj().Get(k)
		merged.Set(k, v)
	}
	return NewObjectValue(merged)
}

// decodeJSONLine parses a full line of JSON into a Value, preserving
// object key order. The token walk uses the stdlib decoder, which exposes
// the Token/More API; segmentio handles all encoding. Trailing content
// after the JSON value is an error so that lines like "1,2,3" fall
// through to CSV.
func decodeJSONLine(line string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}

	// The whole line must be one JSON value
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("trailing content after JSON value")
	}
	return v, nil
}

// decodeValue reads one JSON value from the decoder's token stream.
func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is not a string: %v", keyTok)
				}
				v, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				obj.Set(key, v)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return NewObjectValue(obj), nil
		case '[':
			var elems []Value
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				elems = append(elems, v)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return NewList(elems), nil
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %v", t)
		}
	case string:
		return NewStr(t), nil
	case json.Number:
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return NewInt(i), nil
		}
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q", t)
		}
		return NewFloat(f), nil
	case bool:
		return NewBool(t), nil
	case nil:
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

// decodeCSVLine parses one CSV row into a tuple, inferring the most
// specific literal type for each field.
func decodeCSVLine(line string) (Value, error) {
	r := csv.NewReader(strings.NewReader(line))
	fields, err := r.Read()
	if err != nil {
		return Value{}, err
	}

	elems := make([]Value, len(fields))
	for i, f := range fields {
		elems[i] = inferLiteral(f)
	}
	return NewTuple(elems), nil
}

// inferLiteral converts a CSV field to its most specific literal type:
// integer, float, boolean, null, tuple literal or quoted string, falling
// back to the raw string.
func inferLiteral(field string) Value {
	s := strings.TrimSpace(field)

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return NewInt(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return NewFloat(f)
	}

	switch s {
	case "true", "True":
		return NewBool(true)
	case "false", "False":
		return NewBool(false)
	case "null", "None":
		return Null()
	}

	// Tuple literal, possibly nested, e.g. "(1, 2)" or "((1, 2), 3)".
	// Unbalanced parentheses fall through to the string cases.
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		inner := s[1 : len(s)-1]
		if strings.TrimSpace(inner) == "" {
			return NewTuple(nil)
		}
		if parts, ok := splitTopLevel(inner); ok {
			elems := make([]Value, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p == "" { // trailing comma
					continue
				}
				elems = append(elems, inferLiteral(p))
			}
			return NewTuple(elems)
		}
	}

	// Quoted string literal
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return NewStr(s[1 : len(s)-1])
		}
	}

	return NewStr(field)
}

// splitTopLevel splits s on commas outside any parentheses. Reports false
// when the parentheses do not balance.
func splitTopLevel(s string) ([]string, bool) {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, false
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, false
	}
	parts = append(parts, s[start:])
	return parts, true
}

// ParseObject parses a JSON object literal, as supplied for the default
// object on the command line.
func ParseObject(src string) (*Object, error) {
	v, err := decodeJSONLine(src)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	if v.Kind() != KindObject {
		return nil, fmt.Errorf("expected a JSON object, got %s", v.String())
	}
	return v.Obj(), nil
}
