package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/segmentio/encoding/json"

	"recq/record"
)

// PlainFormatter writes one record per line: objects as JSON (indented
// unless compact), tuples and lists as comma-joined columns, scalars by
// their string form.
type PlainFormatter struct {
	writer  io.Writer
	compact bool
}

// NewPlainFormatter creates a plain line formatter
func NewPlainFormatter(w io.Writer, compact bool) *PlainFormatter {
	return &PlainFormatter{writer: w, compact: compact}
}

// SetOutput sets the output writer
func (p *PlainFormatter) SetOutput(w io.Writer) {
	p.writer = w
}

// Format writes one record followed by a newline
func (p *PlainFormatter) Format(v record.Value) error {
	line, err := renderLine(v, p.compact)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.writer, line)
	return err
}

// Flush is a no-op; plain output is unbuffered
func (p *PlainFormatter) Flush() error { return nil }

// renderLine renders a record as a single output line
func renderLine(v record.Value, compact bool) (string, error) {
	switch v.Kind() {
	case record.KindObject:
		var data []byte
		var err error
		if compact {
			data, err = json.Marshal(v)
		} else {
			data, err = json.MarshalIndent(v, "", "  ")
		}
		if err != nil {
			return "", fmt.Errorf("failed to encode record: %w", err)
		}
		return string(data), nil

	case record.KindTuple, record.KindList:
		elems := v.Seq()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = e.String()
		}
		return strings.Join(parts, ", "), nil

	default:
		return v.String(), nil
	}
}
