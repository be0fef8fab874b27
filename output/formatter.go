// Package output provides formatters for rendering pipeline results.
//
// Currently supported formats:
//   - plain: one record per line, objects as JSON, rows comma-joined
//   - table: buffered rows rendered as an ASCII table
//
// Example usage:
//
//	formatter := output.NewPlainFormatter(os.Stdout, false)
//	if err := formatter.Format(rec); err != nil {
//	    log.Fatal(err)
//	}
package output

import (
	"io"

	"recq/record"
)

// Formatter defines the interface for output formatters.
//
// Implementers must provide Format to render a single record, Flush to
// finish any buffered output, and SetOutput to change the destination.
type Formatter interface {
	// Format renders one record
	Format(v record.Value) error

	// Flush writes any buffered output
	Flush() error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}
