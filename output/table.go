package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"recq/record"
)

// TableFormatter buffers all records and renders them as an ASCII table
// on Flush. Each record becomes a row; sequence records spread across
// columns.
type TableFormatter struct {
	writer io.Writer
	rows   [][]string
}

// NewTableFormatter creates a buffered table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// Format buffers one record as a table row
func (t *TableFormatter) Format(v record.Value) error {
	var row []string
	if v.IsSeq() {
		for _, e := range v.Seq() {
			row = append(row, e.String())
		}
	} else {
		row = append(row, v.String())
	}
	t.rows = append(t.rows, row)
	return nil
}

// Flush renders the buffered rows
func (t *TableFormatter) Flush() error {
	table := tablewriter.NewWriter(t.writer)
	for _, row := range t.rows {
		table.Append(row)
	}
	table.Render()
	return nil
}
