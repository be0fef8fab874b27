package pipeline

import (
	"fmt"
	"io"

	"recq/expr"
	"recq/record"
)

// AggregateSpec configures the aggregate stage: which reductions to run,
// which columns form the group key and which column carries the values
// to reduce.
type AggregateSpec struct {
	Funcs       []expr.Function
	KeyColumns  []int
	ValueColumn int
}

// group accumulates the values of one group key
type group struct {
	keyVals []record.Value
	values  []record.Value
}

// aggregateStream groups records by key columns and applies each
// reduction to the collected value column. Groups are emitted in the
// order their keys were first seen. With no key columns every record
// falls into a single global group, which is emitted even when the input
// is empty.
type aggregateStream struct {
	src     Stream
	spec    AggregateSpec
	results []record.Value
	pos     int
	done    bool
}

// Aggregate groups a stream and reduces each group
func Aggregate(src Stream, spec AggregateSpec) Stream {
	return &aggregateStream{src: src, spec: spec}
}

func (a *aggregateStream) Next() (record.Value, error) {
	if !a.done {
		if err := a.run(); err != nil {
			return record.Value{}, err
		}
	}
	if a.pos >= len(a.results) {
		return record.Value{}, io.EOF
	}
	v := a.results[a.pos]
	a.pos++
	return v, nil
}

func (a *aggregateStream) run() error {
	groups := make(map[string]*group)
	var order []string

	if len(a.spec.KeyColumns) == 0 {
		// Global aggregation always yields one output row. The seed key
		// must match the empty key-tuple that every row computes, so rows
		// land in this group rather than a second one.
		key := record.NewTuple(nil).Key()
		groups[key] = &group{}
		order = append(order, key)
	}

	for {
		row, err := a.src.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}

		keyVals := make([]record.Value, len(a.spec.KeyColumns))
		for i, col := range a.spec.KeyColumns {
			kv, err := columnAt(row, col)
			if err != nil {
				return err
			}
			keyVals[i] = kv
		}
		key := record.NewTuple(keyVals).Key()

		g, exists := groups[key]
		if !exists {
			g = &group{keyVals: keyVals}
			groups[key] = g
			order = append(order, key)
		}

		val, err := columnAt(row, a.spec.ValueColumn)
		if err != nil {
			return err
		}
		g.values = append(g.values, val)
	}

	for _, key := range order {
		g := groups[key]
		row := append([]record.Value{}, g.keyVals...)
		seq := record.NewList(g.values)
		for _, fn := range a.spec.Funcs {
			res, err := fn.Evaluate([]record.Value{seq})
			if err != nil {
				return fmt.Errorf("aggregating with %s: %w", fn.Name(), err)
			}
			row = append(row, res)
		}
		a.results = append(a.results, record.NewTuple(row))
	}

	a.done = true
	return nil
}

// columnAt extracts column idx from a row
func columnAt(v record.Value, idx int) (record.Value, error) {
	cols := columns(v)
	if idx < 0 || idx >= len(cols) {
		return record.Value{}, fmt.Errorf("column index %d out of range (row has %d columns)", idx, len(cols))
	}
	return cols[idx], nil
}
