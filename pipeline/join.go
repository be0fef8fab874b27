package pipeline

import (
	"fmt"
	"io"

	"recq/record"
)

// joinStream implements an inner hash equijoin on the first column of
// each side. The build side is materialized into a hash table; the probe
// side streams through it. Each output row is the matching build row
// followed by the probe row with its key column dropped.
type joinStream struct {
	build   Stream
	probe   Stream
	table   map[string][]record.Value
	built   bool
	pending []record.Value
}

// Join combines two streams with an inner equijoin on column 0
func Join(build, probe Stream) Stream {
	return &joinStream{build: build, probe: probe}
}

func (j *joinStream) Next() (record.Value, error) {
	if !j.built {
		if err := j.buildTable(); err != nil {
			return record.Value{}, err
		}
	}

	for {
		if len(j.pending) > 0 {
			v := j.pending[0]
			j.pending = j.pending[1:]
			return v, nil
		}

		probeRow, err := j.probe.Next()
		if err != nil {
			return record.Value{}, err
		}

		key, err := firstColumn(probeRow)
		if err != nil {
			return record.Value{}, err
		}

		matches := j.table[key.Key()]
		if len(matches) == 0 {
			continue
		}

		probeRest := rest(probeRow)
		for _, buildRow := range matches {
			joined := append(append([]record.Value{}, columns(buildRow)...), probeRest...)
			j.pending = append(j.pending, record.NewTuple(joined))
		}
	}
}

// buildTable materializes the build side, keeping rows with the same key
// in arrival order
func (j *joinStream) buildTable() error {
	j.table = make(map[string][]record.Value)
	for {
		row, err := j.build.Next()
		if err != nil {
			if err == io.EOF {
				j.built = true
				return nil
			}
			return err
		}
		key, err := firstColumn(row)
		if err != nil {
			return err
		}
		j.table[key.Key()] = append(j.table[key.Key()], row)
	}
}

// columns views a record as a row of columns: a sequence yields its
// elements, anything else is a single-column row.
func columns(v record.Value) []record.Value {
	if v.IsSeq() {
		return v.Seq()
	}
	return []record.Value{v}
}

// firstColumn returns the join key of a row
func firstColumn(v record.Value) (record.Value, error) {
	cols := columns(v)
	if len(cols) == 0 {
		return record.Value{}, fmt.Errorf("cannot join on an empty row")
	}
	return cols[0], nil
}

// rest returns a row's columns after the join key
func rest(v record.Value) []record.Value {
	cols := columns(v)
	if len(cols) <= 1 {
		return nil
	}
	return cols[1:]
}
