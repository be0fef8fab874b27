package pipeline

import (
	"io"
	"sort"

	"recq/record"
)

// OrderBySpec configures sorting: which columns to compare, in priority
// order, and whether to reverse the whole ordering.
type OrderBySpec struct {
	Columns []int
	Reverse bool
}

// orderByStream sorts the full input before emitting anything. The sort
// is stable; reversal inverts the comparator rather than flipping the
// sorted slice, so equal records keep their input order either way.
type orderByStream struct {
	src     Stream
	spec    OrderBySpec
	results []record.Value
	pos     int
	done    bool
}

// OrderBy sorts a stream by the given columns
func OrderBy(src Stream, spec OrderBySpec) Stream {
	return &orderByStream{src: src, spec: spec}
}

func (o *orderByStream) Next() (record.Value, error) {
	if !o.done {
		if err := o.run(); err != nil {
			return record.Value{}, err
		}
	}
	if o.pos >= len(o.results) {
		return record.Value{}, io.EOF
	}
	v := o.results[o.pos]
	o.pos++
	return v, nil
}

func (o *orderByStream) run() error {
	rows, err := Collect(o.src)
	if err != nil {
		return err
	}

	type keyed struct {
		row record.Value
		key []record.Value
	}
	items := make([]keyed, len(rows))
	for i, row := range rows {
		key := make([]record.Value, len(o.spec.Columns))
		for j, col := range o.spec.Columns {
			kv, err := columnAt(row, col)
			if err != nil {
				return err
			}
			key[j] = kv
		}
		items[i] = keyed{row: row, key: key}
	}

	sort.SliceStable(items, func(i, j int) bool {
		for c := range o.spec.Columns {
			cmp := record.Compare(items[i].key[c], items[j].key[c])
			if cmp == 0 {
				continue
			}
			if o.spec.Reverse {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	o.results = make([]record.Value, len(items))
	for i, it := range items {
		o.results[i] = it.row
	}
	o.done = true
	return nil
}

// limitStream emits at most n records, then stops pulling upstream
type limitStream struct {
	src  Stream
	n    int
	seen int
}

// Limit caps a stream at n records. A non-positive n means no limit.
func Limit(src Stream, n int) Stream {
	if n <= 0 {
		return src
	}
	return &limitStream{src: src, n: n}
}

func (l *limitStream) Next() (record.Value, error) {
	if l.seen >= l.n {
		return record.Value{}, io.EOF
	}
	v, err := l.src.Next()
	if err != nil {
		return record.Value{}, err
	}
	l.seen++
	return v, nil
}
