package pipeline

import (
	"fmt"

	"recq/expr"
	"recq/record"
)

// MapStage evaluates a compiled query against every record of a source.
// A list result is flattened into its elements, so one input record can
// yield zero, one or many output records; any other result passes through
// as a single record.
type MapStage struct {
	src     record.Source
	prog    *expr.Compiled
	funcs   *expr.Registry
	pending []record.Value
}

// NewMapStage creates a map stage over a source
func NewMapStage(src record.Source, prog *expr.Compiled, funcs *expr.Registry) *MapStage {
	return &MapStage{src: src, prog: prog, funcs: funcs}
}

func (m *MapStage) Next() (record.Value, error) {
	for {
		if len(m.pending) > 0 {
			v := m.pending[0]
			m.pending = m.pending[1:]
			return v, nil
		}

		_, ctx, err := m.src.Next()
		if err != nil {
			return record.Value{}, err
		}

		out, err := m.prog.Eval(ctx, m.funcs)
		if err != nil {
			return record.Value{}, fmt.Errorf("evaluating query %q: %w", m.prog.Source(), err)
		}

		if out.Kind() == record.KindList {
			m.pending = out.Seq()
			continue
		}
		return out, nil
	}
}
