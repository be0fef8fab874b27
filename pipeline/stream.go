// Package pipeline wires record sources, compiled query expressions and
// stream operators into a single pull-based pipeline. Operators run in a
// fixed order: map, join, aggregate, distinct, order by, limit.
package pipeline

import (
	"io"

	"recq/record"
)

// Stream produces records one at a time. Next returns io.EOF once the
// stream is exhausted; any other error is fatal for the pipeline.
type Stream interface {
	Next() (record.Value, error)
}

// Collect drains a stream into a slice
func Collect(s Stream) ([]record.Value, error) {
	var out []record.Value
	for {
		v, err := s.Next()
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, err
		}
		out = append(out, v)
	}
}

// sliceStream replays a fixed slice of records
type sliceStream struct {
	values []record.Value
	pos    int
}

// FromSlice creates a stream over a fixed slice of records
func FromSlice(values []record.Value) Stream {
	return &sliceStream{values: values}
}

func (s *sliceStream) Next() (record.Value, error) {
	if s.pos >= len(s.values) {
		return record.Value{}, io.EOF
	}
	v := s.values[s.pos]
	s.pos++
	return v, nil
}
