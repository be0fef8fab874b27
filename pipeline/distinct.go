package pipeline

import (
	"io"

	"recq/record"
)

// distinctStream drops duplicate records, comparing them by canonical
// key. Output order is unspecified.
type distinctStream struct {
	src     Stream
	results []record.Value
	pos     int
	done    bool
}

// Distinct removes duplicate records from a stream
func Distinct(src Stream) Stream {
	return &distinctStream{src: src}
}

func (d *distinctStream) Next() (record.Value, error) {
	if !d.done {
		seen := make(map[string]record.Value)
		for {
			v, err := d.src.Next()
			if err != nil {
				if err == io.EOF {
					break
				}
				return record.Value{}, err
			}
			seen[v.Key()] = v
		}
		for _, v := range seen {
			d.results = append(d.results, v)
		}
		d.done = true
	}

	if d.pos >= len(d.results) {
		return record.Value{}, io.EOF
	}
	v := d.results[d.pos]
	d.pos++
	return v, nil
}
