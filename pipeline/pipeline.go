package pipeline

import (
	"fmt"

	"recq/expr"
	"recq/record"
)

// ConfigError reports an invalid pipeline configuration, detected before
// any record is processed.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// Config describes a full pipeline: one query per source, plus the
// optional downstream operators.
type Config struct {
	Queries   []string
	Sources   []record.Source
	Funcs     *expr.Registry
	Aggregate *AggregateSpec
	Distinct  bool
	OrderBy   *OrderBySpec
	Limit     int
}

// Build validates a configuration, compiles its queries and wires the
// operator chain: map stages, then join (with two sources), aggregate,
// distinct, order by and limit.
func Build(cfg Config) (Stream, error) {
	if len(cfg.Sources) == 0 {
		return nil, &ConfigError{Msg: "at least one input source is required"}
	}
	if len(cfg.Sources) > 2 {
		return nil, &ConfigError{Msg: fmt.Sprintf("at most two input sources are supported, got %d", len(cfg.Sources))}
	}
	if len(cfg.Queries) != len(cfg.Sources) {
		return nil, &ConfigError{Msg: fmt.Sprintf("got %d queries for %d sources", len(cfg.Queries), len(cfg.Sources))}
	}
	if cfg.Aggregate != nil && len(cfg.Aggregate.Funcs) == 0 {
		return nil, &ConfigError{Msg: "aggregation requires at least one reduction function"}
	}
	if cfg.OrderBy != nil && len(cfg.OrderBy.Columns) == 0 {
		return nil, &ConfigError{Msg: "order by requires at least one column"}
	}

	funcs := cfg.Funcs
	if funcs == nil {
		funcs = expr.DefaultRegistry()
	}

	stages := make([]Stream, len(cfg.Sources))
	for i, src := range cfg.Sources {
		prog, err := expr.Compile(cfg.Queries[i])
		if err != nil {
			return nil, fmt.Errorf("compiling query %q: %w", cfg.Queries[i], err)
		}
		stages[i] = NewMapStage(src, prog, funcs)
	}

	var stream Stream = stages[0]
	if len(stages) == 2 {
		stream = Join(stages[0], stages[1])
	}

	if cfg.Aggregate != nil {
		stream = Aggregate(stream, *cfg.Aggregate)
	}
	if cfg.Distinct {
		stream = Distinct(stream)
	}
	if cfg.OrderBy != nil {
		stream = OrderBy(stream, *cfg.OrderBy)
	}
	stream = Limit(stream, cfg.Limit)

	return stream, nil
}
