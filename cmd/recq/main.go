package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"recq/expr"
	"recq/output"
	"recq/pipeline"
	"recq/record"
)

// stringList collects repeated occurrences of a flag
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

var (
	queryFlags    stringList
	fileFlags     stringList
	aggFlags      stringList
	compactFlag  = flag.Bool("c", false, "Compact JSON output (no indentation)")
	skipFlag     = flag.Bool("s", false, "Skip the first line/row of each input")
	initFlag     = flag.String("i", "", "Default record merged under every input record (JSON object)")
	distinctFlag = flag.Bool("d", false, "Drop duplicate records")
	keyFlag      = flag.String("k", "", "Aggregation key columns (comma-separated indexes)")
	valueFlag    = flag.Int("v", 0, "Aggregation value column index")
	orderFlag    = flag.String("o", "", "Sort output by columns (comma-separated indexes)")
	reverseFlag  = flag.Bool("r", false, "Reverse the sort order")
	limitFlag    = flag.Int("l", 0, "Limit number of output records (0 = unlimited)")
	tableFlag    = flag.Bool("t", false, "Render output as an ASCII table")
)

func main() {
	flag.Var(&queryFlags, "q", "Query expression, one per input (default \"_\")")
	flag.Var(&fileFlags, "f", "Input file (jsonl, csv, .gz, .parquet; \"-\" or omitted = stdin; max 2)")
	flag.Var(&aggFlags, "a", "Aggregate with a reduction: sum, count, len, min, max, avg, pNN (repeatable)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "A tool to query streams of JSON or CSV records with expressions.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  cat data.jsonl | %s -q '(name, age) if age > 30'\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -f data.csv.gz -q '_[1]' -a sum\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -f users.jsonl -f orders.jsonl -q '(id, name)' -q '(user_id, total)'\n", os.Args[0])
	}

	flag.Parse()

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected argument %q (inputs are given with -f)\n\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}

	var defaults *record.Object
	if *initFlag != "" {
		obj, err := record.ParseObject(*initFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -i default record: %v\n", err)
			os.Exit(1)
		}
		defaults = obj
	}

	files := fileFlags
	if len(files) == 0 {
		files = stringList{"-"}
	}

	// The identity default applies only when no query was given at all; an
	// explicit query list must match the input count exactly, which Build
	// enforces.
	queries := queryFlags
	if len(queries) == 0 {
		for range files {
			queries = append(queries, record.Alias)
		}
	}

	sources := make([]record.Source, len(files))
	for i, path := range files {
		src, err := record.Open(path, defaults, *skipFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		sources[i] = src
		defer src.Close()
	}

	cfg := pipeline.Config{
		Queries:  queries,
		Sources:  sources,
		Distinct: *distinctFlag,
		Limit:    *limitFlag,
	}

	if len(aggFlags) > 0 {
		keyCols, err := parseColumns(*keyFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -k columns: %v\n", err)
			os.Exit(1)
		}
		funcs := make([]expr.Function, len(aggFlags))
		for i, spec := range aggFlags {
			fn, err := expr.ReductionForSpec(spec)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			funcs[i] = fn
		}
		cfg.Aggregate = &pipeline.AggregateSpec{
			Funcs:       funcs,
			KeyColumns:  keyCols,
			ValueColumn: *valueFlag,
		}
	}

	if *orderFlag != "" {
		orderCols, err := parseColumns(*orderFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -o columns: %v\n", err)
			os.Exit(1)
		}
		cfg.OrderBy = &pipeline.OrderBySpec{Columns: orderCols, Reverse: *reverseFlag}
	}

	stream, err := pipeline.Build(cfg)
	if err != nil {
		var cfgErr *pipeline.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			flag.Usage()
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	var formatter output.Formatter
	if *tableFlag {
		formatter = output.NewTableFormatter(os.Stdout)
	} else {
		formatter = output.NewPlainFormatter(os.Stdout, *compactFlag)
	}

	for {
		rec, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := formatter.Format(rec); err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
	}

	if err := formatter.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
}

// parseColumns parses a comma-separated list of column indexes
func parseColumns(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	cols := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid column index %q", p)
		}
		if n < 0 {
			return nil, fmt.Errorf("column index %d is negative", n)
		}
		cols[i] = n
	}
	return cols, nil
}
