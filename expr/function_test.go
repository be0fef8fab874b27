package expr

import (
	"testing"

	"recq/record"
)

func ints(ns ...int64) record.Value {
	elems := make([]record.Value, len(ns))
	for i, n := range ns {
		elems[i] = record.NewInt(n)
	}
	return record.NewList(elems)
}

func TestReductions(t *testing.T) {
	tests := []struct {
		name     string
		fn       Function
		arg      record.Value
		expected string
	}{
		{"sum ints stays int", &SumFunc{}, ints(1, 2, 3), "6"},
		{"sum empty", &SumFunc{}, ints(), "0"},
		{"sum mixed is float", &SumFunc{}, record.NewList([]record.Value{record.NewInt(1), record.NewFloat(0.5)}), "1.5"},
		{"count", &CountFunc{}, ints(5, 5, 5), "3"},
		{"len list", &LenFunc{}, ints(1, 2), "2"},
		{"min", &MinFunc{}, ints(3, 1, 2), "1"},
		{"max", &MaxFunc{}, ints(3, 1, 2), "3"},
		{"avg", &AvgFunc{}, ints(1, 2, 3), "2"},
		{"avg empty is zero", &AvgFunc{}, ints(), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.fn.Evaluate([]record.Value{tt.arg})
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got := v.String(); got != tt.expected {
				t.Errorf("%s = %s, want %s", tt.fn.Name(), got, tt.expected)
			}
		})
	}
}

func TestReductionErrors(t *testing.T) {
	if _, err := (&MinFunc{}).Evaluate([]record.Value{ints()}); err == nil {
		t.Errorf("min of empty sequence should fail")
	}
	if _, err := (&SumFunc{}).Evaluate([]record.Value{record.NewInt(1)}); err == nil {
		t.Errorf("sum of a scalar should fail")
	}
	if _, err := (&SumFunc{}).Evaluate([]record.Value{record.NewList([]record.Value{record.NewStr("x")})}); err == nil {
		t.Errorf("sum of strings should fail")
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name     string
		values   record.Value
		p        float64
		expected string
	}{
		{"median of three", ints(3, 1, 2), 0.5, "2"},
		{"p0 is minimum", ints(3, 1, 2), 0.0, "1"},
		{"p99 of ten", ints(10, 9, 8, 7, 6, 5, 4, 3, 2, 1), 0.99, "10"},
		{"p50 of ten", ints(10, 9, 8, 7, 6, 5, 4, 3, 2, 1), 0.5, "6"},
		{"single element", ints(7), 0.9, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := &PercentileFunc{}
			v, err := fn.Evaluate([]record.Value{tt.values, record.NewFloat(tt.p)})
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got := v.String(); got != tt.expected {
				t.Errorf("percentile(%s, %v) = %s, want %s", tt.values.String(), tt.p, got, tt.expected)
			}
		})
	}
}

func TestPercentileDoesNotMutateInput(t *testing.T) {
	arg := ints(5, 3, 4, 1, 2)
	before := arg.String()

	fn := &PercentileFunc{}
	if _, err := fn.Evaluate([]record.Value{arg, record.NewFloat(0.5)}); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if arg.String() != before {
		t.Errorf("input reordered: %s, want %s", arg.String(), before)
	}
}

func TestPercentileErrors(t *testing.T) {
	fn := &PercentileFunc{}
	if _, err := fn.Evaluate([]record.Value{ints(), record.NewFloat(0.5)}); err == nil {
		t.Errorf("empty sequence should fail")
	}
	if _, err := fn.Evaluate([]record.Value{ints(1), record.NewFloat(1.0)}); err == nil {
		t.Errorf("fraction 1.0 should be out of range")
	}
	if _, err := fn.Evaluate([]record.Value{ints(1), record.NewFloat(-0.1)}); err == nil {
		t.Errorf("negative fraction should fail")
	}
}

func TestReductionForSpec(t *testing.T) {
	for _, spec := range []string{"sum", "count", "len", "min", "max", "avg"} {
		fn, err := ReductionForSpec(spec)
		if err != nil {
			t.Errorf("ReductionForSpec(%q): %v", spec, err)
			continue
		}
		if fn.Name() != spec {
			t.Errorf("ReductionForSpec(%q).Name() = %q", spec, fn.Name())
		}
	}

	fn, err := ReductionForSpec("p90")
	if err != nil {
		t.Fatalf("ReductionForSpec(p90): %v", err)
	}
	v, err := fn.Evaluate([]record.Value{ints(10, 9, 8, 7, 6, 5, 4, 3, 2, 1)})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v.String() != "10" {
		t.Errorf("p90 of 1..10 = %s, want 10", v.String())
	}

	for _, bad := range []string{"median", "p100", "p-1", "px"} {
		if _, err := ReductionForSpec(bad); err == nil {
			t.Errorf("ReductionForSpec(%q): expected error", bad)
		}
	}
}

func TestScalarHelpers(t *testing.T) {
	ctx := record.Context{
		"s": record.NewStr("  Hello  "),
		"n": record.NewFloat(-2.6),
	}

	tests := []struct {
		name     string
		src      string
		expected string
	}{
		{"abs int", "abs(-5)", "5"},
		{"abs float", "abs(n)", "2.6"},
		{"round", "round(n)", "-3"},
		{"str", "str(42)", "42"},
		{"num from string", `num("3.5")`, "3.5"},
		{"num from bool", "num(true)", "1"},
		{"upper", "upper(trim(s))", "HELLO"},
		{"lower", "lower('ABC')", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := evalString(t, tt.src, ctx)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			if got := v.String(); got != tt.expected {
				t.Errorf("%q = %s, want %s", tt.src, got, tt.expected)
			}
		})
	}
}

func TestUUIDFunc(t *testing.T) {
	v, err := evalString(t, "uuid()", record.Context{})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.Kind() != record.KindStr || len(v.Str()) != 36 {
		t.Errorf("uuid() = %s, want a 36-character string", v.String())
	}

	w, _ := evalString(t, "uuid()", record.Context{})
	if v.Str() == w.Str() {
		t.Errorf("two uuid() calls returned the same value")
	}
}
