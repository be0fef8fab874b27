package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"recq/record"
)

// Function represents a callable that can be evaluated from an expression
// or applied as a reduction by the aggregate stage.
type Function interface {
	// Name returns the function name
	Name() string
	// MinArity returns the minimum number of arguments (-1 for variadic with no minimum)
	MinArity() int
	// MaxArity returns the maximum number of arguments (-1 for unlimited)
	MaxArity() int
	// Evaluate evaluates the function with the given arguments
	Evaluate(args []record.Value) (record.Value, error)
}

// Registry manages function lookup and registration. It is passed into
// the evaluation environment explicitly; there is no ambient global
// registry.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewRegistry creates an empty function registry
func NewRegistry() *Registry {
	return &Registry{
		functions: make(map[string]Function),
	}
}

// Register registers a function
func (r *Registry) Register(f Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[f.Name()] = f
}

// Get retrieves a function by name
func (r *Registry) Get(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, exists := r.functions[name]
	return f, exists
}

// DefaultRegistry builds a registry with all built-in functions: the
// reduction functions, scalar helpers and uuid.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Reduction functions
	r.Register(&SumFunc{})
	r.Register(&CountFunc{})
	r.Register(&LenFunc{})
	r.Register(&MinFunc{})
	r.Register(&MaxFunc{})
	r.Register(&AvgFunc{})
	r.Register(&PercentileFunc{})

	// Scalar helpers
	r.Register(&AbsFunc{})
	r.Register(&RoundFunc{})
	r.Register(&StrFunc{})
	r.Register(&NumFunc{})
	r.Register(&UpperFunc{})
	r.Register(&LowerFunc{})
	r.Register(&TrimFunc{})
	r.Register(&UUIDFunc{})

	return r
}

// ReductionForSpec resolves a command-line reduction spec to a function:
// a plain name (sum, count, len, min, max, avg) or pNN for the NN-th
// percentile (e.g. p50, p95).
func ReductionForSpec(spec string) (Function, error) {
	switch spec {
	case "sum":
		return &SumFunc{}, nil
	case "count":
		return &CountFunc{}, nil
	case "len":
		return &LenFunc{}, nil
	case "min":
		return &MinFunc{}, nil
	case "max":
		return &MaxFunc{}, nil
	case "avg":
		return &AvgFunc{}, nil
	}

	if len(spec) > 1 && spec[0] == 'p' {
		if n, err := strconv.Atoi(spec[1:]); err == nil {
			if n < 0 || n >= 100 {
				return nil, fmt.Errorf("percentile %s out of range [p0, p99]", spec)
			}
			return BindPercentile(float64(n) / 100), nil
		}
	}

	return nil, fmt.Errorf("unknown reduction function: %s", spec)
}

// seqArg extracts the elements of a sequence argument
func seqArg(fname string, v record.Value) ([]record.Value, error) {
	if !v.IsSeq() {
		return nil, fmt.Errorf("%s: expected a sequence, got %s", fname, kindName(v.Kind()))
	}
	return v.Seq(), nil
}

// SumFunc sums a sequence of numbers. The result stays integral when every
// element is an integer; an empty sequence sums to 0.
type SumFunc struct{}

func (f *SumFunc) Name() string  { return "sum" }
func (f *SumFunc) MinArity() int { return 1 }
func (f *SumFunc) MaxArity() int { return 1 }
func (f *SumFunc) Evaluate(args []record.Value) (record.Value, error) {
	elems, err := seqArg("sum", args[0])
	if err != nil {
		return record.Value{}, err
	}

	intSum := int64(0)
	floatSum := 0.0
	allInts := true
	for _, e := range elems {
		switch e.Kind() {
		case record.KindInt:
			intSum += e.Int()
			floatSum += float64(e.Int())
		case record.KindFloat:
			allInts = false
			floatSum += e.Float()
		default:
			return record.Value{}, fmt.Errorf("sum: cannot add %s", kindName(e.Kind()))
		}
	}

	if allInts {
		return record.NewInt(intSum), nil
	}
	return record.NewFloat(floatSum), nil
}

// CountFunc returns the number of elements in a sequence
type CountFunc struct{}

func (f *CountFunc) Name() string  { return "count" }
func (f *CountFunc) MinArity() int { return 1 }
func (f *CountFunc) MaxArity() int { return 1 }
func (f *CountFunc) Evaluate(args []record.Value) (record.Value, error) {
	elems, err := seqArg("count", args[0])
	if err != nil {
		return record.Value{}, err
	}
	return record.NewInt(int64(len(elems))), nil
}

// LenFunc returns the length of a sequence, string or object
type LenFunc struct{}

func (f *LenFunc) Name() string  { return "len" }
func (f *LenFunc) MinArity() int { return 1 }
func (f *LenFunc) MaxArity() int { return 1 }
func (f *LenFunc) Evaluate(args []record.Value) (record.Value, error) {
	v := args[0]
	switch v.Kind() {
	case record.KindTuple, record.KindList:
		return record.NewInt(int64(len(v.Seq()))), nil
	case record.KindStr:
		return record.NewInt(int64(len(v.Str()))), nil
	case record.KindObject:
		return record.NewInt(int64(v.Obj().Len())), nil
	default:
		return record.Value{}, fmt.Errorf("len: %s has no length", kindName(v.Kind()))
	}
}

// MinFunc returns the smallest element of a non-empty sequence
type MinFunc struct{}

func (f *MinFunc) Name() string  { return "min" }
func (f *MinFunc) MinArity() int { return 1 }
func (f *MinFunc) MaxArity() int { return 1 }
func (f *MinFunc) Evaluate(args []record.Value) (record.Value, error) {
	elems, err := seqArg("min", args[0])
	if err != nil {
		return record.Value{}, err
	}
	if len(elems) == 0 {
		return record.Value{}, fmt.Errorf("min: empty sequence")
	}

	best := elems[0]
	for _, e := range elems[1:] {
		if record.Compare(e, best) < 0 {
			best = e
		}
	}
	return best, nil
}

// MaxFunc returns the largest element of a non-empty sequence
type MaxFunc struct{}

func (f *MaxFunc) Name() string  { return "max" }
func (f *MaxFunc) MinArity() int { return 1 }
func (f *MaxFunc) MaxArity() int { return 1 }
func (f *MaxFunc) Evaluate(args []record.Value) (record.Value, error) {
	elems, err := seqArg("max", args[0])
	if err != nil {
		return record.Value{}, err
	}
	if len(elems) == 0 {
		return record.Value{}, fmt.Errorf("max: empty sequence")
	}

	best := elems[0]
	for _, e := range elems[1:] {
		if record.Compare(e, best) > 0 {
			best = e
		}
	}
	return best, nil
}

// AvgFunc returns the mean of a sequence of numbers, or 0.0 for an empty
// sequence
type AvgFunc struct{}

func (f *AvgFunc) Name() string  { return "avg" }
func (f *AvgFunc) MinArity() int { return 1 }
func (f *AvgFunc) MaxArity() int { return 1 }
func (f *AvgFunc) Evaluate(args []record.Value) (record.Value, error) {
	elems, err := seqArg("avg", args[0])
	if err != nil {
		return record.Value{}, err
	}
	if len(elems) == 0 {
		return record.NewFloat(0.0), nil
	}

	sum := 0.0
	for _, e := range elems {
		n, ok := e.AsFloat()
		if !ok {
			return record.Value{}, fmt.Errorf("avg: cannot average %s", kindName(e.Kind()))
		}
		sum += n
	}
	return record.NewFloat(sum / float64(len(elems))), nil
}

// PercentileFunc selects the element at position floor(p*N) of the sorted
// sequence without fully sorting it: a lower order statistic, not an
// interpolated percentile. The selection runs over a private copy, so the
// caller's sequence is never mutated.
type PercentileFunc struct{}

func (f *PercentileFunc) Name() string  { return "percentile" }
func (f *PercentileFunc) MinArity() int { return 2 }
func (f *PercentileFunc) MaxArity() int { return 2 }
func (f *PercentileFunc) Evaluate(args []record.Value) (record.Value, error) {
	elems, err := seqArg("percentile", args[0])
	if err != nil {
		return record.Value{}, err
	}
	p, ok := args[1].AsFloat()
	if !ok {
		return record.Value{}, fmt.Errorf("percentile: fraction must be a number, got %s", kindName(args[1].Kind()))
	}
	return percentileOf(elems, p)
}

// boundPercentile is a percentile with the fraction fixed ahead of time,
// used for pNN reduction specs on the command line.
type boundPercentile struct {
	p float64
}

// BindPercentile returns a single-argument percentile reduction with the
// fraction fixed to p.
func BindPercentile(p float64) Function {
	return &boundPercentile{p: p}
}

func (f *boundPercentile) Name() string {
	return fmt.Sprintf("p%d", int(math.Round(f.p*100)))
}
func (f *boundPercentile) MinArity() int { return 1 }
func (f *boundPercentile) MaxArity() int { return 1 }
func (f *boundPercentile) Evaluate(args []record.Value) (record.Value, error) {
	elems, err := seqArg(f.Name(), args[0])
	if err != nil {
		return record.Value{}, err
	}
	return percentileOf(elems, f.p)
}

func percentileOf(elems []record.Value, p float64) (record.Value, error) {
	if p < 0 || p >= 1 {
		return record.Value{}, fmt.Errorf("percentile: fraction %v out of range [0, 1)", p)
	}
	if len(elems) == 0 {
		return record.Value{}, fmt.Errorf("percentile: empty sequence")
	}

	// Select over a copy: the caller's sequence may be shared between
	// several reductions and must stay unmutated.
	values := make([]record.Value, len(elems))
	copy(values, elems)

	k := int(math.Floor(p * float64(len(values))))
	return orderStatistic(values, k), nil
}

// orderStatistic finds the k-th smallest element via quickselect with
// Hoare partitioning. The slice is partitioned in place.
func orderStatistic(values []record.Value, k int) record.Value {
	lo, hi := 0, len(values)-1
	for lo < hi {
		j := hoarePartition(values, lo, hi)
		if k <= j {
			hi = j
		} else {
			lo = j + 1
		}
	}
	return values[k]
}

// hoarePartition partitions values[lo:hi+1] around a pivot and returns an
// index j such that everything at or below j is <= pivot and everything
// above is >= pivot.
func hoarePartition(values []record.Value, lo, hi int) int {
	pivot := values[(lo+hi)/2]
	i, j := lo-1, hi+1
	for {
		for {
			i++
			if record.Compare(values[i], pivot) >= 0 {
				break
			}
		}
		for {
			j--
			if record.Compare(values[j], pivot) <= 0 {
				break
			}
		}
		if i >= j {
			return j
		}
		values[i], values[j] = values[j], values[i]
	}
}

// Scalar helpers

// AbsFunc returns the absolute value of a number
type AbsFunc struct{}

func (f *AbsFunc) Name() string  { return "abs" }
func (f *AbsFunc) MinArity() int { return 1 }
func (f *AbsFunc) MaxArity() int { return 1 }
func (f *AbsFunc) Evaluate(args []record.Value) (record.Value, error) {
	switch args[0].Kind() {
	case record.KindInt:
		i := args[0].Int()
		if i < 0 {
			i = -i
		}
		return record.NewInt(i), nil
	case record.KindFloat:
		return record.NewFloat(math.Abs(args[0].Float())), nil
	default:
		return record.Value{}, fmt.Errorf("abs: expected a number, got %s", kindName(args[0].Kind()))
	}
}

// RoundFunc rounds a number to the nearest integer
type RoundFunc struct{}

func (f *RoundFunc) Name() string  { return "round" }
func (f *RoundFunc) MinArity() int { return 1 }
func (f *RoundFunc) MaxArity() int { return 1 }
func (f *RoundFunc) Evaluate(args []record.Value) (record.Value, error) {
	n, ok := args[0].AsFloat()
	if !ok {
		return record.Value{}, fmt.Errorf("round: expected a number, got %s", kindName(args[0].Kind()))
	}
	return record.NewInt(int64(math.Round(n))), nil
}

// StrFunc converts a value to its string form
type StrFunc struct{}

func (f *StrFunc) Name() string  { return "str" }
func (f *StrFunc) MinArity() int { return 1 }
func (f *StrFunc) MaxArity() int { return 1 }
func (f *StrFunc) Evaluate(args []record.Value) (record.Value, error) {
	return record.NewStr(args[0].String()), nil
}

// NumFunc converts a value to a number
type NumFunc struct{}

func (f *NumFunc) Name() string  { return "num" }
func (f *NumFunc) MinArity() int { return 1 }
func (f *NumFunc) MaxArity() int { return 1 }
func (f *NumFunc) Evaluate(args []record.Value) (record.Value, error) {
	v := args[0]
	switch v.Kind() {
	case record.KindInt, record.KindFloat:
		return v, nil
	case record.KindStr:
		s := strings.TrimSpace(v.Str())
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return record.NewInt(i), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return record.NewFloat(f), nil
		}
		return record.Value{}, fmt.Errorf("num: cannot convert %q to a number", v.Str())
	case record.KindBool:
		if v.Bool() {
			return record.NewInt(1), nil
		}
		return record.NewInt(0), nil
	default:
		return record.Value{}, fmt.Errorf("num: cannot convert %s to a number", kindName(v.Kind()))
	}
}

// UpperFunc converts a string to uppercase
type UpperFunc struct{}

func (f *UpperFunc) Name() string  { return "upper" }
func (f *UpperFunc) MinArity() int { return 1 }
func (f *UpperFunc) MaxArity() int { return 1 }
func (f *UpperFunc) Evaluate(args []record.Value) (record.Value, error) {
	if args[0].Kind() != record.KindStr {
		return record.Value{}, fmt.Errorf("upper: expected a string, got %s", kindName(args[0].Kind()))
	}
	return record.NewStr(strings.ToUpper(args[0].Str())), nil
}

// LowerFunc converts a string to lowercase
type LowerFunc struct{}

func (f *LowerFunc) Name() string  { return "lower" }
func (f *LowerFunc) MinArity() int { return 1 }
func (f *LowerFunc) MaxArity() int { return 1 }
func (f *LowerFunc) Evaluate(args []record.Value) (record.Value, error) {
	if args[0].Kind() != record.KindStr {
		return record.Value{}, fmt.Errorf("lower: expected a string, got %s", kindName(args[0].Kind()))
	}
	return record.NewStr(strings.ToLower(args[0].Str())), nil
}

// TrimFunc trims whitespace from both ends of a string
type TrimFunc struct{}

func (f *TrimFunc) Name() string  { return "trim" }
func (f *TrimFunc) MinArity() int { return 1 }
func (f *TrimFunc) MaxArity() int { return 1 }
func (f *TrimFunc) Evaluate(args []record.Value) (record.Value, error) {
	if args[0].Kind() != record.KindStr {
		return record.Value{}, fmt.Errorf("trim: expected a string, got %s", kindName(args[0].Kind()))
	}
	return record.NewStr(strings.TrimSpace(args[0].Str())), nil
}

// UUIDFunc generates a random UUID string
type UUIDFunc struct{}

func (f *UUIDFunc) Name() string  { return "uuid" }
func (f *UUIDFunc) MinArity() int { return 0 }
func (f *UUIDFunc) MaxArity() int { return 0 }
func (f *UUIDFunc) Evaluate(args []record.Value) (record.Value, error) {
	return record.NewStr(uuid.NewString()), nil
}
