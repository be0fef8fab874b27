package expr

import (
	"fmt"
	"math"

	"recq/record"
)

// Env is the evaluation environment: the per-record variable bindings plus
// the function registry. Functions are resolved through the registry
// passed here rather than any ambient global state.
type Env struct {
	Vars  record.Context
	Funcs *Registry
}

// Expr is a compiled expression node.
type Expr interface {
	Eval(env *Env) (record.Value, error)
}

// LiteralExpr is a literal value (number, string, boolean, null)
type LiteralExpr struct {
	Value record.Value
}

func (e *LiteralExpr) Eval(env *Env) (record.Value, error) {
	return e.Value, nil
}

// NameExpr references a variable from the context
type NameExpr struct {
	Name string
}

func (e *NameExpr) Eval(env *Env) (record.Value, error) {
	v, ok := env.Vars[e.Name]
	if !ok {
		return record.Value{}, fmt.Errorf("name %q is not defined", e.Name)
	}
	return v, nil
}

// UnaryExpr is a unary operation (negation or not)
type UnaryExpr struct {
	Operator TokenType
	Operand  Expr
}

func (e *UnaryExpr) Eval(env *Env) (record.Value, error) {
	v, err := e.Operand.Eval(env)
	if err != nil {
		return record.Value{}, err
	}

	switch e.Operator {
	case TokenMinus:
		switch v.Kind() {
		case record.KindInt:
			return record.NewInt(-v.Int()), nil
		case record.KindFloat:
			return record.NewFloat(-v.Float()), nil
		default:
			return record.Value{}, fmt.Errorf("cannot negate %s", v.String())
		}
	case TokenNot:
		return record.NewBool(!v.Truthy()), nil
	default:
		return record.Value{}, fmt.Errorf("unsupported unary operator: %v", e.Operator)
	}
}

// BinaryExpr is an arithmetic operation (+ - * / // %)
type BinaryExpr struct {
	Left     Expr
	Operator TokenType
	Right    Expr
}

func (e *BinaryExpr) Eval(env *Env) (record.Value, error) {
	left, err := e.Left.Eval(env)
	if err != nil {
		return record.Value{}, err
	}
	right, err := e.Right.Eval(env)
	if err != nil {
		return record.Value{}, err
	}
	return arith(left, e.Operator, right)
}

// arith applies an arithmetic operator. Integer operands stay integral
// except for true division, which always yields a float. Plus also
// concatenates strings, tuples and lists.
func arith(left record.Value, op TokenType, right record.Value) (record.Value, error) {
	if op == TokenPlus {
		if left.Kind() == record.KindStr && right.Kind() == record.KindStr {
			return record.NewStr(left.Str() + right.Str()), nil
		}
		if left.Kind() == record.KindTuple && right.Kind() == record.KindTuple {
			return record.NewTuple(concatSeq(left.Seq(), right.Seq())), nil
		}
		if left.Kind() == record.KindList && right.Kind() == record.KindList {
			return record.NewList(concatSeq(left.Seq(), right.Seq())), nil
		}
	}

	if left.Kind() == record.KindInt && right.Kind() == record.KindInt {
		l, r := left.Int(), right.Int()
		switch op {
		case TokenPlus:
			return record.NewInt(l + r), nil
		case TokenMinus:
			return record.NewInt(l - r), nil
		case TokenStar:
			return record.NewInt(l * r), nil
		case TokenSlash:
			if r == 0 {
				return record.Value{}, fmt.Errorf("division by zero")
			}
			return record.NewFloat(float64(l) / float64(r)), nil
		case TokenFloorDiv:
			if r == 0 {
				return record.Value{}, fmt.Errorf("division by zero")
			}
			q := l / r
			if (l%r != 0) && ((l < 0) != (r < 0)) {
				q-- // floor toward negative infinity
			}
			return record.NewInt(q), nil
		case TokenPercent:
			if r == 0 {
				return record.Value{}, fmt.Errorf("division by zero")
			}
			m := l % r
			if m != 0 && ((l < 0) != (r < 0)) {
				m += r
			}
			return record.NewInt(m), nil
		}
	}

	lf, lok := left.AsFloat()
	rf, rok := right.AsFloat()
	if !lok || !rok {
		return record.Value{}, fmt.Errorf("unsupported operand types for %s: %s and %s",
			opSymbol(op), kindName(left.Kind()), kindName(right.Kind()))
	}

	switch op {
	case TokenPlus:
		return record.NewFloat(lf + rf), nil
	case TokenMinus:
		return record.NewFloat(lf - rf), nil
	case TokenStar:
		return record.NewFloat(lf * rf), nil
	case TokenSlash:
		if rf == 0 {
			return record.Value{}, fmt.Errorf("division by zero")
		}
		return record.NewFloat(lf / rf), nil
	case TokenFloorDiv:
		if rf == 0 {
			return record.Value{}, fmt.Errorf("division by zero")
		}
		return record.NewFloat(math.Floor(lf / rf)), nil
	case TokenPercent:
		if rf == 0 {
			return record.Value{}, fmt.Errorf("division by zero")
		}
		m := math.Mod(lf, rf)
		if m != 0 && ((lf < 0) != (rf < 0)) {
			m += rf
		}
		return record.NewFloat(m), nil
	default:
		return record.Value{}, fmt.Errorf("unsupported binary operator: %v", op)
	}
}

func concatSeq(a, b []record.Value) []record.Value {
	out := make([]record.Value, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

// CompareExpr is a comparison (== != < > <= >= in)
type CompareExpr struct {
	Left     Expr
	Operator TokenType
	Right    Expr
	Negate   bool // "not in"
}

func (e *CompareExpr) Eval(env *Env) (record.Value, error) {
	left, err := e.Left.Eval(env)
	if err != nil {
		return record.Value{}, err
	}
	right, err := e.Right.Eval(env)
	if err != nil {
		return record.Value{}, err
	}

	var result bool
	switch e.Operator {
	case TokenEqual:
		result = left.Equal(right)
	case TokenNotEqual:
		result = !left.Equal(right)
	case TokenLess, TokenGreater, TokenLessEq, TokenGreaterEq:
		if !comparable(left, right) {
			return record.Value{}, fmt.Errorf("cannot compare %s with %s",
				kindName(left.Kind()), kindName(right.Kind()))
		}
		c := record.Compare(left, right)
		switch e.Operator {
		case TokenLess:
			result = c < 0
		case TokenGreater:
			result = c > 0
		case TokenLessEq:
			result = c <= 0
		case TokenGreaterEq:
			result = c >= 0
		}
	case TokenIn:
		result, err = contains(right, left)
		if err != nil {
			return record.Value{}, err
		}
	default:
		return record.Value{}, fmt.Errorf("unsupported comparison operator: %v", e.Operator)
	}

	if e.Negate {
		result = !result
	}
	return record.NewBool(result), nil
}

// comparable reports whether an ordering comparison between the two values
// is meaningful.
func comparable(a, b record.Value) bool {
	if _, ok := a.AsFloat(); ok {
		_, bok := b.AsFloat()
		return bok
	}
	if a.Kind() == b.Kind() {
		switch a.Kind() {
		case record.KindStr, record.KindBool, record.KindTuple, record.KindList:
			return true
		}
	}
	return false
}

// contains implements the "in" operator for sequences, strings and objects.
func contains(container, item record.Value) (bool, error) {
	switch container.Kind() {
	case record.KindTuple, record.KindList:
		for _, e := range container.Seq() {
			if e.Equal(item) {
				return true, nil
			}
		}
		return false, nil
	case record.KindStr:
		if item.Kind() != record.KindStr {
			return false, fmt.Errorf("'in <string>' requires a string operand, got %s", kindName(item.Kind()))
		}
		return containsSubstring(container.Str(), item.Str()), nil
	case record.KindObject:
		if item.Kind() != record.KindStr {
			return false, fmt.Errorf("'in <object>' requires a string key, got %s", kindName(item.Kind()))
		}
		_, ok := container.Obj().Get(item.Str())
		return ok, nil
	default:
		return false, fmt.Errorf("'in' requires a sequence, string or object, got %s", kindName(container.Kind()))
	}
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

// BoolExpr is a short-circuit boolean operation (and/or). Like the
// comparison-free form in most dynamic languages it yields the deciding
// operand, not a coerced boolean.
type BoolExpr struct {
	Left     Expr
	Operator TokenType
	Right    Expr
}

func (e *BoolExpr) Eval(env *Env) (record.Value, error) {
	left, err := e.Left.Eval(env)
	if err != nil {
		return record.Value{}, err
	}

	switch e.Operator {
	case TokenAnd:
		if !left.Truthy() {
			return left, nil
		}
		return e.Right.Eval(env)
	case TokenOr:
		if left.Truthy() {
			return left, nil
		}
		return e.Right.Eval(env)
	default:
		return record.Value{}, fmt.Errorf("unsupported boolean operator: %v", e.Operator)
	}
}

// CondExpr is a conditional guard: "value if test else alt". The parser
// guarantees Alt is never nil; a guard without an explicit else gets an
// implicit alternative producing an empty list, so filtered-out records
// contribute nothing.
type CondExpr struct {
	Value Expr
	Test  Expr
	Alt   Expr
}

func (e *CondExpr) Eval(env *Env) (record.Value, error) {
	test, err := e.Test.Eval(env)
	if err != nil {
		return record.Value{}, err
	}
	if test.Truthy() {
		return e.Value.Eval(env)
	}
	return e.Alt.Eval(env)
}

// TupleExpr is a tuple literal: one output record with positional columns
type TupleExpr struct {
	Elems []Expr
}

func (e *TupleExpr) Eval(env *Env) (record.Value, error) {
	elems := make([]record.Value, len(e.Elems))
	for i, el := range e.Elems {
		v, err := el.Eval(env)
		if err != nil {
			return record.Value{}, err
		}
		elems[i] = v
	}
	return record.NewTuple(elems), nil
}

// ListExpr is a list literal: a flattenable sequence of output records
type ListExpr struct {
	Elems []Expr
}

func (e *ListExpr) Eval(env *Env) (record.Value, error) {
	elems := make([]record.Value, len(e.Elems))
	for i, el := range e.Elems {
		v, err := el.Eval(env)
		if err != nil {
			return record.Value{}, err
		}
		elems[i] = v
	}
	return record.NewList(elems), nil
}

// AttrExpr is attribute-style field access: obj.field
type AttrExpr struct {
	Target Expr
	Name   string
}

func (e *AttrExpr) Eval(env *Env) (record.Value, error) {
	target, err := e.Target.Eval(env)
	if err != nil {
		return record.Value{}, err
	}
	if target.Kind() != record.KindObject {
		return record.Value{}, fmt.Errorf("cannot access field %q on %s", e.Name, kindName(target.Kind()))
	}
	v, ok := target.Obj().Get(e.Name)
	if !ok {
		return record.Value{}, fmt.Errorf("field %q not found", e.Name)
	}
	return v, nil
}

// IndexExpr is subscript access: sequences and strings by integer
// (negative indices count from the end), objects by string key.
type IndexExpr struct {
	Target Expr
	Index  Expr
}

func (e *IndexExpr) Eval(env *Env) (record.Value, error) {
	target, err := e.Target.Eval(env)
	if err != nil {
		return record.Value{}, err
	}
	idx, err := e.Index.Eval(env)
	if err != nil {
		return record.Value{}, err
	}

	switch target.Kind() {
	case record.KindTuple, record.KindList:
		i, err := seqIndex(idx, len(target.Seq()))
		if err != nil {
			return record.Value{}, err
		}
		return target.Seq()[i], nil
	case record.KindStr:
		i, err := seqIndex(idx, len(target.Str()))
		if err != nil {
			return record.Value{}, err
		}
		return record.NewStr(target.Str()[i : i+1]), nil
	case record.KindObject:
		if idx.Kind() != record.KindStr {
			return record.Value{}, fmt.Errorf("object index must be a string, got %s", kindName(idx.Kind()))
		}
		v, ok := target.Obj().Get(idx.Str())
		if !ok {
			return record.Value{}, fmt.Errorf("key %q not found", idx.Str())
		}
		return v, nil
	default:
		return record.Value{}, fmt.Errorf("%s is not indexable", kindName(target.Kind()))
	}
}

func seqIndex(idx record.Value, length int) (int, error) {
	if idx.Kind() != record.KindInt {
		return 0, fmt.Errorf("index must be an integer, got %s", kindName(idx.Kind()))
	}
	i := int(idx.Int())
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, fmt.Errorf("index %d out of range (length %d)", idx.Int(), length)
	}
	return i, nil
}

// CallExpr invokes a registry function by name
type CallExpr struct {
	Name string
	Args []Expr
}

func (e *CallExpr) Eval(env *Env) (record.Value, error) {
	fn, exists := env.Funcs.Get(e.Name)
	if !exists {
		return record.Value{}, fmt.Errorf("unknown function: %s", e.Name)
	}

	args := make([]record.Value, len(e.Args))
	for i, arg := range e.Args {
		v, err := arg.Eval(env)
		if err != nil {
			return record.Value{}, fmt.Errorf("function %s: argument %d: %w", e.Name, i+1, err)
		}
		args[i] = v
	}

	// Check arity
	minArity := fn.MinArity()
	maxArity := fn.MaxArity()
	argCount := len(args)

	if minArity >= 0 && argCount < minArity {
		return record.Value{}, fmt.Errorf("function %s: expected at least %d arguments, got %d", e.Name, minArity, argCount)
	}
	if maxArity >= 0 && argCount > maxArity {
		return record.Value{}, fmt.Errorf("function %s: expected at most %d arguments, got %d", e.Name, maxArity, argCount)
	}

	return fn.Evaluate(args)
}

// kindName returns a human-readable name for a value kind in error messages.
func kindName(k record.Kind) string {
	switch k {
	case record.KindNull:
		return "null"
	case record.KindBool:
		return "bool"
	case record.KindInt:
		return "int"
	case record.KindFloat:
		return "float"
	case record.KindStr:
		return "string"
	case record.KindTuple:
		return "tuple"
	case record.KindList:
		return "list"
	case record.KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// opSymbol returns the source form of an operator for error messages.
func opSymbol(op TokenType) string {
	switch op {
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	case TokenFloorDiv:
		return "//"
	case TokenPercent:
		return "%"
	default:
		return "?"
	}
}
