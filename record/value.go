// Package record provides the data model and input handling for the query
// pipeline.
//
// A Value is a typed representation of one parsed datum: a scalar, a tuple
// (one fixed-shape output record), a list (a flattenable sequence), or an
// object (an ordered name-to-value mapping). Records enter the pipeline as
// Values and leave it as Values; the expression language and the stream
// operators never see raw text.
package record

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/segmentio/encoding/json"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindTuple
	KindList
	KindObject
)

// Value is a tagged union over parsed data. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	seq  []Value
	obj  *Object
}

// Null returns the null Value.
func Null() Value { return Value{kind: KindNull} }

// NewBool returns a boolean Value.
func NewBool(b bool) Value { return Value{kind: KindBool, b: b} }

// NewInt returns an integer Value.
func NewInt(i int64) Value { return Value{kind: KindInt, i: i} }

// NewFloat returns a floating-point Value.
func NewFloat(f float64) Value { return Value{kind: KindFloat, f: f} }

// NewStr returns a string Value.
func NewStr(s string) Value { return Value{kind: KindStr, s: s} }

// NewTuple returns a tuple Value. A tuple is a single output record with
// positional columns; it is never flattened by the map stage.
func NewTuple(elems []Value) Value { return Value{kind: KindTuple, seq: elems} }

// NewList returns a list Value. A list result from the map stage is
// flattened into zero or more output records.
func NewList(elems []Value) Value { return Value{kind: KindList, seq: elems} }

// NewObjectValue wraps an Object in a Value.
func NewObjectValue(o *Object) Value { return Value{kind: KindObject, obj: o} }

// Kind returns the variant of the Value.
func (v Value) Kind() Kind { return v.kind }

// Bool returns the boolean payload (false unless KindBool).
func (v Value) Bool() bool { return v.b }

// Int returns the integer payload (0 unless KindInt).
func (v Value) Int() int64 { return v.i }

// Float returns the float payload (0 unless KindFloat).
func (v Value) Float() float64 { return v.f }

// Str returns the string payload ("" unless KindStr).
func (v Value) Str() string { return v.s }

// Seq returns the elements of a tuple or list (nil otherwise).
func (v Value) Seq() []Value { return v.seq }

// Obj returns the object payload (nil unless KindObject).
func (v Value) Obj() *Object { return v.obj }

// IsSeq reports whether the Value is a tuple or a list.
func (v Value) IsSeq() bool { return v.kind == KindTuple || v.kind == KindList }

// AsFloat converts numeric Values to float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Truthy reports the truth value used by boolean operators and guards:
// null, false, zero, the empty string and empty sequences are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindStr:
		return v.s != ""
	case KindTuple, KindList:
		return len(v.seq) > 0
	case KindObject:
		return v.obj.Len() > 0
	default:
		return false
	}
}

// Equal reports full value equality. Integers compare equal to floats with
// the same numeric value; tuples and lists compare element-wise.
func (v Value) Equal(other Value) bool {
	if vf, ok := v.AsFloat(); ok {
		of, otherOk := other.AsFloat()
		return otherOk && vf == of
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindStr:
		return v.s == other.s
	case KindTuple, KindList:
		if len(v.seq) != len(other.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(other.seq[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if v.obj.Len() != other.obj.Len() {
			return false
		}
		for _, k := range v.obj.Keys() {
			ov, ok := other.obj.Get(k)
			if !ok {
				return false
			}
			mv, _ := v.obj.Get(k)
			if !mv.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Key returns a canonical string for the Value, used to bucket values in
// join tables, group maps and distinct sets. Keys agree with Equal: values
// that compare equal produce the same key.
func (v Value) Key() string {
	var b strings.Builder
	v.writeKey(&b)
	return b.String()
}

func (v Value) writeKey(b *strings.Builder) {
	switch v.kind {
	case KindNull:
		b.WriteString("n")
	case KindBool:
		fmt.Fprintf(b, "b:%t", v.b)
	case KindInt, KindFloat:
		f, _ := v.AsFloat()
		b.WriteString("num:")
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case KindStr:
		// Length prefix keeps arbitrary payload bytes from mimicking the
		// key structure
		fmt.Fprintf(b, "s%d:", len(v.s))
		b.WriteString(v.s)
	case KindTuple, KindList:
		b.WriteString("q:[")
		for i, e := range v.seq {
			if i > 0 {
				b.WriteString(",")
			}
			e.writeKey(b)
		}
		b.WriteString("]")
	case KindObject:
		b.WriteString("o:{")
		for i, k := range v.obj.Keys() {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(b, "k%d:", len(k))
			b.WriteString(k)
			b.WriteString(":")
			e, _ := v.obj.Get(k)
			e.writeKey(b)
		}
		b.WriteString("}")
	}
}

// Compare orders two Values: -1 if v < other, 0 if equal, +1 if v > other.
// Numbers compare numerically across int/float, strings lexically, booleans
// with false < true, tuples and lists element-wise. Null sorts before
// everything; incomparable kinds are treated as equal, matching the sort
// behavior for mixed-type columns.
func Compare(v, other Value) int {
	if v.kind == KindNull && other.kind == KindNull {
		return 0
	}
	if v.kind == KindNull {
		return -1
	}
	if other.kind == KindNull {
		return 1
	}

	if vf, ok := v.AsFloat(); ok {
		if of, otherOk := other.AsFloat(); otherOk {
			switch {
			case vf < of:
				return -1
			case vf > of:
				return 1
			default:
				return 0
			}
		}
	}

	if v.kind == KindStr && other.kind == KindStr {
		return strings.Compare(v.s, other.s)
	}

	if v.kind == KindBool && other.kind == KindBool {
		switch {
		case !v.b && other.b:
			return -1
		case v.b && !other.b:
			return 1
		default:
			return 0
		}
	}

	if v.IsSeq() && other.IsSeq() {
		for i := 0; i < len(v.seq) && i < len(other.seq); i++ {
			if c := Compare(v.seq[i], other.seq[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(v.seq) < len(other.seq):
			return -1
		case len(v.seq) > len(other.seq):
			return 1
		default:
			return 0
		}
	}

	return 0
}

// String renders the Value in its plain output form: scalars print bare,
// tuples parenthesized, lists bracketed, objects as compact JSON.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindStr:
		return v.s
	case KindTuple:
		parts := make([]string, len(v.seq))
		for i, e := range v.seq {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindList:
		parts := make([]string, len(v.seq))
		for i, e := range v.seq {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		data, err := v.MarshalJSON()
		if err != nil {
			return "{}"
		}
		return string(data)
	default:
		return ""
	}
}

// MarshalJSON serializes the Value, preserving object key insertion order.
// Tuples and lists both serialize as JSON arrays.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.appendJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) appendJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		data, err := json.Marshal(v.f)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindStr:
		data, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindTuple, KindList:
		buf.WriteByte('[')
		for i, e := range v.seq {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.obj.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			data, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(data)
			buf.WriteByte(':')
			e, _ := v.obj.Get(k)
			if err := e.appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// Object is a mapping from string keys to Values that remembers insertion
// order. JSON objects decode into Objects so output preserves field order.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject creates an empty Object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Set stores a value under key. Setting an existing key updates the value
// in place without changing its position.
func (o *Object) Set(key string, v Value) {
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Get retrieves the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string { return o.keys }

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

// Clone returns a shallow copy of the Object.
func (o *Object) Clone() *Object {
	c := &Object{
		keys: make([]string, len(o.keys)),
		vals: make(map[string]Value, len(o.vals)),
	}
	copy(c.keys, o.keys)
	for k, v := range o.vals {
		c.vals[k] = v
	}
	return c
}

// Context is the name-to-value environment a query expression is evaluated
// against. It always binds the whole record under the reserved alias; JSON
// records additionally bind each sanitized top-level key.
type Context map[string]Value

// Alias is the reserved name bound to the whole current record.
const Alias = "_"

// BuildContext builds the evaluation context for a record. Object records
// expose each top-level key under its sanitized name alongside the alias;
// all other records are reachable only through the alias.
func BuildContext(rec Value) Context {
	ctx := Context{Alias: rec}
	if rec.Kind() == KindObject {
		for _, k := range rec.Obj().Keys() {
			v, _ := rec.Obj().Get(k)
			ctx[SanitizeKey(k)] = v
		}
	}
	return ctx
}

// SanitizeKey converts a record key into an identifier usable in query
// expressions: runs of characters outside [0-9A-Za-z] collapse into a
// single underscore, and a leading digit is prefixed with one.
func SanitizeKey(key string) string {
	var b strings.Builder
	placeholder := false
	for _, r := range key {
		alnum := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if alnum {
			b.WriteRune(r)
			placeholder = false
		} else if !placeholder {
			b.WriteByte('_')
			placeholder = true
		}
	}
	s := b.String()
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return s
}
