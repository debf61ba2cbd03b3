package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Value Kinds
// --------------------------------------------------------------------------

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	KindNull   Kind = iota // JSON null (the zero Value)
	KindBool               // JSON true / false
	KindNumber             // JSON number, stored as float64
	KindString             // JSON string
	KindArray              // JSON array of values
	KindObject             // JSON object, stored as an ordered Record
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Value
// --------------------------------------------------------------------------

// Value is an immutable tagged union over the structured-value domain
// (null, bool, number, string, array, object). The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	a    []Value
	o    *Record
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array returns an array value holding copies of vs.
func Array(vs ...Value) Value {
	a := make([]Value, len(vs))
	for i := range vs {
		a[i] = vs[i].Clone()
	}
	return Value{kind: KindArray, a: a}
}

// Object returns an object value holding a deep copy of r.
func Object(r *Record) Value {
	if r == nil {
		return Value{kind: KindObject, o: New()}
	}
	return Value{kind: KindObject, o: r.Clone()}
}

// ValueOf converts a plain Go value into a Value.
// Supported are nil, bool, all integer widths, finite floats, string, json.Number,
// []any, []string, map[string]any, Value, Record and *Record. Maps are converted
// with their keys in sorted order since Go maps carry no order of their own.
// Integers beyond +/-MaxExactInt and everything else are rejected with an error.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t.Clone(), nil
	case *Record:
		if t == nil {
			return Null(), nil
		}
		return Object(t), nil
	case Record:
		return Object(&t), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return exactInt(int64(t))
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return exactInt(t)
	case uint:
		return exactUint(uint64(t))
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return exactUint(t)
	case float32:
		return finiteNumber(float64(t))
	case float64:
		return finiteNumber(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return exactInt(i)
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return finiteNumber(f)
	case []string:
		a := make([]Value, len(t))
		for i, s := range t {
			a[i] = String(s)
		}
		return Value{kind: KindArray, a: a}, nil
	case []any:
		a := make([]Value, len(t))
		for i, e := range t {
			ev, err := ValueOf(e)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			a[i] = ev
		}
		return Value{kind: KindArray, a: a}, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		r := New()
		for _, k := range keys {
			ev, err := ValueOf(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			r.Set(k, ev)
		}
		return Value{kind: KindObject, o: r}, nil
	default:
		return Value{}, fmt.Errorf("type %s is not representable as a record value", reflect.TypeOf(v))
	}
}

// MustValueOf is like ValueOf but panics on error. Intended for literals in tests.
func MustValueOf(v any) Value {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return val
}

// MaxExactInt is the largest integer magnitude a number holds without rounding.
const MaxExactInt = 1 << 53

func exactInt(i int64) (Value, error) {
	if i > MaxExactInt || i < -MaxExactInt {
		return Value{}, fmt.Errorf("integer %d exceeds +/-2^53 and can't be stored exactly", i)
	}
	return Number(float64(i)), nil
}

func exactUint(u uint64) (Value, error) {
	if u > MaxExactInt {
		return Value{}, fmt.Errorf("integer %d exceeds 2^53 and can't be stored exactly", u)
	}
	return Number(float64(u)), nil
}

func finiteNumber(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("number %v is not finite", f)
	}
	return Number(f), nil
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean if v is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the number if v is a number.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string if v is a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsArray returns a copy of the elements if v is an array.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	a := make([]Value, len(v.a))
	for i := range v.a {
		a[i] = v.a[i].Clone()
	}
	return a, true
}

// AsObject returns a copy of the record if v is an object.
func (v Value) AsObject() (*Record, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.o.Clone(), true
}

// Interface converts v back into plain Go values (nil, bool, float64, string,
// []any, map[string]any).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.a))
		for i := range v.a {
			out[i] = v.a[i].Interface()
		}
		return out
	case KindObject:
		return v.o.Map()
	default:
		return nil
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		a := make([]Value, len(v.a))
		for i := range v.a {
			a[i] = v.a[i].Clone()
		}
		return Value{kind: KindArray, a: a}
	case KindObject:
		return Value{kind: KindObject, o: v.o.Clone()}
	default:
		return v
	}
}

// Equal reports deep structural equality. Object fields are compared
// independent of their order.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n
	case KindString:
		return v.s == other.s
	case KindArray:
		if len(v.a) != len(other.a) {
			return false
		}
		for i := range v.a {
			if !v.a[i].Equal(other.a[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.o.Equal(other.o)
	default:
		return false
	}
}

// Key returns a canonical string for v that is equal for two values
// exactly when Equal reports true. It is used as the primary-key index key.
func (v Value) Key() string {
	var sb strings.Builder
	v.writeKey(&sb)
	return sb.String()
}

func (v Value) writeKey(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		if v.b {
			sb.WriteString("b:1")
		} else {
			sb.WriteString("b:0")
		}
	case KindNumber:
		n := v.n
		if n == 0 {
			n = 0 // -0 and +0 compare equal
		}
		sb.WriteString("n:")
		sb.WriteString(strconv.FormatUint(math.Float64bits(n), 16))
	case KindString:
		sb.WriteString("s:")
		sb.WriteString(strconv.Quote(v.s))
	case KindArray:
		sb.WriteString("a[")
		for i := range v.a {
			if i > 0 {
				sb.WriteByte(',')
			}
			v.a[i].writeKey(sb)
		}
		sb.WriteByte(']')
	case KindObject:
		keys := v.o.Keys()
		sort.Strings(keys)
		sb.WriteString("o{")
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteByte(':')
			fv, _ := v.o.Get(k)
			fv.writeKey(sb)
		}
		sb.WriteByte('}')
	}
}

// String returns the JSON text of v.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid value: %v>", err)
	}
	return string(b)
}

// --------------------------------------------------------------------------
// JSON
// --------------------------------------------------------------------------

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return fmt.Errorf("number %v is not finite", v.n)
		}
		buf.WriteString(strconv.FormatFloat(v.n, 'g', -1, 64))
	case KindString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i := range v.a {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := v.a[i].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		return v.o.encode(buf)
	default:
		return fmt.Errorf("unknown value kind %d", v.kind)
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Object field order is preserved.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	val, err := decodeValue(dec)
	if err != nil {
		return err
	}
	if err := expectEOF(dec); err != nil {
		return err
	}
	*v = val
	return nil
}

// expectEOF fails unless the decoder has no tokens left.
func expectEOF(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unexpected data after value: %w", err)
	}
	return fmt.Errorf("unexpected data after value: %v", tok)
}

// decodeValue reads exactly one value from the token stream.
func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeFromToken(dec, tok)
}

func decodeFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			a := make([]Value, 0)
			for dec.More() {
				ev, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				a = append(a, ev)
			}
			if _, err := dec.Token(); err != nil { // ']'
				return Value{}, err
			}
			return Value{kind: KindArray, a: a}, nil
		case '{':
			r, err := decodeObjectBody(dec)
			if err != nil {
				return Value{}, err
			}
			return Value{kind: KindObject, o: r}, nil
		}
	}
	return Value{}, fmt.Errorf("unexpected json token %v", tok)
}

// decodeObjectBody reads the fields of an object whose '{' was already consumed.
func decodeObjectBody(dec *json.Decoder) (*Record, error) {
	r := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		fv, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		r.Set(name, fv)
	}
	if _, err := dec.Token(); err != nil { // '}'
		return nil, err
	}
	return r, nil
}
