package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// IDField is the reserved field holding the identifier assigned by the store.
const IDField = "_id"

// --------------------------------------------------------------------------
// Record
// --------------------------------------------------------------------------

// Record is an ordered mapping from field name to Value.
// The zero Record is empty and ready to use. A Record is not safe for
// concurrent mutation.
type Record struct {
	keys []string
	vals map[string]Value
}

// Field is a name / plain Go value pair used to build records at call sites.
// The value is converted with ValueOf when the record is created.
type Field struct {
	Name  string
	Value any
}

// F is shorthand for Field{Name: name, Value: value}.
func F(name string, value any) Field {
	return Field{Name: name, Value: value}
}

// New creates a record holding the given values in order.
func New(fields ...Entry) *Record {
	r := &Record{}
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Entry is a name / Value pair as stored in a record.
type Entry struct {
	Name  string
	Value Value
}

// FromFields converts plain fields into a record. Duplicate names and
// values outside the structured-value domain are reported as errors.
func FromFields(fields ...Field) (*Record, error) {
	r := &Record{}
	for _, f := range fields {
		if _, exists := r.vals[f.Name]; exists {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		v, err := ValueOf(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		r.Set(f.Name, v)
	}
	return r, nil
}

// Set stores v under name. A new name is appended at the end, an existing
// name keeps its position.
func (r *Record) Set(name string, v Value) {
	if r.vals == nil {
		r.vals = make(map[string]Value)
	}
	if _, exists := r.vals[name]; !exists {
		r.keys = append(r.keys, name)
	}
	r.vals[name] = v
}

// Get returns the value stored under name.
func (r *Record) Get(name string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	v, ok := r.vals[name]
	return v, ok
}

// Has reports whether the record contains name.
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Delete removes name from the record. It reports whether the field existed.
func (r *Record) Delete(name string) bool {
	if _, ok := r.vals[name]; !ok {
		return false
	}
	delete(r.vals, name)
	for i, k := range r.keys {
		if k == name {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Range calls fn for every field in order until fn returns false.
func (r *Record) Range(fn func(name string, v Value) bool) {
	if r == nil {
		return
	}
	for _, k := range r.keys {
		if !fn(k, r.vals[k]) {
			return
		}
	}
}

// ID returns the identifier assigned by the store, or "" if the record has none.
func (r *Record) ID() string {
	v, ok := r.Get(IDField)
	if !ok {
		return ""
	}
	s, _ := v.AsString()
	return s
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{
		keys: make([]string, len(r.keys)),
		vals: make(map[string]Value, len(r.vals)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.vals {
		c.vals[k] = v.Clone()
	}
	return c
}

// Equal reports whether both records hold equal values under the same names.
// Field order is not compared.
func (r *Record) Equal(other *Record) bool {
	if r.Len() != other.Len() {
		return false
	}
	for _, k := range r.Keys() {
		ov, ok := other.Get(k)
		if !ok {
			return false
		}
		if v, _ := r.Get(k); !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Map converts the record into a plain map.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, r.Len())
	r.Range(func(name string, v Value) bool {
		out[name] = v.Interface()
		return true
	})
	return out
}

// String returns the JSON text of r.
func (r *Record) String() string {
	b, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid record: %v>", err)
	}
	return string(b)
}

// --------------------------------------------------------------------------
// JSON
// --------------------------------------------------------------------------

// MarshalJSON implements json.Marshaler. Fields are written in order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if err := r.vals[k].encode(buf); err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Field order is preserved.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record must be a json object, got %v", tok)
	}
	decoded, err := decodeObjectBody(dec)
	if err != nil {
		return err
	}
	if err := expectEOF(dec); err != nil {
		return err
	}
	*r = *decoded
	return nil
}
