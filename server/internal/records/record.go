package records

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// TimestampColumn is the column that is always kept as text.
const TimestampColumn = "timestamp"

// Kind tags the variant held by a Value.
type Kind uint8

const (
	// KindText marks a Value holding the cell's text unchanged.
	KindText Kind = iota
	// KindNumber marks a Value holding a finite float64.
	KindNumber
)

// Value is one cell: either Text or a finite Number.
type Value struct {
	kind Kind
	text string
	num  float64
}

// Text returns a text Value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// Float returns the numeric value and whether v is a Number.
func (v Value) Float() (float64, bool) { return v.num, v.kind == KindNumber }

// String returns the text of a Text value, or the shortest decimal form of a Number.
func (v Value) String() string {
	if v.kind == KindNumber {
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	}
	return v.text
}

// MarshalJSON encodes Text as a JSON string and Number as a JSON number.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindNumber {
		return json.Marshal(v.num)
	}
	return json.Marshal(v.text)
}

// header is shared by every Record of one Set.
type header struct {
	keys  []string
	index map[string]int
}

func newHeader(cells []string) (*header, []int) {
	h := &header{index: make(map[string]int, len(cells))}
	// pos maps a CSV cell position to its slot in the record.
	pos := make([]int, len(cells))
	for i, name := range cells {
		slot, ok := h.index[name]
		if !ok {
			slot = len(h.keys)
			h.index[name] = slot
			h.keys = append(h.keys, name)
		}
		pos[i] = slot
	}
	return h, pos
}

// Record is one parsed row: an ordered mapping from column name to Value.
type Record struct {
	h    *header
	vals []Value
}

// NewRecord builds a Record from parallel key and value slices. It is meant
// for callers assembling records outside Load; keys must be unique.
func NewRecord(keys []string, vals []Value) Record {
	h, _ := newHeader(keys)
	out := make([]Value, len(h.keys))
	copy(out, vals)
	return Record{h: h, vals: out}
}

// Keys returns the column names in header order.
func (r Record) Keys() []string {
	if r.h == nil {
		return nil
	}
	return append([]string(nil), r.h.keys...)
}

// Len returns the number of columns.
func (r Record) Len() int { return len(r.vals) }

// Get returns the value of column name.
func (r Record) Get(name string) (Value, bool) {
	if r.h == nil {
		return Value{}, false
	}
	i, ok := r.h.index[name]
	if !ok {
		return Value{}, false
	}
	return r.vals[i], true
}

// Timestamp returns the raw text of the timestamp column, or "" if absent.
func (r Record) Timestamp() string {
	v, _ := r.Get(TimestampColumn)
	return v.String()
}

// MarshalJSON encodes the record as a JSON object with keys in header order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range r.vals {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(r.h.keys[i])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		b, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Set is an ordered sequence of records in file order.
type Set []Record

// MarshalJSON encodes a nil Set as an empty array rather than null.
func (s Set) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Record(s))
}
