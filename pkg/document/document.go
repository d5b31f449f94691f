// Package document provides the ordered key-value container used for command
// arguments, response bodies and push payloads.
//
// A Document holds booleans, numbers, strings and nested Documents. Values are
// only readable through the accessor matching the kind they were stored as: a
// mismatch or an absent key yields the caller's default, never a coercion.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// Kind identifies the type a value was stored as.
type Kind int

const (
	KindInvalid Kind = iota // absent or unsupported
	KindBool
	KindNumber
	KindString
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindDocument:
		return "document"
	default:
		return "invalid"
	}
}

// MaxDepth bounds object and array nesting accepted by Parse, matching the
// limit encoding/json applies to Unmarshal.
const MaxDepth = 10000

var (
	ErrNotObject    = errors.New("document: top-level value is not an object")
	ErrTrailingData = errors.New("document: trailing data after object")
	ErrNotFinite    = errors.New("document: number is not finite")
	ErrTooDeep      = errors.New("document: nesting exceeds maximum depth")
)

// Document is an ordered set of unique keys. The zero value is not usable;
// create one with New or Parse. A nil *Document reads as empty.
type Document struct {
	keys   []string
	values map[string]any // bool, float64, string or *Document
}

// New returns an empty document.
func New() *Document {
	return &Document{values: make(map[string]any)}
}

// Len returns the number of keys.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns the keys in insertion order.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// set stores v under key. Replacing an existing key keeps its position.
func (d *Document) set(key string, v any) {
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
}

func (d *Document) SetBool(key string, value bool) {
	d.set(key, value)
}

// SetNumber stores a number. Non-finite values are stored as given and make
// Serialize fail, since they have no JSON representation.
func (d *Document) SetNumber(key string, value float64) {
	d.set(key, value)
}

func (d *Document) SetInt(key string, value int64) {
	d.set(key, float64(value))
}

func (d *Document) SetString(key string, value string) {
	d.set(key, value)
}

// SetDocument nests a copy of nested under key. A document cannot contain
// itself; that call is ignored.
func (d *Document) SetDocument(key string, nested *Document) {
	if nested == d {
		return
	}
	d.set(key, nested.Clone())
}

// SetJSON parses raw and nests the result under key. It reports false and
// leaves the document untouched when raw is not a valid document.
func (d *Document) SetJSON(key string, raw []byte) bool {
	nested, err := Parse(raw)
	if err != nil {
		return false
	}
	d.set(key, nested)
	return true
}

// Remove deletes key if present.
func (d *Document) Remove(key string) {
	if d == nil {
		return
	}
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Kind reports the kind stored under key, KindInvalid when absent.
func (d *Document) Kind(key string) Kind {
	if d == nil {
		return KindInvalid
	}
	return kindOf(d.values[key])
}

// Has reports whether key is present with the given kind.
func (d *Document) Has(key string, kind Kind) bool {
	return kind != KindInvalid && d.Kind(key) == kind
}

// Value returns the raw stored value: bool, float64, string or *Document.
func (d *Document) Value(key string) (any, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.values[key]
	return v, ok
}

func (d *Document) GetBool(key string, def bool) bool {
	if v, ok := d.lookup(key).(bool); ok {
		return v
	}
	return def
}

func (d *Document) GetNumber(key string, def float64) float64 {
	if v, ok := d.lookup(key).(float64); ok {
		return v
	}
	return def
}

// GetInt returns the number under key when it is integral and fits in int64.
func (d *Document) GetInt(key string, def int64) int64 {
	v, ok := d.lookup(key).(float64)
	if !ok || v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
		return def
	}
	return int64(v)
}

// GetUint returns the number under key when it is integral, non-negative and
// no greater than max.
func (d *Document) GetUint(key string, max uint64, def uint64) uint64 {
	v, ok := d.lookup(key).(float64)
	if !ok || v != math.Trunc(v) || v < 0 || v > float64(max) {
		return def
	}
	return uint64(v)
}

func (d *Document) GetString(key string, def string) string {
	if v, ok := d.lookup(key).(string); ok {
		return v
	}
	return def
}

// GetDocument returns a copy of the nested document under key, or an empty
// document when the key is absent or holds another kind.
func (d *Document) GetDocument(key string) *Document {
	if v, ok := d.lookup(key).(*Document); ok {
		return v.Clone()
	}
	return New()
}

func (d *Document) lookup(key string) any {
	if d == nil {
		return nil
	}
	return d.values[key]
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := New()
	if d == nil {
		return out
	}
	for _, k := range d.keys {
		v := d.values[k]
		if nested, ok := v.(*Document); ok {
			v = nested.Clone()
		}
		out.set(k, v)
	}
	return out
}

// Equal compares key sets and values, ignoring key order.
func (d *Document) Equal(other *Document) bool {
	if d.Len() != other.Len() {
		return false
	}
	for _, k := range d.Keys() {
		a, _ := d.Value(k)
		b, ok := other.Value(k)
		if !ok {
			return false
		}
		na, aDoc := a.(*Document)
		nb, bDoc := b.(*Document)
		switch {
		case aDoc && bDoc:
			if !na.Equal(nb) {
				return false
			}
		case aDoc || bDoc:
			return false
		case a != b:
			return false
		}
	}
	return true
}

// Serialize renders the document as compact JSON, keys in insertion order.
func (d *Document) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.writeTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Document) writeTo(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, k := range d.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')

		v := d.values[k]
		if nested, ok := v.(*Document); ok {
			if err := nested.writeTo(buf); err != nil {
				return err
			}
			continue
		}
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return fmt.Errorf("%w: key %q", ErrNotFinite, k)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("document: key %q: %w", k, err)
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return nil
}

// String renders the document for logs; invalid numbers render as an error note.
func (d *Document) String() string {
	raw, err := d.Serialize()
	if err != nil {
		return fmt.Sprintf("<invalid document: %v>", err)
	}
	return string(raw)
}

// MarshalJSON implements json.Marshaler.
func (d *Document) MarshalJSON() ([]byte, error) {
	return d.Serialize()
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// Parse decodes a JSON object. It fails only when the input is not a single
// well-formed object; null and array members are skipped because no accessor
// could read them back.
func Parse(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotObject
	}
	d, err := decodeObject(dec, 1)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrTrailingData
	}
	return d, nil
}

// decodeObject reads members up to and including the closing brace. depth
// counts the enclosing objects and arrays, this one included.
func decodeObject(dec *json.Decoder, depth int) (*Document, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	d := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("document: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("document: unexpected key token %v", tok)
		}
		v, keep, err := decodeValue(dec, depth)
		if err != nil {
			return nil, err
		}
		if keep {
			d.set(key, v)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	return d, nil
}

func decodeValue(dec *json.Decoder, depth int) (any, bool, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, false, fmt.Errorf("document: %w", err)
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			nested, err := decodeObject(dec, depth+1)
			return nested, err == nil, err
		case '[':
			return nil, false, skipArray(dec, depth+1)
		}
		return nil, false, fmt.Errorf("document: unexpected delimiter %v", v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			// out of float64 range; well-formed but unrepresentable
			return nil, false, nil
		}
		return f, true, nil
	case bool, string:
		return v, true, nil
	default:
		return nil, false, nil
	}
}

// skipArray consumes an array iteratively; depth is the array's own level.
func skipArray(dec *json.Decoder, depth int) error {
	base := depth - 1
	for depth > base {
		if depth > MaxDepth {
			return ErrTooDeep
		}
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("document: %w", err)
		}
		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '[', '{':
				depth++
			case ']', '}':
				depth--
			}
		}
	}
	return nil
}

func kindOf(v any) Kind {
	switch v.(type) {
	case bool:
		return KindBool
	case float64:
		return KindNumber
	case string:
		return KindString
	case *Document:
		return KindDocument
	default:
		return KindInvalid
	}
}
