package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// ValueKind is the explicit type of a field value, decided when the record is parsed
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// Value is one raw field value as received from the service
type Value struct {
	Kind   ValueKind
	Str    string  // KindString, and the literal text of KindNumber
	Bool   bool    // KindBool
	List   []Value // KindList
	Object *Record // KindObject
}

// Null is the absent value
var Null = Value{Kind: KindNull}

// String builds a string value
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number builds a number value from its JSON text
func Number(n json.Number) Value { return Value{Kind: KindNumber, Str: n.String()} }

// Float builds a number value
func Float(f float64) Value {
	return Value{Kind: KindNumber, Str: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Bool builds a boolean value
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// List builds a list value
func List(items ...Value) Value { return Value{Kind: KindList, List: items} }

// Object builds a nested record value
func Object(r Record) Value { return Value{Kind: KindObject, Object: &r} }

// ValueOf converts a decoded Go value (as produced by encoding/json) into a Value.
// Unsupported types become Null.
func ValueOf(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case Value:
		return t
	case string:
		return String(t)
	case json.Number:
		return Number(t)
	case float64:
		return Float(t)
	case float32:
		return Float(float64(t))
	case int:
		return Value{Kind: KindNumber, Str: strconv.Itoa(t)}
	case int64:
		return Value{Kind: KindNumber, Str: strconv.FormatInt(t, 10)}
	case bool:
		return Bool(t)
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			items = append(items, ValueOf(item))
		}
		return List(items...)
	case []string:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			items = append(items, String(item))
		}
		return List(items...)
	case map[string]any:
		return Object(RecordFromMap(t))
	default:
		return Null
	}
}

// Record is an ordered, immutable mapping of field identifier to value
type Record struct {
	keys   []string
	values map[string]Value
}

// RecordFromMap builds a record from a map; keys are ordered lexically
func RecordFromMap(m map[string]any) Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := Record{keys: keys, values: make(map[string]Value, len(m))}
	for _, k := range keys {
		r.values[k] = ValueOf(m[k])
	}
	return r
}

// Len returns the number of fields
func (r Record) Len() int { return len(r.keys) }

// Keys returns field identifiers in record order
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the value for a field; missing fields are Null
func (r Record) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	if !ok {
		return Null, false
	}
	return v, true
}

// UnmarshalJSON decodes a JSON object keeping the document's key order
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if tok == nil {
		*r = Record{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode record: expected object, got %v", tok)
	}

	rec, err := decodeObject(dec)
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	*r = rec
	return nil
}

// MarshalJSON encodes the record keeping its key order
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := r.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes a value back to its JSON form
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return []byte(v.Str), nil
	case KindBool:
		return json.Marshal(v.Bool)
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.List {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindObject:
		if v.Object == nil {
			return []byte("{}"), nil
		}
		return v.Object.MarshalJSON()
	default:
		return []byte("null"), nil
	}
}

// decodeObject reads key/value pairs up to and including the closing brace
func decodeObject(dec *json.Decoder) (Record, error) {
	rec := Record{values: make(map[string]Value)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Record{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Record{}, fmt.Errorf("expected key, got %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return Record{}, fmt.Errorf("field %q: %w", key, err)
		}
		// Later duplicates of a key replace the value but keep the first position
		if _, seen := rec.values[key]; !seen {
			rec.keys = append(rec.keys, key)
		}
		rec.values[key] = val
	}
	if _, err := dec.Token(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return Null, io.ErrUnexpectedEOF
	}
	if err != nil {
		return Null, err
	}

	switch t := tok.(type) {
	case nil:
		return Null, nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case json.Delim:
		switch t {
		case '{':
			rec, err := decodeObject(dec)
			if err != nil {
				return Null, err
			}
			return Object(rec), nil
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Null, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Null, err
			}
			return List(items...), nil
		}
	}
	return Null, fmt.Errorf("unexpected token %v", tok)
}
