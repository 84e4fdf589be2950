package jsonpath

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Object is an ordered JSON object. Unlike map[string]interface{}, it
// preserves source insertion order so that wildcard and descendant
// iteration over an object's keys is deterministic, as required by the
// tracer's ordering contract.
type Object struct {
	keys   []string
	values []interface{}
	index  map[string]int
}

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return &Object{index: make(map[string]int)}
}

// Set assigns key to val, appending key to the iteration order the first
// time it is seen and overwriting the value in place on repeats.
func (o *Object) Set(key string, val interface{}) {
	if i, ok := o.index[key]; ok {
		o.values[i] = val
		return
	}
	o.index[key] = len(o.keys)
	o.keys = append(o.keys, key)
	o.values = append(o.values, val)
}

// Get returns the value stored under key and whether it was present.
func (o *Object) Get(key string) (interface{}, bool) {
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.values[i], true
}

// Keys returns the object's keys in insertion order. The caller must not
// mutate the returned slice.
func (o *Object) Keys() []string {
	return o.keys
}

// Len returns the number of keys in the object.
func (o *Object) Len() int {
	return len(o.keys)
}

// MarshalJSON preserves key order, unlike the default map encoding.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decode parses data into the tagged JSON value model used by the tracer:
// nil, bool, float64, string, []interface{}, or *Object. It is a drop-in
// replacement for json.Unmarshal into interface{} that additionally
// preserves object key order, using encoding/json's token stream rather
// than decoding into map[string]interface{}.
func Decode(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	val, err := decodeValue(dec)
	if err != nil {
		return nil, &Error{Code: ErrInvalidJSON, Message: "failed to parse JSON", Cause: err}
	}
	return val, nil
}

func decodeValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (interface{}, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				valTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				val, err := decodeToken(dec, valTok)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []interface{}{}
			for dec.More() {
				elTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				val, err := decodeToken(dec, elTok)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		// string, bool, or nil — returned as-is.
		return t, nil
	}
}

// toPlain recursively converts the ordered value model into plain
// map[string]interface{}/[]interface{}, for handing to expression
// backends (expr-lang/expr, otto) that reflect over ordinary Go maps and
// have no notion of key order. Order only matters for tracer iteration,
// never for evaluating a single filter/script binding.
func toPlain(v interface{}) interface{} {
	switch t := v.(type) {
	case *Object:
		m := make(map[string]interface{}, t.Len())
		for _, k := range t.Keys() {
			val, _ := t.Get(k)
			m[k] = toPlain(val)
		}
		return m
	case []interface{}:
		arr := make([]interface{}, len(t))
		for i, el := range t {
			arr[i] = toPlain(el)
		}
		return arr
	default:
		return v
	}
}

// isContainer reports whether v is an object or array, i.e. something the
// tracer can descend into.
func isContainer(v interface{}) bool {
	switch v.(type) {
	case *Object, []interface{}:
		return true
	default:
		return false
	}
}
