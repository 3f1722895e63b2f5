package record

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Field is one key of an Object.
type Field struct {
	Key   string
	Value any
}

// Object is a JSON object that keeps its key order when marshalled.
type Object []Field

func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the value stored under key.
func (o Object) Get(key string) (any, bool) {
	for _, f := range o {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Map converts o into a map for template lookups.
func (o Object) Map() map[string]any {
	m := make(map[string]any, len(o))
	for _, f := range o {
		m[f.Key] = f.Value
	}
	return m
}

// Ordered lays out m with the keys of order first and the rest sorted.
func Ordered(m map[string]any, order []string) Object {
	out := make(Object, 0, len(m))
	seen := make(map[string]bool, len(order))

	for _, k := range order {
		if v, ok := m[k]; ok {
			out = append(out, Field{Key: k, Value: v})
			seen[k] = true
		}
	}

	rest := make([]string, 0, len(m)-len(out))
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)

	for _, k := range rest {
		out = append(out, Field{Key: k, Value: m[k]})
	}
	return out
}
