package hrms

import (
	"bytes"
	"encoding/json"
)

// rawList decodes a list that may arrive bare or wrapped in an object.
type rawList[T any] struct {
	raw json.RawMessage
}

func (l *rawList[T]) UnmarshalJSON(b []byte) error {
	l.raw = append(l.raw[:0], b...)
	return nil
}

func (l rawList[T]) items(keys ...string) []T {
	trimmed := bytes.TrimSpace(l.raw)
	if len(trimmed) == 0 {
		return nil
	}

	var out []T
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &out); err == nil {
			return out
		}
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil
	}
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if err := json.Unmarshal(v, &out); err == nil {
				return out
			}
		}
	}
	return nil
}
