// Package decode turns raw response bytes into typed entities.
//
// Bytes are first parsed into a generic JSON tree, then each object is
// run through a declarative Schema. A single entity is all-or-nothing.
// Collections are lenient: elements that fail the schema are dropped and
// the call still succeeds, so only structural problems (no body, not JSON,
// wrong top-level shape) fail a collection decode.
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeOne decodes a single JSON object into a T.
func DecodeOne[T any](data []byte, s Schema[T]) (T, error) {
	var zero T
	raw, err := parse(data)
	if err != nil {
		return zero, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return zero, fmt.Errorf("%w: expected object, got %s", ErrInvalidShape, typeName(raw))
	}
	return s.Parse(obj)
}

// DecodeMany decodes a JSON array into a slice of T, preserving order and
// silently dropping elements the schema rejects. An array where every
// element is rejected yields an empty, non-nil slice.
func DecodeMany[T any](data []byte, s Schema[T]) ([]T, error) {
	items, _, err := DecodeManyDropped(data, s)
	return items, err
}

// DecodeManyDropped is DecodeMany that also reports how many elements were
// dropped. The dropped count never turns into an error.
func DecodeManyDropped[T any](data []byte, s Schema[T]) ([]T, int, error) {
	raw, err := parse(data)
	if err != nil {
		return nil, 0, err
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, 0, fmt.Errorf("%w: expected array, got %s", ErrInvalidShape, typeName(raw))
	}
	out := make([]T, 0, len(arr))
	dropped := 0
	for _, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			dropped++
			continue
		}
		v, err := s.Parse(obj)
		if err != nil {
			dropped++
			continue
		}
		out = append(out, v)
	}
	return out, dropped, nil
}

// parse produces the generic tree. Numbers stay json.Number so integer
// fields are not routed through float64.
func parse(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, ErrMissingData
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrInvalidData)
	}
	return raw, nil
}
