package models

import (
	"bytes"
	"encoding/json"
)

// Optional is a field of a sparse patch. It distinguishes a field that was
// absent from the payload (Present == false) from one that was explicitly
// set, possibly to null. Absent fields never reach UnmarshalJSON, which is
// what makes the distinction work with encoding/json.
type Optional[T any] struct {
	Present bool
	Null    bool
	Value   T
}

func NewOptional[T any](v T) Optional[T] {
	return Optional[T]{Present: true, Value: v}
}

func NullOptional[T any]() Optional[T] {
	return Optional[T]{Present: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Present = true
	if bytes.Equal(b, []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// Ptr returns the value as a pointer, nil when the field is absent or null.
func (o Optional[T]) Ptr() *T {
	if !o.Present || o.Null {
		return nil
	}
	v := o.Value
	return &v
}
