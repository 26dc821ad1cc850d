package models

import (
	"bytes"
	"encoding/json"
)

// Optional records whether a JSON field was present at all (Set) and, if so,
// whether it was an explicit null (Null). It lets the merge tell "the caller
// did not mention this field" apart from "the caller cleared it".
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

func Cleared[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// Present reports a set, non-null value.
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}

// IsZero makes `omitzero` drop fields that were never set.
func (o Optional[T]) IsZero() bool {
	return !o.Set
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	var zero T
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null = true
		o.Value = zero
		return nil
	}
	o.Null = false
	o.Value = zero
	return json.Unmarshal(b, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
