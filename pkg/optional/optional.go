// Package optional decodes JSON fields whose absence, null and value must be told apart.
//
// A PATCH-style body needs three states per field: the key is missing (keep the
// stored value), the key is null or blank (clear it), or the key has a value.
// Value[T] records which of those happened while encoding/json decodes the body.
package optional

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errBlank = errors.New("optional: blank value")

// Value is a tri-state JSON field.
type Value[T any] struct {
	Set     bool // key was present in the body
	Null    bool // key was null, or blank for types that treat "" as empty
	Invalid bool // key was present but could not be decoded into T
	Val     T
}

func (o *Value[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null = true
		return nil
	}
	if err := json.Unmarshal(b, &o.Val); err != nil {
		if errors.Is(err, errBlank) {
			o.Null = true
			return nil
		}
		o.Invalid = true
	}
	return nil
}

func (o Value[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Val)
}

// Has reports whether the field carried a usable value.
func (o Value[T]) Has() bool {
	return o.Set && !o.Null && !o.Invalid
}

// Cleared reports whether the field was explicitly emptied.
func (o Value[T]) Cleared() bool {
	return o.Set && o.Null
}

// Get returns the value and whether it was usable.
func (o Value[T]) Get() (T, bool) {
	return o.Val, o.Has()
}

// Or returns the value when usable, def otherwise.
func (o Value[T]) Or(def T) T {
	if o.Has() {
		return o.Val
	}
	return def
}

// Ptr returns a pointer to the value, or nil when the field is absent, null or invalid.
func (o Value[T]) Ptr() *T {
	if !o.Has() {
		return nil
	}
	v := o.Val
	return &v
}
