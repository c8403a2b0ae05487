// Package undefined implements the tri-state values used in PATCH payloads.
// JSON cannot natively distinguish a key that is absent from a key set to
// null, so update payloads carry these instead of plain pointers. Both types
// have "undefined" as their zero value, which together with the `omitzero`
// JSON tag gives the round-trip contract: absent key -> undefined, null ->
// explicit null, anything else -> a value.
package undefined

import (
	"bytes"
	"encoding/json"
)

type state uint8

const (
	stateUndefined state = iota
	stateNull
	stateSet
)

var nullLiteral = []byte("null")

// Value holds either a value or nothing at all. Used for fields that can be
// replaced but never cleared, like the document list of a PATCH body.
type Value[T any] struct {
	value T
	set   bool
}

// Some wraps a concrete value.
func Some[T any](v T) Value[T] {
	return Value[T]{value: v, set: true}
}

func (v Value[T]) IsSome() bool {
	return v.set
}

func (v Value[T]) IsUndefined() bool {
	return !v.set
}

// Get returns the wrapped value and whether one is present.
func (v Value[T]) Get() (T, bool) {
	return v.value, v.set
}

// IsZero reports whether the field should be dropped by omitzero.
func (v Value[T]) IsZero() bool {
	return !v.set
}

func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.set {
		// Only reachable without an omitzero tag
		return nullLiteral, nil
	}

	return json.Marshal(v.value)
}

func (v *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, nullLiteral) {
		// This field cannot be cleared, so null collapses into "no change"
		*v = Value[T]{}
		return nil
	}

	var inner T
	if err := json.Unmarshal(data, &inner); err != nil {
		return err
	}

	*v = Value[T]{value: inner, set: true}
	return nil
}

// Option holds a value, an explicit null, or nothing at all. Used for
// nullable fields like a paste's expiry, where "clear it" and "leave it
// alone" must stay distinguishable.
type Option[T any] struct {
	value T
	state state
}

// SomeOption wraps a concrete value.
func SomeOption[T any](v T) Option[T] {
	return Option[T]{value: v, state: stateSet}
}

// Null returns the explicit-null variant.
func Null[T any]() Option[T] {
	return Option[T]{state: stateNull}
}

func (o Option[T]) IsSome() bool {
	return o.state == stateSet
}

func (o Option[T]) IsNull() bool {
	return o.state == stateNull
}

func (o Option[T]) IsUndefined() bool {
	return o.state == stateUndefined
}

// Get returns the wrapped value and whether one is present.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.state == stateSet
}

// Ptr projects the option onto a plain pointer, losing the null/undefined
// distinction. Callers must check IsUndefined first when it matters.
func (o Option[T]) Ptr() *T {
	if o.state != stateSet {
		return nil
	}

	v := o.value
	return &v
}

// IsZero reports whether the field should be dropped by omitzero.
func (o Option[T]) IsZero() bool {
	return o.state == stateUndefined
}

func (o Option[T]) MarshalJSON() ([]byte, error) {
	if o.state != stateSet {
		return nullLiteral, nil
	}

	return json.Marshal(o.value)
}

func (o *Option[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, nullLiteral) {
		*o = Option[T]{state: stateNull}
		return nil
	}

	var inner T
	if err := json.Unmarshal(data, &inner); err != nil {
		return err
	}

	*o = Option[T]{value: inner, state: stateSet}
	return nil
}

// Narrow converts an Option into a Value. Explicit null has no
// representation on the narrow side and collapses into undefined.
func Narrow[T any](o Option[T]) Value[T] {
	if v, ok := o.Get(); ok {
		return Some(v)
	}

	return Value[T]{}
}

// Widen converts a Value into an Option. Nothing is lost in this direction.
func Widen[T any](v Value[T]) Option[T] {
	if inner, ok := v.Get(); ok {
		return SomeOption(inner)
	}

	return Option[T]{}
}

// Map applies f to the wrapped value, leaving undefined untouched.
func Map[T, U any](v Value[T], f func(T) U) Value[U] {
	if inner, ok := v.Get(); ok {
		return Some(f(inner))
	}

	return Value[U]{}
}

// MapOption applies f to the wrapped value, preserving null and undefined.
func MapOption[T, U any](o Option[T], f func(T) U) Option[U] {
	switch o.state {
	case stateSet:
		return SomeOption(f(o.value))
	case stateNull:
		return Null[U]()
	default:
		return Option[U]{}
	}
}
