// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package vartype provides optional values for readings that may be missing.
package vartype

import (
	"fmt"
)

// VarFloat64 is an optional float64, used for the compass heading and the relative bearing.
type VarFloat64 = Variable[float64]

// Variable holds a value of type T and whether it was ever set. The zero value is unset.
type Variable[T any] struct {
	value T
	isset bool
}

// NewVariable returns a Variable that is set to value.
func NewVariable[T any](value T) Variable[T] {
	return Variable[T]{value: value, isset: true}
}

// Set stores val.
func (v *Variable[T]) Set(val T) {
	v.value, v.isset = val, true
}

// Value returns the stored value, or the zero value of T when unset.
func (v Variable[T]) Value() T {
	return v.value
}

// Get returns the stored value and whether it is set.
func (v Variable[T]) Get() (T, bool) {
	return v.value, v.isset
}

// Or returns the stored value, or fallback when unset.
func (v Variable[T]) Or(fallback T) T {
	if !v.isset {
		return fallback
	}
	return v.value
}

func (v Variable[T]) IsSet() bool {
	return v.isset
}

// String satisfies the fmt.Stringer interface. Unset values are shown as "n/a".
func (v Variable[T]) String() string {
	if !v.isset {
		return "n/a"
	}
	return fmt.Sprint(v.value)
}
