// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package vartype

import "testing"

func TestVariable(t *testing.T) {
	t.Run("zero value is unset", func(t *testing.T) {
		var heading VarFloat64
		if heading.IsSet() {
			t.Error("expected zero value to be unset")
		}
		if heading.String() != "n/a" {
			t.Errorf("expected unset string to be %q, got %q", "n/a", heading.String())
		}
		if _, ok := heading.Get(); ok {
			t.Error("expected Get to report an unset value")
		}
		if got := heading.Or(42); got != 42 {
			t.Errorf("expected fallback %f, got %f", 42.0, got)
		}
	})
	t.Run("new variable is set", func(t *testing.T) {
		heading := NewVariable(123.5)
		if !heading.IsSet() {
			t.Fatal("expected variable to be set")
		}
		if heading.Value() != 123.5 {
			t.Errorf("expected value to be %f, got %f", 123.5, heading.Value())
		}
		if heading.String() != "123.5" {
			t.Errorf("expected string to be %q, got %q", "123.5", heading.String())
		}
		if got := heading.Or(42); got != 123.5 {
			t.Errorf("expected stored value %f, got %f", 123.5, got)
		}
	})
	t.Run("set marks a zero value as set", func(t *testing.T) {
		var heading VarFloat64
		heading.Set(0)
		val, ok := heading.Get()
		if !ok || val != 0 {
			t.Errorf("expected north to be a valid heading, got %f/%t", val, ok)
		}
	})
}
