// pkg/core/optional.go
package core

import "fmt"

// Opt is a value that may be absent. The zero value is absent.
type Opt[T any] struct {
	value T
	set   bool
}

// Some returns a present Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{value: v, set: true}
}

// None returns an absent Opt.
func None[T any]() Opt[T] {
	return Opt[T]{}
}

// Get returns the value and whether it is present.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value is present.
func (o Opt[T]) IsSet() bool {
	return o.set
}

// Or returns the value, or def when absent.
func (o Opt[T]) Or(def T) T {
	if !o.set {
		return def
	}
	return o.value
}

func (o Opt[T]) String() string {
	if !o.set {
		return "<unset>"
	}
	return fmt.Sprint(o.value)
}
