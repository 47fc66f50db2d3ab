// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package guarded

// Cross-type construction and assignment. Methods cannot introduce a
// second type parameter, so these live as package functions. They
// follow the same locking discipline as the same-type operations on
// [Value]: construction locks the source, assignment holds both locks
// at once via lockPair.

// Convert returns a new Value guarding f applied to a copy of src's
// value. The copy is made under src's lock; f runs after it is
// released. The new Value gets its own new [Mutex].
func Convert[V, U any](src *Value[U], f func(U) V) *Value[V] {
	return NewWith(f(src.read("Convert")), new(Mutex))
}

// ConvertMove is like [Convert] but moves src's value out, leaving src
// moved-out as with [Value.Take].
func ConvertMove[V, U any](src *Value[U], f func(U) V) *Value[V] {
	return NewWith(f(src.Take()), new(Mutex))
}

// ConvertFrom replaces dst's value with f applied to src's, holding
// both locks while f runs so the transfer is a single atomic step.
// Converting from itself is a no-op.
func ConvertFrom[V, U any](dst *Value[V], src *Value[U], f func(U) V) {
	if any(dst) == any(src) {
		return
	}
	lockPair(dst.lk, src.lk)
	defer unlockPair(dst.lk, src.lk)
	dst.v = f(*src.ref("ConvertFrom"))
	dst.moved = false
}

// ConvertMoveFrom is like [ConvertFrom] but moves src's value out,
// leaving src moved-out.
func ConvertMoveFrom[V, U any](dst *Value[V], src *Value[U], f func(U) V) {
	if any(dst) == any(src) {
		return
	}
	lockPair(dst.lk, src.lk)
	defer unlockPair(dst.lk, src.lk)
	dst.v = f(*src.ref("ConvertMoveFrom"))
	dst.moved = false
	var zero U
	src.v = zero
	src.moved = true
}
