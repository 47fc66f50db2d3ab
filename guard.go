// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package guarded

// A Guard is a scope-bound exclusive handle to a [Value]'s contents.
// It is created holding the lock by [Value.Guard] and released exactly
// once with [Guard.Unlock]; unlike [UniqueLock] it cannot be moved,
// re-locked, or released early without unlocking.
//
// A Guard must not be copied.
type Guard[V any] struct {
	noCopy   noCopy
	gv       *Value[V]
	unlocked bool
}

// Guard acquires the lock exclusively and returns a guard for the
// critical section. The caller must call [Guard.Unlock] when done,
// typically via defer.
func (g *Value[V]) Guard() *Guard[V] {
	g.lk.Lock()
	return &Guard[V]{gv: g}
}

// Value returns a pointer to the guarded contents. It panics with an
// [OwnershipError] if the guard was already unlocked or the value was
// moved out. The pointer must not be used after the guard is unlocked.
func (g *Guard[V]) Value() *V {
	if g.unlocked {
		panic(&OwnershipError{Op: "Guard.Value", Reason: "use after unlock"})
	}
	return g.gv.ref("Guard.Value")
}

// Unlock releases the guard's lock. It panics with an
// [OwnershipError] if called more than once.
func (g *Guard[V]) Unlock() {
	if g.unlocked {
		panic(&OwnershipError{Op: "Guard.Unlock", Reason: "already unlocked"})
	}
	g.unlocked = true
	g.gv.lk.Unlock()
}
