// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package guarded

import (
	"context"
	"time"
)

// A UniqueLock is a movable exclusive handle on a [Value]'s lock.
//
// A handle is either holding the lock or not; [UniqueLock.Held]
// reports which. Dereferencing through a handle that is not holding
// panics with an [OwnershipError], so a stale handle can never yield
// the guarded value.
//
// Ownership moves between handles with [UniqueLock.Move] and leaves
// the handle entirely with [UniqueLock.Release]; afterwards the old
// handle is detached and every operation on it except Held panics.
// The zero UniqueLock is detached.
//
// A UniqueLock is a [sync.Locker], so a [sync.Cond] can suspend and
// reacquire through it.
type UniqueLock[V any] struct {
	gv      *Value[V]
	holding bool
}

// Unique acquires the lock exclusively, blocking until it is
// available, and returns a holding handle.
func (g *Value[V]) Unique() *UniqueLock[V] {
	g.lk.Lock()
	return &UniqueLock[V]{gv: g, holding: true}
}

// TryUnique attempts the exclusive acquisition without blocking. The
// returned handle may not be holding; check [UniqueLock.Held].
func (g *Value[V]) TryUnique() *UniqueLock[V] {
	return &UniqueLock[V]{gv: g, holding: g.lk.TryLock()}
}

// DeferredUnique returns a handle without acquiring the lock, to be
// locked later through the handle itself.
func (g *Value[V]) DeferredUnique() *UniqueLock[V] {
	return &UniqueLock[V]{gv: g}
}

// AdoptUnique returns a holding handle for an exclusive acquisition
// the caller already made, taking over the obligation to unlock. The
// caller must in fact hold the lock.
func (g *Value[V]) AdoptUnique() *UniqueLock[V] {
	return &UniqueLock[V]{gv: g, holding: true}
}

func (u *UniqueLock[V]) attached(op string) *Value[V] {
	if u.gv == nil {
		panic(&OwnershipError{Op: op, Reason: "no associated value"})
	}
	return u.gv
}

func (u *UniqueLock[V]) mustNotHold(op string) {
	if u.holding {
		panic(&OwnershipError{Op: op, Reason: "lock already held"})
	}
}

// Lock acquires the lock exclusively, blocking until it is available.
// It panics with an [OwnershipError] if the handle is detached or
// already holding.
func (u *UniqueLock[V]) Lock() {
	gv := u.attached("UniqueLock.Lock")
	u.mustNotHold("UniqueLock.Lock")
	gv.lk.Lock()
	u.holding = true
}

// TryLock attempts the exclusive acquisition without blocking and
// reports whether the handle now holds the lock.
func (u *UniqueLock[V]) TryLock() bool {
	gv := u.attached("UniqueLock.TryLock")
	u.mustNotHold("UniqueLock.TryLock")
	u.holding = gv.lk.TryLock()
	return u.holding
}

// TryLockWithTimeout attempts the exclusive acquisition, giving up
// after d. It requires [CapTryLockTimeout] of the Value's lock.
func (u *UniqueLock[V]) TryLockWithTimeout(d time.Duration) bool {
	gv := u.attached("UniqueLock.TryLockWithTimeout")
	u.mustNotHold("UniqueLock.TryLockWithTimeout")
	u.holding = gv.timed("UniqueLock.TryLockWithTimeout").TryLockWithTimeout(d)
	return u.holding
}

// TryLockWithContext attempts the exclusive acquisition until ctx is
// done. It requires [CapTryLockContext] of the Value's lock.
func (u *UniqueLock[V]) TryLockWithContext(ctx context.Context) bool {
	gv := u.attached("UniqueLock.TryLockWithContext")
	u.mustNotHold("UniqueLock.TryLockWithContext")
	u.holding = gv.ctxLock("UniqueLock.TryLockWithContext").TryLockWithContext(ctx)
	return u.holding
}

// Unlock releases the lock. It panics with an [OwnershipError] if the
// handle is not holding it.
func (u *UniqueLock[V]) Unlock() {
	gv := u.attached("UniqueLock.Unlock")
	if !u.holding {
		panic(&OwnershipError{Op: "UniqueLock.Unlock", Reason: "lock not held"})
	}
	u.holding = false
	gv.lk.Unlock()
}

// Held reports whether the handle currently holds the lock. It is
// false for a detached handle.
func (u *UniqueLock[V]) Held() bool {
	return u.gv != nil && u.holding
}

// Value returns a pointer to the guarded contents. It panics with an
// [OwnershipError] unless the handle is holding the lock; it also
// panics if the value was moved out. The pointer must not be used
// after the handle stops holding.
func (u *UniqueLock[V]) Value() *V {
	gv := u.attached("UniqueLock.Value")
	if !u.holding {
		panic(&OwnershipError{Op: "UniqueLock.Value", Reason: "lock not held"})
	}
	return gv.ref("UniqueLock.Value")
}

// Move transfers the handle's state, holding or not, to a new handle.
// The receiver is left detached.
func (u *UniqueLock[V]) Move() *UniqueLock[V] {
	gv := u.attached("UniqueLock.Move")
	moved := &UniqueLock[V]{gv: gv, holding: u.holding}
	u.gv, u.holding = nil, false
	return moved
}

// Release detaches the handle without releasing the lock and returns
// its Value. If the handle was holding, the caller takes over the
// obligation to unlock, typically via [Value.Unlock] or by re-adopting
// with [Value.AdoptUnique].
func (u *UniqueLock[V]) Release() *Value[V] {
	gv := u.attached("UniqueLock.Release")
	u.gv, u.holding = nil, false
	return gv
}
