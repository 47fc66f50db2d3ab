// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package guarded

import (
	"context"
	"time"
)

// A SharedLock is a movable reader-side handle on a [Value]'s lock.
// Any number of SharedLocks may hold the lock at once, excluding all
// exclusive holders.
//
// Its methods are named like [UniqueLock]'s but act on the lock's
// shared entry points: Lock calls RLock, TryLock calls TryRLock, and
// so on, the way [sync.RWMutex.RLocker] maps Lock onto RLock. All of
// its constructors require [CapRLock] of the Value's lock; the bounded
// waits additionally require the lock's shared try capabilities.
//
// [SharedLock.Value] returns a copy of the contents: a reader cannot
// mutate through the handle, the compiler sees to it. Move, Release,
// detachment, and the zero value behave as for [UniqueLock].
//
// A SharedLock is a [sync.Locker] over the shared entry points.
type SharedLock[V any] struct {
	gv      *Value[V]
	holding bool
}

// Shared acquires the lock for reading, blocking as needed, and
// returns a holding handle. It requires [CapRLock].
func (g *Value[V]) Shared() *SharedLock[V] {
	g.shared("Value.Shared").RLock()
	return &SharedLock[V]{gv: g, holding: true}
}

// TryShared attempts the shared acquisition without blocking. The
// returned handle may not be holding; check [SharedLock.Held]. It
// requires [CapRLock] and [CapTryRLock].
func (g *Value[V]) TryShared() *SharedLock[V] {
	g.shared("Value.TryShared")
	return &SharedLock[V]{gv: g, holding: g.tryRLock("Value.TryShared")}
}

// DeferredShared returns a reader handle without acquiring the lock.
// It requires [CapRLock], checked here so a handle that could never
// lock is refused up front.
func (g *Value[V]) DeferredShared() *SharedLock[V] {
	g.shared("Value.DeferredShared")
	return &SharedLock[V]{gv: g}
}

// AdoptShared returns a holding handle for a shared acquisition the
// caller already made, taking over the obligation to release it. The
// caller must in fact hold the lock for reading. It requires
// [CapRLock].
func (g *Value[V]) AdoptShared() *SharedLock[V] {
	g.shared("Value.AdoptShared")
	return &SharedLock[V]{gv: g, holding: true}
}

func (s *SharedLock[V]) attached(op string) *Value[V] {
	if s.gv == nil {
		panic(&OwnershipError{Op: op, Reason: "no associated value"})
	}
	return s.gv
}

func (s *SharedLock[V]) mustNotHold(op string) {
	if s.holding {
		panic(&OwnershipError{Op: op, Reason: "lock already held"})
	}
}

// Lock acquires the lock for reading, blocking until it is available.
// It panics with an [OwnershipError] if the handle is detached or
// already holding.
func (s *SharedLock[V]) Lock() {
	gv := s.attached("SharedLock.Lock")
	s.mustNotHold("SharedLock.Lock")
	gv.shared("SharedLock.Lock").RLock()
	s.holding = true
}

// TryLock attempts the shared acquisition without blocking and reports
// whether the handle now holds the lock. It requires [CapTryRLock] of
// the Value's lock.
func (s *SharedLock[V]) TryLock() bool {
	gv := s.attached("SharedLock.TryLock")
	s.mustNotHold("SharedLock.TryLock")
	s.holding = gv.tryRLock("SharedLock.TryLock")
	return s.holding
}

// TryLockWithTimeout attempts the shared acquisition, giving up after
// d. It requires [CapRLockTimeout] of the Value's lock.
func (s *SharedLock[V]) TryLockWithTimeout(d time.Duration) bool {
	gv := s.attached("SharedLock.TryLockWithTimeout")
	s.mustNotHold("SharedLock.TryLockWithTimeout")
	s.holding = gv.rtimed("SharedLock.TryLockWithTimeout").RTryLockWithTimeout(d)
	return s.holding
}

// TryLockWithContext attempts the shared acquisition until ctx is
// done. It requires [CapRLockContext] of the Value's lock.
func (s *SharedLock[V]) TryLockWithContext(ctx context.Context) bool {
	gv := s.attached("SharedLock.TryLockWithContext")
	s.mustNotHold("SharedLock.TryLockWithContext")
	s.holding = gv.rctxLock("SharedLock.TryLockWithContext").RTryLockWithContext(ctx)
	return s.holding
}

// Unlock releases the shared acquisition. It panics with an
// [OwnershipError] if the handle is not holding it.
func (s *SharedLock[V]) Unlock() {
	gv := s.attached("SharedLock.Unlock")
	if !s.holding {
		panic(&OwnershipError{Op: "SharedLock.Unlock", Reason: "lock not held"})
	}
	s.holding = false
	gv.shared("SharedLock.Unlock").RUnlock()
}

// Held reports whether the handle currently holds the lock for
// reading. It is false for a detached handle.
func (s *SharedLock[V]) Held() bool {
	return s.gv != nil && s.holding
}

// Value returns a copy of the guarded contents. It panics with an
// [OwnershipError] unless the handle is holding the lock; it also
// panics if the value was moved out.
//
// The copy is shallow: if V contains maps, slices, or pointers, the
// caller shares their backing storage with the Value and must not
// mutate it.
func (s *SharedLock[V]) Value() V {
	gv := s.attached("SharedLock.Value")
	if !s.holding {
		panic(&OwnershipError{Op: "SharedLock.Value", Reason: "lock not held"})
	}
	return *gv.ref("SharedLock.Value")
}

// Move transfers the handle's state, holding or not, to a new handle.
// The receiver is left detached.
func (s *SharedLock[V]) Move() *SharedLock[V] {
	gv := s.attached("SharedLock.Move")
	moved := &SharedLock[V]{gv: gv, holding: s.holding}
	s.gv, s.holding = nil, false
	return moved
}

// Release detaches the handle without releasing the lock and returns
// its Value. If the handle was holding, the caller takes over the
// obligation to release the shared acquisition.
func (s *SharedLock[V]) Release() *Value[V] {
	gv := s.attached("SharedLock.Release")
	s.gv, s.holding = nil, false
	return gv
}
