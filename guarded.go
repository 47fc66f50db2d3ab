// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package guarded

import (
	"context"
	"sync"
	"time"
)

// A Value guards a value of type V with a lock, so the value cannot be
// read or written without holding it.
//
// The contents are reached through whole-value operations that acquire
// the lock internally ([Value.Get], [Value.Set], [Value.Swap],
// [Value.WithLock]), through a scope-bound [Guard], or through the
// movable [UniqueLock] and [SharedLock] handles.
//
// The lock is chosen at construction and may be any [Lockable]. The
// three unconditional lock methods are always available on the Value
// itself; everything else the lock can do (bounded waits, a reader
// side, unwrapping) surfaces as capability-gated methods that panic
// with a [CapabilityError] when the lock lacks the ability. Use
// [Value.Caps] to check before calling.
//
// A Value is itself a [Lockable] (and a [Capper]), so it can serve as
// the lock of another Value or be handed to anything expecting a
// [sync.Locker].
//
// The zero Value has no lock and is not usable; use [New], [NewRW], or
// [NewWith].
type Value[V any] struct {
	lk   Lockable
	caps Caps // of lk, fixed at construction

	// moved is whether the value was moved out and not yet replaced.
	// It is written only under the exclusive lock and read under
	// either side of it.
	moved bool

	// v is the guarded value.
	v V
}

// New returns a Value guarding v with a new [Mutex].
func New[V any](v V) *Value[V] {
	return NewWith(v, new(Mutex))
}

// NewRW returns a Value guarding v with a new [RWMutex], so the shared
// (reader) capabilities are available.
func NewRW[V any](v V) *Value[V] {
	return NewWith(v, new(RWMutex))
}

// NewWith returns a Value guarding v with lk.
//
// The Value takes sole ownership of lk: acquiring or releasing it
// other than through the returned Value (or a handle derived from it)
// violates the guarantees of this package. It panics if lk is nil.
func NewWith[V any](v V, lk Lockable) *Value[V] {
	if lk == nil {
		panic("guarded: nil lock")
	}
	return &Value[V]{lk: lk, caps: CapsOf(lk), v: v}
}

// Lock acquires the lock exclusively, blocking until it is available.
func (g *Value[V]) Lock() { g.lk.Lock() }

// TryLock attempts to acquire the lock exclusively without blocking
// and reports whether it succeeded.
func (g *Value[V]) TryLock() bool { return g.lk.TryLock() }

// Unlock releases the lock after [Value.Lock] or a successful try
// variant.
func (g *Value[V]) Unlock() { g.lk.Unlock() }

// TryLockWithTimeout attempts to acquire the lock exclusively, giving
// up after d. It requires [CapTryLockTimeout].
func (g *Value[V]) TryLockWithTimeout(d time.Duration) bool {
	return g.timed("Value.TryLockWithTimeout").TryLockWithTimeout(d)
}

// TryLockWithContext attempts to acquire the lock exclusively until
// ctx is done, whether by deadline or cancellation. It requires
// [CapTryLockContext].
func (g *Value[V]) TryLockWithContext(ctx context.Context) bool {
	return g.ctxLock("Value.TryLockWithContext").TryLockWithContext(ctx)
}

// RLock acquires the lock for reading. It requires [CapRLock].
func (g *Value[V]) RLock() {
	g.shared("Value.RLock").RLock()
}

// RUnlock releases the lock after [Value.RLock] or a successful shared
// try variant. It requires [CapRLock].
func (g *Value[V]) RUnlock() {
	g.shared("Value.RUnlock").RUnlock()
}

// TryRLock attempts to acquire the lock for reading without blocking
// and reports whether it succeeded. It requires [CapTryRLock].
func (g *Value[V]) TryRLock() bool {
	return g.tryRLock("Value.TryRLock")
}

// RTryLockWithTimeout attempts to acquire the lock for reading, giving
// up after d. It requires [CapRLockTimeout].
func (g *Value[V]) RTryLockWithTimeout(d time.Duration) bool {
	return g.rtimed("Value.RTryLockWithTimeout").RTryLockWithTimeout(d)
}

// RTryLockWithContext attempts to acquire the lock for reading until
// ctx is done. It requires [CapRLockContext].
func (g *Value[V]) RTryLockWithContext(ctx context.Context) bool {
	return g.rctxLock("Value.RTryLockWithContext").RTryLockWithContext(ctx)
}

// RLocker returns a [sync.Locker] whose Lock and Unlock are the
// Value's RLock and RUnlock, for use with [sync.Cond] and other Locker
// consumers. It requires [CapRLock].
func (g *Value[V]) RLocker() sync.Locker {
	return rlockerView{g.shared("Value.RLocker")}
}

// Unwrap returns the primitive beneath the lock, for interop with code
// that wants the raw [sync.Locker]. It requires [CapUnwrap].
func (g *Value[V]) Unwrap() sync.Locker {
	if !g.caps.Has(CapUnwrap) {
		panic(&CapabilityError{Op: "Value.Unwrap", Lock: lockName(g.lk), Need: CapUnwrap})
	}
	return g.lk.(unwrapper).Unwrap()
}

// Caps reports the capabilities of the lock, as probed at
// construction. This makes Value a [Capper].
func (g *Value[V]) Caps() Caps { return g.caps }

// Locker returns the lock itself.
//
// The lock is shared with the Value: acquiring it directly is
// equivalent to calling the Value's own lock methods, and the caller
// is responsible for pairing acquisitions with releases.
func (g *Value[V]) Locker() Lockable { return g.lk }

// rlockerView adapts a lock's reader side to [sync.Locker].
type rlockerView struct{ lk rLocker }

func (r rlockerView) Lock()   { r.lk.RLock() }
func (r rlockerView) Unlock() { r.lk.RUnlock() }

// Capability-gated views of g.lk. Each panics with a [CapabilityError]
// naming op if the lock lacks the ability; the type assertions cannot
// fail afterwards unless a [Capper] reported capabilities it does not
// have.

func (g *Value[V]) timed(op string) timedLocker {
	if !g.caps.Has(CapTryLockTimeout) {
		panic(&CapabilityError{Op: op, Lock: lockName(g.lk), Need: CapTryLockTimeout})
	}
	return g.lk.(timedLocker)
}

func (g *Value[V]) ctxLock(op string) ctxLocker {
	if !g.caps.Has(CapTryLockContext) {
		panic(&CapabilityError{Op: op, Lock: lockName(g.lk), Need: CapTryLockContext})
	}
	return g.lk.(ctxLocker)
}

func (g *Value[V]) shared(op string) rLocker {
	if !g.caps.Has(CapRLock) {
		panic(&CapabilityError{Op: op, Lock: lockName(g.lk), Need: CapRLock})
	}
	return g.lk.(rLocker)
}

func (g *Value[V]) tryRLock(op string) bool {
	if !g.caps.Has(CapTryRLock) {
		panic(&CapabilityError{Op: op, Lock: lockName(g.lk), Need: CapTryRLock})
	}
	if lk, ok := g.lk.(tryRLocker); ok {
		return lk.TryRLock()
	}
	return g.lk.(rTryLocker).RTryLock()
}

func (g *Value[V]) rtimed(op string) timedRLocker {
	if !g.caps.Has(CapRLockTimeout) {
		panic(&CapabilityError{Op: op, Lock: lockName(g.lk), Need: CapRLockTimeout})
	}
	return g.lk.(timedRLocker)
}

func (g *Value[V]) rctxLock(op string) ctxRLocker {
	if !g.caps.Has(CapRLockContext) {
		panic(&CapabilityError{Op: op, Lock: lockName(g.lk), Need: CapRLockContext})
	}
	return g.lk.(ctxRLocker)
}

// ref returns a pointer to the guarded value. The caller must hold the
// lock. It panics with an [OwnershipError] naming op if the value was
// moved out.
func (g *Value[V]) ref(op string) *V {
	if g.moved {
		panic(&OwnershipError{Op: op, Reason: "value moved out"})
	}
	return &g.v
}

// read returns a copy of the guarded value, acquiring the reader side
// of the lock when it has one and the exclusive side otherwise.
func (g *Value[V]) read(op string) V {
	if g.caps.Has(CapRLock) {
		lk := g.lk.(rLocker)
		lk.RLock()
		defer lk.RUnlock()
		return *g.ref(op)
	}
	g.lk.Lock()
	defer g.lk.Unlock()
	return *g.ref(op)
}

// Get returns a copy of the guarded value, using the reader side of
// the lock when it has one. It panics with an [OwnershipError] if the
// value was moved out.
//
// The copy is shallow: if V contains maps, slices, or pointers, the
// caller shares their backing storage with the Value.
func (g *Value[V]) Get() V {
	return g.read("Value.Get")
}

// Set stores v as the guarded value. Storing into a Value whose
// contents were moved out makes it usable again.
func (g *Value[V]) Set(v V) {
	g.lk.Lock()
	defer g.lk.Unlock()
	g.v = v
	g.moved = false
}

// Swap stores v as the guarded value and returns the previous value.
func (g *Value[V]) Swap(v V) (old V) {
	g.lk.Lock()
	defer g.lk.Unlock()
	old = *g.ref("Value.Swap")
	g.v = v
	return old
}

// WithLock calls f with a pointer to the guarded value while holding
// the lock exclusively. The pointer must not be used after f returns.
func (g *Value[V]) WithLock(f func(p *V)) {
	g.lk.Lock()
	defer g.lk.Unlock()
	f(g.ref("Value.WithLock"))
}

// Take moves the value out, leaving g moved-out: accesses other than
// [Value.Set], [Value.CopyFrom], and [Value.MoveFrom] panic with an
// [OwnershipError] until a new value is stored. The lock itself
// remains usable throughout.
func (g *Value[V]) Take() V {
	g.lk.Lock()
	defer g.lk.Unlock()
	v := *g.ref("Value.Take")
	var zero V
	g.v = zero
	g.moved = true
	return v
}

// Moved reports whether the value is currently moved out. Like
// [Value.Get] it uses the reader side of the lock when it has one.
func (g *Value[V]) Moved() bool {
	if g.caps.Has(CapRLock) {
		lk := g.lk.(rLocker)
		lk.RLock()
		defer lk.RUnlock()
		return g.moved
	}
	g.lk.Lock()
	defer g.lk.Unlock()
	return g.moved
}

// Clone returns a new Value guarding a copy of g's value. The copy is
// made under g's lock. The clone gets its own new [Mutex]; use
// [CloneWith] to choose a different lock.
func (g *Value[V]) Clone() *Value[V] {
	return CloneWith(g, new(Mutex))
}

// CloneWith returns a new Value guarding a copy of g's value, guarded
// by lk. The copy is made under g's lock, so it observes no tearing
// even while g is being written elsewhere. It panics if lk is nil.
func CloneWith[V any](g *Value[V], lk Lockable) *Value[V] {
	if lk == nil {
		panic("guarded: nil lock")
	}
	return &Value[V]{lk: lk, caps: CapsOf(lk), v: g.read("CloneWith")}
}

// CopyFrom replaces g's value with a copy of src's, holding both locks
// for the duration so the transfer is a single atomic step to all
// observers. Copying from itself is a no-op. Two goroutines copying
// between the same pair in opposite directions will not deadlock.
func (g *Value[V]) CopyFrom(src *Value[V]) {
	if g == src {
		return
	}
	lockPair(g.lk, src.lk)
	defer unlockPair(g.lk, src.lk)
	g.v = *src.ref("Value.CopyFrom")
	g.moved = false
}

// MoveFrom moves src's value into g, holding both locks for the
// duration. Afterwards src is moved-out: accesses to it panic with an
// [OwnershipError] until a new value is stored. Moving from itself is
// a no-op.
func (g *Value[V]) MoveFrom(src *Value[V]) {
	if g == src {
		return
	}
	lockPair(g.lk, src.lk)
	defer unlockPair(g.lk, src.lk)
	g.v = *src.ref("Value.MoveFrom")
	g.moved = false
	var zero V
	src.v = zero
	src.moved = true
}
