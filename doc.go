// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package guarded binds a value to the lock that guards it, so the
// value cannot be read or written without holding the lock.
//
// A [Value] owns both the value and the lock. Its contents are reached
// through whole-value operations that lock internally ([Value.Get],
// [Value.Set], [Value.WithLock], [Value.CopyFrom]), through the
// scope-bound [Guard], or through the movable [UniqueLock] and
// [SharedLock] handles that mirror the deferred, try, and adopt
// acquisition disciplines. Dereferencing a handle that does not hold
// the lock, or a value that was moved out, panics with an
// [OwnershipError] rather than yielding stale data.
//
// Any lock satisfying [Lockable] can guard a Value: the stdlib
// mutexes, this package's [Mutex], [RWMutex], [RecursiveMutex], and
// [SemaMutex], or third-party locks such as go-lock's ChanMutex and
// CASMutex. What else a lock can do beyond Lock, TryLock, and Unlock
// is probed at runtime ([CapsOf]) and surfaces as capability-gated
// methods. Calling a gated method on a lock without the capability
// panics with a [CapabilityError]; there is no silent fallback.
//
// Copying and moving between two Values holds both locks as one atomic
// step, acquired with an order-free retry so concurrent transfers in
// opposite directions cannot deadlock.
//
// Builds with the deadlock tag swap the default primitives for
// variants that report lock-order inversions and over-long waits via
// github.com/sasha-s/go-deadlock.
//
// Example:
//
//	reg := guarded.NewRW(map[string]int{})
//
//	// Writer.
//	reg.WithLock(func(m *map[string]int) {
//		(*m)["alpha"] = 1
//	})
//
//	// Concurrent readers.
//	s := reg.Shared()
//	fmt.Println(s.Value()["alpha"])
//	s.Unlock()
package guarded
