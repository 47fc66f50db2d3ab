// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package guarded

import (
	"runtime"
	"time"
)

// Cross-value operations must hold both locks at once. There is no
// global acquisition order to lean on (callers hand us arbitrary locks
// in arbitrary roles), so lockPair acquires opportunistically: block on
// one lock, attempt the other, and on failure release everything and
// retry with the roles swapped. Swapping makes the goroutine that lost
// the race block on the lock its rival holds, so two goroutines
// copying in opposite directions cannot spin against each other
// forever.

const pairSpins = 8 // retries before lockPair starts sleeping

// lockPair acquires a and b, blocking until it holds both.
// If a and b are the same lock it is acquired once.
func lockPair(a, b Lockable) {
	if a == b {
		a.Lock()
		return
	}
	for spin := 0; ; spin++ {
		a.Lock()
		if b.TryLock() {
			return
		}
		a.Unlock()
		if spin < pairSpins {
			runtime.Gosched()
		} else {
			time.Sleep(pairBackoff(spin - pairSpins))
		}
		a, b = b, a
	}
}

// unlockPair releases locks acquired by lockPair.
func unlockPair(a, b Lockable) {
	if a == b {
		a.Unlock()
		return
	}
	b.Unlock()
	a.Unlock()
}

// pairBackoff returns the sleep before retry n, doubling from 1µs and
// capped at 1ms so a long-held peer lock doesn't turn retries into a
// busy loop.
func pairBackoff(n int) time.Duration {
	d := time.Microsecond << min(n, 10)
	if d > time.Millisecond {
		return time.Millisecond
	}
	return d
}
