// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package guarded

import (
	"fmt"
	"testing"
)

// tryFromElsewhere runs m.TryLock on another goroutine, unlocking again
// on success. Owner-side helpers cannot be used on a RecursiveMutex:
// for the holding goroutine TryLock reenters instead of failing.
func tryFromElsewhere(m *RecursiveMutex) bool {
	got := make(chan bool)
	go func() {
		if m.TryLock() {
			m.Unlock()
			got <- true
			return
		}
		got <- false
	}()
	return <-got
}

func TestRecursiveMutexNesting(t *testing.T) {
	var m RecursiveMutex
	m.Lock()
	m.Lock()
	if !m.TryLock() {
		t.Fatal("owner's TryLock refused")
	}
	if tryFromElsewhere(&m) {
		t.Fatal("another goroutine acquired a held recursive mutex")
	}
	m.Unlock()
	m.Unlock()
	if tryFromElsewhere(&m) {
		t.Fatal("released after fewer unlocks than locks")
	}
	m.Unlock()
	if !tryFromElsewhere(&m) {
		t.Fatal("still held after matching unlocks")
	}
}

func TestRecursiveMutexUnlockPanics(t *testing.T) {
	var m RecursiveMutex
	wantPanic(t, "guarded: RecursiveMutex: not locked", m.Unlock)

	m.Lock()
	panicked := make(chan any)
	go func() {
		defer func() { panicked <- recover() }()
		m.Unlock()
	}()
	r := <-panicked
	if r == nil {
		t.Fatal("cross-goroutine unlock did not panic")
	}
	const want = "guarded: RecursiveMutex: unlocked by a goroutine that does not hold it"
	if got := fmt.Sprint(r); got != want {
		t.Errorf("panic: %v; want %q", r, want)
	}
	m.Unlock()
}

func TestRecursiveMutexUnwrap(t *testing.T) {
	var m RecursiveMutex
	inner := m.Unwrap()
	inner.Lock()
	if tryFromElsewhere(&m) {
		t.Fatal("acquired while the unwrapped lock is held")
	}
	inner.Unlock()
}

// TestNestedGuards takes a second Guard on the same Value inside the
// first, in one goroutine. With a RecursiveMutex beneath it this nests
// instead of self-deadlocking.
func TestNestedGuards(t *testing.T) {
	g := NewWith(map[string]int{"n": 1}, new(RecursiveMutex))
	gd := g.Guard()
	(*gd.Value())["n"] = 2

	inner := g.Guard()
	if got := (*inner.Value())["n"]; got != 2 {
		t.Errorf("inner guard sees n=%v; want 2", got)
	}
	inner.Unlock()

	// The outer guard still holds the lock.
	held := make(chan bool)
	go func() { held <- !g.TryLock() }()
	if !<-held {
		t.Error("lock free after the inner unlock")
	}

	gd.Unlock()
	freed := make(chan bool)
	go func() {
		if !g.TryLock() {
			freed <- false
			return
		}
		g.Unlock()
		freed <- true
	}()
	if !<-freed {
		t.Error("lock still held after the outer unlock")
	}
}

func TestNestedWithLock(t *testing.T) {
	g := NewWith(0, new(RecursiveMutex))
	g.WithLock(func(p *int) {
		*p = 1
		g.WithLock(func(q *int) { *q++ })
	})
	if got := g.Get(); got != 2 {
		t.Errorf("Get() = %v; want 2", got)
	}
}
