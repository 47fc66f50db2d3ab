// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package guarded

import (
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// A RecursiveMutex is an exclusive lock that its owning goroutine may
// acquire again while already holding it; the lock is released when
// the unlocks match the locks. Goroutine identity comes from
// github.com/petermattis/goid.
//
// It lets a [Value] tolerate nested acquisition in one goroutine, such
// as a [Guard] taken inside a [Value.WithLock] callback, at the price
// of binding ownership to a goroutine: unlocking from any other
// goroutine panics.
//
// The zero RecursiveMutex is an unlocked mutex.
type RecursiveMutex struct {
	mu sync.Mutex

	// owner is the goid of the holder, or 0 when unheld. Only the
	// holder moves it away from its own id.
	owner atomic.Int64

	// depth is the net lock count; touched only by the owner.
	depth int32
}

// Lock acquires the mutex, blocking until it is available unless the
// calling goroutine already holds it.
func (m *RecursiveMutex) Lock() {
	id := goid.Get()
	if m.owner.Load() == id {
		m.depth++
		return
	}
	m.mu.Lock()
	m.owner.Store(id)
	m.depth = 1
}

// TryLock attempts to acquire the mutex without blocking and reports
// whether it succeeded. It always succeeds for the goroutine already
// holding the mutex.
func (m *RecursiveMutex) TryLock() bool {
	id := goid.Get()
	if m.owner.Load() == id {
		m.depth++
		return true
	}
	if !m.mu.TryLock() {
		return false
	}
	m.owner.Store(id)
	m.depth = 1
	return true
}

// Unlock undoes one acquisition, releasing the mutex once every Lock
// has been matched. It panics if the mutex is not locked or the
// calling goroutine is not the owner.
func (m *RecursiveMutex) Unlock() {
	id := goid.Get()
	switch owner := m.owner.Load(); owner {
	case id:
	case 0:
		panic("guarded: RecursiveMutex: not locked")
	default:
		panic("guarded: RecursiveMutex: unlocked by a goroutine that does not hold it")
	}
	m.depth--
	if m.depth == 0 {
		m.owner.Store(0)
		m.mu.Unlock()
	}
}

// Unwrap returns the underlying [sync.Mutex]. Acquiring it directly
// bypasses the ownership bookkeeping.
func (m *RecursiveMutex) Unwrap() sync.Locker { return &m.mu }
