// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !deadlock

package guarded

import "sync"

// DeadlockEnabled is true if the deadlock detector is enabled.
const DeadlockEnabled = false

// A Mutex is this package's default exclusive lock, used by [New]. It
// is a [sync.Mutex] unless built with the deadlock tag, which swaps in
// a variant that reports lock-order inversions and over-long waits.
type Mutex struct {
	sync.Mutex
}

// Unwrap returns the underlying [sync.Mutex].
func (m *Mutex) Unwrap() sync.Locker { return &m.Mutex }

// An RWMutex is this package's default reader/writer lock, used by
// [NewRW]. It is a [sync.RWMutex] unless built with the deadlock tag.
type RWMutex struct {
	sync.RWMutex
}

// Unwrap returns the underlying [sync.RWMutex].
func (m *RWMutex) Unwrap() sync.Locker { return &m.RWMutex }
