// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package guarded

import (
	"sync"
	"testing"
)

func TestMutex(t *testing.T) {
	var m Mutex
	m.Lock()
	if m.TryLock() {
		t.Fatal("TryLock succeeded on a held mutex")
	}
	m.Unlock()
	if !m.TryLock() {
		t.Fatal("TryLock failed on a free mutex")
	}
	m.Unlock()
}

func TestMutexUnwrap(t *testing.T) {
	var m Mutex
	inner := m.Unwrap()
	inner.Lock()
	if m.TryLock() {
		t.Fatal("acquired while the unwrapped lock is held")
	}
	inner.Unlock()
	if !m.TryLock() {
		t.Fatal("TryLock failed on a free mutex")
	}
	m.Unlock()
}

func TestRWMutex(t *testing.T) {
	var m RWMutex
	m.RLock()
	if m.TryLock() {
		t.Fatal("writer admitted under a reader")
	}
	if !m.TryRLock() {
		t.Fatal("second reader refused")
	}
	m.RUnlock()
	m.RUnlock()

	m.Lock()
	if m.TryRLock() {
		t.Fatal("reader admitted under a writer")
	}
	m.Unlock()

	rl := m.RLocker()
	rl.Lock()
	if m.TryLock() {
		t.Fatal("writer admitted under an RLocker reader")
	}
	rl.Unlock()
}

func TestRWMutexUnwrap(t *testing.T) {
	var m RWMutex
	inner := m.Unwrap()
	inner.Lock()
	if m.TryLock() {
		t.Fatal("acquired while the unwrapped lock is held")
	}
	inner.Unlock()
}

// TestMutexInterleavedAcquisition alternates blocking and non-blocking
// acquisition paths; under the deadlock build tag these take different
// routes through the detector and must still exclude each other.
func TestMutexInterleavedAcquisition(t *testing.T) {
	var m Mutex
	var wg sync.WaitGroup
	n := 0
	for range 4 {
		wg.Go(func() {
			for range 25 {
				m.Lock()
				n++
				m.Unlock()
				for !m.TryLock() {
				}
				n++
				m.Unlock()
			}
		})
	}
	wg.Wait()
	if n != 200 {
		t.Errorf("n = %v; want 200", n)
	}
}
