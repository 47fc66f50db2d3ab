// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build deadlock

package guarded

import (
	"sync"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// DeadlockEnabled is true if the deadlock detector is enabled.
const DeadlockEnabled = true

func init() {
	deadlock.Opts.DeadlockTimeout = 30 * time.Second
}

// In this build [Mutex] and [RWMutex] report lock-order inversions and
// over-long waits through github.com/sasha-s/go-deadlock.
//
// Exclusion still lives in the sync primitive; the detector's lock
// brackets only blocking acquisitions. Try acquisitions stay off the
// detector on purpose: opportunistic lockers such as lockPair probe
// locks in varying order, which the detector would misreport as an
// inversion, and the detector's types cannot express a failed
// acquisition anyway.

// A Mutex is this package's default exclusive lock, used by [New],
// built here with deadlock detection on the blocking path.
type Mutex struct {
	det  deadlock.Mutex // engages the detector; held while mu is held via Lock
	mu   sync.Mutex     // provides the exclusion and the try path
	viaD bool           // whether det is held; written only while mu is held
}

// Lock acquires the mutex, blocking until it is available.
func (m *Mutex) Lock() {
	m.det.Lock()
	m.mu.Lock()
	m.viaD = true
}

// TryLock attempts to acquire the mutex without blocking and reports
// whether it succeeded.
func (m *Mutex) TryLock() bool {
	if !m.mu.TryLock() {
		return false
	}
	m.viaD = false
	return true
}

// Unlock releases the mutex.
func (m *Mutex) Unlock() {
	viaD := m.viaD
	m.mu.Unlock()
	if viaD {
		m.det.Unlock()
	}
}

// Unwrap returns the underlying [sync.Mutex].
func (m *Mutex) Unwrap() sync.Locker { return &m.mu }

// An RWMutex is this package's default reader/writer lock, used by
// [NewRW], built here with deadlock detection on the writer's blocking
// path. Reader acquisitions do not engage the detector.
type RWMutex struct {
	det  deadlock.Mutex // engages the detector for blocking writers
	mu   sync.RWMutex   // provides the exclusion and the reader and try paths
	viaD bool           // whether det is held; written only while mu is write-held
}

// Lock acquires the mutex for writing, blocking until it is available.
func (m *RWMutex) Lock() {
	m.det.Lock()
	m.mu.Lock()
	m.viaD = true
}

// TryLock attempts to acquire the mutex for writing without blocking
// and reports whether it succeeded.
func (m *RWMutex) TryLock() bool {
	if !m.mu.TryLock() {
		return false
	}
	m.viaD = false
	return true
}

// Unlock releases the mutex after [RWMutex.Lock].
func (m *RWMutex) Unlock() {
	viaD := m.viaD
	m.mu.Unlock()
	if viaD {
		m.det.Unlock()
	}
}

// RLock acquires the mutex for reading.
func (m *RWMutex) RLock() { m.mu.RLock() }

// TryRLock attempts to acquire the mutex for reading without blocking
// and reports whether it succeeded.
func (m *RWMutex) TryRLock() bool { return m.mu.TryRLock() }

// RUnlock releases the mutex after [RWMutex.RLock].
func (m *RWMutex) RUnlock() { m.mu.RUnlock() }

// RLocker returns a [sync.Locker] that locks and unlocks the reader
// side.
func (m *RWMutex) RLocker() sync.Locker { return m.mu.RLocker() }

// Unwrap returns the underlying [sync.RWMutex].
func (m *RWMutex) Unwrap() sync.Locker { return &m.mu }
