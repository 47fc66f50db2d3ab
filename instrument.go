// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package guarded

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Logf is the logging function type used by this package. It matches
// [log.Printf] and [testing.T.Logf].
type Logf func(format string, args ...any)

// An InstrumentedMutex wraps a [Lockable] and logs successful
// acquisitions that waited longer than a threshold, keeping a count of
// them. It forwards the wrapped lock's whole capability surface, so a
// [Value] built on it loses nothing; a zero threshold logs every
// acquisition that waited at all.
//
// The zero InstrumentedMutex is not usable; use [NewInstrumentedMutex].
type InstrumentedMutex struct {
	lk        Lockable
	caps      Caps // of lk, plus CapUnwrap
	name      string
	threshold time.Duration
	logf      Logf

	slow atomic.Int64 // acquisitions that waited longer than threshold
}

// NewInstrumentedMutex wraps lk, logging through logf whenever a
// successful acquisition waits longer than threshold. name tags the
// log lines; a nil logf means [log.Printf]. It panics if lk is nil.
func NewInstrumentedMutex(name string, lk Lockable, threshold time.Duration, logf Logf) *InstrumentedMutex {
	if lk == nil {
		panic("guarded: nil lock")
	}
	if logf == nil {
		logf = log.Printf
	}
	return &InstrumentedMutex{
		lk:        lk,
		caps:      CapsOf(lk) | CapUnwrap,
		name:      name,
		threshold: threshold,
		logf:      logf,
	}
}

func (m *InstrumentedMutex) observe(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > m.threshold {
		m.slow.Add(1)
		m.logf("guarded: %s: %s acquired after %v", m.name, op, elapsed)
	}
}

func (m *InstrumentedMutex) need(op string, c Caps) {
	if !m.caps.Has(c) {
		panic(&CapabilityError{Op: op, Lock: lockName(m.lk), Need: c})
	}
}

// Lock acquires the wrapped lock, logging if the wait exceeded the
// threshold.
func (m *InstrumentedMutex) Lock() {
	start := time.Now()
	m.lk.Lock()
	m.observe("Lock", start)
}

// TryLock attempts the acquisition without blocking. It is never
// logged.
func (m *InstrumentedMutex) TryLock() bool {
	return m.lk.TryLock()
}

// TryLockWithTimeout forwards to the wrapped lock, which must provide
// [CapTryLockTimeout].
func (m *InstrumentedMutex) TryLockWithTimeout(d time.Duration) bool {
	m.need("InstrumentedMutex.TryLockWithTimeout", CapTryLockTimeout)
	start := time.Now()
	ok := m.lk.(timedLocker).TryLockWithTimeout(d)
	if ok {
		m.observe("TryLockWithTimeout", start)
	}
	return ok
}

// TryLockWithContext forwards to the wrapped lock, which must provide
// [CapTryLockContext].
func (m *InstrumentedMutex) TryLockWithContext(ctx context.Context) bool {
	m.need("InstrumentedMutex.TryLockWithContext", CapTryLockContext)
	start := time.Now()
	ok := m.lk.(ctxLocker).TryLockWithContext(ctx)
	if ok {
		m.observe("TryLockWithContext", start)
	}
	return ok
}

// Unlock releases the wrapped lock.
func (m *InstrumentedMutex) Unlock() {
	m.lk.Unlock()
}

// RLock acquires the wrapped lock for reading, logging if the wait
// exceeded the threshold. The lock must provide [CapRLock].
func (m *InstrumentedMutex) RLock() {
	m.need("InstrumentedMutex.RLock", CapRLock)
	start := time.Now()
	m.lk.(rLocker).RLock()
	m.observe("RLock", start)
}

// TryRLock attempts the shared acquisition without blocking. The lock
// must provide [CapTryRLock].
func (m *InstrumentedMutex) TryRLock() bool {
	m.need("InstrumentedMutex.TryRLock", CapTryRLock)
	if lk, ok := m.lk.(tryRLocker); ok {
		return lk.TryRLock()
	}
	return m.lk.(rTryLocker).RTryLock()
}

// RUnlock releases a shared acquisition of the wrapped lock, which
// must provide [CapRLock].
func (m *InstrumentedMutex) RUnlock() {
	m.need("InstrumentedMutex.RUnlock", CapRLock)
	m.lk.(rLocker).RUnlock()
}

// RTryLockWithTimeout forwards to the wrapped lock, which must provide
// [CapRLockTimeout].
func (m *InstrumentedMutex) RTryLockWithTimeout(d time.Duration) bool {
	m.need("InstrumentedMutex.RTryLockWithTimeout", CapRLockTimeout)
	start := time.Now()
	ok := m.lk.(timedRLocker).RTryLockWithTimeout(d)
	if ok {
		m.observe("RTryLockWithTimeout", start)
	}
	return ok
}

// RTryLockWithContext forwards to the wrapped lock, which must provide
// [CapRLockContext].
func (m *InstrumentedMutex) RTryLockWithContext(ctx context.Context) bool {
	m.need("InstrumentedMutex.RTryLockWithContext", CapRLockContext)
	start := time.Now()
	ok := m.lk.(ctxRLocker).RTryLockWithContext(ctx)
	if ok {
		m.observe("RTryLockWithContext", start)
	}
	return ok
}

// Caps reports the wrapped lock's capabilities plus [CapUnwrap]. This
// makes InstrumentedMutex a [Capper], so wrapping never inflates the
// capability surface.
func (m *InstrumentedMutex) Caps() Caps { return m.caps }

// Unwrap returns the wrapped lock.
func (m *InstrumentedMutex) Unwrap() sync.Locker { return m.lk }

// SlowAcquisitions reports how many acquisitions have waited longer
// than the threshold so far.
func (m *InstrumentedMutex) SlowAcquisitions() int64 {
	return m.slow.Load()
}
