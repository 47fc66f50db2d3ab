// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package guarded

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// A SemaMutex is an exclusive lock built on a weighted semaphore of
// size one, giving it the bounded-wait capabilities the stdlib mutexes
// lack: [CapTryLockTimeout] and [CapTryLockContext].
//
// Unlike a [sync.Mutex] it has no ownership notion at all: any
// goroutine may unlock it, and cancellation of a waiting acquisition
// is clean. The zero SemaMutex is not usable; use [NewSemaMutex].
type SemaMutex struct {
	sem *semaphore.Weighted
}

// NewSemaMutex returns a new unlocked SemaMutex.
func NewSemaMutex() *SemaMutex {
	return &SemaMutex{sem: semaphore.NewWeighted(1)}
}

// Lock acquires the mutex, blocking until it is available.
func (m *SemaMutex) Lock() {
	// Acquire can only fail when the context is done.
	if err := m.sem.Acquire(context.Background(), 1); err != nil {
		panic("guarded: SemaMutex: " + err.Error())
	}
}

// TryLock attempts to acquire the mutex without blocking and reports
// whether it succeeded.
func (m *SemaMutex) TryLock() bool {
	return m.sem.TryAcquire(1)
}

// TryLockWithTimeout attempts to acquire the mutex, giving up after d.
func (m *SemaMutex) TryLockWithTimeout(d time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return m.sem.Acquire(ctx, 1) == nil
}

// TryLockWithContext attempts to acquire the mutex until ctx is done,
// whether by deadline or cancellation. A ctx that is already done
// fails the acquisition even if the mutex is free.
func (m *SemaMutex) TryLockWithContext(ctx context.Context) bool {
	return m.sem.Acquire(ctx, 1) == nil
}

// Unlock releases the mutex. It panics if the mutex is not locked.
func (m *SemaMutex) Unlock() {
	m.sem.Release(1)
}
