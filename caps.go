// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package guarded

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// A Lockable is the minimum contract a lock must satisfy to guard a
// [Value]: blocking exclusive acquisition, a non-blocking attempt, and
// release.
//
// [sync.Mutex] and [sync.RWMutex] satisfy Lockable, as do this
// package's [Mutex], [RWMutex], [RecursiveMutex], and [SemaMutex], and
// the go-lock library's ChanMutex and CASMutex. Anything beyond these
// three methods is a capability, discovered at runtime with [CapsOf].
type Lockable interface {
	Lock()
	TryLock() bool
	Unlock()
}

// Caps is a bit set describing the optional abilities of a [Lockable].
type Caps uint16

const (
	// CapTryLockTimeout is set when the lock implements
	//	TryLockWithTimeout(time.Duration) bool
	CapTryLockTimeout Caps = 1 << iota

	// CapTryLockContext is set when the lock implements
	//	TryLockWithContext(context.Context) bool
	CapTryLockContext

	// CapRLock is set when the lock implements
	//	RLock()
	//	RUnlock()
	CapRLock

	// CapTryRLock is set when the lock implements either spelling of a
	// non-blocking shared acquisition:
	//	TryRLock() bool // as in sync.RWMutex
	//	RTryLock() bool // as in go-lock
	CapTryRLock

	// CapRLockTimeout is set when the lock implements
	//	RTryLockWithTimeout(time.Duration) bool
	CapRLockTimeout

	// CapRLockContext is set when the lock implements
	//	RTryLockWithContext(context.Context) bool
	CapRLockContext

	// CapUnwrap is set when the lock implements
	//	Unwrap() sync.Locker
	// exposing the primitive beneath it.
	CapUnwrap
)

// Has reports whether c includes every capability in want.
func (c Caps) Has(want Caps) bool { return c&want == want }

var capNames = [...]struct {
	bit  Caps
	name string
}{
	{CapTryLockTimeout, "TryLockWithTimeout"},
	{CapTryLockContext, "TryLockWithContext"},
	{CapRLock, "RLock"},
	{CapTryRLock, "TryRLock"},
	{CapRLockTimeout, "RTryLockWithTimeout"},
	{CapRLockContext, "RTryLockWithContext"},
	{CapUnwrap, "Unwrap"},
}

// String returns the capabilities as the method names they stand for,
// joined by "|", or "none" for the empty set.
func (c Caps) String() string {
	if c == 0 {
		return "none"
	}
	var sb strings.Builder
	for _, cn := range capNames {
		if c&cn.bit != 0 {
			if sb.Len() > 0 {
				sb.WriteByte('|')
			}
			sb.WriteString(cn.name)
		}
	}
	return sb.String()
}

// A Capper self-reports its capabilities, overriding structural
// probing in [CapsOf].
//
// Locks that wrap another lock declare every gated method and so would
// probe as all-capable; implementing Capper lets them report the
// wrapped lock's true capabilities instead. Reported capabilities must
// be backed by the corresponding methods. [Value] and
// [InstrumentedMutex] both implement Capper.
type Capper interface {
	Caps() Caps
}

// Probe targets for [CapsOf]. Each matches the method set named by the
// corresponding Caps bit.
type (
	timedLocker  interface{ TryLockWithTimeout(time.Duration) bool }
	ctxLocker    interface{ TryLockWithContext(context.Context) bool }
	tryRLocker   interface{ TryRLock() bool }
	rTryLocker   interface{ RTryLock() bool }
	timedRLocker interface{ RTryLockWithTimeout(time.Duration) bool }
	ctxRLocker   interface{ RTryLockWithContext(context.Context) bool }
	unwrapper    interface{ Unwrap() sync.Locker }

	rLocker interface {
		RLock()
		RUnlock()
	}
)

// CapsOf reports the capabilities of lk.
//
// If lk implements [Capper] its self-report is trusted; otherwise the
// capabilities are probed structurally with type assertions. Probing
// never acquires the lock.
func CapsOf(lk Lockable) Caps {
	if c, ok := lk.(Capper); ok {
		return c.Caps()
	}
	var caps Caps
	if _, ok := lk.(timedLocker); ok {
		caps |= CapTryLockTimeout
	}
	if _, ok := lk.(ctxLocker); ok {
		caps |= CapTryLockContext
	}
	if _, ok := lk.(rLocker); ok {
		caps |= CapRLock
	}
	if _, ok := lk.(tryRLocker); ok {
		caps |= CapTryRLock
	} else if _, ok := lk.(rTryLocker); ok {
		caps |= CapTryRLock
	}
	if _, ok := lk.(timedRLocker); ok {
		caps |= CapRLockTimeout
	}
	if _, ok := lk.(ctxRLocker); ok {
		caps |= CapRLockContext
	}
	if _, ok := lk.(unwrapper); ok {
		caps |= CapUnwrap
	}
	return caps
}

func lockName(lk Lockable) string {
	return fmt.Sprintf("%T", lk)
}
