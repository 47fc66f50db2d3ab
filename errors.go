// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package guarded

import "fmt"

// An OwnershipError reports a use of a [Value] or one of its lock
// handles that violates the ownership contract: dereferencing without
// holding the lock, releasing a lock that is not held, unlocking twice,
// using a detached handle, or touching a value that was moved out.
//
// It is not returned; it is used in panics to report a programming
// error at the point of misuse.
type OwnershipError struct {
	Op     string // the method that was misused, like "UniqueLock.Value"
	Reason string // the rule that was violated, like "lock not held"
}

func (e *OwnershipError) Error() string {
	return "guarded: " + e.Op + ": " + e.Reason
}

// A CapabilityError reports a call to a capability-gated operation on a
// lock that does not provide the capability. Callers that cannot know
// their lock's shape statically should check [Value.Caps] or [CapsOf]
// instead of recovering from it.
//
// Like [OwnershipError], it is used in panics, not returned.
type CapabilityError struct {
	Op   string // the gated operation, like "Value.RLock"
	Lock string // the dynamic type of the lock, like "*sync.Mutex"
	Need Caps   // the capability the operation requires
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("guarded: %s: %s does not provide %v", e.Op, e.Lock, e.Need)
}
