// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package guarded

import (
	"context"
	"testing"
	"time"
)

func TestUniqueModes(t *testing.T) {
	t.Run("Immediate", func(t *testing.T) {
		g := New(1)
		u := g.Unique()
		if !u.Held() {
			t.Fatal("handle not holding after Unique")
		}
		wantLocked(t, g.Locker())
		if got := *u.Value(); got != 1 {
			t.Errorf("Value() = %v; want 1", got)
		}
		u.Unlock()
		if u.Held() {
			t.Error("handle still holding after Unlock")
		}
		wantUnlocked(t, g.Locker())
	})

	t.Run("Try", func(t *testing.T) {
		g := New(1)
		u := g.TryUnique()
		if !u.Held() {
			t.Fatal("try failed on a free lock")
		}
		if g.TryUnique().Held() {
			t.Error("second try succeeded on a held lock")
		}
		u.Unlock()
	})

	t.Run("Deferred", func(t *testing.T) {
		g := New(1)
		u := g.DeferredUnique()
		if u.Held() {
			t.Fatal("deferred handle reports holding")
		}
		wantUnlocked(t, g.Locker())
		wantPanic(t, "guarded: UniqueLock.Value: lock not held", func() { u.Value() })
		u.Lock()
		if !u.Held() {
			t.Fatal("handle not holding after Lock")
		}
		if got := *u.Value(); got != 1 {
			t.Errorf("Value() = %v; want 1", got)
		}
		u.Unlock()
	})

	t.Run("Adopt", func(t *testing.T) {
		g := New(1)
		g.Lock()
		u := g.AdoptUnique()
		if !u.Held() {
			t.Fatal("adopted handle not holding")
		}
		*u.Value() = 2
		u.Unlock()
		wantUnlocked(t, g.Locker())
		if got := g.Get(); got != 2 {
			t.Errorf("Get() = %v; want 2", got)
		}
	})
}

func TestUniqueStatePanics(t *testing.T) {
	g := New(0)
	u := g.Unique()
	wantPanic(t, "guarded: UniqueLock.Lock: lock already held", u.Lock)
	wantPanic(t, "guarded: UniqueLock.TryLock: lock already held", func() { u.TryLock() })
	u.Unlock()
	wantPanic(t, "guarded: UniqueLock.Unlock: lock not held", u.Unlock)
	wantPanic(t, "guarded: UniqueLock.Value: lock not held", func() { u.Value() })
}

func TestUniqueMove(t *testing.T) {
	g := New(9)
	u := g.Unique()
	m := u.Move()

	if u.Held() {
		t.Error("moved-from handle still reports holding")
	}
	wantPanic(t, "guarded: UniqueLock.Value: no associated value", func() { u.Value() })
	wantPanic(t, "guarded: UniqueLock.Lock: no associated value", u.Lock)
	wantPanic(t, "guarded: UniqueLock.Unlock: no associated value", u.Unlock)
	wantPanic(t, "guarded: UniqueLock.Move: no associated value", func() { u.Move() })

	if !m.Held() {
		t.Fatal("moved-to handle not holding")
	}
	if got := *m.Value(); got != 9 {
		t.Errorf("Value() = %v; want 9", got)
	}
	m.Unlock()
	wantUnlocked(t, g.Locker())
}

func TestUniqueMoveNotHolding(t *testing.T) {
	// Moving a non-holding handle transfers attachment, not the lock.
	g := New(0)
	d := g.DeferredUnique()
	m := d.Move()
	if m.Held() {
		t.Fatal("moved deferred handle reports holding")
	}
	m.Lock()
	m.Unlock()
}

func TestUniqueRelease(t *testing.T) {
	g := New(4)
	u := g.Unique()
	gv := u.Release()
	if gv != g {
		t.Fatal("Release returned a different Value")
	}
	if u.Held() {
		t.Error("released handle still reports holding")
	}
	wantLocked(t, g.Locker()) // the caller owns the unlock now
	g.AdoptUnique().Unlock()
	wantUnlocked(t, g.Locker())
}

func TestUniqueZeroValue(t *testing.T) {
	var u UniqueLock[int]
	if u.Held() {
		t.Error("zero handle reports holding")
	}
	wantPanic(t, "guarded: UniqueLock.Lock: no associated value", u.Lock)
	wantPanic(t, "guarded: UniqueLock.Value: no associated value", func() { u.Value() })
}

func TestUniqueTimed(t *testing.T) {
	g := NewWith(0, NewSemaMutex())
	u := g.DeferredUnique()
	if !u.TryLockWithTimeout(time.Second) {
		t.Fatal("timed acquisition failed on a free lock")
	}
	u.Unlock()

	g.Lock()
	if u.TryLockWithTimeout(5 * time.Millisecond) {
		t.Fatal("acquired a held lock")
	}
	if u.Held() {
		t.Error("handle reports holding after a failed acquisition")
	}
	g.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if u.TryLockWithContext(ctx) {
		t.Fatal("acquired with a cancelled context")
	}
	if !u.TryLockWithContext(context.Background()) {
		t.Fatal("context acquisition failed on a free lock")
	}
	u.Unlock()
}

func TestUniqueTimedGated(t *testing.T) {
	u := New(0).DeferredUnique()
	wantPanic(t, "guarded: UniqueLock.TryLockWithTimeout: *guarded.Mutex does not provide TryLockWithTimeout",
		func() { u.TryLockWithTimeout(time.Millisecond) })
	wantPanic(t, "guarded: UniqueLock.TryLockWithContext: *guarded.Mutex does not provide TryLockWithContext",
		func() { u.TryLockWithContext(context.Background()) })
}

func TestUniqueBlocksUntilRelease(t *testing.T) {
	g := New(0)
	u := g.Unique()
	done := make(chan struct{})
	go func() {
		w := g.Unique()
		*w.Value() = 1
		w.Unlock()
		close(done)
	}()
	*u.Value() = 5
	u.Unlock()
	<-done
	if got := g.Get(); got != 1 {
		t.Errorf("Get() = %v; want 1", got)
	}
}
