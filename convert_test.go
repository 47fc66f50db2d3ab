// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package guarded

import (
	"strconv"
	"testing"
)

func TestConvert(t *testing.T) {
	src := New(21)
	dst := Convert(src, func(n int) string { return strconv.Itoa(2 * n) })
	if got := dst.Get(); got != "42" {
		t.Errorf("dst = %q; want %q", got, "42")
	}
	if got := src.Get(); got != 21 {
		t.Errorf("src = %v after Convert; want 21", got)
	}
}

func TestConvertMove(t *testing.T) {
	src := New(5)
	dst := ConvertMove(src, strconv.Itoa)
	if got := dst.Get(); got != "5" {
		t.Errorf("dst = %q; want %q", got, "5")
	}
	if !src.Moved() {
		t.Error("src does not report moved")
	}
}

func TestConvertFrom(t *testing.T) {
	src := New("7")
	dst := New(0)
	ConvertFrom(dst, src, func(s string) int {
		n, err := strconv.Atoi(s)
		if err != nil {
			t.Errorf("Atoi(%q): %v", s, err)
		}
		return n
	})
	if got := dst.Get(); got != 7 {
		t.Errorf("dst = %v; want 7", got)
	}
	if got := src.Get(); got != "7" {
		t.Errorf("src = %q after ConvertFrom; want %q", got, "7")
	}

	same := New(3)
	ConvertFrom(same, same, func(n int) int { return n + 100 }) // no-op
	if got := same.Get(); got != 3 {
		t.Errorf("value = %v after self-conversion; want 3", got)
	}
}

func TestConvertMoveFrom(t *testing.T) {
	src := New([]byte("hi"))
	dst := New("")
	ConvertMoveFrom(dst, src, func(b []byte) string { return string(b) })
	if got := dst.Get(); got != "hi" {
		t.Errorf("dst = %q; want %q", got, "hi")
	}
	if !src.Moved() {
		t.Error("src does not report moved")
	}

	same := New("keep")
	ConvertMoveFrom(same, same, func(s string) string { return "" }) // no-op
	if got := same.Get(); got != "keep" {
		t.Errorf("value = %q after self-move; want %q", got, "keep")
	}
}
