// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package bitvec

import (
	"testing"
	"unsafe"
)

func TestNbit(t *testing.T) {
	for _, x := range [...][2]int{
		{(&V[uint]{}).nbit(), int(unsafe.Sizeof(uint(0))) * 8},
		{(&V[uint8]{}).nbit(), 8},
		{(&V[uint16]{}).nbit(), 16},
		{(&V[uint32]{}).nbit(), 32},
		{(&V[uint64]{}).nbit(), 64},
		{(&V[uintptr]{}).nbit(), int(unsafe.Sizeof(uintptr(0))) * 8},
	} {
		if x[0] != x[1] {
			t.Fatalf("V[T].nbit:\nhave %d\nwant %d", x[0], x[1])
		}
	}
}

func TestZero(t *testing.T) {
	var v V[uint32]
	if n := v.Len(); n != 0 {
		t.Fatalf("v.Len:\nhave %d\nwant 0", n)
	}
	if n := v.Rem(); n != 0 {
		t.Fatalf("v.Rem:\nhave %d\nwant 0", n)
	}
	if i, ok := v.Search(); ok {
		t.Fatalf("v.Search:\nhave %d, true\nwant _, false", i)
	}
	if i, ok := v.SearchRange(2); ok {
		t.Fatalf("v.SearchRange:\nhave %d, true\nwant _, false", i)
	}
}

func TestGrow(t *testing.T) {
	var v V[uint32]
	for _, c := range [...]struct {
		nplus, wantIdx, wantLen int
	}{
		{1, 0, 32},
		{2, 32, 96},
		{0, 96, 96},
		{-1, 96, 96},
		{4, 96, 224},
	} {
		if i := v.Grow(c.nplus); i != c.wantIdx {
			t.Fatalf("v.Grow(%d):\nhave %d\nwant %d", c.nplus, i, c.wantIdx)
		}
		if n := v.Len(); n != c.wantLen {
			t.Fatalf("v.Len:\nhave %d\nwant %d", n, c.wantLen)
		}
		if n := v.Rem(); n != c.wantLen {
			t.Fatalf("v.Rem:\nhave %d\nwant %d", n, c.wantLen)
		}
	}
}

func TestSetUnset(t *testing.T) {
	var v V[uint32]
	v.Grow(2)
	for _, i := range [...]int{0, 1, 31, 32, 63} {
		if v.IsSet(i) {
			t.Fatalf("v.IsSet(%d):\nhave true\nwant false", i)
		}
		v.Set(i)
		if !v.IsSet(i) {
			t.Fatalf("v.IsSet(%d):\nhave false\nwant true", i)
		}
	}
	if n := v.Rem(); n != 64-5 {
		t.Fatalf("v.Rem:\nhave %d\nwant %d", n, 64-5)
	}
	// Setting a set bit must not change the count.
	v.Set(31)
	if n := v.Rem(); n != 64-5 {
		t.Fatalf("v.Rem:\nhave %d\nwant %d", n, 64-5)
	}
	v.Unset(31)
	if v.IsSet(31) {
		t.Fatal("v.IsSet(31):\nhave true\nwant false")
	}
	if n := v.Rem(); n != 64-4 {
		t.Fatalf("v.Rem:\nhave %d\nwant %d", n, 64-4)
	}
	// Likewise for unsetting an unset bit.
	v.Unset(31)
	if n := v.Rem(); n != 64-4 {
		t.Fatalf("v.Rem:\nhave %d\nwant %d", n, 64-4)
	}
}

func TestSearch(t *testing.T) {
	var v V[uint8]
	v.Grow(2)
	if i, ok := v.Search(); !ok || i != 0 {
		t.Fatalf("v.Search:\nhave %d, %t\nwant 0, true", i, ok)
	}
	// Filling the first word moves the result across the
	// word boundary.
	for i := 0; i < 8; i++ {
		v.Set(i)
	}
	if i, ok := v.Search(); !ok || i != 8 {
		t.Fatalf("v.Search:\nhave %d, %t\nwant 8, true", i, ok)
	}
	v.Unset(3)
	if i, ok := v.Search(); !ok || i != 3 {
		t.Fatalf("v.Search:\nhave %d, %t\nwant 3, true", i, ok)
	}
	v.Set(3)
	for i := 8; i < 16; i++ {
		v.Set(i)
	}
	if i, ok := v.Search(); ok {
		t.Fatalf("v.Search:\nhave %d, true\nwant _, false", i)
	}
}

func TestSearchRange(t *testing.T) {
	var v V[uint8]
	v.Grow(4)
	for _, i := range [...]int{2, 3, 4, 5, 8, 9, 10, 11, 12, 13, 14, 15, 20} {
		v.Set(i)
	}
	// Unset runs are now [0 2) [6 8) [16 20) [21 32).
	check := func(n, wantIdx int, wantOk bool) {
		t.Helper()
		i, ok := v.SearchRange(n)
		if ok != wantOk || (ok && i != wantIdx) {
			t.Fatalf("v.SearchRange(%d):\nhave %d, %t\nwant %d, %t", n, i, ok, wantIdx, wantOk)
		}
	}
	check(1, 0, true)
	check(2, 0, true)
	check(3, 16, true)
	check(4, 16, true)
	check(5, 21, true)
	check(11, 21, true)
	check(12, 0, false)
	// A range crossing the word boundary.
	v.Unset(15)
	check(5, 15, true)
	// A range larger than the whole vector.
	check(v.Len()+1, 0, false)
}

func TestSearchRangeWords(t *testing.T) {
	var v V[uint32]
	v.Grow(3)
	for i := 0; i < 96; i++ {
		v.Set(i)
	}
	if i, ok := v.SearchRange(2); ok {
		t.Fatalf("v.SearchRange(2):\nhave %d, true\nwant _, false", i)
	}
	// Unsetting a span that covers a whole middle word must
	// yield it back as one range.
	for i := 30; i < 70; i++ {
		v.Unset(i)
	}
	if i, ok := v.SearchRange(40); !ok || i != 30 {
		t.Fatalf("v.SearchRange(40):\nhave %d, %t\nwant 30, true", i, ok)
	}
	if i, ok := v.SearchRange(41); ok {
		t.Fatalf("v.SearchRange(41):\nhave %d, true\nwant _, false", i)
	}
}

func TestGrowSearch(t *testing.T) {
	var v V[uint32]
	v.Grow(1)
	for i := 0; i < 32; i++ {
		v.Set(i)
	}
	if i, ok := v.SearchRange(4); ok {
		t.Fatalf("v.SearchRange(4):\nhave %d, true\nwant _, false", i)
	}
	if i := v.Grow(1); i != 32 {
		t.Fatalf("v.Grow(1):\nhave %d\nwant 32", i)
	}
	if i, ok := v.SearchRange(4); !ok || i != 32 {
		t.Fatalf("v.SearchRange(4):\nhave %d, %t\nwant 32, true", i, ok)
	}
}
