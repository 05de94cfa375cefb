// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package bitvec defines a growable bit vector used to track
// the occupancy of fixed-size blocks in sub-allocators.
package bitvec

import (
	"math/bits"
	"unsafe"
)

// Uint represents the granularity of a bit vector.
type Uint interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// V is a growable bit vector with custom granularity.
// The zero value is an empty vector ready for use.
type V[T Uint] struct {
	s   []T
	rem int
}

// nbit returns the number of bits in T.
func (*V[T]) nbit() int { return int(unsafe.Sizeof(T(0))) * 8 }

// Len returns the number of bits in the vector.
func (v *V[_]) Len() int { return len(v.s) * v.nbit() }

// Rem returns the number of unset bits in the vector.
func (v *V[_]) Rem() int { return v.rem }

// Grow appends nplus unset Uints to the vector, so a range of
//
//	nplus * <number of bits in T>
//
// bits is guaranteed to be available afterwards.
// It returns the value of v.Len prior to the append, which is
// the index of the first new bit. Non-positive nplus leaves
// the vector unchanged.
func (v *V[T]) Grow(nplus int) (index int) {
	index = v.Len()
	if nplus > 0 {
		v.rem += nplus * v.nbit()
		v.s = append(v.s, make([]T, nplus)...)
	}
	return
}

// Set sets a given bit.
func (v *V[T]) Set(index int) {
	n := v.nbit()
	i, b := index/n, T(1)<<(index%n)
	if v.s[i]&b == 0 {
		v.s[i] |= b
		v.rem--
	}
}

// Unset unsets a given bit.
func (v *V[T]) Unset(index int) {
	n := v.nbit()
	i, b := index/n, T(1)<<(index%n)
	if v.s[i]&b != 0 {
		v.s[i] &^= b
		v.rem++
	}
}

// IsSet checks whether a given bit is set.
func (v *V[T]) IsSet(index int) bool {
	n := v.nbit()
	return v.s[index/n]&(T(1)<<(index%n)) != 0
}

// Search attempts to locate an unset bit in the vector.
// If ok is true, then index is suitable for use in a call
// to v.Set. It fails only when v.Rem() == 0.
func (v *V[T]) Search() (index int, ok bool) {
	if v.rem == 0 {
		return
	}
	for i, x := range v.s {
		if x == ^T(0) {
			continue
		}
		return i*v.nbit() + bits.TrailingZeros64(uint64(^x)), true
	}
	return
}

// SearchRange attempts to locate a contiguous range of n
// unset bits. If ok is true, then every index in the range
// [index, index+n) is suitable for use in a call to v.Set.
// It calls Search when n <= 1.
func (v *V[T]) SearchRange(n int) (index int, ok bool) {
	if n <= 1 {
		return v.Search()
	}
	if v.rem < n {
		return
	}
	nb := v.nbit()
	var run, start int
	for i, x := range v.s {
		switch x {
		case 0:
			if run == 0 {
				start = i * nb
			}
			run += nb
		case ^T(0):
			run = 0
		default:
			for b := 0; b < nb; b++ {
				if x&(1<<b) != 0 {
					run = 0
					continue
				}
				if run == 0 {
					start = i*nb + b
				}
				run++
				if run == n {
					return start, true
				}
			}
		}
		if run >= n {
			return start, true
		}
	}
	return
}
