// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package tracer

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/gviegas/rayt/driver"
	"github.com/gviegas/rayt/internal/bitvec"
)

// arena stores acceleration structure inputs: vertex
// positions, indices, bounding boxes and packed instance
// records.
// Sub-allocation works over spans of fixed-size blocks,
// tracked by a bit vector. The buffer grows on demand and
// growth replaces it, so callers keep spans rather than
// buffer offsets and resolve them against the current
// buffer when recording builds.
type arena struct {
	gpu driver.GPU
	buf driver.Buffer
	bv  bitvec.V[uint32]
}

const (
	arenaBlock = 256
	arenaNBit  = 32
)

// span defines an arena range in number of blocks.
type span struct {
	start int
	end   int
}

// byteStart computes the span's first byte.
func (s span) byteStart() int64 { return int64(s.start) * arenaBlock }

// byteLen computes the span's byte length.
func (s span) byteLen() int { return (s.end - s.start) * arenaBlock }

// String implements fmt.Stringer.
func (s span) String() string {
	return fmt.Sprintf("{%d(%dB) %d(%dB)}", s.start, s.byteStart(), s.end, int64(s.end)*arenaBlock)
}

// reserve marks a contiguous range of at least n bytes as
// in use and returns the span identifying it.
// It grows the buffer when the map has no suitable range,
// copying previously staged data over.
func (a *arena) reserve(n int) (span, error) {
	if n <= 0 {
		panic("arena.reserve: n <= 0")
	}
	ns := (n + arenaBlock - 1) / arenaBlock
	is, ok := a.bv.SearchRange(ns)
	if !ok {
		nplus := (ns + arenaNBit - 1) / arenaNBit
		// Grow geometrically so long scenes do not
		// reallocate per mesh.
		if curr := a.bv.Len() / arenaNBit; nplus < curr {
			nplus = curr
		}
		bcap := int64(a.bv.Len()+nplus*arenaNBit) * arenaBlock
		buf, err := a.gpu.NewBuffer(bcap, true, driver.UAccelInput|driver.UShaderRead|driver.UDevAddr)
		if err != nil {
			return span{}, errors.Wrap(err, tracerPrefix+"arena growth")
		}
		if a.buf != nil {
			copy(buf.Bytes(), a.buf.Bytes())
			a.buf.Destroy()
		}
		a.buf = buf
		is = a.bv.Grow(nplus)
	}
	for i := 0; i < ns; i++ {
		a.bv.Set(is + i)
	}
	return span{is, is + ns}, nil
}

// free releases a span for reuse.
// It does not release GPU memory.
func (a *arena) free(s span) {
	for i := s.start; i < s.end; i++ {
		a.bv.Unset(i)
	}
}

// stage reserves a span and copies data into it.
// Empty data yields an empty span with nothing staged.
func stage[T uint32 | float32](a *arena, data []T) (span, error) {
	if len(data) == 0 {
		return span{}, nil
	}
	n := len(data) * 4
	s, err := a.reserve(n)
	if err != nil {
		return span{}, err
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), n)
	copy(a.buf.Bytes()[s.byteStart():], b)
	return s, nil
}

// release destroys the arena's buffer and resets the map.
func (a *arena) release() {
	if a.buf != nil {
		a.buf.Destroy()
	}
	*a = arena{gpu: a.gpu}
}
