// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package driver_test

import (
	"testing"
)

func TestGPUDriver(t *testing.T) {
	g, _ := drv.Open()
	if gpu.Driver() != drv || gpu.Driver() != g.Driver() {
		t.Error("GPU.Driver: unexpected Driver value")
	}
}

// TestLimits checks bounds that any conforming device must satisfy.
func TestLimits(t *testing.T) {
	pow2 := func(x int) bool { return x > 0 && x&(x-1) == 0 }
	lim := gpu.Limits()
	if lim.MaxImage2D < 4096 {
		t.Errorf("GPU.Limits: MaxImage2D\nhave %d\nwant >= 4096", lim.MaxImage2D)
	}
	if lim.MaxPushConst < 128 {
		t.Errorf("GPU.Limits: MaxPushConst\nhave %d\nwant >= 128", lim.MaxPushConst)
	}
	for i, x := range lim.MaxDispatch {
		if x < 65535 {
			t.Errorf("GPU.Limits: MaxDispatch[%d]\nhave %d\nwant >= 65535", i, x)
		}
	}
	if cannotTrace() {
		return
	}
	if lim.HandleSize%4 != 0 {
		t.Errorf("GPU.Limits: HandleSize\nhave %d\nwant a multiple of 4", lim.HandleSize)
	}
	for _, x := range [...]int{lim.HandleAlign, lim.GroupBaseAlign, lim.ScratchAlign, lim.AccelAlign} {
		if !pow2(x) {
			t.Errorf("GPU.Limits: alignment\nhave %d\nwant a power of two", x)
		}
	}
	if lim.MaxTraceRecur < 1 {
		t.Errorf("GPU.Limits: MaxTraceRecur\nhave %d\nwant >= 1", lim.MaxTraceRecur)
	}
	if lim.MaxTraceInvoke < 1 || lim.MaxInstances < 1 {
		t.Error("GPU.Limits: trace counts must be positive")
	}
}
