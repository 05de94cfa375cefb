// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"testing"

	"github.com/gviegas/rayt/driver"
)

func TestConvPixelFmt(t *testing.T) {
	cases := [...]struct {
		pf   driver.PixelFmt
		want _Ctype_VkFormat
	}{
		{driver.RGBA8un, 37},
		{driver.RGBA8ui, 41},
		{driver.RG8un, 16},
		{driver.R8un, 9},
		{driver.RGBA16f, 97},
		{driver.RG16f, 83},
		{driver.R16f, 76},
		{driver.RGBA32f, 109},
		{driver.RGBA32ui, 107},
		{driver.RG32f, 103},
		{driver.R32f, 100},
		{driver.R32ui, 98},
	}
	for _, c := range cases {
		if x := convPixelFmt(c.pf); x != c.want {
			t.Errorf("convPixelFmt(%v)\nhave %v\nwant %v", c.pf, x, c.want)
		}
	}
}

func TestConvVertexFmt(t *testing.T) {
	cases := [...]struct {
		vf   driver.VertexFmt
		want _Ctype_VkFormat
	}{
		{driver.Float32x2, 103},
		{driver.Float32x3, 106},
	}
	for _, c := range cases {
		if x := convVertexFmt(c.vf); x != c.want {
			t.Errorf("convVertexFmt(%v)\nhave %v\nwant %v", c.vf, x, c.want)
		}
	}
}

func TestConvIndexFmt(t *testing.T) {
	cases := [...]struct {
		fi   driver.IndexFmt
		want _Ctype_VkIndexType
	}{
		{driver.Index16, 0},
		{driver.Index32, 1},
	}
	for _, c := range cases {
		if x := convIndexFmt(c.fi); x != c.want {
			t.Errorf("convIndexFmt(%v)\nhave %v\nwant %v", c.fi, x, c.want)
		}
	}
}

func TestConvStage(t *testing.T) {
	cases := [...]struct {
		sm   driver.Stage
		want _Ctype_VkShaderStageFlags
	}{
		{driver.SCompute, 0x20},
		{driver.SRayGen, 0x100},
		{driver.SAnyHit, 0x200},
		{driver.SClosestHit, 0x400},
		{driver.SMiss, 0x800},
		{driver.SIntersect, 0x1000},
		{driver.SCallable, 0x2000},
		{driver.SRayGen | driver.SMiss, 0x900},
		{driver.SClosestHit | driver.SAnyHit | driver.SIntersect, 0x1600},
		{driver.SCompute | driver.SRayGen | driver.SMiss | driver.SClosestHit | driver.SAnyHit | driver.SIntersect | driver.SCallable, 0x3f20},
		{0, 0},
	}
	for _, c := range cases {
		if x := convStage(c.sm); x != c.want {
			t.Errorf("convStage(%#x)\nhave %#x\nwant %#x", int(c.sm), uint32(x), uint32(c.want))
		}
	}
}

func TestConvTraceStage(t *testing.T) {
	cases := [...]struct {
		s    driver.Stage
		want _Ctype_VkShaderStageFlagBits
	}{
		{driver.SRayGen, 0x100},
		{driver.SAnyHit, 0x200},
		{driver.SClosestHit, 0x400},
		{driver.SMiss, 0x800},
		{driver.SIntersect, 0x1000},
		{driver.SCallable, 0x2000},
	}
	for _, c := range cases {
		if x := convTraceStage(c.s); x != c.want {
			t.Errorf("convTraceStage(%#x)\nhave %#x\nwant %#x", int(c.s), uint32(x), uint32(c.want))
		}
	}
}

func TestConvSync(t *testing.T) {
	cases := [...]struct {
		sn   driver.Sync
		want _Ctype_VkPipelineStageFlags
	}{
		{driver.SComputeShading, 0x800},
		{driver.SAccelBuild, 0x02000000},
		{driver.STraceShading, 0x00200000},
		{driver.SCopy, 0x1000},
		{driver.SAll, 0x10000},
		{driver.SAccelBuild | driver.STraceShading, 0x02200000},
		{driver.SComputeShading | driver.SCopy, 0x1800},
		{driver.SNone, 0},
	}
	for _, c := range cases {
		if x := convSync(c.sn); x != c.want {
			t.Errorf("convSync(%#x)\nhave %#x\nwant %#x", int(c.sn), uint32(x), uint32(c.want))
		}
	}
	// Empty scopes must resolve to the pipe bounds instead.
	if x := convSyncBefore(driver.SNone); x != 0x1 {
		t.Errorf("convSyncBefore(SNone)\nhave %#x\nwant 0x1", uint32(x))
	}
	if x := convSyncAfter(driver.SNone); x != 0x2000 {
		t.Errorf("convSyncAfter(SNone)\nhave %#x\nwant 0x2000", uint32(x))
	}
	if x := convSyncBefore(driver.SCopy); x != 0x1000 {
		t.Errorf("convSyncBefore(SCopy)\nhave %#x\nwant 0x1000", uint32(x))
	}
	if x := convSyncAfter(driver.SCopy); x != 0x1000 {
		t.Errorf("convSyncAfter(SCopy)\nhave %#x\nwant 0x1000", uint32(x))
	}
}

func TestConvAccess(t *testing.T) {
	cases := [...]struct {
		ac   driver.Access
		want _Ctype_VkAccessFlags
	}{
		{driver.ACopyRead, 0x800},
		{driver.ACopyWrite, 0x1000},
		{driver.AShaderRead, 0x20},
		{driver.AShaderWrite, 0x40},
		{driver.AAccelRead, 0x00200000},
		{driver.AAccelWrite, 0x00400000},
		{driver.AAnyRead, 0x8000},
		{driver.AAnyWrite, 0x10000},
		{driver.AAccelWrite | driver.AAccelRead, 0x00600000},
		{driver.ACopyRead | driver.ACopyWrite, 0x1800},
		{driver.ANone, 0},
	}
	for _, c := range cases {
		if x := convAccess(c.ac); x != c.want {
			t.Errorf("convAccess(%#x)\nhave %#x\nwant %#x", int(c.ac), uint32(x), uint32(c.want))
		}
	}
}

func TestConvLayout(t *testing.T) {
	cases := [...]struct {
		lay  driver.Layout
		want _Ctype_VkImageLayout
	}{
		{driver.LUndefined, 0},
		{driver.LShaderStore, 1},
		{driver.LCopySrc, 6},
		{driver.LCopyDst, 7},
	}
	for _, c := range cases {
		if x := convLayout(c.lay); x != c.want {
			t.Errorf("convLayout(%v)\nhave %v\nwant %v", c.lay, x, c.want)
		}
	}
}

func TestConvBuildFlags(t *testing.T) {
	cases := [...]struct {
		bf   driver.BuildFlag
		want _Ctype_VkBuildAccelerationStructureFlagsKHR
	}{
		{driver.BFastTrace, 0x4},
		{driver.BFastBuild, 0x8},
		{driver.BLowMem, 0x10},
		{driver.BFastTrace | driver.BLowMem, 0x14},
		{0, 0},
	}
	for _, c := range cases {
		if x := convBuildFlags(c.bf); x != c.want {
			t.Errorf("convBuildFlags(%#x)\nhave %#x\nwant %#x", int(c.bf), uint32(x), uint32(c.want))
		}
	}
}

func TestConvSamples(t *testing.T) {
	cases := [...]struct {
		ns   int
		want _Ctype_VkSampleCountFlagBits
	}{
		{1, 0x1},
		{2, 0x2},
		{4, 0x4},
		{8, 0x8},
		{16, 0x10},
		{32, 0x20},
		{64, 0x40},
	}
	for _, c := range cases {
		if x := convSamples(c.ns); x != c.want {
			t.Errorf("convSamples(%d)\nhave %v\nwant %v", c.ns, x, c.want)
		}
	}
}
