// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package driver_test

import (
	"bytes"
	"log"
	"os"
	"unsafe"

	"github.com/gviegas/rayt/driver"
	_ "github.com/gviegas/rayt/driver/vk"
)

var (
	drv driver.Driver
	gpu driver.GPU
)

// TODO: Update when other backends are implemented.
func init() {
	// Select a driver to use.
	drivers := driver.Drivers()
drvLoop:
	for i := range drivers {
		switch drivers[i].Name() {
		case "vulkan":
			drv = drivers[i]
			break drvLoop
		}
	}
	if drv == nil {
		log.Fatal("driver.Drivers(): driver not found")
	}
	var err error
	gpu, err = drv.Open()
	if err != nil {
		log.Fatal(err)
	}
	// Ideally, we should call drv.Close somewhere.
}

// cannotTrace returns whether gpu lacks ray-tracing support.
// Tests that trace rays or build acceleration structures
// should skip when this is the case.
func cannotTrace() bool { return gpu.Limits().HandleSize == 0 }

// shaderBin reads a compiled shader binary from the testdata
// directory.
// The binaries are not checked in; shaders/compile.sh creates
// them from the GLSL sources. Tests skip when the file they
// need is absent.
func shaderBin(name string) ([]byte, error) {
	file, err := os.Open("testdata/" + name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var b bytes.Buffer
	if _, err := b.ReadFrom(file); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// copyBytes copies src's elements into dst as raw bytes.
func copyBytes[T uint32 | float32](dst []byte, src []T) {
	n := uintptr(len(src)) * unsafe.Sizeof(src[0])
	copy(dst, unsafe.Slice((*byte)(unsafe.Pointer(&src[0])), n))
}

// f32 reinterprets four bytes of b as a float32.
func f32(b []byte, off int) float32 {
	return *(*float32)(unsafe.Pointer(&b[off]))
}

// u32 reinterprets four bytes of b as a uint32.
func u32(b []byte, off int) uint32 {
	return *(*uint32)(unsafe.Pointer(&b[off]))
}
