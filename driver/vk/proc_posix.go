// Copyright 2026 Gustavo C. Viegas. All rights reserved.

//go:build !windows

package vk

// #cgo linux LDFLAGS: -ldl
// #include <dlfcn.h>
// #include <stdlib.h>
// #include <proc.h>
import "C"

import (
	"unsafe"

	"github.com/gviegas/rayt/driver"
)

// libNames lists the library names that proc.open tries, in order.
// The unversioned soname covers Android and installs that ship
// the development symlink only.
var libNames = [...]string{
	"libvulkan.so.1",
	"libvulkan.so",
	"libvulkan.dylib",
}

// proc is responsible for loading and unloading the Vulkan library.
type proc struct {
	h unsafe.Pointer
}

// open loads the Vulkan library and fetches vkGetInstanceProcAddr.
func (p *proc) open() error {
	var h unsafe.Pointer
	for i := 0; i < len(libNames) && h == nil; i++ {
		lib := C.CString(libNames[i])
		h = C.dlopen(lib, C.RTLD_LAZY|C.RTLD_GLOBAL)
		C.free(unsafe.Pointer(lib))
	}
	if h == nil {
		return driver.ErrNotInstalled
	}
	sym := C.CString("vkGetInstanceProcAddr")
	defer C.free(unsafe.Pointer(sym))
	f := C.dlsym(h, sym)
	if f == nil {
		C.dlclose(h)
		return driver.ErrNotInstalled
	}
	p.h = h
	C.getInstanceProcAddr = C.PFN_vkGetInstanceProcAddr(f)
	return nil
}

// close unloads the Vulkan library and invalidates all symbols.
func (p *proc) close() {
	if p.h != nil {
		C.dlclose(p.h)
	}
	C.getInstanceProcAddr = nil
	*p = proc{}
}
