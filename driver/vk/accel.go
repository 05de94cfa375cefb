// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package vk

// #include <stdlib.h>
// #include <proc.h>
import "C"

import (
	"errors"
	"unsafe"

	"github.com/gviegas/rayt/driver"
)

// accelStruct implements driver.AccelStruct.
type accelStruct struct {
	d    *Driver
	as   C.VkAccelerationStructureKHR
	addr C.VkDeviceAddress
	top  bool
}

// AccelSizes computes the storage requirements of an
// acceleration structure build.
func (d *Driver) AccelSizes(data any) (driver.AccelSizes, error) {
	if !d.rt {
		return driver.AccelSizes{}, driver.ErrCannotTrace
	}
	info := C.VkAccelerationStructureBuildGeometryInfoKHR{
		sType: C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_GEOMETRY_INFO_KHR,
		mode:  C.VK_BUILD_ACCELERATION_STRUCTURE_MODE_BUILD_KHR,
	}
	var counts []C.uint32_t
	switch t := data.(type) {
	case *driver.BLASData:
		p, n := blasGeoms(t)
		defer C.free(unsafe.Pointer(p))
		info._type = C.VK_ACCELERATION_STRUCTURE_TYPE_BOTTOM_LEVEL_KHR
		info.flags = convBuildFlags(t.Flags)
		info.geometryCount = C.uint32_t(n)
		info.pGeometries = p
		counts = make([]C.uint32_t, 0, n)
		for i := range t.Tris {
			counts = append(counts, C.uint32_t(t.Tris[i].TriNr))
		}
		for i := range t.Boxes {
			counts = append(counts, C.uint32_t(t.Boxes[i].BoxNr))
		}
	case *driver.TLASData:
		p := tlasGeom(t)
		defer C.free(unsafe.Pointer(p))
		info._type = C.VK_ACCELERATION_STRUCTURE_TYPE_TOP_LEVEL_KHR
		info.flags = convBuildFlags(t.Flags)
		info.geometryCount = 1
		info.pGeometries = p
		counts = []C.uint32_t{C.uint32_t(t.Count)}
	default:
		return driver.AccelSizes{}, errors.New("unknown acceleration structure data type")
	}
	var pcnt *C.uint32_t
	if len(counts) > 0 {
		pcnt = &counts[0]
	}
	sizes := C.VkAccelerationStructureBuildSizesInfoKHR{
		sType: C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_SIZES_INFO_KHR,
	}
	C.vkGetAccelerationStructureBuildSizesKHR(d.dev, C.VK_ACCELERATION_STRUCTURE_BUILD_TYPE_DEVICE_KHR, &info, pcnt, &sizes)
	return driver.AccelSizes{
		Struct:  int64(sizes.accelerationStructureSize),
		Scratch: int64(sizes.buildScratchSize),
	}, nil
}

// NewAccelStruct creates a new acceleration structure bound to
// the given buffer range.
func (d *Driver) NewAccelStruct(data any, buf driver.Buffer, off, size int64) (driver.AccelStruct, error) {
	if !d.rt {
		return nil, driver.ErrCannotTrace
	}
	var typ C.VkAccelerationStructureTypeKHR
	var top bool
	switch data.(type) {
	case *driver.BLASData:
		typ = C.VK_ACCELERATION_STRUCTURE_TYPE_BOTTOM_LEVEL_KHR
	case *driver.TLASData:
		typ = C.VK_ACCELERATION_STRUCTURE_TYPE_TOP_LEVEL_KHR
		top = true
	default:
		return nil, errors.New("unknown acceleration structure data type")
	}
	if buf.(*buffer).usg&driver.UAccelData == 0 {
		panic("buffer was not created with UAccelData usage")
	}
	if off%int64(d.lim.AccelAlign) != 0 {
		panic("misaligned acceleration structure offset")
	}
	info := C.VkAccelerationStructureCreateInfoKHR{
		sType:  C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_CREATE_INFO_KHR,
		buffer: buf.(*buffer).buf,
		offset: C.VkDeviceSize(off),
		size:   C.VkDeviceSize(size),
		_type:  typ,
	}
	var as C.VkAccelerationStructureKHR
	err := checkResult(C.vkCreateAccelerationStructureKHR(d.dev, &info, nil, &as))
	if err != nil {
		return nil, err
	}
	// The address is queried once after creation and remains
	// valid for the lifetime of the structure.
	ainfo := C.VkAccelerationStructureDeviceAddressInfoKHR{
		sType:                 C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_DEVICE_ADDRESS_INFO_KHR,
		accelerationStructure: as,
	}
	addr := C.vkGetAccelerationStructureDeviceAddressKHR(d.dev, &ainfo)
	return &accelStruct{
		d:    d,
		as:   as,
		addr: addr,
		top:  top,
	}, nil
}

// Addr returns the address that identifies the structure in
// instance records.
func (a *accelStruct) Addr() uint64 { return uint64(a.addr) }

// Destroy destroys the acceleration structure.
// The backing buffer is unaffected.
func (a *accelStruct) Destroy() {
	if a == nil {
		return
	}
	if a.d != nil {
		C.vkDestroyAccelerationStructureKHR(a.d.dev, a.as, nil)
	}
	*a = accelStruct{}
}

// blasGeoms converts the geometries in data to a C array of
// VkAccelerationStructureGeometryKHR, suitable for both size
// queries and build commands.
// Input addresses are resolved from the referenced buffers;
// nil buffers yield null addresses, which size queries accept.
// The caller must free the returned array.
func blasGeoms(data *driver.BLASData) (*C.VkAccelerationStructureGeometryKHR, int) {
	if len(data.Tris) > 0 && len(data.Boxes) > 0 {
		panic("BLAS data with mixed geometry classes")
	}
	n := len(data.Tris) + len(data.Boxes)
	p := (*C.VkAccelerationStructureGeometryKHR)(C.malloc(C.size_t(n) * C.sizeof_VkAccelerationStructureGeometryKHR))
	s := unsafe.Slice(p, n)
	for i := range data.Tris {
		t := &data.Tris[i]
		var flags C.VkGeometryFlagsKHR
		if t.Opaque {
			flags = C.VK_GEOMETRY_OPAQUE_BIT_KHR
		}
		s[i] = C.VkAccelerationStructureGeometryKHR{
			sType:        C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_KHR,
			geometryType: C.VK_GEOMETRY_TYPE_TRIANGLES_KHR,
			flags:        flags,
		}
		var maxVert C.uint32_t
		if t.VertNr > 0 {
			maxVert = C.uint32_t(t.VertNr - 1)
		}
		tri := (*C.VkAccelerationStructureGeometryTrianglesDataKHR)(unsafe.Pointer(&s[i].geometry))
		*tri = C.VkAccelerationStructureGeometryTrianglesDataKHR{
			sType:        C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_TRIANGLES_DATA_KHR,
			vertexFormat: convVertexFmt(t.VertFmt),
			vertexStride: C.VkDeviceSize(t.VertStrd),
			maxVertex:    maxVert,
			indexType:    C.VK_INDEX_TYPE_NONE_KHR,
		}
		*(*C.VkDeviceAddress)(unsafe.Pointer(&tri.vertexData)) = inputAddr(t.VertBuf, t.VertOff)
		if t.IndexBuf != nil {
			tri.indexType = convIndexFmt(t.IndexFmt)
			*(*C.VkDeviceAddress)(unsafe.Pointer(&tri.indexData)) = inputAddr(t.IndexBuf, t.IndexOff)
		}
	}
	for i := range data.Boxes {
		b := &data.Boxes[i]
		var flags C.VkGeometryFlagsKHR
		if b.Opaque {
			flags = C.VK_GEOMETRY_OPAQUE_BIT_KHR
		}
		j := len(data.Tris) + i
		s[j] = C.VkAccelerationStructureGeometryKHR{
			sType:        C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_KHR,
			geometryType: C.VK_GEOMETRY_TYPE_AABBS_KHR,
			flags:        flags,
		}
		aabb := (*C.VkAccelerationStructureGeometryAabbsDataKHR)(unsafe.Pointer(&s[j].geometry))
		*aabb = C.VkAccelerationStructureGeometryAabbsDataKHR{
			sType:  C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_AABBS_DATA_KHR,
			stride: C.VkDeviceSize(b.Strd),
		}
		*(*C.VkDeviceAddress)(unsafe.Pointer(&aabb.data)) = inputAddr(b.Buf, b.Off)
	}
	return p, n
}

// tlasGeom converts data to the single instance geometry of a
// top-level build.
// The caller must free the returned memory.
func tlasGeom(data *driver.TLASData) *C.VkAccelerationStructureGeometryKHR {
	p := (*C.VkAccelerationStructureGeometryKHR)(C.malloc(C.sizeof_VkAccelerationStructureGeometryKHR))
	*p = C.VkAccelerationStructureGeometryKHR{
		sType:        C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_KHR,
		geometryType: C.VK_GEOMETRY_TYPE_INSTANCES_KHR,
	}
	inst := (*C.VkAccelerationStructureGeometryInstancesDataKHR)(unsafe.Pointer(&p.geometry))
	*inst = C.VkAccelerationStructureGeometryInstancesDataKHR{
		sType: C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_INSTANCES_DATA_KHR,
	}
	*(*C.VkDeviceAddress)(unsafe.Pointer(&inst.data)) = inputAddr(data.Insts, data.Off)
	return p
}

// inputAddr computes the device address of a buffer range used
// as build input.
func inputAddr(buf driver.Buffer, off int64) C.VkDeviceAddress {
	if buf == nil {
		return 0
	}
	return buf.(*buffer).addr + C.VkDeviceAddress(off)
}

// convBuildFlags converts a driver.BuildFlag to a
// VkBuildAccelerationStructureFlagsKHR.
func convBuildFlags(bf driver.BuildFlag) (flags C.VkBuildAccelerationStructureFlagsKHR) {
	if bf&driver.BFastTrace != 0 {
		flags |= C.VK_BUILD_ACCELERATION_STRUCTURE_PREFER_FAST_TRACE_BIT_KHR
	}
	if bf&driver.BFastBuild != 0 {
		flags |= C.VK_BUILD_ACCELERATION_STRUCTURE_PREFER_FAST_BUILD_BIT_KHR
	}
	if bf&driver.BLowMem != 0 {
		flags |= C.VK_BUILD_ACCELERATION_STRUCTURE_LOW_MEMORY_BIT_KHR
	}
	return
}

// convVertexFmt converts a driver.VertexFmt to a VkFormat.
func convVertexFmt(vf driver.VertexFmt) C.VkFormat {
	switch vf {
	case driver.Float32x2:
		return C.VK_FORMAT_R32G32_SFLOAT
	case driver.Float32x3:
		return C.VK_FORMAT_R32G32B32_SFLOAT
	}

	// Expected to be unreachable.
	return C.VK_FORMAT_UNDEFINED
}

// convIndexFmt converts a driver.IndexFmt to a VkIndexType.
func convIndexFmt(f driver.IndexFmt) C.VkIndexType {
	switch f {
	case driver.Index16:
		return C.VK_INDEX_TYPE_UINT16
	case driver.Index32:
		return C.VK_INDEX_TYPE_UINT32
	}

	// Expected to be unreachable.
	return ^C.VkIndexType(0)
}
