// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package vk implements driver interfaces using the Vulkan API.
package vk

// #include <stdlib.h>
// #include <proc.h>
import "C"

import (
	"errors"
	"runtime"
	"sync"
	"unsafe"

	"github.com/gviegas/rayt/driver"
)

const driverName = "vulkan"
const preferredAPIVersion = C.VK_API_VERSION_1_3

// Driver implements driver.Driver and driver.GPU.
type Driver struct {
	proc

	inst  C.VkInstance
	ivers C.uint32_t
	pdev  C.VkPhysicalDevice
	dname string
	dvers C.uint32_t
	dev   C.VkDevice
	que   C.VkQueue
	qfam  C.uint32_t

	// Mutex for que synchronization.
	// Queue submission requires that the queue handle
	// be externally synchronized, thus this is needed
	// to allow Commit calls to run concurrently.
	qmu sync.Mutex

	// Commit data created in advance.
	// The capacity of the channel limits the number
	// of concurrent Commit calls.
	cdata chan *commitData

	// Enabled extensions, indexed by ext* constants.
	exts [extN]bool

	// Whether rays can be traced.
	// When false, trace-related functionality fails with
	// driver.ErrCannotTrace and Limits.HandleSize is zero.
	rt bool

	// Used device memory, indexed by heap indices.
	mused []int64
	mprop C.VkPhysicalDeviceMemoryProperties

	// Limits of pdev.
	lim driver.Limits
}

func init() {
	driver.Register(&Driver{})
}

// initInstance initializes the Vulkan instance.
func (d *Driver) initInstance() error {
	C.getGlobalProcs()
	if C.enumerateInstanceVersion == nil || checkResult(C.vkEnumerateInstanceVersion(&d.ivers)) != nil {
		d.ivers = C.VK_API_VERSION_1_0
	}
	if isVariant(d.ivers) {
		// Do not support variants.
		return driver.ErrNoDevice
	}
	appInfo := (*C.VkApplicationInfo)(C.malloc(C.sizeof_VkApplicationInfo))
	defer C.free(unsafe.Pointer(appInfo))
	if d.ivers == C.VK_API_VERSION_1_0 {
		*appInfo = C.VkApplicationInfo{
			sType:      C.VK_STRUCTURE_TYPE_APPLICATION_INFO,
			apiVersion: C.VK_API_VERSION_1_0,
		}
	} else {
		*appInfo = C.VkApplicationInfo{
			sType:      C.VK_STRUCTURE_TYPE_APPLICATION_INFO,
			apiVersion: preferredAPIVersion,
		}
	}
	info := C.VkInstanceCreateInfo{
		sType:            C.VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO,
		pApplicationInfo: appInfo,
	}
	if err := checkResult(C.vkCreateInstance(&info, nil, &d.inst)); err != nil {
		return err
	}
	C.getInstanceProcs(d.inst)
	return nil
}

// initDevice initializes the Vulkan device.
func (d *Driver) initDevice() error {
	var n C.uint32_t
	if err := checkResult(C.vkEnumeratePhysicalDevices(d.inst, &n, nil)); err != nil {
		return err
	}
	// The wording in the spec seems to indicate that vkEnumeratePhysicalDevices
	// need not expose any devices at all. We assume that n could be zero here,
	// in which case no suitable device can be found.
	if n == 0 {
		return driver.ErrNoDevice
	}
	p := (*C.VkPhysicalDevice)(C.malloc(C.sizeof_VkPhysicalDevice * C.size_t(n)))
	defer C.free(unsafe.Pointer(p))
	if err := checkResult(C.vkEnumeratePhysicalDevices(d.inst, &n, p)); err != nil {
		return err
	}

	devs := unsafe.Slice(p, n)
	devProps := make([]C.VkPhysicalDeviceProperties, n)
	queProps := make([][]C.VkQueueFamilyProperties, n)
	for i, dev := range devs {
		C.vkGetPhysicalDeviceProperties(dev, &devProps[i])
		C.vkGetPhysicalDeviceQueueFamilyProperties(dev, &n, nil)
		p := (*C.VkQueueFamilyProperties)(C.malloc(C.sizeof_VkQueueFamilyProperties * C.size_t(n)))
		defer C.free(unsafe.Pointer(p))
		C.vkGetPhysicalDeviceQueueFamilyProperties(dev, &n, p)
		queProps[i] = unsafe.Slice(p, n)
	}

	// Select a suitable physical device to use. The bare minimum is a
	// device with a queue supporting compute operations.
	// Ideally, the device will be capable of tracing rays and
	// be hardware-accelerated.
	weight := 0
	rt := false
	for i, dev := range devs {
		if isVariant(devProps[i].apiVersion) {
			// Do not support variants.
			continue
		}
		fam := len(queProps[i])
		flg := C.VkFlags(C.VK_QUEUE_COMPUTE_BIT)
		for j, qp := range queProps[i] {
			if qp.queueFlags&flg == flg {
				fam = j
				break
			}
		}
		if fam == len(queProps[i]) {
			// Device does not support compute operations.
			continue
		}
		wgt := 1
		if devProps[i].deviceType&(C.VK_PHYSICAL_DEVICE_TYPE_INTEGRATED_GPU|C.VK_PHYSICAL_DEVICE_TYPE_DISCRETE_GPU) != 0 {
			wgt++
		}
		canRT := d.canTrace(dev, devProps[i].apiVersion)
		if canRT {
			wgt += 2
		}
		if wgt > weight {
			d.pdev = dev
			devProps[i].deviceName[len(devProps[i].deviceName)-1] = 0
			d.dname = C.GoString(&devProps[i].deviceName[0])
			d.dvers = devProps[i].apiVersion
			d.qfam = C.uint32_t(fam)
			d.setLimits(&devProps[i].limits)
			rt = canRT
			weight = wgt
		}
	}
	if weight == 0 {
		// None of the exposed devices will suffice.
		return driver.ErrNoDevice
	}
	d.rt = rt
	C.vkGetPhysicalDeviceMemoryProperties(d.pdev, &d.mprop)
	d.mused = make([]int64, d.mprop.memoryHeapCount)

	// A single queue suffices since command buffers from
	// multiple WorkItems can be batched in one submission.
	quePrio := (*C.float)(C.malloc(C.sizeof_float))
	defer C.free(unsafe.Pointer(quePrio))
	*quePrio = 1.0
	queInfo := (*C.VkDeviceQueueCreateInfo)(C.malloc(C.sizeof_VkDeviceQueueCreateInfo))
	defer C.free(unsafe.Pointer(queInfo))
	*queInfo = C.VkDeviceQueueCreateInfo{
		sType:            C.VK_STRUCTURE_TYPE_DEVICE_QUEUE_CREATE_INFO,
		queueFamilyIndex: d.qfam,
		queueCount:       1,
		pQueuePriorities: quePrio,
	}
	info := C.VkDeviceCreateInfo{
		sType:                C.VK_STRUCTURE_TYPE_DEVICE_CREATE_INFO,
		queueCreateInfoCount: 1,
		pQueueCreateInfos:    queInfo,
	}
	defer d.setDeviceExts(&info)()
	defer d.setFeatures(&info)()
	if err := checkResult(C.vkCreateDevice(d.pdev, &info, nil, &d.dev)); err != nil {
		return err
	}
	C.getDeviceProcs(d.dev)
	C.vkGetDeviceQueue(d.dev, d.qfam, 0, &d.que)
	if d.rt {
		d.setTraceLimits()
	}
	return nil
}

// canTrace determines whether the given device can trace rays.
// Tracing requires the following from the implementation:
//   - Instance version 1.1 or newer
//   - Device version 1.2 or newer
//   - The extensions named by the ext* constants
//   - The bufferDeviceAddress, accelerationStructure and
//     rayTracingPipeline features
func (d *Driver) canTrace(pdev C.VkPhysicalDevice, dvers C.uint32_t) bool {
	if versionMajor(d.ivers) == 1 && versionMinor(d.ivers) < 1 {
		return false
	}
	if versionMajor(dvers) == 1 && versionMinor(dvers) < 2 {
		return false
	}
	if C.getPhysicalDeviceFeatures2 == nil {
		return false
	}
	exts, err := deviceExts(pdev)
	if err != nil {
		return false
	}
	req := [...]string{extAccelStructS, extDeferredOpsS, extRayTracingS}
	found := 0
	for _, e := range exts {
		for _, r := range req {
			if e == r {
				found++
				break
			}
		}
	}
	if found < len(req) {
		return false
	}
	rtp := (*C.VkPhysicalDeviceRayTracingPipelineFeaturesKHR)(C.malloc(C.sizeof_VkPhysicalDeviceRayTracingPipelineFeaturesKHR))
	defer C.free(unsafe.Pointer(rtp))
	accel := (*C.VkPhysicalDeviceAccelerationStructureFeaturesKHR)(C.malloc(C.sizeof_VkPhysicalDeviceAccelerationStructureFeaturesKHR))
	defer C.free(unsafe.Pointer(accel))
	v12 := (*C.VkPhysicalDeviceVulkan12Features)(C.malloc(C.sizeof_VkPhysicalDeviceVulkan12Features))
	defer C.free(unsafe.Pointer(v12))
	*rtp = C.VkPhysicalDeviceRayTracingPipelineFeaturesKHR{
		sType: C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_RAY_TRACING_PIPELINE_FEATURES_KHR,
	}
	*accel = C.VkPhysicalDeviceAccelerationStructureFeaturesKHR{
		sType: C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_ACCELERATION_STRUCTURE_FEATURES_KHR,
		pNext: unsafe.Pointer(rtp),
	}
	*v12 = C.VkPhysicalDeviceVulkan12Features{
		sType: C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_VULKAN_1_2_FEATURES,
		pNext: unsafe.Pointer(accel),
	}
	feat := C.VkPhysicalDeviceFeatures2{
		sType: C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_FEATURES_2,
		pNext: unsafe.Pointer(v12),
	}
	C.vkGetPhysicalDeviceFeatures2(pdev, &feat)
	return v12.bufferDeviceAddress == C.VK_TRUE &&
		accel.accelerationStructure == C.VK_TRUE &&
		rtp.rayTracingPipeline == C.VK_TRUE
}

// setLimits sets d.lim.
// The trace-related limits are left zeroed; setTraceLimits
// fills them in for capable devices.
func (d *Driver) setLimits(lim *C.VkPhysicalDeviceLimits) {
	d.lim = driver.Limits{
		MaxImage1D: int(lim.maxImageDimension1D),
		MaxImage2D: int(lim.maxImageDimension2D),
		MaxImage3D: int(lim.maxImageDimension3D),
		MaxLayers:  int(lim.maxImageArrayLayers),

		MaxDescHeaps:      int(lim.maxBoundDescriptorSets),
		MaxDBuffer:        int(lim.maxPerStageDescriptorStorageBuffers),
		MaxDImage:         int(lim.maxPerStageDescriptorStorageImages),
		MaxDConstant:      int(lim.maxPerStageDescriptorUniformBuffers),
		MaxDBufferRange:   int64(lim.maxStorageBufferRange),
		MaxDConstantRange: int64(lim.maxUniformBufferRange),

		MaxPushConst: int(lim.maxPushConstantsSize),

		MaxDispatch: [3]int{
			int(lim.maxComputeWorkGroupCount[0]),
			int(lim.maxComputeWorkGroupCount[1]),
			int(lim.maxComputeWorkGroupCount[2]),
		},
	}
}

// setTraceLimits sets the trace-related limits of d.lim.
// d.pdev must have been selected and d.rt must be true.
func (d *Driver) setTraceLimits() {
	accel := (*C.VkPhysicalDeviceAccelerationStructurePropertiesKHR)(C.malloc(C.sizeof_VkPhysicalDeviceAccelerationStructurePropertiesKHR))
	defer C.free(unsafe.Pointer(accel))
	rtp := (*C.VkPhysicalDeviceRayTracingPipelinePropertiesKHR)(C.malloc(C.sizeof_VkPhysicalDeviceRayTracingPipelinePropertiesKHR))
	defer C.free(unsafe.Pointer(rtp))
	*accel = C.VkPhysicalDeviceAccelerationStructurePropertiesKHR{
		sType: C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_ACCELERATION_STRUCTURE_PROPERTIES_KHR,
	}
	*rtp = C.VkPhysicalDeviceRayTracingPipelinePropertiesKHR{
		sType: C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_RAY_TRACING_PIPELINE_PROPERTIES_KHR,
		pNext: unsafe.Pointer(accel),
	}
	prop := C.VkPhysicalDeviceProperties2{
		sType: C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_PROPERTIES_2,
		pNext: unsafe.Pointer(rtp),
	}
	C.vkGetPhysicalDeviceProperties2(d.pdev, &prop)

	d.lim.MaxDAccel = int(accel.maxPerStageDescriptorAccelerationStructures)
	d.lim.HandleSize = int(rtp.shaderGroupHandleSize)
	d.lim.HandleAlign = int(rtp.shaderGroupHandleAlignment)
	d.lim.GroupBaseAlign = int(rtp.shaderGroupBaseAlignment)
	d.lim.ScratchAlign = int(accel.minAccelerationStructureScratchOffsetAlignment)
	// Acceleration structure offsets must be multiples
	// of 256 (fixed by the API).
	d.lim.AccelAlign = 256
	d.lim.MaxTraceRecur = int(rtp.maxRayRecursionDepth)
	d.lim.MaxTraceInvoke = int64(rtp.maxRayDispatchInvocationCount)
	d.lim.MaxInstances = int64(accel.maxInstanceCount)
}

// setFeatures chooses which features to enable.
// Tracing requires bufferDeviceAddress, accelerationStructure
// and rayTracingPipeline; no other features are used.
func (d *Driver) setFeatures(info *C.VkDeviceCreateInfo) (free func()) {
	if !d.rt {
		return func() {}
	}
	rtp := (*C.VkPhysicalDeviceRayTracingPipelineFeaturesKHR)(C.malloc(C.sizeof_VkPhysicalDeviceRayTracingPipelineFeaturesKHR))
	accel := (*C.VkPhysicalDeviceAccelerationStructureFeaturesKHR)(C.malloc(C.sizeof_VkPhysicalDeviceAccelerationStructureFeaturesKHR))
	v12 := (*C.VkPhysicalDeviceVulkan12Features)(C.malloc(C.sizeof_VkPhysicalDeviceVulkan12Features))
	*rtp = C.VkPhysicalDeviceRayTracingPipelineFeaturesKHR{
		sType:              C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_RAY_TRACING_PIPELINE_FEATURES_KHR,
		rayTracingPipeline: C.VK_TRUE,
	}
	*accel = C.VkPhysicalDeviceAccelerationStructureFeaturesKHR{
		sType:                 C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_ACCELERATION_STRUCTURE_FEATURES_KHR,
		pNext:                 unsafe.Pointer(rtp),
		accelerationStructure: C.VK_TRUE,
	}
	*v12 = C.VkPhysicalDeviceVulkan12Features{
		sType:               C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_VULKAN_1_2_FEATURES,
		pNext:               unsafe.Pointer(accel),
		bufferDeviceAddress: C.VK_TRUE,
	}
	proxy := (*C.VkBaseOutStructure)(unsafe.Pointer(info))
	for proxy.pNext != nil {
		proxy = proxy.pNext
	}
	proxy.pNext = (*C.VkBaseOutStructure)(unsafe.Pointer(v12))

	return func() {
		C.free(unsafe.Pointer(v12))
		C.free(unsafe.Pointer(accel))
		C.free(unsafe.Pointer(rtp))
	}
}

// Open initializes the driver.
func (d *Driver) Open() (gpu driver.GPU, err error) {
	if d.dev != nil {
		return d, nil
	}
	if err = d.open(); err != nil {
		goto fail
	}
	if err = d.initInstance(); err != nil {
		goto fail
	}
	if err = d.initDevice(); err != nil {
		goto fail
	}
	d.cdata = make(chan *commitData, runtime.NumCPU())
	for i := 0; i < cap(d.cdata); i++ {
		var cd *commitData
		if cd, err = d.newCommitData(); err != nil {
			goto fail
		}
		d.cdata <- cd
	}
	return d, nil
fail:
	d.Close()
	return nil, err
}

// Name returns the driver name.
func (d *Driver) Name() string { return driverName }

// Close deinitializes the driver.
func (d *Driver) Close() {
	if d == nil {
		return
	}
	// We check the instance and device handles here
	// because the procs might not have been loaded.
	if d.inst != nil {
		if d.dev != nil {
			C.vkDeviceWaitIdle(d.dev)
			for len(d.cdata) > 0 {
				d.destroyCommitData(<-d.cdata)
			}
			// TODO: Ensure that all objects created
			// from d.dev were destroyed.
			C.vkDestroyDevice(d.dev, nil)
		}
		C.vkDestroyInstance(d.inst, nil)
	}
	C.clearProcs()
	d.close()
	*d = Driver{}
}

// memory represents a device memory allocation.
type memory struct {
	d     *Driver
	size  int64
	vis   bool
	bound bool
	p     []byte
	mem   C.VkDeviceMemory
	typ   int
	heap  int
}

// selectMemory selects a suitable memory type from the device.
// It returns the index of the selected memory, or -1 if none suffices.
func (d *Driver) selectMemory(typeBits uint, prop C.VkMemoryPropertyFlags) int {
	for i := 0; i < int(d.mprop.memoryTypeCount); i++ {
		if 1<<i&typeBits != 0 {
			flags := d.mprop.memoryTypes[i].propertyFlags
			if flags&prop == prop {
				return i
			}
		}
	}
	return -1
}

// newMemory creates a new memory allocation.
// devAddr indicates that the memory will back buffers whose
// device addresses may be queried; such allocations request
// VK_MEMORY_ALLOCATE_DEVICE_ADDRESS_BIT.
func (d *Driver) newMemory(req C.VkMemoryRequirements, visible, devAddr bool) (*memory, error) {
	var prop C.VkMemoryPropertyFlags = C.VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT
	if visible {
		prop |= C.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT | C.VK_MEMORY_PROPERTY_HOST_COHERENT_BIT
	}

	typ := d.selectMemory(uint(req.memoryTypeBits), prop)
	if typ == -1 {
		// Device-local memory is desired but not required.
		prop &^= C.VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT
	}
	typ = d.selectMemory(uint(req.memoryTypeBits), prop)
	if typ == -1 {
		return nil, errors.New("vk: no suitable memory type found")
	}

	var flags *C.VkMemoryAllocateFlagsInfo
	if devAddr {
		flags = (*C.VkMemoryAllocateFlagsInfo)(C.malloc(C.sizeof_VkMemoryAllocateFlagsInfo))
		defer C.free(unsafe.Pointer(flags))
		*flags = C.VkMemoryAllocateFlagsInfo{
			sType: C.VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_FLAGS_INFO,
			flags: C.VK_MEMORY_ALLOCATE_DEVICE_ADDRESS_BIT,
		}
	}
	info := C.VkMemoryAllocateInfo{
		sType:           C.VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_INFO,
		pNext:           unsafe.Pointer(flags),
		allocationSize:  req.size,
		memoryTypeIndex: C.uint32_t(typ),
	}
	var mem C.VkDeviceMemory
	if err := checkResult(C.vkAllocateMemory(d.dev, &info, nil, &mem)); err != nil {
		return nil, err
	}
	heap := int(d.mprop.memoryTypes[typ].heapIndex)
	d.mused[heap] += int64(req.size)

	return &memory{
		d:    d,
		size: int64(req.size),
		vis:  visible,
		mem:  mem,
		typ:  typ,
		heap: heap,
	}, nil
}

// mmap maps the memory for host access.
// The memory must be host visible (m.vis) and must have been bound to a
// resource (m.bound).
func (m *memory) mmap() error {
	if !m.vis {
		panic("cannot map memory that is not host visible")
	}
	if !m.bound {
		panic("cannot map memory that is not bound to a resource")
	}
	if len(m.p) == 0 {
		var p unsafe.Pointer
		if err := checkResult(C.vkMapMemory(m.d.dev, m.mem, 0, C.VK_WHOLE_SIZE, 0, &p)); err != nil {
			return err
		}
		m.p = unsafe.Slice((*byte)(p), m.size)
	}
	return nil
}

// unmap unmaps the memory.
func (m *memory) unmap() {
	if len(m.p) != 0 {
		C.vkUnmapMemory(m.d.dev, m.mem)
		m.p = nil
	}
}

// free deallocates and invalidates the memory.
func (m *memory) free() {
	if m == nil {
		return
	}
	if m.d != nil {
		C.vkFreeMemory(m.d.dev, m.mem, nil)
		m.d.mused[m.heap] -= m.size
	}
	*m = memory{}
}

// Driver returns the receiver (for driver.GPU conformance).
func (d *Driver) Driver() driver.Driver { return d }

// Limits returns the implementation limits.
func (d *Driver) Limits() driver.Limits { return d.lim }

// checkResult returns an error derived from a VkResult value.
// If such value does not indicate an error, it returns nil instead.
func checkResult(res C.VkResult) error {
	if res >= 0 {
		// Not an error: VK_ERROR_* values are all negative.
		return nil
	}
	switch res {
	case C.VK_ERROR_OUT_OF_HOST_MEMORY:
		return errNoHostMemory
	case C.VK_ERROR_OUT_OF_DEVICE_MEMORY:
		return errNoDeviceMemory
	case C.VK_ERROR_INITIALIZATION_FAILED:
		return errInitFailed
	case C.VK_ERROR_DEVICE_LOST:
		return errDeviceLost
	case C.VK_ERROR_MEMORY_MAP_FAILED:
		return errMMapFailed
	case C.VK_ERROR_LAYER_NOT_PRESENT:
		return errNoLayer
	case C.VK_ERROR_EXTENSION_NOT_PRESENT:
		return errNoExtension
	case C.VK_ERROR_FEATURE_NOT_PRESENT:
		return errNoFeature
	case C.VK_ERROR_INCOMPATIBLE_DRIVER:
		return errDriverCompat
	case C.VK_ERROR_TOO_MANY_OBJECTS:
		return errTooManyObjects
	case C.VK_ERROR_FORMAT_NOT_SUPPORTED:
		return errUnsupportedFormat
	case C.VK_ERROR_FRAGMENTED_POOL:
		return errFragmentedPool
	case C.VK_ERROR_OUT_OF_POOL_MEMORY:
		return errNoPoolMemory
	case C.VK_ERROR_INVALID_EXTERNAL_HANDLE:
		return errExternalHandle
	case C.VK_ERROR_FRAGMENTATION:
		return errFragmentation
	case C.VK_ERROR_INVALID_OPAQUE_CAPTURE_ADDRESS:
		return errCaptureAddress
	}
	return errUnknown
}

// Common Vulkan errors (VK_ERROR_*).
var (
	errNoHostMemory      = driver.ErrNoHostMemory
	errNoDeviceMemory    = driver.ErrNoDeviceMemory
	errInitFailed        = errors.New("vk: initialization failed")
	errDeviceLost        = driver.ErrFatal
	errMMapFailed        = errors.New("vk: memory map failed")
	errNoLayer           = errors.New("vk: layer not present")
	errNoExtension       = errors.New("vk: extension not present")
	errNoFeature         = errors.New("vk: feature not present")
	errDriverCompat      = errors.New("vk: incompatible driver")
	errTooManyObjects    = errors.New("vk: too many objects")
	errUnsupportedFormat = errors.New("vk: format not supported")
	errFragmentedPool    = errors.New("vk: fragmented pool")
	errUnknown           = errors.New("vk: unknown error")
	errNoPoolMemory      = errors.New("vk: out of pool memory")
	errExternalHandle    = errors.New("vk: invalid external handle")
	errFragmentation     = errors.New("vk: fragmentation")
	errCaptureAddress    = errors.New("vk: invalid opaque capture address")
)

// DeviceName returns the name of the VkDevice that the driver
// is using.
func (d *Driver) DeviceName() string { return d.dname }

// InstanceVersion returns the version of the VkInstance that
// the driver is using.
func (d *Driver) InstanceVersion() (major, minor, patch int) {
	major = versionMajor(d.ivers)
	minor = versionMinor(d.ivers)
	patch = versionPatch(d.ivers)
	return
}

// DeviceVersion returns the version of the VkDevice that
// the driver is using.
func (d *Driver) DeviceVersion() (major, minor, patch int) {
	major = versionMajor(d.dvers)
	minor = versionMinor(d.dvers)
	patch = versionPatch(d.dvers)
	return
}

// versionMajor extracts the major version number from v.
// v must have been generated by VK_MAKE_API_VERSION.
func versionMajor(v C.uint32_t) int { return int(v >> 22 & 0x7f) }

// versionMinor extracts the minor version number from v.
// v must have been generated by VK_MAKE_API_VERSION.
func versionMinor(v C.uint32_t) int { return int(v >> 12 & 0x3ff) }

// versionPatch extracts the patch version number from v.
// v must have been generated by VK_MAKE_API_VERSION.
func versionPatch(v C.uint32_t) int { return int(v & 0xfff) }

// isVariant returns whether version v identifies a variant
// implementation of the Vulkan API.
// v must have been generated by VK_MAKE_API_VERSION.
func isVariant(v C.uint32_t) bool { return v>>29 != 0 }
