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

// cmdBuffer implements driver.CmdBuffer.
type cmdBuffer struct {
	d     *Driver
	pool  C.VkCommandPool
	cb    C.VkCommandBuffer
	begun bool
}

// NewCmdBuffer creates a new command buffer.
// The command buffer handle is allocated from an exclusive
// command pool, using d.qfam.
func (d *Driver) NewCmdBuffer() (driver.CmdBuffer, error) {
	var pool C.VkCommandPool
	poolInfo := C.VkCommandPoolCreateInfo{
		sType:            C.VK_STRUCTURE_TYPE_COMMAND_POOL_CREATE_INFO,
		flags:            C.VK_COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT,
		queueFamilyIndex: d.qfam,
	}
	err := checkResult(C.vkCreateCommandPool(d.dev, &poolInfo, nil, &pool))
	if err != nil {
		return nil, err
	}
	var cb C.VkCommandBuffer
	cbInfo := C.VkCommandBufferAllocateInfo{
		sType:              C.VK_STRUCTURE_TYPE_COMMAND_BUFFER_ALLOCATE_INFO,
		commandPool:        pool,
		level:              C.VK_COMMAND_BUFFER_LEVEL_PRIMARY,
		commandBufferCount: 1,
	}
	err = checkResult(C.vkAllocateCommandBuffers(d.dev, &cbInfo, &cb))
	if err != nil {
		C.vkDestroyCommandPool(d.dev, pool, nil)
		return nil, err
	}
	return &cmdBuffer{
		d:    d,
		pool: pool,
		cb:   cb,
	}, nil
}

// Begin prepares the command buffer for recording.
func (cb *cmdBuffer) Begin() error {
	if !cb.begun {
		info := C.VkCommandBufferBeginInfo{
			sType: C.VK_STRUCTURE_TYPE_COMMAND_BUFFER_BEGIN_INFO,
			flags: C.VK_COMMAND_BUFFER_USAGE_ONE_TIME_SUBMIT_BIT,
		}
		err := checkResult(C.vkBeginCommandBuffer(cb.cb, &info))
		if err != nil {
			return err
		}
		cb.begun = true
	}
	return nil
}

// SetPipeline sets the pipeline.
func (cb *cmdBuffer) SetPipeline(pl driver.Pipeline) {
	switch t := pl.(type) {
	case *tracePipeline:
		C.vkCmdBindPipeline(cb.cb, C.VK_PIPELINE_BIND_POINT_RAY_TRACING_KHR, t.pl)
	case *pipeline:
		C.vkCmdBindPipeline(cb.cb, C.VK_PIPELINE_BIND_POINT_COMPUTE, t.pl)
	}
}

// SetDescTableComp sets a descriptor table range for compute
// pipelines.
func (cb *cmdBuffer) SetDescTableComp(table driver.DescTable, start int, heapCopy []int) {
	cb.setDescTable(table, start, heapCopy, C.VK_PIPELINE_BIND_POINT_COMPUTE)
}

// SetDescTableTrace sets a descriptor table range for
// ray-tracing pipelines.
func (cb *cmdBuffer) SetDescTableTrace(table driver.DescTable, start int, heapCopy []int) {
	cb.setDescTable(table, start, heapCopy, C.VK_PIPELINE_BIND_POINT_RAY_TRACING_KHR)
}

// setDescTable records a descriptor set binding for the given
// bind point.
func (cb *cmdBuffer) setDescTable(table driver.DescTable, start int, heapCopy []int, bp C.VkPipelineBindPoint) {
	desc := table.(*descTable)
	ncpy := len(heapCopy)
	switch {
	case ncpy == 1:
		set := desc.h[start].sets[heapCopy[0]]
		C.vkCmdBindDescriptorSets(cb.cb, bp, desc.layout, C.uint32_t(start), 1, &set, 0, nil)
	case ncpy > 1:
		set := make([]C.VkDescriptorSet, ncpy)
		for i := range set {
			set[i] = desc.h[start+i].sets[heapCopy[i]]
		}
		C.vkCmdBindDescriptorSets(cb.cb, bp, desc.layout, C.uint32_t(start), C.uint32_t(ncpy), &set[0], 0, nil)
	}
}

// PushConst records an update of a push constant range.
func (cb *cmdBuffer) PushConst(table driver.DescTable, stages driver.Stage, off int, data []byte) {
	if len(data) == 0 {
		return
	}
	if len(data)&3 != 0 {
		panic("push constant data length is not a multiple of 4")
	}
	C.vkCmdPushConstants(cb.cb, table.(*descTable).layout, convStage(stages), C.uint32_t(off), C.uint32_t(len(data)), unsafe.Pointer(&data[0]))
}

// Dispatch dispatches compute thread groups.
func (cb *cmdBuffer) Dispatch(grpCountX, grpCountY, grpCountZ int) {
	C.vkCmdDispatch(cb.cb, C.uint32_t(grpCountX), C.uint32_t(grpCountY), C.uint32_t(grpCountZ))
}

// BuildBLAS records a build of a bottom-level acceleration
// structure.
func (cb *cmdBuffer) BuildBLAS(dst driver.AccelStruct, data *driver.BLASData, scratch driver.Buffer, scratchOff int64) {
	as := dst.(*accelStruct)
	if as.top {
		panic("BLAS build targeting a top-level structure")
	}
	p, n := blasGeoms(data)
	defer C.free(unsafe.Pointer(p))
	pr := (*C.VkAccelerationStructureBuildRangeInfoKHR)(C.malloc(C.size_t(n) * C.sizeof_VkAccelerationStructureBuildRangeInfoKHR))
	defer C.free(unsafe.Pointer(pr))
	ranges := unsafe.Slice(pr, n)
	for i := range data.Tris {
		ranges[i] = C.VkAccelerationStructureBuildRangeInfoKHR{
			primitiveCount: C.uint32_t(data.Tris[i].TriNr),
		}
	}
	for i := range data.Boxes {
		ranges[len(data.Tris)+i] = C.VkAccelerationStructureBuildRangeInfoKHR{
			primitiveCount: C.uint32_t(data.Boxes[i].BoxNr),
		}
	}
	info := C.VkAccelerationStructureBuildGeometryInfoKHR{
		sType:                    C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_GEOMETRY_INFO_KHR,
		_type:                    C.VK_ACCELERATION_STRUCTURE_TYPE_BOTTOM_LEVEL_KHR,
		flags:                    convBuildFlags(data.Flags),
		mode:                     C.VK_BUILD_ACCELERATION_STRUCTURE_MODE_BUILD_KHR,
		dstAccelerationStructure: as.as,
		geometryCount:            C.uint32_t(n),
		pGeometries:              p,
	}
	*(*C.VkDeviceAddress)(unsafe.Pointer(&info.scratchData)) = inputAddr(scratch, scratchOff)
	C.vkCmdBuildAccelerationStructuresKHR(cb.cb, 1, &info, &pr)
}

// BuildTLAS records a build of a top-level acceleration
// structure.
func (cb *cmdBuffer) BuildTLAS(dst driver.AccelStruct, data *driver.TLASData, scratch driver.Buffer, scratchOff int64) {
	as := dst.(*accelStruct)
	if !as.top {
		panic("TLAS build targeting a bottom-level structure")
	}
	p := tlasGeom(data)
	defer C.free(unsafe.Pointer(p))
	pr := (*C.VkAccelerationStructureBuildRangeInfoKHR)(C.malloc(C.sizeof_VkAccelerationStructureBuildRangeInfoKHR))
	defer C.free(unsafe.Pointer(pr))
	*pr = C.VkAccelerationStructureBuildRangeInfoKHR{
		primitiveCount: C.uint32_t(data.Count),
	}
	info := C.VkAccelerationStructureBuildGeometryInfoKHR{
		sType:                    C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_GEOMETRY_INFO_KHR,
		_type:                    C.VK_ACCELERATION_STRUCTURE_TYPE_TOP_LEVEL_KHR,
		flags:                    convBuildFlags(data.Flags),
		mode:                     C.VK_BUILD_ACCELERATION_STRUCTURE_MODE_BUILD_KHR,
		dstAccelerationStructure: as.as,
		geometryCount:            1,
		pGeometries:              p,
	}
	*(*C.VkDeviceAddress)(unsafe.Pointer(&info.scratchData)) = inputAddr(scratch, scratchOff)
	C.vkCmdBuildAccelerationStructuresKHR(cb.cb, 1, &info, &pr)
}

// TraceRays dispatches a grid of rays.
func (cb *cmdBuffer) TraceRays(tab *driver.SBT, width, height, depth int) {
	if width == 0 || height == 0 || depth == 0 {
		return
	}
	rgen := convSBTRegion(&tab.RayGen)
	miss := convSBTRegion(&tab.Miss)
	hit := convSBTRegion(&tab.Hit)
	call := convSBTRegion(&tab.Callable)
	C.vkCmdTraceRaysKHR(cb.cb, &rgen, &miss, &hit, &call, C.uint32_t(width), C.uint32_t(height), C.uint32_t(depth))
}

// CopyBuffer copies data between buffers.
func (cb *cmdBuffer) CopyBuffer(param *driver.BufferCopy) {
	cpy := C.VkBufferCopy{
		srcOffset: C.VkDeviceSize(param.FromOff),
		dstOffset: C.VkDeviceSize(param.ToOff),
		size:      C.VkDeviceSize(param.Size),
	}
	C.vkCmdCopyBuffer(cb.cb, param.From.(*buffer).buf, param.To.(*buffer).buf, 1, &cpy)
}

// CopyBufToImg copies data from a buffer to an image.
func (cb *cmdBuffer) CopyBufToImg(param *driver.BufImgCopy) {
	img := param.Img.(*image)
	cpy := convBufImgCopy(param, img)
	C.vkCmdCopyBufferToImage(cb.cb, param.Buf.(*buffer).buf, img.img, C.VK_IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL, 1, &cpy)
}

// CopyImgToBuf copies data from an image to a buffer.
func (cb *cmdBuffer) CopyImgToBuf(param *driver.BufImgCopy) {
	img := param.Img.(*image)
	cpy := convBufImgCopy(param, img)
	C.vkCmdCopyImageToBuffer(cb.cb, img.img, C.VK_IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL, param.Buf.(*buffer).buf, 1, &cpy)
}

// convBufImgCopy converts a driver.BufImgCopy to a
// VkBufferImageCopy.
func convBufImgCopy(param *driver.BufImgCopy, img *image) C.VkBufferImageCopy {
	return C.VkBufferImageCopy{
		bufferOffset:      C.VkDeviceSize(param.BufOff),
		bufferRowLength:   C.uint32_t(param.RowStrd),
		bufferImageHeight: C.uint32_t(param.SlcStrd),
		imageSubresource: C.VkImageSubresourceLayers{
			aspectMask:     img.subres.aspectMask,
			mipLevel:       C.uint32_t(param.Level),
			baseArrayLayer: C.uint32_t(param.Layer),
			layerCount:     C.uint32_t(param.Layers),
		},
		imageOffset: C.VkOffset3D{
			x: C.int32_t(param.ImgOff.X),
			y: C.int32_t(param.ImgOff.Y),
			z: C.int32_t(param.ImgOff.Z),
		},
		imageExtent: C.VkExtent3D{
			width:  C.uint32_t(param.Size.Width),
			height: C.uint32_t(param.Size.Height),
			depth:  C.uint32_t(param.Size.Depth),
		},
	}
}

// Fill fills a buffer range with copies of a byte value.
func (cb *cmdBuffer) Fill(buf driver.Buffer, off int64, value byte, size int64) {
	val := C.uint32_t(value)
	val |= val<<24 | val<<16 | val<<8
	C.vkCmdFillBuffer(cb.cb, buf.(*buffer).buf, C.VkDeviceSize(off), C.VkDeviceSize(size), val)
}

// Barrier inserts a number of global barriers in the command
// buffer.
func (cb *cmdBuffer) Barrier(b []driver.Barrier) {
	for i := range b {
		mb := C.VkMemoryBarrier{
			sType:         C.VK_STRUCTURE_TYPE_MEMORY_BARRIER,
			srcAccessMask: convAccess(b[i].AccessBefore),
			dstAccessMask: convAccess(b[i].AccessAfter),
		}
		C.vkCmdPipelineBarrier(cb.cb, convSyncBefore(b[i].SyncBefore), convSyncAfter(b[i].SyncAfter), 0, 1, &mb, 0, nil, 0, nil)
	}
}

// Transition inserts a number of image layout transitions in
// the command buffer.
func (cb *cmdBuffer) Transition(t []driver.Transition) {
	for i := range t {
		img := t[i].Img.(*image)
		imb := C.VkImageMemoryBarrier{
			sType:               C.VK_STRUCTURE_TYPE_IMAGE_MEMORY_BARRIER,
			srcAccessMask:       convAccess(t[i].AccessBefore),
			dstAccessMask:       convAccess(t[i].AccessAfter),
			oldLayout:           convLayout(t[i].LayoutBefore),
			newLayout:           convLayout(t[i].LayoutAfter),
			srcQueueFamilyIndex: C.VK_QUEUE_FAMILY_IGNORED,
			dstQueueFamilyIndex: C.VK_QUEUE_FAMILY_IGNORED,
			image:               img.img,
			subresourceRange: C.VkImageSubresourceRange{
				aspectMask:     img.subres.aspectMask,
				baseMipLevel:   C.uint32_t(t[i].Level),
				levelCount:     C.uint32_t(t[i].Levels),
				baseArrayLayer: C.uint32_t(t[i].Layer),
				layerCount:     C.uint32_t(t[i].Layers),
			},
		}
		C.vkCmdPipelineBarrier(cb.cb, convSyncBefore(t[i].SyncBefore), convSyncAfter(t[i].SyncAfter), 0, 0, nil, 0, nil, 1, &imb)
	}
}

// End ends command recording and prepares the command buffer
// for execution.
func (cb *cmdBuffer) End() error {
	if cb.begun {
		cb.begun = false
		return checkResult(C.vkEndCommandBuffer(cb.cb))
	}
	return nil
}

// Reset discards all recorded commands from the command buffer.
func (cb *cmdBuffer) Reset() error {
	err := checkResult(C.vkResetCommandBuffer(cb.cb, 0))
	if err != nil {
		return err
	}
	cb.begun = false
	return nil
}

// Destroy destroys the command buffer.
func (cb *cmdBuffer) Destroy() {
	if cb == nil {
		return
	}
	if cb.d != nil {
		// TODO: Skip wait if not in pending state.
		cb.d.qmu.Lock()
		C.vkQueueWaitIdle(cb.d.que)
		cb.d.qmu.Unlock()
		C.vkDestroyCommandPool(cb.d.dev, cb.pool, nil)
	}
	*cb = cmdBuffer{}
}

// commitData contains per-submission data used by the
// GPU.Commit method.
// It is only safe to reuse the data after the Commit call
// sends to the provided channel.
type commitData struct {
	fence C.VkFence
	cb    []C.VkCommandBuffer // C memory.
}

// newCommitData creates new commit data.
func (d *Driver) newCommitData() (*commitData, error) {
	info := C.VkFenceCreateInfo{
		sType: C.VK_STRUCTURE_TYPE_FENCE_CREATE_INFO,
	}
	var fence C.VkFence
	err := checkResult(C.vkCreateFence(d.dev, &info, nil, &fence))
	if err != nil {
		return nil, err
	}
	const ncb = 4
	p := C.malloc(C.sizeof_VkCommandBuffer * ncb)
	return &commitData{
		fence: fence,
		cb:    unsafe.Slice((*C.VkCommandBuffer)(p), ncb),
	}, nil
}

// destroyCommitData destroys commit data.
func (d *Driver) destroyCommitData(cd *commitData) {
	if cd == nil {
		return
	}
	C.vkDestroyFence(d.dev, cd.fence, nil)
	C.free(unsafe.Pointer(&cd.cb[0]))
	*cd = commitData{}
}

// resizeCB resizes cd.cb.
func (cd *commitData) resizeCB(min int) {
	n := len(cd.cb)
	switch {
	case n < min:
		for n < min {
			n *= 2
		}
	case n >= 2*min:
		n = min
	default:
		return
	}
	p := C.realloc(unsafe.Pointer(&cd.cb[0]), C.sizeof_VkCommandBuffer*C.size_t(n))
	cd.cb = unsafe.Slice((*C.VkCommandBuffer)(p), n)
}

// Commit commits a batch of command buffers to the GPU for
// execution.
// It returns as soon as the batch is submitted; wk is sent
// through ch when execution completes, with wk.Err set to the
// execution result.
func (d *Driver) Commit(wk *driver.WorkItem, ch chan<- *driver.WorkItem) error {
	if len(wk.Work) == 0 {
		wk.Err = nil
		go func() { ch <- wk }()
		return nil
	}
	// Take commit data from the driver and return it when
	// execution completes.
	// If too many calls to Commit were issued, we will
	// block here waiting for data to become available.
	cd := <-d.cdata
	err := checkResult(C.vkResetFences(d.dev, 1, &cd.fence))
	if err != nil {
		d.cdata <- cd
		return err
	}
	cd.resizeCB(len(wk.Work))
	for i := range wk.Work {
		cd.cb[i] = wk.Work[i].(*cmdBuffer).cb
	}
	info := C.VkSubmitInfo{
		sType:              C.VK_STRUCTURE_TYPE_SUBMIT_INFO,
		commandBufferCount: C.uint32_t(len(wk.Work)),
		pCommandBuffers:    &cd.cb[0],
	}
	d.qmu.Lock()
	res := C.vkQueueSubmit(d.que, 1, &info, cd.fence)
	d.qmu.Unlock()
	if err = checkResult(res); err != nil {
		d.cdata <- cd
		return err
	}
	go func() {
		// Wait until queue submission completes execution.
		// Note that errors here pertain to the batch as a
		// whole, not to individual command buffers.
		for {
			res := C.vkWaitForFences(d.dev, 1, &cd.fence, C.VK_TRUE, C.UINT64_MAX)
			if res != C.VK_TIMEOUT {
				wk.Err = checkResult(res)
				break
			}
		}
		d.cdata <- cd
		ch <- wk
	}()
	return nil
}

// convSBTRegion converts a driver.SBTRegion to a
// VkStridedDeviceAddressRegionKHR.
func convSBTRegion(r *driver.SBTRegion) C.VkStridedDeviceAddressRegionKHR {
	if r.Buf == nil {
		return C.VkStridedDeviceAddressRegionKHR{}
	}
	return C.VkStridedDeviceAddressRegionKHR{
		deviceAddress: inputAddr(r.Buf, r.Off),
		stride:        C.VkDeviceSize(r.Stride),
		size:          C.VkDeviceSize(r.Size),
	}
}

// convSync converts a driver.Sync to a VkPipelineStageFlags.
func convSync(sn driver.Sync) (flags C.VkPipelineStageFlags) {
	if sn&driver.SComputeShading != 0 {
		flags |= C.VK_PIPELINE_STAGE_COMPUTE_SHADER_BIT
	}
	if sn&driver.SAccelBuild != 0 {
		flags |= C.VK_PIPELINE_STAGE_ACCELERATION_STRUCTURE_BUILD_BIT_KHR
	}
	if sn&driver.STraceShading != 0 {
		flags |= C.VK_PIPELINE_STAGE_RAY_TRACING_SHADER_BIT_KHR
	}
	if sn&driver.SCopy != 0 {
		flags |= C.VK_PIPELINE_STAGE_TRANSFER_BIT
	}
	if sn&driver.SAll != 0 {
		flags |= C.VK_PIPELINE_STAGE_ALL_COMMANDS_BIT
	}
	return
}

// convSyncBefore converts a driver.Sync used as a first
// synchronization scope.
// Empty stage masks are not allowed in barrier commands.
func convSyncBefore(sn driver.Sync) C.VkPipelineStageFlags {
	if flags := convSync(sn); flags != 0 {
		return flags
	}
	return C.VK_PIPELINE_STAGE_TOP_OF_PIPE_BIT
}

// convSyncAfter converts a driver.Sync used as a second
// synchronization scope.
// Empty stage masks are not allowed in barrier commands.
func convSyncAfter(sn driver.Sync) C.VkPipelineStageFlags {
	if flags := convSync(sn); flags != 0 {
		return flags
	}
	return C.VK_PIPELINE_STAGE_BOTTOM_OF_PIPE_BIT
}

// convAccess converts a driver.Access to a VkAccessFlags.
func convAccess(ac driver.Access) (flags C.VkAccessFlags) {
	if ac&driver.ACopyRead != 0 {
		flags |= C.VK_ACCESS_TRANSFER_READ_BIT
	}
	if ac&driver.ACopyWrite != 0 {
		flags |= C.VK_ACCESS_TRANSFER_WRITE_BIT
	}
	if ac&driver.AShaderRead != 0 {
		flags |= C.VK_ACCESS_SHADER_READ_BIT
	}
	if ac&driver.AShaderWrite != 0 {
		flags |= C.VK_ACCESS_SHADER_WRITE_BIT
	}
	if ac&driver.AAccelRead != 0 {
		flags |= C.VK_ACCESS_ACCELERATION_STRUCTURE_READ_BIT_KHR
	}
	if ac&driver.AAccelWrite != 0 {
		flags |= C.VK_ACCESS_ACCELERATION_STRUCTURE_WRITE_BIT_KHR
	}
	if ac&driver.AAnyRead != 0 {
		flags |= C.VK_ACCESS_MEMORY_READ_BIT
	}
	if ac&driver.AAnyWrite != 0 {
		flags |= C.VK_ACCESS_MEMORY_WRITE_BIT
	}
	return
}

// convLayout converts a driver.Layout to a VkImageLayout.
func convLayout(lay driver.Layout) C.VkImageLayout {
	switch lay {
	case driver.LUndefined:
		return C.VK_IMAGE_LAYOUT_UNDEFINED
	case driver.LShaderStore:
		return C.VK_IMAGE_LAYOUT_GENERAL
	case driver.LCopySrc:
		return C.VK_IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL
	case driver.LCopyDst:
		return C.VK_IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL
	}

	// Expected to be unreachable.
	return ^C.VkImageLayout(0)
}
