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

// pipeline implements driver.Pipeline.
type pipeline struct {
	d  *Driver
	pl C.VkPipeline
}

// tracePipeline implements driver.TracePipeline.
type tracePipeline struct {
	pipeline
	ngroup int
}

// NewPipeline creates a new pipeline.
func (d *Driver) NewPipeline(state any) (driver.Pipeline, error) {
	switch t := state.(type) {
	case *driver.CompState:
		return d.newCompute(t)
	case *driver.TraceState:
		return d.newTrace(t)
	}
	return nil, errors.New("unknown pipeline state type")
}

// newCompute creates a new compute pipeline.
func (d *Driver) newCompute(cs *driver.CompState) (driver.Pipeline, error) {
	p := &pipeline{d: d}
	var layout C.VkPipelineLayout
	if cs.Desc == nil {
		// We need a valid pipeline layout, so create a temporary
		// descTable for its layout and destroy it at the end.
		// This is unlikely to happen for compute however, since the
		// shader would have no resource to read from nor write to.
		if desc, err := d.NewDescTable(nil, nil); err != nil {
			return nil, err
		} else {
			defer desc.Destroy()
			layout = desc.(*descTable).layout
		}
	} else {
		layout = cs.Desc.(*descTable).layout
	}
	info := C.VkComputePipelineCreateInfo{
		sType: C.VK_STRUCTURE_TYPE_COMPUTE_PIPELINE_CREATE_INFO,
		stage: C.VkPipelineShaderStageCreateInfo{
			sType:  C.VK_STRUCTURE_TYPE_PIPELINE_SHADER_STAGE_CREATE_INFO,
			stage:  C.VK_SHADER_STAGE_COMPUTE_BIT,
			module: cs.Func.Code.(*shaderCode).mod,
			pName:  C.CString(cs.Func.Name),
		},
		layout:            layout,
		basePipelineIndex: -1,
	}
	defer C.free(unsafe.Pointer(info.stage.pName))
	// TODO: Pipeline cache.
	var cache C.VkPipelineCache
	err := checkResult(C.vkCreateComputePipelines(d.dev, cache, 1, &info, nil, &p.pl))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// newTrace creates a new ray-tracing pipeline.
func (d *Driver) newTrace(ts *driver.TraceState) (driver.Pipeline, error) {
	if !d.rt {
		return nil, driver.ErrCannotTrace
	}
	p := &tracePipeline{
		pipeline: pipeline{d: d},
		ngroup:   len(ts.Groups),
	}
	var layout C.VkPipelineLayout
	if ts.Desc == nil {
		// Like newCompute above.
		if desc, err := d.NewDescTable(nil, nil); err != nil {
			return nil, err
		} else {
			defer desc.Destroy()
			layout = desc.(*descTable).layout
		}
	} else {
		layout = ts.Desc.(*descTable).layout
	}

	nfunc := len(ts.Funcs)
	pstg := (*C.VkPipelineShaderStageCreateInfo)(C.malloc(C.size_t(nfunc) * C.sizeof_VkPipelineShaderStageCreateInfo))
	stgs := unsafe.Slice(pstg, nfunc)
	for i := range stgs {
		stgs[i] = C.VkPipelineShaderStageCreateInfo{
			sType:  C.VK_STRUCTURE_TYPE_PIPELINE_SHADER_STAGE_CREATE_INFO,
			stage:  convTraceStage(ts.Funcs[i].Stage),
			module: ts.Funcs[i].Func.Code.(*shaderCode).mod,
			pName:  C.CString(ts.Funcs[i].Func.Name),
		}
	}

	ngrp := len(ts.Groups)
	pgrp := (*C.VkRayTracingShaderGroupCreateInfoKHR)(C.malloc(C.size_t(ngrp) * C.sizeof_VkRayTracingShaderGroupCreateInfoKHR))
	grps := unsafe.Slice(pgrp, ngrp)
	for i := range grps {
		var typ C.VkRayTracingShaderGroupTypeKHR
		switch ts.Groups[i].Kind {
		case driver.GGeneral:
			typ = C.VK_RAY_TRACING_SHADER_GROUP_TYPE_GENERAL_KHR
		case driver.GTrianglesHit:
			typ = C.VK_RAY_TRACING_SHADER_GROUP_TYPE_TRIANGLES_HIT_GROUP_KHR
		case driver.GProceduralHit:
			typ = C.VK_RAY_TRACING_SHADER_GROUP_TYPE_PROCEDURAL_HIT_GROUP_KHR
		}
		grps[i] = C.VkRayTracingShaderGroupCreateInfoKHR{
			sType:              C.VK_STRUCTURE_TYPE_RAY_TRACING_SHADER_GROUP_CREATE_INFO_KHR,
			_type:              typ,
			generalShader:      shaderIndex(ts.Groups[i].General),
			closestHitShader:   shaderIndex(ts.Groups[i].ClosestHit),
			anyHitShader:       shaderIndex(ts.Groups[i].AnyHit),
			intersectionShader: shaderIndex(ts.Groups[i].Intersect),
		}
	}

	info := C.VkRayTracingPipelineCreateInfoKHR{
		sType:                        C.VK_STRUCTURE_TYPE_RAY_TRACING_PIPELINE_CREATE_INFO_KHR,
		stageCount:                   C.uint32_t(nfunc),
		pStages:                      pstg,
		groupCount:                   C.uint32_t(ngrp),
		pGroups:                      pgrp,
		maxPipelineRayRecursionDepth: C.uint32_t(ts.MaxRecur),
		layout:                       layout,
		basePipelineIndex:            -1,
	}
	// TODO: Pipeline cache.
	var dop C.VkDeferredOperationKHR
	var cache C.VkPipelineCache
	err := checkResult(C.vkCreateRayTracingPipelinesKHR(d.dev, dop, cache, 1, &info, nil, &p.pl))
	for i := range stgs {
		C.free(unsafe.Pointer(stgs[i].pName))
	}
	C.free(unsafe.Pointer(pstg))
	C.free(unsafe.Pointer(pgrp))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Handles returns the opaque handles of count shader groups,
// starting from group index first.
func (p *tracePipeline) Handles(first, count int) ([]byte, error) {
	if first < 0 || count < 1 || first+count > p.ngroup {
		panic("shader group range out of bounds")
	}
	n := count * p.d.lim.HandleSize
	b := make([]byte, n)
	err := checkResult(C.vkGetRayTracingShaderGroupHandlesKHR(p.d.dev, p.pl, C.uint32_t(first), C.uint32_t(count), C.size_t(n), unsafe.Pointer(&b[0])))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Destroy destroys the pipeline.
func (p *pipeline) Destroy() {
	if p == nil {
		return
	}
	if p.d != nil {
		C.vkDestroyPipeline(p.d.dev, p.pl, nil)
	}
	*p = pipeline{}
}

// Destroy destroys the ray-tracing pipeline.
func (p *tracePipeline) Destroy() {
	if p == nil {
		return
	}
	p.pipeline.Destroy()
	*p = tracePipeline{}
}

// convTraceStage converts a driver.Stage containing a single
// ray-tracing stage to a VkShaderStageFlagBits.
func convTraceStage(stg driver.Stage) C.VkShaderStageFlagBits {
	switch stg {
	case driver.SRayGen:
		return C.VK_SHADER_STAGE_RAYGEN_BIT_KHR
	case driver.SMiss:
		return C.VK_SHADER_STAGE_MISS_BIT_KHR
	case driver.SClosestHit:
		return C.VK_SHADER_STAGE_CLOSEST_HIT_BIT_KHR
	case driver.SAnyHit:
		return C.VK_SHADER_STAGE_ANY_HIT_BIT_KHR
	case driver.SIntersect:
		return C.VK_SHADER_STAGE_INTERSECTION_BIT_KHR
	case driver.SCallable:
		return C.VK_SHADER_STAGE_CALLABLE_BIT_KHR
	}

	// Expected to be unreachable.
	return ^C.VkShaderStageFlagBits(0)
}

// shaderIndex converts a driver.ShaderGroup position to the
// uint32 value expected in VkRayTracingShaderGroupCreateInfoKHR.
func shaderIndex(i int) C.uint32_t {
	if i < 0 {
		return C.VK_SHADER_UNUSED_KHR
	}
	return C.uint32_t(i)
}
