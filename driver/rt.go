// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrCannotTrace is the error returned by GPUs that cannot
// execute ray-tracing workloads.
var ErrCannotTrace = errors.New("driver: ray tracing not supported")

// BuildFlag is a mask of acceleration structure build options.
type BuildFlag int

// Build flags.
const (
	// Prioritize trace performance.
	BFastTrace BuildFlag = 1 << iota
	// Prioritize build speed.
	BFastBuild
	// Minimize scratch and storage size.
	BLowMem
)

// Triangles describes a triangle geometry for bottom-level
// acceleration structure builds.
type Triangles struct {
	// Vertex position data.
	// VertFmt must be one of the VertexFmt constants and
	// VertNr must be greater than the highest vertex index
	// the geometry may fetch.
	VertBuf  Buffer
	VertOff  int64
	VertFmt  VertexFmt
	VertStrd int64
	VertNr   int

	// Optional index data.
	// A nil IndexBuf means non-indexed geometry, with
	// vertices consumed consecutively.
	IndexBuf Buffer
	IndexOff int64
	IndexFmt IndexFmt

	// TriNr is the number of triangles to build.
	// It may be zero.
	TriNr int

	// Opaque geometry never invokes any-hit shaders.
	Opaque bool
}

// AABBs describes an axis-aligned bounding box geometry for
// bottom-level acceleration structure builds.
// Each box is six float32 values, minimum x/y/z followed by
// maximum x/y/z. Strd must be a multiple of 8 bytes and no
// less than 24.
type AABBs struct {
	Buf   Buffer
	Off   int64
	Strd  int64
	BoxNr int

	// Opaque geometry never invokes any-hit shaders.
	Opaque bool
}

// BLASData describes the inputs of a bottom-level acceleration
// structure build.
// At most one of Tris/Boxes may be non-empty, since a given
// structure stores a single geometry class.
// All referenced buffers must have been created with
// UAccelInput|UDevAddr usage.
type BLASData struct {
	Tris  []Triangles
	Boxes []AABBs
	Flags BuildFlag
}

// TLASData describes the inputs of a top-level acceleration
// structure build.
// Insts must contain Count packed instance records, laid out
// contiguously from byte offset Off. Records are produced by
// PutInstance. The buffer must have been created with
// UAccelInput|UDevAddr usage.
type TLASData struct {
	Insts Buffer
	Off   int64
	Count int
	Flags BuildFlag
}

// InstanceSize is the size of a packed instance record
// in bytes.
const InstanceSize = 64

// Instance describes one entry of a top-level acceleration
// structure.
type Instance struct {
	// Transform is a row-major 3x4 matrix that positions
	// the BLAS geometry in trace space.
	Transform [12]float32

	// ID is the custom index that shaders use to identify
	// the instance. It must fit in 24 bits.
	ID int

	// Mask is the visibility mask. A ray skips the instance
	// when the bitwise AND of the two masks is zero.
	// 0xff accepts rays of every mask.
	Mask int

	// Offset is added when computing the hit group record
	// index for the instance. It must fit in 24 bits.
	Offset int

	// NoCull disables front/back facing culls for the
	// instance, regardless of ray flags.
	NoCull bool

	// BLAS is the bottom-level structure that the instance
	// refers to. Its build must complete, ordered by a
	// barrier, before any top-level build that includes
	// the instance.
	BLAS AccelStruct
}

// PutInstance packs inst into b in the layout that top-level
// builds consume.
// It writes InstanceSize bytes and panics if b is shorter
// than that, if ID or Offset overflow their 24-bit fields,
// or if inst.BLAS is nil.
func PutInstance(b []byte, inst *Instance) {
	if len(b) < InstanceSize {
		panic("driver.PutInstance: len(b) < InstanceSize")
	}
	if inst.ID != inst.ID&0xffffff {
		panic("driver.PutInstance: invalid inst.ID")
	}
	if inst.Offset != inst.Offset&0xffffff {
		panic("driver.PutInstance: invalid inst.Offset")
	}
	if inst.BLAS == nil {
		panic("driver.PutInstance: nil inst.BLAS")
	}
	for i, x := range inst.Transform {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(x))
	}
	binary.LittleEndian.PutUint32(b[48:], uint32(inst.ID)|uint32(inst.Mask)<<24)
	var flags uint32
	if inst.NoCull {
		flags = 1
	}
	binary.LittleEndian.PutUint32(b[52:], uint32(inst.Offset)|flags<<24)
	binary.LittleEndian.PutUint64(b[56:], inst.BLAS.Addr())
}

// AccelSizes describes the storage requirements of an
// acceleration structure build, as reported by a
// GPU.AccelSizes query.
type AccelSizes struct {
	// Struct is the required capacity of the buffer range
	// that backs the structure itself.
	Struct int64

	// Scratch is the required capacity of the transient
	// scratch range that the build command consumes.
	Scratch int64
}

// AccelStruct is the interface that defines an acceleration
// structure.
// The structure borrows a range of a buffer created with
// UAccelData usage; destroying the structure does not destroy
// the buffer.
type AccelStruct interface {
	Destroyer

	// Addr returns the address that identifies the structure
	// in instance records.
	// It is non-zero and stable for the lifetime of the
	// structure.
	Addr() uint64
}

// GroupKind is the type of a shader group.
type GroupKind int

// Shader group kinds.
const (
	// A single raygen, miss or callable shader.
	GGeneral GroupKind = iota
	// A hit group for triangle geometry.
	// Intersection is fixed function.
	GTrianglesHit
	// A hit group for AABB geometry.
	// It requires an intersection shader.
	GProceduralHit
)

// ShaderGroup describes one shader group of a ray-tracing
// pipeline.
// Each field refers to a position in TraceState.Funcs.
// A value of -1 means the position is unused; positions not
// pertaining to the group's kind must be unused.
type ShaderGroup struct {
	Kind       GroupKind
	General    int
	ClosestHit int
	AnyHit     int
	Intersect  int
}

// TraceFunc specifies a shader function alongside the
// ray-tracing stage that it implements.
// The stage must be exactly one of SRayGen, SMiss,
// SClosestHit, SAnyHit, SIntersect or SCallable.
type TraceFunc struct {
	Stage Stage
	Func  ShaderFunc
}

// TraceState defines the state of a ray-tracing pipeline.
// Groups must contain at least one GGeneral group whose
// function has the SRayGen stage.
// MaxRecur is the maximum trace recursion the pipeline may
// reach, counting the rays spawned from the raygen stage;
// it must be between 1 and Limits.MaxTraceRecur.
type TraceState struct {
	Funcs    []TraceFunc
	Groups   []ShaderGroup
	MaxRecur int
	Desc     DescTable
}

// TracePipeline is the interface implemented by pipelines
// created from a TraceState.
// A GPU whose Limits report a non-zero HandleSize returns
// pipelines that implement this interface from NewPipeline
// calls that receive a *TraceState.
type TracePipeline interface {
	Pipeline

	// Handles returns the opaque handles of count shader
	// groups, starting from group index first.
	// The result has count x Limits.HandleSize bytes, with
	// handles laid out consecutively in group order.
	// Handles are copied into shader binding table records
	// to select the code that TraceRays invokes.
	Handles(first, count int) ([]byte, error)
}

// SBTRegion locates one region of a shader binding table.
// Buf must have been created with UShaderTable|UDevAddr
// usage. The base address, Buf.Addr() plus Off, must be
// aligned to Limits.GroupBaseAlign, and Stride must be a
// multiple of Limits.HandleAlign.
type SBTRegion struct {
	Buf    Buffer
	Off    int64
	Stride int64
	Size   int64
}

// SBT locates the shader groups that a TraceRays call may
// invoke.
// The RayGen region must contain exactly one record, with
// Stride equal to Size. Regions for group kinds the pipeline
// never invokes may be zero valued.
type SBT struct {
	RayGen   SBTRegion
	Miss     SBTRegion
	Hit      SBTRegion
	Callable SBTRegion
}
