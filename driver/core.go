// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package driver

// GPU is the main interface to an underlying driver implementation.
// It is used to create other types and to execute commands.
// A GPU is obtained from a call to Driver.Open.
type GPU interface {
	// Driver returns the Driver that owns the GPU.
	Driver() Driver

	// Commit commits a batch of command buffers to the GPU
	// for execution.
	// The command buffers in wk.Work execute in order, as a
	// single submission to a single queue.
	// This method returns as soon as the batch is submitted.
	// It sends wk back through ch when all commands complete
	// execution, with wk.Err set to the execution result.
	// Command buffers in wk.Work cannot be used for recording
	// until then, and resources referenced by their commands
	// must not be destroyed or reused before wk is received.
	Commit(wk *WorkItem, ch chan<- *WorkItem) error

	// NewCmdBuffer creates a new command buffer.
	NewCmdBuffer() (CmdBuffer, error)

	// NewShaderCode creates a new shader code.
	// The data slice must contain a word-aligned instruction
	// stream; its length must be a positive multiple of four
	// bytes.
	NewShaderCode(data []byte) (ShaderCode, error)

	// NewDescHeap creates a new descriptor heap.
	NewDescHeap(ds []Descriptor) (DescHeap, error)

	// NewDescTable creates a new descriptor table.
	// pc describes the push constant ranges available to
	// pipelines created against the table; it may be nil.
	NewDescTable(dh []DescHeap, pc []ConstRange) (DescTable, error)

	// NewPipeline creates a new pipeline.
	// The state parameter must be a pointer to a CompState or
	// a pointer to a TraceState.
	// Pipelines created from a TraceState also implement the
	// TracePipeline interface.
	NewPipeline(state any) (Pipeline, error)

	// NewBuffer creates a new buffer.
	NewBuffer(size int64, visible bool, usg Usage) (Buffer, error)

	// NewImage creates a new image.
	NewImage(pf PixelFmt, size Dim3D, layers, levels, samples int, usg Usage) (Image, error)

	// AccelSizes computes the storage requirements of an
	// acceleration structure build.
	// The data parameter must be a pointer to a BLASData or a
	// pointer to a TLASData. Only primitive/instance counts and
	// build flags are considered; buffers in data may be nil.
	// This query performs no allocation.
	AccelSizes(data any) (AccelSizes, error)

	// NewAccelStruct creates a new acceleration structure
	// bound to the given buffer range.
	// The data parameter must be a pointer to a BLASData or a
	// pointer to a TLASData; it determines whether the structure
	// is bottom or top level. buf must have been created with
	// UAccelData usage, off must be aligned to Limits.AccelAlign,
	// and the off/size range must satisfy the sizes reported by
	// AccelSizes for equivalent data.
	// The structure holds no geometry until a build command
	// that targets it completes execution.
	NewAccelStruct(data any, buf Buffer, off, size int64) (AccelStruct, error)

	// Limits returns the implementation limits.
	// They are immutable for the lifetime of the GPU.
	Limits() Limits
}

// WorkItem describes a batch of command buffers for execution.
// The same WorkItem is delivered back to the channel given to
// GPU.Commit when execution completes.
type WorkItem struct {
	// Work contains the command buffers to execute.
	Work []CmdBuffer

	// Err is set by GPU.Commit to indicate whether the
	// batch executed successfully.
	Err error

	// Custom is free for use by client code.
	Custom any
}

// Destroyer is the interface that wraps the Destroy method.
// Types that implement this interface may allocate external
// memory that is not managed by GC, so Destroy must be called
// explicitly to ensure such memory is deallocated.
type Destroyer interface {
	Destroy()
}

// CmdBuffer is the interface that defines a command buffer.
// Commands are recorded into command buffers and later committed
// to the GPU for execution. The usage is as follows: first, call
// Begin to prepare the command buffer for recording; then record
// any number of commands; finally, call End and, if it succeeds,
// pass the command buffer to GPU.Commit for execution.
//
// Methods that record commands do not report errors directly.
// Invalid recordings are detected during End or execution,
// or cause a panic when the misuse is detectable on the spot.
type CmdBuffer interface {
	Destroyer

	// Begin prepares the command buffer for recording.
	// This method must be called before any command is
	// recorded in the command buffer. It needs to be called
	// again if the command buffer is executed or reset.
	Begin() error

	// SetPipeline sets the pipeline.
	// There is a separate binding point for each type of
	// pipeline.
	SetPipeline(pl Pipeline)

	// SetDescTableComp sets a descriptor table range for
	// compute pipelines.
	// heapCopy contains, for each heap in the range, the
	// index of the heap copy to use.
	SetDescTableComp(table DescTable, start int, heapCopy []int)

	// SetDescTableTrace sets a descriptor table range for
	// ray-tracing pipelines.
	// heapCopy contains, for each heap in the range, the
	// index of the heap copy to use.
	SetDescTableTrace(table DescTable, start int, heapCopy []int)

	// PushConst records an update of the push constant range
	// identified by stages/off in the given table.
	// The data length must be a multiple of four bytes and
	// the range must have been declared when the table was
	// created.
	PushConst(table DescTable, stages Stage, off int, data []byte)

	// Dispatch dispatches compute thread groups.
	// A count of zero in any dimension records no work.
	Dispatch(grpCountX, grpCountY, grpCountZ int)

	// BuildBLAS records a build of a bottom-level
	// acceleration structure.
	// dst must have been created from equivalent BLASData.
	// All buffers referenced by data must have been created
	// with UAccelInput|UDevAddr usage. scratch provides the
	// transient working memory for the build; it must have
	// been created with UDevAddr usage, scratchOff must be
	// aligned to Limits.ScratchAlign, and the buffer must
	// remain alive until the build completes execution.
	// Reading dst from a subsequent command requires a
	// Barrier with SAccelBuild/AAccelWrite before scopes.
	BuildBLAS(dst AccelStruct, data *BLASData, scratch Buffer, scratchOff int64)

	// BuildTLAS records a build of a top-level acceleration
	// structure.
	// It behaves like BuildBLAS, with instance data taking
	// the place of geometry. Every BLAS referenced by an
	// instance record must have completed its own build,
	// ordered by a previous Barrier, before this command
	// executes.
	BuildTLAS(dst AccelStruct, data *TLASData, scratch Buffer, scratchOff int64)

	// TraceRays dispatches a grid of rays.
	// tab locates the shader groups of the bound ray-tracing
	// pipeline. A zero extent in any dimension records no
	// work.
	TraceRays(tab *SBT, width, height, depth int)

	// CopyBuffer copies data between buffers.
	CopyBuffer(param *BufferCopy)

	// CopyBufToImg copies data from a buffer to an image.
	// The image must be in the LCopyDst layout.
	CopyBufToImg(param *BufImgCopy)

	// CopyImgToBuf copies data from an image to a buffer.
	// The image must be in the LCopySrc layout.
	CopyImgToBuf(param *BufImgCopy)

	// Fill fills a buffer range with copies of a byte value.
	// off and size must be aligned to 4 bytes.
	Fill(buf Buffer, off int64, value byte, size int64)

	// Barrier inserts a number of global barriers in the
	// command buffer.
	Barrier(b []Barrier)

	// Transition inserts a number of image layout transitions
	// in the command buffer.
	Transition(t []Transition)

	// End ends command recording and prepares the command
	// buffer for execution.
	// New recordings are not allowed until the command buffer
	// is executed or reset.
	// Upon failure, the command buffer is reset.
	End() error

	// Reset discards all recorded commands from the command
	// buffer.
	Reset() error
}

// BufferCopy describes the parameters of a copy command that
// copies data from one buffer to another.
type BufferCopy struct {
	From    Buffer
	FromOff int64
	To      Buffer
	ToOff   int64
	Size    int64
}

// BufImgCopy describes the parameters of a copy command that
// copies data between a buffer and an image.
type BufImgCopy struct {
	Buf    Buffer
	BufOff int64
	// RowStrd and SlcStrd specify the addressing of image
	// data in the buffer. They are given in pixels.
	RowStrd int
	SlcStrd int
	Img     Image
	ImgOff  Off3D
	Layer   int
	Level   int
	Size    Dim3D
	Layers  int
}

// Sync is the type of a synchronization scope.
type Sync int

// Synchronization scopes.
const (
	// Compute shader execution.
	SComputeShading Sync = 1 << iota
	// Acceleration structure build commands.
	SAccelBuild
	// Ray-tracing shader execution.
	STraceShading
	// Copy and fill commands.
	SCopy
	// All commands.
	SAll
	// No commands.
	SNone Sync = 0
)

// Access is the type of a memory access scope.
type Access int

// Memory access scopes.
const (
	ACopyRead Access = 1 << iota
	ACopyWrite
	AShaderRead
	AShaderWrite
	// Acceleration structure reads, whether from build
	// commands or from traversal in shaders.
	AAccelRead
	// Acceleration structure writes from build commands.
	AAccelWrite
	AAnyRead
	AAnyWrite
	ANone Access = 0
)

// Layout is the type of an image layout.
type Layout int

// Image layouts.
const (
	LUndefined Layout = iota
	// General-purpose layout; required for shader stores.
	LShaderStore
	LCopySrc
	LCopyDst
)

// Barrier represents a synchronization barrier.
type Barrier struct {
	SyncBefore   Sync
	SyncAfter    Sync
	AccessBefore Access
	AccessAfter  Access
}

// Transition represents a layout transition on a specific
// image subresource range.
type Transition struct {
	Barrier

	LayoutBefore Layout
	LayoutAfter  Layout
	Img          Image
	Layer        int
	Layers       int
	Level        int
	Levels       int
}

// ShaderCode is the interface that defines a shader binary
// for execution in a programmable pipeline stage.
type ShaderCode interface {
	Destroyer
}

// ShaderFunc specifies a function within a shader binary.
type ShaderFunc struct {
	Code ShaderCode
	Name string
}

// Stage is a mask of programmable stages.
type Stage int

// Stages.
const (
	SCompute Stage = 1 << iota
	SRayGen
	SMiss
	SClosestHit
	SAnyHit
	SIntersect
	SCallable
)

// DescType is the type of a descriptor.
type DescType int

// Descriptor types.
const (
	// Read/write buffer.
	DBuffer DescType = iota
	// Read/write image.
	DImage
	// Constant buffer.
	DConstant
	// Acceleration structure.
	DAccel
)

// Descriptor describes data for use in shaders.
type Descriptor struct {
	Type   DescType
	Stages Stage
	Nr     int
	Len    int
}

// ConstRange describes a push constant range of a descriptor
// table.
// Off and Len are given in bytes and must be multiples of
// four; Off+Len must not exceed Limits.MaxPushConst.
type ConstRange struct {
	Stages Stage
	Off    int
	Len    int
}

// DescHeap is the interface that defines a set of descriptors
// for use in programmable pipeline stages.
type DescHeap interface {
	Destroyer

	// New creates enough storage for n copies of each
	// descriptor.
	// All copies from a previous call to New are invalidated,
	// unless n is the same as the current Count value, in
	// which case it is a no-op.
	// Calling New(0) frees all storage.
	New(n int) error

	// SetBuffer updates the buffer ranges referred by the
	// given descriptor of the given heap copy.
	// The descriptor must be of type DBuffer or DConstant.
	SetBuffer(cpy, nr, start int, buf []Buffer, off, size []int64)

	// SetImage updates the image views referred by the
	// given descriptor of the given heap copy.
	// The descriptor must be of type DImage.
	SetImage(cpy, nr, start int, iv []ImageView)

	// SetAccel updates the acceleration structures referred
	// by the given descriptor of the given heap copy.
	// The descriptor must be of type DAccel.
	// The structures are typically top level; their builds
	// must be ordered before any dispatch that traverses
	// them.
	SetAccel(cpy, nr, start int, as []AccelStruct)

	// Count returns the number of heap copies created by New.
	Count() int
}

// DescTable is the interface that defines the bindings between
// a number of descriptor heaps, an optional set of push constant
// ranges, and the shaders in a pipeline.
type DescTable interface {
	Destroyer
}

// VertexFmt describes the format of vertex position data
// consumed by acceleration structure builds.
type VertexFmt int

// Vertex formats.
// Only single precision floating-point formats are supported
// as build inputs.
const (
	Float32x2 VertexFmt = iota
	Float32x3
)

// IndexFmt describes the format of index buffer data.
type IndexFmt int

// Index formats.
// The value is the index size in bytes.
const (
	Index16 IndexFmt = 2
	Index32 IndexFmt = 4
)

// CompState defines the state of a compute pipeline.
// Compute pipelines are created from compute states.
// The state is comprised of a single compute shader and a
// descriptor table describing the resources accessible to
// this shader.
type CompState struct {
	Func ShaderFunc
	Desc DescTable
}

// Pipeline is the interface that defines a GPU pipeline.
type Pipeline interface {
	Destroyer
}

// Usage is a mask indicating valid uses for a resource.
type Usage int

// Usage flags for Buffer and Image.
const (
	// The resource can be the source of copy commands.
	UCopySrc Usage = 1 << iota
	// The resource can be the destination of copy and
	// fill commands.
	UCopyDst
	// The resource can be read in shaders.
	UShaderRead
	// The resource can be written in shaders.
	UShaderWrite
	// The resource can provide constant data for shaders.
	// Valid only for Buffer.
	UShaderConst
	// The resource can back an acceleration structure.
	// Valid only for Buffer.
	UAccelData
	// The resource can provide input data for acceleration
	// structure builds, such as vertices, indices, bounding
	// boxes and instance records.
	// Valid only for Buffer.
	UAccelInput
	// The resource can store shader binding table records.
	// Valid only for Buffer.
	UShaderTable
	// The resource has a device-visible address that can be
	// retrieved with the Addr method.
	// Valid only for Buffer.
	UDevAddr
	// The resource can be used for any purpose valid for
	// its type.
	UGeneric Usage = 1<<iota - 1
)

// Buffer is the interface that defines a GPU buffer.
// The size of the buffer is fixed. When a larger buffer is
// necessary, a new one must be created and the data must be
// copied explicitly.
type Buffer interface {
	Destroyer

	// Visible returns whether the buffer is host visible.
	// Non-visible memory cannot be accessed by the CPU.
	Visible() bool

	// Bytes returns a slice of length Cap referring to the
	// underlying data. If the buffer is not host visible,
	// it returns nil instead.
	// The slice is valid for the lifetime of the buffer.
	Bytes() []byte

	// Cap returns the capacity of the buffer in bytes,
	// which may be greater than the size requested during
	// buffer creation.
	// This value is immutable.
	Cap() int64

	// Addr returns the device-visible address of the start
	// of the buffer.
	// The address is queried once, after the backing memory
	// is bound, and is non-zero and stable for the lifetime
	// of the buffer.
	// It panics if the buffer was created without UDevAddr
	// usage.
	Addr() uint64
}

// PixelFmt describes the format of a pixel.
type PixelFmt int

// Pixel formats.
const (
	// Color, 8-bit channels.
	RGBA8un PixelFmt = iota
	RGBA8ui
	RG8un
	R8un
	// Color, 16-bit channels.
	RGBA16f
	RG16f
	R16f
	// Color, 32-bit channels.
	RGBA32f
	RGBA32ui
	RG32f
	R32f
	R32ui
)

// Size returns the size of the pixel format in bytes.
func (f PixelFmt) Size() int {
	switch f {
	case R8un:
		return 1
	case RG8un, R16f:
		return 2
	case RGBA8un, RGBA8ui, RG16f, R32f, R32ui:
		return 4
	case RGBA16f, RG32f:
		return 8
	case RGBA32f, RGBA32ui:
		return 16
	}
	return 0
}

// Dim3D is a three-dimensional size.
type Dim3D struct {
	Width, Height, Depth int
}

// Off3D is a three-dimensional offset.
type Off3D struct {
	X, Y, Z int
}

// Image is the interface that defines a GPU image.
// Direct access to image memory is not provided, so copying
// data between the CPU and an image resource requires the use
// of a staging buffer.
type Image interface {
	Destroyer

	// NewView creates a new image view.
	// Image views represent a typed view of image storage.
	// Its type must be valid according to the image from
	// which it is created and the parameters given when
	// calling this method.
	// All views created from a given image must be destroyed
	// before the image itself is destroyed.
	NewView(typ ViewType, layer, layers, level, levels int) (ImageView, error)
}

// ViewType is the type of a resource view.
type ViewType int

// View types.
const (
	IView1D ViewType = iota
	IView2D
	IView3D
	IView2DArray
)

// ImageView is the interface that defines a typed view of an
// Image resource.
type ImageView interface {
	Destroyer
}

// Limits describes implementation limits.
// These may vary across drivers and devices.
type Limits struct {
	// Maximum width of 1D images.
	MaxImage1D int
	// Maximum width and height of 2D images.
	MaxImage2D int
	// Maximum width, height and depth of 3D images.
	MaxImage3D int
	// Maximum number of layers in an image.
	MaxLayers int

	// Maximum number of descriptor heaps in a descriptor
	// table.
	MaxDescHeaps int
	// Maximum number of buffer descriptors in a descriptor
	// table.
	MaxDBuffer int
	// Maximum number of image descriptors in a descriptor
	// table.
	MaxDImage int
	// Maximum number of constant descriptors in a descriptor
	// table.
	MaxDConstant int
	// Maximum number of acceleration structure descriptors
	// in a descriptor table.
	MaxDAccel int
	// Maximum range of buffer descriptors.
	MaxDBufferRange int64
	// Maximum range of constant descriptors.
	MaxDConstantRange int64

	// Maximum size of push constant data, in bytes.
	MaxPushConst int

	// Maximum dispatch count.
	MaxDispatch [3]int

	// Size of a shader group handle, in bytes.
	// Zero when the device cannot trace rays.
	HandleSize int
	// Required alignment of shader binding table records.
	HandleAlign int
	// Required alignment of shader binding table region
	// base addresses.
	GroupBaseAlign int
	// Required alignment of acceleration structure build
	// scratch addresses.
	ScratchAlign int
	// Required alignment of acceleration structure offsets
	// within their backing buffers.
	AccelAlign int
	// Maximum ray recursion depth of trace pipelines.
	MaxTraceRecur int
	// Maximum width x height x depth of a TraceRays call.
	MaxTraceInvoke int64
	// Maximum number of instances in a top-level
	// acceleration structure.
	MaxInstances int64
}
