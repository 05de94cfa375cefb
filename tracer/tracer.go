// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package tracer builds ray-tracing dispatches on top of the
// driver layer. It stages geometry, performs the two-phase
// acceleration structure builds, assembles shader binding
// tables and submits single-shot workloads whose results are
// read back to the CPU.
package tracer

import (
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/gviegas/rayt/driver"
	"github.com/gviegas/rayt/internal/log"
	"github.com/gviegas/rayt/linear"
)

const tracerPrefix = "tracer: "

var logger = log.New("tracer")

// MeshID identifies geometry staged on a Tracer.
type MeshID int

// AABB is an axis-aligned bounding box given by its minimum
// and maximum corners.
type AABB struct {
	Min [3]float32
	Max [3]float32
}

// Tracer stages geometry and dispatches single-shot
// ray-tracing workloads.
// Methods must not be called concurrently.
type Tracer struct {
	gpu      driver.GPU
	wk       chan *driver.WorkItem
	mem      arena
	meshes   []mesh
	insts    []instance
	instSpan span
	tlas     driver.AccelStruct
	tlasBuf  driver.Buffer
	tsizes   driver.AccelSizes
	tdata    driver.TLASData
	// Transient resources that pending work may reference.
	// They are released only after the completion wait.
	temp []driver.Destroyer
}

// mesh is staged bottom-level geometry.
// Spans resolve against the arena when builds are recorded,
// since arena growth replaces the buffer.
type mesh struct {
	vert       span
	idx        span
	vertNr     int
	triNr      int
	boxNr      int
	indexed    bool
	boxes      bool
	opaque     bool
	sizes      driver.AccelSizes
	buf        driver.Buffer
	as         driver.AccelStruct
	scratchOff int64
}

// instance pairs a staged mesh with its placement.
type instance struct {
	mesh  MeshID
	world linear.M4
	mask  int
}

// New creates a Tracer that dispatches work to gpu.
// It fails with driver.ErrCannotTrace when the device cannot
// trace rays.
func New(gpu driver.GPU) (*Tracer, error) {
	lim := gpu.Limits()
	if lim.HandleSize == 0 {
		return nil, driver.ErrCannotTrace
	}
	cb, err := gpu.NewCmdBuffer()
	if err != nil {
		return nil, errors.Wrap(err, tracerPrefix+"command buffer")
	}
	wk := make(chan *driver.WorkItem, 1)
	wk <- &driver.WorkItem{Work: []driver.CmdBuffer{cb}}
	logger.Debugf("new tracer: %dB handles, %d recursion(s) max", lim.HandleSize, lim.MaxTraceRecur)
	return &Tracer{
		gpu: gpu,
		wk:  wk,
		mem: arena{gpu: gpu},
	}, nil
}

// Close releases every resource the tracer owns.
// It must not be called while a Run is in flight.
func (t *Tracer) Close() {
	if t.wk != nil {
		wk := <-t.wk
		wk.Work[0].Destroy()
	}
	for i := range t.meshes {
		m := &t.meshes[i]
		if m.as != nil {
			m.as.Destroy()
			m.buf.Destroy()
		}
	}
	if t.tlas != nil {
		t.tlas.Destroy()
		t.tlasBuf.Destroy()
	}
	t.freeTemp()
	t.mem.release()
	*t = Tracer{}
}

// freeTemp destroys accumulated transient resources.
// It must not be called between a commit and the completion
// wait that follows it.
func (t *Tracer) freeTemp() {
	for _, x := range t.temp {
		x.Destroy()
	}
	t.temp = t.temp[:0]
}

// AddMesh stages triangle geometry.
// pos contains tightly packed x/y/z positions. idx optionally
// indexes into pos; when empty, vertices are consumed in
// order, three per triangle. Opaque geometry never invokes
// any-hit shaders.
// Zero triangles is valid and builds an empty structure.
func (t *Tracer) AddMesh(pos []float32, idx []uint32, opaque bool) (MeshID, error) {
	if len(pos)%3 != 0 {
		return -1, errors.New(tracerPrefix + "position count not a multiple of three")
	}
	m := mesh{
		vertNr: len(pos) / 3,
		opaque: opaque,
	}
	switch {
	case len(idx) > 0:
		if len(idx)%3 != 0 {
			return -1, errors.New(tracerPrefix + "index count not a multiple of three")
		}
		m.indexed = true
		m.triNr = len(idx) / 3
	case m.vertNr%3 != 0:
		return -1, errors.New(tracerPrefix + "vertex count not a multiple of three")
	default:
		m.triNr = m.vertNr / 3
	}
	var err error
	if m.vert, err = stage(&t.mem, pos); err != nil {
		return -1, err
	}
	if m.indexed {
		if m.idx, err = stage(&t.mem, idx); err != nil {
			t.mem.free(m.vert)
			return -1, err
		}
	}
	t.meshes = append(t.meshes, m)
	return MeshID(len(t.meshes) - 1), nil
}

// AddBoxes stages axis-aligned box geometry for procedural
// intersection. Opaque geometry never invokes any-hit
// shaders.
// Zero boxes is valid and builds an empty structure.
func (t *Tracer) AddBoxes(bounds []AABB, opaque bool) (MeshID, error) {
	data := make([]float32, 0, len(bounds)*6)
	for i := range bounds {
		data = append(data, bounds[i].Min[0], bounds[i].Min[1], bounds[i].Min[2])
		data = append(data, bounds[i].Max[0], bounds[i].Max[1], bounds[i].Max[2])
	}
	m := mesh{
		boxNr:  len(bounds),
		boxes:  true,
		opaque: opaque,
	}
	var err error
	if m.vert, err = stage(&t.mem, data); err != nil {
		return -1, err
	}
	t.meshes = append(t.meshes, m)
	return MeshID(len(t.meshes) - 1), nil
}

// Instance places a staged mesh in the scene.
// mask is the visibility mask; zero selects the all-bits
// default. Shaders identify the instance by its position in
// the call sequence. Box geometry disables facing culls, as
// procedural primitives have no winding.
func (t *Tracer) Instance(m MeshID, world linear.M4, mask int) {
	if m < 0 || int(m) >= len(t.meshes) {
		panic("tracer.Instance: invalid MeshID")
	}
	if mask == 0 {
		mask = 0xff
	}
	t.insts = append(t.insts, instance{m, world, mask})
}

// blasData resolves m's spans against the current arena
// buffer.
func (t *Tracer) blasData(m *mesh) driver.BLASData {
	if m.boxes {
		return driver.BLASData{
			Boxes: []driver.AABBs{{
				Buf:    t.mem.buf,
				Off:    m.vert.byteStart(),
				Strd:   24,
				BoxNr:  m.boxNr,
				Opaque: m.opaque,
			}},
			Flags: driver.BFastTrace,
		}
	}
	tris := driver.Triangles{
		VertBuf:  t.mem.buf,
		VertOff:  m.vert.byteStart(),
		VertFmt:  driver.Float32x3,
		VertStrd: 12,
		VertNr:   m.vertNr,
		TriNr:    m.triNr,
		Opaque:   m.opaque,
	}
	if m.indexed {
		tris.IndexBuf = t.mem.buf
		tris.IndexOff = m.idx.byteStart()
		tris.IndexFmt = driver.Index32
	}
	return driver.BLASData{
		Tris:  []driver.Triangles{tris},
		Flags: driver.BFastTrace,
	}
}

// Realize records the acceleration structure builds into cb.
// For each staged mesh that has no structure yet, it queries
// sizes, allocates backing storage and creates the structure;
// it then packs the instance records, handles the top-level
// structure likewise, and records every build followed by the
// barrier that orders builds before traversal. The scratch
// allocation is transient and must outlive the submission;
// the tracer releases it after the completion wait.
// Calling Realize again re-records the builds, which is
// idempotent for unchanged inputs.
func (t *Tracer) Realize(cb driver.CmdBuffer) error {
	lim := t.gpu.Limits()
	if n := int64(len(t.insts)); n > lim.MaxInstances {
		return errors.Errorf(tracerPrefix+"too many instances (%d)", n)
	}

	// The instance span is reserved up front so that later
	// stages see the final arena buffer.
	if t.instSpan.byteLen() > 0 {
		t.mem.free(t.instSpan)
		t.instSpan = span{}
	}
	if n := len(t.insts); n > 0 {
		s, err := t.mem.reserve(n * driver.InstanceSize)
		if err != nil {
			return err
		}
		t.instSpan = s
	}

	align := int64(lim.ScratchAlign)
	var scratchLen int64
	datas := make([]driver.BLASData, len(t.meshes))
	for i := range t.meshes {
		m := &t.meshes[i]
		datas[i] = t.blasData(m)
		if m.as == nil {
			sizes, err := t.gpu.AccelSizes(&datas[i])
			if err != nil {
				return errors.Wrap(err, tracerPrefix+"BLAS sizes")
			}
			buf, err := t.gpu.NewBuffer(sizes.Struct, false, driver.UAccelData|driver.UDevAddr)
			if err != nil {
				return errors.Wrap(err, tracerPrefix+"BLAS storage")
			}
			as, err := t.gpu.NewAccelStruct(&datas[i], buf, 0, sizes.Struct)
			if err != nil {
				buf.Destroy()
				return errors.Wrap(err, tracerPrefix+"BLAS")
			}
			m.sizes, m.buf, m.as = sizes, buf, as
			logger.Debugf("BLAS %d: %dB struct, %dB scratch", i, sizes.Struct, sizes.Scratch)
		}
		m.scratchOff = alignUp(scratchLen, align)
		scratchLen = m.scratchOff + m.sizes.Scratch
	}

	if t.instSpan.byteLen() > 0 {
		b := t.mem.buf.Bytes()[t.instSpan.byteStart():]
		for i := range t.insts {
			ins := &t.insts[i]
			driver.PutInstance(b[i*driver.InstanceSize:], &driver.Instance{
				Transform: rowMajor(&ins.world),
				ID:        i,
				Mask:      ins.mask,
				NoCull:    t.meshes[ins.mesh].boxes,
				BLAS:      t.meshes[ins.mesh].as,
			})
		}
	}

	// The TLAS is recreated when the instance count changes,
	// since its storage depends on it.
	if t.tlas != nil && t.tdata.Count != len(t.insts) {
		t.tlas.Destroy()
		t.tlasBuf.Destroy()
		t.tlas, t.tlasBuf = nil, nil
	}
	t.tdata = driver.TLASData{
		Insts: t.mem.buf,
		Off:   t.instSpan.byteStart(),
		Count: len(t.insts),
		Flags: driver.BFastTrace,
	}
	if t.tlas == nil {
		sizes, err := t.gpu.AccelSizes(&t.tdata)
		if err != nil {
			return errors.Wrap(err, tracerPrefix+"TLAS sizes")
		}
		buf, err := t.gpu.NewBuffer(sizes.Struct, false, driver.UAccelData|driver.UDevAddr)
		if err != nil {
			return errors.Wrap(err, tracerPrefix+"TLAS storage")
		}
		as, err := t.gpu.NewAccelStruct(&t.tdata, buf, 0, sizes.Struct)
		if err != nil {
			buf.Destroy()
			return errors.Wrap(err, tracerPrefix+"TLAS")
		}
		t.tsizes, t.tlasBuf, t.tlas = sizes, buf, as
		logger.Debugf("TLAS: %d instance(s), %dB struct, %dB scratch", len(t.insts), sizes.Struct, sizes.Scratch)
	}
	tlasOff := alignUp(scratchLen, align)
	scratchLen = tlasOff + t.tsizes.Scratch

	if scratchLen == 0 {
		scratchLen = align
	}
	scratch, err := t.gpu.NewBuffer(scratchLen, false, driver.UShaderRead|driver.UShaderWrite|driver.UDevAddr)
	if err != nil {
		return errors.Wrap(err, tracerPrefix+"scratch")
	}
	t.temp = append(t.temp, scratch)

	for i := range t.meshes {
		cb.BuildBLAS(t.meshes[i].as, &datas[i], scratch, t.meshes[i].scratchOff)
	}
	if len(t.meshes) > 0 {
		// Bottom-level builds must complete before the
		// top-level build fetches from them.
		cb.Barrier([]driver.Barrier{{
			SyncBefore:   driver.SAccelBuild,
			SyncAfter:    driver.SAccelBuild,
			AccessBefore: driver.AAccelWrite,
			AccessAfter:  driver.AAccelRead,
		}})
	}
	cb.BuildTLAS(t.tlas, &t.tdata, scratch, tlasOff)
	// Builds must complete before traversal starts.
	cb.Barrier([]driver.Barrier{{
		SyncBefore:   driver.SAccelBuild,
		SyncAfter:    driver.STraceShading,
		AccessBefore: driver.AAccelWrite,
		AccessAfter:  driver.AAccelRead,
	}})
	return nil
}

// Result selects a storage image that Run copies back to the
// host after tracing.
// The image must have been created with UShaderWrite|UCopySrc
// usage; Run transitions it from LUndefined to LShaderStore
// before the trace and to LCopySrc afterwards.
type Result struct {
	Img driver.Image
	Fmt driver.PixelFmt
	Dim driver.Dim3D
}

// Params configures a single-shot dispatch.
// Heap is the descriptor heap holding the scene bindings;
// its binding 0 must be a DAccel descriptor, which Run sets
// to the realized top-level structure. Remaining bindings
// are the caller's.
// HeapCopy selects the heap copy to bind for each heap of
// Desc, defaulting to the first copy of a single heap.
type Params struct {
	Pipeline *Pipeline
	Desc     driver.DescTable
	Heap     driver.DescHeap
	HeapCopy []int
	// Push constant payload; Stages must match the range
	// declared when Desc was created.
	Stages driver.Stage
	Push   []byte
	// Ray grid extent. A zero in any dimension traces
	// nothing.
	Width, Height, Depth int
	Result               *Result
}

// Run dispatches a single-shot trace.
// It records the realized builds, binds the pipeline and
// descriptors, pushes the payload, traces the ray grid and,
// when p.Result is set, copies the traced image into a
// readback buffer. The batch is committed once and Run
// blocks until the completion fence signals; transients are
// released only then. The returned bytes hold the readback
// contents, nil when p.Result is nil.
func (t *Tracer) Run(p *Params) (res []byte, err error) {
	switch {
	case p.Pipeline == nil:
		return nil, errors.New(tracerPrefix + "nil Params.Pipeline")
	case p.Desc == nil:
		return nil, errors.New(tracerPrefix + "nil Params.Desc")
	case p.Heap == nil:
		return nil, errors.New(tracerPrefix + "nil Params.Heap")
	}
	heapCopy := p.HeapCopy
	if heapCopy == nil {
		heapCopy = []int{0}
	}

	start := time.Now()
	wk := <-t.wk
	cb := wk.Work[0]
	defer func() {
		// Transients are safe to release here: every path
		// below either never commits or has waited for
		// completion already.
		t.freeTemp()
		t.wk <- wk
	}()

	if err = cb.Begin(); err != nil {
		return nil, err
	}
	if err = t.Realize(cb); err != nil {
		cb.Reset()
		return nil, err
	}
	p.Heap.SetAccel(heapCopy[0], 0, 0, []driver.AccelStruct{t.tlas})

	var (
		rdback driver.Buffer
		rbLen  int64
	)
	if p.Result != nil {
		cb.Transition([]driver.Transition{{
			Barrier: driver.Barrier{
				SyncBefore:   driver.SNone,
				SyncAfter:    driver.STraceShading,
				AccessBefore: driver.ANone,
				AccessAfter:  driver.AShaderWrite,
			},
			LayoutBefore: driver.LUndefined,
			LayoutAfter:  driver.LShaderStore,
			Img:          p.Result.Img,
			Layers:       1,
			Levels:       1,
		}})
	}
	cb.SetPipeline(p.Pipeline.pl)
	cb.SetDescTableTrace(p.Desc, 0, heapCopy)
	if len(p.Push) > 0 {
		cb.PushConst(p.Desc, p.Stages, 0, p.Push)
	}
	cb.TraceRays(&p.Pipeline.tab, p.Width, p.Height, p.Depth)
	if p.Result != nil {
		d := p.Result.Dim
		if d.Depth < 1 {
			d.Depth = 1
		}
		rbLen = int64(p.Result.Fmt.Size() * d.Width * d.Height * d.Depth)
		if rdback, err = t.gpu.NewBuffer(rbLen, true, driver.UCopyDst); err != nil {
			cb.Reset()
			return nil, errors.Wrap(err, tracerPrefix+"readback")
		}
		t.temp = append(t.temp, rdback)
		cb.Transition([]driver.Transition{{
			Barrier: driver.Barrier{
				SyncBefore:   driver.STraceShading,
				SyncAfter:    driver.SCopy,
				AccessBefore: driver.AShaderWrite,
				AccessAfter:  driver.ACopyRead,
			},
			LayoutBefore: driver.LShaderStore,
			LayoutAfter:  driver.LCopySrc,
			Img:          p.Result.Img,
			Layers:       1,
			Levels:       1,
		}})
		cb.CopyImgToBuf(&driver.BufImgCopy{
			Buf:     rdback,
			RowStrd: d.Width,
			SlcStrd: d.Height,
			Img:     p.Result.Img,
			Size:    p.Result.Dim,
			Layers:  1,
		})
	}
	if err = cb.End(); err != nil {
		cb.Reset()
		return nil, err
	}

	if err = t.gpu.Commit(wk, t.wk); err != nil {
		return nil, err
	}
	wk = <-t.wk
	err, wk.Err = wk.Err, nil
	if err != nil {
		return nil, err
	}
	if rdback != nil {
		res = append([]byte(nil), rdback.Bytes()[:rbLen]...)
	}
	logger.Debugf("traced %dx%dx%d in %v", p.Width, p.Height, p.Depth, time.Since(start))
	return res, nil
}

// rowMajor converts a column-major matrix to the row-major
// 3x4 layout of instance records.
func rowMajor(m *linear.M4) (t [12]float32) {
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			t[r*4+c] = m[c][r]
		}
	}
	return
}

// LoadCode reads a compiled shader binary from path and
// creates driver shader code from it.
// The file contents must be a positive multiple of four
// bytes long.
func LoadCode(gpu driver.GPU, path string) (driver.ShaderCode, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, tracerPrefix+"shader binary")
	}
	if n := len(b); n == 0 || n%4 != 0 {
		return nil, errors.Errorf(tracerPrefix+"%s: invalid shader binary size (%dB)", path, n)
	}
	sc, err := gpu.NewShaderCode(b)
	if err != nil {
		return nil, errors.Wrapf(err, tracerPrefix+"%s", path)
	}
	return sc, nil
}
