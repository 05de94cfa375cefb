// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package tracer

import (
	"fmt"
	"sync"

	"github.com/gviegas/rayt/driver"
)

// mockGPU implements driver.GPU without a device.
// Every call appends an event to an ordered log, so tests
// can assert on command sequencing and resource lifetimes.
type mockGPU struct {
	mu   sync.Mutex
	evs  []string
	lim  driver.Limits
	nbuf int
	live int
	// Failure injection.
	commitErr error
	execErr   error
	// Captured call data.
	lastSBT   driver.SBT
	lastAccel driver.AccelStruct
}

func newMockGPU() *mockGPU {
	return &mockGPU{
		lim: driver.Limits{
			MaxPushConst:   128,
			HandleSize:     32,
			HandleAlign:    64,
			GroupBaseAlign: 64,
			ScratchAlign:   256,
			AccelAlign:     256,
			MaxTraceRecur:  31,
			MaxTraceInvoke: 1 << 30,
			MaxInstances:   1 << 24,
		},
	}
}

func (g *mockGPU) record(ev string) {
	g.mu.Lock()
	g.evs = append(g.evs, ev)
	g.mu.Unlock()
}

func (g *mockGPU) events() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.evs...)
}

func (g *mockGPU) Driver() driver.Driver { return nil }

func (g *mockGPU) Commit(wk *driver.WorkItem, ch chan<- *driver.WorkItem) error {
	g.record(fmt.Sprintf("Commit(%d)", len(wk.Work)))
	if g.commitErr != nil {
		return g.commitErr
	}
	go func() {
		wk.Err = g.execErr
		g.record("complete")
		ch <- wk
	}()
	return nil
}

func (g *mockGPU) NewCmdBuffer() (driver.CmdBuffer, error) {
	g.record("NewCmdBuffer")
	g.mu.Lock()
	g.live++
	g.mu.Unlock()
	return &mockCmdBuffer{g: g}, nil
}

func (g *mockGPU) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	g.record(fmt.Sprintf("NewShaderCode(%d)", len(data)))
	g.mu.Lock()
	g.live++
	g.mu.Unlock()
	return &mockCode{g: g}, nil
}

func (g *mockGPU) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) {
	g.record("NewDescHeap")
	return &mockHeap{g: g}, nil
}

func (g *mockGPU) NewDescTable(dh []driver.DescHeap, pc []driver.ConstRange) (driver.DescTable, error) {
	g.record("NewDescTable")
	g.mu.Lock()
	g.live++
	g.mu.Unlock()
	return &mockTable{g: g}, nil
}

func (g *mockGPU) NewPipeline(state any) (driver.Pipeline, error) {
	switch s := state.(type) {
	case *driver.TraceState:
		g.record(fmt.Sprintf("NewPipeline(trace,%d)", len(s.Groups)))
		g.mu.Lock()
		g.live++
		g.mu.Unlock()
		return &mockPipeline{g: g, groups: len(s.Groups)}, nil
	}
	panic("mockGPU.NewPipeline: not a trace state")
}

func (g *mockGPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	g.mu.Lock()
	g.nbuf++
	g.live++
	id := g.nbuf
	g.mu.Unlock()
	g.record(fmt.Sprintf("NewBuffer#%d(%d,%t,%#x)", id, size, visible, int(usg)))
	// Allocations round up to 256B so Bytes is longer than
	// the requested size, like a real heap.
	n := (size + 255) &^ 255
	b := &mockBuffer{g: g, id: id, size: n, visible: visible, usg: usg}
	if visible {
		b.data = make([]byte, n)
	}
	return b, nil
}

func (g *mockGPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	g.record("NewImage")
	g.mu.Lock()
	g.live++
	g.mu.Unlock()
	return &mockImage{g: g}, nil
}

// Fabricated sizes: deterministic in the primitive count so
// tests can check monotonicity and offsets.
func (g *mockGPU) AccelSizes(data any) (driver.AccelSizes, error) {
	var kind string
	var n int
	switch d := data.(type) {
	case *driver.BLASData:
		kind = "BLAS"
		for i := range d.Tris {
			n += d.Tris[i].TriNr
		}
		for i := range d.Boxes {
			n += d.Boxes[i].BoxNr
		}
	case *driver.TLASData:
		kind = "TLAS"
		n = d.Count
	default:
		panic("mockGPU.AccelSizes: bad data")
	}
	g.record(fmt.Sprintf("AccelSizes(%s,%d)", kind, n))
	return driver.AccelSizes{
		Struct:  int64(256 * (1 + n)),
		Scratch: int64(128 * (1 + n)),
	}, nil
}

func (g *mockGPU) NewAccelStruct(data any, buf driver.Buffer, off, size int64) (driver.AccelStruct, error) {
	var kind string
	switch data.(type) {
	case *driver.BLASData:
		kind = "BLAS"
	case *driver.TLASData:
		kind = "TLAS"
	default:
		panic("mockGPU.NewAccelStruct: bad data")
	}
	g.mu.Lock()
	g.nbuf++
	g.live++
	id := g.nbuf
	g.mu.Unlock()
	g.record(fmt.Sprintf("NewAccelStruct#%d(%s)", id, kind))
	return &mockAccel{g: g, id: id, addr: 0xa0000000 + uint64(id)<<16}, nil
}

func (g *mockGPU) Limits() driver.Limits { return g.lim }

type mockBuffer struct {
	g       *mockGPU
	id      int
	size    int64
	visible bool
	usg     driver.Usage
	data    []byte
}

func (b *mockBuffer) Destroy() {
	b.g.record(fmt.Sprintf("DestroyBuffer#%d", b.id))
	b.g.mu.Lock()
	b.g.live--
	b.g.mu.Unlock()
}
func (b *mockBuffer) Visible() bool { return b.visible }
func (b *mockBuffer) Bytes() []byte { return b.data }
func (b *mockBuffer) Cap() int64    { return b.size }
func (b *mockBuffer) Addr() uint64 {
	if b.usg&driver.UDevAddr == 0 {
		panic("mockBuffer.Addr: no UDevAddr usage")
	}
	return 0xb0000000 + uint64(b.id)<<16
}

type mockAccel struct {
	g    *mockGPU
	id   int
	addr uint64
}

func (a *mockAccel) Destroy() {
	a.g.record(fmt.Sprintf("DestroyAccelStruct#%d", a.id))
	a.g.mu.Lock()
	a.g.live--
	a.g.mu.Unlock()
}
func (a *mockAccel) Addr() uint64 { return a.addr }

type mockCode struct{ g *mockGPU }

func (c *mockCode) Destroy() {
	c.g.record("DestroyShaderCode")
	c.g.mu.Lock()
	c.g.live--
	c.g.mu.Unlock()
}

type mockTable struct{ g *mockGPU }

func (t *mockTable) Destroy() {
	t.g.record("DestroyDescTable")
	t.g.mu.Lock()
	t.g.live--
	t.g.mu.Unlock()
}

// mockHeap records descriptor writes; binding 0 captures
// the structure for TLAS assertions.
type mockHeap struct {
	g *mockGPU
	n int
}

func (h *mockHeap) Destroy()       {}
func (h *mockHeap) New(n int) error { h.n = n; return nil }
func (h *mockHeap) SetBuffer(cpy, nr, start int, buf []driver.Buffer, off, size []int64) {
	h.g.record(fmt.Sprintf("SetBuffer(%d,%d)", cpy, nr))
}
func (h *mockHeap) SetImage(cpy, nr, start int, iv []driver.ImageView) {
	h.g.record(fmt.Sprintf("SetImage(%d,%d)", cpy, nr))
}
func (h *mockHeap) SetAccel(cpy, nr, start int, as []driver.AccelStruct) {
	h.g.record(fmt.Sprintf("SetAccel(%d,%d)", cpy, nr))
	if nr == 0 && len(as) > 0 {
		h.g.mu.Lock()
		h.g.lastAccel = as[0]
		h.g.mu.Unlock()
	}
}
func (h *mockHeap) Count() int { return h.n }

type mockImage struct{ g *mockGPU }

func (m *mockImage) Destroy() {
	m.g.record("DestroyImage")
	m.g.mu.Lock()
	m.g.live--
	m.g.mu.Unlock()
}
func (m *mockImage) NewView(typ driver.ViewType, layer, layers, level, levels int) (driver.ImageView, error) {
	return &mockView{}, nil
}

type mockView struct{}

func (*mockView) Destroy() {}

type mockPipeline struct {
	g      *mockGPU
	groups int
}

func (p *mockPipeline) Destroy() {
	p.g.record("DestroyPipeline")
	p.g.mu.Lock()
	p.g.live--
	p.g.mu.Unlock()
}

// Handles fills each group's handle with the group index so
// table tests can tell the records apart.
func (p *mockPipeline) Handles(first, count int) ([]byte, error) {
	p.g.record(fmt.Sprintf("Handles(%d,%d)", first, count))
	if first < 0 || count < 1 || first+count > p.groups {
		return nil, fmt.Errorf("mockPipeline.Handles: bad range [%d, %d)", first, first+count)
	}
	hs := p.g.lim.HandleSize
	b := make([]byte, count*hs)
	for i := 0; i < count; i++ {
		for j := 0; j < hs; j++ {
			b[i*hs+j] = byte(first + i)
		}
	}
	return b, nil
}

type mockCmdBuffer struct {
	g         *mockGPU
	recording bool
}

func (c *mockCmdBuffer) Destroy() {
	c.g.record("DestroyCmdBuffer")
	c.g.mu.Lock()
	c.g.live--
	c.g.mu.Unlock()
}

// rec panics when a command is recorded outside a
// Begin/End pair.
func (c *mockCmdBuffer) rec(ev string) {
	if !c.recording {
		panic("mockCmdBuffer: " + ev + " outside Begin/End")
	}
	c.g.record(ev)
}

func (c *mockCmdBuffer) Begin() error {
	if c.recording {
		panic("mockCmdBuffer: Begin while recording")
	}
	c.g.record("Begin")
	c.recording = true
	return nil
}

func (c *mockCmdBuffer) End() error {
	c.rec("End")
	c.recording = false
	return nil
}

func (c *mockCmdBuffer) Reset() error {
	c.g.record("Reset")
	c.recording = false
	return nil
}

func (c *mockCmdBuffer) SetPipeline(pl driver.Pipeline) { c.rec("SetPipeline") }

func (c *mockCmdBuffer) SetDescTableComp(table driver.DescTable, start int, heapCopy []int) {
	c.rec("SetDescTableComp")
}

func (c *mockCmdBuffer) SetDescTableTrace(table driver.DescTable, start int, heapCopy []int) {
	c.rec(fmt.Sprintf("SetDescTableTrace(%d,%v)", start, heapCopy))
}

func (c *mockCmdBuffer) PushConst(table driver.DescTable, stages driver.Stage, off int, data []byte) {
	c.rec(fmt.Sprintf("PushConst(%d,%d)", off, len(data)))
}

func (c *mockCmdBuffer) Dispatch(x, y, z int) {
	c.rec(fmt.Sprintf("Dispatch(%d,%d,%d)", x, y, z))
}

func (c *mockCmdBuffer) BuildBLAS(dst driver.AccelStruct, data *driver.BLASData, scratch driver.Buffer, scratchOff int64) {
	c.rec(fmt.Sprintf("BuildBLAS(off=%d)", scratchOff))
}

func (c *mockCmdBuffer) BuildTLAS(dst driver.AccelStruct, data *driver.TLASData, scratch driver.Buffer, scratchOff int64) {
	c.rec(fmt.Sprintf("BuildTLAS(n=%d,off=%d)", data.Count, scratchOff))
}

func (c *mockCmdBuffer) TraceRays(tab *driver.SBT, width, height, depth int) {
	c.rec(fmt.Sprintf("TraceRays(%d,%d,%d)", width, height, depth))
	c.g.mu.Lock()
	c.g.lastSBT = *tab
	c.g.mu.Unlock()
}

func (c *mockCmdBuffer) CopyBuffer(param *driver.BufferCopy) { c.rec("CopyBuffer") }

func (c *mockCmdBuffer) CopyBufToImg(param *driver.BufImgCopy) { c.rec("CopyBufToImg") }

// CopyImgToBuf fills the destination with a ramp, standing
// in for traced output.
func (c *mockCmdBuffer) CopyImgToBuf(param *driver.BufImgCopy) {
	c.rec("CopyImgToBuf")
	b := param.Buf.Bytes()
	for i := range b {
		b[i] = byte(i)
	}
}

func (c *mockCmdBuffer) Fill(buf driver.Buffer, off int64, value byte, size int64) {
	c.rec("Fill")
}

func (c *mockCmdBuffer) Barrier(b []driver.Barrier) {
	for i := range b {
		c.rec(fmt.Sprintf("Barrier(%#x->%#x)", int(b[i].SyncBefore), int(b[i].SyncAfter)))
	}
}

func (c *mockCmdBuffer) Transition(t []driver.Transition) {
	for i := range t {
		c.rec(fmt.Sprintf("Transition(%d->%d)", int(t[i].LayoutBefore), int(t[i].LayoutAfter)))
	}
}
