// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package tracer

import (
	"github.com/pkg/errors"

	"github.com/gviegas/rayt/driver"
)

// Pipeline couples a ray-tracing pipeline with the shader
// binding table that locates its groups.
type Pipeline struct {
	pl  driver.TracePipeline
	tab driver.SBT
	buf driver.Buffer
}

// NewPipeline creates a trace pipeline from state and
// assembles its shader binding table.
// state.Groups must be ordered raygen, miss, hit and then
// callable groups, with exactly one raygen group first;
// the table regions mirror this order, holding one record
// per group.
func (t *Tracer) NewPipeline(state *driver.TraceState) (*Pipeline, error) {
	nMiss, nHit, nCallable, err := groupCounts(state)
	if err != nil {
		return nil, err
	}
	pl, err := t.gpu.NewPipeline(state)
	if err != nil {
		return nil, errors.Wrap(err, tracerPrefix+"pipeline")
	}
	tpl := pl.(driver.TracePipeline)
	tab, buf, err := newTable(t.gpu, tpl, nMiss, nHit, nCallable)
	if err != nil {
		pl.Destroy()
		return nil, err
	}
	logger.Debugf("pipeline: %d miss, %d hit, %d callable record(s)", nMiss, nHit, nCallable)
	return &Pipeline{tpl, tab, buf}, nil
}

// Destroy releases the pipeline and its table storage.
func (p *Pipeline) Destroy() {
	if p.buf != nil {
		p.buf.Destroy()
	}
	if p.pl != nil {
		p.pl.Destroy()
	}
	*p = Pipeline{}
}

// groupCounts classifies state's shader groups into binding
// table regions and validates their order.
func groupCounts(state *driver.TraceState) (nMiss, nHit, nCallable int, err error) {
	// Region indices in required order: raygen, miss,
	// hit, callable.
	prev := -1
	for i, g := range state.Groups {
		var reg int
		switch g.Kind {
		case driver.GTrianglesHit, driver.GProceduralHit:
			reg = 2
			nHit++
		case driver.GGeneral:
			if g.General < 0 || g.General >= len(state.Funcs) {
				err = errors.New(tracerPrefix + "group references undefined function")
				return
			}
			switch state.Funcs[g.General].Stage {
			case driver.SRayGen:
				reg = 0
			case driver.SMiss:
				reg = 1
				nMiss++
			case driver.SCallable:
				reg = 3
				nCallable++
			default:
				err = errors.New(tracerPrefix + "general group with non-general stage")
				return
			}
		default:
			err = errors.New(tracerPrefix + "undefined driver.GroupKind constant")
			return
		}
		switch {
		case i == 0 && reg != 0:
			err = errors.New(tracerPrefix + "first group must be raygen")
			return
		case i > 0 && reg == 0:
			err = errors.New(tracerPrefix + "more than one raygen group")
			return
		case reg < prev:
			err = errors.New(tracerPrefix + "groups not ordered raygen, miss, hit, callable")
			return
		}
		prev = reg
	}
	if prev < 0 {
		err = errors.New(tracerPrefix + "no raygen group")
	}
	return
}

// newTable packs one record per shader group of pl into a
// new buffer and returns the regions describing the layout.
// Record strides round the handle size up to the handle
// alignment and region bases honor the group base alignment.
// The raygen region holds exactly one record, with stride
// equal to size; regions whose count is zero are left
// zero valued.
func newTable(gpu driver.GPU, pl driver.TracePipeline, nMiss, nHit, nCallable int) (driver.SBT, driver.Buffer, error) {
	lim := gpu.Limits()
	stride := alignUp(int64(lim.HandleSize), int64(lim.HandleAlign))
	base := int64(lim.GroupBaseAlign)
	rgenOff := int64(0)
	missOff := alignUp(rgenOff+stride, base)
	hitOff := alignUp(missOff+int64(nMiss)*stride, base)
	callOff := alignUp(hitOff+int64(nHit)*stride, base)

	buf, err := gpu.NewBuffer(callOff+int64(nCallable)*stride, true, driver.UShaderTable|driver.UDevAddr|driver.UCopyDst)
	if err != nil {
		return driver.SBT{}, nil, errors.Wrap(err, tracerPrefix+"binding table")
	}
	handles, err := pl.Handles(0, 1+nMiss+nHit+nCallable)
	if err != nil {
		buf.Destroy()
		return driver.SBT{}, nil, errors.Wrap(err, tracerPrefix+"group handles")
	}
	b := buf.Bytes()
	hsize := lim.HandleSize
	put := func(off int64, first, count int) {
		for i := 0; i < count; i++ {
			copy(b[off+int64(i)*stride:], handles[(first+i)*hsize:(first+i+1)*hsize])
		}
	}
	put(rgenOff, 0, 1)
	put(missOff, 1, nMiss)
	put(hitOff, 1+nMiss, nHit)
	put(callOff, 1+nMiss+nHit, nCallable)

	tab := driver.SBT{
		RayGen: driver.SBTRegion{Buf: buf, Off: rgenOff, Stride: stride, Size: stride},
	}
	if nMiss > 0 {
		tab.Miss = driver.SBTRegion{Buf: buf, Off: missOff, Stride: stride, Size: int64(nMiss) * stride}
	}
	if nHit > 0 {
		tab.Hit = driver.SBTRegion{Buf: buf, Off: hitOff, Stride: stride, Size: int64(nHit) * stride}
	}
	if nCallable > 0 {
		tab.Callable = driver.SBTRegion{Buf: buf, Off: callOff, Stride: stride, Size: int64(nCallable) * stride}
	}
	return tab, buf, nil
}

// alignUp rounds n up to a multiple of align.
// align must be a power of two.
func alignUp(n, align int64) int64 { return (n + align - 1) &^ (align - 1) }
