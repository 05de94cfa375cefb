// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package main

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"slices"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/gviegas/rayt/driver"
	"github.com/gviegas/rayt/linear"
	"github.com/gviegas/rayt/tracer"
)

func putF32(b []byte, v []float32) {
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(x))
	}
}

func putU32(b []byte, v []uint32) {
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[i*4:], x)
	}
}

// traceSegments wraps a fixed set of base segments in boxes,
// traces one ray per query segment and reports every strict
// crossing found by the intersection shader.
func traceSegments(ctx *cli.Context) error {
	setupLogging(ctx)

	queryCnt := ctx.Int("queries")
	if queryCnt < 1 {
		return errors.New("query count must be positive")
	}
	maxHits := ctx.Int("cap")
	if maxHits < 1 {
		return errors.New("record capacity must be positive")
	}
	dir := ctx.String("shaders")

	drv, gpu, err := openGPU()
	if err != nil {
		return err
	}
	defer drv.Close()

	tr, err := tracer.New(gpu)
	if err != nil {
		return err
	}
	defer tr.Close()

	basePts := []float32{
		-0.8, -0.2, -0.2, 0.2,
		-0.1, -0.3, 0.4, 0.3,
		0.2, -0.4, 0.8, 0.4,
	}
	baseEdges := []uint32{
		0, 1, 0, 0,
		2, 3, 0, 0,
		4, 5, 0, 0,
	}
	baseCnt := len(baseEdges) / 4

	// Horizontal query segments spanning the scene, evenly
	// spaced across the band the base segments cover.
	queryPts := make([]float32, 0, queryCnt*4)
	queryEdges := make([]uint32, 0, queryCnt*4)
	for i := 0; i < queryCnt; i++ {
		y := float32(0)
		if queryCnt > 1 {
			y = -0.3 + 0.6*float32(i)/float32(queryCnt-1)
		}
		queryPts = append(queryPts, -1, y, 1, y)
		queryEdges = append(queryEdges, uint32(i*2), uint32(i*2+1), 0, 0)
	}

	// One box per base edge, padded so that axis-aligned
	// segments still have volume.
	const eps = 1e-5
	boxes := make([]tracer.AABB, baseCnt)
	for i := range boxes {
		p1 := basePts[baseEdges[i*4]*2:]
		p2 := basePts[baseEdges[i*4+1]*2:]
		boxes[i] = tracer.AABB{
			Min: [3]float32{min(p1[0], p2[0]) - eps, min(p1[1], p2[1]) - eps, -eps},
			Max: [3]float32{max(p1[0], p2[0]) + eps, max(p1[1], p2[1]) + eps, eps},
		}
	}
	m, err := tr.AddBoxes(boxes, false)
	if err != nil {
		return err
	}
	var world linear.M4
	world.I()
	tr.Instance(m, world, 0)

	newUpload := func(data any) (driver.Buffer, int64, error) {
		var size int64
		switch d := data.(type) {
		case []float32:
			size = int64(len(d)) * 4
		case []uint32:
			size = int64(len(d)) * 4
		}
		buf, err := gpu.NewBuffer(size, true, driver.UShaderRead)
		if err != nil {
			return nil, 0, err
		}
		switch d := data.(type) {
		case []float32:
			putF32(buf.Bytes(), d)
		case []uint32:
			putU32(buf.Bytes(), d)
		}
		return buf, size, nil
	}
	bQueryPts, nQueryPts, err := newUpload(queryPts)
	if err != nil {
		return err
	}
	defer bQueryPts.Destroy()
	bQueryEdge, nQueryEdge, err := newUpload(queryEdges)
	if err != nil {
		return err
	}
	defer bQueryEdge.Destroy()
	bBasePts, nBasePts, err := newUpload(basePts)
	if err != nil {
		return err
	}
	defer bBasePts.Destroy()
	bBaseEdge, nBaseEdge, err := newUpload(baseEdges)
	if err != nil {
		return err
	}
	defer bBaseEdge.Destroy()

	bHits, err := gpu.NewBuffer(int64(maxHits)*16, true, driver.UShaderWrite)
	if err != nil {
		return err
	}
	defer bHits.Destroy()
	clear(bHits.Bytes())
	bCnt, err := gpu.NewBuffer(4, true, driver.UShaderRead|driver.UShaderWrite)
	if err != nil {
		return err
	}
	defer bCnt.Destroy()
	clear(bCnt.Bytes())

	var scode [5]driver.ShaderCode
	for i, name := range [...]string{"seg_rgen.spv", "seg_rmiss.spv", "seg_rint.spv", "seg_rahit.spv", "seg_rchit.spv"} {
		sc, err := tracer.LoadCode(gpu, filepath.Join(dir, name))
		if err != nil {
			return err
		}
		defer sc.Destroy()
		scode[i] = sc
	}

	// Binding 0 is the top-level structure; 1-4 are the
	// segment inputs and 5-6 the output records and counter.
	ds := []driver.Descriptor{{
		Type:   driver.DAccel,
		Stages: driver.SRayGen | driver.SMiss | driver.SClosestHit | driver.SAnyHit | driver.SIntersect,
		Nr:     0,
		Len:    1,
	}}
	for nr := 1; nr <= 6; nr++ {
		ds = append(ds, driver.Descriptor{
			Type:   driver.DBuffer,
			Stages: driver.SRayGen | driver.SIntersect | driver.SAnyHit,
			Nr:     nr,
			Len:    1,
		})
	}
	heap, err := gpu.NewDescHeap(ds)
	if err != nil {
		return err
	}
	defer heap.Destroy()
	pushStages := driver.SRayGen | driver.SAnyHit | driver.SIntersect
	desc, err := gpu.NewDescTable([]driver.DescHeap{heap}, []driver.ConstRange{{
		Stages: pushStages,
		Off:    0,
		Len:    16,
	}})
	if err != nil {
		return err
	}
	defer desc.Destroy()
	if err := heap.New(1); err != nil {
		return err
	}
	heap.SetBuffer(0, 1, 0, []driver.Buffer{bQueryPts}, []int64{0}, []int64{nQueryPts})
	heap.SetBuffer(0, 2, 0, []driver.Buffer{bQueryEdge}, []int64{0}, []int64{nQueryEdge})
	heap.SetBuffer(0, 3, 0, []driver.Buffer{bBasePts}, []int64{0}, []int64{nBasePts})
	heap.SetBuffer(0, 4, 0, []driver.Buffer{bBaseEdge}, []int64{0}, []int64{nBaseEdge})
	heap.SetBuffer(0, 5, 0, []driver.Buffer{bHits}, []int64{0}, []int64{int64(maxHits) * 16})
	heap.SetBuffer(0, 6, 0, []driver.Buffer{bCnt}, []int64{0}, []int64{4})

	p, err := tr.NewPipeline(&driver.TraceState{
		Funcs: []driver.TraceFunc{
			{Stage: driver.SRayGen, Func: driver.ShaderFunc{Code: scode[0], Name: "main"}},
			{Stage: driver.SMiss, Func: driver.ShaderFunc{Code: scode[1], Name: "main"}},
			{Stage: driver.SIntersect, Func: driver.ShaderFunc{Code: scode[2], Name: "main"}},
			{Stage: driver.SAnyHit, Func: driver.ShaderFunc{Code: scode[3], Name: "main"}},
			{Stage: driver.SClosestHit, Func: driver.ShaderFunc{Code: scode[4], Name: "main"}},
		},
		Groups: []driver.ShaderGroup{
			{Kind: driver.GGeneral, General: 0, ClosestHit: -1, AnyHit: -1, Intersect: -1},
			{Kind: driver.GGeneral, General: 1, ClosestHit: -1, AnyHit: -1, Intersect: -1},
			{Kind: driver.GProceduralHit, General: -1, ClosestHit: 4, AnyHit: 3, Intersect: 2},
		},
		MaxRecur: 1,
		Desc:     desc,
	})
	if err != nil {
		return err
	}
	defer p.Destroy()

	// Push layout is {queryCount, maxOut}, padded to 16 bytes.
	push := make([]byte, 16)
	binary.LittleEndian.PutUint32(push, uint32(queryCnt))
	binary.LittleEndian.PutUint32(push[4:], uint32(maxHits))

	if _, err = tr.Run(&tracer.Params{
		Pipeline: p,
		Desc:     desc,
		Heap:     heap,
		Stages:   pushStages,
		Push:     push,
		Width:    queryCnt,
		Height:   1,
		Depth:    1,
	}); err != nil {
		return err
	}

	cnt := binary.LittleEndian.Uint32(bCnt.Bytes())
	logger.Noticef("%d crossing(s) reported", cnt)
	if int(cnt) == maxHits {
		logger.Warningf("record capacity reached; crossings may be missing")
	}

	type crossing struct {
		query, base uint32
		x, y        float32
	}
	hb := bHits.Bytes()
	recs := make([]crossing, min(int(cnt), maxHits))
	for i := range recs {
		rec := hb[i*16:]
		recs[i] = crossing{
			query: binary.LittleEndian.Uint32(rec),
			base:  binary.LittleEndian.Uint32(rec[4:]),
			x:     math.Float32frombits(binary.LittleEndian.Uint32(rec[8:])),
			y:     math.Float32frombits(binary.LittleEndian.Uint32(rec[12:])),
		}
	}
	// The device appends records in completion order.
	slices.SortFunc(recs, func(a, b crossing) int {
		if c := cmp.Compare(a.query, b.query); c != 0 {
			return c
		}
		return cmp.Compare(a.base, b.base)
	})

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Query", "Base", "X", "Y"})
	for i := range recs {
		table.Append([]string{
			fmt.Sprintf("%d", recs[i].query),
			fmt.Sprintf("%d", recs[i].base),
			fmt.Sprintf("%g", recs[i].x),
			fmt.Sprintf("%g", recs[i].y),
		})
	}
	table.Render()
	logger.Noticef("crossings\n%s", buf.String())
	return nil
}
