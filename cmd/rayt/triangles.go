// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/gviegas/rayt/driver"
	"github.com/gviegas/rayt/linear"
	"github.com/gviegas/rayt/tracer"
)

// traceTriangles builds three overlapping slivers at slightly
// increasing depth and traces rays at them from the origin
// along +z. Each ray reports its nearest hit point and how
// many triangles its any-hit shader saw.
func traceTriangles(ctx *cli.Context) error {
	setupLogging(ctx)

	rays := ctx.Int("rays")
	if rays < 1 {
		return errors.New("ray count must be positive")
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

	// Slivers spanning the x axis, each deeper and narrower
	// than the last.
	const eps = 1e-7
	verts := []float32{
		-1 - eps, 0, 1 * eps,
		1 + eps, eps, 1 * eps,
		1 + eps, -eps, 1 * eps,

		-0.5 - eps, 0, 2 * eps,
		0.5 + eps, eps, 2 * eps,
		0.5 + eps, -eps, 2 * eps,

		0 - eps, 0, 3 * eps,
		0 + eps, eps, 3 * eps,
		0 + eps, -eps, 3 * eps,
	}
	idx := make([]uint32, len(verts)/3)
	for i := range idx {
		idx[i] = uint32(i)
	}
	m, err := tr.AddMesh(verts, idx, false)
	if err != nil {
		return err
	}
	var world linear.M4
	world.I()
	tr.Instance(m, world, 0)

	var scode [4]driver.ShaderCode
	for i, name := range [...]string{"tri_rgen.spv", "tri_rmiss.spv", "tri_rchit.spv", "tri_rahit.spv"} {
		sc, err := tracer.LoadCode(gpu, filepath.Join(dir, name))
		if err != nil {
			return err
		}
		defer sc.Destroy()
		scode[i] = sc
	}

	pushStages := driver.SRayGen | driver.SMiss | driver.SClosestHit | driver.SAnyHit
	heap, err := gpu.NewDescHeap([]driver.Descriptor{
		{
			Type:   driver.DAccel,
			Stages: pushStages,
			Nr:     0,
			Len:    1,
		},
		{
			Type:   driver.DImage,
			Stages: driver.SRayGen,
			Nr:     1,
			Len:    1,
		},
	})
	if err != nil {
		return err
	}
	defer heap.Destroy()
	desc, err := gpu.NewDescTable([]driver.DescHeap{heap}, []driver.ConstRange{{
		Stages: pushStages,
		Off:    0,
		Len:    28,
	}})
	if err != nil {
		return err
	}
	defer desc.Destroy()
	if err := heap.New(1); err != nil {
		return err
	}

	// One vec4 record per ray.
	dim := driver.Dim3D{Width: rays, Height: 1}
	img, err := gpu.NewImage(driver.RGBA32f, dim, 1, 1, 1, driver.UCopySrc|driver.UShaderWrite)
	if err != nil {
		return err
	}
	defer img.Destroy()
	view, err := img.NewView(driver.IView2D, 0, 1, 0, 1)
	if err != nil {
		return err
	}
	defer view.Destroy()
	heap.SetImage(0, 1, 0, []driver.ImageView{view})

	p, err := tr.NewPipeline(&driver.TraceState{
		Funcs: []driver.TraceFunc{
			{Stage: driver.SRayGen, Func: driver.ShaderFunc{Code: scode[0], Name: "main"}},
			{Stage: driver.SMiss, Func: driver.ShaderFunc{Code: scode[1], Name: "main"}},
			{Stage: driver.SClosestHit, Func: driver.ShaderFunc{Code: scode[2], Name: "main"}},
			{Stage: driver.SAnyHit, Func: driver.ShaderFunc{Code: scode[3], Name: "main"}},
		},
		Groups: []driver.ShaderGroup{
			{Kind: driver.GGeneral, General: 0, ClosestHit: -1, AnyHit: -1, Intersect: -1},
			{Kind: driver.GGeneral, General: 1, ClosestHit: -1, AnyHit: -1, Intersect: -1},
			{Kind: driver.GTrianglesHit, General: -1, ClosestHit: 2, AnyHit: 3, Intersect: -1},
		},
		MaxRecur: 1,
		Desc:     desc,
	})
	if err != nil {
		return err
	}
	defer p.Destroy()

	// Push layout is {rayCount, origin, dir}, packed as
	// scalars. Every ray starts at the origin and travels
	// along +z.
	push := make([]byte, 28)
	binary.LittleEndian.PutUint32(push, uint32(rays))
	binary.LittleEndian.PutUint32(push[24:], math.Float32bits(1))

	res, err := tr.Run(&tracer.Params{
		Pipeline: p,
		Desc:     desc,
		Heap:     heap,
		Stages:   pushStages,
		Push:     push,
		Width:    rays,
		Height:   1,
		Depth:    1,
		Result: &tracer.Result{
			Img: img,
			Fmt: driver.RGBA32f,
			Dim: dim,
		},
	})
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Ray", "X", "Y", "Z", "Hits"})
	for i := 0; i < rays; i++ {
		rec := res[i*16:]
		table.Append([]string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%g", math.Float32frombits(binary.LittleEndian.Uint32(rec))),
			fmt.Sprintf("%g", math.Float32frombits(binary.LittleEndian.Uint32(rec[4:]))),
			fmt.Sprintf("%g", math.Float32frombits(binary.LittleEndian.Uint32(rec[8:]))),
			fmt.Sprintf("%g", math.Float32frombits(binary.LittleEndian.Uint32(rec[12:]))),
		})
	}
	table.Render()
	logger.Noticef("nearest hits\n%s", buf.String())

	if out := ctx.String("out"); out != "" {
		if err := writePNG(out, res, rays, 1); err != nil {
			return err
		}
		logger.Noticef("records written to %s", out)
	}
	return nil
}

// writePNG converts RGBA32f records to 8-bit color and encodes
// them as a PNG file. Components are clamped to [0, 1].
func writePNG(path string, recs []byte, w, h int) error {
	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		for c := 0; c < 4; c++ {
			f := math.Float32frombits(binary.LittleEndian.Uint32(recs[i*16+c*4:]))
			nrgba.Pix[i*4+c] = uint8(min(max(f, 0), 1) * 255)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot write records")
	}
	defer file.Close()
	return png.Encode(file, nrgba)
}
