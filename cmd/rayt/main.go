// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Rayt dispatches hardware ray-tracing workloads and reports
// the traced results.
package main

import (
	"os"

	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "rayt"
	app.Usage = "dispatch ray-tracing workloads on the GPU"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "devices",
			Usage:  "list devices and their tracing capabilities",
			Action: listDevices,
		},
		{
			Name:  "triangles",
			Usage: "trace rays against triangle geometry",
			Description: `
Build acceleration structures over three overlapping slivers at
slightly increasing depth, trace rays towards them and report the
nearest hit and the number of any-hit invocations per ray.`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "shaders, s",
					Value: "driver/testdata",
					Usage: "directory holding compiled shader binaries",
				},
				cli.IntFlag{
					Name:  "rays, r",
					Value: 5,
					Usage: "number of rays to trace",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "write the traced records to a PNG file",
				},
			},
			Action: traceTriangles,
		},
		{
			Name:  "segments",
			Usage: "find segment crossings with procedural geometry",
			Description: `
Wrap a fixed set of base segments in axis-aligned boxes, build
acceleration structures over them and trace one ray per query
segment. An intersection shader reports every strict crossing
between a query and a base segment.`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "shaders, s",
					Value: "driver/testdata",
					Usage: "directory holding compiled shader binaries",
				},
				cli.IntFlag{
					Name:  "queries, q",
					Value: 2,
					Usage: "number of query segments",
				},
				cli.IntFlag{
					Name:  "cap",
					Value: 1024,
					Usage: "capacity of the crossing record buffer",
				},
			},
			Action: traceSegments,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}
