// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package main

import (
	"github.com/urfave/cli"

	"github.com/gviegas/rayt/internal/log"
)

var logger = log.New("rayt")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}
