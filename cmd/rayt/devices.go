// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package main

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/gviegas/rayt/driver"
	_ "github.com/gviegas/rayt/driver/vk"
)

// listDevices opens every registered driver and reports
// whether its device can trace rays.
func listDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Driver", "Device", "Trace", "Handle size", "Max recursion", "Max instances"})

	for _, drv := range driver.Drivers() {
		gpu, err := drv.Open()
		if err != nil {
			logger.Warningf("%s: %v", drv.Name(), err)
			continue
		}
		name := "-"
		if x, ok := gpu.(interface{ DeviceName() string }); ok {
			name = x.DeviceName()
		}
		lim := gpu.Limits()
		table.Append([]string{
			drv.Name(),
			name,
			fmt.Sprintf("%t", lim.HandleSize != 0),
			fmt.Sprintf("%d", lim.HandleSize),
			fmt.Sprintf("%d", lim.MaxTraceRecur),
			fmt.Sprintf("%d", lim.MaxInstances),
		})
		drv.Close()
	}

	table.Render()
	logger.Noticef("available devices\n%s", buf.String())
	return nil
}

// openGPU opens the first registered driver whose device can
// trace rays.
// The caller closes the returned driver when done.
func openGPU() (driver.Driver, driver.GPU, error) {
	for _, drv := range driver.Drivers() {
		gpu, err := drv.Open()
		if err != nil {
			logger.Warningf("%s: %v", drv.Name(), err)
			continue
		}
		if gpu.Limits().HandleSize == 0 {
			logger.Warningf("%s: device cannot trace rays", drv.Name())
			drv.Close()
			continue
		}
		logger.Infof("using %s driver", drv.Name())
		return drv, gpu, nil
	}
	return nil, nil, errors.New("no device can trace rays")
}
