// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package driver_test

import (
	"testing"

	"github.com/gviegas/rayt/driver"
)

func TestDrivers(t *testing.T) {
	drivers := driver.Drivers()
	for i := range drivers {
		name := drivers[i].Name()
		for j := 0; j < i; j++ {
			if name == drivers[j].Name() {
				t.Error("driver.Drivers: Driver.Name is not unique")
			}
		}
	}
	drivers2 := driver.Drivers()
	if len(drivers) != len(drivers2) {
		t.Error("driver.Drivers: length mismatch")
	} else {
		for i := range drivers {
			if drivers[i].Name() != drivers2[i].Name() {
				t.Error("driver.Drivers: Driver.Name mismatch")
			}
		}
	}
}

func TestDriverName(t *testing.T) {
	name := drv.Name()
	if name == "" {
		t.Error("Driver.Name: name is empty")
	}
	drv.Close()
	if drv.Name() != name {
		t.Error("Driver.Name: unexpected name after call to Close")
	}
	_, err := drv.Open()
	if err != nil {
		t.Fatal("Failed to re-Open drv - cannot continue")
	}
	if drv.Name() != name {
		t.Error("Driver.Name: unexpected name after call to Open")
	}
}

// nopDriver registers but never opens.
type nopDriver struct{ name string }

func (d *nopDriver) Open() (driver.GPU, error) { return nil, driver.ErrNoDevice }
func (d *nopDriver) Name() string              { return d.name }
func (d *nopDriver) Close()                    {}

func TestRegister(t *testing.T) {
	const name = "nop"
	for _, d := range driver.Drivers() {
		if d.Name() == name {
			t.Fatalf("driver.Drivers: unexpected driver '%s' - cannot continue", name)
		}
	}
	n := len(driver.Drivers())
	driver.Register(&nopDriver{name})
	if len(driver.Drivers()) != n+1 {
		t.Error("driver.Register: driver count mismatch")
	}
	repl := &nopDriver{name}
	driver.Register(repl)
	if len(driver.Drivers()) != n+1 {
		t.Error("driver.Register: same-name driver must replace, not append")
	}
	for _, d := range driver.Drivers() {
		if d.Name() == name && d != driver.Driver(repl) {
			t.Error("driver.Register: driver was not replaced")
		}
	}
}
