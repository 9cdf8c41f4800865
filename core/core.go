// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core wires configuration and logging to instance creation.
package core

import (
	"github.com/devblok/koru/driver"
	"github.com/devblok/koru/instance"
)

var driverVersion = driver.MakeVersion(1, 0, 0)

// NewInstance loads drv and creates an instance as configured. The
// returned instance owns the loader; destroying it unloads the driver.
func NewInstance(drv driver.Driver, cfg InstanceConfiguration) (*instance.Instance, error) {
	loader, err := instance.NewLoader(drv)
	if err != nil {
		return nil, err
	}
	defer loader.Release()

	return instance.New(loader, cfg.Extensions, cfg.Layers, cfg.Options()...)
}
