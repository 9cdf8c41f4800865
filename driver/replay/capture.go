// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package replay records what a driver reports into a kar archive and
// plays it back as a driver.Driver, so device discovery can be examined
// on machines without the hardware it was captured on.
package replay

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/devblok/koru/driver"
	"github.com/devblok/koru/utility/kar"
)

// FormatVersion is stored in the archive header.
const FormatVersion = 1

const loaderEntry = "loader"

func deviceEntry(index int) string {
	return fmt.Sprintf("devices/%03d", index)
}

// Loader is what the loader itself advertises.
type Loader struct {
	Extensions []string
	Layers     []string
	Devices    int
}

// Device is everything recorded about one physical device.
type Device struct {
	Properties    driver.Properties
	Features      driver.Features
	Memory        driver.MemoryProperties
	QueueFamilies []driver.QueueFamilyProperties
}

// Capture loads drv, records its extensions, layers and physical
// devices, and writes them to w as a kar archive. An instance with no
// extensions or layers is created for the device enumeration.
func Capture(drv driver.Driver, w io.Writer) (int64, error) {
	if err := drv.Load(); err != nil {
		return 0, errors.Wrap(err, "loading vulkan")
	}
	defer drv.Unload()

	var loader Loader
	var err error
	if loader.Extensions, err = drv.EnumerateInstanceExtensions(); err != nil {
		return 0, errors.Wrap(err, "enumerating instance extensions")
	}
	if loader.Layers, err = drv.EnumerateInstanceLayers(); err != nil {
		return 0, errors.Wrap(err, "enumerating instance layers")
	}

	handle, err := drv.CreateInstance(driver.InstanceCreateInfo{
		ApplicationName: "koru capture",
		EngineName:      "Koru3D",
		APIVersion:      driver.MakeVersion(1, 0, 0),
	})
	if err != nil {
		return 0, errors.Wrap(err, "creating instance")
	}
	defer drv.DestroyInstance(handle)

	pds, err := drv.EnumeratePhysicalDevices(handle)
	if err != nil {
		return 0, errors.Wrap(err, "enumerating physical devices")
	}
	loader.Devices = len(pds)

	builder, err := kar.NewBuilder(kar.Header{
		Author:      hostname(),
		DateCreated: time.Now().Unix(),
		Version:     FormatVersion,
	})
	if err != nil {
		return 0, err
	}
	defer builder.Close()

	if err := addGob(builder, loaderEntry, loader); err != nil {
		return 0, err
	}
	for i, pd := range pds {
		dev := Device{
			Properties:    drv.PhysicalDeviceProperties(handle, pd),
			Features:      drv.PhysicalDeviceFeatures(handle, pd),
			Memory:        drv.PhysicalDeviceMemoryProperties(handle, pd),
			QueueFamilies: drv.PhysicalDeviceQueueFamilyProperties(handle, pd),
		}
		if err := addGob(builder, deviceEntry(i), dev); err != nil {
			return 0, err
		}
	}
	return builder.WriteTo(w)
}

func addGob(builder *kar.Builder, name string, v interface{}) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return errors.Wrapf(err, "encoding %s", name)
	}
	return builder.Add(name, &buf)
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
