// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/koru/core"
	"github.com/devblok/koru/driver/drivertest"
	"github.com/devblok/koru/instance"
)

func TestReport(t *testing.T) {
	c := qt.New(t)

	drv := &drivertest.Driver{
		Extensions: []string{"VK_KHR_surface"},
		Devices: []drivertest.Device{
			drivertest.GPU("GeForce GTX 1050 Ti", 2),
		},
	}
	noQueues := drivertest.GPU("llvmpipe", 4)
	noQueues.QueueFamilies = nil
	drv.Devices = append(drv.Devices, noQueues)

	inst, err := core.NewInstance(drv, core.InstanceConfiguration{
		Extensions: []instance.Extension{instance.KhrSurface},
	})
	c.Assert(err, qt.IsNil)
	defer inst.Destroy()

	r := newReport(inst)
	c.Assert(r.Devices, qt.HasLen, 2)

	gpu := r.Devices[0]
	c.Assert(gpu.Name, qt.Equals, "GeForce GTX 1050 Ti")
	c.Assert(gpu.APIVersion, qt.Equals, "1.1.0")
	c.Assert(gpu.DeviceLocalSize, qt.Equals, uint64(4<<30))
	c.Assert(gpu.Sharing, qt.DeepEquals, &sharingReport{Mode: "concurrent", Families: []uint32{0, 1}})
	c.Assert(r.Devices[1].Sharing, qt.IsNil)
	c.Assert(r.Devices[1].QueueFamilies, qt.HasLen, 0)

	raw, err := json.Marshal(r)
	c.Assert(err, qt.IsNil)

	var decoded struct {
		Extensions []string `json:"extensions"`
		Layers     []string `json:"layers"`
		Devices    []struct {
			Type          string   `json:"type"`
			Features      []string `json:"features"`
			QueueFamilies []struct {
				Flags string `json:"flags"`
			} `json:"queueFamilies"`
		} `json:"devices"`
	}
	c.Assert(json.Unmarshal(raw, &decoded), qt.IsNil)
	c.Assert(decoded.Extensions, qt.DeepEquals, []string{"VK_KHR_surface"})
	c.Assert(decoded.Layers, qt.DeepEquals, []string{})
	c.Assert(decoded.Devices[0].Type, qt.Equals, "discrete")
	c.Assert(decoded.Devices[0].Features, qt.DeepEquals, []string{"geometryShader", "samplerAnisotropy"})
	c.Assert(decoded.Devices[0].QueueFamilies[0].Flags, qt.Equals, "graphics|compute")
}
