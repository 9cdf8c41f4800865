// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"github.com/devblok/koru/device"
	"github.com/devblok/koru/instance"
)

type report struct {
	Extensions instance.Extensions       `json:"extensions"`
	Layers     instance.ValidationLayers `json:"layers"`
	Devices    []deviceReport            `json:"devices"`
}

type deviceReport struct {
	Index           uint32              `json:"index"`
	Name            string              `json:"name"`
	Type            device.Type         `json:"type"`
	VendorID        uint32              `json:"vendorId"`
	DeviceID        uint32              `json:"deviceId"`
	APIVersion      string              `json:"apiVersion"`
	DriverVersion   uint32              `json:"driverVersion"`
	DeviceLocalSize uint64              `json:"deviceLocalMemory"`
	Features        device.Features     `json:"features"`
	QueueFamilies   []queueFamilyReport `json:"queueFamilies"`
	Sharing         *sharingReport      `json:"sharing,omitempty"`
	Limits          device.Limits       `json:"limits"`
}

type queueFamilyReport struct {
	Index uint32            `json:"index"`
	Flags device.QueueFlags `json:"flags"`
	Count uint32            `json:"count"`
}

// sharingReport tells how a resource used by the graphics and transfer
// queues would have to be shared.
type sharingReport struct {
	Mode     string   `json:"mode"`
	Families []uint32 `json:"families,omitempty"`
}

func newReport(inst *instance.Instance) report {
	r := report{
		Extensions: inst.LoadedExtensions(),
		Layers:     inst.EnabledLayers(),
		Devices:    []deviceReport{},
	}
	for _, pd := range inst.PhysicalDevices() {
		props := pd.Properties()
		dr := deviceReport{
			Index:           pd.Index(),
			Name:            props.Name,
			Type:            props.Type,
			VendorID:        props.VendorID,
			DeviceID:        props.DeviceID,
			APIVersion:      props.APIVersion.String(),
			DriverVersion:   props.DriverVersion,
			DeviceLocalSize: pd.MemoryProperties().DeviceLocalSize(),
			Features:        pd.SupportedFeatures(),
			QueueFamilies:   []queueFamilyReport{},
			Limits:          props.Limits,
		}
		families := pd.QueueFamilies()
		for _, q := range families {
			dr.QueueFamilies = append(dr.QueueFamilies, queueFamilyReport{
				Index: q.Index,
				Flags: q.Flags,
				Count: q.QueueCount,
			})
		}

		graphics, okGraphics := device.FindQueueFamily(families, device.QueueGraphics)
		transfer, okTransfer := device.FindQueueFamily(families, device.QueueTransfer)
		if okGraphics && okTransfer {
			mode, indices := device.Sharing(graphics.Index, transfer.Index)
			dr.Sharing = &sharingReport{Mode: mode.String(), Families: indices}
		}
		r.Devices = append(r.Devices, dr)
	}
	return r
}
