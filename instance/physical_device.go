// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package instance

import (
	"github.com/devblok/koru/device"
	"github.com/devblok/koru/driver"
)

// physicalDeviceInfo is captured once by New and never changes. It does
// not follow the live state of the device.
type physicalDeviceInfo struct {
	handle        driver.PhysicalDevice
	properties    device.Properties
	features      device.Features
	memory        device.MemoryProperties
	queueFamilies []device.QueueFamily
}

// PhysicalDevice is a view of one physical device of an Instance.
// It is only valid while the Instance is.
type PhysicalDevice struct {
	instance *Instance
	index    uint32
}

func (p PhysicalDevice) info() *physicalDeviceInfo {
	return &p.instance.physicalDevices[p.index]
}

// Instance returns the instance the device belongs to.
func (p PhysicalDevice) Instance() *Instance {
	return p.instance
}

// Index returns the position of the device in driver enumeration order.
func (p PhysicalDevice) Index() uint32 {
	return p.index
}

// Handle returns the native physical device handle.
func (p PhysicalDevice) Handle() driver.PhysicalDevice {
	return p.info().handle
}

// Properties returns the static properties of the device.
func (p PhysicalDevice) Properties() device.Properties {
	return p.info().properties
}

// Name returns the device name.
func (p PhysicalDevice) Name() string {
	return p.info().properties.Name
}

// Type returns the kind of device.
func (p PhysicalDevice) Type() device.Type {
	return p.info().properties.Type
}

// SupportedFeatures returns the features the device supports.
func (p PhysicalDevice) SupportedFeatures() device.Features {
	return p.info().features
}

// MemoryProperties returns a copy of the memory type and heap layout.
func (p PhysicalDevice) MemoryProperties() device.MemoryProperties {
	return p.info().memory.Clone()
}

// MemoryTypes returns a copy of the memory type table.
func (p PhysicalDevice) MemoryTypes() []device.MemoryType {
	return append([]device.MemoryType(nil), p.info().memory.Types...)
}

// MemoryHeaps returns a copy of the memory heaps.
func (p PhysicalDevice) MemoryHeaps() []device.MemoryHeap {
	return append([]device.MemoryHeap(nil), p.info().memory.Heaps...)
}

// QueueFamilies returns a copy of the queue families in driver order.
// A device with no queue families yields an empty list.
func (p PhysicalDevice) QueueFamilies() []device.QueueFamily {
	return append([]device.QueueFamily(nil), p.info().queueFamilies...)
}

// QueueFamily returns the queue family at index, false if there is none.
func (p PhysicalDevice) QueueFamily(index uint32) (device.QueueFamily, bool) {
	families := p.info().queueFamilies
	if int(index) >= len(families) {
		return device.QueueFamily{}, false
	}
	return families[index], true
}
