// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package drivertest provides a scripted driver.Driver for tests.
package drivertest

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/devblok/koru/driver"
)

// Device is one physical device reported by Driver.
type Device struct {
	Properties    driver.Properties
	Features      driver.Features
	Memory        driver.MemoryProperties
	QueueFamilies []driver.QueueFamilyProperties
}

// GPU returns a device with one graphics and compute queue family and
// a single device local heap.
func GPU(name string, deviceType uint32) Device {
	return Device{
		Properties: driver.Properties{
			APIVersion:    uint32(driver.MakeVersion(1, 1, 0)),
			DriverVersion: uint32(driver.MakeVersion(418, 56, 0)),
			VendorID:      0x10de,
			DeviceID:      0x1c82,
			DeviceType:    deviceType,
			DeviceName:    name,
		},
		Features: driver.Features{
			"geometryShader":    true,
			"samplerAnisotropy": true,
			"wideLines":         false,
		},
		Memory: driver.MemoryProperties{
			Types: []driver.MemoryType{
				{PropertyFlags: 0x1, HeapIndex: 0},
				{PropertyFlags: 0x6, HeapIndex: 1},
			},
			Heaps: []driver.MemoryHeap{
				{Size: 4 << 30, Flags: 0x1},
				{Size: 8 << 30},
			},
		},
		QueueFamilies: []driver.QueueFamilyProperties{
			{QueueFlags: 0x3, QueueCount: 16, TimestampValidBits: 64, MinImageTransferGranularity: [3]uint32{1, 1, 1}},
			{QueueFlags: 0x4, QueueCount: 2, TimestampValidBits: 64, MinImageTransferGranularity: [3]uint32{1, 1, 1}},
		},
	}
}

var exported byte

// Driver is a driver.Driver answering from its fields. Set the fields
// before handing it out; the counters may be read at any time.
type Driver struct {
	Extensions []string
	Layers     []string
	Devices    []Device

	// Missing lists commands InstanceProcAddr does not resolve.
	Missing map[string]bool

	LoadErr       error
	ExtensionsErr error
	LayersErr     error
	CreateErr     error
	DevicesErr    error

	LoadCalls       atomic.Int32
	UnloadCalls     atomic.Int32
	ExtensionsCalls atomic.Int32
	LayersCalls     atomic.Int32
	CreateCalls     atomic.Int32
	DestroyCalls    atomic.Int32
	DevicesCalls    atomic.Int32
	ProcAddrCalls   atomic.Int32

	mu         sync.Mutex
	events     []string
	createInfo driver.InstanceCreateInfo
	next       driver.Instance
}

var _ driver.Driver = (*Driver)(nil)

func (d *Driver) event(name string) {
	d.mu.Lock()
	d.events = append(d.events, name)
	d.mu.Unlock()
}

// Events returns the lifecycle calls in the order they happened.
func (d *Driver) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

// CreateInfo returns the arguments of the last CreateInstance call.
func (d *Driver) CreateInfo() driver.InstanceCreateInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createInfo
}

// Load implements driver.Driver
func (d *Driver) Load() error {
	d.LoadCalls.Add(1)
	d.event("load")
	return d.LoadErr
}

// Unload implements driver.Driver
func (d *Driver) Unload() {
	d.UnloadCalls.Add(1)
	d.event("unload")
}

// EnumerateInstanceExtensions implements driver.Driver
func (d *Driver) EnumerateInstanceExtensions() ([]string, error) {
	d.ExtensionsCalls.Add(1)
	if d.ExtensionsErr != nil {
		return nil, d.ExtensionsErr
	}
	return append([]string(nil), d.Extensions...), nil
}

// EnumerateInstanceLayers implements driver.Driver
func (d *Driver) EnumerateInstanceLayers() ([]string, error) {
	d.LayersCalls.Add(1)
	if d.LayersErr != nil {
		return nil, d.LayersErr
	}
	return append([]string(nil), d.Layers...), nil
}

// CreateInstance implements driver.Driver
func (d *Driver) CreateInstance(info driver.InstanceCreateInfo) (driver.Instance, error) {
	d.CreateCalls.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.createInfo = info
	if d.CreateErr != nil {
		return driver.NullInstance, d.CreateErr
	}
	d.next++
	d.events = append(d.events, "create")
	return d.next, nil
}

// DestroyInstance implements driver.Driver
func (d *Driver) DestroyInstance(instance driver.Instance) {
	d.DestroyCalls.Add(1)
	d.event("destroy")
}

// EnumeratePhysicalDevices implements driver.Driver
func (d *Driver) EnumeratePhysicalDevices(instance driver.Instance) ([]driver.PhysicalDevice, error) {
	d.DevicesCalls.Add(1)
	if d.DevicesErr != nil {
		return nil, d.DevicesErr
	}
	handles := make([]driver.PhysicalDevice, len(d.Devices))
	for i := range d.Devices {
		handles[i] = driver.PhysicalDevice(0x100 + i)
	}
	return handles, nil
}

func (d *Driver) device(pd driver.PhysicalDevice) *Device {
	return &d.Devices[int(pd)-0x100]
}

// PhysicalDeviceProperties implements driver.Driver
func (d *Driver) PhysicalDeviceProperties(instance driver.Instance, pd driver.PhysicalDevice) driver.Properties {
	return d.device(pd).Properties
}

// PhysicalDeviceFeatures implements driver.Driver
func (d *Driver) PhysicalDeviceFeatures(instance driver.Instance, pd driver.PhysicalDevice) driver.Features {
	return d.device(pd).Features
}

// PhysicalDeviceMemoryProperties implements driver.Driver
func (d *Driver) PhysicalDeviceMemoryProperties(instance driver.Instance, pd driver.PhysicalDevice) driver.MemoryProperties {
	return d.device(pd).Memory
}

// PhysicalDeviceQueueFamilyProperties implements driver.Driver
func (d *Driver) PhysicalDeviceQueueFamilyProperties(instance driver.Instance, pd driver.PhysicalDevice) []driver.QueueFamilyProperties {
	return d.device(pd).QueueFamilies
}

// InstanceProcAddr implements driver.Driver
func (d *Driver) InstanceProcAddr(instance driver.Instance, name string) unsafe.Pointer {
	d.ProcAddrCalls.Add(1)
	if d.Missing[name] {
		return nil
	}
	return unsafe.Pointer(&exported)
}
