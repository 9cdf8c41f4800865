// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package driver describes the native Vulkan loader as seen by koru.
// Everything the loader can be asked is behind the Driver interface,
// so the negotiation layer never talks to cgo directly and can be run
// against a recorded capture or a scripted double.
package driver

import "unsafe"

// Instance is an opaque native instance handle issued by a Driver.
type Instance uintptr

// PhysicalDevice is an opaque native physical device handle issued by a Driver.
type PhysicalDevice uintptr

// NullInstance is never returned by a successful CreateInstance.
const NullInstance Instance = 0

// InstanceCreateInfo carries the negotiated names into CreateInstance.
type InstanceCreateInfo struct {
	ApplicationName    string
	ApplicationVersion Version
	EngineName         string
	EngineVersion      Version
	APIVersion         Version

	EnabledExtensions []string
	EnabledLayers     []string
}

// Driver is the native loader. Implementations must be safe for
// concurrent use; koru makes sure that the enumeration calls are
// only issued once per Loader, but does not serialize other calls.
type Driver interface {
	// Load locates and initializes the native loader library.
	Load() error

	// Unload releases the native loader library. Called once, after
	// every instance created from the driver has been destroyed.
	Unload()

	// EnumerateInstanceExtensions lists the names of all instance
	// extensions the loader advertises.
	EnumerateInstanceExtensions() ([]string, error)

	// EnumerateInstanceLayers lists the names of all instance layers
	// the loader advertises.
	EnumerateInstanceLayers() ([]string, error)

	// CreateInstance creates a native instance. Failures are reported
	// as a Result.
	CreateInstance(info InstanceCreateInfo) (Instance, error)

	// DestroyInstance destroys a native instance.
	DestroyInstance(instance Instance)

	// EnumeratePhysicalDevices lists adapters in driver order.
	EnumeratePhysicalDevices(instance Instance) ([]PhysicalDevice, error)

	PhysicalDeviceProperties(instance Instance, pd PhysicalDevice) Properties
	PhysicalDeviceFeatures(instance Instance, pd PhysicalDevice) Features
	PhysicalDeviceMemoryProperties(instance Instance, pd PhysicalDevice) MemoryProperties
	PhysicalDeviceQueueFamilyProperties(instance Instance, pd PhysicalDevice) []QueueFamilyProperties

	// InstanceProcAddr resolves an instance level command. Returns nil
	// when the command is not exported.
	InstanceProcAddr(instance Instance, name string) unsafe.Pointer
}
