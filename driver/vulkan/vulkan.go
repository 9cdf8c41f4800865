// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vulkan implements driver.Driver on top of the system Vulkan
// loader, through github.com/vulkan-go/vulkan.
package vulkan

import (
	"reflect"
	"sync"
	"unicode"
	"unicode/utf8"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/koru/driver"
)

// New returns a driver for the system loader. When procAddr is nil the
// default vkGetInstanceProcAddr is used, otherwise procAddr is, for
// example the one a windowing library hands out.
func New(procAddr unsafe.Pointer) *Driver {
	return &Driver{
		procAddr:  procAddr,
		instances: make(map[driver.Instance]vk.Instance),
		devices:   make(map[driver.PhysicalDevice]vk.PhysicalDevice),
		owned:     make(map[driver.Instance][]driver.PhysicalDevice),
	}
}

// Driver talks to the native loader. Native handles are kept in tables
// and handed out as small integers.
type Driver struct {
	procAddr unsafe.Pointer

	mu        sync.RWMutex
	next      uintptr
	instances map[driver.Instance]vk.Instance
	devices   map[driver.PhysicalDevice]vk.PhysicalDevice

	// owned lists the device handles issued for each instance.
	owned map[driver.Instance][]driver.PhysicalDevice
}

var _ driver.Driver = (*Driver)(nil)

// Load implements driver.Driver
func (d *Driver) Load() error {
	if d.procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return errors.Wrap(err, "vk.SetDefaultGetInstanceProcAddr")
		}
	} else {
		vk.SetGetInstanceProcAddr(d.procAddr)
	}
	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "vk.Init")
	}
	return nil
}

// Unload implements driver.Driver. vulkan-go keeps the library for the
// life of the process, so only the handle tables are dropped.
func (d *Driver) Unload() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.instances = make(map[driver.Instance]vk.Instance)
	d.devices = make(map[driver.PhysicalDevice]vk.PhysicalDevice)
	d.owned = make(map[driver.Instance][]driver.PhysicalDevice)
}

func check(r vk.Result) error {
	return driver.Check(driver.Result(r))
}

// EnumerateInstanceExtensions implements driver.Driver
func (d *Driver) EnumerateInstanceExtensions() ([]string, error) {
	var count uint32
	if err := check(vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, err
	}
	list := make([]vk.ExtensionProperties, count)
	if err := check(vk.EnumerateInstanceExtensionProperties("", &count, list)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, ext := range list[:count] {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// EnumerateInstanceLayers implements driver.Driver
func (d *Driver) EnumerateInstanceLayers() ([]string, error) {
	var count uint32
	if err := check(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	list := make([]vk.LayerProperties, count)
	if err := check(vk.EnumerateInstanceLayerProperties(&count, list)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, layer := range list[:count] {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

// CreateInstance implements driver.Driver
func (d *Driver) CreateInstance(info driver.InstanceCreateInfo) (driver.Instance, error) {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   safeString(info.ApplicationName),
		ApplicationVersion: uint32(info.ApplicationVersion),
		PEngineName:        safeString(info.EngineName),
		EngineVersion:      uint32(info.EngineVersion),
		ApiVersion:         uint32(info.APIVersion),
	}
	extensions := safeStrings(info.EnabledExtensions)
	layers := safeStrings(info.EnabledLayers)
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}

	var instance vk.Instance
	if err := check(vk.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return driver.NullInstance, err
	}
	vk.InitInstance(instance)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	handle := driver.Instance(d.next)
	d.instances[handle] = instance
	return handle, nil
}

func (d *Driver) instance(handle driver.Instance) vk.Instance {
	d.mu.RLock()
	defer d.mu.RUnlock()
	instance, ok := d.instances[handle]
	if !ok {
		panic(errors.AssertionFailedf("unknown instance handle %#x", uintptr(handle)))
	}
	return instance
}

func (d *Driver) device(handle driver.PhysicalDevice) vk.PhysicalDevice {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pd, ok := d.devices[handle]
	if !ok {
		panic(errors.AssertionFailedf("unknown physical device handle %#x", uintptr(handle)))
	}
	return pd
}

// DestroyInstance implements driver.Driver
func (d *Driver) DestroyInstance(handle driver.Instance) {
	instance := d.instance(handle)
	vk.DestroyInstance(instance, nil)
	d.forget(handle)
}

// forget drops an instance handle and every device handle issued for it.
func (d *Driver) forget(handle driver.Instance) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, pd := range d.owned[handle] {
		delete(d.devices, pd)
	}
	delete(d.owned, handle)
	delete(d.instances, handle)
}

// register issues device handles for an instance, replacing the ones
// from an earlier enumeration.
func (d *Driver) register(handle driver.Instance, available []vk.PhysicalDevice) []driver.PhysicalDevice {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, pd := range d.owned[handle] {
		delete(d.devices, pd)
	}
	handles := make([]driver.PhysicalDevice, 0, len(available))
	for _, pd := range available {
		d.next++
		h := driver.PhysicalDevice(d.next)
		d.devices[h] = pd
		handles = append(handles, h)
	}
	d.owned[handle] = handles
	return append([]driver.PhysicalDevice(nil), handles...)
}

// EnumeratePhysicalDevices implements driver.Driver
func (d *Driver) EnumeratePhysicalDevices(handle driver.Instance) ([]driver.PhysicalDevice, error) {
	instance := d.instance(handle)

	var count uint32
	if err := check(vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return nil, errors.Wrap(err, "vulkan physical device enumeration failed")
	}
	available := make([]vk.PhysicalDevice, count)
	if err := check(vk.EnumeratePhysicalDevices(instance, &count, available)); err != nil {
		return nil, errors.Wrap(err, "vulkan physical device enumeration failed")
	}

	return d.register(handle, available[:count]), nil
}

// PhysicalDeviceProperties implements driver.Driver
func (d *Driver) PhysicalDeviceProperties(_ driver.Instance, handle driver.PhysicalDevice) driver.Properties {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(d.device(handle), &props)
	props.Deref()
	props.Limits.Deref()

	l := props.Limits
	return driver.Properties{
		APIVersion:        props.ApiVersion,
		DriverVersion:     props.DriverVersion,
		VendorID:          props.VendorID,
		DeviceID:          props.DeviceID,
		DeviceType:        uint32(props.DeviceType),
		DeviceName:        vk.ToString(props.DeviceName[:]),
		PipelineCacheUUID: props.PipelineCacheUUID,
		Limits: driver.Limits{
			MaxImageDimension1D:             l.MaxImageDimension1D,
			MaxImageDimension2D:             l.MaxImageDimension2D,
			MaxImageDimension3D:             l.MaxImageDimension3D,
			MaxImageDimensionCube:           l.MaxImageDimensionCube,
			MaxImageArrayLayers:             l.MaxImageArrayLayers,
			MaxUniformBufferRange:           l.MaxUniformBufferRange,
			MaxStorageBufferRange:           l.MaxStorageBufferRange,
			MaxPushConstantsSize:            l.MaxPushConstantsSize,
			MaxMemoryAllocationCount:        l.MaxMemoryAllocationCount,
			MaxSamplerAllocationCount:       l.MaxSamplerAllocationCount,
			BufferImageGranularity:          uint64(l.BufferImageGranularity),
			MaxBoundDescriptorSets:          l.MaxBoundDescriptorSets,
			MaxVertexInputAttributes:        l.MaxVertexInputAttributes,
			MaxVertexInputBindings:          l.MaxVertexInputBindings,
			MaxComputeSharedMemorySize:      l.MaxComputeSharedMemorySize,
			MaxComputeWorkGroupCount:        l.MaxComputeWorkGroupCount,
			MaxComputeWorkGroupInvocations:  l.MaxComputeWorkGroupInvocations,
			MaxComputeWorkGroupSize:         l.MaxComputeWorkGroupSize,
			MaxViewports:                    l.MaxViewports,
			MaxFramebufferWidth:             l.MaxFramebufferWidth,
			MaxFramebufferHeight:            l.MaxFramebufferHeight,
			MaxSamplerAnisotropy:            l.MaxSamplerAnisotropy,
			MinMemoryMapAlignment:           uint64(l.MinMemoryMapAlignment),
			MinUniformBufferOffsetAlignment: uint64(l.MinUniformBufferOffsetAlignment),
			MinStorageBufferOffsetAlignment: uint64(l.MinStorageBufferOffsetAlignment),
			TimestampPeriod:                 l.TimestampPeriod,
			NonCoherentAtomSize:             uint64(l.NonCoherentAtomSize),
		},
	}
}

var bool32Type = reflect.TypeOf(vk.Bool32(0))

// PhysicalDeviceFeatures implements driver.Driver. Every Bool32 member of
// VkPhysicalDeviceFeatures is reported under its C member name.
func (d *Driver) PhysicalDeviceFeatures(_ driver.Instance, handle driver.PhysicalDevice) driver.Features {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(d.device(handle), &features)
	features.Deref()

	v := reflect.ValueOf(features)
	t := v.Type()
	out := make(driver.Features, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Type != bool32Type {
			continue
		}
		out[memberName(field.Name)] = v.Field(i).Uint() == uint64(vk.True)
	}
	return out
}

// memberName turns a Go field name back into the C member name.
func memberName(field string) string {
	r, size := utf8.DecodeRuneInString(field)
	return string(unicode.ToLower(r)) + field[size:]
}

// PhysicalDeviceMemoryProperties implements driver.Driver
func (d *Driver) PhysicalDeviceMemoryProperties(_ driver.Instance, handle driver.PhysicalDevice) driver.MemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.device(handle), &props)
	props.Deref()

	out := driver.MemoryProperties{
		Types: make([]driver.MemoryType, 0, props.MemoryTypeCount),
		Heaps: make([]driver.MemoryHeap, 0, props.MemoryHeapCount),
	}
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		props.MemoryTypes[i].Deref()
		out.Types = append(out.Types, driver.MemoryType{
			PropertyFlags: uint32(props.MemoryTypes[i].PropertyFlags),
			HeapIndex:     props.MemoryTypes[i].HeapIndex,
		})
	}
	for i := uint32(0); i < props.MemoryHeapCount; i++ {
		props.MemoryHeaps[i].Deref()
		out.Heaps = append(out.Heaps, driver.MemoryHeap{
			Size:  uint64(props.MemoryHeaps[i].Size),
			Flags: uint32(props.MemoryHeaps[i].Flags),
		})
	}
	return out
}

// PhysicalDeviceQueueFamilyProperties implements driver.Driver
func (d *Driver) PhysicalDeviceQueueFamilyProperties(_ driver.Instance, handle driver.PhysicalDevice) []driver.QueueFamilyProperties {
	pd := d.device(handle)

	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	list := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, list)

	out := make([]driver.QueueFamilyProperties, 0, count)
	for _, family := range list[:count] {
		family.Deref()
		family.MinImageTransferGranularity.Deref()
		g := family.MinImageTransferGranularity
		out = append(out, driver.QueueFamilyProperties{
			QueueFlags:                  uint32(family.QueueFlags),
			QueueCount:                  family.QueueCount,
			TimestampValidBits:          family.TimestampValidBits,
			MinImageTransferGranularity: [3]uint32{g.Width, g.Height, g.Depth},
		})
	}
	return out
}

// InstanceProcAddr implements driver.Driver
func (d *Driver) InstanceProcAddr(handle driver.Instance, name string) unsafe.Pointer {
	proc := vk.GetInstanceProcAddr(d.instance(handle), safeString(name))
	return unsafe.Pointer(proc)
}
