// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package replay

import (
	"bytes"
	"encoding/gob"
	"io"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/devblok/koru/driver"
	"github.com/devblok/koru/utility/kar"
)

// package errors
var (
	ErrVersion = errors.New("unsupported capture version")
	ErrCorrupt = errors.New("corrupted capture")
)

// Open reads a capture from r.
func Open(r io.ReaderAt) (*Driver, error) {
	ar, err := kar.Open(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening capture")
	}
	return fromArchive(ar)
}

// OpenFile reads a capture from the file at path. The file is only
// mapped while it is read.
func OpenFile(path string) (*Driver, error) {
	f, err := kar.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening capture")
	}
	defer f.Close()
	return fromArchive(f.Archive)
}

func fromArchive(ar *kar.Archive) (*Driver, error) {
	header := ar.Header()
	if header.Version != FormatVersion {
		return nil, errors.Wrapf(ErrVersion, "version %d", header.Version)
	}

	d := &Driver{
		capturedOn: header.Author,
		instances:  make(map[driver.Instance]struct{}),
	}
	if err := readGob(ar, loaderEntry, &d.loader); err != nil {
		return nil, err
	}
	if d.loader.Devices < 0 || d.loader.Devices > len(ar.Names()) {
		return nil, errors.Wrapf(ErrCorrupt, "%d devices recorded", d.loader.Devices)
	}
	for i := 0; i < d.loader.Devices; i++ {
		if _, ok := ar.Stat(deviceEntry(i)); !ok {
			return nil, errors.Wrapf(ErrCorrupt, "missing %s", deviceEntry(i))
		}
	}
	d.devices = make([]Device, d.loader.Devices)
	for i := range d.devices {
		if err := readGob(ar, deviceEntry(i), &d.devices[i]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func readGob(ar *kar.Archive, name string, v interface{}) error {
	data, err := ar.ReadAll(name)
	if err != nil {
		return errors.Wrap(err, "reading capture")
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return errors.Wrapf(err, "decoding %s", name)
	}
	return nil
}

// Driver answers from a capture. Instances are checked against the
// recorded extensions and layers the way the loader would, but no
// command is ever resolved.
type Driver struct {
	capturedOn string
	loader     Loader
	devices    []Device

	mu        sync.Mutex
	next      driver.Instance
	instances map[driver.Instance]struct{}
}

var _ driver.Driver = (*Driver)(nil)

// CapturedOn returns the host name recorded in the capture.
func (d *Driver) CapturedOn() string {
	return d.capturedOn
}

// Load implements driver.Driver
func (d *Driver) Load() error { return nil }

// Unload implements driver.Driver
func (d *Driver) Unload() {}

// EnumerateInstanceExtensions implements driver.Driver
func (d *Driver) EnumerateInstanceExtensions() ([]string, error) {
	return append([]string(nil), d.loader.Extensions...), nil
}

// EnumerateInstanceLayers implements driver.Driver
func (d *Driver) EnumerateInstanceLayers() ([]string, error) {
	return append([]string(nil), d.loader.Layers...), nil
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

// CreateInstance implements driver.Driver
func (d *Driver) CreateInstance(info driver.InstanceCreateInfo) (driver.Instance, error) {
	for _, layer := range info.EnabledLayers {
		if !contains(d.loader.Layers, layer) {
			return driver.NullInstance, driver.ErrorLayerNotPresent
		}
	}
	for _, ext := range info.EnabledExtensions {
		if !contains(d.loader.Extensions, ext) {
			return driver.NullInstance, driver.ErrorExtensionNotPresent
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.instances[d.next] = struct{}{}
	return d.next, nil
}

// DestroyInstance implements driver.Driver
func (d *Driver) DestroyInstance(instance driver.Instance) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.instances, instance)
}

// EnumeratePhysicalDevices implements driver.Driver
func (d *Driver) EnumeratePhysicalDevices(instance driver.Instance) ([]driver.PhysicalDevice, error) {
	d.mu.Lock()
	_, ok := d.instances[instance]
	d.mu.Unlock()
	if !ok {
		return nil, driver.ErrorInitializationFailed
	}

	handles := make([]driver.PhysicalDevice, len(d.devices))
	for i := range handles {
		handles[i] = driver.PhysicalDevice(i + 1)
	}
	return handles, nil
}

func (d *Driver) device(pd driver.PhysicalDevice) *Device {
	if pd == 0 || int(pd) > len(d.devices) {
		panic(errors.AssertionFailedf("unknown physical device handle %#x", uintptr(pd)))
	}
	return &d.devices[pd-1]
}

// PhysicalDeviceProperties implements driver.Driver
func (d *Driver) PhysicalDeviceProperties(_ driver.Instance, pd driver.PhysicalDevice) driver.Properties {
	return d.device(pd).Properties
}

// PhysicalDeviceFeatures implements driver.Driver
func (d *Driver) PhysicalDeviceFeatures(_ driver.Instance, pd driver.PhysicalDevice) driver.Features {
	features := make(driver.Features, len(d.device(pd).Features))
	for name, on := range d.device(pd).Features {
		features[name] = on
	}
	return features
}

// PhysicalDeviceMemoryProperties implements driver.Driver
func (d *Driver) PhysicalDeviceMemoryProperties(_ driver.Instance, pd driver.PhysicalDevice) driver.MemoryProperties {
	m := d.device(pd).Memory
	return driver.MemoryProperties{
		Types: append([]driver.MemoryType(nil), m.Types...),
		Heaps: append([]driver.MemoryHeap(nil), m.Heaps...),
	}
}

// PhysicalDeviceQueueFamilyProperties implements driver.Driver
func (d *Driver) PhysicalDeviceQueueFamilyProperties(_ driver.Instance, pd driver.PhysicalDevice) []driver.QueueFamilyProperties {
	return append([]driver.QueueFamilyProperties(nil), d.device(pd).QueueFamilies...)
}

// InstanceProcAddr always returns nil: a capture has no code to call.
func (d *Driver) InstanceProcAddr(driver.Instance, string) unsafe.Pointer {
	return nil
}
