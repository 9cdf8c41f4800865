// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package instance negotiates and creates Vulkan instances. It finds out
// which extensions and layers the driver offers, creates an instance
// with exactly the requested set, and keeps a snapshot of every physical
// device visible through it.
package instance

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/devblok/koru/device"
	"github.com/devblok/koru/driver"
	"github.com/devblok/koru/internal/lazy"
)

type options struct {
	debugLayer         bool
	applicationName    string
	applicationVersion driver.Version
	engineName         string
	engineVersion      driver.Version
	apiVersion         driver.Version
}

func defaultOptions() options {
	return options{
		debugLayer:         debugBuild,
		applicationName:    "Koru3D",
		applicationVersion: driver.MakeVersion(1, 0, 0),
		engineName:         "Koru3D",
		engineVersion:      driver.MakeVersion(1, 0, 0),
		apiVersion:         driver.MakeVersion(1, 0, 0),
	}
}

// Option configures New.
type Option func(*options)

// WithDebugLayer turns the opportunistic debug layer on or off. By default
// it is on only in builds made with the debug tag.
func WithDebugLayer(enabled bool) Option {
	return func(o *options) {
		o.debugLayer = enabled
	}
}

// WithApplication sets the application name and version reported to the driver.
func WithApplication(name string, version driver.Version) Option {
	return func(o *options) {
		o.applicationName = name
		o.applicationVersion = version
	}
}

// WithAPIVersion sets the Vulkan API version the application targets.
func WithAPIVersion(version driver.Version) Option {
	return func(o *options) {
		o.apiVersion = version
	}
}

// New creates an instance with the required extensions and validation
// layers enabled. Every requested extension and layer must be available,
// otherwise nothing is created and a CreationError tells the first one
// that is missing. In debug mode the Khronos validation layer is added
// when the driver has it.
func New(loader *Loader, extensions []Extension, layers []ValidationLayer, opts ...Option) (*Instance, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	loader.acquire()
	created := false
	defer func() {
		if !created {
			loader.release()
		}
	}()

	availableExtensions, err := loader.Extensions()
	if err != nil {
		return nil, fromResult(err)
	}
	availableLayers, err := loader.ValidationLayers()
	if err != nil {
		return nil, fromResult(err)
	}

	log := Logger()

	var loadedExtensions Extensions
	for _, ext := range extensions {
		if !availableExtensions.Contains(ext) {
			return nil, &CreationError{Reason: MissingExtension, Extension: ext}
		}
		loadedExtensions.Insert(ext)
	}

	var enabledLayers ValidationLayers
	if o.debugLayer {
		if availableLayers.Contains(DebugLayer) {
			log.WithField("layer", DebugLayer.Name()).Info("enabling debug validation layer")
			enabledLayers.Insert(DebugLayer)
		} else {
			log.WithField("layer", DebugLayer.Name()).Warn("debug validation layer is unavailable")
		}
	}

	for _, layer := range layers {
		if !availableLayers.Contains(layer) {
			return nil, &CreationError{Reason: MissingValidationLayer, Layer: layer}
		}
		enabledLayers.Insert(layer)
	}

	drv := loader.driver
	handle, err := drv.CreateInstance(driver.InstanceCreateInfo{
		ApplicationName:    o.applicationName,
		ApplicationVersion: o.applicationVersion,
		EngineName:         o.engineName,
		EngineVersion:      o.engineVersion,
		APIVersion:         o.apiVersion,
		EnabledExtensions:  loadedExtensions.Names(),
		EnabledLayers:      enabledLayers.Names(),
	})
	if err != nil {
		return nil, fromCreateResult(err)
	}

	physicalDevices, err := capturePhysicalDevices(drv, handle)
	if err != nil {
		drv.DestroyInstance(handle)
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "enumerating physical devices of a live instance"))
	}

	log.WithFields(logrus.Fields{
		"extensions": loadedExtensions.String(),
		"layers":     enabledLayers.String(),
		"devices":    len(physicalDevices),
	}).Info("created vulkan instance")

	created = true
	return &Instance{
		loader:           loader,
		handle:           handle,
		loadedExtensions: loadedExtensions,
		enabledLayers:    enabledLayers,
		physicalDevices:  physicalDevices,
	}, nil
}

func capturePhysicalDevices(drv driver.Driver, handle driver.Instance) ([]physicalDeviceInfo, error) {
	handles, err := drv.EnumeratePhysicalDevices(handle)
	if err != nil {
		return nil, err
	}

	log := Logger()
	infos := make([]physicalDeviceInfo, 0, len(handles))
	for index, pd := range handles {
		properties := device.PropertiesFrom(drv.PhysicalDeviceProperties(handle, pd))
		features, unknown := device.FeaturesFrom(drv.PhysicalDeviceFeatures(handle, pd))
		for _, name := range unknown {
			log.WithFields(logrus.Fields{
				"device":  properties.Name,
				"feature": name,
			}).Debug("unknown device feature")
		}

		info := physicalDeviceInfo{
			handle:        pd,
			properties:    properties,
			features:      features,
			memory:        device.MemoryPropertiesFrom(drv.PhysicalDeviceMemoryProperties(handle, pd)),
			queueFamilies: device.QueueFamiliesFrom(drv.PhysicalDeviceQueueFamilyProperties(handle, pd)),
		}
		log.WithFields(logrus.Fields{
			"index":  index,
			"device": properties.Name,
			"type":   properties.Type.String(),
		}).Info("found physical device")
		infos = append(infos, info)
	}
	return infos, nil
}

// Instance is a created Vulkan instance. It keeps the loader alive until
// Destroy is called.
type Instance struct {
	loader *Loader
	handle driver.Instance

	loadedExtensions Extensions
	enabledLayers    ValidationLayers
	physicalDevices  []physicalDeviceInfo

	tables [extensionCount]lazy.Value[*FunctionTable]

	destroyed atomic.Bool
}

// Loader returns the loader the instance was created from.
func (i *Instance) Loader() *Loader {
	return i.loader
}

// Handle returns the native instance handle.
func (i *Instance) Handle() driver.Instance {
	i.checkAlive()
	return i.handle
}

// LoadedExtensions returns exactly the extensions the instance was created with.
func (i *Instance) LoadedExtensions() Extensions {
	return i.loadedExtensions
}

// EnabledLayers returns the layers the instance was created with,
// including the debug layer if it was added.
func (i *Instance) EnabledLayers() ValidationLayers {
	return i.enabledLayers
}

// PhysicalDeviceCount returns the number of physical devices found at creation.
func (i *Instance) PhysicalDeviceCount() int {
	return len(i.physicalDevices)
}

// PhysicalDevices lists the physical devices in driver order. The driver
// is not asked again; the list comes from the snapshot taken by New.
func (i *Instance) PhysicalDevices() []PhysicalDevice {
	views := make([]PhysicalDevice, len(i.physicalDevices))
	for index := range i.physicalDevices {
		views[index] = PhysicalDevice{instance: i, index: uint32(index)}
	}
	return views
}

// PhysicalDevice returns the physical device at index, false if there is none.
func (i *Instance) PhysicalDevice(index uint32) (PhysicalDevice, bool) {
	if int(index) >= len(i.physicalDevices) {
		return PhysicalDevice{}, false
	}
	return PhysicalDevice{instance: i, index: index}, true
}

// Destroy destroys the native instance and then drops the loader
// reference. Calling it again does nothing.
func (i *Instance) Destroy() {
	if !i.destroyed.CompareAndSwap(false, true) {
		return
	}
	i.loader.driver.DestroyInstance(i.handle)
	i.loader.release()
}

func (i *Instance) checkAlive() {
	if i.destroyed.Load() {
		panic(errors.AssertionFailedf("vulkan instance used after Destroy"))
	}
}
