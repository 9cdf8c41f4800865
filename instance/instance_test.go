// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package instance_test

import (
	"errors"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/devblok/koru/device"
	"github.com/devblok/koru/driver"
	"github.com/devblok/koru/driver/drivertest"
	"github.com/devblok/koru/instance"
)

func captureLog(c *qt.C) *test.Hook {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	instance.SetLogger(logger)
	c.Cleanup(func() { instance.SetLogger(nil) })
	return hook
}

func newDriver() *drivertest.Driver {
	return &drivertest.Driver{
		Extensions: []string{"VK_KHR_surface", "VK_KHR_xcb_surface", "VK_EXT_debug_utils"},
		Layers:     []string{"VK_LAYER_KHRONOS_validation"},
		Devices: []drivertest.Device{
			drivertest.GPU("GeForce GTX 1050 Ti", 2),
			drivertest.GPU("Intel(R) UHD Graphics 630", 1),
		},
	}
}

func newLoader(c *qt.C, drv *drivertest.Driver) *instance.Loader {
	loader, err := instance.NewLoader(drv)
	c.Assert(err, qt.IsNil)
	return loader
}

func TestNewLoaderFailure(t *testing.T) {
	c := qt.New(t)

	drv := newDriver()
	drv.LoadErr = errors.New("libvulkan.so.1: cannot open shared object file")

	_, err := instance.NewLoader(drv)
	c.Assert(err, qt.ErrorIs, instance.ErrLoad)
	c.Assert(err, qt.ErrorMatches, `instance creation: vulkan loader could not be loaded: loading vulkan: libvulkan.*`)
	c.Assert(drv.UnloadCalls.Load(), qt.Equals, int32(0))
}

func TestLoaderQueriesAreCached(t *testing.T) {
	c := qt.New(t)
	captureLog(c)

	drv := newDriver()
	loader := newLoader(c, drv)

	for i := 0; i < 3; i++ {
		exts, err := loader.Extensions()
		c.Assert(err, qt.IsNil)
		c.Assert(exts, qt.Equals, instance.ExtensionsOf(instance.KhrSurface, instance.KhrXcbSurface, instance.ExtDebugUtils))

		layers, err := loader.ValidationLayers()
		c.Assert(err, qt.IsNil)
		c.Assert(layers, qt.Equals, instance.ValidationLayersOf(instance.KhronosValidation))
	}
	c.Assert(drv.ExtensionsCalls.Load(), qt.Equals, int32(1))
	c.Assert(drv.LayersCalls.Load(), qt.Equals, int32(1))
}

func TestLoaderConcurrentQueries(t *testing.T) {
	c := qt.New(t)
	captureLog(c)

	drv := newDriver()
	loader := newLoader(c, drv)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = loader.Extensions()
			_, _ = loader.ValidationLayers()
		}()
	}
	wg.Wait()

	c.Assert(drv.ExtensionsCalls.Load(), qt.Equals, int32(1))
	c.Assert(drv.LayersCalls.Load(), qt.Equals, int32(1))
}

func TestLoaderFailedQueryIsRetried(t *testing.T) {
	c := qt.New(t)
	captureLog(c)

	drv := newDriver()
	drv.ExtensionsErr = driver.ErrorOutOfHostMemory
	loader := newLoader(c, drv)

	_, err := loader.Extensions()
	c.Assert(errors.Is(err, driver.ErrorOutOfHostMemory), qt.IsTrue)

	drv.ExtensionsErr = nil
	exts, err := loader.Extensions()
	c.Assert(err, qt.IsNil)
	c.Assert(exts.Len(), qt.Equals, 3)
	c.Assert(drv.ExtensionsCalls.Load(), qt.Equals, int32(2))
}

func TestLoaderSkipsUnknownNames(t *testing.T) {
	c := qt.New(t)
	hook := captureLog(c)

	drv := newDriver()
	drv.Extensions = append(drv.Extensions, "VK_KHR_fancy_new_thing")
	drv.Layers = append(drv.Layers, "VK_LAYER_VENDOR_overlay")
	loader := newLoader(c, drv)

	exts, err := loader.Extensions()
	c.Assert(err, qt.IsNil)
	c.Assert(exts.Len(), qt.Equals, 3)
	layers, err := loader.ValidationLayers()
	c.Assert(err, qt.IsNil)
	c.Assert(layers.Len(), qt.Equals, 1)

	var warnings []string
	for _, entry := range hook.AllEntries() {
		if entry.Level != logrus.WarnLevel {
			continue
		}
		for _, key := range []string{"extension", "layer"} {
			if v, ok := entry.Data[key]; ok {
				warnings = append(warnings, v.(string))
			}
		}
	}
	c.Assert(warnings, qt.DeepEquals, []string{"VK_KHR_fancy_new_thing", "VK_LAYER_VENDOR_overlay"})
}

func TestNewEnablesExactlyRequested(t *testing.T) {
	c := qt.New(t)
	captureLog(c)

	drv := newDriver()
	loader := newLoader(c, drv)

	inst, err := instance.New(loader,
		[]instance.Extension{instance.KhrSurface},
		nil,
		instance.WithDebugLayer(false),
		instance.WithApplication("Viewer", driver.MakeVersion(0, 3, 1)),
	)
	c.Assert(err, qt.IsNil)
	defer inst.Destroy()

	c.Assert(inst.LoadedExtensions(), qt.Equals, instance.ExtensionsOf(instance.KhrSurface))
	c.Assert(inst.EnabledLayers().IsEmpty(), qt.IsTrue)

	info := drv.CreateInfo()
	c.Assert(info.EnabledExtensions, qt.DeepEquals, []string{"VK_KHR_surface"})
	c.Assert(info.EnabledLayers, qt.DeepEquals, []string{})
	c.Assert(info.ApplicationName, qt.Equals, "Viewer")
	c.Assert(info.ApplicationVersion.String(), qt.Equals, "0.3.1")
	c.Assert(info.EngineName, qt.Equals, "Koru3D")
}

func TestNewMissingExtension(t *testing.T) {
	c := qt.New(t)
	captureLog(c)

	drv := newDriver()
	drv.Extensions = []string{"VK_KHR_surface"}
	loader := newLoader(c, drv)

	_, err := instance.New(loader,
		[]instance.Extension{instance.KhrSurface, instance.KhrWaylandSurface},
		nil,
		instance.WithDebugLayer(false),
	)
	c.Assert(err, qt.ErrorIs, instance.ErrMissingExtension)
	c.Assert(err, qt.ErrorMatches, "instance creation: missing extension `VK_KHR_wayland_surface`")

	var cerr *instance.CreationError
	c.Assert(errors.As(err, &cerr), qt.IsTrue)
	c.Assert(cerr.Extension, qt.Equals, instance.KhrWaylandSurface)

	c.Assert(drv.CreateCalls.Load(), qt.Equals, int32(0))
	c.Assert(loader.References(), qt.Equals, 1)
}

func TestNewMissingValidationLayer(t *testing.T) {
	c := qt.New(t)
	captureLog(c)

	drv := newDriver()
	loader := newLoader(c, drv)

	_, err := instance.New(loader, nil,
		[]instance.ValidationLayer{instance.LunargAPIDump},
		instance.WithDebugLayer(false),
	)
	c.Assert(err, qt.ErrorIs, instance.ErrMissingValidationLayer)
	c.Assert(err, qt.ErrorMatches, "instance creation: missing validation layer `VK_LAYER_LUNARG_api_dump`")
	c.Assert(drv.CreateCalls.Load(), qt.Equals, int32(0))
}

func TestNewDebugLayer(t *testing.T) {
	c := qt.New(t)

	c.Run("present", func(c *qt.C) {
		hook := captureLog(c)
		drv := newDriver()
		loader := newLoader(c, drv)

		inst, err := instance.New(loader, nil, nil, instance.WithDebugLayer(true))
		c.Assert(err, qt.IsNil)
		defer inst.Destroy()

		c.Assert(inst.EnabledLayers(), qt.Equals, instance.ValidationLayersOf(instance.DebugLayer))
		c.Assert(drv.CreateInfo().EnabledLayers, qt.DeepEquals, []string{"VK_LAYER_KHRONOS_validation"})
		c.Assert(hasMessage(hook, logrus.InfoLevel, "enabling debug validation layer"), qt.IsTrue)
	})

	c.Run("absent", func(c *qt.C) {
		hook := captureLog(c)
		drv := newDriver()
		drv.Layers = nil
		loader := newLoader(c, drv)

		inst, err := instance.New(loader, nil, nil, instance.WithDebugLayer(true))
		c.Assert(err, qt.IsNil)
		defer inst.Destroy()

		c.Assert(inst.EnabledLayers().IsEmpty(), qt.IsTrue)
		c.Assert(hasMessage(hook, logrus.WarnLevel, "debug validation layer is unavailable"), qt.IsTrue)
	})

	c.Run("requested twice", func(c *qt.C) {
		captureLog(c)
		drv := newDriver()
		loader := newLoader(c, drv)

		inst, err := instance.New(loader, nil,
			[]instance.ValidationLayer{instance.KhronosValidation},
			instance.WithDebugLayer(true),
		)
		c.Assert(err, qt.IsNil)
		defer inst.Destroy()

		c.Assert(drv.CreateInfo().EnabledLayers, qt.DeepEquals, []string{"VK_LAYER_KHRONOS_validation"})
	})
}

func hasMessage(hook *test.Hook, level logrus.Level, msg string) bool {
	for _, entry := range hook.AllEntries() {
		if entry.Level == level && entry.Message == msg {
			return true
		}
	}
	return false
}

func TestNewCreateFailures(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		result driver.Result
		reason instance.CreationFailure
		memory instance.OomError
	}{
		{driver.ErrorOutOfHostMemory, instance.OutOfMemory, instance.OomHost},
		{driver.ErrorOutOfDeviceMemory, instance.OutOfMemory, instance.OomDevice},
		{driver.ErrorInitializationFailed, instance.InitializationFailed, 0},
		{driver.ErrorIncompatibleDriver, instance.IncompatibleDriver, 0},
	}
	for _, tc := range tests {
		c.Run(tc.result.Error(), func(c *qt.C) {
			captureLog(c)
			drv := newDriver()
			drv.CreateErr = tc.result
			loader := newLoader(c, drv)

			_, err := instance.New(loader, nil, nil, instance.WithDebugLayer(false))
			c.Assert(err, qt.ErrorIs, tc.reason)

			var cerr *instance.CreationError
			c.Assert(errors.As(err, &cerr), qt.IsTrue)
			c.Assert(cerr.Memory, qt.Equals, tc.memory)
			c.Assert(errors.Is(err, tc.result), qt.IsTrue)

			loader.Release()
			c.Assert(drv.UnloadCalls.Load(), qt.Equals, int32(1))
		})
	}
}

func TestNewCreateNotPresentPanics(t *testing.T) {
	c := qt.New(t)

	for _, result := range []driver.Result{driver.ErrorExtensionNotPresent, driver.ErrorLayerNotPresent, driver.ErrorDeviceLost} {
		c.Run(result.Error(), func(c *qt.C) {
			captureLog(c)
			drv := newDriver()
			drv.CreateErr = result
			loader := newLoader(c, drv)

			c.Assert(func() {
				_, _ = instance.New(loader, nil, nil, instance.WithDebugLayer(false))
			}, qt.PanicMatches, `(?s).*`+result.Error()+`.*`)
		})
	}
}

func TestPhysicalDevicesAreCaptured(t *testing.T) {
	c := qt.New(t)
	captureLog(c)

	drv := newDriver()
	loader := newLoader(c, drv)
	inst, err := instance.New(loader, nil, nil, instance.WithDebugLayer(false))
	c.Assert(err, qt.IsNil)
	defer inst.Destroy()

	c.Assert(inst.PhysicalDeviceCount(), qt.Equals, 2)
	devices := inst.PhysicalDevices()
	c.Assert(devices, qt.HasLen, 2)
	c.Assert(devices[0].Name(), qt.Equals, "GeForce GTX 1050 Ti")
	c.Assert(devices[0].Type(), qt.Equals, device.TypeDiscreteGPU)
	c.Assert(devices[1].Name(), qt.Equals, "Intel(R) UHD Graphics 630")
	c.Assert(devices[1].Index(), qt.Equals, uint32(1))

	pd, ok := inst.PhysicalDevice(1)
	c.Assert(ok, qt.IsTrue)
	c.Assert(pd.Type(), qt.Equals, device.TypeIntegratedGPU)
	_, ok = inst.PhysicalDevice(2)
	c.Assert(ok, qt.IsFalse)

	c.Assert(pd.SupportedFeatures(), qt.Equals, device.FeaturesOf(device.GeometryShader, device.SamplerAnisotropy))
	c.Assert(pd.MemoryHeaps(), qt.HasLen, 2)
	c.Assert(pd.MemoryProperties().DeviceLocalSize(), qt.Equals, uint64(4<<30))

	families := pd.QueueFamilies()
	c.Assert(families, qt.HasLen, 2)
	c.Assert(families[0].Supports(device.QueueGraphics|device.QueueCompute), qt.IsTrue)
	family, ok := pd.QueueFamily(1)
	c.Assert(ok, qt.IsTrue)
	c.Assert(family.Flags, qt.Equals, device.QueueTransfer)
	_, ok = pd.QueueFamily(2)
	c.Assert(ok, qt.IsFalse)

	// Views hand out copies.
	families[0].QueueCount = 0
	again, _ := pd.QueueFamily(0)
	c.Assert(again.QueueCount, qt.Equals, uint32(16))

	_ = inst.PhysicalDevices()
	c.Assert(drv.DevicesCalls.Load(), qt.Equals, int32(1))
}

func TestPhysicalDeviceWithoutQueueFamilies(t *testing.T) {
	c := qt.New(t)
	captureLog(c)

	drv := newDriver()
	gpu := drivertest.GPU("llvmpipe", 4)
	gpu.QueueFamilies = nil
	drv.Devices = []drivertest.Device{gpu}
	loader := newLoader(c, drv)

	inst, err := instance.New(loader, nil, nil, instance.WithDebugLayer(false))
	c.Assert(err, qt.IsNil)
	defer inst.Destroy()

	pd, ok := inst.PhysicalDevice(0)
	c.Assert(ok, qt.IsTrue)
	c.Assert(pd.QueueFamilies(), qt.HasLen, 0)
	_, ok = device.FindQueueFamily(pd.QueueFamilies(), device.QueueGraphics)
	c.Assert(ok, qt.IsFalse)
}

func TestNoPhysicalDevices(t *testing.T) {
	c := qt.New(t)
	captureLog(c)

	drv := newDriver()
	drv.Devices = nil
	loader := newLoader(c, drv)

	inst, err := instance.New(loader, nil, nil, instance.WithDebugLayer(false))
	c.Assert(err, qt.IsNil)
	defer inst.Destroy()

	c.Assert(inst.PhysicalDevices(), qt.HasLen, 0)
	_, ok := inst.PhysicalDevice(0)
	c.Assert(ok, qt.IsFalse)
}

func TestDestroyOrder(t *testing.T) {
	c := qt.New(t)
	captureLog(c)

	drv := newDriver()
	loader := newLoader(c, drv)
	inst, err := instance.New(loader, nil, nil, instance.WithDebugLayer(false))
	c.Assert(err, qt.IsNil)
	c.Assert(loader.References(), qt.Equals, 2)

	loader.Release()
	c.Assert(loader.References(), qt.Equals, 1)
	c.Assert(drv.UnloadCalls.Load(), qt.Equals, int32(0))

	inst.Destroy()
	inst.Destroy()
	c.Assert(drv.DestroyCalls.Load(), qt.Equals, int32(1))
	c.Assert(drv.UnloadCalls.Load(), qt.Equals, int32(1))
	c.Assert(drv.Events(), qt.DeepEquals, []string{"load", "create", "destroy", "unload"})

	c.Assert(func() { inst.Handle() }, qt.PanicMatches, `(?s).*used after Destroy.*`)
}

func TestTwoInstancesShareLoader(t *testing.T) {
	c := qt.New(t)
	captureLog(c)

	drv := newDriver()
	loader := newLoader(c, drv)

	first, err := instance.New(loader,
		[]instance.Extension{instance.KhrSurface, instance.KhrXcbSurface},
		nil, instance.WithDebugLayer(false))
	c.Assert(err, qt.IsNil)
	second, err := instance.New(loader,
		[]instance.Extension{instance.KhrSurface},
		nil, instance.WithDebugLayer(false))
	c.Assert(err, qt.IsNil)
	loader.Release()

	_, err = first.KhrXcbSurface()
	c.Assert(err, qt.IsNil)
	_, err = second.KhrXcbSurface()
	c.Assert(err, qt.ErrorMatches, "extension `VK_KHR_xcb_surface` is not loaded")

	c.Assert(drv.ExtensionsCalls.Load(), qt.Equals, int32(1))

	first.Destroy()
	c.Assert(drv.UnloadCalls.Load(), qt.Equals, int32(0))
	second.Destroy()
	c.Assert(drv.UnloadCalls.Load(), qt.Equals, int32(1))
}

func TestNewEnumerationFailurePanics(t *testing.T) {
	c := qt.New(t)
	captureLog(c)

	drv := newDriver()
	drv.DevicesErr = driver.ErrorInitializationFailed
	loader := newLoader(c, drv)

	c.Assert(func() {
		_, _ = instance.New(loader, nil, nil, instance.WithDebugLayer(false))
	}, qt.PanicMatches, `(?s).*enumerating physical devices.*VK_ERROR_INITIALIZATION_FAILED.*`)

	c.Assert(drv.DestroyCalls.Load(), qt.Equals, int32(1))
	c.Assert(loader.References(), qt.Equals, 1)
	c.Assert(drv.Events(), qt.DeepEquals, []string{"load", "create", "destroy"})

	loader.Release()
	c.Assert(drv.UnloadCalls.Load(), qt.Equals, int32(1))
}

func TestNewAvailabilityQueryFailure(t *testing.T) {
	c := qt.New(t)

	c.Run("layers", func(c *qt.C) {
		captureLog(c)
		drv := newDriver()
		drv.LayersErr = driver.ErrorOutOfDeviceMemory
		loader := newLoader(c, drv)

		_, err := instance.New(loader, nil, nil, instance.WithDebugLayer(false))
		c.Assert(err, qt.ErrorIs, instance.ErrOutOfMemory)
		var cerr *instance.CreationError
		c.Assert(errors.As(err, &cerr), qt.IsTrue)
		c.Assert(cerr.Memory, qt.Equals, instance.OomDevice)

		c.Assert(drv.CreateCalls.Load(), qt.Equals, int32(0))
		c.Assert(loader.References(), qt.Equals, 1)
	})

	c.Run("extensions", func(c *qt.C) {
		captureLog(c)
		drv := newDriver()
		drv.ExtensionsErr = errors.New("loader manifest unreadable")
		loader := newLoader(c, drv)

		_, err := instance.New(loader, nil, nil, instance.WithDebugLayer(false))
		c.Assert(err, qt.ErrorIs, instance.ErrInitializationFailed)
		c.Assert(drv.LayersCalls.Load(), qt.Equals, int32(0))
		c.Assert(drv.CreateCalls.Load(), qt.Equals, int32(0))
		c.Assert(loader.References(), qt.Equals, 1)
	})
}
