// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/envy"
	"github.com/sirupsen/logrus"

	"github.com/devblok/koru/core"
	"github.com/devblok/koru/driver/drivertest"
	"github.com/devblok/koru/instance"
)

func writeDotenv(c *qt.C, contents string) string {
	path := filepath.Join(c.TempDir(), ".env")
	c.Assert(os.WriteFile(path, []byte(contents), 0o600), qt.IsNil)
	return path
}

func TestDefaultConfiguration(t *testing.T) {
	c := qt.New(t)

	envy.Temp(func() {
		for _, key := range []string{core.EnvDebug, core.EnvExtensions, core.EnvLayers, core.EnvAppName, core.EnvLogLevel, core.EnvLogFormat} {
			envy.Set(key, "")
		}
		cfg, err := core.LoadConfiguration("")
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Instance.DebugMode, qt.IsNil)
		c.Assert(cfg.Instance.Extensions, qt.HasLen, 0)
		c.Assert(cfg.Instance.ApplicationName, qt.Equals, "Koru3D")
		c.Assert(cfg.Log.Level, qt.Equals, logrus.InfoLevel)
		c.Assert(cfg.Log.Format, qt.Equals, "text")
	})
}

func TestLoadConfigurationFromFile(t *testing.T) {
	c := qt.New(t)

	path := writeDotenv(c, `
KORU_DEBUG=true
KORU_EXTENSIONS=VK_KHR_surface,VK_KHR_xcb_surface
KORU_LAYERS=VK_LAYER_LUNARG_api_dump
KORU_APP_NAME=viewer
KORU_LOG_LEVEL=debug
KORU_LOG_FORMAT=json
`)
	envy.Temp(func() {
		envy.Set(core.EnvLogLevel, "")
		envy.Set(core.EnvAppName, "")
		envy.Set(core.EnvDebug, "")
		envy.Set(core.EnvExtensions, "")
		envy.Set(core.EnvLayers, "")
		envy.Set(core.EnvLogFormat, "")

		cfg, err := core.LoadConfiguration(path)
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Instance.DebugMode, qt.IsNotNil)
		c.Assert(*cfg.Instance.DebugMode, qt.IsTrue)
		c.Assert(cfg.Instance.Extensions, qt.DeepEquals, []instance.Extension{instance.KhrSurface, instance.KhrXcbSurface})
		c.Assert(cfg.Instance.Layers, qt.DeepEquals, []instance.ValidationLayer{instance.LunargAPIDump})
		c.Assert(cfg.Instance.ApplicationName, qt.Equals, "viewer")
		c.Assert(cfg.Log.Level, qt.Equals, logrus.DebugLevel)
		c.Assert(cfg.Log.Format, qt.Equals, "json")
	})
}

func TestEnvironmentOverridesFile(t *testing.T) {
	c := qt.New(t)

	path := writeDotenv(c, "KORU_APP_NAME=viewer\nKORU_LOG_LEVEL=debug\n")
	envy.Temp(func() {
		envy.Set(core.EnvAppName, "editor")
		envy.Set(core.EnvLogLevel, "")
		cfg, err := core.LoadConfiguration(path)
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Instance.ApplicationName, qt.Equals, "editor")
		c.Assert(cfg.Log.Level, qt.Equals, logrus.DebugLevel)
	})
}

func TestLoadConfigurationErrors(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		contents string
		err      string
	}{
		{"KORU_DEBUG=maybe", `parsing KORU_DEBUG: .*`},
		{"KORU_EXTENSIONS=VK_KHR_swapchain", `parsing KORU_EXTENSIONS: unknown instance extension "VK_KHR_swapchain"`},
		{"KORU_LAYERS=VK_LAYER_nope", `parsing KORU_LAYERS: unknown validation layer "VK_LAYER_nope"`},
		{"KORU_LOG_LEVEL=loud", `parsing KORU_LOG_LEVEL: .*`},
		{"KORU_LOG_FORMAT=xml", `parsing KORU_LOG_FORMAT: unknown log format "xml"`},
	}
	for _, test := range tests {
		path := writeDotenv(c, test.contents)
		envy.Temp(func() {
			for _, key := range []string{core.EnvDebug, core.EnvExtensions, core.EnvLayers, core.EnvLogLevel, core.EnvLogFormat} {
				envy.Set(key, "")
			}
			_, err := core.LoadConfiguration(path)
			c.Assert(err, qt.ErrorMatches, test.err)
		})
	}

	_, err := core.LoadConfiguration(filepath.Join(c.TempDir(), "missing.env"))
	c.Assert(err, qt.ErrorMatches, `reading configuration .*missing.env: .*`)
}

func TestNewLogger(t *testing.T) {
	c := qt.New(t)

	var buf bytes.Buffer
	logger := core.NewLogger(core.LogConfiguration{Level: logrus.WarnLevel, Format: "json"}, &buf)
	logger.Info("hidden")
	logger.WithField("extension", "VK_KHR_surface").Warn("shown")

	var entry map[string]interface{}
	c.Assert(json.Unmarshal(buf.Bytes(), &entry), qt.IsNil)
	c.Assert(entry["msg"], qt.Equals, "shown")
	c.Assert(entry["extension"], qt.Equals, "VK_KHR_surface")
}

func TestNewInstance(t *testing.T) {
	c := qt.New(t)

	drv := &drivertest.Driver{
		Extensions: []string{"VK_KHR_surface"},
		Layers:     []string{"VK_LAYER_KHRONOS_validation"},
		Devices:    []drivertest.Device{drivertest.GPU("GeForce GTX 1050 Ti", 2)},
	}
	debug := true
	inst, err := core.NewInstance(drv, core.InstanceConfiguration{
		DebugMode:       &debug,
		Extensions:      []instance.Extension{instance.KhrSurface},
		ApplicationName: "viewer",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(inst.Loader().References(), qt.Equals, 1)
	c.Assert(drv.CreateInfo().ApplicationName, qt.Equals, "viewer")
	c.Assert(drv.CreateInfo().EnabledLayers, qt.DeepEquals, []string{"VK_LAYER_KHRONOS_validation"})

	inst.Destroy()
	c.Assert(drv.UnloadCalls.Load(), qt.Equals, int32(1))
}

func TestNewInstanceFailureUnloads(t *testing.T) {
	c := qt.New(t)

	drv := &drivertest.Driver{}
	_, err := core.NewInstance(drv, core.InstanceConfiguration{
		Extensions: []instance.Extension{instance.KhrSurface},
	})
	c.Assert(err, qt.ErrorIs, instance.ErrMissingExtension)
	c.Assert(drv.UnloadCalls.Load(), qt.Equals, int32(1))
}

func TestOptionsKeepBuildDefault(t *testing.T) {
	c := qt.New(t)

	cfg := core.DefaultConfiguration().Instance
	c.Assert(cfg.Options(), qt.HasLen, 1)

	off := false
	cfg.DebugMode = &off
	c.Assert(cfg.Options(), qt.HasLen, 2)

	drv := &drivertest.Driver{
		Layers: []string{"VK_LAYER_KHRONOS_validation"},
	}
	inst, err := core.NewInstance(drv, cfg)
	c.Assert(err, qt.IsNil)
	defer inst.Destroy()
	c.Assert(drv.CreateInfo().EnabledLayers, qt.DeepEquals, []string{})
}
