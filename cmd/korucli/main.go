// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command korucli negotiates a Vulkan instance and prints the physical
// devices it sees as JSON. It can also record the machine into a
// capture, or work from one instead of the system loader.
package main

import (
	"encoding/json"
	"flag"
	"io"
	"os"
	"strings"

	"github.com/devblok/koru/core"
	"github.com/devblok/koru/driver"
	"github.com/devblok/koru/driver/replay"
	"github.com/devblok/koru/driver/vulkan"
	"github.com/devblok/koru/instance"
)

var (
	configPath  = flag.String("config", "", "dotenv file with KORU_* settings")
	extensions  = flag.String("ext", "", "comma separated instance extensions to enable")
	layers      = flag.String("layer", "", "comma separated validation layers to enable")
	debug       = flag.Bool("debug", false, "enable the debug validation layer when available")
	replayPath  = flag.String("replay", "", "read devices from a capture instead of the system loader")
	capturePath = flag.String("capture", "", "record the system loader into a capture file and exit")
)

func main() {
	flag.Parse()

	// instance.Logger is the configured logger once run has set it up.
	if err := run(os.Stdout, openDriver); err != nil {
		instance.Logger().Fatal(err)
	}
}

// run does the work of main. Everything it creates is released before
// it returns, error or not.
func run(out io.Writer, open func() (driver.Driver, error)) error {
	cfg, err := core.LoadConfiguration(*configPath)
	if err != nil {
		return err
	}
	logger := core.NewLogger(cfg.Log, os.Stderr)
	instance.SetLogger(logger)

	if err := applyFlags(&cfg.Instance); err != nil {
		return err
	}

	drv, err := open()
	if err != nil {
		return err
	}

	if *capturePath != "" {
		if err := capture(drv, *capturePath); err != nil {
			return err
		}
		logger.WithField("path", *capturePath).Info("capture written")
		return nil
	}

	inst, err := core.NewInstance(drv, cfg.Instance)
	if err != nil {
		return err
	}
	defer inst.Destroy()

	bytes, err := json.MarshalIndent(newReport(inst), "", "  ")
	if err != nil {
		return err
	}
	_, err = out.Write(append(bytes, '\n'))
	return err
}

func applyFlags(cfg *core.InstanceConfiguration) error {
	exts, err := instance.ParseExtensions(strings.Split(*extensions, ","))
	if err != nil {
		return err
	}
	cfg.Extensions = append(cfg.Extensions, exts...)

	lyrs, err := instance.ParseValidationLayers(strings.Split(*layers, ","))
	if err != nil {
		return err
	}
	cfg.Layers = append(cfg.Layers, lyrs...)

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "debug" {
			cfg.DebugMode = debug
		}
	})
	return nil
}

func openDriver() (driver.Driver, error) {
	if *replayPath != "" {
		return replay.OpenFile(*replayPath)
	}
	return vulkan.New(nil), nil
}

func capture(drv driver.Driver, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := replay.Capture(drv, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
