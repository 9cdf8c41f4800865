// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package instance

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/devblok/koru/driver"
	"github.com/devblok/koru/internal/lazy"
)

// NewLoader loads the native loader through drv. The returned Loader
// holds one reference for its creator, dropped with Release; every
// Instance created from it holds another until it is destroyed.
func NewLoader(drv driver.Driver) (*Loader, error) {
	if err := drv.Load(); err != nil {
		return nil, &CreationError{
			Reason: LoadError,
			Err:    errors.Wrap(err, "loading vulkan"),
		}
	}
	return &Loader{
		driver: drv,
		refs:   1,
	}, nil
}

// Loader is the process wide entry point to the native loader. It
// remembers what the driver advertises, so it is asked only once.
type Loader struct {
	driver driver.Driver
	refs   int32

	extensions lazy.Value[Extensions]
	layers     lazy.Value[ValidationLayers]
}

// Driver returns the driver the loader was created with.
func (l *Loader) Driver() driver.Driver {
	return l.driver
}

// Extensions returns the instance extensions available on this machine.
// The driver is queried on the first successful call only. Names koru
// does not know are skipped with a warning.
func (l *Loader) Extensions() (Extensions, error) {
	return l.extensions.Get(func() (Extensions, error) {
		names, err := l.driver.EnumerateInstanceExtensions()
		if err != nil {
			return Extensions{}, errors.Wrap(err, "enumerating instance extensions")
		}

		log := Logger()
		var exts Extensions
		for _, name := range names {
			ext, ok := ParseExtension(name)
			if !ok {
				log.WithField("extension", name).Warn("unknown instance extension")
				continue
			}
			log.WithField("extension", ext.Name()).Info("available instance extension")
			exts.Insert(ext)
		}
		return exts, nil
	})
}

// ValidationLayers returns the layers available on this machine.
// The driver is queried on the first successful call only. Names koru
// does not know are skipped with a warning.
func (l *Loader) ValidationLayers() (ValidationLayers, error) {
	return l.layers.Get(func() (ValidationLayers, error) {
		names, err := l.driver.EnumerateInstanceLayers()
		if err != nil {
			return ValidationLayers{}, errors.Wrap(err, "enumerating instance layers")
		}

		log := Logger()
		var layers ValidationLayers
		for _, name := range names {
			layer, ok := ParseValidationLayer(name)
			if !ok {
				log.WithField("layer", name).Warn("unknown validation layer")
				continue
			}
			log.WithField("layer", layer.Name()).Info("available validation layer")
			layers.Insert(layer)
		}
		return layers, nil
	})
}

// Release drops the creator's reference. The native loader is unloaded
// once the last Instance created from it has been destroyed as well.
func (l *Loader) Release() {
	l.release()
}

// References returns the number of live references to the loader.
func (l *Loader) References() int {
	return int(atomic.LoadInt32(&l.refs))
}

func (l *Loader) acquire() {
	for {
		n := atomic.LoadInt32(&l.refs)
		if n <= 0 {
			panic(errors.AssertionFailedf("vulkan loader used after it was unloaded"))
		}
		if atomic.CompareAndSwapInt32(&l.refs, n, n+1) {
			return
		}
	}
}

func (l *Loader) release() {
	switch n := atomic.AddInt32(&l.refs, -1); {
	case n == 0:
		Logger().Debug("unloading vulkan loader")
		l.driver.Unload()
	case n < 0:
		panic(errors.AssertionFailedf("vulkan loader released too many times"))
	}
}
