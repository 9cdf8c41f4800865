// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package instance

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/devblok/koru/driver"
)

// CreationFailure classifies why an instance could not be created.
// Each value is also an error, so errors.Is(err, MissingExtension)
// matches any CreationError with that reason.
type CreationFailure int

// Reasons for a failed instance creation
const (
	LoadError CreationFailure = iota + 1
	OutOfMemory
	InitializationFailed
	MissingValidationLayer
	MissingExtension
	IncompatibleDriver
)

func (r CreationFailure) Error() string {
	switch r {
	case LoadError:
		return "vulkan loader could not be loaded"
	case OutOfMemory:
		return "out of memory"
	case InitializationFailed:
		return "initialization failed"
	case MissingValidationLayer:
		return "missing validation layer"
	case MissingExtension:
		return "missing extension"
	case IncompatibleDriver:
		return "incompatible driver"
	}
	return fmt.Sprintf("CreationFailure(%d)", int(r))
}

// package errors
var (
	ErrLoad                   error = LoadError
	ErrOutOfMemory            error = OutOfMemory
	ErrInitializationFailed   error = InitializationFailed
	ErrMissingValidationLayer error = MissingValidationLayer
	ErrMissingExtension       error = MissingExtension
	ErrIncompatibleDriver     error = IncompatibleDriver
)

// OomError tells which memory ran out.
type OomError int

// Out of memory kinds
const (
	OomHost OomError = iota + 1
	OomDevice
)

func (e OomError) Error() string {
	switch e {
	case OomHost:
		return "host is out of memory"
	case OomDevice:
		return "device is out of memory"
	}
	return "out of memory"
}

// CreationError is returned by NewLoader and New.
type CreationError struct {
	Reason CreationFailure

	// Extension is set for MissingExtension.
	Extension Extension

	// Layer is set for MissingValidationLayer.
	Layer ValidationLayer

	// Memory is set for OutOfMemory.
	Memory OomError

	// Err is the underlying driver error, if any.
	Err error
}

func (e *CreationError) Error() string {
	var msg string
	switch e.Reason {
	case MissingExtension:
		msg = fmt.Sprintf("missing extension `%s`", e.Extension)
	case MissingValidationLayer:
		msg = fmt.Sprintf("missing validation layer `%s`", e.Layer)
	case OutOfMemory:
		msg = e.Memory.Error()
	default:
		msg = e.Reason.Error()
	}
	if e.Err != nil {
		return "instance creation: " + msg + ": " + e.Err.Error()
	}
	return "instance creation: " + msg
}

// Unwrap returns the underlying driver error.
func (e *CreationError) Unwrap() error {
	return e.Err
}

// Is matches the CreationFailure reason of the error.
func (e *CreationError) Is(target error) bool {
	r, ok := target.(CreationFailure)
	return ok && r == e.Reason
}

// MissingExtensionError is returned when an extension function table
// is requested for an extension the instance was not created with.
type MissingExtensionError struct {
	Extension Extension
}

func (e *MissingExtensionError) Error() string {
	return fmt.Sprintf("extension `%s` is not loaded", e.Extension)
}

// fromResult maps a driver failure met while talking to the loader.
// ErrorExtensionNotPresent and ErrorLayerNotPresent are not expected
// here and end up as InitializationFailed.
func fromResult(err error) *CreationError {
	var r driver.Result
	if !errors.As(err, &r) {
		return &CreationError{Reason: InitializationFailed, Err: err}
	}
	switch r {
	case driver.ErrorOutOfHostMemory:
		return &CreationError{Reason: OutOfMemory, Memory: OomHost, Err: err}
	case driver.ErrorOutOfDeviceMemory:
		return &CreationError{Reason: OutOfMemory, Memory: OomDevice, Err: err}
	case driver.ErrorIncompatibleDriver:
		return &CreationError{Reason: IncompatibleDriver, Err: err}
	}
	return &CreationError{Reason: InitializationFailed, Err: err}
}

// fromCreateResult maps the result of CreateInstance. Names were checked
// against the loader before the call, so a missing layer or extension
// means negotiation is broken.
func fromCreateResult(err error) *CreationError {
	var r driver.Result
	if errors.As(err, &r) {
		switch r {
		case driver.ErrorOutOfHostMemory,
			driver.ErrorOutOfDeviceMemory,
			driver.ErrorInitializationFailed,
			driver.ErrorIncompatibleDriver:
			return fromResult(err)
		case driver.ErrorLayerNotPresent:
			panic(errors.AssertionFailedf("unchecked missing layer: %v", err))
		case driver.ErrorExtensionNotPresent:
			panic(errors.AssertionFailedf("unchecked missing extension: %v", err))
		}
	}
	panic(errors.AssertionFailedf("unexpected instance creation failure: %v", err))
}
