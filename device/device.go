// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package device holds koru's own description of a physical device:
// properties, limits, supported features, memory layout and queue
// families, translated once from the raw driver records.
package device

import (
	"fmt"

	"github.com/devblok/koru/driver"
)

// Type is the kind of physical device.
type Type uint32

// Identifies the device types the way VkPhysicalDeviceType does
const (
	TypeOther Type = iota
	TypeIntegratedGPU
	TypeDiscreteGPU
	TypeVirtualGPU
	TypeCPU
)

func (t Type) String() string {
	switch t {
	case TypeOther:
		return "other"
	case TypeIntegratedGPU:
		return "integrated"
	case TypeDiscreteGPU:
		return "discrete"
	case TypeVirtualGPU:
		return "virtual"
	case TypeCPU:
		return "cpu"
	}
	return fmt.Sprintf("Type(%d)", uint32(t))
}

// MarshalText implements encoding.TextMarshaler
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Limits describes the limits of a physical device.
type Limits struct {
	MaxImageDimension1D             uint32
	MaxImageDimension2D             uint32
	MaxImageDimension3D             uint32
	MaxImageDimensionCube           uint32
	MaxImageArrayLayers             uint32
	MaxUniformBufferRange           uint32
	MaxStorageBufferRange           uint32
	MaxPushConstantsSize            uint32
	MaxMemoryAllocationCount        uint32
	MaxSamplerAllocationCount       uint32
	BufferImageGranularity          uint64
	MaxBoundDescriptorSets          uint32
	MaxVertexInputAttributes        uint32
	MaxVertexInputBindings          uint32
	MaxComputeSharedMemorySize      uint32
	MaxComputeWorkGroupCount        [3]uint32
	MaxComputeWorkGroupInvocations  uint32
	MaxComputeWorkGroupSize         [3]uint32
	MaxViewports                    uint32
	MaxFramebufferWidth             uint32
	MaxFramebufferHeight            uint32
	MaxSamplerAnisotropy            float32
	MinMemoryMapAlignment           uint64
	MinUniformBufferOffsetAlignment uint64
	MinStorageBufferOffsetAlignment uint64
	TimestampPeriod                 float32
	NonCoherentAtomSize             uint64
}

// Properties describes the static properties of a physical device.
type Properties struct {
	Name              string
	Type              Type
	VendorID          uint32
	DeviceID          uint32
	APIVersion        driver.Version
	DriverVersion     uint32
	PipelineCacheUUID [16]byte
	Limits            Limits
}

// PropertiesFrom translates raw driver properties.
func PropertiesFrom(raw driver.Properties) Properties {
	return Properties{
		Name:              raw.DeviceName,
		Type:              Type(raw.DeviceType),
		VendorID:          raw.VendorID,
		DeviceID:          raw.DeviceID,
		APIVersion:        driver.Version(raw.APIVersion),
		DriverVersion:     raw.DriverVersion,
		PipelineCacheUUID: raw.PipelineCacheUUID,
		Limits:            Limits(raw.Limits),
	}
}
