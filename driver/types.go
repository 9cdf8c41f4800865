// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package driver

import "fmt"

// Version is a packed Vulkan version number.
type Version uint32

// MakeVersion packs major, minor and patch the way VK_MAKE_VERSION does.
func MakeVersion(major, minor, patch uint32) Version {
	return Version(major<<22 | minor<<12 | patch)
}

// Major version number
func (v Version) Major() uint32 { return uint32(v) >> 22 }

// Minor version number
func (v Version) Minor() uint32 { return (uint32(v) >> 12) & 0x3ff }

// Patch version number
func (v Version) Patch() uint32 { return uint32(v) & 0xfff }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}

// Properties mirrors VkPhysicalDeviceProperties.
type Properties struct {
	APIVersion        uint32
	DriverVersion     uint32
	VendorID          uint32
	DeviceID          uint32
	DeviceType        uint32
	DeviceName        string
	PipelineCacheUUID [16]byte
	Limits            Limits
}

// Limits is the subset of VkPhysicalDeviceLimits koru records.
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

// Features maps VkPhysicalDeviceFeatures member names, as spelled in
// the Vulkan headers (robustBufferAccess, geometryShader, ...), to
// whether the device supports them.
type Features map[string]bool

// MemoryType mirrors VkMemoryType.
type MemoryType struct {
	PropertyFlags uint32
	HeapIndex     uint32
}

// MemoryHeap mirrors VkMemoryHeap.
type MemoryHeap struct {
	Size  uint64
	Flags uint32
}

// MemoryProperties mirrors VkPhysicalDeviceMemoryProperties, with the
// fixed arrays cut down to their reported counts.
type MemoryProperties struct {
	Types []MemoryType
	Heaps []MemoryHeap
}

// QueueFamilyProperties mirrors VkQueueFamilyProperties.
type QueueFamilyProperties struct {
	QueueFlags                  uint32
	QueueCount                  uint32
	TimestampValidBits          uint32
	MinImageTransferGranularity [3]uint32
}
