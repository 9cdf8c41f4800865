// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import "github.com/devblok/koru/driver"

// MemoryPropertyFlags mirrors VkMemoryPropertyFlags.
type MemoryPropertyFlags uint32

// Memory property bits
const (
	MemoryDeviceLocal MemoryPropertyFlags = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
	MemoryHostCached
	MemoryLazilyAllocated
	MemoryProtected
)

// Has reports whether every bit of other is set.
func (f MemoryPropertyFlags) Has(other MemoryPropertyFlags) bool {
	return f&other == other
}

// MemoryHeapFlags mirrors VkMemoryHeapFlags.
type MemoryHeapFlags uint32

// Memory heap bits
const (
	HeapDeviceLocal MemoryHeapFlags = 1 << iota
	HeapMultiInstance
)

// Has reports whether every bit of other is set.
func (f MemoryHeapFlags) Has(other MemoryHeapFlags) bool {
	return f&other == other
}

// MemoryType is one entry of the device memory type table.
type MemoryType struct {
	PropertyFlags MemoryPropertyFlags
	HeapIndex     uint32
}

// MemoryHeap is one device memory heap.
type MemoryHeap struct {
	Size  uint64
	Flags MemoryHeapFlags
}

// MemoryProperties is the memory type and heap layout of a device.
type MemoryProperties struct {
	Types []MemoryType
	Heaps []MemoryHeap
}

// MemoryPropertiesFrom translates the raw driver record.
func MemoryPropertiesFrom(raw driver.MemoryProperties) MemoryProperties {
	mp := MemoryProperties{
		Types: make([]MemoryType, len(raw.Types)),
		Heaps: make([]MemoryHeap, len(raw.Heaps)),
	}
	for i, t := range raw.Types {
		mp.Types[i] = MemoryType{
			PropertyFlags: MemoryPropertyFlags(t.PropertyFlags),
			HeapIndex:     t.HeapIndex,
		}
	}
	for i, h := range raw.Heaps {
		mp.Heaps[i] = MemoryHeap{
			Size:  h.Size,
			Flags: MemoryHeapFlags(h.Flags),
		}
	}
	return mp
}

// Clone returns a deep copy, so callers cannot reach into a cached snapshot.
func (mp MemoryProperties) Clone() MemoryProperties {
	return MemoryProperties{
		Types: append([]MemoryType(nil), mp.Types...),
		Heaps: append([]MemoryHeap(nil), mp.Heaps...),
	}
}

// DeviceLocalSize sums the sizes of all device local heaps.
func (mp MemoryProperties) DeviceLocalSize() uint64 {
	var size uint64
	for _, h := range mp.Heaps {
		if h.Flags.Has(HeapDeviceLocal) {
			size += h.Size
		}
	}
	return size
}
