// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"strings"

	"github.com/devblok/koru/driver"
)

// QueueFlags mirrors VkQueueFlags: the operation classes a queue family supports.
type QueueFlags uint32

// Queue operation classes
const (
	QueueGraphics QueueFlags = 1 << iota
	QueueCompute
	QueueTransfer
	QueueSparseBinding
	QueueProtected
)

// Has reports whether every bit of other is set.
func (f QueueFlags) Has(other QueueFlags) bool {
	return f&other == other
}

func (f QueueFlags) String() string {
	var parts []string
	for _, c := range []struct {
		flag QueueFlags
		name string
	}{
		{QueueGraphics, "graphics"},
		{QueueCompute, "compute"},
		{QueueTransfer, "transfer"},
		{QueueSparseBinding, "sparse_binding"},
		{QueueProtected, "protected"},
	} {
		if f.Has(c.flag) {
			parts = append(parts, c.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// MarshalText implements encoding.TextMarshaler
func (f QueueFlags) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// QueueFamily describes one queue family of a physical device.
type QueueFamily struct {
	Index                       uint32
	Flags                       QueueFlags
	QueueCount                  uint32
	TimestampValidBits          uint32
	MinImageTransferGranularity [3]uint32
}

// Supports reports whether the family can run all operations in flags.
func (q QueueFamily) Supports(flags QueueFlags) bool {
	return q.Flags.Has(flags)
}

// QueueFamiliesFrom translates the raw queue family records, keeping driver order.
func QueueFamiliesFrom(raw []driver.QueueFamilyProperties) []QueueFamily {
	families := make([]QueueFamily, len(raw))
	for i, q := range raw {
		families[i] = QueueFamily{
			Index:                       uint32(i),
			Flags:                       QueueFlags(q.QueueFlags),
			QueueCount:                  q.QueueCount,
			TimestampValidBits:          q.TimestampValidBits,
			MinImageTransferGranularity: q.MinImageTransferGranularity,
		}
	}
	return families
}

// FindQueueFamily returns the first family supporting flags.
func FindQueueFamily(families []QueueFamily, flags QueueFlags) (QueueFamily, bool) {
	for _, q := range families {
		if q.QueueCount > 0 && q.Supports(flags) {
			return q, true
		}
	}
	return QueueFamily{}, false
}
