// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import "sort"

// SharingMode mirrors VkSharingMode.
type SharingMode uint32

// Sharing modes
const (
	SharingExclusive SharingMode = iota
	SharingConcurrent
)

func (m SharingMode) String() string {
	if m == SharingConcurrent {
		return "concurrent"
	}
	return "exclusive"
}

// Sharing decides how a resource used by the given queue families must be
// shared. A single distinct family gets exclusive ownership and no index
// list; more than one family needs concurrent access, and the returned
// indices are deduplicated and sorted, ready for pQueueFamilyIndices.
func Sharing(families ...uint32) (SharingMode, []uint32) {
	ids := append([]uint32(nil), families...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	unique := ids[:0]
	for _, id := range ids {
		if len(unique) == 0 || id != unique[len(unique)-1] {
			unique = append(unique, id)
		}
	}

	if len(unique) > 1 {
		return SharingConcurrent, unique
	}
	return SharingExclusive, nil
}
