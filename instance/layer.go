// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package instance

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strings"

	"github.com/cockroachdb/errors"
)

// ValidationLayer is an instance layer known to koru.
type ValidationLayer uint8

// Known layers
const (
	KhronosValidation ValidationLayer = iota
	LunargStandardValidation
	KhronosSynchronization2
	LunargAPIDump
	LunargMonitor
	KhronosProfiles

	layerCount
)

// DebugLayer is the layer enabled automatically in debug mode, when present.
const DebugLayer = KhronosValidation

var layerNames = [layerCount]string{
	KhronosValidation:        "VK_LAYER_KHRONOS_validation",
	LunargStandardValidation: "VK_LAYER_LUNARG_standard_validation",
	KhronosSynchronization2:  "VK_LAYER_KHRONOS_synchronization2",
	LunargAPIDump:            "VK_LAYER_LUNARG_api_dump",
	LunargMonitor:            "VK_LAYER_LUNARG_monitor",
	KhronosProfiles:          "VK_LAYER_KHRONOS_profiles",
}

var layersByName = func() map[string]ValidationLayer {
	m := make(map[string]ValidationLayer, layerCount)
	for layer, name := range layerNames {
		m[name] = ValidationLayer(layer)
	}
	return m
}()

// Name returns the canonical name of the layer, as passed to the driver.
func (l ValidationLayer) Name() string {
	if l < layerCount {
		return layerNames[l]
	}
	return ""
}

func (l ValidationLayer) String() string {
	if l < layerCount {
		return layerNames[l]
	}
	return fmt.Sprintf("ValidationLayer(%d)", uint8(l))
}

// ParseValidationLayer maps a canonical layer name to a ValidationLayer.
func ParseValidationLayer(name string) (ValidationLayer, bool) {
	layer, ok := layersByName[name]
	return layer, ok
}

// ParseValidationLayers maps canonical names to a list of layers,
// failing on the first unknown name.
func ParseValidationLayers(names []string) ([]ValidationLayer, error) {
	layers := make([]ValidationLayer, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		layer, ok := ParseValidationLayer(name)
		if !ok {
			return nil, errors.Newf("unknown validation layer %q", name)
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

// ValidationLayers is a set of ValidationLayer.
// The zero value is the empty set.
type ValidationLayers struct {
	bits uint32
}

// ValidationLayersOf builds a set from the given layers.
func ValidationLayersOf(layers ...ValidationLayer) ValidationLayers {
	var s ValidationLayers
	for _, l := range layers {
		s.Insert(l)
	}
	return s
}

// Contains reports whether l is in the set.
func (s ValidationLayers) Contains(l ValidationLayer) bool {
	return l < layerCount && s.bits&(1<<l) != 0
}

// Insert adds l to the set.
func (s *ValidationLayers) Insert(l ValidationLayer) {
	if l < layerCount {
		s.bits |= 1 << l
	}
}

// Union returns the layers in either set.
func (s ValidationLayers) Union(other ValidationLayers) ValidationLayers {
	return ValidationLayers{bits: s.bits | other.bits}
}

// IsEmpty reports whether the set has no members.
func (s ValidationLayers) IsEmpty() bool {
	return s.bits == 0
}

// Len returns the number of layers in the set.
func (s ValidationLayers) Len() int {
	return bits.OnesCount32(s.bits)
}

// Slice lists the layers in declaration order.
func (s ValidationLayers) Slice() []ValidationLayer {
	list := make([]ValidationLayer, 0, s.Len())
	for l := ValidationLayer(0); l < layerCount; l++ {
		if s.Contains(l) {
			list = append(list, l)
		}
	}
	return list
}

// Names lists the canonical names in declaration order.
func (s ValidationLayers) Names() []string {
	names := make([]string, 0, s.Len())
	for _, l := range s.Slice() {
		names = append(names, l.Name())
	}
	return names
}

func (s ValidationLayers) String() string {
	return "{" + strings.Join(s.Names(), ", ") + "}"
}

// MarshalJSON encodes the set as a list of names.
func (s ValidationLayers) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}
