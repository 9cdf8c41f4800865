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

// Extension is an instance extension known to koru.
type Extension uint8

// Known instance extensions
const (
	KhrSurface Extension = iota
	KhrDisplay
	KhrXcbSurface
	KhrXlibSurface
	KhrWaylandSurface
	KhrWin32Surface
	KhrAndroidSurface
	ExtMetalSurface
	MvkMacosSurface
	ExtDebugReport
	ExtDebugUtils
	KhrGetPhysicalDeviceProperties2
	KhrGetSurfaceCapabilities2
	KhrPortabilityEnumeration

	extensionCount
)

type extensionInfo struct {
	name string
	// commands are the instance level entry points the extension adds.
	commands []string
}

var extensionInfos = [extensionCount]extensionInfo{
	KhrSurface: {"VK_KHR_surface", []string{
		"vkDestroySurfaceKHR",
		"vkGetPhysicalDeviceSurfaceSupportKHR",
		"vkGetPhysicalDeviceSurfaceCapabilitiesKHR",
		"vkGetPhysicalDeviceSurfaceFormatsKHR",
		"vkGetPhysicalDeviceSurfacePresentModesKHR",
	}},
	KhrDisplay: {"VK_KHR_display", []string{
		"vkGetPhysicalDeviceDisplayPropertiesKHR",
		"vkGetPhysicalDeviceDisplayPlanePropertiesKHR",
		"vkGetDisplayPlaneSupportedDisplaysKHR",
		"vkGetDisplayModePropertiesKHR",
		"vkCreateDisplayModeKHR",
		"vkGetDisplayPlaneCapabilitiesKHR",
		"vkCreateDisplayPlaneSurfaceKHR",
	}},
	KhrXcbSurface: {"VK_KHR_xcb_surface", []string{
		"vkCreateXcbSurfaceKHR",
		"vkGetPhysicalDeviceXcbPresentationSupportKHR",
	}},
	KhrXlibSurface: {"VK_KHR_xlib_surface", []string{
		"vkCreateXlibSurfaceKHR",
		"vkGetPhysicalDeviceXlibPresentationSupportKHR",
	}},
	KhrWaylandSurface: {"VK_KHR_wayland_surface", []string{
		"vkCreateWaylandSurfaceKHR",
		"vkGetPhysicalDeviceWaylandPresentationSupportKHR",
	}},
	KhrWin32Surface: {"VK_KHR_win32_surface", []string{
		"vkCreateWin32SurfaceKHR",
		"vkGetPhysicalDeviceWin32PresentationSupportKHR",
	}},
	KhrAndroidSurface: {"VK_KHR_android_surface", []string{
		"vkCreateAndroidSurfaceKHR",
	}},
	ExtMetalSurface: {"VK_EXT_metal_surface", []string{
		"vkCreateMetalSurfaceEXT",
	}},
	MvkMacosSurface: {"VK_MVK_macos_surface", []string{
		"vkCreateMacOSSurfaceMVK",
	}},
	ExtDebugReport: {"VK_EXT_debug_report", []string{
		"vkCreateDebugReportCallbackEXT",
		"vkDestroyDebugReportCallbackEXT",
		"vkDebugReportMessageEXT",
	}},
	ExtDebugUtils: {"VK_EXT_debug_utils", []string{
		"vkCreateDebugUtilsMessengerEXT",
		"vkDestroyDebugUtilsMessengerEXT",
		"vkSubmitDebugUtilsMessageEXT",
		"vkSetDebugUtilsObjectNameEXT",
		"vkSetDebugUtilsObjectTagEXT",
		"vkCmdBeginDebugUtilsLabelEXT",
		"vkCmdEndDebugUtilsLabelEXT",
		"vkCmdInsertDebugUtilsLabelEXT",
	}},
	KhrGetPhysicalDeviceProperties2: {"VK_KHR_get_physical_device_properties2", []string{
		"vkGetPhysicalDeviceFeatures2KHR",
		"vkGetPhysicalDeviceProperties2KHR",
		"vkGetPhysicalDeviceFormatProperties2KHR",
		"vkGetPhysicalDeviceImageFormatProperties2KHR",
		"vkGetPhysicalDeviceQueueFamilyProperties2KHR",
		"vkGetPhysicalDeviceMemoryProperties2KHR",
		"vkGetPhysicalDeviceSparseImageFormatProperties2KHR",
	}},
	KhrGetSurfaceCapabilities2: {"VK_KHR_get_surface_capabilities2", []string{
		"vkGetPhysicalDeviceSurfaceCapabilities2KHR",
		"vkGetPhysicalDeviceSurfaceFormats2KHR",
	}},
	// Only changes enumeration behaviour, adds no commands.
	KhrPortabilityEnumeration: {"VK_KHR_portability_enumeration", nil},
}

var extensionsByName = func() map[string]Extension {
	m := make(map[string]Extension, extensionCount)
	for ext, info := range extensionInfos {
		m[info.name] = Extension(ext)
	}
	return m
}()

// Name returns the canonical name of the extension, as passed to the driver.
func (e Extension) Name() string {
	if e < extensionCount {
		return extensionInfos[e].name
	}
	return ""
}

func (e Extension) String() string {
	if e < extensionCount {
		return extensionInfos[e].name
	}
	return fmt.Sprintf("Extension(%d)", uint8(e))
}

// Commands lists the instance level commands the extension adds.
func (e Extension) Commands() []string {
	if e < extensionCount {
		return append([]string(nil), extensionInfos[e].commands...)
	}
	return nil
}

// ParseExtension maps a canonical extension name to an Extension.
func ParseExtension(name string) (Extension, bool) {
	ext, ok := extensionsByName[name]
	return ext, ok
}

// ParseExtensions maps canonical names to a list of extensions.
// Unlike the driver-facing lookups, an unknown name is an error here:
// it comes from the user, not from a driver that may be newer than koru.
func ParseExtensions(names []string) ([]Extension, error) {
	exts := make([]Extension, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		ext, ok := ParseExtension(name)
		if !ok {
			return nil, errors.Newf("unknown instance extension %q", name)
		}
		exts = append(exts, ext)
	}
	return exts, nil
}

// AllExtensions lists every known extension in declaration order.
func AllExtensions() []Extension {
	list := make([]Extension, extensionCount)
	for i := range list {
		list[i] = Extension(i)
	}
	return list
}

// Extensions is a set of Extension.
// The zero value is the empty set.
type Extensions struct {
	bits uint32
}

// ExtensionsOf builds a set from the given extensions.
// Duplicates collapse.
func ExtensionsOf(exts ...Extension) Extensions {
	var s Extensions
	for _, ext := range exts {
		s.Insert(ext)
	}
	return s
}

// Contains reports whether ext is in the set.
func (s Extensions) Contains(ext Extension) bool {
	return ext < extensionCount && s.bits&(1<<ext) != 0
}

// Insert adds ext to the set.
func (s *Extensions) Insert(ext Extension) {
	if ext < extensionCount {
		s.bits |= 1 << ext
	}
}

// Union returns the extensions in either set.
func (s Extensions) Union(other Extensions) Extensions {
	return Extensions{bits: s.bits | other.bits}
}

// IsEmpty reports whether the set has no members.
func (s Extensions) IsEmpty() bool {
	return s.bits == 0
}

// Len returns the number of extensions in the set.
func (s Extensions) Len() int {
	return bits.OnesCount32(s.bits)
}

// Slice lists the extensions in declaration order.
func (s Extensions) Slice() []Extension {
	list := make([]Extension, 0, s.Len())
	for ext := Extension(0); ext < extensionCount; ext++ {
		if s.Contains(ext) {
			list = append(list, ext)
		}
	}
	return list
}

// Names lists the canonical names in declaration order.
func (s Extensions) Names() []string {
	names := make([]string, 0, s.Len())
	for _, ext := range s.Slice() {
		names = append(names, ext.Name())
	}
	return names
}

func (s Extensions) String() string {
	return "{" + strings.Join(s.Names(), ", ") + "}"
}

// MarshalJSON encodes the set as a list of names.
func (s Extensions) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}
