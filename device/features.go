// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"math/bits"
	"sort"

	"github.com/devblok/koru/driver"
)

// Feature is an optional device feature from VkPhysicalDeviceFeatures.
type Feature uint8

// Known features, in VkPhysicalDeviceFeatures member order
const (
	RobustBufferAccess Feature = iota
	FullDrawIndexUint32
	ImageCubeArray
	IndependentBlend
	GeometryShader
	TessellationShader
	SampleRateShading
	DualSrcBlend
	LogicOp
	MultiDrawIndirect
	DrawIndirectFirstInstance
	DepthClamp
	DepthBiasClamp
	FillModeNonSolid
	DepthBounds
	WideLines
	LargePoints
	AlphaToOne
	MultiViewport
	SamplerAnisotropy
	TextureCompressionETC2
	TextureCompressionASTCLDR
	TextureCompressionBC
	OcclusionQueryPrecise
	PipelineStatisticsQuery
	VertexPipelineStoresAndAtomics
	FragmentStoresAndAtomics
	ShaderTessellationAndGeometryPointSize
	ShaderImageGatherExtended
	ShaderStorageImageExtendedFormats
	ShaderStorageImageMultisample
	ShaderStorageImageReadWithoutFormat
	ShaderStorageImageWriteWithoutFormat
	ShaderUniformBufferArrayDynamicIndexing
	ShaderSampledImageArrayDynamicIndexing
	ShaderStorageBufferArrayDynamicIndexing
	ShaderStorageImageArrayDynamicIndexing
	ShaderClipDistance
	ShaderCullDistance
	ShaderFloat64
	ShaderInt64
	ShaderInt16
	ShaderResourceResidency
	ShaderResourceMinLod
	SparseBinding
	SparseResidencyBuffer
	SparseResidencyImage2D
	SparseResidencyImage3D
	SparseResidency2Samples
	SparseResidency4Samples
	SparseResidency8Samples
	SparseResidency16Samples
	SparseResidencyAliased
	VariableMultisampleRate
	InheritedQueries

	featureCount
)

var featureNames = [featureCount]string{
	"robustBufferAccess",
	"fullDrawIndexUint32",
	"imageCubeArray",
	"independentBlend",
	"geometryShader",
	"tessellationShader",
	"sampleRateShading",
	"dualSrcBlend",
	"logicOp",
	"multiDrawIndirect",
	"drawIndirectFirstInstance",
	"depthClamp",
	"depthBiasClamp",
	"fillModeNonSolid",
	"depthBounds",
	"wideLines",
	"largePoints",
	"alphaToOne",
	"multiViewport",
	"samplerAnisotropy",
	"textureCompressionETC2",
	"textureCompressionASTC_LDR",
	"textureCompressionBC",
	"occlusionQueryPrecise",
	"pipelineStatisticsQuery",
	"vertexPipelineStoresAndAtomics",
	"fragmentStoresAndAtomics",
	"shaderTessellationAndGeometryPointSize",
	"shaderImageGatherExtended",
	"shaderStorageImageExtendedFormats",
	"shaderStorageImageMultisample",
	"shaderStorageImageReadWithoutFormat",
	"shaderStorageImageWriteWithoutFormat",
	"shaderUniformBufferArrayDynamicIndexing",
	"shaderSampledImageArrayDynamicIndexing",
	"shaderStorageBufferArrayDynamicIndexing",
	"shaderStorageImageArrayDynamicIndexing",
	"shaderClipDistance",
	"shaderCullDistance",
	"shaderFloat64",
	"shaderInt64",
	"shaderInt16",
	"shaderResourceResidency",
	"shaderResourceMinLod",
	"sparseBinding",
	"sparseResidencyBuffer",
	"sparseResidencyImage2D",
	"sparseResidencyImage3D",
	"sparseResidency2Samples",
	"sparseResidency4Samples",
	"sparseResidency8Samples",
	"sparseResidency16Samples",
	"sparseResidencyAliased",
	"variableMultisampleRate",
	"inheritedQueries",
}

var featuresByName = func() map[string]Feature {
	m := make(map[string]Feature, featureCount)
	for f, name := range featureNames {
		m[name] = Feature(f)
	}
	return m
}()

// Name returns the VkPhysicalDeviceFeatures member name.
func (f Feature) Name() string {
	if f < featureCount {
		return featureNames[f]
	}
	return ""
}

func (f Feature) String() string {
	return f.Name()
}

// ParseFeature looks a feature up by its VkPhysicalDeviceFeatures member name.
func ParseFeature(name string) (Feature, bool) {
	f, ok := featuresByName[name]
	return f, ok
}

// Features is a set of Feature.
// The zero value is the empty set.
type Features struct {
	bits uint64
}

// FeaturesOf builds a set from the given features.
func FeaturesOf(features ...Feature) Features {
	var s Features
	for _, f := range features {
		s.Insert(f)
	}
	return s
}

// Contains reports whether f is in the set.
func (s Features) Contains(f Feature) bool {
	return f < featureCount && s.bits&(1<<f) != 0
}

// ContainsAll reports whether every feature of other is in the set.
func (s Features) ContainsAll(other Features) bool {
	return s.bits&other.bits == other.bits
}

// Insert adds f to the set.
func (s *Features) Insert(f Feature) {
	if f < featureCount {
		s.bits |= 1 << f
	}
}

// Union returns the features in either set.
func (s Features) Union(other Features) Features {
	return Features{bits: s.bits | other.bits}
}

// Difference returns the features of s missing from other.
func (s Features) Difference(other Features) Features {
	return Features{bits: s.bits &^ other.bits}
}

// Len returns the number of features in the set.
func (s Features) Len() int {
	return bits.OnesCount64(s.bits)
}

// Slice lists the features in declaration order.
func (s Features) Slice() []Feature {
	list := make([]Feature, 0, s.Len())
	for f := Feature(0); f < featureCount; f++ {
		if s.Contains(f) {
			list = append(list, f)
		}
	}
	return list
}

// Names lists the feature names in declaration order.
func (s Features) Names() []string {
	names := make([]string, 0, s.Len())
	for _, f := range s.Slice() {
		names = append(names, f.Name())
	}
	return names
}

// MarshalJSON encodes the set as a list of names.
func (s Features) MarshalJSON() ([]byte, error) {
	return marshalNames(s.Names())
}

// FeaturesFrom translates the raw driver feature record. Names koru does
// not know are returned separately, sorted, so the caller can report them.
func FeaturesFrom(raw driver.Features) (Features, []string) {
	var (
		s       Features
		unknown []string
	)
	for name, supported := range raw {
		f, ok := ParseFeature(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if supported {
			s.Insert(f)
		}
	}
	sort.Strings(unknown)
	return s, unknown
}
