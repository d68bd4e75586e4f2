// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"fmt"
	"math"
)

// Names of extensions and layers the negotiation cares about.
const (
	SwapchainExtension              = "VK_KHR_swapchain"
	PortabilitySubsetExtension      = "VK_KHR_portability_subset"
	PortabilityEnumerationExtension = "VK_KHR_portability_enumeration"
	DebugReportExtension            = "VK_EXT_debug_report"
	ValidationLayer                 = "VK_LAYER_KHRONOS_validation"
)

// RequiredDeviceExtensions must be reported by every suitable device.
var RequiredDeviceExtensions = []string{SwapchainExtension}

// Version is a major.minor.patch triple.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// DeviceType identifies the kind of physical device.
// Values follow VkPhysicalDeviceType.
type DeviceType int32

// Device types.
const (
	DeviceTypeOther DeviceType = iota
	DeviceTypeIntegratedGPU
	DeviceTypeDiscreteGPU
	DeviceTypeVirtualGPU
	DeviceTypeCPU
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeIntegratedGPU:
		return "integrated"
	case DeviceTypeDiscreteGPU:
		return "discrete"
	case DeviceTypeVirtualGPU:
		return "virtual"
	case DeviceTypeCPU:
		return "cpu"
	}
	return "other"
}

// MarshalText implements encoding.TextMarshaler
func (t DeviceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// QueueFlags is the capability bit set of a queue family.
// Bits follow VkQueueFlagBits.
type QueueFlags uint32

// Queue capability bits.
const (
	QueueGraphics QueueFlags = 1 << iota
	QueueCompute
	QueueTransfer
	QueueSparseBinding
)

// Has reports whether any of the bits in f are set.
func (q QueueFlags) Has(f QueueFlags) bool {
	return q&f != 0
}

func (q QueueFlags) String() string {
	s := ""
	for _, b := range []struct {
		flag QueueFlags
		name string
	}{
		{QueueGraphics, "graphics"},
		{QueueCompute, "compute"},
		{QueueTransfer, "transfer"},
		{QueueSparseBinding, "sparse"},
	} {
		if q&b.flag == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += b.name
	}
	if s == "" {
		return "none"
	}
	return s
}

// MarshalText implements encoding.TextMarshaler
func (q QueueFlags) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// Format is a pixel format. Values follow VkFormat.
type Format int32

// Formats the negotiation distinguishes.
const (
	FormatUndefined     Format = 0
	FormatR8G8B8A8Unorm Format = 37
	FormatR8G8B8A8Srgb  Format = 43
	FormatB8G8R8A8Unorm Format = 44
	FormatB8G8R8A8Srgb  Format = 50
)

// Is8BitRGBA reports whether f is an 8 bits per channel RGBA or BGRA format.
func (f Format) Is8BitRGBA() bool {
	switch f {
	case FormatR8G8B8A8Unorm, FormatR8G8B8A8Srgb, FormatB8G8R8A8Unorm, FormatB8G8R8A8Srgb:
		return true
	}
	return false
}

// ColorSpace is a presentation color space. Values follow VkColorSpaceKHR.
type ColorSpace int32

// ColorSpaceSRGBNonlinear is the only color space every surface supports.
const ColorSpaceSRGBNonlinear ColorSpace = 0

// SurfaceFormat pairs a format with the color space it is presented in.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// PresentMode is the policy for displaying queued images.
// Values follow VkPresentModeKHR.
type PresentMode int32

// Present modes.
const (
	PresentModeImmediate PresentMode = iota
	PresentModeMailbox
	PresentModeFIFO
	PresentModeFIFORelaxed
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeImmediate:
		return "immediate"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeFIFO:
		return "fifo"
	case PresentModeFIFORelaxed:
		return "fifo-relaxed"
	}
	return fmt.Sprintf("present-mode(%d)", int32(m))
}

// UndefinedExtent is the current extent value a surface reports when the
// swap chain decides the extent.
const UndefinedExtent = math.MaxUint32

// Extent2D is a size in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// SurfaceTransform is a VkSurfaceTransformFlagBitsKHR value.
type SurfaceTransform uint32

// SurfaceTransformIdentity leaves images as they are.
const SurfaceTransformIdentity SurfaceTransform = 1

// CompositeAlpha is a VkCompositeAlphaFlagBitsKHR value.
type CompositeAlpha uint32

// Composite alpha modes.
const (
	CompositeAlphaOpaque CompositeAlpha = 1 << iota
	CompositeAlphaPreMultiplied
	CompositeAlphaPostMultiplied
	CompositeAlphaInherit
)

// SurfaceCapabilities are the limits a device has for a surface.
type SurfaceCapabilities struct {
	MinImageCount uint32
	// MaxImageCount of zero means there is no upper bound.
	MaxImageCount uint32

	CurrentExtent  Extent2D
	MinImageExtent Extent2D
	MaxImageExtent Extent2D

	CurrentTransform        SurfaceTransform
	SupportedCompositeAlpha CompositeAlpha
}
