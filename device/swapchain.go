// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"math"

	"github.com/cockroachdb/errors"
)

// DefaultSurfaceFormat is used when the surface has no format preference.
var DefaultSurfaceFormat = SurfaceFormat{
	Format:     FormatR8G8B8A8Srgb,
	ColorSpace: ColorSpaceSRGBNonlinear,
}

// SwapchainProperties is what a device supports for presenting to a surface.
type SwapchainProperties struct {
	Capabilities SurfaceCapabilities
	Formats      []SurfaceFormat
	PresentModes []PresentMode
}

// IsValid reports whether a swap chain can be built from the properties.
func (p SwapchainProperties) IsValid() bool {
	return len(p.Formats) > 0 && len(p.PresentModes) > 0
}

// SwapchainConfig is the concrete configuration chosen for a swap chain.
type SwapchainConfig struct {
	SurfaceFormat  SurfaceFormat
	PresentMode    PresentMode
	Extent         Extent2D
	ImageCount     uint32
	PreTransform   SurfaceTransform
	CompositeAlpha CompositeAlpha
}

// SwapchainNegotiator reads surface support and picks a swap chain
// configuration from it.
type SwapchainNegotiator struct {
	q SurfaceQuerier
}

// NewSwapchainNegotiator creates a negotiator over q.
func NewSwapchainNegotiator(q SurfaceQuerier) *SwapchainNegotiator {
	return &SwapchainNegotiator{q: q}
}

// Query reads the capabilities, formats and present modes pd has for s.
func (n *SwapchainNegotiator) Query(pd PhysicalDevice, s Surface) (SwapchainProperties, error) {
	var (
		props SwapchainProperties
		err   error
	)

	if props.Capabilities, err = n.q.SurfaceCapabilities(pd, s); err != nil {
		return props, errors.Wrap(err, "surface capabilities")
	}
	if props.Formats, err = n.q.SurfaceFormats(pd, s); err != nil {
		return props, errors.Wrap(err, "surface formats")
	}
	if props.PresentModes, err = n.q.SurfacePresentModes(pd, s); err != nil {
		return props, errors.Wrap(err, "surface present modes")
	}
	return props, nil
}

// Configure picks a configuration from props. drawableWidth and
// drawableHeight are the window's current size in pixels and are only
// used when the surface leaves the extent to the swap chain.
func (n *SwapchainNegotiator) Configure(props SwapchainProperties, drawableWidth, drawableHeight int) (SwapchainConfig, error) {
	if !props.IsValid() {
		return SwapchainConfig{}, unsuitable("surface reports %d formats and %d present modes",
			len(props.Formats), len(props.PresentModes))
	}

	caps := props.Capabilities
	return SwapchainConfig{
		SurfaceFormat:  ChooseFormat(props.Formats),
		PresentMode:    ChoosePresentMode(props.PresentModes),
		Extent:         ChooseExtent(caps, drawableWidth, drawableHeight),
		ImageCount:     ChooseImageCount(caps),
		PreTransform:   caps.CurrentTransform,
		CompositeAlpha: ChooseCompositeAlpha(caps.SupportedCompositeAlpha),
	}, nil
}

// ChooseFormat returns the surface format to use. A single undefined entry
// means any format is acceptable and yields DefaultSurfaceFormat. Otherwise
// the first 8-bit RGBA or BGRA format in the sRGB non-linear color space
// wins, falling back to the first entry. formats must not be empty.
func ChooseFormat(formats []SurfaceFormat) SurfaceFormat {
	if len(formats) == 1 && formats[0].Format == FormatUndefined {
		return DefaultSurfaceFormat
	}

	for _, f := range formats {
		if f.Format.Is8BitRGBA() && f.ColorSpace == ColorSpaceSRGBNonlinear {
			return f
		}
	}
	return formats[0]
}

// ChoosePresentMode prefers mailbox and otherwise falls back to FIFO,
// which every surface supports.
func ChoosePresentMode(modes []PresentMode) PresentMode {
	for _, m := range modes {
		if m == PresentModeMailbox {
			return m
		}
	}
	return PresentModeFIFO
}

// ChooseExtent returns the surface's current extent, or the drawable size
// clamped into the supported range when the surface leaves it undefined.
func ChooseExtent(caps SurfaceCapabilities, drawableWidth, drawableHeight int) Extent2D {
	if caps.CurrentExtent.Width != UndefinedExtent {
		return caps.CurrentExtent
	}

	return Extent2D{
		Width:  clamp(drawableWidth, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(drawableHeight, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func clamp(v int, min, max uint32) uint32 {
	if v < 0 {
		v = 0
	}
	u := uint32(v)
	if uint64(v) > uint64(max) {
		u = max
	}
	if u < min {
		u = min
	}
	return u
}

// ChooseImageCount asks for one image more than the minimum, limited by
// the maximum when the surface has one. The count saturates at MaxUint32.
func ChooseImageCount(caps SurfaceCapabilities) uint32 {
	count := caps.MinImageCount
	if count < math.MaxUint32 {
		count++
	}
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

var compositeAlphaPreference = []CompositeAlpha{
	CompositeAlphaOpaque,
	CompositeAlphaPreMultiplied,
	CompositeAlphaPostMultiplied,
	CompositeAlphaInherit,
}

// ChooseCompositeAlpha returns the first supported mode in the order
// opaque, pre-multiplied, post-multiplied, inherit. Opaque is returned
// when the surface reports none of them.
func ChooseCompositeAlpha(supported CompositeAlpha) CompositeAlpha {
	for _, a := range compositeAlphaPreference {
		if supported&a != 0 {
			return a
		}
	}
	return CompositeAlphaOpaque
}
