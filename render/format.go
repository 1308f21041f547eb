package render

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Format is the pixel format preset of a cookie surface.
//
// Two presets are supported: an 8-bit format that halves the memory of the
// atlas, and a 16-bit float format that keeps the precision of HDR cookies
// and filtered mip chains.
type Format uint8

const (
	// FormatR8G8B8A8 stores 8 bits per channel, normalized.
	FormatR8G8B8A8 Format = iota

	// FormatR16G16B16A16 stores 16-bit float channels.
	FormatR16G16B16A16
)

// String returns a human-readable name for the format.
func (f Format) String() string {
	switch f {
	case FormatR8G8B8A8:
		return "R8G8B8A8"
	case FormatR16G16B16A16:
		return "R16G16B16A16"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// BytesPerPixel returns the number of bytes per pixel for the format.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatR16G16B16A16:
		return 8
	default:
		return 4
	}
}

// ToWGPUFormat converts the preset to its gputypes.TextureFormat.
func (f Format) ToWGPUFormat() gputypes.TextureFormat {
	switch f {
	case FormatR16G16B16A16:
		return gputypes.TextureFormatRGBA16Float
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}

// Valid reports whether f is one of the supported presets.
func (f Format) Valid() bool {
	return f == FormatR8G8B8A8 || f == FormatR16G16B16A16
}
