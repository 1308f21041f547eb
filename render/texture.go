package render

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// Texture-related errors.
var (
	// ErrInvalidDimensions is returned when a texture is described with a
	// non-positive width, height or mip count.
	ErrInvalidDimensions = errors.New("render: invalid texture dimensions")

	// ErrInvalidCube is returned when a cube texture has non-square faces.
	ErrInvalidCube = errors.New("render: cube texture faces must be square")
)

// TextureID identifies a texture for the lifetime of the process.
// IDs are never reused.
type TextureID uint64

var textureIDs atomic.Uint64

func nextTextureID() TextureID {
	return TextureID(textureIDs.Add(1))
}

// Dimension is the shape of a texture.
type Dimension uint8

const (
	// Dimension2D is a regular 2D texture.
	Dimension2D Dimension = iota

	// DimensionCube is a cube map of six square faces.
	DimensionCube
)

// String returns a human-readable name for the dimension.
func (d Dimension) String() string {
	switch d {
	case Dimension2D:
		return "2D"
	case DimensionCube:
		return "Cube"
	default:
		return fmt.Sprintf("Unknown(%d)", d)
	}
}

// Default usage sets.
const (
	// SampledUsage is the usage of host textures that are only read.
	SampledUsage = gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc

	// TargetUsage is the usage of surfaces written by raster passes and blits.
	TargetUsage = gputypes.TextureUsageTextureBinding | gputypes.TextureUsageRenderAttachment |
		gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst

	// StorageUsage is the usage of surfaces written by compute dispatches.
	StorageUsage = gputypes.TextureUsageTextureBinding | gputypes.TextureUsageStorageBinding |
		gputypes.TextureUsageCopySrc
)

// TextureDescriptor describes parameters for creating a texture.
type TextureDescriptor struct {
	// Label is an optional debug label for the texture.
	Label string

	// Width is the texture width in pixels (face width for cubes).
	Width int

	// Height is the texture height in pixels (face height for cubes).
	Height int

	// MipLevelCount is the number of mipmap levels. Zero means 1.
	MipLevelCount int

	// Dimension is the texture shape.
	Dimension Dimension

	// Format is the pixel format preset.
	Format Format

	// Usage specifies how the texture will be used. Zero means SampledUsage.
	Usage gputypes.TextureUsage
}

func (d TextureDescriptor) normalize() (TextureDescriptor, error) {
	if d.MipLevelCount == 0 {
		d.MipLevelCount = 1
	}
	if d.Usage == 0 {
		d.Usage = SampledUsage
	}
	if d.Width <= 0 || d.Height <= 0 || d.MipLevelCount < 0 {
		return d, fmt.Errorf("%w: %dx%d, %d mips", ErrInvalidDimensions, d.Width, d.Height, d.MipLevelCount)
	}
	if d.MipLevelCount > MipCount(d.Width, d.Height) {
		d.MipLevelCount = MipCount(d.Width, d.Height)
	}
	if d.Dimension == DimensionCube && d.Width != d.Height {
		return d, fmt.Errorf("%w: %dx%d", ErrInvalidCube, d.Width, d.Height)
	}
	return d, nil
}

// Texture is a handle to a GPU texture.
//
// Textures either come from the host (NewTexture) or are allocated by a
// Device. Only device-allocated textures count against the memory budget.
// The content version starts at 1 and is bumped by MarkUpdated whenever the
// host changes the pixels; caches compare versions to detect stale copies.
type Texture struct {
	id    TextureID
	label string

	width  int
	height int
	mips   int
	dim    Dimension
	format Format
	usage  gputypes.TextureUsage

	version  atomic.Uint64
	released atomic.Bool
	device   *Device
}

// NewTexture creates a host-owned texture handle.
func NewTexture(desc TextureDescriptor) (*Texture, error) {
	desc, err := desc.normalize()
	if err != nil {
		return nil, err
	}
	return newTexture(desc, nil), nil
}

func newTexture(desc TextureDescriptor, device *Device) *Texture {
	t := &Texture{
		id:     nextTextureID(),
		label:  desc.Label,
		width:  desc.Width,
		height: desc.Height,
		mips:   desc.MipLevelCount,
		dim:    desc.Dimension,
		format: desc.Format,
		usage:  desc.Usage,
		device: device,
	}
	t.version.Store(1)
	return t
}

// ID returns the process-unique texture ID.
func (t *Texture) ID() TextureID { return t.id }

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// Width returns the width in pixels.
func (t *Texture) Width() int { return t.width }

// Height returns the height in pixels.
func (t *Texture) Height() int { return t.height }

// MipLevelCount returns the number of mip levels.
func (t *Texture) MipLevelCount() int { return t.mips }

// Dimension returns the texture shape.
func (t *Texture) Dimension() Dimension { return t.dim }

// Format returns the pixel format preset.
func (t *Texture) Format() Format { return t.format }

// Usage returns the usage flags.
func (t *Texture) Usage() gputypes.TextureUsage { return t.usage }

// Area returns width * height of mip 0.
func (t *Texture) Area() int { return t.width * t.height }

// MipSize returns the size of a mip level, floored at 1 on each axis.
func (t *Texture) MipSize(level int) (width, height int) {
	return MipSize(t.width, level), MipSize(t.height, level)
}

// Version returns the content version.
func (t *Texture) Version() uint64 { return t.version.Load() }

// MarkUpdated bumps the content version after the pixels changed.
func (t *Texture) MarkUpdated() { t.version.Add(1) }

// IsReleased reports whether the texture has been destroyed.
func (t *Texture) IsReleased() bool { return t.released.Load() }

// SizeBytes returns the memory footprint including the mip chain and all
// cube faces.
func (t *Texture) SizeBytes() uint64 {
	return sizeBytes(t.width, t.height, t.mips, t.dim, t.format)
}

// SizeBytes returns the memory a texture created from d would use, or 0
// for an invalid descriptor.
func (d TextureDescriptor) SizeBytes() uint64 {
	d, err := d.normalize()
	if err != nil {
		return 0
	}
	return sizeBytes(d.Width, d.Height, d.MipLevelCount, d.Dimension, d.Format)
}

func sizeBytes(width, height, mips int, dim Dimension, format Format) uint64 {
	var total uint64
	for level := range mips {
		//nolint:gosec // G115: sizes are validated positive
		total += uint64(MipSize(width, level) * MipSize(height, level) * format.BytesPerPixel())
	}
	if dim == DimensionCube {
		total *= 6
	}
	return total
}

// Release marks a host-owned texture as released. Device-allocated textures
// are returned to their device. Calling Release more than once is a no-op.
func (t *Texture) Release() {
	if t == nil {
		return
	}
	if t.device != nil {
		t.device.Destroy(t)
		return
	}
	t.released.Store(true)
}

// String returns a short description of the texture.
func (t *Texture) String() string {
	return fmt.Sprintf("Texture(%d %q %s %dx%d mips=%d %s)",
		t.id, t.label, t.dim, t.width, t.height, t.mips, t.format)
}
