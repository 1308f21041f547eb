package cookie

import (
	"fmt"

	"github.com/gogpu/cookie/atlas"
	"github.com/gogpu/cookie/render"
)

// Pixel formats of the atlas.
const (
	FormatR8G8B8A8     = render.FormatR8G8B8A8
	FormatR16G16B16A16 = render.FormatR16G16B16A16
)

// Default configuration values.
const (
	DefaultAtlasResolution = 2048
	DefaultLastValidMip    = 8
	DefaultCubeResolution  = 128
	DefaultPadding         = atlas.DefaultPadding
	DefaultFilterRadius    = 1.0
	DefaultFramesInFlight  = render.DefaultFramesInFlight
	DefaultMaxMemoryMB     = render.DefaultMaxMemoryMB

	// MinAtlasResolution is the smallest resolution the budget clamp
	// shrinks the atlas to.
	MinAtlasResolution = 128

	// NoPadding disables the border kept around atlas entries.
	NoPadding = -1
)

// Config holds the settings of a Manager. It is read once by NewManager.
//
// Zero values select the defaults.
type Config struct {
	// AtlasResolution is the width and height of the atlas. It must be a
	// power of two. The atlas is halved until the atlas and the two filter
	// scratch surfaces fit MaxMemoryMB.
	AtlasResolution int

	// Format is the pixel format of the atlas and the derived textures.
	Format render.Format

	// LastValidMip is the last mip level of the atlas that holds filtered
	// content. The atlas has LastValidMip+1 mips.
	LastValidMip int

	// CubeResolution is the minimum octahedral resolution of point-light
	// cookies. A cube of face size s takes 2*max(CubeResolution, s) texels
	// per axis.
	CubeResolution int

	// Padding is the border, in texels, kept around atlas entries. Use
	// NoPadding to disable it.
	Padding int

	// FilterRadius is the Gaussian sigma, in texels, of one filter pass.
	FilterRadius float64

	// FramesInFlight is how many frames the GPU may lag behind recording
	// before transient textures are destroyed.
	FramesInFlight int

	// MaxMemoryMB is the texture memory budget of the manager.
	MaxMemoryMB int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		AtlasResolution: DefaultAtlasResolution,
		Format:          FormatR8G8B8A8,
		LastValidMip:    DefaultLastValidMip,
		CubeResolution:  DefaultCubeResolution,
		Padding:         DefaultPadding,
		FilterRadius:    DefaultFilterRadius,
		FramesInFlight:  DefaultFramesInFlight,
		MaxMemoryMB:     DefaultMaxMemoryMB,
	}
}

// normalize applies the defaults and validates c.
func (c Config) normalize() (Config, error) {
	d := DefaultConfig()
	if c.AtlasResolution <= 0 {
		c.AtlasResolution = d.AtlasResolution
	}
	if c.LastValidMip <= 0 {
		c.LastValidMip = d.LastValidMip
	}
	if c.CubeResolution <= 0 {
		c.CubeResolution = d.CubeResolution
	}
	switch {
	case c.Padding == 0:
		c.Padding = d.Padding
	case c.Padding < 0:
		c.Padding = 0
	}
	if c.FilterRadius <= 0 {
		c.FilterRadius = d.FilterRadius
	}
	if c.FramesInFlight <= 0 {
		c.FramesInFlight = d.FramesInFlight
	}
	if c.MaxMemoryMB <= 0 {
		c.MaxMemoryMB = d.MaxMemoryMB
	}

	if !render.IsPowerOfTwo(c.AtlasResolution) {
		return c, fmt.Errorf("%w: atlas resolution %d is not a power of two", ErrInvalidConfig, c.AtlasResolution)
	}
	if !c.Format.Valid() {
		return c, fmt.Errorf("%w: format %s", ErrInvalidConfig, c.Format)
	}
	if c.MaxMemoryMB < render.MinMemoryMB {
		return c, fmt.Errorf("%w: memory budget %d MB below %d MB", ErrInvalidConfig, c.MaxMemoryMB, render.MinMemoryMB)
	}
	return c, nil
}

// atlasMips returns the mip count of the atlas.
func (c Config) atlasMips() int {
	return min(c.LastValidMip+1, render.MipCount(c.AtlasResolution, c.AtlasResolution))
}

// footprintBytes returns the memory held for the whole lifetime of a
// manager: the atlas and the two filter scratch surfaces.
func (c Config) footprintBytes() uint64 {
	atlasBytes := render.TextureDescriptor{
		Width:         c.AtlasResolution,
		Height:        c.AtlasResolution,
		MipLevelCount: c.atlasMips(),
		Format:        c.Format,
	}.SizeBytes()
	scratchBytes := render.TextureDescriptor{
		Width:         c.AtlasResolution,
		Height:        c.AtlasResolution,
		MipLevelCount: render.MipCount(c.AtlasResolution, c.AtlasResolution),
		Format:        c.Format,
	}.SizeBytes()
	return atlasBytes + 2*scratchBytes
}

// clampToBudget halves the atlas until its footprint fits the budget. It
// reports whether the resolution changed.
func (c *Config) clampToBudget() bool {
	//nolint:gosec // G115: MaxMemoryMB is validated positive
	budget := uint64(c.MaxMemoryMB) * 1024 * 1024
	clamped := false
	for c.AtlasResolution > MinAtlasResolution && c.footprintBytes() > budget {
		c.AtlasResolution /= 2
		clamped = true
	}
	return clamped
}
