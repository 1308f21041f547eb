// Package octahedral projects cube cookies onto a square 2D texture with the
// octahedral mapping, so point-light cookies can live in the 2D atlas.
package octahedral

import (
	"fmt"
	"structs"

	"honnef.co/go/safeish"

	"github.com/gogpu/cookie/internal/shaders"
	"github.com/gogpu/cookie/render"
)

// WorkgroupSize is the edge of the square workgroup of the projection
// kernel.
const WorkgroupSize = 8

// params matches ProjectParams in cube_to_octahedral.wgsl.
type params struct {
	_ structs.HostLayout

	Size    [2]float32
	InvSize [2]float32
}

// GroupCount returns the workgroup count per axis covering size texels.
func GroupCount(size int) uint32 {
	//nolint:gosec // G115: size is positive
	return uint32(render.CeilDiv(size, WorkgroupSize))
}

// Projector records cube-to-octahedral projections.
type Projector struct {
	device  *render.Device
	kernels *shaders.Set
}

// NewProjector creates a projector allocating its outputs on device.
func NewProjector(device *render.Device, kernels *shaders.Set) *Projector {
	return &Projector{device: device, kernels: kernels}
}

// Project allocates a size x size storage texture and records one dispatch
// filling it from cube. The caller owns the returned texture and must hand
// it to a deletion queue once the recorded work may still use it.
func (p *Projector) Project(rec *render.Recording, cube *render.Texture, size int) (*render.Texture, error) {
	if _, err := p.kernels.Module(shaders.CubeToOctahedral); err != nil {
		return nil, err
	}
	if cube == nil || cube.Dimension() != render.DimensionCube {
		return nil, fmt.Errorf("octahedral: %w: source is not a cube", render.ErrInvalidCube)
	}
	if size <= 0 {
		return nil, fmt.Errorf("octahedral: %w: size %d", render.ErrInvalidDimensions, size)
	}

	out, err := p.device.CreateTexture(render.TextureDescriptor{
		Label:  "cookie octahedral projection",
		Width:  size,
		Height: size,
		// The kernel writes rgba16float regardless of the atlas format.
		Format: render.FormatR16G16B16A16,
		Usage:  render.StorageUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("octahedral: %w", err)
	}

	n := GroupCount(size)
	s := float32(size)
	rec.Dispatch(shaders.CubeToOctahedral, [3]uint32{n, n, 1}, []*render.Texture{cube}, out,
		safeish.AsBytes(&params{Size: [2]float32{s, s}, InvSize: [2]float32{1 / s, 1 / s}}))
	return out, nil
}
