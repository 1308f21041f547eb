package filter

import (
	"errors"
	"fmt"
	"structs"

	"github.com/go-gl/mathgl/mgl32"
	"honnef.co/go/safeish"

	"github.com/gogpu/cookie/internal/shaders"
	"github.com/gogpu/cookie/render"
)

var (
	// ErrKernelUnavailable is returned when a filter kernel is missing or
	// failed to compile.
	ErrKernelUnavailable = shaders.ErrKernelUnavailable

	// ErrSourceTooLarge is returned for sources that do not fit the scratch
	// surfaces.
	ErrSourceTooLarge = errors.New("filter: source larger than scratch surfaces")
)

// passParams matches FilterParams in filter.wgsl.
type passParams struct {
	_ structs.HostLayout

	TexelSize [2]float32
	UVLimit   [2]float32
	UVScale   [2]float32
	Direction [2]float32
	Weights   [MaxTaps]float32
	SourceMip float32
	Taps      float32
	_         [2]float32
}

// Pipeline records the separable mip-chain filter. It owns two scratch
// surfaces the size of the atlas, allocated on the first Filter call.
//
// Pipeline is not safe for concurrent use.
type Pipeline struct {
	device  *render.Device
	kernels *shaders.Set

	width  int
	height int
	format render.Format

	weights [MaxTaps]float32
	taps    int

	scratchA *render.Texture
	scratchB *render.Texture
}

// New creates a pipeline whose scratch surfaces are width x height.
func New(device *render.Device, width, height int, format render.Format, kernels *shaders.Set, radius float64) *Pipeline {
	weights, taps := TapWeights(radius)
	return &Pipeline{
		device:  device,
		kernels: kernels,
		width:   width,
		height:  height,
		format:  format,
		weights: weights,
		taps:    taps,
	}
}

// Levels returns the mip count of the chain built from a width x height
// source. The chain matches the power-of-two atlas slot the source is
// blitted into: 1 + log2 of max(width, height) rounded up to a power of two.
func Levels(width, height int) int {
	return render.MipCount(render.NextPowerOfTwo(width), render.NextPowerOfTwo(height))
}

// Viewports returns the viewport of every level of the chain built from a
// width x height source.
func Viewports(width, height int) []render.Viewport {
	n := Levels(width, height)
	vps := make([]render.Viewport, n)
	for k := range n {
		vps[k] = render.Viewport{Width: render.MipSize(width, k), Height: render.MipSize(height, k)}
	}
	return vps
}

// Filter records the passes that build the blurred mip chain of the
// width x height top-left region of src. The result is the first scratch
// surface: the chain occupies the same top-left UV region at every level.
// The pipeline keeps ownership of the result.
func (p *Pipeline) Filter(rec *render.Recording, src *render.Texture, width, height int) (*render.Texture, error) {
	if err := p.kernels.Available(shaders.Blit, shaders.FilterHorizontal, shaders.FilterVertical); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("filter: %w: %dx%d", render.ErrInvalidDimensions, width, height)
	}
	if width > p.width || height > p.height {
		return nil, fmt.Errorf("%w: %dx%d > %dx%d", ErrSourceTooLarge, width, height, p.width, p.height)
	}
	if err := p.ensureScratch(); err != nil {
		return nil, err
	}

	a, b := p.scratchA, p.scratchB
	rec.Blit(src, 0, mgl32.Vec4{1, 1, 0, 0}, a, 0, p.region(width, height))

	curW, curH := width, height
	for m := 1; m < Levels(width, height); m++ {
		newW := max(1, curW/2)
		newH := max(1, curH/2)

		rec.Draw(shaders.FilterHorizontal, a, m-1, b, m-1,
			render.Viewport{Width: newW, Height: curH},
			p.pass(m-1, curW, curH, mgl32.Vec2{1, 0}))
		rec.Draw(shaders.FilterVertical, b, m-1, a, m,
			render.Viewport{Width: newW, Height: newH},
			p.pass(m-1, newW, curH, mgl32.Vec2{0, 1}))

		curW, curH = newW, newH
	}
	return a, nil
}

// region returns the scale/bias of the top-left width x height region of a
// scratch surface.
func (p *Pipeline) region(width, height int) mgl32.Vec4 {
	return mgl32.Vec4{
		float32(width) / float32(p.width),
		float32(height) / float32(p.height),
		0, 0,
	}
}

// pass packs the parameters of one pass reading a contentW x contentH
// region of mip level of a scratch surface.
func (p *Pipeline) pass(level, contentW, contentH int, dir mgl32.Vec2) []byte {
	backW := float32(render.MipSize(p.width, level))
	backH := float32(render.MipSize(p.height, level))

	params := &passParams{
		TexelSize: [2]float32{1 / backW, 1 / backH},
		UVLimit:   [2]float32{(float32(contentW) - 0.5) / backW, (float32(contentH) - 0.5) / backH},
		UVScale:   [2]float32{float32(contentW) / backW, float32(contentH) / backH},
		Direction: dir,
		Weights:   p.weights,
		SourceMip: float32(level),
		Taps:      float32(p.taps),
	}
	return safeish.AsBytes(params)
}

func (p *Pipeline) ensureScratch() error {
	if p.scratchA != nil {
		return nil
	}
	desc := render.TextureDescriptor{
		Width:         p.width,
		Height:        p.height,
		MipLevelCount: render.MipCount(p.width, p.height),
		Format:        p.format,
		Usage:         render.TargetUsage,
	}

	desc.Label = "cookie filter scratch A"
	a, err := p.device.CreateTexture(desc)
	if err != nil {
		return fmt.Errorf("filter: allocate scratch: %w", err)
	}
	desc.Label = "cookie filter scratch B"
	b, err := p.device.CreateTexture(desc)
	if err != nil {
		a.Release()
		return fmt.Errorf("filter: allocate scratch: %w", err)
	}
	p.scratchA, p.scratchB = a, b
	return nil
}

// Scratch returns the scratch surfaces, nil before the first Filter call.
func (p *Pipeline) Scratch() (a, b *render.Texture) {
	return p.scratchA, p.scratchB
}

// Release destroys the scratch surfaces. The caller must have waited for
// the GPU to finish with them.
func (p *Pipeline) Release() {
	p.scratchA.Release()
	p.scratchB.Release()
	p.scratchA, p.scratchB = nil, nil
}
