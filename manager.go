package cookie

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/cookie/atlas"
	"github.com/gogpu/cookie/internal/derived"
	"github.com/gogpu/cookie/internal/filter"
	"github.com/gogpu/cookie/internal/octahedral"
	"github.com/gogpu/cookie/internal/shaders"
	"github.com/gogpu/cookie/render"
)

// Atlas is the texture atlas the manager caches cookies in. *atlas.Atlas
// implements it.
type Atlas interface {
	ReserveSpace(id atlas.ID, width, height int) bool
	ReserveTexture(tex *render.Texture) bool
	RelayoutEntries() bool
	Contains(id atlas.ID) bool
	IsCached(id atlas.ID) (mgl32.Vec4, bool)
	NeedsUpdate(id atlas.ID, needMips bool, sources ...*render.Texture) bool
	BlitTexture(rec *render.Recording, scaleBias mgl32.Vec4, src *render.Texture, srcScaleOffset mgl32.Vec4, blitMips bool, id atlas.ID)
	BlitOctahedralTexture(rec *render.Recording, scaleBias mgl32.Vec4, src *render.Texture, srcScaleOffset mgl32.Vec4, blitMips bool, id atlas.ID)
	ResetRequestedTexture()
	ResetAllocator()
	ClearTarget(rec *render.Recording)
	Texture() *render.Texture
	Release()
}

var _ Atlas = (*atlas.Atlas)(nil)

// Option configures a Manager during creation.
type Option func(*options)

type options struct {
	atlas   Atlas
	compile shaders.Compiler
}

// WithAtlas makes the manager use a caller-owned atlas instead of
// allocating one. The filter surfaces are sized to its texture. The caller
// releases it after the manager.
func WithAtlas(a Atlas) Option {
	return func(o *options) {
		o.atlas = a
	}
}

// WithShaderCompiler replaces the WGSL compiler used for the filter and
// projection kernels. By default kernels are compiled with naga.
func WithShaderCompiler(compile func(wgsl string) ([]byte, error)) Option {
	return func(o *options) {
		o.compile = compile
	}
}

// Manager caches light cookies in an atlas.
//
// Each frame the caller reserves space for every cookie the frame uses,
// lets the manager repack the atlas if needed, then fetches the atlas
// coordinates of each cookie:
//
//	m.NewFrame()
//	for _, l := range lights {
//		m.ReserveSpace(l.Cookie)
//	}
//	m.LayoutIfNeeded()
//	for _, l := range lights {
//		res := m.Fetch(rec, l.Cookie)
//		...
//	}
//
// Fetch records the GPU work needed to refresh stale entries into rec.
// Nothing blocks on the GPU except Release.
//
// Manager is not safe for concurrent use.
type Manager struct {
	cfg Config

	device    *render.Device
	deletions *render.DeletionQueue
	atlas     Atlas
	ownsAtlas bool
	derived   *derived.Manager

	atlasWidth  int
	atlasHeight int

	frame    frameState
	stats    Stats
	released bool
}

// NewManager creates a Manager on the GPU device behind handle. A nil
// handle records work without a GPU, which is enough for tests and tools.
func NewManager(handle render.DeviceHandle, cfg Config, opts ...Option) (*Manager, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	requested := cfg.AtlasResolution
	if cfg.clampToBudget() {
		Logger().Warn("cookie: atlas resolution clamped to memory budget",
			"requested", requested, "resolution", cfg.AtlasResolution, "budgetMB", cfg.MaxMemoryMB)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	kernels := shaders.Compile(o.compile)
	for _, id := range []render.KernelID{shaders.Blit, shaders.FilterHorizontal, shaders.FilterVertical, shaders.CubeToOctahedral} {
		if _, err := kernels.Module(id); err != nil {
			Logger().Error("cookie: kernel unavailable, dependent cookies will not be generated", "err", err)
		}
	}

	device := render.NewDevice(handle, render.DeviceConfig{MaxMemoryMB: cfg.MaxMemoryMB})

	m := &Manager{
		cfg:       cfg,
		device:    device,
		deletions: render.NewDeletionQueue(device, cfg.FramesInFlight),
		atlas:     o.atlas,
	}
	m.frame.reset()

	if m.atlas == nil {
		a, err := atlas.New(device, atlas.Config{
			Width:     cfg.AtlasResolution,
			Height:    cfg.AtlasResolution,
			Format:    cfg.Format,
			MipLevels: cfg.atlasMips(),
			Padding:   cfg.Padding,
			Label:     "cookie atlas",
		})
		if err != nil {
			return nil, fmt.Errorf("cookie: %w", err)
		}
		m.atlas = a
		m.ownsAtlas = true
	}

	tex := m.atlas.Texture()
	if tex == nil {
		return nil, fmt.Errorf("%w: atlas without texture", ErrInvalidConfig)
	}
	m.atlasWidth, m.atlasHeight = tex.Width(), tex.Height()

	pipeline := filter.New(device, m.atlasWidth, m.atlasHeight, cfg.Format, kernels, cfg.FilterRadius)
	projector := octahedral.NewProjector(device, kernels)
	m.derived = derived.New(device, m.deletions, pipeline, projector, cfg.Format)

	Logger().Info("cookie: manager created",
		"width", m.atlasWidth, "height", m.atlasHeight, "format", cfg.Format.String(),
		"mips", tex.MipLevelCount(), "budgetMB", cfg.MaxMemoryMB)
	return m, nil
}

// Config returns the configuration in use, defaults applied.
func (m *Manager) Config() Config {
	return m.cfg
}

// NewFrame starts a frame: per-frame flags and statistics are reset and
// transient textures the GPU is done with are destroyed.
func (m *Manager) NewFrame() {
	if m.released {
		return
	}
	m.frame.reset()
	m.stats = Stats{}
	m.atlas.ResetRequestedTexture()
	if n := m.deletions.Advance(); n > 0 {
		Logger().Debug("cookie: transient textures destroyed", "count", n)
	}
}

// Stats returns the counters of the current frame.
func (m *Manager) Stats() Stats {
	return m.stats
}

// NoMoreSpace reports whether the atlas could not hold every cookie
// reserved this frame.
func (m *Manager) NoMoreSpace() bool {
	return m.frame.noMoreSpace
}

// AtlasTexture returns the atlas texture lights sample their cookies from.
func (m *Manager) AtlasTexture() *render.Texture {
	if m.released {
		return nil
	}
	return m.atlas.Texture()
}

// AtlasSize returns the atlas dimensions.
func (m *Manager) AtlasSize() (width, height int) {
	return m.atlasWidth, m.atlasHeight
}

// MemoryStats returns the texture memory held by the manager.
func (m *Manager) MemoryStats() render.MemoryStats {
	return m.device.Stats()
}

// Emissive returns the emissive texture cached for an area request.
func (m *Manager) Emissive(req Request) (*render.Texture, bool) {
	if m.released || req.Kind != KindArea || req.Validate() != nil {
		return nil, false
	}
	return m.derived.Emissive(req.Identity())
}

// ResetAtlas drops every cached cookie, records a clear of the atlas and
// retires the emissive textures. Use it when the scene changes.
func (m *Manager) ResetAtlas(rec *render.Recording) {
	if m.released {
		return
	}
	m.atlas.ResetAllocator()
	m.atlas.ClearTarget(rec)
	m.derived.Reset()
	Logger().Debug("cookie: atlas reset")
}

// Release waits for the GPU and destroys every texture the manager owns.
// Calling Release more than once is a no-op.
func (m *Manager) Release() {
	if m.released {
		return
	}
	m.released = true

	m.deletions.Flush()
	m.derived.Release()
	if m.ownsAtlas {
		m.atlas.Release()
	}
	m.device.Close()

	Logger().Info("cookie: manager released")
}
