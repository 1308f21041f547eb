// Package derived builds the textures a cookie needs beyond its sources:
// combinations of a cookie with its IES profile, filtered mip chains for
// area lights and octahedral projections for cube lights.
//
// Intermediate textures go through a render.DeletionQueue, never straight
// back to the device, since recorded work still reads them.
package derived

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/cookie/atlas"
	"github.com/gogpu/cookie/internal/filter"
	"github.com/gogpu/cookie/internal/octahedral"
	"github.com/gogpu/cookie/render"
)

var fullRegion = mgl32.Vec4{1, 1, 0, 0}

// Manager owns every derived texture: the emissive cache, the filter
// scratch surfaces and the projections in flight.
//
// Manager is not safe for concurrent use.
type Manager struct {
	device    *render.Device
	deletions *render.DeletionQueue
	filter    *filter.Pipeline
	projector *octahedral.Projector
	format    render.Format

	// emissive holds the unfiltered source of each area cookie.
	emissive map[atlas.ID]*render.Texture
}

// New creates a Manager. It takes ownership of pipeline.
func New(device *render.Device, deletions *render.DeletionQueue, pipeline *filter.Pipeline, projector *octahedral.Projector, format render.Format) *Manager {
	return &Manager{
		device:    device,
		deletions: deletions,
		filter:    pipeline,
		projector: projector,
		format:    format,
		emissive:  make(map[atlas.ID]*render.Texture),
	}
}

func (m *Manager) surface(label string, width, height int) (*render.Texture, error) {
	tex, err := m.device.CreateTexture(render.TextureDescriptor{
		Label:  label,
		Width:  width,
		Height: height,
		Format: m.format,
		Usage:  render.TargetUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("derived: %w", err)
	}
	return tex, nil
}

// Combine records the product of a and b into a new texture the size of
// the primary, the source with the larger area. The caller owns the result.
func (m *Manager) Combine(rec *render.Recording, a, b *render.Texture) (*render.Texture, error) {
	primary, secondary := atlas.OrderPair(a, b)
	out, err := m.surface("cookie combined", primary.Width(), primary.Height())
	if err != nil {
		return nil, err
	}
	rec.Clear(out, mgl32.Vec4{})
	rec.Arithmetic(render.ArithmeticAdd, primary, out)
	rec.Arithmetic(render.ArithmeticMultiply, secondary, out)
	return out, nil
}

func (m *Manager) copyOf(rec *render.Recording, src *render.Texture) (*render.Texture, error) {
	out, err := m.surface("cookie emissive", src.Width(), src.Height())
	if err != nil {
		return nil, err
	}
	rec.Blit(src, 0, fullRegion, out, 0, fullRegion)
	return out, nil
}

// PrepareArea builds the emissive texture of an area cookie, the cookie
// alone or combined with ies when not nil, stores it under id and returns
// its filtered mip chain. A previous emissive texture for id is retired.
//
// The filtered texture belongs to the filter pipeline and is only valid
// until the next filter call.
func (m *Manager) PrepareArea(rec *render.Recording, id atlas.ID, cookie, ies *render.Texture) (*render.Texture, error) {
	var (
		src *render.Texture
		err error
	)
	if ies != nil {
		src, err = m.Combine(rec, cookie, ies)
	} else {
		src, err = m.copyOf(rec, cookie)
	}
	if err != nil {
		return nil, err
	}
	m.store(id, src)

	return m.filter.Filter(rec, src, src.Width(), src.Height())
}

func (m *Manager) store(id atlas.ID, tex *render.Texture) {
	if prev, ok := m.emissive[id]; ok && prev != tex {
		m.deletions.Defer(prev)
	}
	m.emissive[id] = tex
}

// PrepareCube projects cube, multiplied by the projection of ies when not
// nil, onto a size x size octahedral map and returns its filtered mip
// chain. The projections are retired once recorded.
func (m *Manager) PrepareCube(rec *render.Recording, cube, ies *render.Texture, size int) (*render.Texture, error) {
	proj, err := m.projector.Project(rec, cube, size)
	if err != nil {
		return nil, err
	}
	defer m.deletions.Defer(proj)

	if ies != nil {
		iesProj, err := m.projector.Project(rec, ies, size)
		if err != nil {
			return nil, err
		}
		defer m.deletions.Defer(iesProj)
		rec.Arithmetic(render.ArithmeticMultiply, iesProj, proj)
	}

	return m.filter.Filter(rec, proj, size, size)
}

// Retire hands a transient texture to the deletion queue.
func (m *Manager) Retire(tex *render.Texture) {
	m.deletions.Defer(tex)
}

// Emissive returns the emissive texture stored for id.
func (m *Manager) Emissive(id atlas.ID) (*render.Texture, bool) {
	tex, ok := m.emissive[id]
	return tex, ok
}

// Drop retires the emissive texture of id. It reports whether one was held.
func (m *Manager) Drop(id atlas.ID) bool {
	tex, ok := m.emissive[id]
	if !ok {
		return false
	}
	m.deletions.Defer(tex)
	delete(m.emissive, id)
	return true
}

// Prune drops the emissive textures of every identity keep rejects and
// returns how many were dropped.
func (m *Manager) Prune(keep func(atlas.ID) bool) int {
	n := 0
	for id := range m.emissive {
		if !keep(id) && m.Drop(id) {
			n++
		}
	}
	return n
}

// Len returns the number of emissive textures.
func (m *Manager) Len() int {
	return len(m.emissive)
}

// Reset retires every emissive texture.
func (m *Manager) Reset() {
	for id, tex := range m.emissive {
		m.deletions.Defer(tex)
		delete(m.emissive, id)
	}
}

// Release destroys every emissive texture and the filter scratch surfaces
// immediately. The caller must have waited for the GPU.
func (m *Manager) Release() {
	for id, tex := range m.emissive {
		tex.Release()
		delete(m.emissive, id)
	}
	m.filter.Release()
}
