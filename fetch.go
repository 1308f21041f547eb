package cookie

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/cookie/atlas"
	"github.com/gogpu/cookie/internal/filter"
	"github.com/gogpu/cookie/render"
)

var fullRegion = mgl32.Vec4{1, 1, 0, 0}

// Fetch returns the atlas coordinates of the cookie of req, recording into
// rec the work that brings a stale entry up to date. Fetching an up to date
// entry records nothing.
//
// The cookie must have been reserved this frame. An unreserved cookie, or
// one smaller than MinCookieSize, yields a zero Result.
func (m *Manager) Fetch(rec *render.Recording, req Request) Result {
	if m.released {
		return Result{}
	}
	if err := req.Validate(); err != nil {
		Logger().Warn("cookie: fetch ignored", "err", err)
		return Result{}
	}
	if req.tooSmall() {
		return Result{}
	}

	id := req.Identity()
	scaleBias, cached := m.atlas.IsCached(id)
	if !cached {
		m.warnUnreserved(id, req)
		return m.result(req, id, mgl32.Vec4{})
	}

	needMips := req.Kind != KindPlanar
	if !m.atlas.NeedsUpdate(id, needMips, req.sources()...) {
		m.stats.CacheHits++
		return m.result(req, id, scaleBias)
	}

	if err := m.regenerate(rec, req, id, scaleBias); err != nil {
		m.reportFailure(id, req, err)
		return m.result(req, id, scaleBias)
	}
	m.stats.Regenerations++
	Logger().Debug("cookie: regenerated", "id", uint64(id), "kind", req.Kind.String(), "shape", req.Shape.String())
	return m.result(req, id, scaleBias)
}

func (m *Manager) result(req Request, id atlas.ID, scaleBias mgl32.Vec4) Result {
	res := Result{ScaleBias: scaleBias}
	if req.Kind == KindArea {
		res.Emissive, _ = m.derived.Emissive(id)
	}
	return res
}

// warnUnreserved reports a fetch without reservation once per identity and
// frame, unless the atlas already ran out of space this frame.
func (m *Manager) warnUnreserved(id atlas.ID, req Request) {
	if m.frame.noMoreSpace {
		return
	}
	if _, ok := m.frame.warned[id]; ok {
		return
	}
	m.frame.warned[id] = struct{}{}
	m.stats.MissingReservations++
	Logger().Warn("cookie: cookie fetched without reservation, call ReserveSpace before Fetch",
		"id", uint64(id), "width", req.Cookie.Width(), "height", req.Cookie.Height())
}

func (m *Manager) reportFailure(id atlas.ID, req Request, err error) {
	if errors.Is(err, filter.ErrKernelUnavailable) {
		m.stats.ShaderFailures++
	}
	Logger().Error("cookie: regeneration failed",
		"id", uint64(id), "width", req.Cookie.Width(), "height", req.Cookie.Height(), "err", err)
}

// regenerate records the work refreshing the entry of req. On error nothing
// is blitted and the entry stays stale, so the next fetch retries.
func (m *Manager) regenerate(rec *render.Recording, req Request, id atlas.ID, scaleBias mgl32.Vec4) error {
	switch req.Kind {
	case KindPlanar:
		if !req.HasIES() {
			m.atlas.BlitTexture(rec, scaleBias, req.Cookie, fullRegion, false, id)
			return nil
		}
		combined, err := m.derived.Combine(rec, req.Cookie, req.IES)
		if err != nil {
			return err
		}
		m.atlas.BlitTexture(rec, scaleBias, combined, fullRegion, false, id)
		m.derived.Retire(combined)
		return nil

	case KindArea:
		var ies *render.Texture
		if req.HasIES() {
			ies = req.IES
		}
		filtered, err := m.derived.PrepareArea(rec, id, req.Cookie, ies)
		if err != nil {
			return err
		}
		emissive, _ := m.derived.Emissive(id)
		m.atlas.BlitTexture(rec, scaleBias, filtered, m.scratchRegion(emissive.Width(), emissive.Height()), true, id)
		return nil

	case KindCube:
		var ies *render.Texture
		if req.HasIES() {
			ies = req.IES
		}
		size, _ := req.footprint(m.cfg.CubeResolution)
		filtered, err := m.derived.PrepareCube(rec, req.Cookie, ies, size)
		if err != nil {
			return err
		}
		m.atlas.BlitOctahedralTexture(rec, scaleBias, filtered, m.scratchRegion(size, size), true, id)
		return nil
	}
	return ErrInvalidRequest
}

// scratchRegion returns the scale/bias of the top-left width x height
// region of the filter surfaces.
func (m *Manager) scratchRegion(width, height int) mgl32.Vec4 {
	return mgl32.Vec4{
		float32(width) / float32(m.atlasWidth),
		float32(height) / float32(m.atlasHeight),
		0, 0,
	}
}
