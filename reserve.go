package cookie

import (
	"github.com/gogpu/cookie/atlas"
	"github.com/gogpu/cookie/render"
)

// frameState holds the flags of the current frame. Each flag is only
// raised once per frame.
type frameState struct {
	needsLayout  bool
	relayoutDone bool
	noMoreSpace  bool

	// warned holds the identities already reported as fetched without a
	// reservation.
	warned map[atlas.ID]struct{}
}

func (f *frameState) reset() {
	f.needsLayout = false
	f.relayoutDone = false
	f.noMoreSpace = false
	if f.warned == nil {
		f.warned = make(map[atlas.ID]struct{})
	}
	clear(f.warned)
}

// ReserveSpace reserves the atlas space of req for this frame. It returns
// false when the atlas is full; the manager then repacks the atlas in
// LayoutIfNeeded. Cookies smaller than MinCookieSize need no space and
// always succeed.
func (m *Manager) ReserveSpace(req Request) bool {
	if m.released {
		return false
	}
	if err := req.Validate(); err != nil {
		Logger().Warn("cookie: reservation ignored", "err", err)
		return false
	}
	if req.tooSmall() {
		return true
	}

	id := req.Identity()
	w, h := req.footprint(m.cfg.CubeResolution)
	m.stats.Reservations++
	if m.atlas.ReserveSpace(id, w, h) {
		return true
	}

	m.stats.FailedReservations++
	m.frame.needsLayout = true
	Logger().Debug("cookie: reservation does not fit", "id", uint64(id), "width", w, "height", h)
	return false
}

// ReserveTexture reserves space for the planar cookie tex.
func (m *Manager) ReserveTexture(tex *render.Texture) bool {
	return m.ReserveSpace(Planar(tex))
}

// LayoutIfNeeded repacks the atlas once if a reservation failed this frame.
// Emissive textures of cookies the repack evicts are retired.
// When the repacked atlas still cannot hold every reserved cookie,
// NoMoreSpace reports true until the next frame.
func (m *Manager) LayoutIfNeeded() {
	if m.released || !m.frame.needsLayout || m.frame.relayoutDone {
		return
	}
	m.frame.relayoutDone = true
	m.stats.Relayouts++

	ok := m.atlas.RelayoutEntries()
	if n := m.derived.Prune(m.atlas.Contains); n > 0 {
		Logger().Debug("cookie: emissive textures of evicted cookies retired", "count", n)
	}
	if ok {
		Logger().Debug("cookie: atlas repacked")
		return
	}
	m.frame.noMoreSpace = true
	Logger().Error("cookie: atlas exhausted, increase Config.AtlasResolution",
		"width", m.atlasWidth, "height", m.atlasHeight)
}
