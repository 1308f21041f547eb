// Package cookie caches light cookies in a shared GPU texture atlas.
//
// # Overview
//
// A cookie is a texture projected by a light to shape its output. Spot and
// directional lights use 2D cookies, area lights use 2D cookies filtered
// into a mip chain, point lights use cube cookies stored as octahedral maps.
// Optionally a cookie is masked by an IES profile texture.
//
// The Manager keeps one atlas holding every cookie a frame uses. Entries
// are keyed by the identity of their source textures and refreshed only when
// a source changed, so a static scene costs no GPU work after its first
// frame.
//
// # Frame protocol
//
//	m.NewFrame()
//	m.ReserveSpace(cookie.Planar(spotCookie))
//	m.ReserveSpace(cookie.Area(panelCookie))
//	m.LayoutIfNeeded()
//	res := m.Fetch(rec, cookie.Planar(spotCookie))
//
// ReserveSpace never repacks the atlas. When a reservation fails,
// LayoutIfNeeded repacks every entry reserved this frame, largest first,
// at most once per frame. If that still fails, NoMoreSpace reports true and
// the cookies that did not fit fetch as zero.
//
// # GPU work
//
// The manager does not submit GPU work. Fetch appends blits, raster passes
// and compute dispatches to a render.Recording the host executes in order.
// Textures used by recorded work are destroyed FramesInFlight frames later.
//
// # Logging
//
// The package is silent by default. See SetLogger.
package cookie
