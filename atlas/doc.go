// Package atlas provides the texture atlas that caches light cookies.
//
// Every cookie is keyed by an ID derived from its source textures
// (TextureID, PairID) and lives in a power-of-two slot of one shared
// texture. The atlas tracks which content version each slot holds, so a
// caller only re-blits when the sources changed:
//
//	if sb, ok := a.IsCached(id); ok && a.NeedsUpdate(id, false, tex) {
//		a.BlitTexture(rec, sb, tex, mgl32.Vec4{1, 1, 0, 0}, false, id)
//	}
//
// Reservations that do not fit are kept until RelayoutEntries repacks all
// entries requested during the frame.
package atlas
