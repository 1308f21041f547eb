package atlas

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/gogpu/cookie/render"
)

// ID identifies the content of an atlas entry. It is derived from the
// source textures only, so the same sources always map to the same entry.
type ID uint64

// Domain tags keep single and pair identities apart.
const (
	tagSingle byte = 1
	tagPair   byte = 2
)

// TextureID returns the identity of a single-texture cookie.
func TextureID(tex *render.Texture) ID {
	h := fnv.New64a()
	var buf [9]byte
	buf[0] = tagSingle
	binary.LittleEndian.PutUint64(buf[1:], uint64(tex.ID()))
	_, _ = h.Write(buf[:])
	return ID(h.Sum64())
}

// PairID returns the identity of a cookie made of two textures. The result
// does not depend on argument order: PairID(a, b) == PairID(b, a).
func PairID(a, b *render.Texture) ID {
	primary, secondary := OrderPair(a, b)
	h := fnv.New64a()
	var buf [17]byte
	buf[0] = tagPair
	binary.LittleEndian.PutUint64(buf[1:], uint64(primary.ID()))
	binary.LittleEndian.PutUint64(buf[9:], uint64(secondary.ID()))
	_, _ = h.Write(buf[:])
	return ID(h.Sum64())
}

// OrderPair returns the texture with the larger pixel area first. Equal
// areas are ordered by texture ID so the result is independent of argument
// order. The primary texture is the base for sizing and combining.
func OrderPair(a, b *render.Texture) (primary, secondary *render.Texture) {
	if a.Area() != b.Area() {
		if a.Area() > b.Area() {
			return a, b
		}
		return b, a
	}
	if a.ID() <= b.ID() {
		return a, b
	}
	return b, a
}

// ContentVersion hashes the identity, size and content version of the
// sources, in order. Any change to a source yields a different value.
func ContentVersion(sources ...*render.Texture) uint64 {
	h := fnv.New64a()
	var buf [32]byte
	for _, tex := range sources {
		if tex == nil {
			continue
		}
		binary.LittleEndian.PutUint64(buf[0:], uint64(tex.ID()))
		binary.LittleEndian.PutUint64(buf[8:], tex.Version())
		//nolint:gosec // G115: sizes are positive
		binary.LittleEndian.PutUint64(buf[16:], uint64(tex.Width())<<32|uint64(tex.Height()))
		binary.LittleEndian.PutUint64(buf[24:], uint64(tex.MipLevelCount()))
		_, _ = h.Write(buf[:])
	}
	v := h.Sum64()
	if v == 0 {
		// Zero marks an entry whose content is invalid.
		v = 1
	}
	return v
}
