package atlas

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/cookie/render"
)

// ErrInvalidConfig is returned by New for unusable atlas dimensions.
var ErrInvalidConfig = errors.New("atlas: invalid config")

// Default values.
const (
	DefaultSize    = 2048
	DefaultPadding = 2
)

// Config describes an atlas.
type Config struct {
	// Width and Height of the atlas texture. Both must be powers of two.
	// Zero means DefaultSize.
	Width  int
	Height int

	// Format of the atlas texture.
	Format render.Format

	// MipLevels is the mip count of the atlas texture. Zero means a full
	// chain.
	MipLevels int

	// Padding is the border, in texels, kept free around the content of
	// every slot so filtered mips do not bleed into neighbours. Negative
	// means none.
	Padding int

	// Label is the debug label of the atlas texture.
	Label string
}

func (c Config) withDefaults() Config {
	if c.Width == 0 {
		c.Width = DefaultSize
	}
	if c.Height == 0 {
		c.Height = DefaultSize
	}
	if c.MipLevels <= 0 {
		c.MipLevels = render.MipCount(c.Width, c.Height)
	}
	if c.Padding < 0 {
		c.Padding = 0
	}
	if c.Label == "" {
		c.Label = "cookie atlas"
	}
	return c
}

type entry struct {
	// slot size requested, rounded up to powers of two
	width  int
	height int

	slot      Region
	allocated bool
	requested bool

	version uint64 // committed by a blit; 0 means invalid content
	pending uint64 // staged by NeedsUpdate
	hasMips bool
}

// Atlas is a power-of-two texture atlas caching cookie content.
//
// Each entry is keyed by an ID and owns a power-of-two slot. Reservations
// that do not fit are remembered so that RelayoutEntries can repack every
// entry requested since the last ResetRequestedTexture. Content is tracked
// by version: NeedsUpdate stages the version of the sources and a blit
// commits it.
//
// Atlas is not safe for concurrent use.
type Atlas struct {
	cfg     Config
	texture *render.Texture
	alloc   *shelfAllocator
	entries map[ID]*entry
}

// New creates an atlas and allocates its texture on device.
func New(device *render.Device, cfg Config) (*Atlas, error) {
	cfg = cfg.withDefaults()
	if !render.IsPowerOfTwo(cfg.Width) || !render.IsPowerOfTwo(cfg.Height) {
		return nil, fmt.Errorf("%w: %dx%d is not a power of two", ErrInvalidConfig, cfg.Width, cfg.Height)
	}

	tex, err := device.CreateTexture(render.TextureDescriptor{
		Label:         cfg.Label,
		Width:         cfg.Width,
		Height:        cfg.Height,
		MipLevelCount: cfg.MipLevels,
		Format:        cfg.Format,
		Usage:         render.TargetUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("atlas: create texture: %w", err)
	}
	cfg.MipLevels = tex.MipLevelCount()

	return &Atlas{
		cfg:     cfg,
		texture: tex,
		alloc:   newShelfAllocator(cfg.Width, cfg.Height),
		entries: make(map[ID]*entry),
	}, nil
}

// Texture returns the atlas texture.
func (a *Atlas) Texture() *render.Texture {
	return a.texture
}

// Size returns the atlas dimensions.
func (a *Atlas) Size() (width, height int) {
	return a.cfg.Width, a.cfg.Height
}

// MipLevels returns the mip count of the atlas texture.
func (a *Atlas) MipLevels() int {
	return a.cfg.MipLevels
}

// Len returns the number of entries holding a slot.
func (a *Atlas) Len() int {
	n := 0
	for _, e := range a.entries {
		if e.allocated {
			n++
		}
	}
	return n
}

// Utilization returns the fraction of the atlas area held by slots.
func (a *Atlas) Utilization() float64 {
	return a.alloc.utilization()
}

// ReserveSpace makes sure id has a slot of at least width x height texels
// and marks it requested for this frame. It returns false when the slot
// does not fit; the request is kept for RelayoutEntries.
func (a *Atlas) ReserveSpace(id ID, width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	w := render.NextPowerOfTwo(width)
	h := render.NextPowerOfTwo(height)

	e, ok := a.entries[id]
	if !ok {
		e = &entry{}
		a.entries[id] = e
	}
	e.requested = true
	if e.allocated && e.width == w && e.height == h {
		return true
	}

	// A resized entry keeps its old slot until the next relayout reclaims it.
	// A failure here leads the caller to RelayoutEntries, which repacks
	// every requested entry at its new size.
	e.width, e.height = w, h
	slot := a.alloc.allocate(w, h)
	if !slot.IsValid() {
		e.allocated = false
		return false
	}
	e.place(slot)
	return true
}

// ReserveTexture reserves a slot sized to tex under its TextureID.
func (a *Atlas) ReserveTexture(tex *render.Texture) bool {
	if tex == nil {
		return false
	}
	return a.ReserveSpace(TextureID(tex), tex.Width(), tex.Height())
}

func (e *entry) place(slot Region) {
	if e.allocated && e.slot == slot {
		return
	}
	e.slot = slot
	e.allocated = true
	e.version = 0
	e.hasMips = false
}

// RelayoutEntries repacks every requested entry from scratch, largest
// first. Entries not requested since the last ResetRequestedTexture are
// evicted. Entries that move lose their content. It returns false if some
// requested entry still does not fit; those entries stay without a slot.
func (a *Atlas) RelayoutEntries() bool {
	type item struct {
		id ID
		e  *entry
	}
	items := make([]item, 0, len(a.entries))
	for id, e := range a.entries {
		if !e.requested {
			delete(a.entries, id)
			continue
		}
		items = append(items, item{id, e})
	}
	slices.SortFunc(items, func(x, y item) int {
		if c := cmp.Compare(y.e.height, x.e.height); c != 0 {
			return c
		}
		if c := cmp.Compare(y.e.width, x.e.width); c != 0 {
			return c
		}
		return cmp.Compare(x.id, y.id)
	})

	a.alloc.reset()
	ok := true
	for _, it := range items {
		slot := a.alloc.allocate(it.e.width, it.e.height)
		if !slot.IsValid() {
			it.e.allocated = false
			it.e.version = 0
			it.e.hasMips = false
			ok = false
			continue
		}
		it.e.place(slot)
	}
	return ok
}

// Contains reports whether id has an entry, with or without a slot. Entries
// leave the atlas when a relayout evicts them or the allocator is reset.
func (a *Atlas) Contains(id ID) bool {
	_, ok := a.entries[id]
	return ok
}

// IsCached returns the scale/bias of the content region of id in UV space,
// (scaleX, scaleY, biasX, biasY), if id holds a slot.
func (a *Atlas) IsCached(id ID) (mgl32.Vec4, bool) {
	e, ok := a.entries[id]
	if !ok || !e.allocated {
		return mgl32.Vec4{}, false
	}
	return a.scaleBias(e), true
}

func (a *Atlas) scaleBias(e *entry) mgl32.Vec4 {
	r := e.slot.Inset(a.cfg.Padding)
	w, h := float32(a.cfg.Width), float32(a.cfg.Height)
	return mgl32.Vec4{
		float32(r.Width) / w,
		float32(r.Height) / h,
		float32(r.X) / w,
		float32(r.Y) / h,
	}
}

// NeedsUpdate reports whether the content of id is stale with respect to
// sources, or lacks mips when needMips is set. The current version of the
// sources is staged and committed by the next blit into id. Entries without
// a slot never need an update.
func (a *Atlas) NeedsUpdate(id ID, needMips bool, sources ...*render.Texture) bool {
	e, ok := a.entries[id]
	if !ok || !e.allocated {
		return false
	}
	e.pending = ContentVersion(sources...)
	return e.version != e.pending || (needMips && !e.hasMips)
}

// BlitTexture records a copy of the srcScaleOffset region of src into the
// slot of id at scaleBias, mip 0 only unless blitMips is set. Mips are
// copied down to the shortest of the source, atlas, slot and region chains,
// the region chain being that of its size rounded up to powers of two. The version
// staged by NeedsUpdate is committed.
func (a *Atlas) BlitTexture(rec *render.Recording, scaleBias mgl32.Vec4, src *render.Texture, srcScaleOffset mgl32.Vec4, blitMips bool, id ID) {
	a.blit(rec, scaleBias, src, srcScaleOffset, blitMips, id, rec.Blit)
}

// BlitOctahedralTexture is BlitTexture for octahedral content.
func (a *Atlas) BlitOctahedralTexture(rec *render.Recording, scaleBias mgl32.Vec4, src *render.Texture, srcScaleOffset mgl32.Vec4, blitMips bool, id ID) {
	a.blit(rec, scaleBias, src, srcScaleOffset, blitMips, id, rec.BlitOctahedral)
}

type blitFunc func(src *render.Texture, srcMip int, srcScaleBias mgl32.Vec4, dst *render.Texture, dstMip int, dstScaleBias mgl32.Vec4)

func (a *Atlas) blit(rec *render.Recording, scaleBias mgl32.Vec4, src *render.Texture, srcScaleOffset mgl32.Vec4, blitMips bool, id ID, fn blitFunc) {
	e, ok := a.entries[id]
	if !ok || !e.allocated || src == nil {
		return
	}

	levels := 1
	if blitMips {
		rw, rh := regionExtent(src, srcScaleOffset)
		levels = min(src.MipLevelCount(), a.cfg.MipLevels, render.MipCount(e.slot.Width, e.slot.Height),
			render.MipCount(render.NextPowerOfTwo(rw), render.NextPowerOfTwo(rh)))
	}
	for mip := range levels {
		fn(src, mip, srcScaleOffset, a.texture, mip, scaleBias)
	}

	e.version = e.pending
	if e.version == 0 {
		e.version = ContentVersion(src)
	}
	e.hasMips = blitMips
}

// regionExtent returns the texel size of the scaleOffset region of src.
// Mips past the chain of that region hold no content of it.
func regionExtent(src *render.Texture, scaleOffset mgl32.Vec4) (width, height int) {
	width = max(1, int(math.Round(float64(scaleOffset[0])*float64(src.Width()))))
	height = max(1, int(math.Round(float64(scaleOffset[1])*float64(src.Height()))))
	return width, height
}

// ResetRequestedTexture starts a new frame of requests.
func (a *Atlas) ResetRequestedTexture() {
	for _, e := range a.entries {
		e.requested = false
	}
}

// ResetAllocator drops every entry and frees the whole atlas.
func (a *Atlas) ResetAllocator() {
	a.alloc.reset()
	clear(a.entries)
}

// ClearTarget records a clear of the atlas texture.
func (a *Atlas) ClearTarget(rec *render.Recording) {
	rec.Clear(a.texture, mgl32.Vec4{})
}

// Release destroys the atlas texture. It is safe to call more than once.
func (a *Atlas) Release() {
	if a.texture == nil {
		return
	}
	a.texture.Release()
	a.texture = nil
	clear(a.entries)
	a.alloc.reset()
}
