package atlas

import (
	"testing"

	"github.com/gogpu/cookie/render"
)

func newTex(t *testing.T, w, h int) *render.Texture {
	t.Helper()
	tex, err := render.NewTexture(render.TextureDescriptor{Width: w, Height: h})
	if err != nil {
		t.Fatalf("NewTexture(%d, %d): %v", w, h, err)
	}
	return tex
}

func TestIdentityStable(t *testing.T) {
	a := newTex(t, 64, 64)
	b := newTex(t, 32, 32)

	if TextureID(a) != TextureID(a) {
		t.Error("TextureID is not deterministic")
	}
	if TextureID(a) == TextureID(b) {
		t.Error("distinct textures share a TextureID")
	}
	if PairID(a, b) != PairID(b, a) {
		t.Error("PairID depends on argument order")
	}
	if PairID(a, b) == TextureID(a) || PairID(a, b) == TextureID(b) {
		t.Error("PairID collides with a single identity")
	}
}

func TestPairIDEqualArea(t *testing.T) {
	a := newTex(t, 64, 16)
	b := newTex(t, 32, 32)
	if PairID(a, b) != PairID(b, a) {
		t.Error("PairID depends on argument order for equal areas")
	}
}

func TestOrderPair(t *testing.T) {
	small := newTex(t, 16, 16)
	large := newTex(t, 128, 64)

	for _, args := range [][2]*render.Texture{{small, large}, {large, small}} {
		p, s := OrderPair(args[0], args[1])
		if p != large || s != small {
			t.Errorf("OrderPair(%v, %v) = (%v, %v)", args[0], args[1], p, s)
		}
	}

	x := newTex(t, 8, 8)
	y := newTex(t, 8, 8)
	p1, _ := OrderPair(x, y)
	p2, _ := OrderPair(y, x)
	if p1 != p2 || p1 != x {
		t.Errorf("equal areas: primary = %v / %v, want %v", p1, p2, x)
	}
}

func TestContentVersion(t *testing.T) {
	a := newTex(t, 64, 64)
	b := newTex(t, 64, 64)

	v := ContentVersion(a)
	if v == 0 {
		t.Fatal("ContentVersion returned 0")
	}
	if ContentVersion(a) != v {
		t.Error("ContentVersion is not deterministic")
	}
	if ContentVersion(a, b) == v {
		t.Error("adding a source did not change the version")
	}

	a.MarkUpdated()
	if ContentVersion(a) == v {
		t.Error("MarkUpdated did not change the version")
	}
}
