package filter

import (
	"errors"
	"strings"
	"testing"

	"honnef.co/go/safeish"

	"github.com/gogpu/cookie/internal/shaders"
	"github.com/gogpu/cookie/render"
)

func okKernels() *shaders.Set {
	return shaders.Compile(func(string) ([]byte, error) { return []byte{1}, nil })
}

func newPipeline(t *testing.T, size int, kernels *shaders.Set) (*Pipeline, *render.Device) {
	t.Helper()
	dev := render.NewDevice(nil, render.DeviceConfig{})
	return New(dev, size, size, render.FormatR16G16B16A16, kernels, 1.0), dev
}

func newSource(t *testing.T, w, h int) *render.Texture {
	t.Helper()
	tex, err := render.NewTexture(render.TextureDescriptor{Width: w, Height: h})
	if err != nil {
		t.Fatal(err)
	}
	return tex
}

func decodeParams(t *testing.T, b []byte) *passParams {
	t.Helper()
	if len(b) == 0 {
		t.Fatal("pass without parameters")
	}
	return safeish.Cast[*passParams](&b[0])
}

func TestLevelsAndViewports(t *testing.T) {
	if got := Levels(256, 256); got != 9 {
		t.Fatalf("Levels(256, 256) = %d, want 9", got)
	}
	vps := Viewports(256, 256)
	for k, vp := range vps {
		want := max(1, 256>>k)
		if vp.Width != want || vp.Height != want {
			t.Errorf("level %d viewport = %s, want %dx%d", k, vp, want, want)
		}
	}

	vps = Viewports(64, 16)
	if len(vps) != 7 {
		t.Fatalf("len(Viewports(64, 16)) = %d, want 7", len(vps))
	}
	if last := vps[6]; last.Width != 1 || last.Height != 1 {
		t.Errorf("last viewport = %s, want 1x1", last)
	}
}

func TestFilterChainNonPowerOfTwo(t *testing.T) {
	if got := Levels(100, 100); got != 8 {
		t.Fatalf("Levels(100, 100) = %d, want 8", got)
	}
	vps := Viewports(100, 100)
	wantW := []int{100, 50, 25, 12, 6, 3, 1, 1}
	for k, vp := range vps {
		if vp.Width != wantW[k] || vp.Height != wantW[k] {
			t.Errorf("level %d viewport = %s, want %dx%d", k, vp, wantW[k], wantW[k])
		}
	}

	p, _ := newPipeline(t, 256, okKernels())
	rec := render.NewRecording()
	out, err := p.Filter(rec, newSource(t, 100, 100), 100, 100)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}

	// Every level of the 128 slot chain is written by this call.
	written := make([]bool, 8)
	written[0] = true
	for _, cmd := range rec.Commands {
		if d, ok := cmd.(*render.Draw); ok && d.Target == out {
			written[d.TargetMip] = true
		}
	}
	for k, ok := range written {
		if !ok {
			t.Errorf("mip %d of the result not written", k)
		}
	}
}

func TestFilterChain(t *testing.T) {
	p, _ := newPipeline(t, 256, okKernels())
	src := newSource(t, 256, 256)
	rec := render.NewRecording()

	out, err := p.Filter(rec, src, 256, 256)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	a, b := p.Scratch()
	if out != a {
		t.Error("Filter did not return scratch A")
	}

	// One blit for mip 0, then two passes per further level.
	if rec.Len() != 1+2*8 {
		t.Fatalf("commands = %d, want 17", rec.Len())
	}
	blit, ok := rec.Commands[0].(*render.Blit)
	if !ok || blit.Source != src || blit.Target != a || blit.TargetMip != 0 {
		t.Fatalf("command 0 = %#v, want blit into scratch A", rec.Commands[0])
	}

	vps := Viewports(256, 256)
	for m := 1; m < 9; m++ {
		h := rec.Commands[2*m-1].(*render.Draw)
		v := rec.Commands[2*m].(*render.Draw)

		if h.Kernel != shaders.FilterHorizontal || h.Source != a || h.Target != b ||
			h.SourceMip != m-1 || h.TargetMip != m-1 {
			t.Errorf("level %d horizontal pass = %+v", m, h)
		}
		if h.Viewport.Width != vps[m].Width || h.Viewport.Height != vps[m-1].Height {
			t.Errorf("level %d horizontal viewport = %s", m, h.Viewport)
		}
		if v.Kernel != shaders.FilterVertical || v.Source != b || v.Target != a ||
			v.SourceMip != m-1 || v.TargetMip != m {
			t.Errorf("level %d vertical pass = %+v", m, v)
		}
		if v.Viewport != vps[m] {
			t.Errorf("level %d vertical viewport = %s, want %s", m, v.Viewport, vps[m])
		}
	}
}

func TestFilterPassParams(t *testing.T) {
	p, _ := newPipeline(t, 256, okKernels())
	rec := render.NewRecording()
	if _, err := p.Filter(rec, newSource(t, 64, 16), 64, 16); err != nil {
		t.Fatal(err)
	}

	// First horizontal pass reads the 64x16 region of the 256x256 mip 0.
	h := decodeParams(t, rec.Commands[1].(*render.Draw).Params)
	if h.UVScale != [2]float32{0.25, 1.0 / 16} {
		t.Errorf("UVScale = %v", h.UVScale)
	}
	if h.TexelSize != [2]float32{1.0 / 256, 1.0 / 256} {
		t.Errorf("TexelSize = %v", h.TexelSize)
	}
	if h.Direction != [2]float32{1, 0} || h.SourceMip != 0 || h.Taps != MaxTaps {
		t.Errorf("params = %+v", h)
	}

	// Second vertical pass reads the 16x8 region of the 128x128 mip 1.
	v := decodeParams(t, rec.Commands[4].(*render.Draw).Params)
	if v.TexelSize != [2]float32{1.0 / 128, 1.0 / 128} {
		t.Errorf("TexelSize = %v", v.TexelSize)
	}
	if v.UVLimit != [2]float32{15.5 / 128, 7.5 / 128} {
		t.Errorf("UVLimit = %v", v.UVLimit)
	}
	if v.Direction != [2]float32{0, 1} || v.SourceMip != 1 {
		t.Errorf("params = %+v", v)
	}
}

func TestFilterReusesScratch(t *testing.T) {
	p, dev := newPipeline(t, 128, okKernels())
	for range 3 {
		if _, err := p.Filter(render.NewRecording(), newSource(t, 32, 32), 32, 32); err != nil {
			t.Fatal(err)
		}
	}
	if n := dev.Stats().TextureCount; n != 2 {
		t.Errorf("TextureCount = %d, want 2", n)
	}

	p.Release()
	p.Release()
	if n := dev.Stats().TextureCount; n != 0 {
		t.Errorf("TextureCount after Release = %d, want 0", n)
	}
}

func TestFilterErrors(t *testing.T) {
	broken := shaders.Compile(func(wgsl string) ([]byte, error) {
		if strings.Contains(wgsl, "Separable Gaussian") {
			return nil, errors.New("bad shader")
		}
		return []byte{1}, nil
	})

	tests := []struct {
		name    string
		kernels *shaders.Set
		w, h    int
		want    error
	}{
		{"broken kernel", broken, 32, 32, ErrKernelUnavailable},
		{"no kernels", nil, 32, 32, ErrKernelUnavailable},
		{"too large", okKernels(), 256, 32, ErrSourceTooLarge},
		{"empty", okKernels(), 0, 32, render.ErrInvalidDimensions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, dev := newPipeline(t, 128, tt.kernels)
			rec := render.NewRecording()
			out, err := p.Filter(rec, newSource(t, 256, 256), tt.w, tt.h)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if out != nil || rec.Len() != 0 {
				t.Errorf("failed Filter produced %v and %d commands", out, rec.Len())
			}
			if dev.Stats().TextureCount != 0 {
				t.Error("failed Filter allocated scratch surfaces")
			}
		})
	}
}
